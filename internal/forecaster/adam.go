package forecaster

import "math"

// Adam default hyperparameters.
const (
	DefaultLearningRate = 0.001
	adamBeta1           = 0.9
	adamBeta2           = 0.999
	adamEpsilon         = 1e-7
)

// Adam is the adaptive moment estimation optimizer. The bias correction is folded into the
// step size: lr_t = lr * sqrt(1 - beta2^t) / (1 - beta1^t).
type Adam struct {
	LearningRate float64
	Beta1        float64
	Beta2        float64
	Epsilon      float64

	iterations int
	m          map[*param][]float64
	v          map[*param][]float64
}

// NewAdam creates an optimizer with the default betas and epsilon.
func NewAdam(learningRate float64) *Adam {
	return &Adam{
		LearningRate: learningRate,
		Beta1:        adamBeta1,
		Beta2:        adamBeta2,
		Epsilon:      adamEpsilon,
		m:            make(map[*param][]float64),
		v:            make(map[*param][]float64),
	}
}

// Step applies one update to every parameter using its accumulated gradient.
func (a *Adam) Step(params []*param) {
	a.iterations++
	t := float64(a.iterations)
	lr := a.LearningRate * math.Sqrt(1-math.Pow(a.Beta2, t)) / (1 - math.Pow(a.Beta1, t))

	for _, p := range params {
		m, ok := a.m[p]
		if !ok {
			m = make([]float64, len(p.value))
			a.m[p] = m
			a.v[p] = make([]float64, len(p.value))
		}

		v := a.v[p]

		for i, g := range p.grad {
			m[i] = a.Beta1*m[i] + (1-a.Beta1)*g
			v[i] = a.Beta2*v[i] + (1-a.Beta2)*g*g
			p.value[i] -= lr * m[i] / (math.Sqrt(v[i]) + a.Epsilon)
		}
	}
}

// Iterations returns the number of steps taken.
func (a *Adam) Iterations() int {
	return a.iterations
}
