package forecaster

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// LSTMLayer is a long short-term memory layer with gates ordered input, forget, cell, output.
// Kernel is inputDim x 4*Units and Recurrent is Units x 4*Units.
type LSTMLayer struct {
	Units           int
	InputDim        int
	ReturnSequences bool

	Kernel    *mat.Dense
	Recurrent *mat.Dense
	Bias      *mat.VecDense

	gradKernel    *mat.Dense
	gradRecurrent *mat.Dense
	gradBias      *mat.VecDense
}

// lstmStep keeps what backpropagation needs from one time step.
type lstmStep struct {
	x     *mat.VecDense
	hPrev *mat.VecDense
	cPrev []float64
	i     []float64
	f     []float64
	g     []float64
	o     []float64
	tanhC []float64
	c     []float64
	h     *mat.VecDense
}

// NewLSTMLayer creates a layer with glorot uniform kernel, orthogonal recurrent kernel
// and a zero bias whose forget gate slice is set to 1.
func NewLSTMLayer(rng *rand.Rand, inputDim, units int, returnSequences bool) *LSTMLayer {
	gates := 4 * units

	bias := mat.NewVecDense(gates, nil)
	for j := units; j < 2*units; j++ {
		bias.SetVec(j, 1)
	}

	return &LSTMLayer{
		Units:           units,
		InputDim:        inputDim,
		ReturnSequences: returnSequences,
		Kernel:          glorotUniform(rng, inputDim, gates, inputDim, gates),
		Recurrent:       orthogonal(rng, units, gates),
		Bias:            bias,
		gradKernel:      mat.NewDense(inputDim, gates, nil),
		gradRecurrent:   mat.NewDense(units, gates, nil),
		gradBias:        mat.NewVecDense(gates, nil),
	}
}

func (l *LSTMLayer) params() []*param {
	return []*param{
		denseParam("kernel", l.Kernel, l.gradKernel),
		denseParam("recurrent_kernel", l.Recurrent, l.gradRecurrent),
		vecParam("bias", l.Bias, l.gradBias),
	}
}

// forward runs the sequence from a zero state.
func (l *LSTMLayer) forward(inputs []*mat.VecDense) []lstmStep {
	units := l.Units
	steps := make([]lstmStep, len(inputs))

	hPrev := mat.NewVecDense(units, nil)
	cPrev := make([]float64, units)

	z := mat.NewVecDense(4*units, nil)
	recurrent := mat.NewVecDense(4*units, nil)

	for t, x := range inputs {
		z.MulVec(l.Kernel.T(), x)
		recurrent.MulVec(l.Recurrent.T(), hPrev)
		z.AddVec(z, recurrent)
		z.AddVec(z, l.Bias)

		pre := z.RawVector().Data

		step := lstmStep{
			x:     x,
			hPrev: hPrev,
			cPrev: cPrev,
			i:     make([]float64, units),
			f:     make([]float64, units),
			g:     make([]float64, units),
			o:     make([]float64, units),
			tanhC: make([]float64, units),
			c:     make([]float64, units),
		}

		h := make([]float64, units)

		for j := 0; j < units; j++ {
			step.i[j] = sigmoid(pre[j])
			step.f[j] = sigmoid(pre[units+j])
			step.g[j] = math.Tanh(pre[2*units+j])
			step.o[j] = sigmoid(pre[3*units+j])

			step.c[j] = step.f[j]*cPrev[j] + step.i[j]*step.g[j]
			step.tanhC[j] = math.Tanh(step.c[j])
			h[j] = step.o[j] * step.tanhC[j]
		}

		step.h = mat.NewVecDense(units, h)
		steps[t] = step

		hPrev = step.h
		cPrev = step.c
	}

	return steps
}

// outputs returns the hidden state of every step, or only the last one.
func (l *LSTMLayer) outputs(steps []lstmStep) []*mat.VecDense {
	if !l.ReturnSequences {
		return []*mat.VecDense{steps[len(steps)-1].h}
	}

	out := make([]*mat.VecDense, len(steps))
	for t := range steps {
		out[t] = steps[t].h
	}

	return out
}

// backward accumulates parameter gradients and returns the gradient with respect to each input.
// dH[t] is the loss gradient flowing into h_t from above and may be nil.
func (l *LSTMLayer) backward(steps []lstmStep, dH []*mat.VecDense) []*mat.VecDense {
	units := l.Units
	dX := make([]*mat.VecDense, len(steps))

	dhNext := mat.NewVecDense(units, nil)
	dcNext := make([]float64, units)
	dz := mat.NewVecDense(4*units, nil)

	for t := len(steps) - 1; t >= 0; t-- {
		step := steps[t]
		dzData := dz.RawVector().Data
		dhData := dhNext.RawVector().Data

		var above []float64
		if dH[t] != nil {
			above = dH[t].RawVector().Data
		}

		for j := 0; j < units; j++ {
			dh := dhData[j]
			if above != nil {
				dh += above[j]
			}

			do := dh * step.tanhC[j]
			dc := dh*step.o[j]*(1-step.tanhC[j]*step.tanhC[j]) + dcNext[j]

			di := dc * step.g[j]
			df := dc * step.cPrev[j]
			dg := dc * step.i[j]

			dcNext[j] = dc * step.f[j]

			dzData[j] = di * step.i[j] * (1 - step.i[j])
			dzData[units+j] = df * step.f[j] * (1 - step.f[j])
			dzData[2*units+j] = dg * (1 - step.g[j]*step.g[j])
			dzData[3*units+j] = do * step.o[j] * (1 - step.o[j])
		}

		l.gradKernel.RankOne(l.gradKernel, 1, step.x, dz)
		l.gradRecurrent.RankOne(l.gradRecurrent, 1, step.hPrev, dz)
		l.gradBias.AddVec(l.gradBias, dz)

		dx := mat.NewVecDense(l.InputDim, nil)
		dx.MulVec(l.Kernel, dz)
		dX[t] = dx

		next := mat.NewVecDense(units, nil)
		next.MulVec(l.Recurrent, dz)
		dhNext = next
	}

	return dX
}
