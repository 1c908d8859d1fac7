package forecaster

import "gonum.org/v1/gonum/mat"

// param aliases the backing storage of a weight matrix or vector and of its gradient,
// so the optimizer can update every layer through flat slices.
type param struct {
	name  string
	value []float64
	grad  []float64
}

func denseParam(name string, value, grad *mat.Dense) *param {
	return &param{name: name, value: value.RawMatrix().Data, grad: grad.RawMatrix().Data}
}

func vecParam(name string, value, grad *mat.VecDense) *param {
	return &param{name: name, value: value.RawVector().Data, grad: grad.RawVector().Data}
}

func (p *param) zeroGrad() {
	for i := range p.grad {
		p.grad[i] = 0
	}
}
