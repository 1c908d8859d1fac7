package forecaster

import (
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// DenseLayer is a fully connected linear layer. Weights is inputDim x Units.
type DenseLayer struct {
	Units    int
	InputDim int

	Weights *mat.Dense
	Bias    *mat.VecDense

	gradWeights *mat.Dense
	gradBias    *mat.VecDense
}

// NewDenseLayer creates a layer with glorot uniform weights and a zero bias.
func NewDenseLayer(rng *rand.Rand, inputDim, units int) *DenseLayer {
	return &DenseLayer{
		Units:       units,
		InputDim:    inputDim,
		Weights:     glorotUniform(rng, inputDim, units, inputDim, units),
		Bias:        mat.NewVecDense(units, nil),
		gradWeights: mat.NewDense(inputDim, units, nil),
		gradBias:    mat.NewVecDense(units, nil),
	}
}

func (d *DenseLayer) params() []*param {
	return []*param{
		denseParam("kernel", d.Weights, d.gradWeights),
		vecParam("bias", d.Bias, d.gradBias),
	}
}

func (d *DenseLayer) forward(x *mat.VecDense) *mat.VecDense {
	y := mat.NewVecDense(d.Units, nil)
	y.MulVec(d.Weights.T(), x)
	y.AddVec(y, d.Bias)

	return y
}

// backward accumulates gradients for input x and output gradient dy and returns dL/dx.
func (d *DenseLayer) backward(x, dy *mat.VecDense) *mat.VecDense {
	d.gradWeights.RankOne(d.gradWeights, 1, x, dy)
	d.gradBias.AddVec(d.gradBias, dy)

	dx := mat.NewVecDense(d.InputDim, nil)
	dx.MulVec(d.Weights, dy)

	return dx
}
