package forecaster

import (
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/rxtech-lab/argo-forecast/internal/feature"
)

// Network is the fixed regressor: LSTM(units, sequences) -> LSTM(units) -> Dense(1).
type Network struct {
	First  *LSTMLayer
	Second *LSTMLayer
	Output *DenseLayer

	parameters []*param
}

type networkCache struct {
	first  []lstmStep
	second []lstmStep
	last   *mat.VecDense
}

// NewNetwork initialises the layers from rng for univariate input.
func NewNetwork(rng *rand.Rand, units int) *Network {
	n := &Network{
		First:  NewLSTMLayer(rng, 1, units, true),
		Second: NewLSTMLayer(rng, units, units, false),
		Output: NewDenseLayer(rng, units, 1),
	}

	n.parameters = append(n.parameters, n.First.params()...)
	n.parameters = append(n.parameters, n.Second.params()...)
	n.parameters = append(n.parameters, n.Output.params()...)

	return n
}

// params returns the same param handles on every call; the optimizer keys its moments by them.
func (n *Network) params() []*param {
	return n.parameters
}

// ParamCount returns the number of trainable weights.
func (n *Network) ParamCount() int {
	count := 0
	for _, p := range n.params() {
		count += len(p.value)
	}

	return count
}

func (n *Network) forward(input []float64) (float64, networkCache) {
	xs := make([]*mat.VecDense, len(input))
	for t, v := range input {
		xs[t] = mat.NewVecDense(1, []float64{v})
	}

	first := n.First.forward(xs)
	second := n.Second.forward(n.First.outputs(first))
	last := n.Second.outputs(second)[0]
	y := n.Output.forward(last)

	return y.AtVec(0), networkCache{first: first, second: second, last: last}
}

func (n *Network) backward(cache networkCache, dy float64) {
	dLast := n.Output.backward(cache.last, mat.NewVecDense(1, []float64{dy}))

	dSecond := make([]*mat.VecDense, len(cache.second))
	dSecond[len(dSecond)-1] = dLast

	dFirst := n.Second.backward(cache.second, dSecond)
	n.First.backward(cache.first, dFirst)
}

// Predict runs one window through the network.
func (n *Network) Predict(input []float64) float64 {
	y, _ := n.forward(input)

	return y
}

// lossAndGrad sets the gradients of the batch mean squared error and returns the loss.
func (n *Network) lossAndGrad(batch []feature.Window) float64 {
	params := n.params()
	for _, p := range params {
		p.zeroGrad()
	}

	size := float64(len(batch))
	loss := 0.0

	for _, w := range batch {
		y, cache := n.forward(w.Input)
		diff := y - w.Target
		loss += diff * diff

		n.backward(cache, 2*diff/size)
	}

	return loss / size
}

// TrainBatch takes one optimizer step on batch and returns its loss before the step.
func (n *Network) TrainBatch(optimizer *Adam, batch []feature.Window) float64 {
	loss := n.lossAndGrad(batch)
	optimizer.Step(n.params())

	return loss
}
