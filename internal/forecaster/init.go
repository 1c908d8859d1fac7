package forecaster

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// glorotUniform draws a rows x cols matrix from U(-limit, limit) with limit = sqrt(6 / (fanIn + fanOut)).
func glorotUniform(rng *rand.Rand, rows, cols, fanIn, fanOut int) *mat.Dense {
	limit := math.Sqrt(6 / float64(fanIn+fanOut))

	data := make([]float64, rows*cols)
	for i := range data {
		data[i] = (rng.Float64()*2 - 1) * limit
	}

	return mat.NewDense(rows, cols, data)
}

// orthogonal returns a rows x cols matrix with orthonormal rows (rows <= cols), built from the
// QR decomposition of a cols x rows standard normal matrix with the signs of diag(R) folded into Q.
func orthogonal(rng *rand.Rand, rows, cols int) *mat.Dense {
	data := make([]float64, cols*rows)
	for i := range data {
		data[i] = rng.NormFloat64()
	}

	a := mat.NewDense(cols, rows, data)

	var qr mat.QR
	qr.Factorize(a)

	var q, r mat.Dense
	qr.QTo(&q)
	qr.RTo(&r)

	out := mat.NewDense(rows, cols, nil)

	for j := 0; j < rows; j++ {
		sign := 1.0
		if r.At(j, j) < 0 {
			sign = -1.0
		}

		for i := 0; i < cols; i++ {
			out.Set(j, i, q.At(i, j)*sign)
		}
	}

	return out
}

func sigmoid(x float64) float64 {
	if x >= 0 {
		return 1 / (1 + math.Exp(-x))
	}

	e := math.Exp(x)

	return e / (1 + e)
}
