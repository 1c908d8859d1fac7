package forecaster

import (
	"context"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"gonum.org/v1/gonum/mat"

	"github.com/rxtech-lab/argo-forecast/internal/feature"
	"github.com/rxtech-lab/argo-forecast/internal/types"
	"github.com/rxtech-lab/argo-forecast/mocks"
	"github.com/rxtech-lab/argo-forecast/pkg/errors"
)

type ForecasterTestSuite struct {
	suite.Suite
}

func TestForecasterSuite(t *testing.T) {
	suite.Run(t, new(ForecasterTestSuite))
}

func smallConfig() Config {
	return Config{
		WindowLength: 8,
		Units:        4,
		Epochs:       30,
		BatchSize:    8,
		LearningRate: 0.01,
		Seed:         7,
	}
}

func sineDataset(t *testing.T, count, length int) *feature.Dataset {
	bars := make([]types.PriceBar, count)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := range bars {
		bars[i] = types.PriceBar{Date: start.AddDate(0, 0, i), Close: 100 + 10*math.Sin(float64(i)/4)}
	}

	dataset, err := feature.Prepare(types.PriceSeries{Symbol: "SIN", Bars: bars}, length)
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}

	return dataset
}

func (suite *ForecasterTestSuite) TestGradientMatchesFiniteDifferences() {
	rng := rand.New(rand.NewSource(3))
	network := NewNetwork(rng, 3)

	batch := []feature.Window{
		{Input: []float64{0.1, 0.4, 0.35, 0.8, 0.6}, Target: 0.7},
		{Input: []float64{0.9, 0.2, 0.5, 0.3, 0.1}, Target: 0.2},
		{Input: []float64{0.0, 0.5, 1.0, 0.5, 0.0}, Target: 0.4},
	}

	network.lossAndGrad(batch)

	analytic := make([][]float64, len(network.params()))
	for i, p := range network.params() {
		analytic[i] = append([]float64(nil), p.grad...)
	}

	const eps = 1e-6

	for i, p := range network.params() {
		for k := range p.value {
			original := p.value[k]

			p.value[k] = original + eps
			plus := network.lossAndGrad(batch)

			p.value[k] = original - eps
			minus := network.lossAndGrad(batch)

			p.value[k] = original

			numeric := (plus - minus) / (2 * eps)
			diff := math.Abs(numeric - analytic[i][k])
			tolerance := 1e-7 + 1e-4*(math.Abs(numeric)+math.Abs(analytic[i][k]))

			suite.LessOrEqual(diff, tolerance, "param %s[%d]: numeric %g analytic %g", p.name, k, numeric, analytic[i][k])
		}
	}
}

func (suite *ForecasterTestSuite) TestTrainingReducesLoss() {
	dataset := sineDataset(suite.T(), 120, 8)
	config := smallConfig()

	untrained, err := NewForecaster(config, nil, nil)
	suite.Require().NoError(err)
	initialLoss := untrained.Network().lossAndGrad(dataset.Windows)

	var epochs []int

	f, err := NewForecaster(config, nil, func(epoch, total int) {
		suite.Equal(config.Epochs, total)
		epochs = append(epochs, epoch)
	})
	suite.Require().NoError(err)

	summary, err := f.Train(context.Background(), dataset)
	suite.Require().NoError(err)
	suite.True(f.Trained())

	suite.Len(epochs, config.Epochs)
	suite.Equal(config.Epochs, epochs[len(epochs)-1])
	suite.Equal(dataset.Samples(), summary.Samples)
	suite.Equal(config.Epochs*int(math.Ceil(float64(dataset.Samples())/float64(config.BatchSize))), summary.Steps)

	finalLoss := f.Network().lossAndGrad(dataset.Windows)
	suite.Less(finalLoss, initialLoss)
}

func (suite *ForecasterTestSuite) TestTrainingIsReproducible() {
	dataset := sineDataset(suite.T(), 60, 8)
	config := smallConfig()
	config.Epochs = 3

	predict := func() float64 {
		f, err := NewForecaster(config, nil, nil)
		suite.Require().NoError(err)

		_, err = f.Train(context.Background(), dataset)
		suite.Require().NoError(err)

		price, err := f.PredictNext(dataset)
		suite.Require().NoError(err)

		return price
	}

	suite.Equal(predict(), predict())
}

func (suite *ForecasterTestSuite) TestPredictNextUsesDatasetScaler() {
	dataset := sineDataset(suite.T(), 80, 8)

	f, err := NewForecaster(smallConfig(), nil, nil)
	suite.Require().NoError(err)

	_, err = f.Train(context.Background(), dataset)
	suite.Require().NoError(err)

	scaled, err := f.PredictScaled(dataset.Current)
	suite.Require().NoError(err)

	price, err := f.PredictNext(dataset)
	suite.Require().NoError(err)
	suite.InDelta(dataset.Scaler.Min+scaled*(dataset.Scaler.Max-dataset.Scaler.Min), price, 1e-9)
}

func (suite *ForecasterTestSuite) TestPredictBeforeTraining() {
	dataset := sineDataset(suite.T(), 40, 8)

	f, err := NewForecaster(smallConfig(), nil, nil)
	suite.Require().NoError(err)

	_, err = f.PredictNext(dataset)
	suite.True(errors.HasCode(err, errors.ErrCodeModelNotTrained))
}

func (suite *ForecasterTestSuite) TestTrainWithoutWindows() {
	f, err := NewForecaster(smallConfig(), nil, nil)
	suite.Require().NoError(err)

	dataset, prepErr := feature.Prepare(types.PriceSeries{
		Bars: mocks.LinearBars(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 5, 1, 5),
	}, 8)
	suite.Require().Error(prepErr)

	_, err = f.Train(context.Background(), dataset)
	suite.True(errors.IsInsufficientDataError(err))
	suite.False(f.Trained())

	_, err = f.Train(context.Background(), nil)
	suite.True(errors.IsInsufficientDataError(err))
}

func (suite *ForecasterTestSuite) TestShapeMismatch() {
	dataset := sineDataset(suite.T(), 40, 6)

	f, err := NewForecaster(smallConfig(), nil, nil)
	suite.Require().NoError(err)

	_, err = f.Train(context.Background(), dataset)
	suite.True(errors.HasCode(err, errors.ErrCodeShapeMismatch))

	matching := sineDataset(suite.T(), 40, 8)
	_, err = f.Train(context.Background(), matching)
	suite.Require().NoError(err)

	_, err = f.PredictScaled([]float64{0.1, 0.2})
	suite.True(errors.HasCode(err, errors.ErrCodeShapeMismatch))
}

func (suite *ForecasterTestSuite) TestTrainStopsOnCancelledContext() {
	dataset := sineDataset(suite.T(), 40, 8)

	f, err := NewForecaster(smallConfig(), nil, nil)
	suite.Require().NoError(err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = f.Train(ctx, dataset)
	suite.ErrorIs(err, context.Canceled)
	suite.False(f.Trained())
}

func (suite *ForecasterTestSuite) TestInvalidConfig() {
	testCases := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "zero units", mutate: func(c *Config) { c.Units = 0 }},
		{name: "zero epochs", mutate: func(c *Config) { c.Epochs = 0 }},
		{name: "zero batch", mutate: func(c *Config) { c.BatchSize = 0 }},
		{name: "negative learning rate", mutate: func(c *Config) { c.LearningRate = -0.1 }},
		{name: "zero window", mutate: func(c *Config) { c.WindowLength = 0 }},
	}

	for _, tc := range testCases {
		suite.Run(tc.name, func() {
			config := DefaultConfig()
			tc.mutate(&config)

			f, err := NewForecaster(config, nil, nil)
			suite.Nil(f)
			suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
		})
	}
}

func (suite *ForecasterTestSuite) TestInitialisation() {
	rng := rand.New(rand.NewSource(1))
	layer := NewLSTMLayer(rng, 1, 5, true)

	rows, cols := layer.Recurrent.Dims()
	suite.Equal(5, rows)
	suite.Equal(20, cols)

	var gram mat.Dense
	gram.Mul(layer.Recurrent, layer.Recurrent.T())

	for i := 0; i < rows; i++ {
		for j := 0; j < rows; j++ {
			expected := 0.0
			if i == j {
				expected = 1
			}

			suite.InDelta(expected, gram.At(i, j), 1e-9)
		}
	}

	for j := 0; j < 20; j++ {
		expected := 0.0
		if j >= 5 && j < 10 {
			expected = 1
		}

		suite.Equal(expected, layer.Bias.AtVec(j))
	}

	limit := math.Sqrt(6.0 / 21.0)
	for j := 0; j < 20; j++ {
		suite.LessOrEqual(math.Abs(layer.Kernel.At(0, j)), limit)
	}
}

func (suite *ForecasterTestSuite) TestAdamFirstStep() {
	value := mat.NewVecDense(2, []float64{1, -1})
	grad := mat.NewVecDense(2, []float64{0.5, -2})
	p := vecParam("w", value, grad)

	adam := NewAdam(0.1)
	adam.Step([]*param{p})

	// The first bias-corrected step moves each weight by lr against the gradient sign.
	suite.InDelta(0.9, value.AtVec(0), 1e-6)
	suite.InDelta(-0.9, value.AtVec(1), 1e-6)
	suite.Equal(1, adam.Iterations())
}
