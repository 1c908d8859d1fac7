// Package forecaster trains a two layer LSTM regressor on prepared close windows and
// predicts the next scaled close.
package forecaster

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/rxtech-lab/argo-forecast/internal/feature"
	"github.com/rxtech-lab/argo-forecast/internal/logger"
	"github.com/rxtech-lab/argo-forecast/pkg/errors"
)

// Config holds the fixed architecture and training schedule.
type Config struct {
	WindowLength int     `yaml:"window_length" json:"window_length" validate:"required,min=1" jsonschema:"title=Window Length,description=Number of trailing closes per sample,default=60"`
	Units        int     `yaml:"units" json:"units" validate:"required,min=1" jsonschema:"title=Units,description=Hidden units of each LSTM layer,default=50"`
	Epochs       int     `yaml:"epochs" json:"epochs" validate:"required,min=1" jsonschema:"title=Epochs,description=Passes over the training windows,default=20"`
	BatchSize    int     `yaml:"batch_size" json:"batch_size" validate:"required,min=1" jsonschema:"title=Batch Size,default=32"`
	LearningRate float64 `yaml:"learning_rate" json:"learning_rate" validate:"required,gt=0" jsonschema:"title=Learning Rate,description=Adam step size,default=0.001"`
	Seed         int64   `yaml:"seed" json:"seed" jsonschema:"title=Seed,description=Seed for weight initialisation and shuffling,default=42"`
}

// DefaultConfig returns LSTM(50) -> LSTM(50) -> Dense(1) trained for 20 epochs in batches of 32.
func DefaultConfig() Config {
	return Config{
		WindowLength: feature.DefaultWindowLength,
		Units:        50,
		Epochs:       20,
		BatchSize:    32,
		LearningRate: DefaultLearningRate,
		Seed:         42,
	}
}

// OnEpoch is called after each completed epoch.
type OnEpoch = func(epoch int, total int)

// TrainSummary describes a finished training run.
type TrainSummary struct {
	Epochs    int
	Samples   int
	Steps     int
	FinalLoss float64
	Duration  time.Duration
}

// Forecaster owns the network weights and the optimizer state for one run.
type Forecaster struct {
	config    Config
	network   *Network
	optimizer *Adam
	rng       *rand.Rand
	logger    *logger.Logger
	onEpoch   OnEpoch
	trained   bool
}

// NewForecaster validates config and initialises an untrained network.
func NewForecaster(config Config, log *logger.Logger, onEpoch OnEpoch) (*Forecaster, error) {
	if err := validator.New().Struct(config); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid forecaster configuration", err)
	}

	if log == nil {
		log = logger.NewNopLogger()
	}

	if onEpoch == nil {
		onEpoch = func(int, int) {}
	}

	rng := rand.New(rand.NewSource(config.Seed))

	return &Forecaster{
		config:    config,
		network:   NewNetwork(rng, config.Units),
		optimizer: NewAdam(config.LearningRate),
		rng:       rng,
		logger:    log,
		onEpoch:   onEpoch,
	}, nil
}

// Trained reports whether Train completed successfully.
func (f *Forecaster) Trained() bool {
	return f.trained
}

// Network exposes the underlying layers.
func (f *Forecaster) Network() *Network {
	return f.network
}

// Train fits the network on every window of dataset for the configured number of epochs,
// shuffling the windows at the start of each epoch. The context is checked between batches.
func (f *Forecaster) Train(ctx context.Context, dataset *feature.Dataset) (summary TrainSummary, err error) {
	if dataset == nil || dataset.Samples() == 0 {
		actual := 0
		symbol := ""

		if dataset != nil {
			actual = len(dataset.Scaled)
			symbol = dataset.Symbol
		}

		return summary, errors.NewInsufficientDataErrorf(f.config.WindowLength+1, actual, symbol,
			"no training windows: need at least %d closes, got %d", f.config.WindowLength+1, actual)
	}

	if dataset.Length != f.config.WindowLength {
		return summary, errors.Newf(errors.ErrCodeShapeMismatch,
			"dataset window length %d does not match configured %d", dataset.Length, f.config.WindowLength)
	}

	defer func() {
		if r := recover(); r != nil {
			f.trained = false
			err = errors.Newf(errors.ErrCodeTrainingFailed, "training aborted: %v", r)
		}
	}()

	started := time.Now()
	windows := make([]feature.Window, len(dataset.Windows))
	copy(windows, dataset.Windows)

	f.logger.Info("Training forecaster",
		zap.Int("samples", len(windows)),
		zap.Int("epochs", f.config.Epochs),
		zap.Int("batch_size", f.config.BatchSize),
		zap.Int("parameters", f.network.ParamCount()),
	)

	var epochLoss float64

	for epoch := 1; epoch <= f.config.Epochs; epoch++ {
		f.rng.Shuffle(len(windows), func(i, j int) {
			windows[i], windows[j] = windows[j], windows[i]
		})

		epochLoss = 0

		for start := 0; start < len(windows); start += f.config.BatchSize {
			if err := ctx.Err(); err != nil {
				return summary, err
			}

			end := min(start+f.config.BatchSize, len(windows))
			batch := windows[start:end]

			loss := f.network.TrainBatch(f.optimizer, batch)
			if math.IsNaN(loss) || math.IsInf(loss, 0) {
				return summary, errors.Newf(errors.ErrCodeTrainingFailed, "loss diverged in epoch %d", epoch)
			}

			epochLoss += loss * float64(len(batch))
		}

		epochLoss /= float64(len(windows))

		f.onEpoch(epoch, f.config.Epochs)
	}

	f.trained = true

	summary = TrainSummary{
		Epochs:    f.config.Epochs,
		Samples:   len(windows),
		Steps:     f.optimizer.Iterations(),
		FinalLoss: epochLoss,
		Duration:  time.Since(started),
	}

	f.logger.Info("Training completed", zap.Int("steps", summary.Steps), zap.Duration("duration", summary.Duration))

	return summary, nil
}

// PredictScaled returns the network output for window in scaled space.
func (f *Forecaster) PredictScaled(window []float64) (value float64, err error) {
	if !f.trained {
		return 0, errors.New(errors.ErrCodeModelNotTrained, "forecaster has not been trained")
	}

	if len(window) != f.config.WindowLength {
		return 0, errors.Newf(errors.ErrCodeShapeMismatch,
			"prediction window has %d values, expected %d", len(window), f.config.WindowLength)
	}

	defer func() {
		if r := recover(); r != nil {
			err = errors.Newf(errors.ErrCodePredictionFailed, "prediction aborted: %v", r)
		}
	}()

	value = f.network.Predict(window)
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, errors.New(errors.ErrCodePredictionFailed, "prediction is not a finite number")
	}

	return value, nil
}

// PredictNext predicts the close following dataset.Current and maps it back to price space
// with the scaler the dataset was prepared with.
func (f *Forecaster) PredictNext(dataset *feature.Dataset) (float64, error) {
	if dataset == nil || dataset.Scaler == nil || !dataset.Scaler.Fitted() {
		return 0, errors.New(errors.ErrCodeScalerNotFitted, "dataset has no fitted scaler")
	}

	scaled, err := f.PredictScaled(dataset.Current)
	if err != nil {
		return 0, err
	}

	price, err := dataset.Scaler.InverseValue(scaled)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodePredictionFailed, "failed to invert prediction", err)
	}

	f.logger.Debug("Predicted next close", zap.Float64("scaled", scaled), zap.Float64("price", price))

	return price, nil
}

func (s TrainSummary) String() string {
	return fmt.Sprintf("%d epochs over %d samples (%d steps) in %s", s.Epochs, s.Samples, s.Steps, s.Duration.Round(time.Millisecond))
}
