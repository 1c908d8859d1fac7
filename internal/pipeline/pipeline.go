// Package pipeline runs the forecasting stages in order: acquire, clean, prepare, train,
// predict and report. Every stage returns its error to Run, which logs it once and aborts.
package pipeline

import (
	"context"

	"github.com/moznion/go-optional"
	"go.uber.org/zap"

	"github.com/rxtech-lab/argo-forecast/internal/cleaner"
	"github.com/rxtech-lab/argo-forecast/internal/feature"
	"github.com/rxtech-lab/argo-forecast/internal/forecaster"
	"github.com/rxtech-lab/argo-forecast/internal/logger"
	"github.com/rxtech-lab/argo-forecast/internal/types"
	"github.com/rxtech-lab/argo-forecast/pkg/errors"
	"github.com/rxtech-lab/argo-forecast/pkg/marketdata"
	"github.com/rxtech-lab/argo-forecast/pkg/marketdata/provider"
)

// Stage names used in logs.
const (
	StageAcquire = "acquire"
	StageClean   = "clean"
	StagePrepare = "prepare"
	StageTrain   = "train"
	StagePredict = "predict"
	StageReport  = "report"
)

// Callbacks receive progress from the long running stages. Nil callbacks are ignored.
type Callbacks struct {
	OnAcquireProgress marketdata.OnAcquireProgress
	OnEpoch           forecaster.OnEpoch
}

// Pipeline wires the stages together for one configuration.
type Pipeline struct {
	config    Config
	logger    *logger.Logger
	cleaner   *cleaner.Cleaner
	callbacks Callbacks
	provider  provider.Provider
}

// NewPipeline validates config and creates a pipeline.
func NewPipeline(config Config, log *logger.Logger, callbacks Callbacks) (*Pipeline, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	if log == nil {
		log = logger.NewNopLogger()
	}

	return &Pipeline{
		config:    config,
		logger:    log,
		cleaner:   cleaner.NewCleaner(log),
		callbacks: callbacks,
	}, nil
}

// WithProvider makes Acquire use marketProvider instead of the configured provider.
func (p *Pipeline) WithProvider(marketProvider provider.Provider) *Pipeline {
	p.provider = marketProvider

	return p
}

// Config returns the pipeline configuration.
func (p *Pipeline) Config() Config {
	return p.config
}

// Acquire downloads the raw table for the first candidate symbol with data.
// None with a nil error means no candidate returned data.
func (p *Pipeline) Acquire(ctx context.Context) (optional.Option[marketdata.AcquireResult], error) {
	start, end, err := p.config.DateRange()
	if err != nil {
		return optional.None[marketdata.AcquireResult](), err
	}

	clientConfig := marketdata.ClientConfig{
		ProviderType:  marketdata.ProviderType(p.config.Provider),
		WriterType:    marketdata.WriterType(p.config.Writer),
		OutputPath:    p.config.RawPath,
		PolygonApiKey: p.config.PolygonApiKey,
	}

	var client *marketdata.Client
	if p.provider != nil {
		client, err = marketdata.NewClientWithProvider(clientConfig, p.provider, p.logger, p.callbacks.OnAcquireProgress)
	} else {
		client, err = marketdata.NewClient(clientConfig, p.logger, p.callbacks.OnAcquireProgress)
	}

	if err != nil {
		return optional.None[marketdata.AcquireResult](), err
	}

	return client.Acquire(ctx, marketdata.AcquireParams{
		Symbols:   p.config.Symbols,
		StartDate: start,
		EndDate:   end,
	})
}

// Clean cleans the raw table into the clean path. A missing raw table fails with
// ErrCodeFileNotFound.
func (p *Pipeline) Clean(ctx context.Context) (types.PriceSeries, cleaner.CleanStats, error) {
	return p.cleaner.CleanFile(ctx, p.config.RawPath, p.config.CleanPath)
}

// Run cleans the raw table, trains a fresh forecaster and predicts the next close.
// Insufficient history stops the run before any training happens.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	series, stats, err := p.Clean(ctx)
	if err != nil {
		return nil, p.abort(StageClean, err)
	}

	p.logger.Info("Data processed",
		zap.String("symbol", series.Symbol),
		zap.Int("trading_days", series.Len()),
		zap.String("clean_path", p.config.CleanPath),
	)

	return p.Forecast(ctx, series, stats)
}

// Forecast runs the stages after cleaning on an already clean series.
func (p *Pipeline) Forecast(ctx context.Context, series types.PriceSeries, stats cleaner.CleanStats) (*Report, error) {
	dataset, err := feature.Prepare(series, p.config.Model.WindowLength)
	if err != nil {
		return nil, p.abort(StagePrepare, err)
	}

	model, err := forecaster.NewForecaster(p.config.Model, p.logger, p.callbacks.OnEpoch)
	if err != nil {
		return nil, p.abort(StageTrain, err)
	}

	summary, err := model.Train(ctx, dataset)
	if err != nil {
		return nil, p.abort(StageTrain, err)
	}

	predicted, err := model.PredictNext(dataset)
	if err != nil {
		return nil, p.abort(StagePredict, err)
	}

	report, err := BuildReport(series, predicted)
	if err != nil {
		return nil, p.abort(StageReport, err)
	}

	report.Clean = stats
	report.Training = summary

	p.logger.Info("Prediction completed",
		zap.String("run_id", report.RunID),
		zap.Float64("latest_close", report.LatestClose),
		zap.Float64("predicted", report.Predicted),
		zap.String("direction", string(report.Direction)),
	)

	return report, nil
}

func (p *Pipeline) abort(stage string, err error) error {
	code := errors.GetCode(err)
	fields := []zap.Field{
		zap.String("stage", stage),
		zap.Int("code", int(code)),
		zap.String("category", code.Category()),
		zap.Error(err),
	}

	if insufficient, ok := errors.AsInsufficientDataError(err); ok {
		fields = append(fields, zap.Int("required", insufficient.Required), zap.Int("actual", insufficient.Actual))
	}

	p.logger.Error("Run aborted", fields...)

	return err
}
