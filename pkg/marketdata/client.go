package marketdata

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/moznion/go-optional"
	"go.uber.org/zap"

	"github.com/rxtech-lab/argo-forecast/internal/logger"
	"github.com/rxtech-lab/argo-forecast/internal/types"
	"github.com/rxtech-lab/argo-forecast/pkg/errors"
	"github.com/rxtech-lab/argo-forecast/pkg/marketdata/provider"
	"github.com/rxtech-lab/argo-forecast/pkg/marketdata/writer"
)

// ProviderType defines the type of market data provider.
type ProviderType = provider.ProviderType

const (
	ProviderYahoo   = provider.ProviderYahoo
	ProviderPolygon = provider.ProviderPolygon
	ProviderBinance = provider.ProviderBinance
)

// WriterType defines the type of market data writer.
type WriterType string

const (
	// WriterCSV writes the raw provider shaped table consumed by the cleaner.
	WriterCSV WriterType = "csv"
	// WriterDuckDB exports the bars to parquet.
	WriterDuckDB WriterType = "duckdb"
)

// OnAcquireProgress is called after each candidate symbol has been tried.
type OnAcquireProgress = func(current float64, total float64, message string)

// ClientConfig holds the configuration for the market data client.
type ClientConfig struct {
	ProviderType  ProviderType `validate:"required,oneof=yahoo polygon binance"`
	WriterType    WriterType   `validate:"required,oneof=csv duckdb"`
	OutputPath    string       `validate:"required"`
	PolygonApiKey string       `validate:"required_if=ProviderType polygon"`
}

// AcquireParams holds the candidate symbols and the closed date interval to acquire.
type AcquireParams struct {
	Symbols   []string  `validate:"required,min=1,dive,required"`
	StartDate time.Time `validate:"required"`
	EndDate   time.Time `validate:"required,gtefield=StartDate"`
}

// AcquireResult describes the persisted table of the first candidate that returned data.
type AcquireResult struct {
	Symbol string
	Path   string
	Rows   int
	First  time.Time
	Last   time.Time
}

// Client acquires daily bars from a provider and persists them with a writer.
type Client struct {
	provider   provider.Provider
	config     ClientConfig
	validate   *validator.Validate
	logger     *logger.Logger
	onProgress OnAcquireProgress
	newWriter  func(symbol string) (writer.MarketDataWriter, error)
}

// NewClient creates a new market data client with the given configuration.
func NewClient(config ClientConfig, log *logger.Logger, onProgress OnAcquireProgress) (*Client, error) {
	validate := validator.New()
	if err := validate.Struct(config); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid client configuration", err)
	}

	var providerConfig any
	if config.ProviderType == ProviderPolygon {
		providerConfig = config.PolygonApiKey
	}

	marketProvider, err := provider.NewMarketDataProvider(config.ProviderType, providerConfig)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidProvider, "failed to create market data provider", err)
	}

	return newClient(config, marketProvider, validate, log, onProgress), nil
}

// NewClientWithProvider creates a client around an existing provider.
func NewClientWithProvider(config ClientConfig, marketProvider provider.Provider, log *logger.Logger, onProgress OnAcquireProgress) (*Client, error) {
	validate := validator.New()
	if err := validate.Struct(config); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid client configuration", err)
	}

	return newClient(config, marketProvider, validate, log, onProgress), nil
}

func newClient(config ClientConfig, marketProvider provider.Provider, validate *validator.Validate, log *logger.Logger, onProgress OnAcquireProgress) *Client {
	if log == nil {
		log = logger.NewNopLogger()
	}

	if onProgress == nil {
		onProgress = func(float64, float64, string) {}
	}

	client := &Client{
		provider:   marketProvider,
		config:     config,
		validate:   validate,
		logger:     log,
		onProgress: onProgress,
	}
	client.newWriter = client.setupWriter

	return client
}

// Acquire tries each candidate symbol in order and persists the first non-empty result.
// Per-candidate failures are logged and skipped. When no candidate returns data the result
// is None and the error is nil; only persistence failures are returned as errors.
func (c *Client) Acquire(ctx context.Context, params AcquireParams) (optional.Option[AcquireResult], error) {
	if err := c.validate.Struct(params); err != nil {
		return optional.None[AcquireResult](), errors.Wrap(errors.ErrCodeInvalidParameter, "invalid acquire parameters", err)
	}

	total := float64(len(params.Symbols))

	for i, symbol := range params.Symbols {
		if err := ctx.Err(); err != nil {
			return optional.None[AcquireResult](), err
		}

		c.logger.Info("Trying symbol",
			zap.String("symbol", symbol),
			zap.String("provider", c.provider.Name()),
			zap.Time("start", params.StartDate),
			zap.Time("end", params.EndDate),
		)

		bars, err := c.provider.FetchDaily(ctx, symbol, params.StartDate, params.EndDate)

		c.onProgress(float64(i+1), total, fmt.Sprintf("Trying %s", symbol))

		if err != nil {
			c.logger.Warn("Failed to fetch symbol", zap.String("symbol", symbol), zap.Error(err))

			continue
		}

		if len(bars) == 0 {
			c.logger.Warn("No data found for symbol", zap.String("symbol", symbol))

			continue
		}

		path, err := c.persist(symbol, bars)
		if err != nil {
			return optional.None[AcquireResult](), err
		}

		result := AcquireResult{
			Symbol: symbol,
			Path:   path,
			Rows:   len(bars),
			First:  bars[0].Date,
			Last:   bars[len(bars)-1].Date,
		}

		c.logger.Info("Found data for symbol",
			zap.String("symbol", symbol),
			zap.Int("rows", result.Rows),
			zap.String("path", path),
		)

		return optional.Some(result), nil
	}

	c.logger.Warn("Could not find data with any of the tried symbols", zap.Strings("symbols", params.Symbols))

	return optional.None[AcquireResult](), nil
}

// persist writes bars through a fresh writer. A partially written file is removed on failure.
func (c *Client) persist(symbol string, bars []types.PriceBar) (outputPath string, err error) {
	marketWriter, err := c.newWriter(symbol)
	if err != nil {
		return "", err
	}

	defer func() {
		if cerr := marketWriter.Close(); cerr != nil {
			c.logger.Warn("Failed to close writer", zap.Error(cerr))
		}

		if err != nil {
			_ = os.Remove(marketWriter.GetOutputPath())
		}
	}()

	if err = marketWriter.Initialize(); err != nil {
		return "", errors.Wrapf(errors.ErrCodeMarketDataWriteFailed, err, "failed to initialize writer at %s", marketWriter.GetOutputPath())
	}

	for _, bar := range bars {
		if err = marketWriter.Write(bar); err != nil {
			return "", errors.Wrap(errors.ErrCodeMarketDataWriteFailed, "failed to write bar", err)
		}
	}

	outputPath, err = marketWriter.Finalize()
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeMarketDataWriteFailed, "failed to finalize writer", err)
	}

	return outputPath, nil
}

// setupWriter initializes the appropriate market data writer based on configuration.
func (c *Client) setupWriter(symbol string) (writer.MarketDataWriter, error) {
	switch c.config.WriterType {
	case WriterCSV:
		return writer.NewCSVWriter(c.config.OutputPath, symbol), nil
	case WriterDuckDB:
		return writer.NewDuckDBWriter(c.config.OutputPath, symbol), nil
	default:
		return nil, errors.Newf(errors.ErrCodeInvalidConfiguration, "unsupported writer type: %s", c.config.WriterType)
	}
}
