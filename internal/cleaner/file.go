package cleaner

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/moznion/go-optional"
	"go.uber.org/zap"

	"github.com/rxtech-lab/argo-forecast/internal/logger"
	"github.com/rxtech-lab/argo-forecast/internal/types"
	"github.com/rxtech-lab/argo-forecast/pkg/errors"
	"github.com/rxtech-lab/argo-forecast/pkg/marketdata/reader"
)

// cleanDate renders a date as 2006-01-02 in cleaned tables.
type cleanDate struct {
	time.Time
}

func (d cleanDate) MarshalCSV() (string, error) {
	return d.Format(types.DateLayout), nil
}

func (d *cleanDate) UnmarshalCSV(value string) error {
	t, ok := ParseDate(value)
	if !ok {
		return errors.Newf(errors.ErrCodeCleaningFailed, "invalid date %q", value)
	}

	d.Time = t

	return nil
}

type cleanRecord struct {
	Date   cleanDate `csv:"Date"`
	Close  float64   `csv:"Close"`
	High   float64   `csv:"High"`
	Low    float64   `csv:"Low"`
	Open   float64   `csv:"Open"`
	Volume float64   `csv:"Volume"`
}

// Cleaner cleans raw tables from disk and persists the cleaned series.
type Cleaner struct {
	logger *logger.Logger
}

// NewCleaner creates a Cleaner. A nil logger discards logs.
func NewCleaner(log *logger.Logger) *Cleaner {
	if log == nil {
		log = logger.NewNopLogger()
	}

	return &Cleaner{logger: log}
}

// CleanFile cleans the raw table at inputPath and writes the result to outputPath.
// Parquet inputs produced by the DuckDB writer are detected by their magic bytes, whatever
// the file is named, and read through DuckDB. Nothing is written when the input is missing
// or malformed.
func (c *Cleaner) CleanFile(ctx context.Context, inputPath string, outputPath string) (types.PriceSeries, CleanStats, error) {
	if _, err := os.Stat(inputPath); err != nil {
		return types.PriceSeries{}, CleanStats{}, errors.Wrapf(errors.ErrCodeFileNotFound, err, "%s not found", inputPath)
	}

	var (
		series types.PriceSeries
		stats  CleanStats
	)

	parquet, err := isParquet(inputPath)
	if err != nil {
		return types.PriceSeries{}, CleanStats{}, err
	}

	if parquet {
		series, stats, err = c.cleanParquet(ctx, inputPath)
	} else {
		series, stats, err = c.cleanCSV(inputPath)
	}

	if err != nil {
		c.logger.Error("Failed to clean data", zap.String("input", inputPath), zap.Error(err))

		return types.PriceSeries{}, stats, err
	}

	if err := WriteCleaned(outputPath, series); err != nil {
		return types.PriceSeries{}, stats, err
	}

	c.logger.Info("Cleaned data",
		zap.String("input", inputPath),
		zap.String("output", outputPath),
		zap.Int("raw_rows", stats.RawRows),
		zap.Int("preamble", stats.Preamble),
		zap.Int("dropped", stats.Dropped),
		zap.Int("duplicates", stats.Duplicates),
		zap.Int("rows", stats.Rows),
	)

	return series, stats, nil
}

// parquetMagic opens every parquet file.
var parquetMagic = []byte("PAR1")

func isParquet(path string) (bool, error) {
	file, err := os.Open(path)
	if err != nil {
		return false, errors.Wrapf(errors.ErrCodeFileNotFound, err, "failed to open %s", path)
	}
	defer file.Close()

	head := make([]byte, len(parquetMagic))
	if _, err := io.ReadFull(file, head); err != nil {
		// shorter than the magic: not parquet, let the CSV path report it
		return false, nil
	}

	return bytes.Equal(head, parquetMagic), nil
}

func (c *Cleaner) cleanCSV(inputPath string) (types.PriceSeries, CleanStats, error) {
	file, err := os.Open(inputPath)
	if err != nil {
		return types.PriceSeries{}, CleanStats{}, errors.Wrapf(errors.ErrCodeFileNotFound, err, "failed to open %s", inputPath)
	}
	defer file.Close()

	return Clean(file)
}

func (c *Cleaner) cleanParquet(ctx context.Context, inputPath string) (types.PriceSeries, CleanStats, error) {
	parquetReader, err := reader.NewParquetReader(c.logger)
	if err != nil {
		return types.PriceSeries{}, CleanStats{}, err
	}
	defer parquetReader.Close()

	bars, err := parquetReader.Read(ctx, inputPath, optional.None[time.Time](), optional.None[time.Time]())
	if err != nil {
		return types.PriceSeries{}, CleanStats{}, err
	}

	series, stats := CleanBars("", bars)

	return series, stats, nil
}

// WriteCleaned persists series as a Date, Close, High, Low, Open, Volume table.
// A partially written file is removed.
func WriteCleaned(path string, series types.PriceSeries) (err error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.Wrap(errors.ErrCodeCleanWriteFailed, "failed to create output directory", err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeCleanWriteFailed, err, "failed to create %s", path)
	}

	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = errors.Wrap(errors.ErrCodeCleanWriteFailed, "failed to close cleaned file", cerr)
		}

		if err != nil {
			_ = os.Remove(path)
		}
	}()

	records := make([]*cleanRecord, len(series.Bars))
	for i, bar := range series.Bars {
		records[i] = &cleanRecord{
			Date:   cleanDate{bar.Date},
			Close:  bar.Close,
			High:   bar.High,
			Low:    bar.Low,
			Open:   bar.Open,
			Volume: bar.Volume,
		}
	}

	if err = gocsv.MarshalFile(&records, file); err != nil {
		return errors.Wrap(errors.ErrCodeCleanWriteFailed, "failed to write cleaned data", err)
	}

	return nil
}

// LoadCleaned reads a table written by WriteCleaned and checks the series invariants.
func LoadCleaned(path string) (types.PriceSeries, error) {
	file, err := os.Open(path)
	if err != nil {
		return types.PriceSeries{}, errors.Wrapf(errors.ErrCodeFileNotFound, err, "%s not found", path)
	}
	defer file.Close()

	var records []*cleanRecord
	if err := gocsv.UnmarshalFile(file, &records); err != nil {
		return types.PriceSeries{}, errors.Wrapf(errors.ErrCodeCleaningFailed, err, "failed to read cleaned data from %s", path)
	}

	series := types.PriceSeries{Bars: make([]types.PriceBar, len(records))}
	for i, record := range records {
		series.Bars[i] = types.PriceBar{
			Date:   record.Date.Time,
			Open:   record.Open,
			High:   record.High,
			Low:    record.Low,
			Close:  record.Close,
			Volume: record.Volume,
		}
	}

	if err := series.Validate(); err != nil {
		return types.PriceSeries{}, errors.Wrapf(errors.ErrCodeCleaningFailed, err, "cleaned data in %s is invalid", path)
	}

	return series, nil
}
