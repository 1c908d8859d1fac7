package writer

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rxtech-lab/argo-forecast/internal/types"
)

// RawColumns is the header row of a raw provider table. The feed orders Close before High, Low and Open.
var RawColumns = []string{"Price", "Close", "High", "Low", "Open", "Volume"}

// CSVWriter writes bars in the raw provider shape: a header row, a ticker row and an
// index-name row, followed by one row per trading day.
type CSVWriter struct {
	outputPath string
	symbol     string
	file       *os.File
	csv        *csv.Writer
}

// NewCSVWriter creates a writer producing the raw table for symbol at outputPath.
func NewCSVWriter(outputPath string, symbol string) MarketDataWriter {
	return &CSVWriter{
		outputPath: outputPath,
		symbol:     symbol,
	}
}

// Initialize creates the output file and writes the header and the two preamble rows.
func (w *CSVWriter) Initialize() error {
	if dir := filepath.Dir(w.outputPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	file, err := os.Create(w.outputPath)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", w.outputPath, err)
	}

	w.file = file
	w.csv = csv.NewWriter(file)

	preamble := [][]string{
		RawColumns,
		{"Ticker", w.symbol, w.symbol, w.symbol, w.symbol, w.symbol},
		{"Date", "", "", "", "", ""},
	}

	if err := w.csv.WriteAll(preamble); err != nil {
		return fmt.Errorf("failed to write preamble: %w", err)
	}

	return nil
}

// Write appends one bar in Date, Close, High, Low, Open, Volume order.
func (w *CSVWriter) Write(bar types.PriceBar) error {
	if w.csv == nil {
		return fmt.Errorf("writer not initialized")
	}

	record := []string{
		bar.Date.Format(types.DateLayout),
		formatFloat(bar.Close),
		formatFloat(bar.High),
		formatFloat(bar.Low),
		formatFloat(bar.Open),
		formatFloat(bar.Volume),
	}

	if err := w.csv.Write(record); err != nil {
		return fmt.Errorf("failed to write row: %w", err)
	}

	return nil
}

// Finalize flushes buffered rows to disk.
func (w *CSVWriter) Finalize() (string, error) {
	if w.csv == nil {
		return "", fmt.Errorf("writer not initialized")
	}

	w.csv.Flush()
	if err := w.csv.Error(); err != nil {
		return "", fmt.Errorf("failed to flush csv: %w", err)
	}

	return w.outputPath, nil
}

// Close closes the underlying file.
func (w *CSVWriter) Close() error {
	if w.file == nil {
		return nil
	}

	err := w.file.Close()
	w.file = nil
	w.csv = nil

	return err
}

// GetOutputPath returns the raw table path.
func (w *CSVWriter) GetOutputPath() string {
	return w.outputPath
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
