package writer

import (
	"github.com/rxtech-lab/argo-forecast/internal/types"
)

// MarketDataWriter defines the interface for persisting the bars of one acquired ticker.
type MarketDataWriter interface {
	// Initialize sets up the writer, potentially creating tables or files.
	Initialize() error
	// Write persists a single daily bar.
	Write(bar types.PriceBar) error
	// Finalize completes the writing process (e.g., flushes buffers, exports files).
	Finalize() (outputPath string, err error)
	// Close releases any resources held by the writer.
	Close() error
	// GetOutputPath returns the configured output file path.
	GetOutputPath() string
}
