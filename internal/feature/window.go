package feature

import (
	"github.com/rxtech-lab/argo-forecast/internal/types"
	"github.com/rxtech-lab/argo-forecast/pkg/errors"
)

// DefaultWindowLength is the number of trailing closes fed to the forecaster.
const DefaultWindowLength = 60

// Window is one training sample: Length consecutive scaled closes and the scaled close that follows.
type Window struct {
	Input  []float64
	Target float64
}

// Dataset is the prepared input of the forecaster. Scaler is the single instance fitted on
// the whole close history and must be reused to invert predictions.
type Dataset struct {
	Symbol  string
	Length  int
	Scaler  *MinMaxScaler
	Scaled  []float64
	Windows []Window
	// Current holds the last Length scaled closes, the input of the next-day prediction.
	Current []float64
}

// Samples returns the number of windows.
func (d *Dataset) Samples() int {
	return len(d.Windows)
}

// BuildWindows slices scaled into overlapping windows. Window i covers scaled[i:i+length] and
// targets scaled[i+length], so a series of n values yields max(0, n-length) windows.
func BuildWindows(scaled []float64, length int) ([]Window, error) {
	if length <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidWindow, "window length must be positive, got %d", length)
	}

	count := len(scaled) - length
	if count <= 0 {
		return []Window{}, nil
	}

	windows := make([]Window, count)
	for i := range windows {
		input := make([]float64, length)
		copy(input, scaled[i:i+length])

		windows[i] = Window{Input: input, Target: scaled[i+length]}
	}

	return windows, nil
}

// Prepare extracts the closes of series, fits the scaler on all of them and builds the windows.
//
// A series shorter than length+1 yields a dataset with zero windows together with an
// InsufficientDataError, so callers can report the counts and stop before training.
func Prepare(series types.PriceSeries, length int) (*Dataset, error) {
	if length <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidWindow, "window length must be positive, got %d", length)
	}

	closes := series.Closes()

	dataset := &Dataset{
		Symbol:  series.Symbol,
		Length:  length,
		Scaler:  NewMinMaxScaler(),
		Windows: []Window{},
	}

	if len(closes) > 0 {
		scaled, err := dataset.Scaler.FitTransform(closes)
		if err != nil {
			return nil, err
		}

		dataset.Scaled = scaled
	}

	windows, err := BuildWindows(dataset.Scaled, length)
	if err != nil {
		return nil, err
	}

	dataset.Windows = windows

	if len(closes) >= length {
		dataset.Current = make([]float64, length)
		copy(dataset.Current, dataset.Scaled[len(closes)-length:])
	}

	if len(closes) < length+1 {
		return dataset, errors.NewInsufficientDataErrorf(length+1, len(closes), series.Symbol,
			"need at least %d closes to build a %d-day window, got %d", length+1, length, len(closes))
	}

	return dataset, nil
}
