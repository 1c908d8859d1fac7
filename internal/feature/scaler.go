package feature

import (
	"gonum.org/v1/gonum/floats"

	"github.com/rxtech-lab/argo-forecast/pkg/errors"
)

// MinMaxScaler maps values linearly into [0, 1] using the minimum and maximum seen at fit time.
// A constant series has a zero range; it is treated as a range of 1, so every value maps to
// 0 and inverts back to Min.
type MinMaxScaler struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	fitted bool
}

// NewMinMaxScaler returns an unfitted scaler.
func NewMinMaxScaler() *MinMaxScaler {
	return &MinMaxScaler{}
}

// Fit records the minimum and maximum of values. Refitting replaces the parameters.
func (s *MinMaxScaler) Fit(values []float64) error {
	if len(values) == 0 {
		return errors.New(errors.ErrCodeInvalidParameter, "cannot fit scaler on an empty series")
	}

	s.Min = floats.Min(values)
	s.Max = floats.Max(values)
	s.fitted = true

	return nil
}

// Fitted reports whether Fit has been called.
func (s *MinMaxScaler) Fitted() bool {
	return s.fitted
}

// Transform scales values into [0, 1] for values inside the fitted range.
func (s *MinMaxScaler) Transform(values []float64) ([]float64, error) {
	if !s.fitted {
		return nil, errors.New(errors.ErrCodeScalerNotFitted, "scaler is not fitted")
	}

	scaled := make([]float64, len(values))
	copy(scaled, values)
	floats.AddConst(-s.Min, scaled)
	floats.Scale(1/s.scale(), scaled)

	return scaled, nil
}

// FitTransform fits the scaler on values and returns them scaled.
func (s *MinMaxScaler) FitTransform(values []float64) ([]float64, error) {
	if err := s.Fit(values); err != nil {
		return nil, err
	}

	return s.Transform(values)
}

// InverseTransform maps scaled values back to price space.
func (s *MinMaxScaler) InverseTransform(scaled []float64) ([]float64, error) {
	if !s.fitted {
		return nil, errors.New(errors.ErrCodeScalerNotFitted, "scaler is not fitted")
	}

	values := make([]float64, len(scaled))
	copy(values, scaled)
	floats.Scale(s.scale(), values)
	floats.AddConst(s.Min, values)

	return values, nil
}

// InverseValue maps one scaled value back to price space.
func (s *MinMaxScaler) InverseValue(scaled float64) (float64, error) {
	values, err := s.InverseTransform([]float64{scaled})
	if err != nil {
		return 0, err
	}

	return values[0], nil
}

func (s *MinMaxScaler) scale() float64 {
	if s.Max == s.Min {
		return 1
	}

	return s.Max - s.Min
}
