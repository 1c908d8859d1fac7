package types

import (
	"fmt"
	"math"
	"time"
)

// DateLayout is the calendar date layout used in every persisted table.
const DateLayout = "2006-01-02"

// PriceBar is one trading day of OHLCV data. A bar is identified by its Date.
type PriceBar struct {
	// Date is the trading day, normalised to midnight UTC.
	Date   time.Time `json:"date" yaml:"date"`
	Open   float64   `json:"open" yaml:"open"`
	High   float64   `json:"high" yaml:"high"`
	Low    float64   `json:"low" yaml:"low"`
	Close  float64   `json:"close" yaml:"close"`
	Volume float64   `json:"volume" yaml:"volume"`
}

// IsFinite reports whether every numeric field of the bar is a finite number.
func (b PriceBar) IsFinite() bool {
	for _, v := range []float64{b.Open, b.High, b.Low, b.Close, b.Volume} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}

	return true
}

// TruncateToDay returns t as a UTC calendar date.
func TruncateToDay(t time.Time) time.Time {
	y, m, d := t.Date()

	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// PriceSeries is a date ordered sequence of bars for a single ticker.
type PriceSeries struct {
	Symbol string
	Bars   []PriceBar
}

// Len returns the number of bars in the series.
func (s PriceSeries) Len() int {
	return len(s.Bars)
}

// Closes returns the Close column as a new slice.
func (s PriceSeries) Closes() []float64 {
	closes := make([]float64, len(s.Bars))
	for i, bar := range s.Bars {
		closes[i] = bar.Close
	}

	return closes
}

// First returns the earliest bar. ok is false for an empty series.
func (s PriceSeries) First() (bar PriceBar, ok bool) {
	if len(s.Bars) == 0 {
		return PriceBar{}, false
	}

	return s.Bars[0], true
}

// Last returns the latest bar. ok is false for an empty series.
func (s PriceSeries) Last() (bar PriceBar, ok bool) {
	if len(s.Bars) == 0 {
		return PriceBar{}, false
	}

	return s.Bars[len(s.Bars)-1], true
}

// Validate checks the series invariants: strictly increasing dates and finite numeric fields.
func (s PriceSeries) Validate() error {
	for i, bar := range s.Bars {
		if !bar.IsFinite() {
			return fmt.Errorf("bar %d (%s) has a non-finite field", i, bar.Date.Format(DateLayout))
		}

		if i > 0 && !bar.Date.After(s.Bars[i-1].Date) {
			return fmt.Errorf("bar %d (%s) is not after %s", i, bar.Date.Format(DateLayout), s.Bars[i-1].Date.Format(DateLayout))
		}
	}

	return nil
}
