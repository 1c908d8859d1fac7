package mocks

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDataGenerator_Generate(t *testing.T) {
	gen := NewDataGenerator(42)
	config := DefaultConfig()
	config.Count = 100

	bars := gen.Generate(config)
	require.Len(t, bars, 100)

	for i, bar := range bars {
		assert.True(t, bar.IsFinite(), "bar %d not finite", i)
		assert.Greater(t, bar.Close, 0.0)
		assert.GreaterOrEqual(t, bar.High, bar.Low)
		assert.NotEqual(t, time.Saturday, bar.Date.Weekday())
		assert.NotEqual(t, time.Sunday, bar.Date.Weekday())

		if i > 0 {
			assert.True(t, bar.Date.After(bars[i-1].Date), "dates not increasing at %d", i)
		}
	}
}

func TestDataGenerator_Reproducibility(t *testing.T) {
	config := DefaultConfig()
	config.Count = 10

	first := NewDataGenerator(42).Generate(config)
	second := NewDataGenerator(42).Generate(config)
	other := NewDataGenerator(123).Generate(config)

	assert.Equal(t, first, second)
	assert.NotEqual(t, first[9].Close, other[9].Close)
}

func TestLinearBars(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := LinearBars(start, 100, 100, 199)

	require.Len(t, bars, 100)
	assert.Equal(t, 100.0, bars[0].Close)
	assert.InDelta(t, 199.0, bars[99].Close, 1e-9)
	assert.InDelta(t, 101.0, bars[1].Close, 1e-9)
	assert.Equal(t, start.AddDate(0, 0, 99), bars[99].Date)
}

func TestRawCSV(t *testing.T) {
	bars := LinearBars(time.Date(2024, 8, 12, 0, 0, 0, 0, time.UTC), 2, 10, 11)

	expected := "Price,Close,High,Low,Open,Volume\n" +
		"Ticker,HBL,HBL,HBL,HBL,HBL\n" +
		"Date,,,,,\n" +
		"2024-08-12,10,11,9,10,1000\n" +
		"2024-08-13,11,12,10,11,1000\n"

	assert.Equal(t, expected, RawCSV("HBL", bars))
}

func TestWriteRawCSV(t *testing.T) {
	bars := LinearBars(time.Date(2024, 8, 12, 0, 0, 0, 0, time.UTC), 5, 10, 14)
	path := filepath.Join(t.TempDir(), "raw.csv")

	require.NoError(t, WriteRawCSV(path, "HBL", bars))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, RawCSV("HBL", bars), string(content))
	assert.Len(t, strings.Split(strings.TrimSpace(string(content)), "\n"), 8)
}
