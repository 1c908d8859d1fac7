// Package cleaner turns raw provider tables into validated price series.
//
// A raw table has a header of six positional columns, optional preamble rows
// (the provider emits a ticker row and an index-name row) and one row per
// trading day ordered Date, Close, High, Low, Open, Volume. Rows that fail
// date parsing or numeric coercion are dropped, never partially kept.
package cleaner

import (
	"encoding/csv"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rxtech-lab/argo-forecast/internal/types"
	"github.com/rxtech-lab/argo-forecast/pkg/errors"
)

// Columns is the canonical column order of raw and cleaned tables.
var Columns = []string{"Date", "Close", "High", "Low", "Open", "Volume"}

var dateLayouts = []string{
	types.DateLayout,
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02 15:04:05-07:00",
	"01/02/2006",
}

// CleanStats counts what happened to the rows of a raw table.
type CleanStats struct {
	// RawRows is the number of records after the header.
	RawRows int
	// Preamble is the number of leading Ticker and Date label rows discarded.
	Preamble int
	// Dropped is the number of rows rejected for a bad date, a missing field or a non-numeric value.
	Dropped int
	// Duplicates is the number of rows whose date was already seen.
	Duplicates int
	// Rows is the number of bars in the cleaned series.
	Rows int
}

// Labels of the rows the provider emits between the header and the first bar.
const (
	preambleTicker = "ticker"
	preambleDate   = "date"
)

// Clean reads a raw table and returns the cleaned series. A header or row with the wrong
// number of columns fails with ErrCodeInvalidColumns; malformed rows are counted and dropped.
func Clean(r io.Reader) (types.PriceSeries, CleanStats, error) {
	var stats CleanStats

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return types.PriceSeries{}, stats, errors.New(errors.ErrCodeInvalidColumns, "input has no header row")
	}

	if err != nil {
		return types.PriceSeries{}, stats, errors.Wrap(errors.ErrCodeCleaningFailed, "failed to read header", err)
	}

	if len(header) != len(Columns) {
		return types.PriceSeries{}, stats, errors.Newf(errors.ErrCodeInvalidColumns,
			"expected %d columns, got %d", len(Columns), len(header))
	}

	var series types.PriceSeries

	inPreamble := true

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}

		if err != nil {
			return types.PriceSeries{}, stats, errors.Wrapf(errors.ErrCodeCleaningFailed, err, "failed to read row %d", stats.RawRows+1)
		}

		stats.RawRows++

		if len(record) > len(Columns) {
			return types.PriceSeries{}, stats, errors.Newf(errors.ErrCodeInvalidColumns,
				"row %d has %d fields, expected %d", stats.RawRows, len(record), len(Columns))
		}

		date, dateOK := ParseDate(record[0])

		if inPreamble && !dateOK {
			label := strings.ToLower(strings.TrimSpace(record[0]))

			switch label {
			case preambleTicker:
				stats.Preamble++

				if len(record) > 1 {
					series.Symbol = strings.TrimSpace(record[1])
				}
			case preambleDate:
				stats.Preamble++
			default:
				stats.Dropped++
			}

			continue
		}

		inPreamble = false

		if !dateOK || len(record) < len(Columns) {
			stats.Dropped++

			continue
		}

		bar, ok := parseBar(date, record)
		if !ok {
			stats.Dropped++

			continue
		}

		series.Bars = append(series.Bars, bar)
	}

	stats.Duplicates = sortAndDedupe(&series)
	stats.Rows = series.Len()

	return series, stats, nil
}

// CleanBars applies the series invariants to already typed bars: non-finite bars are dropped,
// dates are normalised, sorted, and duplicates keep their first occurrence.
func CleanBars(symbol string, bars []types.PriceBar) (types.PriceSeries, CleanStats) {
	stats := CleanStats{RawRows: len(bars)}
	series := types.PriceSeries{Symbol: symbol}

	for _, bar := range bars {
		if !bar.IsFinite() || bar.Date.IsZero() {
			stats.Dropped++

			continue
		}

		bar.Date = types.TruncateToDay(bar.Date)
		series.Bars = append(series.Bars, bar)
	}

	stats.Duplicates = sortAndDedupe(&series)
	stats.Rows = series.Len()

	return series, stats
}

// ParseDate parses a calendar date in any of the accepted layouts and returns it at midnight UTC.
func ParseDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return types.TruncateToDay(t), true
		}
	}

	return time.Time{}, false
}

// parseBar coerces the positional Close, High, Low, Open, Volume fields.
func parseBar(date time.Time, record []string) (types.PriceBar, bool) {
	values := make([]float64, len(Columns)-1)

	for i := range values {
		v, err := strconv.ParseFloat(strings.TrimSpace(record[i+1]), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return types.PriceBar{}, false
		}

		values[i] = v
	}

	return types.PriceBar{
		Date:   date,
		Close:  values[0],
		High:   values[1],
		Low:    values[2],
		Open:   values[3],
		Volume: values[4],
	}, true
}

func sortAndDedupe(series *types.PriceSeries) int {
	sort.SliceStable(series.Bars, func(i, j int) bool {
		return series.Bars[i].Date.Before(series.Bars[j].Date)
	})

	duplicates := 0
	bars := series.Bars[:0]

	for _, bar := range series.Bars {
		if len(bars) > 0 && bar.Date.Equal(bars[len(bars)-1].Date) {
			duplicates++

			continue
		}

		bars = append(bars, bar)
	}

	series.Bars = bars

	return duplicates
}
