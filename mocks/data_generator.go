package mocks

import (
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/rxtech-lab/argo-forecast/internal/types"
	"github.com/rxtech-lab/argo-forecast/pkg/marketdata/writer"
)

// DataGenerator generates realistic daily price bars for testing.
type DataGenerator struct {
	rng *rand.Rand
}

// NewDataGenerator creates a new DataGenerator with the given seed.
// Use a fixed seed for reproducible results in tests.
func NewDataGenerator(seed int64) *DataGenerator {
	return &DataGenerator{
		rng: rand.New(rand.NewSource(seed)),
	}
}

// GeneratorConfig configures how bars are generated.
type GeneratorConfig struct {
	// Symbol is the ticker written into raw tables
	Symbol string
	// StartDate is the first trading day
	StartDate time.Time
	// Count is the number of trading days to generate
	Count int
	// InitialPrice is the starting close
	InitialPrice float64
	// Volatility controls daily movement (0.01 = 1% typical daily move)
	Volatility float64
	// Trend is the total drift across the series (-0.5 to 0.5 for bearish to bullish)
	Trend float64
	// VolumeBase is the average volume per day
	VolumeBase float64
	// VolumeVariance is the variance in volume (0.0 to 1.0)
	VolumeVariance float64
	// SkipWeekends leaves Saturdays and Sundays out of the calendar
	SkipWeekends bool
}

// DefaultConfig returns one year of weekday bars around 150.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		Symbol:         "HBL.KA",
		StartDate:      time.Date(2024, 8, 12, 0, 0, 0, 0, time.UTC),
		Count:          252,
		InitialPrice:   150.0,
		Volatility:     0.015,
		Trend:          0.1,
		VolumeBase:     1_000_000,
		VolumeVariance: 0.3,
		SkipWeekends:   true,
	}
}

// Generate creates daily bars following a geometric Brownian motion.
func (g *DataGenerator) Generate(config GeneratorConfig) []types.PriceBar {
	bars := make([]types.PriceBar, config.Count)
	currentPrice := config.InitialPrice
	dates := tradingDays(config.StartDate, config.Count, config.SkipWeekends)

	for i := 0; i < config.Count; i++ {
		open := currentPrice

		// Box-Muller
		u1 := 1 - g.rng.Float64()
		u2 := g.rng.Float64()
		z := math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)

		drift := config.Trend / float64(config.Count)

		closePrice := open * (1 + config.Volatility*z + drift)
		if closePrice <= 0 {
			closePrice = open * 0.99
		}

		highExtension := math.Abs(g.rng.Float64() * config.Volatility * open * 0.5)
		lowExtension := math.Abs(g.rng.Float64() * config.Volatility * open * 0.5)

		high := math.Max(open, closePrice) + highExtension
		low := math.Min(open, closePrice) - lowExtension
		if low <= 0 {
			low = math.Min(open, closePrice) * 0.99
		}

		volume := config.VolumeBase * (1.0 + (g.rng.Float64()*2-1)*config.VolumeVariance)
		if volume < 0 {
			volume = config.VolumeBase * 0.1
		}

		bars[i] = types.PriceBar{
			Date:   dates[i],
			Open:   roundToDecimals(open, 4),
			High:   roundToDecimals(high, 4),
			Low:    roundToDecimals(low, 4),
			Close:  roundToDecimals(closePrice, 4),
			Volume: math.Round(volume),
		}

		currentPrice = closePrice
	}

	return bars
}

// LinearBars returns count consecutive calendar days whose closes ramp evenly from first to last.
func LinearBars(start time.Time, count int, first, last float64) []types.PriceBar {
	bars := make([]types.PriceBar, count)
	dates := tradingDays(start, count, false)

	step := 0.0
	if count > 1 {
		step = (last - first) / float64(count-1)
	}

	for i := range bars {
		c := first + step*float64(i)
		bars[i] = types.PriceBar{
			Date:   dates[i],
			Open:   c,
			High:   c + 1,
			Low:    c - 1,
			Close:  c,
			Volume: 1000,
		}
	}

	return bars
}

// RawCSV renders bars in the raw provider shape: header, ticker row, index-name row, data.
func RawCSV(symbol string, bars []types.PriceBar) string {
	var b strings.Builder

	b.WriteString(strings.Join(writer.RawColumns, ","))
	b.WriteString("\n")
	fmt.Fprintf(&b, "Ticker,%s,%s,%s,%s,%s\n", symbol, symbol, symbol, symbol, symbol)
	b.WriteString("Date,,,,,\n")

	for _, bar := range bars {
		fmt.Fprintf(&b, "%s,%s,%s,%s,%s,%s\n",
			bar.Date.Format(types.DateLayout),
			formatFloat(bar.Close),
			formatFloat(bar.High),
			formatFloat(bar.Low),
			formatFloat(bar.Open),
			formatFloat(bar.Volume),
		)
	}

	return b.String()
}

// WriteRawCSV persists bars with the production CSV writer.
func WriteRawCSV(path string, symbol string, bars []types.PriceBar) error {
	w := writer.NewCSVWriter(path, symbol)
	defer w.Close()

	if err := w.Initialize(); err != nil {
		return err
	}

	for _, bar := range bars {
		if err := w.Write(bar); err != nil {
			return err
		}
	}

	_, err := w.Finalize()

	return err
}

func tradingDays(start time.Time, count int, skipWeekends bool) []time.Time {
	dates := make([]time.Time, 0, count)
	day := types.TruncateToDay(start)

	for len(dates) < count {
		if !skipWeekends || (day.Weekday() != time.Saturday && day.Weekday() != time.Sunday) {
			dates = append(dates, day)
		}

		day = day.AddDate(0, 0, 1)
	}

	return dates
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// roundToDecimals rounds a float64 to the specified number of decimal places.
func roundToDecimals(val float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))
	return math.Round(val*pow) / pow
}
