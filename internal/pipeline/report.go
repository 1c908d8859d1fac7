package pipeline

import (
	"time"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/rxtech-lab/argo-forecast/internal/cleaner"
	"github.com/rxtech-lab/argo-forecast/internal/forecaster"
	"github.com/rxtech-lab/argo-forecast/internal/types"
	"github.com/rxtech-lab/argo-forecast/pkg/errors"
)

// Direction is the sign of the predicted move.
type Direction string

const (
	DirectionIncrease Direction = "INCREASE"
	DirectionDecrease Direction = "DECREASE"
)

// Outlook buckets the predicted percent change.
type Outlook string

const (
	OutlookStrongBullish Outlook = "STRONG BULLISH"
	OutlookBullish       Outlook = "BULLISH"
	OutlookBearish       Outlook = "BEARISH"
	OutlookStrongBearish Outlook = "STRONG BEARISH"
)

const (
	weeklySessions  = 7
	monthlySessions = 29
	levelSessions   = 5
)

// Report is the outcome of one forecasting run.
type Report struct {
	RunID       string
	Symbol      string
	FirstDate   time.Time
	LastDate    time.Time
	TradingDays int
	LatestClose float64
	Predicted   float64
	// Delta is Predicted - LatestClose.
	Delta float64
	// Percent is 100 * Delta / LatestClose.
	Percent   float64
	Direction Direction
	Outlook   Outlook

	// Change of the latest close against the close 7 and 29 sessions earlier, in percent.
	WeeklyChange  optional.Option[float64]
	MonthlyChange optional.Option[float64]
	SMA5          optional.Option[float64]
	SMA10         optional.Option[float64]
	SMA20         optional.Option[float64]
	// Support and Resistance are the lowest low and highest high of the last five sessions.
	Support    float64
	Resistance float64
	MeanClose  float64
	// Volatility is the sample standard deviation of daily close returns, in percent.
	Volatility float64

	Clean    cleaner.CleanStats
	Training forecaster.TrainSummary
}

// ClassifyDirection returns increase for a positive delta and decrease otherwise.
func ClassifyDirection(delta float64) Direction {
	if delta > 0 {
		return DirectionIncrease
	}

	return DirectionDecrease
}

// ClassifyOutlook buckets percent at the +2%, 0% and -2% boundaries.
func ClassifyOutlook(percent float64) Outlook {
	switch {
	case percent > 2:
		return OutlookStrongBullish
	case percent > 0:
		return OutlookBullish
	case percent > -2:
		return OutlookBearish
	default:
		return OutlookStrongBearish
	}
}

// BuildReport compares predicted with the latest close of series and adds summary statistics.
func BuildReport(series types.PriceSeries, predicted float64) (*Report, error) {
	first, ok := series.First()
	if !ok {
		return nil, errors.New(errors.ErrCodeInsufficientData, "cannot report on an empty series")
	}

	last, _ := series.Last()
	if last.Close == 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "latest close on %s is zero", last.Date.Format(types.DateLayout))
	}

	closes := series.Closes()
	delta := predicted - last.Close
	percent := 100 * delta / last.Close

	report := &Report{
		RunID:         uuid.New().String(),
		Symbol:        series.Symbol,
		FirstDate:     first.Date,
		LastDate:      last.Date,
		TradingDays:   series.Len(),
		LatestClose:   last.Close,
		Predicted:     predicted,
		Delta:         delta,
		Percent:       percent,
		Direction:     ClassifyDirection(delta),
		Outlook:       ClassifyOutlook(percent),
		WeeklyChange:  changeOver(closes, weeklySessions),
		MonthlyChange: changeOver(closes, monthlySessions),
		SMA5:          movingAverage(closes, 5),
		SMA10:         movingAverage(closes, 10),
		SMA20:         movingAverage(closes, 20),
		MeanClose:     stat.Mean(closes, nil),
		Volatility:    volatility(closes),
	}

	report.Support, report.Resistance = levels(series.Bars, levelSessions)

	return report, nil
}

// changeOver returns the percent change of the last close against the close sessions earlier.
func changeOver(closes []float64, sessions int) optional.Option[float64] {
	if len(closes) <= sessions {
		return optional.None[float64]()
	}

	base := closes[len(closes)-1-sessions]
	if base == 0 {
		return optional.None[float64]()
	}

	return optional.Some(100 * (closes[len(closes)-1] - base) / base)
}

func movingAverage(closes []float64, period int) optional.Option[float64] {
	if len(closes) < period {
		return optional.None[float64]()
	}

	return optional.Some(stat.Mean(closes[len(closes)-period:], nil))
}

func volatility(closes []float64) float64 {
	if len(closes) < 3 {
		return 0
	}

	returns := make([]float64, 0, len(closes)-1)

	for i := 1; i < len(closes); i++ {
		if closes[i-1] == 0 {
			continue
		}

		returns = append(returns, closes[i]/closes[i-1]-1)
	}

	if len(returns) < 2 {
		return 0
	}

	return 100 * stat.StdDev(returns, nil)
}

func levels(bars []types.PriceBar, sessions int) (support, resistance float64) {
	recent := bars[max(0, len(bars)-sessions):]

	lows := make([]float64, len(recent))
	highs := make([]float64, len(recent))

	for i, bar := range recent {
		lows[i] = bar.Low
		highs[i] = bar.High
	}

	return floats.Min(lows), floats.Max(highs)
}
