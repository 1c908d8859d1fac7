package provider

import (
	"context"
	"fmt"
	"strconv"
	"time"

	binance "github.com/adshao/go-binance/v2"

	"github.com/rxtech-lab/argo-forecast/internal/types"
)

// binancePageSize is the default number of klines Binance returns per request.
const binancePageSize = 500

// BinanceKlinesService is the chained kline request builder used by BinanceClient.
type BinanceKlinesService interface {
	Symbol(symbol string) BinanceKlinesService
	Interval(interval string) BinanceKlinesService
	StartTime(startTime int64) BinanceKlinesService
	EndTime(endTime int64) BinanceKlinesService
	Do(ctx context.Context) ([]*binance.Kline, error)
}

// BinanceAPIClient is the subset of the Binance client used by BinanceClient.
type BinanceAPIClient interface {
	NewKlinesService() BinanceKlinesService
}

type binanceRESTClient struct {
	client *binance.Client
}

func (c *binanceRESTClient) NewKlinesService() BinanceKlinesService {
	return &binanceKlinesService{service: c.client.NewKlinesService()}
}

type binanceKlinesService struct {
	service *binance.KlinesService
}

func (s *binanceKlinesService) Symbol(symbol string) BinanceKlinesService {
	s.service.Symbol(symbol)

	return s
}

func (s *binanceKlinesService) Interval(interval string) BinanceKlinesService {
	s.service.Interval(interval)

	return s
}

func (s *binanceKlinesService) StartTime(startTime int64) BinanceKlinesService {
	s.service.StartTime(startTime)

	return s
}

func (s *binanceKlinesService) EndTime(endTime int64) BinanceKlinesService {
	s.service.EndTime(endTime)

	return s
}

func (s *binanceKlinesService) Do(ctx context.Context) ([]*binance.Kline, error) {
	return s.service.Do(ctx)
}

type BinanceClient struct {
	apiClient BinanceAPIClient
}

// NewBinanceClient creates a client for the public Binance market data API. No key is needed.
func NewBinanceClient() (Provider, error) {
	return &BinanceClient{
		apiClient: &binanceRESTClient{client: binance.NewClient("", "")},
	}, nil
}

// NewBinanceClientWithAPI creates a BinanceClient around an existing API client.
func NewBinanceClientWithAPI(apiClient BinanceAPIClient) *BinanceClient {
	return &BinanceClient{
		apiClient: apiClient,
	}
}

func (c *BinanceClient) Name() string { return string(ProviderBinance) }

// FetchDaily implements Provider with paginated 1d klines.
func (c *BinanceClient) FetchDaily(ctx context.Context, symbol string, startDate time.Time, endDate time.Time) ([]types.PriceBar, error) {
	currentStartTime := types.TruncateToDay(startDate).UnixMilli()
	endTimeMillis := types.TruncateToDay(endDate).AddDate(0, 0, 1).UnixMilli() - 1

	var bars []types.PriceBar

	for {
		klines, err := c.apiClient.NewKlinesService().
			Symbol(symbol).
			Interval("1d").
			StartTime(currentStartTime).
			EndTime(endTimeMillis).
			Do(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch klines from Binance: %w", err)
		}

		page, err := klinesToBars(klines)
		if err != nil {
			return nil, err
		}

		bars = append(bars, page...)

		if len(klines) < binancePageSize {
			break
		}

		// continue after the close of the last kline to avoid duplicates
		currentStartTime = klines[len(klines)-1].CloseTime + 1
		if currentStartTime >= endTimeMillis {
			break
		}
	}

	return bars, nil
}

// klinesToBars converts Binance string encoded klines into bars.
func klinesToBars(klines []*binance.Kline) ([]types.PriceBar, error) {
	bars := make([]types.PriceBar, 0, len(klines))

	for _, k := range klines {
		values := make([]float64, 5)

		for i, raw := range []string{k.Open, k.High, k.Low, k.Close, k.Volume} {
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, fmt.Errorf("failed to parse kline value %q: %w", raw, err)
			}

			values[i] = v
		}

		bars = append(bars, types.PriceBar{
			Date:   types.TruncateToDay(time.UnixMilli(k.OpenTime).UTC()),
			Open:   values[0],
			High:   values[1],
			Low:    values[2],
			Close:  values[3],
			Volume: values[4],
		})
	}

	return bars, nil
}
