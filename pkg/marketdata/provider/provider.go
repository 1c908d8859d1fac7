package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/rxtech-lab/argo-forecast/internal/types"
)

// ProviderType defines the type of market data provider.
type ProviderType string

const (
	ProviderYahoo   ProviderType = "yahoo"
	ProviderPolygon ProviderType = "polygon"
	ProviderBinance ProviderType = "binance"
)

type Provider interface {
	// Name returns the provider identifier used in logs.
	Name() string
	// FetchDaily returns the daily bars of symbol for the closed interval [startDate, endDate],
	// ordered by date. An unknown symbol may surface either as an error or as an empty slice.
	// example:
	// FetchDaily(ctx, "HBL.KA", time.Date(2024, 8, 12, 0, 0, 0, 0, time.UTC), time.Date(2025, 8, 12, 0, 0, 0, 0, time.UTC))
	FetchDaily(ctx context.Context, symbol string, startDate time.Time, endDate time.Time) ([]types.PriceBar, error)
}

// NewMarketDataProvider creates a new market data provider based on the provider type.
// Polygon requires its API key as config; the other providers ignore config.
func NewMarketDataProvider(providerType ProviderType, config any) (Provider, error) {
	switch providerType {
	case ProviderYahoo:
		return NewYahooClient(""), nil
	case ProviderBinance:
		return NewBinanceClient()
	case ProviderPolygon:
		apiKey, ok := config.(string)
		if !ok {
			return nil, fmt.Errorf("polygon provider requires API key string config")
		}

		return NewPolygonClient(apiKey)
	default:
		return nil, fmt.Errorf("unsupported market data provider: %s", providerType)
	}
}
