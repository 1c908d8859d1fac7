package provider

import (
	"context"
	"fmt"
	"time"

	polygon "github.com/polygon-io/client-go/rest"
	"github.com/polygon-io/client-go/rest/models"

	"github.com/rxtech-lab/argo-forecast/internal/types"
)

// PolygonAggsIterator is the subset of the polygon aggregates iterator used by PolygonClient.
type PolygonAggsIterator interface {
	Next() bool
	Item() models.Agg
	Err() error
}

// PolygonAPIClient is the subset of the polygon REST client used by PolygonClient.
type PolygonAPIClient interface {
	ListAggs(ctx context.Context, params *models.ListAggsParams, options ...models.RequestOption) PolygonAggsIterator
}

type polygonRESTClient struct {
	client *polygon.Client
}

func (c *polygonRESTClient) ListAggs(ctx context.Context, params *models.ListAggsParams, options ...models.RequestOption) PolygonAggsIterator {
	return c.client.ListAggs(ctx, params, options...)
}

type PolygonClient struct {
	apiClient PolygonAPIClient
}

func NewPolygonClient(apiKey string) (Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("apiKey is required")
	}

	return &PolygonClient{
		apiClient: &polygonRESTClient{client: polygon.New(apiKey)},
	}, nil
}

// NewPolygonClientWithAPI creates a PolygonClient around an existing API client.
func NewPolygonClientWithAPI(apiClient PolygonAPIClient) *PolygonClient {
	return &PolygonClient{
		apiClient: apiClient,
	}
}

func (c *PolygonClient) Name() string { return string(ProviderPolygon) }

// FetchDaily implements Provider using one-day aggregates.
func (c *PolygonClient) FetchDaily(ctx context.Context, symbol string, startDate time.Time, endDate time.Time) ([]types.PriceBar, error) {
	//nolint:exhaustruct // third-party struct with many optional fields
	params := models.ListAggsParams{
		Ticker:     symbol,
		Multiplier: 1,
		Timespan:   models.Day,
		From:       models.Millis(types.TruncateToDay(startDate)),
		To:         models.Millis(types.TruncateToDay(endDate)),
	}.WithLimit(50000).WithOrder(models.Asc)

	iter := c.apiClient.ListAggs(ctx, params)

	var bars []types.PriceBar

	for iter.Next() {
		agg := iter.Item()
		bars = append(bars, types.PriceBar{
			Date:   types.TruncateToDay(time.Time(agg.Timestamp)),
			Open:   agg.Open,
			High:   agg.High,
			Low:    agg.Low,
			Close:  agg.Close,
			Volume: agg.Volume,
		})
	}

	if iter.Err() != nil {
		return nil, fmt.Errorf("error iterating polygon aggregates: %w", iter.Err())
	}

	return bars, nil
}
