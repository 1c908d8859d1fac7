package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/rxtech-lab/argo-forecast/internal/types"
)

const defaultYahooBaseURL = "https://query1.finance.yahoo.com"

// YahooClient fetches daily bars from the Yahoo Finance chart API.
type YahooClient struct {
	client  *http.Client
	baseURL string
}

// NewYahooClient creates a Yahoo provider. An empty baseURL selects the public endpoint.
func NewYahooClient(baseURL string) *YahooClient {
	if baseURL == "" {
		baseURL = defaultYahooBaseURL
	}

	return &YahooClient{
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL: baseURL,
	}
}

func (c *YahooClient) Name() string { return string(ProviderYahoo) }

// yahooChart is the response structure of the chart endpoint. Quote values are pointers
// because the API reports holidays and halted sessions as null.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol    string `json:"symbol"`
				GMTOffset int64  `json:"gmtoffset"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// FetchDaily implements Provider.
func (c *YahooClient) FetchDaily(ctx context.Context, symbol string, startDate time.Time, endDate time.Time) ([]types.PriceBar, error) {
	query := url.Values{}
	query.Set("interval", "1d")
	query.Set("period1", strconv.FormatInt(types.TruncateToDay(startDate).Unix(), 10))
	// period2 is exclusive, extend by a day so the end date is included
	query.Set("period2", strconv.FormatInt(types.TruncateToDay(endDate).AddDate(0, 0, 1).Unix(), 10))
	query.Set("events", "history")

	u := fmt.Sprintf("%s/v8/finance/chart/%s?%s", c.baseURL, url.PathEscape(symbol), query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("yahoo request: %w", err)
	}

	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("yahoo fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("yahoo read body: %w", err)
	}

	var chart yahooChart
	if err := json.Unmarshal(body, &chart); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("yahoo: status %d", resp.StatusCode)
		}

		return nil, fmt.Errorf("yahoo decode: %w", err)
	}

	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo api error: %s: %s", chart.Chart.Error.Code, chart.Chart.Error.Description)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("yahoo: status %d", resp.StatusCode)
	}

	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, nil
	}

	result := chart.Chart.Result[0]
	quote := result.Indicators.Quote[0]
	bars := make([]types.PriceBar, 0, len(result.Timestamp))

	for i, ts := range result.Timestamp {
		open, okOpen := valueAt(quote.Open, i)
		high, okHigh := valueAt(quote.High, i)
		low, okLow := valueAt(quote.Low, i)
		closePrice, okClose := valueAt(quote.Close, i)

		if !okOpen || !okHigh || !okLow || !okClose {
			continue
		}

		volume, _ := valueAt(quote.Volume, i)

		// shift into exchange time before taking the calendar date
		date := types.TruncateToDay(time.Unix(ts+result.Meta.GMTOffset, 0).UTC())

		bars = append(bars, types.PriceBar{
			Date:   date,
			Open:   open,
			High:   high,
			Low:    low,
			Close:  closePrice,
			Volume: volume,
		})
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })

	return bars, nil
}

func valueAt(values []*float64, i int) (float64, bool) {
	if i >= len(values) || values[i] == nil {
		return 0, false
	}

	return *values[i], true
}
