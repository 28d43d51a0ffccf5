package collector

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"ETFScope/internal/model"
)

// RESTFetcher implements Fetcher against a JSON bars API:
//
//	GET {base}/api/v1/bars?symbol=SPY&range=1y&interval=1d
//
// answering with an array of {"timestamp": unix, "close": price}.
type RESTFetcher struct {
	Client *resty.Client
}

// NewRESTFetcher creates a fetcher with optional bearer key and proxy.
func NewRESTFetcher(baseURL, apiKey, proxyURL string, timeout time.Duration) *RESTFetcher {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	if apiKey != "" {
		client.SetAuthToken(apiKey)
	}
	if proxyURL != "" {
		client.SetProxy(proxyURL)
	}
	return &RESTFetcher{Client: client}
}

func (f *RESTFetcher) Name() string { return "rest" }

// restBar is the expected JSON shape from the bars API.
type restBar struct {
	Timestamp int64   `json:"timestamp"`
	Close     float64 `json:"close"`
}

func (f *RESTFetcher) FetchSeries(ctx context.Context, symbol string, lookback model.Lookback) (*model.PriceSeries, error) {
	var bars []restBar
	resp, err := f.Client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"symbol":   symbol,
			"range":    string(lookback),
			"interval": lookback.Interval(),
		}).
		SetResult(&bars).
		Get("/api/v1/bars")
	if err != nil {
		return nil, fmt.Errorf("fetch bars: %w", err)
	}

	series := &model.PriceSeries{Symbol: symbol, Lookback: lookback, FetchedAt: time.Now()}
	if resp.StatusCode() == http.StatusNotFound {
		return series, nil
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("fetch bars: status %d, body: %s", resp.StatusCode(), preview(resp.String()))
	}

	pts := make([]model.PricePoint, 0, len(bars))
	for _, b := range bars {
		if b.Close <= 0 {
			continue
		}
		pts = append(pts, model.PricePoint{Time: time.Unix(b.Timestamp, 0).UTC(), Close: b.Close})
	}
	series.Points = normalizePoints(pts)
	return series, nil
}
