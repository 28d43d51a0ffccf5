package collector

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"ETFScope/internal/model"
)

// DefaultYahooBaseURL is the public Yahoo Finance query host.
const DefaultYahooBaseURL = "https://query1.finance.yahoo.com"

// YahooFetcher implements Fetcher using the Yahoo Finance chart API.
type YahooFetcher struct {
	Client    *resty.Client
	Limiter   *rate.Limiter
	SymbolMap map[string]string // optional, maps catalog symbol to Yahoo ticker
}

// NewYahooFetcher creates a Yahoo Finance fetcher. Outbound requests are
// throttled to rps per second; rps <= 0 disables throttling.
func NewYahooFetcher(baseURL, proxyURL string, timeout time.Duration, rps float64) *YahooFetcher {
	if baseURL == "" {
		baseURL = DefaultYahooBaseURL
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeaders(map[string]string{
			"Accept":     "application/json",
			"User-Agent": "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
		})
	if proxyURL != "" {
		client.SetProxy(proxyURL)
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if rps > 0 {
		limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}

	return &YahooFetcher{
		Client:  client,
		Limiter: limiter,
	}
}

func (f *YahooFetcher) Name() string { return "yahoo" }

func (f *YahooFetcher) yahooSymbol(symbol string) string {
	if mapped, ok := f.SymbolMap[symbol]; ok {
		return mapped
	}
	return symbol
}

// yahooChart is the response structure from Yahoo Finance chart API.
// Closes are pointers because Yahoo reports holidays and halts as null.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
				AdjClose []struct {
					AdjClose []*float64 `json:"adjclose"`
				} `json:"adjclose"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// FetchSeries fetches closes over the lookback. Adjusted closes are used when
// Yahoo provides them so that dividends and splits don't show up as returns.
func (f *YahooFetcher) FetchSeries(ctx context.Context, symbol string, lookback model.Lookback) (*model.PriceSeries, error) {
	if err := f.Limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("yahoo throttle: %w", err)
	}

	var chart yahooChart
	resp, err := f.Client.R().
		SetContext(ctx).
		SetPathParam("symbol", f.yahooSymbol(symbol)).
		SetQueryParams(map[string]string{
			"range":    string(lookback),
			"interval": lookback.Interval(),
			"events":   "div,splits",
		}).
		SetResult(&chart).
		SetError(&chart).
		Get("/v8/finance/chart/{symbol}")
	if err != nil {
		return nil, fmt.Errorf("yahoo fetch: %w", err)
	}

	series := &model.PriceSeries{Symbol: symbol, Lookback: lookback, FetchedAt: time.Now()}

	if resp.StatusCode() == http.StatusNotFound {
		return series, nil // unknown or delisted ticker
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("yahoo: status %d, body: %s", resp.StatusCode(), preview(resp.String()))
	}
	if chart.Chart.Error != nil {
		if chart.Chart.Error.Code == "Not Found" {
			return series, nil
		}
		return nil, fmt.Errorf("yahoo api error: %s", chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 {
		return series, nil
	}

	result := chart.Chart.Result[0]
	var closes []*float64
	if len(result.Indicators.AdjClose) > 0 && len(result.Indicators.AdjClose[0].AdjClose) == len(result.Timestamp) {
		closes = result.Indicators.AdjClose[0].AdjClose
	} else if len(result.Indicators.Quote) > 0 {
		closes = result.Indicators.Quote[0].Close
	}

	series.Points = buildPoints(result.Timestamp, closes)
	return series, nil
}

// buildPoints pairs timestamps with closes, skipping null and non-positive closes.
func buildPoints(timestamps []int64, closes []*float64) []model.PricePoint {
	n := len(timestamps)
	if len(closes) < n {
		n = len(closes)
	}
	pts := make([]model.PricePoint, 0, n)
	for i := 0; i < n; i++ {
		c := closes[i]
		if c == nil || *c <= 0 {
			continue // skip null bars (holidays etc.)
		}
		pts = append(pts, model.PricePoint{Time: time.Unix(timestamps[i], 0).UTC(), Close: *c})
	}
	return normalizePoints(pts)
}

// normalizePoints sorts chronologically and keeps the last value of a duplicated timestamp.
func normalizePoints(pts []model.PricePoint) []model.PricePoint {
	sort.SliceStable(pts, func(i, j int) bool { return pts[i].Time.Before(pts[j].Time) })
	out := pts[:0]
	for _, p := range pts {
		if len(out) > 0 && out[len(out)-1].Time.Equal(p.Time) {
			out[len(out)-1] = p
			continue
		}
		out = append(out, p)
	}
	return out
}

func preview(body string) string {
	if len(body) > 120 {
		return body[:120]
	}
	return body
}
