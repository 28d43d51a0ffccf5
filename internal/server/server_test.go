package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"ETFScope/internal/catalog"
	"ETFScope/internal/collector"
	"ETFScope/internal/model"
)

func points(prices ...float64) []model.PricePoint {
	start := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	pts := make([]model.PricePoint, len(prices))
	for i, p := range prices {
		pts[i] = model.PricePoint{Time: start.AddDate(0, 0, i), Close: p}
	}
	return pts
}

func newTestServer(t *testing.T, f collector.Fetcher, opts Options) *httptest.Server {
	t.Helper()
	cat, err := catalog.Default()
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	srv := httptest.NewServer(New(collector.NewCollector(f, nil, cat), cat, opts).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func testOptions() Options {
	return Options{DefaultPrincipal: 1000}
}

func mockData() *collector.MockFetcher {
	return &collector.MockFetcher{Data: map[string][]model.PricePoint{
		"QQQ": points(100, 110),
		"SPY": points(400, 404, 410, 408, 412),
		"ONE": points(50),
	}}
}

func get(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	var buf bytes.Buffer
	buf.ReadFrom(resp.Body)
	return resp, buf.Bytes()
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, mockData(), testOptions())
	resp, body := get(t, srv.URL+"/health")
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), `"ok"`) {
		t.Errorf("unexpected health response %d %s", resp.StatusCode, body)
	}
}

func TestListETFs(t *testing.T) {
	srv := newTestServer(t, mockData(), testOptions())
	resp, body := get(t, srv.URL+"/api/v1/etfs")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.StatusCode)
	}
	var etfs []model.ETF
	if err := json.Unmarshal(body, &etfs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(etfs) != 17 || etfs[0].Symbol != "QQQ" {
		t.Errorf("unexpected catalog %+v", etfs)
	}
}

func TestAnalysis(t *testing.T) {
	srv := newTestServer(t, mockData(), testOptions())
	resp, body := get(t, srv.URL+"/api/v1/analysis?symbol=qqq&period=1mo&amount=1000&horizon=2")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", resp.StatusCode, body)
	}
	var report model.AnalysisReport
	if err := json.Unmarshal(body, &report); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if report.ETF.Symbol != "QQQ" {
		t.Errorf("unexpected symbol %q", report.ETF.Symbol)
	}
	if report.Metrics.FinalAmount < 1099.99 || report.Metrics.FinalAmount > 1100.01 {
		t.Errorf("expected final amount 1100, got %v", report.Metrics.FinalAmount)
	}
	if report.Projection == nil || len(report.Projection.Points) != 2 {
		t.Errorf("expected a two step projection, got %+v", report.Projection)
	}
}

func TestAnalysis_Errors(t *testing.T) {
	srv := newTestServer(t, mockData(), testOptions())
	tests := map[string]struct {
		query  string
		status int
	}{
		"missing symbol": {"", http.StatusBadRequest},
		"bad period":     {"symbol=SPY&period=3w", http.StatusBadRequest},
		"bad amount":     {"symbol=SPY&amount=-5", http.StatusBadRequest},
		"bad horizon":    {"symbol=SPY&horizon=abc", http.StatusBadRequest},
		"unknown symbol": {"symbol=NOPE", http.StatusUnprocessableEntity},
	}
	for name, tt := range tests {
		resp, body := get(t, srv.URL+"/api/v1/analysis?"+tt.query)
		if resp.StatusCode != tt.status {
			t.Errorf("%s: expected %d, got %d (%s)", name, tt.status, resp.StatusCode, body)
		}
	}
}

func TestAnalysis_ProviderErrorIsBadGateway(t *testing.T) {
	srv := newTestServer(t, &collector.MockFetcher{Err: errors.New("upstream down")}, testOptions())
	resp, _ := get(t, srv.URL+"/api/v1/analysis?symbol=SPY")
	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", resp.StatusCode)
	}
}

func TestDashboard(t *testing.T) {
	srv := newTestServer(t, mockData(), testOptions())
	resp, body := get(t, srv.URL+"/?a=QQQ&b=NOPE&amount=1000&period=1mo")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.StatusCode)
	}
	html := string(body)
	for _, want := range []string{
		"Results for QQQ",
		"$1,100.00",
		"Gain",
		"No data found for ETF NOPE.",
		"/charts/value.png?",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("dashboard missing %q", want)
		}
	}
}

func TestDashboard_Loss(t *testing.T) {
	f := &collector.MockFetcher{Data: map[string][]model.PricePoint{"AGG": points(100, 90)}}
	srv := newTestServer(t, f, testOptions())
	_, body := get(t, srv.URL+"/?a=AGG&amount=500")
	html := string(body)
	if !strings.Contains(html, "Loss") || !strings.Contains(html, "$50.00") {
		t.Error("expected a loss of $50.00")
	}
}

func TestCharts(t *testing.T) {
	srv := newTestServer(t, mockData(), testOptions())

	resp, body := get(t, srv.URL+"/charts/price.png?symbol=SPY&period=1mo&horizon=3&ma=2")
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "image/png" {
		t.Fatalf("price chart: unexpected response %d %s", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
	if !bytes.HasPrefix(body, []byte("\x89PNG")) {
		t.Error("price chart is not a PNG")
	}

	resp, _ = get(t, srv.URL+"/charts/value.png?symbols=QQQ,SPY,NOPE&period=1mo")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("value chart: unexpected status %d", resp.StatusCode)
	}

	resp, _ = get(t, srv.URL+"/charts/price.png?symbol=ONE")
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("single point price chart: expected 422, got %d", resp.StatusCode)
	}

	resp, _ = get(t, srv.URL+"/charts/value.png")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("value chart without symbols: expected 400, got %d", resp.StatusCode)
	}
}

func TestRateLimit(t *testing.T) {
	srv := newTestServer(t, mockData(), Options{RateLimit: 0.001, RateBurst: 1})
	if resp, _ := get(t, srv.URL+"/api/v1/etfs"); resp.StatusCode != http.StatusOK {
		t.Fatalf("first request: unexpected status %d", resp.StatusCode)
	}
	if resp, _ := get(t, srv.URL+"/api/v1/etfs"); resp.StatusCode != http.StatusTooManyRequests {
		t.Errorf("second request: expected 429, got %d", resp.StatusCode)
	}
	if resp, _ := get(t, srv.URL+"/health"); resp.StatusCode != http.StatusOK {
		t.Errorf("health should not be rate limited, got %d", resp.StatusCode)
	}
}

func TestRateLimit_ActiveClientKeepsLimiter(t *testing.T) {
	cat, err := catalog.Default()
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	s := New(collector.NewCollector(mockData(), nil, cat), cat, Options{RateLimit: 1, RateBurst: 1})

	first := s.limiterFor("10.0.0.1")
	_, exp1, ok := s.limiters.GetWithExpiration("10.0.0.1")
	if !ok {
		t.Fatal("limiter not stored")
	}
	time.Sleep(5 * time.Millisecond)
	if again := s.limiterFor("10.0.0.1"); again != first {
		t.Error("expected the same limiter for a returning client")
	}
	_, exp2, _ := s.limiters.GetWithExpiration("10.0.0.1")
	if !exp2.After(exp1) {
		t.Errorf("expiration should move forward on use: %v -> %v", exp1, exp2)
	}
}

func TestAnalysis_ZeroDefaults(t *testing.T) {
	srv := newTestServer(t, mockData(), Options{})
	resp, body := get(t, srv.URL+"/api/v1/analysis?symbol=QQQ&period=1mo")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", resp.StatusCode, body)
	}
	var report model.AnalysisReport
	if err := json.Unmarshal(body, &report); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if report.Metrics.Principal != 0 || report.Metrics.FinalAmount != 0 {
		t.Errorf("expected a zero principal to be kept, got %+v", report.Metrics)
	}
	if report.Projection != nil {
		t.Errorf("a zero default horizon should skip the projection, got %+v", report.Projection)
	}
}

func TestAnalysis_OverflowIsUnprocessable(t *testing.T) {
	f := &collector.MockFetcher{Data: map[string][]model.PricePoint{"QQQ": points(1e-300, 1e300)}}
	srv := newTestServer(t, f, testOptions())
	resp, body := get(t, srv.URL+"/api/v1/analysis?symbol=QQQ&amount=1000")
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d (%s)", resp.StatusCode, body)
	}
	if len(body) == 0 {
		t.Error("expected an error body")
	}
}

func TestWriteJSON_EncodeFailure(t *testing.T) {
	rec := httptest.NewRecorder()
	writeJSON(rec, http.StatusOK, map[string]float64{"value": math.Inf(1)})
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"error"`) {
		t.Errorf("expected an error body, got %q", rec.Body.String())
	}
}

func TestDashboard_ProjectionCaveat(t *testing.T) {
	srv := newTestServer(t, mockData(), testOptions())
	_, body := get(t, srv.URL+"/?a=SPY&period=1mo&horizon=3")
	if !strings.Contains(string(body), "linear fit, not a forecast") {
		t.Error("projection should be labelled as a linear fit")
	}
}

func TestMoneyAndPct(t *testing.T) {
	if got := money(-1234.5); got != "$1,234.50" {
		t.Errorf("money: got %q", got)
	}
	if got := pct(0.1234); got != "12.34%" {
		t.Errorf("pct: got %q", got)
	}
}
