package collector

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"ETFScope/internal/calculator"
	"ETFScope/internal/catalog"
	"ETFScope/internal/metrics"
	"ETFScope/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
// When Data is set, symbols missing from it yield an empty series.
type MockFetcher struct {
	Price float64
	Data  map[string][]model.PricePoint
	Err   error
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchSeries(_ context.Context, symbol string, lookback model.Lookback) (*model.PriceSeries, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	series := &model.PriceSeries{Symbol: symbol, Lookback: lookback, FetchedAt: time.Now()}
	if m.Data != nil {
		pts := m.Data[symbol]
		series.Points = make([]model.PricePoint, len(pts))
		copy(series.Points, pts)
		return series, nil
	}
	series.Points = generateMockPoints(m.Price, observationsFor(lookback))
	return series, nil
}

// observationsFor approximates how many samples a provider returns for a window.
func observationsFor(lookback model.Lookback) int {
	switch lookback {
	case model.Lookback1mo:
		return 21
	case model.Lookback3mo:
		return 63
	case model.Lookback6mo:
		return 126
	case model.Lookback2y:
		return 504
	case model.Lookback5y:
		return 260
	case model.Lookback10y:
		return 520
	case model.LookbackMax:
		return 360
	case model.LookbackYTD:
		return 150
	default:
		return 252
	}
}

func generateMockPoints(basePrice float64, count int) []model.PricePoint {
	end := time.Now().UTC().Truncate(24 * time.Hour)
	pts := make([]model.PricePoint, count)
	for i := 0; i < count; i++ {
		p := basePrice * (1 + float64(i-count/2)*0.001) * (1 + 0.01*math.Sin(float64(i)))
		pts[i] = model.PricePoint{
			Time:  end.AddDate(0, 0, -(count - i)),
			Close: p,
		}
	}
	return pts
}

// Request describes one instrument analysis.
type Request struct {
	Symbol    string
	Lookback  model.Lookback
	Principal float64
	Horizon   int // projected steps, 0 disables the projection
	MAWindow  int // moving average window, 0 disables the overlay
}

// Collector orchestrates data fetching and metric computation.
type Collector struct {
	Fetcher Fetcher
	Engine  *calculator.Engine
	Catalog *catalog.Catalog
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher, engine *calculator.Engine, cat *catalog.Catalog) *Collector {
	if engine == nil {
		engine = calculator.DefaultEngine
	}
	return &Collector{Fetcher: fetcher, Engine: engine, Catalog: cat}
}

// Fetch retrieves a series and records fetch metrics.
func (c *Collector) Fetch(ctx context.Context, symbol string, lookback model.Lookback) (*model.PriceSeries, error) {
	source := c.Fetcher.Name()
	start := time.Now()
	series, err := c.Fetcher.FetchSeries(ctx, symbol, lookback)
	metrics.FetchLatency.WithLabelValues(source).Observe(time.Since(start).Seconds())
	switch {
	case err != nil:
		metrics.FetchesTotal.WithLabelValues(source, "error").Inc()
		return nil, fmt.Errorf("fetch %s (%s): %w", symbol, lookback, err)
	case series.Len() == 0:
		metrics.FetchesTotal.WithLabelValues(source, "empty").Inc()
	default:
		metrics.FetchesTotal.WithLabelValues(source, "ok").Inc()
	}
	log.Debug().Str("source", source).Str("symbol", symbol).Str("lookback", string(lookback)).
		Int("points", series.Len()).Dur("took", time.Since(start)).Msg("series fetched")
	return series, nil
}

// Analyze fetches the series for one instrument and computes everything the
// presentation layer renders. Computation errors are returned wrapped so that
// errors.Is matches the calculator sentinels. The moving average and the
// projection are optional: when the series is too short they are left out.
func (c *Collector) Analyze(ctx context.Context, req Request) (*model.AnalysisReport, error) {
	symbol := catalog.NormalizeSymbol(req.Symbol)
	series, err := c.Fetch(ctx, symbol, req.Lookback)
	if err != nil {
		metrics.AnalysesTotal.WithLabelValues("fetch_error").Inc()
		return nil, err
	}

	report, err := c.AnalyzeSeries(series, req)
	if err != nil {
		metrics.AnalysesTotal.WithLabelValues(outcome(err)).Inc()
		return nil, err
	}
	metrics.AnalysesTotal.WithLabelValues("ok").Inc()
	return report, nil
}

// AnalyzeSeries runs the computations over an already fetched series.
func (c *Collector) AnalyzeSeries(series *model.PriceSeries, req Request) (*model.AnalysisReport, error) {
	symbol := catalog.NormalizeSymbol(series.Symbol)

	m, err := c.Engine.ComputeMetrics(series, req.Principal)
	if err != nil {
		return nil, fmt.Errorf("metrics for %s: %w", symbol, err)
	}
	values, err := calculator.InvestmentValue(series, req.Principal)
	if err != nil {
		return nil, fmt.Errorf("investment value for %s: %w", symbol, err)
	}
	rng, err := calculator.PeriodRange(series)
	if err != nil {
		return nil, fmt.Errorf("range for %s: %w", symbol, err)
	}

	report := &model.AnalysisReport{
		ETF:             c.describe(symbol),
		Series:          series,
		Metrics:         m,
		InvestmentValue: values,
		Range:           rng,
	}

	if req.MAWindow > 0 {
		if ma, err := calculator.SMA(series, req.MAWindow); err != nil {
			log.Warn().Err(err).Str("symbol", symbol).Int("window", req.MAWindow).Msg("moving average skipped")
		} else {
			report.MovingAverage = ma
			report.MAWindow = req.MAWindow
		}
	}

	if req.Horizon > 0 {
		if proj, err := calculator.ProjectPrice(series, req.Horizon); err != nil {
			log.Warn().Err(err).Str("symbol", symbol).Int("horizon", req.Horizon).Msg("projection skipped")
		} else {
			report.Projection = proj
		}
	}

	return report, nil
}

func (c *Collector) describe(symbol string) model.ETF {
	if c.Catalog == nil {
		return model.ETF{Name: symbol, Symbol: symbol}
	}
	return c.Catalog.Describe(symbol)
}

func outcome(err error) string {
	switch {
	case errors.Is(err, calculator.ErrEmptyData):
		return "empty"
	case errors.Is(err, calculator.ErrInsufficientData):
		return "insufficient"
	case errors.Is(err, calculator.ErrDegenerateInput):
		return "degenerate"
	default:
		return "error"
	}
}
