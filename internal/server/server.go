// Package server exposes the ETF dashboard, its JSON API, and PNG charts over HTTP.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/patrickmn/go-cache"

	"ETFScope/internal/catalog"
	"ETFScope/internal/collector"
	"ETFScope/internal/metrics"
	"ETFScope/internal/model"
)

// Options controls request defaults and limits. DefaultPrincipal,
// DefaultHorizon and MAWindow are used as given, 0 included.
type Options struct {
	DefaultPrincipal float64
	DefaultLookback  model.Lookback
	DefaultHorizon   int
	MaxHorizon       int
	MAWindow         int
	RequestTimeout   time.Duration
	RateLimit        float64 // requests per second per client, 0 disables
	RateBurst        int
}

func (o Options) withDefaults() Options {
	if o.DefaultLookback == "" {
		o.DefaultLookback = model.Lookback1y
	}
	if o.MaxHorizon <= 0 {
		o.MaxHorizon = 365
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = 30 * time.Second
	}
	if o.RateBurst <= 0 {
		o.RateBurst = 15
	}
	return o
}

// Server serves the dashboard.
type Server struct {
	collector *collector.Collector
	catalog   *catalog.Catalog
	opts      Options
	limiters  *cache.Cache
	router    chi.Router
}

// New builds the router.
func New(c *collector.Collector, cat *catalog.Catalog, opts Options) *Server {
	s := &Server{
		collector: c,
		catalog:   cat,
		opts:      opts.withDefaults(),
		limiters:  cache.New(10*time.Minute, 20*time.Minute),
	}
	s.router = s.routes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.opts.RequestTimeout))
	r.Use(metrics.Middleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","service":"etfscope"}`))
	})
	r.Handle("/metrics", metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(s.rateLimit)

		r.Get("/", s.handleDashboard)

		r.Route("/api/v1", func(r chi.Router) {
			r.Get("/etfs", s.handleListETFs)
			r.Get("/analysis", s.handleAnalysis)
		})

		r.Get("/charts/value.png", s.handleValueChart)
		r.Get("/charts/price.png", s.handlePriceChart)
	})
	return r
}
