package server

import (
	"embed"
	"errors"
	"html/template"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"

	"ETFScope/internal/calculator"
	"ETFScope/internal/catalog"
	"ETFScope/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

var dashboardTmpl = template.Must(template.New("dashboard.html").Funcs(template.FuncMap{
	"money": money,
	"pct":   pct,
}).ParseFS(templateFS, "templates/dashboard.html"))

var panelColors = []string{"#1f77b4", "#ff7f0e"}

type panel struct {
	Symbol      string
	Name        string
	Description string
	Color       string
	Empty       bool
	Error       string
	Metrics     model.MetricsResult
	Gain        bool
	Range       model.PriceRange
	Last        float64
	Position    float64
	Projected   float64
	ProjectedAt string
	ChartURL    string
}

type dashboardPage struct {
	ETFs      []model.ETF
	Lookbacks []model.Lookback
	SymbolA   string
	SymbolB   string
	Amount    float64
	Lookback  model.Lookback
	Horizon   int
	Error     string
	Panels    []panel
	ValueURL  string
}

// Label renders a lookback option.
func (p dashboardPage) Label(lb model.Lookback) string { return lb.Label() }

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := dashboardPage{
		ETFs:      s.catalog.All(),
		Lookbacks: model.Lookbacks,
		SymbolA:   catalog.NormalizeSymbol(q.Get("a")),
		SymbolB:   catalog.NormalizeSymbol(q.Get("b")),
	}
	if page.SymbolA == "" && len(page.ETFs) > 0 {
		page.SymbolA = page.ETFs[0].Symbol
	}

	status := http.StatusOK
	var symbols []string
	for _, sym := range []string{page.SymbolA, page.SymbolB} {
		if sym != "" && !containsSymbol(symbols, sym) {
			symbols = append(symbols, sym)
		}
	}

	var charted []string
	for i, sym := range symbols {
		req, err := s.request(r, sym)
		if err != nil {
			page.Error = err.Error()
			status = http.StatusBadRequest
			break
		}
		page.Amount, page.Lookback, page.Horizon = req.Principal, req.Lookback, req.Horizon

		p := panel{Symbol: sym, Color: panelColors[i%len(panelColors)]}
		etf := s.catalog.Describe(sym)
		p.Name, p.Description = etf.Name, etf.Description

		report, err := s.collector.Analyze(r.Context(), req)
		switch {
		case errors.Is(err, calculator.ErrEmptyData):
			p.Empty = true
		case err != nil:
			log.Warn().Err(err).Str("symbol", sym).Msg("dashboard analysis failed")
			p.Error = err.Error()
		default:
			fillPanel(&p, report)
			p.ChartURL = "/charts/price.png?" + chartQuery(url.Values{
				"symbol":  {sym},
				"horizon": {strconv.Itoa(req.Horizon)},
				"ma":      {strconv.Itoa(req.MAWindow)},
			}, req.Lookback, req.Principal)
			charted = append(charted, sym)
		}
		page.Panels = append(page.Panels, p)
	}
	if page.Lookback == "" {
		page.Lookback = s.opts.DefaultLookback
		page.Amount = s.opts.DefaultPrincipal
		page.Horizon = s.opts.DefaultHorizon
	}
	if len(charted) > 0 {
		page.ValueURL = "/charts/value.png?" + chartQuery(url.Values{"symbols": {strings.Join(charted, ",")}},
			page.Lookback, page.Amount)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := dashboardTmpl.Execute(w, page); err != nil {
		log.Error().Err(err).Msg("render dashboard")
	}
}

func fillPanel(p *panel, report *model.AnalysisReport) {
	p.Metrics = report.Metrics
	p.Gain = report.Metrics.GainLoss >= 0
	p.Range = report.Range
	if report.Series.Len() > 0 {
		p.Last = report.Series.Last().Close
		p.Position = calculator.RangePosition(p.Last, report.Range)
	}
	if proj := report.Projection; proj != nil && len(proj.Points) > 0 {
		last := proj.Points[len(proj.Points)-1]
		p.Projected = last.Price
		p.ProjectedAt = last.Time.Format("2006-01-02")
	}
}

// chartQuery encodes the parameters shared by the chart endpoints.
func chartQuery(v url.Values, lookback model.Lookback, principal float64) string {
	v.Set("period", string(lookback))
	v.Set("amount", strconv.FormatFloat(principal, 'f', -1, 64))
	return v.Encode()
}

func containsSymbol(list []string, sym string) bool {
	for _, s := range list {
		if s == sym {
			return true
		}
	}
	return false
}

func money(v float64) string {
	return "$" + humanize.FormatFloat("#,###.##", math.Abs(v))
}

func pct(v float64) string {
	return strconv.FormatFloat(v*100, 'f', 2, 64) + "%"
}
