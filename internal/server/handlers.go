package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"ETFScope/internal/calculator"
	"ETFScope/internal/catalog"
	"ETFScope/internal/chart"
	"ETFScope/internal/collector"
	"ETFScope/internal/model"
)

// badRequest marks a malformed query parameter.
type badRequest struct{ msg string }

func (e *badRequest) Error() string { return e.msg }

func badParam(name, value string) error {
	return &badRequest{msg: fmt.Sprintf("invalid %s %q", name, value)}
}

// request parses the shared analysis parameters. An empty parameter takes the
// configured default.
func (s *Server) request(r *http.Request, symbol string) (collector.Request, error) {
	q := r.URL.Query()
	req := collector.Request{
		Symbol:    catalog.NormalizeSymbol(symbol),
		Lookback:  s.opts.DefaultLookback,
		Principal: s.opts.DefaultPrincipal,
		Horizon:   s.opts.DefaultHorizon,
		MAWindow:  s.opts.MAWindow,
	}
	if req.Symbol == "" {
		return req, &badRequest{msg: "symbol is required"}
	}
	if v := q.Get("period"); v != "" {
		lb, err := model.ParseLookback(v)
		if err != nil {
			return req, badParam("period", v)
		}
		req.Lookback = lb
	}
	if v := q.Get("amount"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
			return req, badParam("amount", v)
		}
		req.Principal = f
	}
	if v := q.Get("horizon"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 || n > s.opts.MaxHorizon {
			return req, badParam("horizon", v)
		}
		req.Horizon = n
	}
	if v := q.Get("ma"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return req, badParam("ma", v)
		}
		req.MAWindow = n
	}
	return req, nil
}

// statusFor maps an analysis error to an HTTP status.
func statusFor(err error) int {
	var br *badRequest
	switch {
	case errors.As(err, &br):
		return http.StatusBadRequest
	case errors.Is(err, calculator.ErrEmptyData),
		errors.Is(err, calculator.ErrInsufficientData),
		errors.Is(err, calculator.ErrDegenerateInput),
		errors.Is(err, chart.ErrNoSeries):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadGateway
	}
}

func (s *Server) handleListETFs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.catalog.All())
}

func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	req, err := s.request(r, r.URL.Query().Get("symbol"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	report, err := s.collector.Analyze(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleValueChart(w http.ResponseWriter, r *http.Request) {
	symbols := splitSymbols(r.URL.Query().Get("symbols"))
	if len(symbols) == 0 {
		writeError(w, http.StatusBadRequest, "symbols is required")
		return
	}

	var reports []*model.AnalysisReport
	for _, sym := range symbols {
		req, err := s.request(r, sym)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		req.Horizon, req.MAWindow = 0, 0
		report, err := s.collector.Analyze(r.Context(), req)
		if err != nil {
			if statusFor(err) == http.StatusUnprocessableEntity {
				log.Warn().Err(err).Str("symbol", req.Symbol).Msg("left out of value chart")
				continue
			}
			s.fail(w, r, err)
			return
		}
		reports = append(reports, report)
	}

	img, err := chart.ValueChart(reports, chart.Size{})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writePNG(w, img)
}

func (s *Server) handlePriceChart(w http.ResponseWriter, r *http.Request) {
	req, err := s.request(r, r.URL.Query().Get("symbol"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	report, err := s.collector.Analyze(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	img, err := chart.PriceChart(report, chart.Size{})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writePNG(w, img)
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	writeError(w, status, err.Error())
}

func splitSymbols(v string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, part := range strings.Split(v, ",") {
		sym := catalog.NormalizeSymbol(part)
		if sym == "" || seen[sym] {
			continue
		}
		seen[sym] = true
		out = append(out, sym)
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("encode json response")
		status = http.StatusInternalServerError
		body = []byte(`{"error":"internal error"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(append(body, '\n'))
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writePNG(w http.ResponseWriter, img []byte) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(img)
}
