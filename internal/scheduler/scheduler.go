package scheduler

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"ETFScope/internal/calculator"
	"ETFScope/internal/catalog"
	"ETFScope/internal/chart"
	"ETFScope/internal/collector"
	"ETFScope/internal/model"
	"ETFScope/internal/notifier"
)

// Options holds the defaults applied to commands and the watchlist report.
type Options struct {
	Principal      float64
	Lookback       model.Lookback
	Horizon        int
	MAWindow       int
	Watchlist      []string
	ReportLookback model.Lookback
}

// Scheduler manages the cron report and answers bot commands.
type Scheduler struct {
	Cron      *cron.Cron
	Collector *collector.Collector
	Catalog   *catalog.Catalog
	Notifier  *notifier.TelegramNotifier
	Opts      Options
	Ctx       context.Context
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, col *collector.Collector, cat *catalog.Catalog, tn *notifier.TelegramNotifier, opts Options) *Scheduler {
	if opts.Lookback == "" {
		opts.Lookback = model.Lookback1y
	}
	if opts.ReportLookback == "" {
		opts.ReportLookback = model.Lookback1mo
	}
	return &Scheduler{
		Cron:      cron.New(cron.WithSeconds()),
		Collector: col,
		Catalog:   cat,
		Notifier:  tn,
		Opts:      opts,
		Ctx:       ctx,
	}
}

// RegisterAll registers the watchlist report.
func (s *Scheduler) RegisterAll(reportCron string) error {
	if _, err := s.Cron.AddFunc(reportCron, s.watchlistReport); err != nil {
		return fmt.Errorf("register report task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Info().Int("jobs", len(s.Cron.Entries())).Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Info().Msg("scheduler stopped")
}

// RunReportNow executes the watchlist report immediately.
func (s *Scheduler) RunReportNow() {
	s.watchlistReport()
}

func (s *Scheduler) watchlistReport() {
	log.Info().Strs("watchlist", s.Opts.Watchlist).Msg("running watchlist report")
	var reports []*model.AnalysisReport
	failures := make(map[string]error)
	for _, sym := range s.Opts.Watchlist {
		report, err := s.Collector.Analyze(s.Ctx, collector.Request{
			Symbol:    sym,
			Lookback:  s.Opts.ReportLookback,
			Principal: s.Opts.Principal,
		})
		if err != nil {
			log.Error().Err(err).Str("symbol", sym).Msg("watchlist analysis")
			failures[catalog.NormalizeSymbol(sym)] = err
			continue
		}
		reports = append(reports, report)
	}

	s.trySend(notifier.FormatWatchlist(reports, failures, time.Now()))

	if len(reports) == 0 {
		return
	}
	img, err := chart.ValueChart(reports, chart.Size{})
	if err != nil {
		log.Warn().Err(err).Msg("watchlist chart")
		return
	}
	if err := s.Notifier.SendPhoto(s.Notifier.ChatID, "watchlist.png", img, ""); err != nil {
		log.Error().Err(err).Msg("send watchlist chart")
	}
}

// HandleCommand processes a user command and returns the replies.
func (s *Scheduler) HandleCommand(ctx context.Context, text string) []notifier.Reply {
	cmd, err := ParseCommand(text)
	if err != nil {
		return []notifier.Reply{{Text: html.EscapeString(err.Error()) + "\n\n" + notifier.HelpText()}}
	}

	switch cmd.Name {
	case "/list":
		return []notifier.Reply{{Text: notifier.FormatCatalog(s.Catalog.All())}}
	case "/etf":
		return s.handleETF(ctx, cmd)
	case "/compare":
		return s.handleCompare(ctx, cmd)
	default:
		return []notifier.Reply{{Text: notifier.HelpText()}}
	}
}

func (s *Scheduler) request(cmd Command, symbol string) collector.Request {
	req := collector.Request{
		Symbol:    symbol,
		Lookback:  s.Opts.Lookback,
		Principal: s.Opts.Principal,
		Horizon:   s.Opts.Horizon,
		MAWindow:  s.Opts.MAWindow,
	}
	if cmd.Lookback != "" {
		req.Lookback = cmd.Lookback
	}
	if cmd.Principal >= 0 {
		req.Principal = cmd.Principal
	}
	return req
}

func (s *Scheduler) handleETF(ctx context.Context, cmd Command) []notifier.Reply {
	symbol := cmd.Symbols[0]
	report, err := s.Collector.Analyze(ctx, s.request(cmd, symbol))
	if err != nil {
		return []notifier.Reply{{Text: describeError(symbol, err)}}
	}
	replies := []notifier.Reply{{Text: notifier.FormatReport(report)}}
	if img, err := chart.PriceChart(report, chart.Size{}); err == nil {
		replies = append(replies, notifier.Reply{Photo: img, PhotoName: strings.ToLower(symbol) + ".png"})
	}
	return replies
}

func (s *Scheduler) handleCompare(ctx context.Context, cmd Command) []notifier.Reply {
	var (
		reports []*model.AnalysisReport
		notes   []string
	)
	for _, sym := range cmd.Symbols {
		req := s.request(cmd, sym)
		req.Horizon, req.MAWindow = 0, 0
		report, err := s.Collector.Analyze(ctx, req)
		if err != nil {
			notes = append(notes, describeError(sym, err))
			continue
		}
		reports = append(reports, report)
	}

	var replies []notifier.Reply
	for _, n := range notes {
		replies = append(replies, notifier.Reply{Text: n})
	}
	if len(reports) == 0 {
		return replies
	}
	replies = append(replies, notifier.Reply{Text: notifier.FormatComparison(reports)})
	if img, err := chart.ValueChart(reports, chart.Size{}); err == nil {
		replies = append(replies, notifier.Reply{Photo: img, PhotoName: "compare.png"})
	}
	return replies
}

func describeError(symbol string, err error) string {
	switch {
	case errors.Is(err, calculator.ErrEmptyData):
		return fmt.Sprintf("No data found for ETF %s.", html.EscapeString(symbol))
	case errors.Is(err, calculator.ErrInsufficientData), errors.Is(err, calculator.ErrDegenerateInput):
		return fmt.Sprintf("Cannot analyze %s: %s", html.EscapeString(symbol), html.EscapeString(err.Error()))
	default:
		log.Error().Err(err).Str("symbol", symbol).Msg("command analysis")
		return fmt.Sprintf("❌ Failed to fetch data for %s, try again later.", html.EscapeString(symbol))
	}
}

func (s *Scheduler) trySend(text string) {
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		log.Error().Err(err).Msg("send notification")
	}
}
