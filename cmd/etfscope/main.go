package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"ETFScope/internal/calculator"
	"ETFScope/internal/catalog"
	"ETFScope/internal/collector"
	"ETFScope/internal/config"
	"ETFScope/internal/model"
	"ETFScope/internal/notifier"
	"ETFScope/internal/scheduler"
	"ETFScope/internal/server"
)

func main() {
	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	setupLogging(cfg)
	log.Info().Str("config", cfgPath).Msg("ETFScope starting")
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("config validation")
	}

	cat, err := catalog.Load(cfg.Dashboard.CatalogFile)
	if err != nil {
		log.Fatal().Err(err).Msg("load catalog")
	}
	engine, err := calculator.NewEngine(cfg.Metrics.TradingDays)
	if err != nil {
		log.Fatal().Err(err).Msg("metrics engine")
	}

	// Init fetcher
	var fetcher collector.Fetcher
	switch cfg.DataSource.Provider {
	case "rest":
		fetcher = collector.NewRESTFetcher(cfg.DataSource.BaseURL, cfg.DataSource.APIKey, cfg.Proxy, cfg.Timeout())
	case "mock":
		fetcher = &collector.MockFetcher{Price: cfg.DataSource.MockPrice}
	default:
		yf := collector.NewYahooFetcher(cfg.DataSource.BaseURL, cfg.Proxy, cfg.Timeout(), cfg.DataSource.RequestsPerSecond)
		yf.SymbolMap = cfg.DataSource.SymbolMap
		fetcher = yf
	}
	log.Info().Str("source", fetcher.Name()).Int("etfs", len(cat.All())).Msg("data source ready")

	col := collector.NewCollector(fetcher, engine, cat)

	// Lookbacks were checked by Validate.
	lookback, _ := model.ParseLookback(cfg.Dashboard.DefaultLookback)
	reportLookback, _ := model.ParseLookback(cfg.Schedule.ReportLookback)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telegram is optional
	if cfg.TelegramEnabled() {
		chatID, _ := cfg.TelegramChatID()
		tn, err := notifier.NewTelegramNotifier(cfg.Telegram.BotToken, chatID, cfg.Proxy)
		if err != nil {
			log.Fatal().Err(err).Msg("init telegram")
		}
		sched := scheduler.NewScheduler(ctx, col, cat, tn, scheduler.Options{
			Principal:      cfg.Dashboard.DefaultPrincipal,
			Lookback:       lookback,
			Horizon:        cfg.Dashboard.DefaultHorizon,
			MAWindow:       cfg.Dashboard.MAWindow,
			Watchlist:      cfg.Schedule.Watchlist,
			ReportLookback: reportLookback,
		})
		if err := sched.RegisterAll(cfg.Schedule.ReportCron); err != nil {
			log.Fatal().Err(err).Msg("register cron tasks")
		}
		sched.Start()
		defer sched.Stop()

		go tn.StartPolling(ctx, sched.HandleCommand)
		log.Info().Msg("telegram polling started")

		if os.Getenv("RUN_ON_START") == "true" {
			log.Info().Msg("RUN_ON_START enabled, sending watchlist report now")
			go sched.RunReportNow()
		}
	} else {
		log.Warn().Msg("telegram not configured, bot and scheduled reports disabled")
	}

	srv := &http.Server{
		Addr: cfg.Server.Addr,
		Handler: server.New(col, cat, server.Options{
			DefaultPrincipal: cfg.Dashboard.DefaultPrincipal,
			DefaultLookback:  lookback,
			DefaultHorizon:   cfg.Dashboard.DefaultHorizon,
			MaxHorizon:       cfg.Dashboard.MaxHorizon,
			MAWindow:         cfg.Dashboard.MAWindow,
			RequestTimeout:   time.Duration(cfg.Server.RequestTimeoutSeconds) * time.Second,
			RateLimit:        cfg.Server.RateLimit,
			RateBurst:        cfg.Server.RateBurst,
		}).Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: time.Duration(cfg.Server.RequestTimeoutSeconds+10) * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("dashboard listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info().Msg("shutdown signal received, stopping...")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown")
	}
	log.Info().Msg("ETFScope stopped")
}

func setupLogging(cfg *config.Config) {
	zerolog.TimeFieldFormat = time.RFC3339
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if cfg.Log.Pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	}
}
