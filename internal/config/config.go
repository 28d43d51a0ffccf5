package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"ETFScope/internal/model"
)

// Config holds all application configuration.
type Config struct {
	Server struct {
		Addr                  string  `yaml:"addr"`
		RequestTimeoutSeconds int     `yaml:"request_timeout_seconds"`
		RateLimit             float64 `yaml:"rate_limit"` // per client, 0 disables
		RateBurst             int     `yaml:"rate_burst"`
	} `yaml:"server"`
	DataSource struct {
		Provider          string  `yaml:"provider"` // yahoo, rest or mock
		BaseURL           string  `yaml:"base_url"`
		APIKey            string  `yaml:"api_key"`
		TimeoutSeconds    int     `yaml:"timeout_seconds"`
		RequestsPerSecond float64 `yaml:"requests_per_second"`
		MockPrice         float64 `yaml:"mock_price"`
		// SymbolMap routes a catalog symbol to a different provider ticker.
		SymbolMap map[string]string `yaml:"symbol_map"`
	} `yaml:"data_source"`
	Metrics struct {
		TradingDays float64 `yaml:"trading_days"`
	} `yaml:"metrics"`
	Dashboard struct {
		CatalogFile      string  `yaml:"catalog_file"`
		DefaultPrincipal float64 `yaml:"default_principal"`
		DefaultLookback  string  `yaml:"default_lookback"`
		DefaultHorizon   int     `yaml:"default_horizon"`
		MaxHorizon       int     `yaml:"max_horizon"`
		MAWindow         int     `yaml:"ma_window"`
	} `yaml:"dashboard"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Schedule struct {
		ReportCron     string   `yaml:"report_cron"`
		ReportLookback string   `yaml:"report_lookback"`
		Watchlist      []string `yaml:"watchlist"`
	} `yaml:"schedule"`
	Log struct {
		Level  string `yaml:"level"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"log"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies .env and environment
// variable overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := &Config{}
	// Seeded before parsing so an explicit 0 in the file is kept.
	cfg.Dashboard.DefaultPrincipal = 1000
	cfg.Dashboard.DefaultHorizon = 30
	cfg.Dashboard.MAWindow = 20

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("ADDR"); v != "" {
		cfg.Server.Addr = v
	} else if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Addr = ":" + v
	}
	if v := os.Getenv("DATA_PROVIDER"); v != "" {
		cfg.DataSource.Provider = v
	}
	if v := os.Getenv("DATA_BASE_URL"); v != "" {
		cfg.DataSource.BaseURL = v
	}
	if v := os.Getenv("DATA_API_KEY"); v != "" {
		cfg.DataSource.APIKey = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("TRADING_DAYS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Metrics.TradingDays = f
		}
	}
	if v := os.Getenv("CRON_REPORT"); v != "" {
		cfg.Schedule.ReportCron = v
	}
	if v := os.Getenv("WATCHLIST"); v != "" {
		cfg.Schedule.Watchlist = strings.Split(v, ",")
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}

	if len(cfg.DataSource.SymbolMap) > 0 {
		m := make(map[string]string, len(cfg.DataSource.SymbolMap))
		for k, v := range cfg.DataSource.SymbolMap {
			m[strings.ToUpper(strings.TrimSpace(k))] = strings.TrimSpace(v)
		}
		cfg.DataSource.SymbolMap = m
	}

	// Defaults
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.RequestTimeoutSeconds == 0 {
		cfg.Server.RequestTimeoutSeconds = 30
	}
	if cfg.Server.RateBurst == 0 {
		cfg.Server.RateBurst = 15
	}
	if cfg.DataSource.Provider == "" {
		cfg.DataSource.Provider = "yahoo"
		if cfg.DataSource.BaseURL != "" {
			cfg.DataSource.Provider = "rest"
		}
	}
	if cfg.DataSource.TimeoutSeconds == 0 {
		cfg.DataSource.TimeoutSeconds = 15
	}
	if cfg.DataSource.RequestsPerSecond == 0 {
		cfg.DataSource.RequestsPerSecond = 2
	}
	if cfg.DataSource.MockPrice == 0 {
		cfg.DataSource.MockPrice = 100
	}
	if cfg.Metrics.TradingDays == 0 {
		cfg.Metrics.TradingDays = 252
	}
	if cfg.Dashboard.DefaultLookback == "" {
		cfg.Dashboard.DefaultLookback = string(model.Lookback1y)
	}
	if cfg.Dashboard.MaxHorizon == 0 {
		cfg.Dashboard.MaxHorizon = 365
	}
	if cfg.Schedule.ReportCron == "" {
		cfg.Schedule.ReportCron = "0 30 22 * * 1-5"
	}
	if cfg.Schedule.ReportLookback == "" {
		cfg.Schedule.ReportLookback = string(model.Lookback1mo)
	}
	if len(cfg.Schedule.Watchlist) == 0 {
		cfg.Schedule.Watchlist = []string{"QQQ", "SPY"}
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}

	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	switch c.DataSource.Provider {
	case "yahoo", "mock":
	case "rest":
		if c.DataSource.BaseURL == "" {
			return fmt.Errorf("data_source.base_url is required for the rest provider")
		}
	default:
		return fmt.Errorf("data_source.provider %q is not one of yahoo, rest, mock", c.DataSource.Provider)
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("server.rate_limit must not be negative")
	}
	if c.Metrics.TradingDays <= 0 {
		return fmt.Errorf("metrics.trading_days must be positive")
	}
	if c.Dashboard.DefaultPrincipal < 0 {
		return fmt.Errorf("dashboard.default_principal must not be negative")
	}
	if _, err := model.ParseLookback(c.Dashboard.DefaultLookback); err != nil {
		return fmt.Errorf("dashboard.default_lookback: %w", err)
	}
	if _, err := model.ParseLookback(c.Schedule.ReportLookback); err != nil {
		return fmt.Errorf("schedule.report_lookback: %w", err)
	}
	if c.Dashboard.DefaultHorizon < 0 || c.Dashboard.MaxHorizon <= 0 || c.Dashboard.DefaultHorizon > c.Dashboard.MaxHorizon {
		return fmt.Errorf("dashboard horizon must satisfy 0 <= default_horizon <= max_horizon")
	}
	if c.Dashboard.MAWindow < 0 {
		return fmt.Errorf("dashboard.ma_window must not be negative")
	}
	if c.TelegramEnabled() {
		if _, err := c.TelegramChatID(); err != nil {
			return err
		}
	}
	return nil
}

// Timeout returns the data source request timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.DataSource.TimeoutSeconds) * time.Second
}

// TelegramEnabled reports whether a bot token is configured.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != ""
}

// TelegramChatID parses the configured chat id.
func (c *Config) TelegramChatID() (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(c.Telegram.ChatID), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("telegram.chat_id must be numeric: %w", err)
	}
	return id, nil
}
