package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	DataSource struct {
		Provider   string `yaml:"provider"` // "yahoo" or "alphavantage"
		APIKey     string `yaml:"api_key"`
		AutoAdjust bool   `yaml:"auto_adjust"`
	} `yaml:"data_source"`
	Dashboard struct {
		DefaultTicker  string  `yaml:"default_ticker"`
		DefaultStart   string  `yaml:"default_start"`
		PeriodsPerYear float64 `yaml:"periods_per_year"`
		TailRows       int     `yaml:"tail_rows"`
	} `yaml:"dashboard"`
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
	Schedule struct {
		RefreshCron string   `yaml:"refresh_cron"`
		Watchlist   []string `yaml:"watchlist"`
		Concurrency int      `yaml:"concurrency"`
	} `yaml:"schedule"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Log struct {
		Level       string `yaml:"level"`
		Development bool   `yaml:"development"`
	} `yaml:"log"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}

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
	if v := os.Getenv("STOCKLENS_PROVIDER"); v != "" {
		cfg.DataSource.Provider = v
	}
	if v := os.Getenv("ALPHAVANTAGE_API_KEY"); v != "" {
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
	if v := os.Getenv("SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("REFRESH_CRON"); v != "" {
		cfg.Schedule.RefreshCron = v
	}
	if v := os.Getenv("WATCHLIST"); v != "" {
		cfg.Schedule.Watchlist = splitList(v)
	}
	if v := os.Getenv("PERIODS_PER_YEAR"); v != "" {
		var ppy float64
		if _, err := fmt.Sscanf(v, "%f", &ppy); err == nil {
			cfg.Dashboard.PeriodsPerYear = ppy
		}
	}

	// Defaults
	if cfg.DataSource.Provider == "" {
		cfg.DataSource.Provider = "yahoo"
	}
	cfg.DataSource.Provider = strings.ToLower(cfg.DataSource.Provider)
	if cfg.Dashboard.DefaultTicker == "" {
		cfg.Dashboard.DefaultTicker = "AAPL"
	}
	if cfg.Dashboard.DefaultStart == "" {
		cfg.Dashboard.DefaultStart = "2021-01-01"
	}
	if cfg.Dashboard.PeriodsPerYear == 0 {
		cfg.Dashboard.PeriodsPerYear = 252
	}
	if cfg.Dashboard.TailRows == 0 {
		cfg.Dashboard.TailRows = 10
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Schedule.RefreshCron == "" {
		cfg.Schedule.RefreshCron = "0 30 22 * * 1-5"
	}
	if cfg.Schedule.Concurrency == 0 {
		cfg.Schedule.Concurrency = 4
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	for i, t := range cfg.Schedule.Watchlist {
		cfg.Schedule.Watchlist[i] = strings.ToUpper(strings.TrimSpace(t))
	}

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// StartDate parses Dashboard.DefaultStart.
func (c *Config) StartDate() (time.Time, error) {
	return time.Parse(time.DateOnly, c.Dashboard.DefaultStart)
}

// TelegramEnabled reports whether both Telegram credentials are set.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	switch c.DataSource.Provider {
	case "yahoo":
	case "alphavantage":
		if c.DataSource.APIKey == "" {
			return fmt.Errorf("data_source.api_key is required for alphavantage")
		}
	default:
		return fmt.Errorf("data_source.provider %q is not supported", c.DataSource.Provider)
	}
	if _, err := c.StartDate(); err != nil {
		return fmt.Errorf("dashboard.default_start must be YYYY-MM-DD: %w", err)
	}
	if c.Dashboard.PeriodsPerYear <= 0 {
		return fmt.Errorf("dashboard.periods_per_year must be positive")
	}
	if c.Dashboard.TailRows <= 0 {
		return fmt.Errorf("dashboard.tail_rows must be positive")
	}
	if c.Schedule.Concurrency <= 0 {
		return fmt.Errorf("schedule.concurrency must be positive")
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	return nil
}
