package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path"

	"github.com/google/subcommands"
	"github.com/joho/godotenv"

	"StockLens/internal/collector"
	"StockLens/internal/config"
	"StockLens/internal/dashboard"
	"StockLens/internal/logger"
)

var configPath string

func defaultConfigPath() string {
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		return v
	}
	return "configs/config.yaml"
}

var commands = []subcommands.Command{
	&showCmd{},
	&serveCmd{},
	&watchCmd{},
}

func main() {
	// .env is optional; real environment variables win
	_ = godotenv.Load()
	flag.StringVar(&configPath, "config", defaultConfigPath(), "path to the YAML config file")

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	for _, c := range commands {
		commander.Register(c, "")
	}

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}

// app holds the wiring shared by every command.
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	builder *dashboard.Builder
}

func newApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	log, err := logger.New(logger.Config{Level: cfg.Log.Level, Development: cfg.Log.Development})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	start, _ := cfg.StartDate()

	fetcher := newFetcher(cfg)
	builder := dashboard.NewBuilder(fetcher, cfg.Dashboard.PeriodsPerYear, cfg.Dashboard.TailRows, start, log)
	log.Sugar().Infof("data source: %s", fetcher.Name())
	return &app{cfg: cfg, log: log, builder: builder}, nil
}

func newFetcher(cfg *config.Config) collector.Fetcher {
	switch cfg.DataSource.Provider {
	case "alphavantage":
		return collector.NewAlphaVantageFetcher(cfg.DataSource.APIKey, cfg.Proxy)
	default:
		return collector.NewYahooFetcher(cfg.Proxy, cfg.DataSource.AutoAdjust)
	}
}

func fail(format string, args ...any) subcommands.ExitStatus {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	return subcommands.ExitFailure
}
