// Package scheduler refreshes the watchlist on a cron schedule and answers
// chat commands.
package scheduler

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"StockLens/internal/dashboard"
	"StockLens/internal/logger"
	"StockLens/internal/notifier"
)

const helpText = "Available commands:\n" +
	"• /quote TICKER [START [END]]: dashboard digest, dates as YYYY-MM-DD\n" +
	"• /watchlist: refresh every watched ticker\n" +
	"• /help: this message"

// Scheduler manages the watchlist refresh task.
type Scheduler struct {
	Cron        *cron.Cron
	Builder     *dashboard.Builder
	Notifier    notifier.Notifier
	Watchlist   []string
	Concurrency int
	Log         *logger.Logger
	Ctx         context.Context
}

// NewScheduler creates a new Scheduler. The notifier may be nil, in which
// case refreshed pages are only logged.
func NewScheduler(ctx context.Context, b *dashboard.Builder, n notifier.Notifier, watchlist []string, concurrency int, log *logger.Logger) *Scheduler {
	if log == nil {
		log = logger.Nop()
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &Scheduler{
		Cron:        cron.New(cron.WithSeconds()),
		Builder:     b,
		Notifier:    n,
		Watchlist:   watchlist,
		Concurrency: concurrency,
		Log:         log.WithComponent("scheduler"),
		Ctx:         ctx,
	}
}

// RegisterAll registers the watchlist refresh task.
func (s *Scheduler) RegisterAll(refreshCron string) error {
	if _, err := s.Cron.AddFunc(refreshCron, func() { s.RunNow(s.Ctx) }); err != nil {
		return fmt.Errorf("register refresh task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.Log.Info("scheduler started", zap.Int("entries", len(s.Cron.Entries())))
}

// Stop stops the cron scheduler and waits for a running refresh to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.Log.Info("scheduler stopped")
}

// RunNow refreshes every watched ticker and returns the pages in watchlist order.
func (s *Scheduler) RunNow(ctx context.Context) []*dashboard.Page {
	log := s.Log.WithOperation("refresh")
	log.Info("refreshing watchlist", zap.Strings("tickers", s.Watchlist))

	pages := make([]*dashboard.Page, len(s.Watchlist))
	var g errgroup.Group
	g.SetLimit(s.Concurrency)
	for i, ticker := range s.Watchlist {
		g.Go(func() error {
			req, err := s.Builder.ParseRequest(ticker, "", "")
			if err != nil {
				log.Warn("skip ticker", zap.String("ticker", ticker), zap.Error(err))
				return nil
			}
			page := s.Builder.Build(ctx, req)
			pages[i] = page
			s.deliver(ctx, page, log)
			return nil
		})
	}
	_ = g.Wait()

	out := pages[:0]
	for _, p := range pages {
		if p != nil {
			out = append(out, p)
		}
	}
	log.Info("watchlist refreshed", zap.Int("pages", len(out)))
	return out
}

func (s *Scheduler) deliver(ctx context.Context, page *dashboard.Page, log *logger.Logger) {
	if a, ok := page.FirstError(); ok {
		log.Warn("page has errors", zap.String("ticker", page.Ticker), zap.String("alert", a.Message))
	}
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.Send(ctx, notifier.FormatDigest(page)); err != nil {
		log.Error("send digest failed", zap.String("ticker", page.Ticker), zap.Error(err))
	}
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return helpText
	}
	// commands in groups arrive as /quote@BotName
	name, _, _ := strings.Cut(fields[0], "@")

	switch strings.ToLower(name) {
	case "/quote":
		if len(fields) < 2 || len(fields) > 4 {
			return "Usage: /quote TICKER [START [END]]"
		}
		args := append(fields[1:], "", "")
		req, err := s.Builder.ParseRequest(args[0], args[1], args[2])
		if err != nil {
			return "❌ " + html.EscapeString(err.Error())
		}
		return notifier.FormatDigest(s.Builder.Build(ctx, req))
	case "/watchlist":
		if len(s.Watchlist) == 0 {
			return "Watchlist is empty."
		}
		// digests are delivered per ticker
		s.RunNow(ctx)
		return ""
	default:
		return helpText
	}
}
