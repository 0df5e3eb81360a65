package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/subcommands"
	"go.uber.org/zap"

	"StockLens/internal/notifier"
	"StockLens/internal/scheduler"
)

type watchCmd struct {
	now bool
}

func (*watchCmd) Name() string     { return "watch" }
func (*watchCmd) Synopsis() string { return "refresh the watchlist on a schedule and answer Telegram commands" }
func (*watchCmd) Usage() string {
	return `stocklens watch [-now]

  Refreshes schedule.watchlist on schedule.refresh_cron. With Telegram
  configured, digests are sent to the chat and /quote commands are answered.
`
}

func (c *watchCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.now, "now", os.Getenv("RUN_ON_START") == "true", "refresh once immediately")
}

func (c *watchCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp()
	if err != nil {
		return fail("%v", err)
	}
	defer a.log.Sync()

	var tn *notifier.TelegramNotifier
	sched := scheduler.NewScheduler(ctx, a.builder, nil, a.cfg.Schedule.Watchlist, a.cfg.Schedule.Concurrency, a.log)
	if a.cfg.TelegramEnabled() {
		tn = notifier.NewTelegramNotifier(a.cfg.Telegram.BotToken, a.cfg.Telegram.ChatID, a.cfg.Proxy, a.log)
		sched.Notifier = tn
	} else {
		a.log.Warn("telegram not configured, digests are only logged")
	}

	if err := sched.RegisterAll(a.cfg.Schedule.RefreshCron); err != nil {
		return fail("register cron tasks: %v", err)
	}
	sched.Start()
	defer sched.Stop()

	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		a.log.Info("telegram polling started")
	}
	if c.now {
		go sched.RunNow(ctx)
	}

	a.log.Info("StockLens is running, press Ctrl+C to stop",
		zap.Strings("watchlist", a.cfg.Schedule.Watchlist),
		zap.String("cron", a.cfg.Schedule.RefreshCron),
	)
	<-ctx.Done()
	a.log.Info("shutdown signal received, stopping")
	return subcommands.ExitSuccess
}
