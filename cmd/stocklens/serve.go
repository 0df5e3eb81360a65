package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/subcommands"
	"go.uber.org/zap"

	"StockLens/internal/server"
)

type serveCmd struct {
	addr string
}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "serve the dashboard JSON API" }
func (*serveCmd) Usage() string {
	return `stocklens serve [-addr :8080]

  Serves GET /api/v1/dashboard/{ticker} until interrupted.
`
}

func (c *serveCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.addr, "addr", "", "listen address (defaults to server.addr)")
}

func (c *serveCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp()
	if err != nil {
		return fail("%v", err)
	}
	defer a.log.Sync()

	addr := a.cfg.Server.Addr
	if c.addr != "" {
		addr = c.addr
	}
	srv := server.New(a.builder, a.log).HTTPServer(addr)

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			a.log.Error("server error", zap.Error(err))
			return subcommands.ExitFailure
		}
	case <-ctx.Done():
		a.log.Info("shutdown signal received, shutting down gracefully")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("server shutdown error", zap.Error(err))
		return subcommands.ExitFailure
	}
	a.log.Info("server stopped")
	return subcommands.ExitSuccess
}
