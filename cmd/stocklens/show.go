package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"StockLens/internal/notifier"
)

type showCmd struct {
	start string
	end   string
	width int
	style string
	raw   bool
}

func (*showCmd) Name() string     { return "show" }
func (*showCmd) Synopsis() string { return "render the dashboard for one ticker" }
func (*showCmd) Usage() string {
	return `stocklens show [-start YYYY-MM-DD] [-end YYYY-MM-DD] [-raw] [TICKER]

  Fetches prices and fundamentals for TICKER (default from config) and
  renders the dashboard in the terminal.
`
}

func (c *showCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.start, "start", "", "first day of the range (defaults to dashboard.default_start)")
	f.StringVar(&c.end, "end", "", "day after the last day of the range (defaults to today)")
	f.IntVar(&c.width, "width", 100, "word wrap width")
	f.StringVar(&c.style, "style", "", "glamour style (dark, light, notty, ascii); empty picks one")
	f.BoolVar(&c.raw, "raw", false, "print markdown without rendering")
}

func (c *showCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if f.NArg() > 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	a, err := newApp()
	if err != nil {
		return fail("%v", err)
	}
	defer a.log.Sync()

	ticker := a.cfg.Dashboard.DefaultTicker
	if f.NArg() == 1 {
		ticker = f.Arg(0)
	}
	req, err := a.builder.ParseRequest(ticker, c.start, c.end)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}

	page := a.builder.Build(ctx, req)
	md := notifier.FormatPage(page)
	if c.raw {
		fmt.Print(md)
	} else {
		out, err := notifier.RenderTerminal(md, c.style, c.width)
		if err != nil {
			return fail("%v", err)
		}
		fmt.Print(out)
	}

	if page.Halted {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
