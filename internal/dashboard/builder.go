// Package dashboard assembles a ticker page from a market data provider.
// Failures are recorded on the page as alerts instead of being returned.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"StockLens/internal/calculator"
	"StockLens/internal/collector"
	"StockLens/internal/logger"
	"StockLens/internal/model"
	"StockLens/internal/resolver"
)

// ErrInvalidRequest wraps every request validation failure.
var ErrInvalidRequest = errors.New("invalid request")

// Request selects a ticker and a [Start, End) date range.
type Request struct {
	Ticker string
	Start  time.Time
	End    time.Time
}

// Builder turns requests into pages.
type Builder struct {
	Fetcher        collector.Fetcher
	PeriodsPerYear float64
	TailRows       int
	DefaultStart   time.Time
	Log            *logger.Logger
	Now            func() time.Time
}

// NewBuilder creates a Builder with the given options.
func NewBuilder(fetcher collector.Fetcher, periodsPerYear float64, tailRows int, defaultStart time.Time, log *logger.Logger) *Builder {
	if log == nil {
		log = logger.Nop()
	}
	return &Builder{
		Fetcher:        fetcher,
		PeriodsPerYear: periodsPerYear,
		TailRows:       tailRows,
		DefaultStart:   defaultStart,
		Log:            log.WithComponent("dashboard"),
		Now:            time.Now,
	}
}

func (b *Builder) today() time.Time {
	now := b.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseRequest validates user input. Empty dates default to the configured
// start and today.
func (b *Builder) ParseRequest(ticker, start, end string) (Request, error) {
	req := Request{Ticker: strings.ToUpper(strings.TrimSpace(ticker))}
	if req.Ticker == "" {
		return req, fmt.Errorf("%w: ticker is required", ErrInvalidRequest)
	}

	req.Start = b.DefaultStart
	if start != "" {
		d, err := time.Parse(time.DateOnly, start)
		if err != nil {
			return req, fmt.Errorf("%w: start date %q: expected YYYY-MM-DD", ErrInvalidRequest, start)
		}
		req.Start = d
	}
	req.End = b.today()
	if end != "" {
		d, err := time.Parse(time.DateOnly, end)
		if err != nil {
			return req, fmt.Errorf("%w: end date %q: expected YYYY-MM-DD", ErrInvalidRequest, end)
		}
		req.End = d
	}
	if !req.Start.Before(req.End) {
		return req, fmt.Errorf("%w: start date must be before end date", ErrInvalidRequest)
	}
	return req, nil
}

// Build fetches prices and fundamentals concurrently and assembles the page.
func (b *Builder) Build(ctx context.Context, req Request) *Page {
	page := &Page{
		Ticker:      req.Ticker,
		Start:       req.Start,
		End:         req.End,
		Provider:    b.Fetcher.Name(),
		GeneratedAt: b.Now(),
		Summary:     model.NaNSummary(),
	}
	log := logger.Wrap(b.Log.With(zap.String("ticker", req.Ticker)))

	var (
		raw     *model.PriceTable
		fund    *model.Fundamentals
		fundErr error
	)
	// a failed price fetch cancels the fundamentals call
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		defer recoverAs(&err, "price provider")
		t, err := b.Fetcher.FetchPrices(gctx, req.Ticker, req.Start, req.End)
		if err == nil && t.IsEmpty() {
			err = collector.ErrEmptyResult
		}
		raw = t
		return err
	})
	g.Go(func() error {
		defer recoverAs(&fundErr, "fundamentals provider")
		fund, fundErr = b.Fetcher.FetchFundamentals(gctx, req.Ticker)
		return nil
	})
	priceErr := g.Wait()

	switch {
	case errors.Is(priceErr, collector.ErrEmptyResult):
		log.Warn("no price data", zap.Time("start", req.Start), zap.Time("end", req.End))
		page.halt(Alert{
			Severity: SeverityError,
			Kind:     AlertEmptyResult,
			Message:  "No data found. Try a different ticker or date range.",
		})
		return page
	case priceErr != nil:
		log.Error("fetch prices failed", zap.Error(priceErr))
		page.halt(Alert{
			Severity: SeverityError,
			Kind:     AlertFetchFailure,
			Message:  fmt.Sprintf("Failed to load prices: %v", priceErr),
		})
		return page
	}

	b.applyPricing(page, raw, log)
	if page.Halted {
		return page
	}
	b.applyFundamentals(page, fund, fundErr, log)

	log.Info("page built",
		zap.Int("rows", page.Table.Len()),
		zap.String("close_column", page.Selection.Label),
		zap.Bool("halted", page.Halted),
		zap.Int("alerts", len(page.Alerts)),
	)
	return page
}

func (b *Builder) applyPricing(page *Page, raw *model.PriceTable, log *logger.Logger) {
	table, sel, err := resolver.Resolve(raw)
	page.Table = table
	page.Selection = sel

	var missing *resolver.MissingCloseColumnError
	if errors.As(err, &missing) {
		log.Warn("no close column", zap.Strings("columns", missing.Available))
		page.halt(Alert{
			Severity: SeverityError,
			Kind:     AlertMissingCloseColumn,
			Message:  "Neither 'Adj Close' nor 'Close' found in data.",
			Columns:  missing.Available,
		})
		return
	}
	if sel.UsedFallback {
		page.addAlert(Alert{
			Severity: SeverityWarning,
			Kind:     AlertFallbackCloseColumn,
			Message:  fmt.Sprintf("'Adj Close' not found. Using '%s' instead.", sel.Label),
		})
	}

	page.Returns = calculator.ComputeReturnSeries(table, sel.Label)
	page.Summary = calculator.Summarize(page.Returns, b.PeriodsPerYear)
	page.Recent = calculator.RecentRows(table, sel.Label, b.TailRows)
	if r, err := calculator.CalculatePeriodRange(table, sel.Label); err != nil {
		log.Debug("period range unavailable", zap.Error(err))
	} else {
		page.Range = &r
	}
}

func (b *Builder) applyFundamentals(page *Page, fund *model.Fundamentals, err error, log *logger.Logger) {
	if err == nil && fund == nil {
		err = errors.New("provider returned no fundamentals")
	}
	if err != nil {
		log.Warn("fundamentals lookup failed", zap.Error(err))
		page.addAlert(Alert{
			Severity: SeverityError,
			Kind:     AlertFundamentalsFailure,
			Message:  fmt.Sprintf("Failed to load fundamentals: %v", err),
		})
		return
	}
	page.Fundamentals = fund
}

// recoverAs turns a provider panic into an error so it is shown as an alert.
func recoverAs(err *error, who string) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("%s panicked: %v", who, r)
	}
}
