package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"StockLens/internal/model"
)

// ErrEmptyResult is returned when the provider has no rows for the query.
var ErrEmptyResult = errors.New("no data found for ticker and date range")

// PriceFetcher loads daily price tables.
type PriceFetcher interface {
	// FetchPrices returns rows with start <= date < end.
	FetchPrices(ctx context.Context, ticker string, start, end time.Time) (*model.PriceTable, error)
}

// FundamentalsFetcher loads company fundamentals.
type FundamentalsFetcher interface {
	FetchFundamentals(ctx context.Context, ticker string) (*model.Fundamentals, error)
}

// Fetcher is a market data provider.
type Fetcher interface {
	PriceFetcher
	FundamentalsFetcher
	Name() string
}

const defaultTimeout = 30 * time.Second

// newHTTPClient returns a client with optional proxy support.
func newHTTPClient(proxyURL string) *http.Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &http.Client{
		Timeout:   defaultTimeout,
		Transport: transport,
	}
}

// statusError carries a non-200 response.
type statusError struct {
	Code int
	Body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("status %d, body: %s", e.Code, e.Body)
}

// getJSON issues a GET and decodes the body into v. Non-200 responses are
// returned as *statusError together with the raw body decoded into v when possible.
func getJSON(ctx context.Context, client *http.Client, addr string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		// error payloads are often JSON too
		_ = json.Unmarshal(body, v)
		return &statusError{Code: resp.StatusCode, Body: truncate(string(body), 200)}
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
