package collector

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/guregu/null/v6"

	"StockLens/internal/model"
)

const (
	yahooBaseURL   = "https://query1.finance.yahoo.com"
	yahooCookieURL = "https://fc.yahoo.com"
)

// YahooFetcher implements Fetcher using Yahoo Finance public API.
type YahooFetcher struct {
	Client  *http.Client
	BaseURL string
	// AutoAdjust folds the adjusted close into Close and drops the Adj Close column.
	AutoAdjust bool
	SymbolMap  map[string]string // maps internal symbol to Yahoo ticker
	// CookieURL issues the session cookie the crumb is bound to. Empty
	// disables the handshake.
	CookieURL string

	mu    sync.Mutex
	crumb string
}

// NewYahooFetcher creates a new Yahoo Finance fetcher.
func NewYahooFetcher(proxyURL string, autoAdjust bool) *YahooFetcher {
	client := newHTTPClient(proxyURL)
	// cookiejar.New only fails on a bad PublicSuffixList option
	client.Jar, _ = cookiejar.New(nil)
	return &YahooFetcher{
		Client:     client,
		BaseURL:    yahooBaseURL,
		CookieURL:  yahooCookieURL,
		AutoAdjust: autoAdjust,
		SymbolMap: map[string]string{
			"SPX500": "^GSPC",
			"SPX":    "^GSPC",
			"SP500":  "^GSPC",
		},
	}
}

func (f *YahooFetcher) Name() string { return "yahoo" }

func (f *YahooFetcher) yahooSymbol(symbol string) string {
	if mapped, ok := f.SymbolMap[symbol]; ok {
		return mapped
	}
	return symbol
}

// yahooChart is the response structure from Yahoo Finance chart API.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol               string `json:"symbol"`
				ExchangeTimezoneName string `json:"exchangeTimezoneName"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
				AdjClose []struct {
					AdjClose []*float64 `json:"adjclose"`
				} `json:"adjclose"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func at(vals []*float64, i int) null.Float {
	if i >= len(vals) {
		return null.Float{}
	}
	return null.FloatFromPtr(vals[i])
}

// FetchPrices downloads daily bars and returns them with hierarchical
// [field, ticker] labels.
func (f *YahooFetcher) FetchPrices(ctx context.Context, ticker string, start, end time.Time) (*model.PriceTable, error) {
	q := url.Values{}
	q.Set("period1", strconv.FormatInt(start.Unix(), 10))
	q.Set("period2", strconv.FormatInt(end.Unix(), 10))
	q.Set("interval", "1d")
	q.Set("includeAdjustedClose", "true")
	q.Set("events", "div,split")
	u := fmt.Sprintf("%s/v8/finance/chart/%s?%s", f.BaseURL, url.PathEscape(f.yahooSymbol(ticker)), q.Encode())

	var chart yahooChart
	if err := getJSON(ctx, f.Client, u, &chart); err != nil {
		var se *statusError
		if errors.As(err, &se) && se.Code == http.StatusNotFound {
			return nil, ErrEmptyResult
		}
		return nil, fmt.Errorf("yahoo chart: %w", err)
	}
	if chart.Chart.Error != nil {
		if strings.EqualFold(chart.Chart.Error.Code, "Not Found") {
			return nil, ErrEmptyResult
		}
		return nil, fmt.Errorf("yahoo api error: %s", chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Timestamp) == 0 ||
		len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, ErrEmptyResult
	}

	result := chart.Chart.Result[0]
	quote := result.Indicators.Quote[0]
	var adj []*float64
	if len(result.Indicators.AdjClose) > 0 {
		adj = result.Indicators.AdjClose[0].AdjClose
	}

	loc := time.UTC
	if result.Meta.ExchangeTimezoneName != "" {
		if l, err := time.LoadLocation(result.Meta.ExchangeTimezoneName); err == nil {
			loc = l
		}
	}

	sym := strings.ToUpper(ticker)
	fields := []string{"Adj Close", "Close", "High", "Low", "Open", "Volume"}
	series := map[string][]*float64{
		"Adj Close": adj,
		"Close":     quote.Close,
		"High":      quote.High,
		"Low":       quote.Low,
		"Open":      quote.Open,
		"Volume":    quote.Volume,
	}
	if f.AutoAdjust {
		fields = fields[1:]
		if adj != nil {
			series["Close"] = adj
		}
	} else if adj == nil {
		// no adjusted series for this instrument
		fields = fields[1:]
	}

	table := &model.PriceTable{Ticker: sym}
	cols := make([]model.Column, len(fields))
	for j, name := range fields {
		cols[j].Label = []string{name, sym}
	}
	for i, ts := range result.Timestamp {
		if !at(quote.Open, i).Valid && !at(quote.High, i).Valid &&
			!at(quote.Low, i).Valid && !at(quote.Close, i).Valid {
			continue // skip null bars (holidays etc.)
		}
		d := time.Unix(ts, 0).In(loc)
		table.Index = append(table.Index, time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC))
		for j, name := range fields {
			cols[j].Values = append(cols[j].Values, at(series[name], i))
		}
	}
	if table.IsEmpty() {
		return nil, ErrEmptyResult
	}
	table.Columns = cols
	return table, nil
}
