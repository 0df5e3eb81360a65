package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"net/http"
	"net/url"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/guregu/null/v6"

	"StockLens/internal/model"
)

const alphaVantageBaseURL = "https://www.alphavantage.co"

// AlphaVantageFetcher implements Fetcher using the Alpha Vantage REST API.
// Column labels are passed through as the API names them ("4. close",
// "5. adjusted close").
type AlphaVantageFetcher struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

// NewAlphaVantageFetcher creates a new fetcher with optional proxy support.
func NewAlphaVantageFetcher(apiKey, proxyURL string) *AlphaVantageFetcher {
	return &AlphaVantageFetcher{
		BaseURL: alphaVantageBaseURL,
		APIKey:  apiKey,
		Client:  newHTTPClient(proxyURL),
	}
}

func (f *AlphaVantageFetcher) Name() string { return "alphavantage" }

func (f *AlphaVantageFetcher) endpoint(params map[string]string) string {
	q := url.Values{}
	q.Set("apikey", f.APIKey)
	q.Set("datatype", "json")
	for k, v := range params {
		q.Set(k, v)
	}
	return fmt.Sprintf("%s/query?%s", f.BaseURL, q.Encode())
}

// apiMessage extracts the error or throttling message Alpha Vantage returns with status 200.
func apiMessage(raw map[string]json.RawMessage) string {
	for _, key := range []string{"Error Message", "Note", "Information"} {
		if msg, ok := raw[key]; ok {
			var s string
			if json.Unmarshal(msg, &s) == nil && s != "" {
				return s
			}
		}
	}
	return ""
}

// FetchPrices loads TIME_SERIES_DAILY_ADJUSTED and keeps rows with start <= date < end.
func (f *AlphaVantageFetcher) FetchPrices(ctx context.Context, ticker string, start, end time.Time) (*model.PriceTable, error) {
	addr := f.endpoint(map[string]string{
		"function":   "TIME_SERIES_DAILY_ADJUSTED",
		"symbol":     ticker,
		"outputsize": "full",
	})
	var raw map[string]json.RawMessage
	if err := getJSON(ctx, f.Client, addr, &raw); err != nil {
		return nil, fmt.Errorf("alphavantage daily: %w", err)
	}
	if msg := apiMessage(raw); msg != "" {
		if strings.Contains(msg, "Invalid API call") {
			return nil, ErrEmptyResult
		}
		return nil, fmt.Errorf("alphavantage api error: %s", msg)
	}

	body, ok := raw["Time Series (Daily)"]
	if !ok {
		return nil, ErrEmptyResult
	}
	var series map[string]map[string]string
	if err := json.Unmarshal(body, &series); err != nil {
		return nil, fmt.Errorf("alphavantage decode time series: %w", err)
	}

	dates := make([]time.Time, 0, len(series))
	byDate := make(map[time.Time]map[string]string, len(series))
	keys := map[string]bool{}
	for ds, values := range series {
		d, err := time.Parse(time.DateOnly, ds)
		if err != nil {
			return nil, fmt.Errorf("alphavantage parse date %q: %w", ds, err)
		}
		if d.Before(start) || !d.Before(end) {
			continue
		}
		dates = append(dates, d)
		byDate[d] = values
		for k := range values {
			keys[k] = true
		}
	}
	if len(dates) == 0 {
		return nil, ErrEmptyResult
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	// "1. open" < "2. high" < ... keeps the API's field order. The adjusted
	// series is labeled "5. adjusted close", which does not contain "adj close",
	// so close selection falls back to "4. close" and the page warns.
	labels := slices.Sorted(maps.Keys(keys))
	table := &model.PriceTable{Ticker: strings.ToUpper(ticker), Index: dates}
	for _, label := range labels {
		col := model.Column{Label: []string{label}, Values: make([]null.Float, len(dates))}
		for i, d := range dates {
			col.Values[i] = parseNumber(byDate[d][label])
		}
		table.Columns = append(table.Columns, col)
	}
	return table, nil
}

// alphaOverview is the subset of the OVERVIEW payload used for fundamentals.
type alphaOverview struct {
	Symbol               string `json:"Symbol"`
	Name                 string `json:"Name"`
	Description          string `json:"Description"`
	Sector               string `json:"Sector"`
	Industry             string `json:"Industry"`
	OfficialSite         string `json:"OfficialSite"`
	MarketCapitalization string `json:"MarketCapitalization"`
	PERatio              string `json:"PERatio"`
	ForwardPE            string `json:"ForwardPE"`
	PriceToBookRatio     string `json:"PriceToBookRatio"`
	ProfitMargin         string `json:"ProfitMargin"`
	ReturnOnEquityTTM    string `json:"ReturnOnEquityTTM"`
	EPS                  string `json:"EPS"`
	Beta                 string `json:"Beta"`
	DividendYield        string `json:"DividendYield"`
	ErrorMessage         string `json:"Error Message"`
	Note                 string `json:"Note"`
	Information          string `json:"Information"`
}

// FetchFundamentals loads the OVERVIEW endpoint. It carries no earnings date.
func (f *AlphaVantageFetcher) FetchFundamentals(ctx context.Context, ticker string) (*model.Fundamentals, error) {
	addr := f.endpoint(map[string]string{"function": "OVERVIEW", "symbol": ticker})
	var ov alphaOverview
	if err := getJSON(ctx, f.Client, addr, &ov); err != nil {
		return nil, fmt.Errorf("alphavantage overview: %w", err)
	}
	for _, msg := range []string{ov.ErrorMessage, ov.Note, ov.Information} {
		if msg != "" {
			return nil, fmt.Errorf("alphavantage api error: %s", msg)
		}
	}
	if ov.Symbol == "" {
		return nil, errors.New("alphavantage overview: no data for symbol")
	}

	fund := model.NewFundamentals(strings.ToUpper(ticker))
	fund.Name = ov.Name
	numbers := map[model.Metric]string{
		model.MetricMarketCap:      ov.MarketCapitalization,
		model.MetricPERatio:        ov.PERatio,
		model.MetricForwardPE:      ov.ForwardPE,
		model.MetricPriceToBook:    ov.PriceToBookRatio,
		model.MetricProfitMargin:   ov.ProfitMargin,
		model.MetricReturnOnEquity: ov.ReturnOnEquityTTM,
		model.MetricEPS:            ov.EPS,
		model.MetricBeta:           ov.Beta,
		model.MetricDividendYield:  ov.DividendYield,
	}
	for metric, s := range numbers {
		if n := parseNumber(s); n.Valid {
			fund.Metrics[metric] = model.NumberValue(n.Float64)
		}
	}
	fund.Profile.Sector = textOrAbsent(ov.Sector)
	fund.Profile.Industry = textOrAbsent(ov.Industry)
	fund.Profile.Website = textOrAbsent(ov.OfficialSite)
	fund.Profile.Summary = textOrAbsent(ov.Description)
	return fund, nil
}

// parseNumber reads a numeric string; "None", "-" and empty are absent.
func parseNumber(s string) null.Float {
	s = strings.TrimSpace(s)
	if s == "" || s == "None" || s == "-" {
		return null.Float{}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return null.Float{}
	}
	return null.FloatFrom(v)
}

func textOrAbsent(s string) model.Value {
	s = strings.TrimSpace(s)
	if s == "" || s == "None" || s == "-" {
		return model.Absent()
	}
	return model.TextValue(s)
}
