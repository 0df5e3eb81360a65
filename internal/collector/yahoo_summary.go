package collector

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PaesslerAG/jsonpath"

	"StockLens/internal/model"
)

const summaryModules = "price,summaryDetail,defaultKeyStatistics,financialData,assetProfile,calendarEvents"

// metricPaths lists, per metric, the quoteSummary paths to try in order.
var metricPaths = map[model.Metric][]string{
	model.MetricMarketCap:      {"price.marketCap.raw", "summaryDetail.marketCap.raw"},
	model.MetricPERatio:        {"summaryDetail.trailingPE.raw"},
	model.MetricForwardPE:      {"summaryDetail.forwardPE.raw", "defaultKeyStatistics.forwardPE.raw"},
	model.MetricPriceToBook:    {"defaultKeyStatistics.priceToBook.raw"},
	model.MetricProfitMargin:   {"financialData.profitMargins.raw", "defaultKeyStatistics.profitMargins.raw"},
	model.MetricReturnOnEquity: {"financialData.returnOnEquity.raw"},
	model.MetricEPS:            {"defaultKeyStatistics.trailingEps.raw"},
	model.MetricBeta:           {"summaryDetail.beta.raw", "defaultKeyStatistics.beta.raw"},
	model.MetricDividendYield:  {"summaryDetail.dividendYield.raw"},
}

const earningsDatePath = "calendarEvents.earnings.earningsDate[0].raw"

// FetchFundamentals loads key metrics and the company profile from the
// quoteSummary endpoint. Fields missing from the payload are left absent.
func (f *YahooFetcher) FetchFundamentals(ctx context.Context, ticker string) (*model.Fundamentals, error) {
	q := url.Values{}
	q.Set("modules", summaryModules)
	crumb, err := f.sessionCrumb(ctx)
	if err != nil {
		return nil, fmt.Errorf("yahoo quoteSummary: %w", err)
	}
	if crumb != "" {
		q.Set("crumb", crumb)
	}
	u := fmt.Sprintf("%s/v10/finance/quoteSummary/%s?%s", f.BaseURL, url.PathEscape(f.yahooSymbol(ticker)), q.Encode())

	var doc map[string]any
	if err := getJSON(ctx, f.Client, u, &doc); err != nil {
		var se *statusError
		if errors.As(err, &se) && se.Code == http.StatusUnauthorized {
			// next call repeats the handshake
			f.resetCrumb()
		}
		if msg := summaryError(doc); msg != "" {
			return nil, fmt.Errorf("yahoo quoteSummary: %s", msg)
		}
		return nil, fmt.Errorf("yahoo quoteSummary: %w", err)
	}
	if msg := summaryError(doc); msg != "" {
		return nil, fmt.Errorf("yahoo quoteSummary: %s", msg)
	}
	result, ok := lookup(doc, "$.quoteSummary.result[0]")
	if !ok {
		return nil, errors.New("yahoo quoteSummary: empty result")
	}
	return parseSummary(strings.ToUpper(ticker), result), nil
}

func summaryError(doc map[string]any) string {
	v, ok := lookup(doc, "$.quoteSummary.error.description")
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

func parseSummary(ticker string, result any) *model.Fundamentals {
	fund := model.NewFundamentals(ticker)
	for metric, paths := range metricPaths {
		for _, p := range paths {
			if n, ok := lookupNumber(result, "$."+p); ok {
				fund.Metrics[metric] = model.NumberValue(n)
				break
			}
		}
	}
	if ts, ok := lookupNumber(result, "$."+earningsDatePath); ok {
		fund.Metrics[model.MetricEarningsDate] = model.DateValue(time.Unix(int64(ts), 0).UTC())
	}

	fund.Profile.Sector = lookupText(result, "$.assetProfile.sector")
	fund.Profile.Industry = lookupText(result, "$.assetProfile.industry")
	fund.Profile.Website = lookupText(result, "$.assetProfile.website")
	fund.Profile.Summary = lookupText(result, "$.assetProfile.longBusinessSummary")
	if name := lookupText(result, "$.price.longName"); !name.IsAbsent() {
		fund.Name = name.Text
	} else if name := lookupText(result, "$.price.shortName"); !name.IsAbsent() {
		fund.Name = name.Text
	}
	return fund
}

// lookup evaluates a JSONPath against a decoded document. A single-element
// list result is unwrapped.
func lookup(doc any, path string) (any, bool) {
	if doc == nil {
		return nil, false
	}
	v, err := jsonpath.Get(path, doc)
	if err != nil || v == nil {
		return nil, false
	}
	if list, ok := v.([]any); ok {
		if len(list) == 0 {
			return nil, false
		}
		v = list[0]
	}
	return v, v != nil
}

func lookupNumber(doc any, path string) (float64, bool) {
	v, ok := lookup(doc, path)
	if !ok {
		return 0, false
	}
	n, ok := v.(float64)
	return n, ok
}

func lookupText(doc any, path string) model.Value {
	v, ok := lookup(doc, path)
	if !ok {
		return model.Absent()
	}
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return model.Absent()
	}
	return model.TextValue(s)
}
