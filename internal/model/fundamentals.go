package model

import "time"

// ValueKind tags the variant held by a Value.
type ValueKind int

const (
	KindAbsent ValueKind = iota
	KindNumber
	KindText
	KindDate
)

// Value is an optional fundamentals field.
type Value struct {
	Kind   ValueKind
	Number float64
	Text   string
	Date   time.Time
}

func Absent() Value               { return Value{Kind: KindAbsent} }
func NumberValue(v float64) Value { return Value{Kind: KindNumber, Number: v} }
func TextValue(s string) Value    { return Value{Kind: KindText, Text: s} }
func DateValue(d time.Time) Value { return Value{Kind: KindDate, Date: d} }

// IsAbsent reports whether the field has no value.
func (v Value) IsAbsent() bool { return v.Kind == KindAbsent }

// Metric enumerates the fundamentals shown on the dashboard.
type Metric string

const (
	MetricMarketCap      Metric = "Market Cap"
	MetricPERatio        Metric = "PE Ratio (TTM)"
	MetricForwardPE      Metric = "Forward PE"
	MetricPriceToBook    Metric = "Price to Book"
	MetricProfitMargin   Metric = "Profit Margin"
	MetricReturnOnEquity Metric = "Return on Equity"
	MetricEPS            Metric = "EPS (TTM)"
	MetricBeta           Metric = "Beta"
	MetricDividendYield  Metric = "Dividend Yield"
	MetricEarningsDate   Metric = "Earnings Date"
)

// Metrics returns every metric in display order.
func Metrics() []Metric {
	return []Metric{
		MetricMarketCap,
		MetricPERatio,
		MetricForwardPE,
		MetricPriceToBook,
		MetricProfitMargin,
		MetricReturnOnEquity,
		MetricEPS,
		MetricBeta,
		MetricDividendYield,
		MetricEarningsDate,
	}
}

// Profile holds descriptive company fields.
type Profile struct {
	Sector   Value
	Industry Value
	Website  Value
	Summary  Value
}

// Fundamentals is the result of a fundamentals lookup.
type Fundamentals struct {
	Ticker  string
	Name    string
	Metrics map[Metric]Value
	Profile Profile
}

// NewFundamentals returns a Fundamentals with every field absent.
func NewFundamentals(ticker string) *Fundamentals {
	f := &Fundamentals{Ticker: ticker, Metrics: make(map[Metric]Value, len(Metrics()))}
	for _, m := range Metrics() {
		f.Metrics[m] = Absent()
	}
	f.Profile = Profile{Sector: Absent(), Industry: Absent(), Website: Absent(), Summary: Absent()}
	return f
}

// Get returns the value of m, Absent if unknown.
func (f *Fundamentals) Get(m Metric) Value {
	if f == nil || f.Metrics == nil {
		return Absent()
	}
	v, ok := f.Metrics[m]
	if !ok {
		return Absent()
	}
	return v
}
