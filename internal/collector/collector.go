package collector

import (
	"context"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/guregu/null/v6"

	"StockLens/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Table           *model.PriceTable
	Fundamentals    *model.Fundamentals
	PriceErr        error
	FundamentalsErr error
	// Price seeds a generated table when Table is nil.
	Price float64

	mu    sync.Mutex
	calls []string
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) record(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
}

// Calls returns the recorded calls in order.
func (m *MockFetcher) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func (m *MockFetcher) FetchPrices(_ context.Context, ticker string, start, end time.Time) (*model.PriceTable, error) {
	m.record("prices:" + ticker)
	if m.PriceErr != nil {
		return nil, m.PriceErr
	}
	if m.Table != nil {
		return m.Table, nil
	}
	t := GenerateMockTable(ticker, m.Price, start, end)
	if t.IsEmpty() {
		return nil, ErrEmptyResult
	}
	return t, nil
}

func (m *MockFetcher) FetchFundamentals(_ context.Context, ticker string) (*model.Fundamentals, error) {
	m.record("fundamentals:" + ticker)
	if m.FundamentalsErr != nil {
		return nil, m.FundamentalsErr
	}
	if m.Fundamentals != nil {
		return m.Fundamentals, nil
	}
	return model.NewFundamentals(strings.ToUpper(ticker)), nil
}

// GenerateMockTable builds a weekday price table with hierarchical
// [field, ticker] labels between start (inclusive) and end (exclusive).
func GenerateMockTable(ticker string, basePrice float64, start, end time.Time) *model.PriceTable {
	sym := strings.ToUpper(ticker)
	fields := []string{"Adj Close", "Close", "High", "Low", "Open", "Volume"}
	t := &model.PriceTable{Ticker: sym, Columns: make([]model.Column, len(fields))}
	for j, name := range fields {
		t.Columns[j].Label = []string{name, sym}
	}
	i := 0
	for d := start; d.Before(end); d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		p := basePrice * (1 + 0.01*math.Sin(float64(i)/5) + float64(i)*0.0005)
		values := []float64{p * 0.99, p, p * 1.005, p * 0.995, p * 0.999, 1000000}
		t.Index = append(t.Index, d)
		for j, v := range values {
			t.Columns[j].Values = append(t.Columns[j].Values, null.FloatFrom(v))
		}
		i++
	}
	return t
}
