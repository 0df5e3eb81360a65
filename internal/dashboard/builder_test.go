package dashboard

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/guregu/null/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockLens/internal/collector"
	"StockLens/internal/model"
)

var (
	jan1  = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	today = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
)

func newTestBuilder(f collector.Fetcher) *Builder {
	b := NewBuilder(f, 252, 10, jan1, nil)
	b.Now = func() time.Time { return today }
	return b
}

func table(labels [][]string, rows ...[]float64) *model.PriceTable {
	t := &model.PriceTable{Ticker: "TEST"}
	for i := range rows {
		t.Index = append(t.Index, jan1.AddDate(0, 0, i))
	}
	for j, l := range labels {
		col := model.Column{Label: l}
		for _, r := range rows {
			col.Values = append(col.Values, null.FloatFrom(r[j]))
		}
		t.Columns = append(t.Columns, col)
	}
	return t
}

func closesTable(label []string, values ...float64) *model.PriceTable {
	rows := make([][]float64, len(values))
	for i, v := range values {
		rows[i] = []float64{v}
	}
	return table([][]string{label}, rows...)
}

func request() Request {
	return Request{Ticker: "TEST", Start: jan1, End: jan1.AddDate(0, 1, 0)}
}

func TestBuild_HappyPath(t *testing.T) {
	fund := model.NewFundamentals("TEST")
	fund.Metrics[model.MetricBeta] = model.NumberValue(1.2)
	f := &collector.MockFetcher{
		Table:        closesTable([]string{"Adj Close", "TEST"}, 100, 102, 101, 105, 110),
		Fundamentals: fund,
	}
	page := newTestBuilder(f).Build(context.Background(), request())

	assert.False(t, page.Halted)
	assert.Empty(t, page.Alerts)
	assert.Equal(t, "mock", page.Provider)
	assert.Equal(t, "Adj Close TEST", page.Selection.Label)
	assert.False(t, page.Selection.UsedFallback)
	assert.Len(t, page.Returns, 4)
	assert.Len(t, page.Recent, 4)
	assert.InDelta(t, 0.02, page.Returns[0].Value, 1e-9)
	assert.Greater(t, page.Summary.RiskAdjustedReturn, 0.0)
	require.NotNil(t, page.Range)
	assert.Equal(t, 110.0, page.Range.Last)
	assert.Same(t, fund, page.Fundamentals)

	last, ok := page.LastClose()
	require.True(t, ok)
	assert.Equal(t, 110.0, last.Close)
}

func TestBuild_FallbackCloseWarns(t *testing.T) {
	f := &collector.MockFetcher{Table: table(
		[][]string{{"Open", "X"}, {"Close", "X"}},
		[]float64{1, 100}, []float64{1, 101}, []float64{1, 99},
	)}
	page := newTestBuilder(f).Build(context.Background(), request())

	assert.False(t, page.Halted)
	require.True(t, page.HasAlert(AlertFallbackCloseColumn))
	assert.Equal(t, "Close X", page.Selection.Label)
	assert.True(t, page.Selection.UsedFallback)
	assert.Equal(t, "'Adj Close' not found. Using 'Close X' instead.", page.Alerts[0].Message)
	assert.Equal(t, SeverityWarning, page.Alerts[0].Severity)
	_, hasErr := page.FirstError()
	assert.False(t, hasErr)
}

func TestBuild_MissingCloseHalts(t *testing.T) {
	f := &collector.MockFetcher{Table: table(
		[][]string{{"Open", "X"}, {"High", "X"}, {"Low", "X"}, {"Volume", "X"}},
		[]float64{1, 2, 0.5, 1000},
	)}
	page := newTestBuilder(f).Build(context.Background(), request())

	assert.True(t, page.Halted)
	alert, ok := page.FirstError()
	require.True(t, ok)
	assert.Equal(t, AlertMissingCloseColumn, alert.Kind)
	assert.Equal(t, []string{"Open X", "High X", "Low X", "Volume X"}, alert.Columns)
	assert.Nil(t, page.Returns)
	assert.Nil(t, page.Fundamentals)
}

func TestBuild_EmptyResultHalts(t *testing.T) {
	tests := []struct {
		name string
		f    *collector.MockFetcher
	}{
		{"sentinel", &collector.MockFetcher{PriceErr: collector.ErrEmptyResult}},
		{"wrapped", &collector.MockFetcher{PriceErr: errors.Join(errors.New("yahoo"), collector.ErrEmptyResult)}},
		{"zero rows", &collector.MockFetcher{Table: &model.PriceTable{}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := newTestBuilder(tt.f).Build(context.Background(), request())
			assert.True(t, page.Halted)
			require.Len(t, page.Alerts, 1)
			assert.Equal(t, AlertEmptyResult, page.Alerts[0].Kind)
			assert.True(t, math.IsNaN(page.Summary.AnnualizedReturnPct))
		})
	}
}

func TestBuild_PriceFailureHalts(t *testing.T) {
	f := &collector.MockFetcher{PriceErr: errors.New("connection reset")}
	page := newTestBuilder(f).Build(context.Background(), request())
	assert.True(t, page.Halted)
	assert.True(t, page.HasAlert(AlertFetchFailure))
	assert.Contains(t, page.Alerts[0].Message, "connection reset")
}

func TestBuild_FundamentalsFailureIsContained(t *testing.T) {
	f := &collector.MockFetcher{
		Table:           closesTable([]string{"Adj Close"}, 10, 11, 12),
		FundamentalsErr: errors.New("quote not found"),
	}
	page := newTestBuilder(f).Build(context.Background(), request())

	assert.False(t, page.Halted)
	assert.Nil(t, page.Fundamentals)
	assert.Len(t, page.Returns, 2)
	alert, ok := page.FirstError()
	require.True(t, ok)
	assert.Equal(t, AlertFundamentalsFailure, alert.Kind)
	assert.Equal(t, "Failed to load fundamentals: quote not found", alert.Message)
	assert.ElementsMatch(t, []string{"prices:TEST", "fundamentals:TEST"}, f.Calls())
}

func TestBuild_FlatSeriesHasUndefinedRatio(t *testing.T) {
	f := &collector.MockFetcher{Table: closesTable([]string{"Adj Close"}, 100, 100, 100, 100)}
	page := newTestBuilder(f).Build(context.Background(), request())
	assert.False(t, page.Halted)
	assert.True(t, math.IsNaN(page.Summary.RiskAdjustedReturn))
	assert.InDelta(t, 0, page.Summary.AnnualizedStdevPct, 1e-9)
}

func TestParseRequest(t *testing.T) {
	b := newTestBuilder(&collector.MockFetcher{})

	req, err := b.ParseRequest(" msft ", "", "")
	require.NoError(t, err)
	assert.Equal(t, "MSFT", req.Ticker)
	assert.Equal(t, jan1, req.Start)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), req.End)

	req, err = b.ParseRequest("aapl", "2023-01-01", "2023-06-30")
	require.NoError(t, err)
	assert.Equal(t, "2023-06-30", req.End.Format(time.DateOnly))

	for _, bad := range [][3]string{
		{"", "", ""},
		{"AAPL", "yesterday", ""},
		{"AAPL", "", "2024/01/01"},
		{"AAPL", "2024-02-01", "2024-01-01"},
	} {
		_, err := b.ParseRequest(bad[0], bad[1], bad[2])
		assert.ErrorIs(t, err, ErrInvalidRequest, "input %v", bad)
	}
}

// panickingFetcher fails inside the provider instead of returning an error.
type panickingFetcher struct {
	*collector.MockFetcher
	pricesPanic bool
}

func (p *panickingFetcher) FetchPrices(ctx context.Context, ticker string, start, end time.Time) (*model.PriceTable, error) {
	if p.pricesPanic {
		var m map[string]int
		m[ticker]++
	}
	return p.MockFetcher.FetchPrices(ctx, ticker, start, end)
}

func (p *panickingFetcher) FetchFundamentals(_ context.Context, ticker string) (*model.Fundamentals, error) {
	var m map[string]int
	m[ticker]++
	return nil, nil
}

func TestBuild_FundamentalsPanicIsContained(t *testing.T) {
	f := &panickingFetcher{MockFetcher: &collector.MockFetcher{Table: closesTable([]string{"Adj Close"}, 10, 11, 12)}}
	page := newTestBuilder(f).Build(context.Background(), request())

	assert.False(t, page.Halted)
	assert.Len(t, page.Returns, 2)
	assert.Nil(t, page.Fundamentals)
	alert, ok := page.FirstError()
	require.True(t, ok)
	assert.Equal(t, AlertFundamentalsFailure, alert.Kind)
	assert.Contains(t, alert.Message, "fundamentals provider panicked")
}

func TestBuild_PricePanicHalts(t *testing.T) {
	f := &panickingFetcher{MockFetcher: &collector.MockFetcher{}, pricesPanic: true}
	page := newTestBuilder(f).Build(context.Background(), request())

	assert.True(t, page.Halted)
	require.True(t, page.HasAlert(AlertFetchFailure))
	assert.Contains(t, page.Alerts[0].Message, "price provider panicked")
}

// slowFundamentals blocks until its context is cancelled.
type slowFundamentals struct {
	*collector.MockFetcher
}

func (s slowFundamentals) FetchFundamentals(ctx context.Context, _ string) (*model.Fundamentals, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(10 * time.Second):
		return nil, errors.New("fundamentals call was not cancelled")
	}
}

func TestBuild_HaltCancelsFundamentals(t *testing.T) {
	tests := []struct {
		name string
		mock *collector.MockFetcher
	}{
		{"price error", &collector.MockFetcher{PriceErr: errors.New("timeout")}},
		{"empty table", &collector.MockFetcher{Table: &model.PriceTable{}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			done := make(chan *Page, 1)
			go func() {
				done <- newTestBuilder(slowFundamentals{tt.mock}).Build(context.Background(), request())
			}()
			select {
			case page := <-done:
				assert.True(t, page.Halted)
				assert.Len(t, page.Alerts, 1)
			case <-time.After(5 * time.Second):
				t.Fatal("Build waited for fundamentals after prices failed")
			}
		})
	}
}
