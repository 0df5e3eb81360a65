package notifier

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockLens/internal/dashboard"
	"StockLens/internal/model"
)

var day = time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

func samplePage() *dashboard.Page {
	fund := model.NewFundamentals("AAPL")
	fund.Name = "Apple Inc."
	fund.Metrics[model.MetricMarketCap] = model.NumberValue(2.5e12)
	fund.Metrics[model.MetricEarningsDate] = model.DateValue(time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC))
	fund.Profile.Sector = model.TextValue("Technology")

	return &dashboard.Page{
		Ticker:      "AAPL",
		Start:       day.AddDate(-1, 0, 0),
		End:         day,
		Provider:    "yahoo",
		GeneratedAt: day,
		Selection:   model.CloseColumnSelection{Label: "Adj Close AAPL", Found: true},
		Recent: []model.PriceRow{
			{Time: day.AddDate(0, 0, -1), Close: 170, ChangePct: -0.5},
			{Time: day, Close: 171.7, ChangePct: 1},
		},
		Summary: model.RiskSummary{
			AnnualizedReturnPct: 12.346,
			AnnualizedStdevPct:  20,
			RiskAdjustedReturn:  0.61725,
		},
		Range:        &model.PeriodRange{High: 200, Low: 150, Last: 171.7, Position: 0.434},
		Fundamentals: fund,
	}
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, NotAvailable, FormatValue(model.Absent()))
	assert.Equal(t, "1.50", FormatValue(model.NumberValue(1.5)))
	assert.Equal(t, "Technology", FormatValue(model.TextValue("Technology")))
	assert.Equal(t, "2024-05-02", FormatValue(model.DateValue(time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC))))
}

func TestFormatPage(t *testing.T) {
	out := FormatPage(samplePage())

	assert.Contains(t, out, "# 📊 AAPL Stock Dashboard")
	assert.Contains(t, out, "**Apple Inc.**")
	assert.Contains(t, out, "| Date | Adj Close AAPL | % Change |")
	assert.Contains(t, out, "| 2024-03-15 | 171.70 | 1.00% |")
	assert.Contains(t, out, "| 📈 Annual Return | 12.35% |")
	assert.Contains(t, out, "| 📊 Standard Deviation | 20.00% |")
	assert.Contains(t, out, "| ⚖️ Risk-Adjusted Return | 0.62 |")
	assert.Contains(t, out, "- **Market Cap:** 2500000000000.00")
	assert.Contains(t, out, "- **Earnings Date:** 2024-05-02")
	assert.Contains(t, out, "- **Sector:** Technology")
	assert.Contains(t, out, "- **Industry:** Not available")
	assert.Contains(t, out, "**Summary:** Not available")
}

func TestFormatPage_UndefinedRatio(t *testing.T) {
	p := samplePage()
	p.Summary.RiskAdjustedReturn = math.NaN()
	assert.Contains(t, FormatPage(p), "| ⚖️ Risk-Adjusted Return | NaN |")
}

func TestFormatPage_Halted(t *testing.T) {
	p := &dashboard.Page{
		Ticker: "XYZ",
		Alerts: []dashboard.Alert{{
			Severity: dashboard.SeverityError,
			Kind:     dashboard.AlertMissingCloseColumn,
			Message:  "Neither 'Adj Close' nor 'Close' found in data.",
			Columns:  []string{"Open XYZ", "Volume XYZ"},
		}},
		Halted: true,
	}
	out := FormatPage(p)
	assert.Contains(t, out, "❌ Neither 'Adj Close' nor 'Close' found in data.")
	assert.Contains(t, out, "Available columns: `Open XYZ`, `Volume XYZ`")
	assert.NotContains(t, out, "Price Movements")
	assert.NotContains(t, out, "Fundamental Data")
}

func TestFormatPage_FundamentalsFailure(t *testing.T) {
	p := samplePage()
	p.Fundamentals = nil
	p.Alerts = []dashboard.Alert{{Severity: dashboard.SeverityError, Message: "Failed to load fundamentals: boom"}}
	out := FormatPage(p)
	assert.Contains(t, out, "Price Movements")
	assert.Contains(t, out, "❌ Failed to load fundamentals: boom")
	assert.NotContains(t, out, "Key Metrics")
}

func TestFormatDigest(t *testing.T) {
	p := samplePage()
	p.Alerts = []dashboard.Alert{{Severity: dashboard.SeverityWarning, Message: "'Adj Close' not found. Using 'Close <X>' instead."}}
	out := FormatDigest(p)

	assert.True(t, strings.HasPrefix(out, "📊 <b>AAPL</b> | 2024-03-15"))
	assert.Contains(t, out, "Last close 2024-03-15: 171.70 (+1.00%)")
	assert.Contains(t, out, "Risk-Adjusted: 0.62")
	assert.Contains(t, out, "⚠️ 'Adj Close' not found. Using 'Close &lt;X&gt;' instead.")
}

func TestRenderTerminal(t *testing.T) {
	out, err := RenderTerminal(FormatPage(samplePage()), "notty", 100)
	require.NoError(t, err)
	assert.Contains(t, out, "AAPL")
	assert.Contains(t, out, "Technology")
}

func newTestNotifier(url string) *TelegramNotifier {
	n := NewTelegramNotifier("TOKEN", "42", "", nil)
	n.BaseURL = url
	return n
}

func TestSend(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/sendMessage", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	require.NoError(t, newTestNotifier(srv.URL).Send(context.Background(), "<b>hi</b>"))
	assert.Equal(t, "42", got["chat_id"])
	assert.Equal(t, "<b>hi</b>", got["text"])
	assert.Equal(t, "HTML", got["parse_mode"])
}

func TestSend_SingleAttemptOnError(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"ok":false,"description":"chat not found"}`))
	}))
	defer srv.Close()

	err := newTestNotifier(srv.URL).Send(context.Background(), "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
	assert.Contains(t, err.Error(), "chat not found")
	assert.Equal(t, 1, calls)
}

func TestStartPolling(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		mu      sync.Mutex
		replies []string
		served  bool
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		switch r.URL.Path {
		case "/botTOKEN/getUpdates":
			if served {
				w.Write([]byte(`{"ok":true,"result":[]}`))
				return
			}
			served = true
			w.Write([]byte(`{"ok":true,"result":[{"update_id":7,"message":{"text":" /quote aapl "}},{"update_id":8}]}`))
		case "/botTOKEN/sendMessage":
			var body map[string]string
			json.NewDecoder(r.Body).Decode(&body)
			replies = append(replies, body["text"])
			cancel()
			w.Write([]byte(`{"ok":true}`))
		}
	}))
	defer srv.Close()

	var commands []string
	done := make(chan struct{})
	go func() {
		newTestNotifier(srv.URL).StartPolling(ctx, func(_ context.Context, cmd string) string {
			commands = append(commands, cmd)
			return "reply to " + cmd
		})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("polling did not stop")
	}
	assert.Equal(t, []string{"/quote aapl"}, commands)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"reply to /quote aapl"}, replies)
}

func TestTruncateMessage(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		limit int
		want  string
	}{
		{"short text untouched", "📊 <b>AAPL</b>", 20, "📊 <b>AAPL</b>"},
		{"counts characters not bytes", "📊📊📊📊📊", 5, "📊📊📊📊📊"},
		{"cuts on rune boundary", "📊📊📊📊📊📊", 5, "📊📊..."},
		{"does not split a tag", "abcd<b>efgh</b>", 8, "abcd..."},
		{"closes open tags", "<b>abcdefghijkl</b>", 14, "<b>abcd...</b>"},
		{"does not split an entity", "ab &amp; cdefgh", 9, "ab ..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncateMessage(tt.text, tt.limit)
			assert.Equal(t, tt.want, got)
			assert.True(t, utf8.ValidString(got))
			assert.LessOrEqual(t, utf8.RuneCountInString(got), tt.limit)
		})
	}
}

func TestSend_TruncatesLongDigest(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	long := "<b>" + strings.Repeat("⚠️ alert ", 1000) + "</b>"
	require.NoError(t, newTestNotifier(srv.URL).Send(context.Background(), long))
	assert.True(t, utf8.ValidString(got["text"]))
	assert.LessOrEqual(t, utf8.RuneCountInString(got["text"]), maxMessageLen)
	assert.True(t, strings.HasSuffix(got["text"], "...</b>"))
}
