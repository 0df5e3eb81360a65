package server

import (
	"math"
	"time"

	"github.com/guregu/null/v6"

	"StockLens/internal/dashboard"
	"StockLens/internal/model"
	"StockLens/internal/notifier"
)

// ServiceResponse is the envelope for every API reply.
type ServiceResponse[T any] struct {
	Data  *T     `json:"data"`
	Error string `json:"error"`
}

func ok[T any](data *T) ServiceResponse[T] {
	return ServiceResponse[T]{Data: data}
}

func fail(msg string) ServiceResponse[any] {
	return ServiceResponse[any]{Error: msg}
}

// finite maps NaN and infinities to JSON null.
func finite(v float64) null.Float {
	return null.NewFloat(v, !math.IsNaN(v) && !math.IsInf(v, 0))
}

type RowView struct {
	Date      string     `json:"date"`
	Close     null.Float `json:"close"`
	ChangePct null.Float `json:"change_pct"`
}

type SummaryView struct {
	AnnualizedReturnPct null.Float `json:"annualized_return_pct"`
	AnnualizedStdevPct  null.Float `json:"annualized_stdev_pct"`
	RiskAdjustedReturn  null.Float `json:"risk_adjusted_return"`
}

type RangeView struct {
	High     float64 `json:"high"`
	Low      float64 `json:"low"`
	Last     float64 `json:"last"`
	Position float64 `json:"position"`
}

type MetricView struct {
	Name    string     `json:"name"`
	Number  null.Float `json:"number"`
	Display string     `json:"display"`
}

type FundamentalsView struct {
	Name    string            `json:"name"`
	Metrics []MetricView      `json:"metrics"`
	Profile map[string]string `json:"profile"`
}

type AlertView struct {
	Severity string   `json:"severity"`
	Kind     string   `json:"kind"`
	Message  string   `json:"message"`
	Columns  []string `json:"columns,omitempty"`
}

// PageView is the JSON form of a dashboard page.
type PageView struct {
	Ticker       string            `json:"ticker"`
	Start        string            `json:"start"`
	End          string            `json:"end"`
	Provider     string            `json:"provider"`
	GeneratedAt  time.Time         `json:"generated_at"`
	CloseColumn  string            `json:"close_column,omitempty"`
	UsedFallback bool              `json:"used_fallback"`
	Rows         int               `json:"rows"`
	Recent       []RowView         `json:"recent"`
	Summary      SummaryView       `json:"summary"`
	Range        *RangeView        `json:"range,omitempty"`
	Fundamentals *FundamentalsView `json:"fundamentals,omitempty"`
	Alerts       []AlertView       `json:"alerts"`
	Halted       bool              `json:"halted"`
}

// NewPageView converts a page for serialization.
func NewPageView(p *dashboard.Page) *PageView {
	v := &PageView{
		Ticker:       p.Ticker,
		Start:        p.Start.Format(time.DateOnly),
		End:          p.End.Format(time.DateOnly),
		Provider:     p.Provider,
		GeneratedAt:  p.GeneratedAt,
		CloseColumn:  p.Selection.Label,
		UsedFallback: p.Selection.UsedFallback,
		Rows:         p.Table.Len(),
		Recent:       make([]RowView, 0, len(p.Recent)),
		Summary: SummaryView{
			AnnualizedReturnPct: finite(p.Summary.AnnualizedReturnPct),
			AnnualizedStdevPct:  finite(p.Summary.AnnualizedStdevPct),
			RiskAdjustedReturn:  finite(p.Summary.RiskAdjustedReturn),
		},
		Alerts: make([]AlertView, 0, len(p.Alerts)),
		Halted: p.Halted,
	}
	for _, r := range p.Recent {
		v.Recent = append(v.Recent, RowView{
			Date:      r.Time.Format(time.DateOnly),
			Close:     finite(r.Close),
			ChangePct: finite(r.ChangePct),
		})
	}
	if p.Range != nil {
		v.Range = &RangeView{High: p.Range.High, Low: p.Range.Low, Last: p.Range.Last, Position: p.Range.Position}
	}
	if p.Fundamentals != nil {
		v.Fundamentals = newFundamentalsView(p.Fundamentals)
	}
	for _, a := range p.Alerts {
		v.Alerts = append(v.Alerts, AlertView{
			Severity: string(a.Severity),
			Kind:     string(a.Kind),
			Message:  a.Message,
			Columns:  a.Columns,
		})
	}
	return v
}

func newFundamentalsView(f *model.Fundamentals) *FundamentalsView {
	fv := &FundamentalsView{
		Name: f.Name,
		Profile: map[string]string{
			"sector":   notifier.FormatValue(f.Profile.Sector),
			"industry": notifier.FormatValue(f.Profile.Industry),
			"website":  notifier.FormatValue(f.Profile.Website),
			"summary":  notifier.FormatValue(f.Profile.Summary),
		},
	}
	for _, m := range model.Metrics() {
		val := f.Get(m)
		mv := MetricView{Name: string(m), Display: notifier.FormatValue(val)}
		if val.Kind == model.KindNumber {
			mv.Number = finite(val.Number)
		}
		fv.Metrics = append(fv.Metrics, mv)
	}
	return fv
}
