package dashboard

import (
	"time"

	"StockLens/internal/model"
)

// Severity of an Alert.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// AlertKind identifies what went wrong while building a page.
type AlertKind string

const (
	AlertEmptyResult         AlertKind = "empty_result"
	AlertMissingCloseColumn  AlertKind = "missing_close_column"
	AlertFallbackCloseColumn AlertKind = "fallback_close_column"
	AlertFetchFailure        AlertKind = "fetch_failure"
	AlertFundamentalsFailure AlertKind = "fundamentals_failure"
)

// Alert is a user-visible error or warning attached to a page.
type Alert struct {
	Severity Severity
	Kind     AlertKind
	Message  string
	// Columns lists the available labels for AlertMissingCloseColumn.
	Columns []string
}

// Page is everything the presentation layer needs for one ticker.
type Page struct {
	Ticker      string
	Start       time.Time
	End         time.Time
	Provider    string
	GeneratedAt time.Time

	Table     *model.PriceTable
	Selection model.CloseColumnSelection
	Returns   model.ReturnSeries
	Summary   model.RiskSummary
	Recent    []model.PriceRow
	Range     *model.PeriodRange

	Fundamentals *model.Fundamentals

	Alerts []Alert
	// Halted is set when pricing could not be rendered at all.
	Halted bool
}

func (p *Page) addAlert(a Alert) {
	p.Alerts = append(p.Alerts, a)
}

func (p *Page) halt(a Alert) {
	p.addAlert(a)
	p.Halted = true
}

// FirstError returns the first error alert, if any.
func (p *Page) FirstError() (Alert, bool) {
	for _, a := range p.Alerts {
		if a.Severity == SeverityError {
			return a, true
		}
	}
	return Alert{}, false
}

// HasAlert reports whether an alert of the given kind was raised.
func (p *Page) HasAlert(kind AlertKind) bool {
	for _, a := range p.Alerts {
		if a.Kind == kind {
			return true
		}
	}
	return false
}

// LastClose returns the most recent close in the recent rows.
func (p *Page) LastClose() (model.PriceRow, bool) {
	if len(p.Recent) == 0 {
		return model.PriceRow{}, false
	}
	return p.Recent[len(p.Recent)-1], true
}
