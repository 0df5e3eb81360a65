// Package resolver normalizes fetched price tables and picks the column
// that represents the closing price.
package resolver

import (
	"fmt"
	"strings"

	"StockLens/internal/model"
)

const (
	adjCloseNeedle = "adj close"
	closeNeedle    = "close"
)

// NormalizeColumns flattens every column label into a single trimmed string.
// Hierarchical labels are joined with one space. Labels that collide after
// flattening get a " (n)" suffix in column order. Values and index are shared
// with the input, never modified.
func NormalizeColumns(t *model.PriceTable) *model.PriceTable {
	if t == nil {
		return &model.PriceTable{}
	}
	out := &model.PriceTable{
		Ticker:  t.Ticker,
		Index:   t.Index,
		Columns: make([]model.Column, len(t.Columns)),
	}
	seen := make(map[string]bool, len(t.Columns))
	for i, c := range t.Columns {
		label := uniqueLabel(flatten(c.Label), seen)
		seen[label] = true
		out.Columns[i] = model.Column{Label: []string{label}, Values: c.Values}
	}
	return out
}

func flatten(tokens []string) string {
	return strings.TrimSpace(strings.Join(tokens, " "))
}

func uniqueLabel(label string, seen map[string]bool) string {
	if !seen[label] {
		return label
	}
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s (%d)", label, n)
		if !seen[candidate] {
			return candidate
		}
	}
}

// SelectCloseColumn returns the first column whose lowercase label contains
// "adj close". Failing that it returns the first label containing "close"
// and marks the selection as a fallback. Found is false when neither exists.
func SelectCloseColumn(t *model.PriceTable) model.CloseColumnSelection {
	labels := t.Labels()
	for _, l := range labels {
		if strings.Contains(strings.ToLower(l), adjCloseNeedle) {
			return model.CloseColumnSelection{Label: l, Found: true}
		}
	}
	for _, l := range labels {
		if strings.Contains(strings.ToLower(l), closeNeedle) {
			return model.CloseColumnSelection{Label: l, Found: true, UsedFallback: true}
		}
	}
	return model.CloseColumnSelection{}
}

// MissingCloseColumnError is returned when no close-like column exists.
type MissingCloseColumnError struct {
	Available []string
}

func (e *MissingCloseColumnError) Error() string {
	return fmt.Sprintf("Neither 'Adj Close' nor 'Close' found in data. Available columns: %s",
		strings.Join(e.Available, ", "))
}

// Resolve normalizes t and selects its close column. It fails only when no
// close-like column exists.
func Resolve(t *model.PriceTable) (*model.PriceTable, model.CloseColumnSelection, error) {
	norm := NormalizeColumns(t)
	sel := SelectCloseColumn(norm)
	if !sel.Found {
		return norm, sel, &MissingCloseColumnError{Available: norm.Labels()}
	}
	return norm, sel, nil
}
