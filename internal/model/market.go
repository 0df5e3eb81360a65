package model

import (
	"strings"
	"time"

	"github.com/guregu/null/v6"
)

// Column is a single named series of a PriceTable.
// Label holds one token for a flat label, or several for a hierarchical one
// such as ["Adj Close", "AAPL"].
type Column struct {
	Label  []string
	Values []null.Float
}

// Name returns the label tokens joined by a single space, untrimmed.
func (c Column) Name() string {
	return strings.Join(c.Label, " ")
}

// PriceTable holds time-indexed rows of price data, ascending by time.
// An empty table is valid.
type PriceTable struct {
	Ticker  string
	Index   []time.Time
	Columns []Column
}

// Len returns the number of rows.
func (t *PriceTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Index)
}

// IsEmpty reports whether the table has no rows.
func (t *PriceTable) IsEmpty() bool { return t.Len() == 0 }

// Labels returns the column names in column order.
func (t *PriceTable) Labels() []string {
	if t == nil {
		return nil
	}
	labels := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		labels[i] = c.Name()
	}
	return labels
}

// Column looks up a column by its joined name.
func (t *PriceTable) Column(label string) (Column, bool) {
	if t == nil {
		return Column{}, false
	}
	for _, c := range t.Columns {
		if c.Name() == label {
			return c, true
		}
	}
	return Column{}, false
}

// CloseColumnSelection records which column was chosen as the close price.
type CloseColumnSelection struct {
	Label        string
	Found        bool
	UsedFallback bool
}
