package calculator

import (
	"math"

	"StockLens/internal/model"
)

// change returns the fractional change from prev to cur, or false when it is undefined.
func change(prev, cur float64) (float64, bool) {
	if prev == 0 || math.IsNaN(prev) || math.IsNaN(cur) {
		return 0, false
	}
	v := (cur - prev) / prev
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// closes returns the column values with absent entries mapped to NaN.
func closes(t *model.PriceTable, label string) ([]float64, bool) {
	col, ok := t.Column(label)
	if !ok {
		return nil, false
	}
	out := make([]float64, t.Len())
	for i := range out {
		if i < len(col.Values) && col.Values[i].Valid {
			out[i] = col.Values[i].Float64
		} else {
			out[i] = math.NaN()
		}
	}
	return out, true
}

// ComputeReturnSeries derives period-over-period fractional changes of the
// given column. The first row and every row whose change is undefined are
// dropped. Tables with fewer than two rows or an unknown label yield an
// empty series.
func ComputeReturnSeries(t *model.PriceTable, closeLabel string) model.ReturnSeries {
	series := model.ReturnSeries{}
	if t.Len() < 2 {
		return series
	}
	values, ok := closes(t, closeLabel)
	if !ok {
		return series
	}
	for i := 1; i < len(values); i++ {
		if v, ok := change(values[i-1], values[i]); ok {
			series = append(series, model.ReturnPoint{Time: t.Index[i], Value: v})
		}
	}
	return series
}

// RecentRows returns the last n rows of close price and percent change.
// Rows whose change is undefined, including the first row, are skipped.
func RecentRows(t *model.PriceTable, closeLabel string, n int) []model.PriceRow {
	values, ok := closes(t, closeLabel)
	if !ok || n <= 0 {
		return nil
	}
	rows := make([]model.PriceRow, 0, len(values))
	for i := 1; i < len(values); i++ {
		c, ok := change(values[i-1], values[i])
		if !ok {
			continue
		}
		rows = append(rows, model.PriceRow{Time: t.Index[i], Close: values[i], ChangePct: c * 100})
	}
	if len(rows) > n {
		rows = rows[len(rows)-n:]
	}
	return rows
}
