package calculator

import (
	"errors"
	"math"

	"StockLens/internal/model"
)

// CalculatePeriodRange scans the close column and returns its high, low and
// last defined value along with where the last value sits in that range.
func CalculatePeriodRange(t *model.PriceTable, closeLabel string) (model.PeriodRange, error) {
	values, ok := closes(t, closeLabel)
	if !ok {
		return model.PeriodRange{}, errors.New("close column not found")
	}
	r := model.PeriodRange{High: math.Inf(-1), Low: math.Inf(1), Last: math.NaN()}
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		if v > r.High {
			r.High = v
		}
		if v < r.Low {
			r.Low = v
		}
		r.Last = v
	}
	if math.IsNaN(r.Last) {
		return model.PeriodRange{}, errors.New("no close values in range")
	}
	pos, err := CalculatePosition(r.Last, r.High, r.Low)
	if err != nil {
		return model.PeriodRange{}, err
	}
	r.Position = pos
	return r, nil
}

// CalculatePosition returns where current sits within [low, high] (0.0~1.0).
func CalculatePosition(current, high, low float64) (float64, error) {
	if high == low {
		return 0.5, nil
	}
	if high < low {
		return 0, errors.New("high must be >= low")
	}
	pos := (current - low) / (high - low)
	if pos < 0 {
		pos = 0
	}
	if pos > 1 {
		pos = 1
	}
	return pos, nil
}
