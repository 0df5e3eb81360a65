package model

import (
	"math"
	"time"
)

// ReturnPoint is one period-over-period fractional change.
type ReturnPoint struct {
	Time  time.Time
	Value float64
}

// ReturnSeries is ordered like the rows it was derived from.
type ReturnSeries []ReturnPoint

// Values returns the raw fractional changes.
func (r ReturnSeries) Values() []float64 {
	out := make([]float64, len(r))
	for i, p := range r {
		out[i] = p.Value
	}
	return out
}

// RiskSummary holds the annualized statistics of a ReturnSeries.
// NaN marks a statistic that could not be computed.
type RiskSummary struct {
	AnnualizedReturnPct float64
	AnnualizedStdevPct  float64
	RiskAdjustedReturn  float64
}

// NaNSummary returns a summary with every statistic undefined.
func NaNSummary() RiskSummary {
	return RiskSummary{
		AnnualizedReturnPct: math.NaN(),
		AnnualizedStdevPct:  math.NaN(),
		RiskAdjustedReturn:  math.NaN(),
	}
}

// PriceRow is one line of the recent-prices view.
type PriceRow struct {
	Time      time.Time
	Close     float64
	ChangePct float64
}

// PeriodRange summarizes the close column over the requested window.
type PeriodRange struct {
	High     float64
	Low      float64
	Last     float64
	Position float64 // 0.0 ~ 1.0
}
