package calculator

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"StockLens/internal/model"
)

// DefaultPeriodsPerYear is the conventional number of trading days in a year.
const DefaultPeriodsPerYear = 252

// zeroVolatilityPct is the annualized stdev below which a series is treated as flat.
const zeroVolatilityPct = 1e-9

// Summarize annualizes the mean and population standard deviation of the
// returns and derives their ratio. Series with fewer than two points give
// an all-NaN summary. A flat series gives a NaN ratio.
func Summarize(returns model.ReturnSeries, periodsPerYear float64) model.RiskSummary {
	if periodsPerYear <= 0 {
		periodsPerYear = DefaultPeriodsPerYear
	}
	if len(returns) < 2 {
		return model.NaNSummary()
	}

	mean, std := stat.PopMeanStdDev(returns.Values(), nil)
	summary := model.RiskSummary{
		AnnualizedReturnPct: mean * periodsPerYear * 100,
		AnnualizedStdevPct:  std * math.Sqrt(periodsPerYear) * 100,
		RiskAdjustedReturn:  math.NaN(),
	}
	if summary.AnnualizedStdevPct > zeroVolatilityPct {
		summary.RiskAdjustedReturn = summary.AnnualizedReturnPct / summary.AnnualizedStdevPct
	}
	return summary
}
