package anomaly

import (
	"math"

	"github.com/shopspring/decimal"
)

const sigmaThreshold = 3.0

// StatResult is a (profile, subcategory) rolling distribution over a 90-day
// window, used to flag outliers (spec.md §4.12).
type StatResult struct {
	Mean   float64
	StdDev float64
	Count  int
}

// ComputeStats derives the rolling mean and sample standard deviation for a
// (profile, subcategory) amount history. Callers pass the last 90 days of
// confirmed amounts for that pair.
func ComputeStats(amounts []decimal.Decimal) StatResult {
	n := len(amounts)
	if n == 0 {
		return StatResult{}
	}

	sum := 0.0
	for _, a := range amounts {
		f, _ := a.Float64()
		sum += f
	}
	mean := sum / float64(n)

	if n < 2 {
		return StatResult{Mean: mean, StdDev: 0, Count: n}
	}

	variance := 0.0
	for _, a := range amounts {
		f, _ := a.Float64()
		d := f - mean
		variance += d * d
	}
	variance /= float64(n - 1) // sample stddev

	return StatResult{Mean: mean, StdDev: math.Sqrt(variance), Count: n}
}

// IsAnomaly reports whether amount is more than 3 standard deviations from
// the rolling mean, and its z-score as the anomaly score (spec.md §4.12).
// A distribution with fewer than 2 samples or zero variance never flags —
// there isn't enough history to call anything an outlier yet.
func IsAnomaly(stats StatResult, amount decimal.Decimal) (isAnomaly bool, score decimal.Decimal) {
	if stats.Count < 2 || stats.StdDev == 0 {
		return false, decimal.Zero
	}

	f, _ := amount.Float64()
	z := math.Abs(f-stats.Mean) / stats.StdDev
	score = decimal.NewFromFloat(z)
	return z > sigmaThreshold, score
}
