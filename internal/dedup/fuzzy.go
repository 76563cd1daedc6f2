package dedup

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// DuplicateThreshold is the score floor below which a pair is not
// considered a duplicate (spec.md §4.7: "Below 50 ... not a duplicate").
const DuplicateThreshold = 50

const (
	exactBandScore = 95

	nearBandHigh    = 90
	nearBandLow     = 70
	nearBandMaxPct  = 0.01
	nearBandMaxDays = 1

	looseBandHigh    = 70
	looseBandLow     = 50
	looseBandMaxPct  = 0.05
	looseBandMaxDays = 3
)

// Candidate is the subset of a stored Transaction the fuzzy scorer needs.
type Candidate struct {
	MerchantKey string
	Amount      decimal.Decimal
	Date        time.Time
}

// Score computes the 100-point duplicate confidence between two
// candidates within the same profile (spec.md §4.7's banded table):
//   - exact merchant + exact amount + same date: ~95
//   - same merchant + amount diff < 1% + same/adjacent day: 70-90
//   - same merchant + amount diff < 5% + within 3 days: 50-70
//   - anything else: 0 (not a duplicate)
//
// A merchant mismatch short-circuits to 0 regardless of amount/date.
func Score(a, b Candidate) int {
	if a.MerchantKey == "" || a.MerchantKey != b.MerchantKey {
		return 0
	}

	pctDiff := amountPctDiff(a.Amount, b.Amount)
	dayDiff := daysBetween(a.Date, b.Date)

	if pctDiff == 0 && dayDiff == 0 {
		return exactBandScore
	}
	if pctDiff < nearBandMaxPct && dayDiff <= nearBandMaxDays {
		return bandScore(nearBandLow, nearBandHigh, pctDiff/nearBandMaxPct, float64(dayDiff)/nearBandMaxDays)
	}
	if pctDiff < looseBandMaxPct && dayDiff <= looseBandMaxDays {
		return bandScore(looseBandLow, looseBandHigh, pctDiff/looseBandMaxPct, float64(dayDiff)/looseBandMaxDays)
	}
	return 0
}

// IsDuplicate reports whether the pair clears DuplicateThreshold.
func IsDuplicate(a, b Candidate) bool {
	return Score(a, b) >= DuplicateThreshold
}

// bandScore scales linearly from high (badness 0) down to low (badness 1),
// badness being the worse of the amount and day fractional closeness to
// the band's limits.
func bandScore(low, high int, pctBadness, dayBadness float64) int {
	badness := math.Max(pctBadness, dayBadness)
	if badness < 0 {
		badness = 0
	}
	if badness > 1 {
		badness = 1
	}
	return high - int(badness*float64(high-low))
}

func amountPctDiff(a, b decimal.Decimal) float64 {
	if a.IsZero() && b.IsZero() {
		return 0
	}
	base := a.Abs()
	if b.Abs().GreaterThan(base) {
		base = b.Abs()
	}
	if base.IsZero() {
		return 0
	}
	diff := a.Sub(b).Abs()
	f, _ := diff.Div(base).Float64()
	return f
}

func daysBetween(a, b time.Time) int {
	d := a.Sub(b)
	if d < 0 {
		d = -d
	}
	return int(d.Hours() / 24)
}
