// Package recurring implements the Recurring-Expense Detector (spec.md
// §4.11): an offline, group-and-score pass over a profile's confirmed
// transaction history that surfaces subscriptions and projects their next
// expected charge.
package recurring

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sebascrugu/finanzas-tracker-go/internal/domain"
)

const (
	minOccurrences          = 2
	amountTolerancePct      = 10.0 // (max-min)/mean must stay within this
	intervalToleranceDays   = 5.0  // mean |gap-avgGap| must stay within this
	minConfidence           = 50
	lookbackMonths          = 6
)

// namedCadences is the fixed set of cadences a detected group is snapped to
// (spec.md §4.11).
var namedCadences = []int{7, 14, 30, 60, 90, 180, 365}

// Candidate is one confirmed transaction feeding the detector, already
// grouped by the caller's choice of merchant identity.
type Candidate struct {
	MerchantKey string
	MerchantID  *int64
	Amount      decimal.Decimal
	Date        time.Time
}

// Detection is a subscription pattern found in one merchant group.
type Detection struct {
	MerchantKey string
	MerchantID  *int64
	AvgAmount   decimal.Decimal
	MinAmount   decimal.Decimal
	MaxAmount   decimal.Decimal
	CadenceDays int
	FirstSeen   time.Time
	LastSeen    time.Time
	Occurrences int
	Confidence  int
}

// LookbackCutoff returns the start of the window Detect should be fed
// (spec.md §4.11: "last 6 months").
func LookbackCutoff(today time.Time) time.Time {
	return today.AddDate(0, -lookbackMonths, 0)
}

// Detect groups candidates by MerchantKey, tests each group for a recurring
// pattern, and returns the groups that qualify. Candidates should already be
// restricted to confirmed transactions within the lookback window and
// excluded-from-budget transactions filtered out by the caller.
func Detect(candidates []Candidate) []Detection {
	groups := make(map[string][]Candidate)
	for _, c := range candidates {
		groups[c.MerchantKey] = append(groups[c.MerchantKey], c)
	}

	var detections []Detection
	for key, group := range groups {
		if len(group) < minOccurrences {
			continue
		}
		if d, ok := analyzeGroup(key, group); ok {
			detections = append(detections, d)
		}
	}

	sort.Slice(detections, func(i, j int) bool {
		return detections[i].Confidence > detections[j].Confidence
	})
	return detections
}

func analyzeGroup(key string, group []Candidate) (Detection, bool) {
	sort.Slice(group, func(i, j int) bool { return group[i].Date.Before(group[j].Date) })

	gaps := make([]float64, 0, len(group)-1)
	for i := 1; i < len(group); i++ {
		gaps = append(gaps, group[i].Date.Sub(group[i-1].Date).Hours()/24)
	}
	if len(gaps) == 0 {
		return Detection{}, false
	}

	avgGap := mean(gaps)
	intervalVariance := meanAbsDeviation(gaps, avgGap)
	if intervalVariance > intervalToleranceDays {
		return Detection{}, false
	}

	avgAmount, minAmount, maxAmount := amountStats(group)
	amountRangePct := 0.0
	if !avgAmount.IsZero() {
		f, _ := maxAmount.Sub(minAmount).Div(avgAmount).Float64()
		amountRangePct = f * 100
	}
	if amountRangePct > amountTolerancePct {
		return Detection{}, false
	}

	cadenceDays, ok := nearestCadence(avgGap)
	if !ok {
		return Detection{}, false
	}

	confidence := calculateConfidence(len(group), intervalVariance, amountRangePct)
	if confidence < minConfidence {
		return Detection{}, false
	}

	return Detection{
		MerchantKey: key,
		MerchantID:  group[0].MerchantID,
		AvgAmount:   avgAmount,
		MinAmount:   minAmount,
		MaxAmount:   maxAmount,
		CadenceDays: cadenceDays,
		FirstSeen:   group[0].Date,
		LastSeen:    group[len(group)-1].Date,
		Occurrences: len(group),
		Confidence:  confidence,
	}, true
}

// calculateConfidence mirrors the original detector's three-term score:
// occurrence count (0-40), interval consistency (0-30), amount consistency
// (0-30), capped at 100 (spec.md §4.11).
func calculateConfidence(occurrences int, intervalVariance, amountRangePct float64) int {
	occurrenceScore := math.Min(40, float64(occurrences)*10)
	intervalScore := math.Max(0, 30*(1-intervalVariance/intervalToleranceDays))
	amountScore := math.Max(0, 30*(1-amountRangePct/amountTolerancePct))

	total := occurrenceScore + intervalScore + amountScore
	if total > 100 {
		total = 100
	}
	return int(math.Round(total))
}

// nearestCadence snaps an observed mean gap to the closest named cadence,
// within that cadence's tolerance band. Returns ok=false if μ doesn't fall
// within any band (the group doesn't match a recognizable subscription
// rhythm even though its own gaps are internally consistent).
func nearestCadence(avgGap float64) (int, bool) {
	best, bestDiff := -1, math.MaxFloat64
	for _, c := range namedCadences {
		diff := math.Abs(avgGap - float64(c))
		if diff <= cadenceTolerance(c) && diff < bestDiff {
			best, bestDiff = c, diff
		}
	}
	return best, best != -1
}

// cadenceTolerance widens with the cadence's own scale: ±5 days for monthly
// (spec.md §4.11 literal), proportionally smaller/larger elsewhere.
func cadenceTolerance(cadenceDays int) float64 {
	switch {
	case cadenceDays <= 7:
		return 2
	case cadenceDays <= 14:
		return 3
	case cadenceDays <= 30:
		return 5
	case cadenceDays <= 60:
		return 7
	case cadenceDays <= 90:
		return 10
	case cadenceDays <= 180:
		return 15
	default:
		return 20
	}
}

func amountStats(group []Candidate) (avg, min, max decimal.Decimal) {
	min, max = group[0].Amount, group[0].Amount
	sum := decimal.Zero
	for _, c := range group {
		sum = sum.Add(c.Amount)
		if c.Amount.LessThan(min) {
			min = c.Amount
		}
		if c.Amount.GreaterThan(max) {
			max = c.Amount
		}
	}
	avg = sum.Div(decimal.NewFromInt(int64(len(group))))
	return avg, min, max
}

func mean(xs []float64) float64 {
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func meanAbsDeviation(xs []float64, m float64) float64 {
	sum := 0.0
	for _, x := range xs {
		sum += math.Abs(x - m)
	}
	return sum / float64(len(xs))
}

// ToSubscription builds the persisted row for a fresh detection.
func ToSubscription(profileID string, d Detection) *domain.Subscription {
	return &domain.Subscription{
		ProfileID:    profileID,
		MerchantID:   d.MerchantID,
		MerchantKey:  d.MerchantKey,
		AvgAmount:    d.AvgAmount,
		CadenceDays:  d.CadenceDays,
		FirstSeenAt:  d.FirstSeen,
		LastSeenAt:   d.LastSeen,
		NextExpected: d.LastSeen.AddDate(0, 0, d.CadenceDays),
		Confidence:   d.Confidence,
		Active:       true,
	}
}

// ApplyDetection merges a fresh Detection into an existing Subscription row
// (spec.md §4.11: detections re-run periodically update the same row rather
// than creating duplicates). Reactivates a previously-deactivated
// subscription that was detected again.
func ApplyDetection(existing *domain.Subscription, d Detection) {
	existing.AvgAmount = d.AvgAmount
	existing.CadenceDays = d.CadenceDays
	existing.LastSeenAt = d.LastSeen
	existing.NextExpected = d.LastSeen.AddDate(0, 0, d.CadenceDays)
	existing.Confidence = d.Confidence
	existing.Active = true
}

// ShouldDeactivate reports whether a subscription that was NOT re-detected
// in the latest pass should be turned off: more than 2x its own cadence has
// elapsed since the last charge, so it looks cancelled rather than merely
// not-yet-due (grounded on the original detector's _should_deactivate).
func ShouldDeactivate(sub *domain.Subscription, today time.Time) bool {
	daysSinceLast := int(today.Sub(sub.LastSeenAt).Hours() / 24)
	return daysSinceLast > sub.CadenceDays*2
}
