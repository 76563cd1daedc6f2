// Package reconcile implements the Reconciliation Engine (spec.md §4.8):
// matching a PDF statement's rows against the transactions already stored
// for the profile in that period, bucketing the outcome, and producing the
// four-bucket summary report.
package reconcile

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sebascrugu/finanzas-tracker-go/internal/domain"
	"github.com/sebascrugu/finanzas-tracker-go/internal/merchant"
)

// Bucket classifies a reconciliation outcome (spec.md §4.8).
type Bucket string

const (
	BucketMatchedHigh    Bucket = "matched_high"
	BucketMatchedMedium  Bucket = "matched_medium"
	BucketMatchedLow     Bucket = "matched_low"
	BucketAmountMismatch Bucket = "amount_mismatch"
	BucketOnlyInPDF      Bucket = "only_in_pdf"
	BucketOnlyInSystem   Bucket = "only_in_system"
)

// Reason names a single matched field, so a user can audit why a match
// was made (spec.md §4.8: "ranked list of reasons").
type Reason string

const (
	ReasonAmountExact   Reason = "amount_exact"
	ReasonAmountWithin1 Reason = "amount_within_1pct"
	ReasonMerchantExact Reason = "merchant_exact"
	ReasonMerchantFuzzy Reason = "merchant_fuzzy"
	ReasonDateWithin2   Reason = "date_within_2_days"
	ReasonDateWithin5   Reason = "date_within_5_days"
)

const (
	highMinConfidence   = 0.90
	mediumMinConfidence = 0.70
	lowMinConfidence    = 0.50

	highMaxDays   = 2
	mediumMaxDays = 5
	lowMaxDays    = 5

	amountMismatchThresholdPct = 0.005 // 0.5%
	lowAmountTolerancePct      = 0.01  // 1%

	fuzzyMaxEditDistance = 4
)

// Match is one reconciliation outcome, either a PDF row paired with a
// transaction (matched or amount-mismatch) or an unpaired row/transaction
// (only-in-pdf / only-in-system).
type Match struct {
	Row         *domain.StatementRow
	Transaction *domain.Transaction
	Bucket      Bucket
	Confidence  float64
	Reasons     []Reason
}

// Report is the spec.md §4.8 four-bucket summary.
type Report struct {
	TotalPDF        int
	TotalSystem     int
	MatchedCount    int
	MatchPercentage float64
	Status          string // perfect | good | needs-review
	Matches         []Match
}

// Reconcile matches rows against transactions (already windowed to the
// statement period plus its traslape on each side by the caller) and
// produces the full report.
func Reconcile(rows []domain.StatementRow, transactions []*domain.Transaction) *Report {
	used := make(map[int]bool, len(transactions))
	var matches []Match

	for i := range rows {
		row := &rows[i]
		bestIdx, bestTier := -1, -1
		var best Match

		for j, txn := range transactions {
			if used[j] {
				continue
			}
			m, tier, ok := evaluate(row, txn)
			if !ok {
				continue
			}
			if tier > bestTier {
				bestTier, bestIdx, best = tier, j, m
			}
		}

		if bestIdx >= 0 {
			used[bestIdx] = true
			matches = append(matches, best)
		} else {
			matches = append(matches, Match{Row: row, Bucket: BucketOnlyInPDF})
		}
	}

	for j, txn := range transactions {
		if used[j] {
			continue
		}
		matches = append(matches, Match{Transaction: txn, Bucket: BucketOnlyInSystem})
	}

	return buildReport(len(rows), len(transactions), matches)
}

// evaluate scores one (row, transaction) pair. tier is an ordinal used
// only to pick the best candidate among several eligible transactions for
// the same row (higher is better); it is not the confidence value.
func evaluate(row *domain.StatementRow, txn *domain.Transaction) (Match, int, bool) {
	dateDiff := daysBetween(row.Date, txn.TxnTime)
	pctDiff := amountPctDiff(row.Amount, txn.AmountOriginal)

	rowKey := merchant.Normalize(row.Description)
	txnKey := merchant.Normalize(txn.MerchantRaw)
	exactMerchant := rowKey != "" && rowKey == txnKey
	fuzzyMerchant := !exactMerchant && sharesSignificantToken(rowKey, txnKey)
	heuristicSimilar := exactMerchant || fuzzyMerchant || looselySimilar(rowKey, txnKey)

	switch {
	case pctDiff == 0 && exactMerchant && dateDiff <= highMaxDays:
		return buildMatch(row, txn, BucketMatchedHigh,
			scaleConfidence(highMinConfidence, 0.99, dateDiff, highMaxDays),
			[]Reason{ReasonAmountExact, ReasonMerchantExact, ReasonDateWithin2}), 4, true

	case pctDiff == 0 && fuzzyMerchant && dateDiff <= mediumMaxDays:
		return buildMatch(row, txn, BucketMatchedMedium,
			scaleConfidence(mediumMinConfidence, highMinConfidence, dateDiff, mediumMaxDays),
			[]Reason{ReasonAmountExact, ReasonMerchantFuzzy, ReasonDateWithin5}), 3, true

	case pctDiff <= lowAmountTolerancePct && heuristicSimilar && dateDiff <= lowMaxDays:
		return buildMatch(row, txn, BucketMatchedLow,
			scaleConfidence(lowMinConfidence, mediumMinConfidence, dateDiff, lowMaxDays),
			[]Reason{ReasonAmountWithin1, ReasonMerchantFuzzy, ReasonDateWithin5}), 2, true

	case (exactMerchant || fuzzyMerchant) && dateDiff <= highMaxDays && pctDiff > amountMismatchThresholdPct:
		return Match{
			Row: row, Transaction: txn, Bucket: BucketAmountMismatch,
			Reasons: []Reason{ReasonMerchantExact, ReasonDateWithin2},
		}, 1, true
	}

	return Match{}, 0, false
}

func buildMatch(row *domain.StatementRow, txn *domain.Transaction, bucket Bucket, confidence float64, reasons []Reason) Match {
	return Match{Row: row, Transaction: txn, Bucket: bucket, Confidence: confidence, Reasons: reasons}
}

// scaleConfidence interpolates within [low, high] by how close dateDiff is
// to 0 (closer date → closer to high).
func scaleConfidence(low, high float64, dateDiff, maxDays int) float64 {
	if maxDays == 0 {
		return high
	}
	frac := float64(dateDiff) / float64(maxDays)
	if frac > 1 {
		frac = 1
	}
	return high - frac*(high-low)
}

func sharesSignificantToken(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return merchant.FirstSignificantWord(a) == merchant.FirstSignificantWord(b)
}

func looselySimilar(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return merchant.EditDistance(a, b) <= fuzzyMaxEditDistance
}

func amountPctDiff(a, b decimal.Decimal) float64 {
	base := a.Abs()
	if b.Abs().GreaterThan(base) {
		base = b.Abs()
	}
	if base.IsZero() {
		if a.IsZero() && b.IsZero() {
			return 0
		}
		return 1
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
	return int(math.Round(d.Hours() / 24))
}

// buildReport tallies the four buckets and assigns a status (spec.md
// §4.8: perfect at 100%, good at >=95%, needs-review otherwise).
func buildReport(totalPDF, totalSystem int, matches []Match) *Report {
	matched := 0
	for _, m := range matches {
		switch m.Bucket {
		case BucketMatchedHigh, BucketMatchedMedium, BucketMatchedLow:
			matched++
		}
	}

	pct := 100.0
	if totalPDF > 0 {
		pct = 100.0 * float64(matched) / float64(totalPDF)
	}

	status := "needs-review"
	switch {
	case pct >= 100:
		status = "perfect"
	case pct >= 95:
		status = "good"
	}

	return &Report{
		TotalPDF:        totalPDF,
		TotalSystem:     totalSystem,
		MatchedCount:    matched,
		MatchPercentage: pct,
		Status:          status,
		Matches:         matches,
	}
}
