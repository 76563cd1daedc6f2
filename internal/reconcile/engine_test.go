package reconcile

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sebascrugu/finanzas-tracker-go/internal/domain"
)

func d(n int) time.Time {
	return time.Date(2026, 4, n, 12, 0, 0, 0, time.UTC)
}

func TestReconcile_HighConfidenceMatch(t *testing.T) {
	rows := []domain.StatementRow{
		{Reference: "r1", Date: d(10), Description: "AUTOMERCADO ESCAZU", Amount: decimal.NewFromFloat(15000)},
	}
	txns := []*domain.Transaction{
		{ID: 1, TxnTime: d(10), MerchantRaw: "AUTOMERCADO ESCAZU", AmountOriginal: decimal.NewFromFloat(15000)},
	}

	report := Reconcile(rows, txns)
	if report.MatchedCount != 1 {
		t.Fatalf("MatchedCount = %d, want 1", report.MatchedCount)
	}
	if report.Matches[0].Bucket != BucketMatchedHigh {
		t.Errorf("Bucket = %s, want matched_high", report.Matches[0].Bucket)
	}
	if report.Matches[0].Confidence < highMinConfidence {
		t.Errorf("Confidence = %f, want >= %f", report.Matches[0].Confidence, highMinConfidence)
	}
	if report.Status != "perfect" {
		t.Errorf("Status = %s, want perfect", report.Status)
	}
}

func TestReconcile_MediumConfidenceFuzzyMerchant(t *testing.T) {
	rows := []domain.StatementRow{
		{Reference: "r1", Date: d(10), Description: "UBER TRIP 12345678", Amount: decimal.NewFromFloat(5000)},
	}
	txns := []*domain.Transaction{
		{ID: 1, TxnTime: d(12), MerchantRaw: "UBER EATS COSTA RICA", AmountOriginal: decimal.NewFromFloat(5000)},
	}

	report := Reconcile(rows, txns)
	if report.Matches[0].Bucket != BucketMatchedMedium {
		t.Errorf("Bucket = %s, want matched_medium", report.Matches[0].Bucket)
	}
}

func TestReconcile_LowConfidenceAmountWithinOnePercent(t *testing.T) {
	rows := []domain.StatementRow{
		{Reference: "r1", Date: d(10), Description: "AUTOMERCADO ESCAZU", Amount: decimal.NewFromFloat(15000)},
	}
	txns := []*domain.Transaction{
		{ID: 1, TxnTime: d(13), MerchantRaw: "AUTOMERCADO ESCAZU", AmountOriginal: decimal.NewFromFloat(15100)},
	}

	report := Reconcile(rows, txns)
	if report.Matches[0].Bucket != BucketMatchedLow {
		t.Errorf("Bucket = %s, want matched_low", report.Matches[0].Bucket)
	}
}

func TestReconcile_AmountMismatchBucket(t *testing.T) {
	rows := []domain.StatementRow{
		{Reference: "r1", Date: d(10), Description: "AUTOMERCADO ESCAZU", Amount: decimal.NewFromFloat(15000)},
	}
	txns := []*domain.Transaction{
		{ID: 1, TxnTime: d(10), MerchantRaw: "AUTOMERCADO ESCAZU", AmountOriginal: decimal.NewFromFloat(15500)},
	}

	report := Reconcile(rows, txns)
	if report.Matches[0].Bucket != BucketAmountMismatch {
		t.Errorf("Bucket = %s, want amount_mismatch", report.Matches[0].Bucket)
	}
	if report.MatchedCount != 0 {
		t.Errorf("MatchedCount = %d, want 0 (amount mismatch isn't counted as matched)", report.MatchedCount)
	}
}

func TestReconcile_OnlyInPDF(t *testing.T) {
	rows := []domain.StatementRow{
		{Reference: "r1", Date: d(10), Description: "UNKNOWN CASH WITHDRAWAL", Amount: decimal.NewFromFloat(20000)},
	}
	report := Reconcile(rows, nil)
	if report.Matches[0].Bucket != BucketOnlyInPDF {
		t.Errorf("Bucket = %s, want only_in_pdf", report.Matches[0].Bucket)
	}
}

func TestReconcile_OnlyInSystem(t *testing.T) {
	txns := []*domain.Transaction{
		{ID: 1, TxnTime: d(10), MerchantRaw: "SINPE MARIA RODRIGUEZ", AmountOriginal: decimal.NewFromFloat(10000)},
	}
	report := Reconcile(nil, txns)
	if len(report.Matches) != 1 || report.Matches[0].Bucket != BucketOnlyInSystem {
		t.Errorf("expected one only_in_system match, got %+v", report.Matches)
	}
}

func TestReconcile_StatusNeedsReviewBelow95Percent(t *testing.T) {
	rows := []domain.StatementRow{
		{Reference: "r1", Date: d(1), Description: "A", Amount: decimal.NewFromFloat(100)},
		{Reference: "r2", Date: d(2), Description: "B", Amount: decimal.NewFromFloat(200)},
	}
	// Only one of two rows has a matching transaction.
	txns := []*domain.Transaction{
		{ID: 1, TxnTime: d(1), MerchantRaw: "A", AmountOriginal: decimal.NewFromFloat(100)},
	}

	report := Reconcile(rows, txns)
	if report.Status != "needs-review" {
		t.Errorf("Status = %s, want needs-review", report.Status)
	}
}

func TestReconcile_EachPDFRowMatchesAtMostOneTransaction(t *testing.T) {
	rows := []domain.StatementRow{
		{Reference: "r1", Date: d(10), Description: "AUTOMERCADO ESCAZU", Amount: decimal.NewFromFloat(15000)},
		{Reference: "r2", Date: d(10), Description: "AUTOMERCADO ESCAZU", Amount: decimal.NewFromFloat(15000)},
	}
	txns := []*domain.Transaction{
		{ID: 1, TxnTime: d(10), MerchantRaw: "AUTOMERCADO ESCAZU", AmountOriginal: decimal.NewFromFloat(15000)},
	}

	report := Reconcile(rows, txns)
	if report.MatchedCount != 1 {
		t.Fatalf("MatchedCount = %d, want 1 (transaction can only match once)", report.MatchedCount)
	}
	buckets := map[Bucket]int{}
	for _, m := range report.Matches {
		buckets[m.Bucket]++
	}
	if buckets[BucketOnlyInPDF] != 1 {
		t.Errorf("expected exactly one leftover row bucketed only_in_pdf, got %+v", buckets)
	}
}
