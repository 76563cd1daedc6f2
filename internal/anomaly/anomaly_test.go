package anomaly

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/sebascrugu/finanzas-tracker-go/internal/domain"
)

func TestDetectCardPayment_MatchesByLast4(t *testing.T) {
	cards := []*domain.Card{
		{ID: 1, Last4Digits: "1234", RunningBalance: decimal.NewFromInt(50000)},
	}
	m := DetectCardPayment("PAGO TC ****1234", decimal.NewFromInt(50000), cards)
	if m == nil {
		t.Fatal("expected a card-payment match")
	}
	if m.Card == nil || m.Card.ID != 1 {
		t.Errorf("expected card 1 resolved by last4, got %+v", m.Card)
	}
	if m.Confidence <= 90 {
		t.Errorf("expected confidence boosted above base when card resolved, got %d", m.Confidence)
	}
}

func TestDetectCardPayment_FallsBackToBalanceHeuristic(t *testing.T) {
	cards := []*domain.Card{
		{ID: 2, Last4Digits: "", RunningBalance: decimal.NewFromInt(120000)},
	}
	m := DetectCardPayment("PAGO VISA", decimal.NewFromInt(120000), cards)
	if m == nil {
		t.Fatal("expected a card-payment match")
	}
	if m.Card == nil || m.Card.ID != 2 {
		t.Errorf("expected balance-heuristic match to card 2, got %+v", m.Card)
	}
}

func TestDetectCardPayment_LowersConfidenceWhenDigitsUnresolved(t *testing.T) {
	m := DetectCardPayment("PAGO TC 1234-5678", decimal.NewFromInt(1000), nil)
	if m == nil {
		t.Fatal("expected a match even with no cards on file")
	}
	if m.Last4 == nil || *m.Last4 != "5678" {
		t.Fatalf("expected last4 extracted as 5678, got %+v", m.Last4)
	}
	if m.Confidence >= 90 {
		t.Errorf("expected confidence penalized when digits present but unresolved, got %d", m.Confidence)
	}
}

func TestDetectCardPayment_NoMatchForUnrelatedDescriptor(t *testing.T) {
	if m := DetectCardPayment("AUTOMERCADO ESCAZU", decimal.NewFromInt(15000), nil); m != nil {
		t.Errorf("expected no match, got %+v", m)
	}
}

func TestDetectInternalTransfer_MatchesOwnAccountTransfer(t *testing.T) {
	m := DetectInternalTransfer("TRANSFERENCIA A CTA PROPIA")
	if m == nil {
		t.Fatal("expected internal-transfer match")
	}
	if m.Confidence != 95 {
		t.Errorf("Confidence = %d, want 95", m.Confidence)
	}
}

func TestDetectInternalTransfer_NoMatchForPurchase(t *testing.T) {
	if m := DetectInternalTransfer("AUTOMERCADO ESCAZU"); m != nil {
		t.Errorf("expected no match, got %+v", m)
	}
}

func TestComputeStats_MeanAndStdDev(t *testing.T) {
	amounts := []decimal.Decimal{
		decimal.NewFromInt(100), decimal.NewFromInt(100), decimal.NewFromInt(100), decimal.NewFromInt(100),
	}
	stats := ComputeStats(amounts)
	if stats.Mean != 100 {
		t.Errorf("Mean = %f, want 100", stats.Mean)
	}
	if stats.StdDev != 0 {
		t.Errorf("StdDev = %f, want 0", stats.StdDev)
	}
}

func TestIsAnomaly_FlagsOutlierBeyond3Sigma(t *testing.T) {
	amounts := make([]decimal.Decimal, 0, 30)
	for i := 0; i < 30; i++ {
		amounts = append(amounts, decimal.NewFromInt(10000))
	}
	// Inject a touch of variance so stddev isn't exactly zero.
	amounts[0] = decimal.NewFromInt(10100)
	amounts[1] = decimal.NewFromInt(9900)
	stats := ComputeStats(amounts)

	isAnom, score := IsAnomaly(stats, decimal.NewFromInt(200000))
	if !isAnom {
		t.Errorf("expected a 20x outlier to be flagged, score=%v", score)
	}
}

func TestIsAnomaly_DoesNotFlagWithinNormalRange(t *testing.T) {
	amounts := []decimal.Decimal{
		decimal.NewFromInt(9800), decimal.NewFromInt(10200), decimal.NewFromInt(10000), decimal.NewFromInt(9900),
	}
	stats := ComputeStats(amounts)

	isAnom, _ := IsAnomaly(stats, decimal.NewFromInt(10100))
	if isAnom {
		t.Error("expected a value close to the mean to not be flagged")
	}
}

func TestIsAnomaly_InsufficientHistoryNeverFlags(t *testing.T) {
	stats := ComputeStats([]decimal.Decimal{decimal.NewFromInt(10000)})
	isAnom, score := IsAnomaly(stats, decimal.NewFromInt(999999))
	if isAnom {
		t.Errorf("expected single-sample history to never flag, got score %v", score)
	}
}
