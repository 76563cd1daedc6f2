package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sebascrugu/finanzas-tracker-go/internal/categorize"
	"github.com/sebascrugu/finanzas-tracker-go/internal/domain"
	"github.com/sebascrugu/finanzas-tracker-go/internal/fxcache"
	"github.com/sebascrugu/finanzas-tracker-go/internal/merchant"
	"github.com/sebascrugu/finanzas-tracker-go/internal/syncstrategy"
	"github.com/sebascrugu/finanzas-tracker-go/internal/testutil"
	"github.com/sebascrugu/finanzas-tracker-go/internal/websocket"
)

func newTestEngine() *Engine {
	merchantRepo := testutil.NewMockMerchantRepository()
	exchangeRepo := testutil.NewMockExchangeRateRepository()
	patternRepo := testutil.NewMockLearnedPatternRepository()
	contactRepo := testutil.NewMockContactRepository()
	transactionRepo := testutil.NewMockTransactionRepository()
	globalRepo := testutil.NewMockGlobalSuggestionRepository()
	subcategoryRepo := testutil.NewMockSubcategoryRepository()
	cardRepo := testutil.NewMockCardRepository()

	return &Engine{
		Normalizer:   merchant.New(merchantRepo),
		FX:           fxcache.New(exchangeRepo, nil, decimal.NewFromInt(540)),
		Cascade:      categorize.New(patternRepo, contactRepo, transactionRepo, globalRepo, subcategoryRepo, nil),
		Transactions: transactionRepo,
		Cards:        cardRepo,
		Alerts:       testutil.NewMockAlertRepository(),
		Publisher:    &websocket.NoOpPublisher{},
		SyncCfg:      syncstrategy.DefaultConfig(),
	}
}

func TestBuildTransaction_LocalCurrencySkipsFX(t *testing.T) {
	e := newTestEngine()

	parsed := &domain.ParsedTransaction{
		Bank:             "BAC",
		Kind:             domain.KindPurchase,
		MerchantRaw:      "AUTOMERCADO SABANA",
		AmountOriginal:   decimal.NewFromInt(15000),
		CurrencyOriginal: localCurrency,
		TxnTime:          time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC),
	}

	txn, err := e.buildTransaction(context.Background(), "profile-1", parsed)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if txn.FXRate != nil {
		t.Fatalf("expected no FX conversion for a CRC-denominated transaction, got rate %v", txn.FXRate)
	}
	if !txn.AmountLocal.Equal(parsed.AmountOriginal) {
		t.Fatalf("expected AmountLocal to equal AmountOriginal, got %s vs %s", txn.AmountLocal, parsed.AmountOriginal)
	}
	if txn.MerchantID == nil {
		t.Fatal("expected buildTransaction to resolve a merchant")
	}
}

func TestBuildTransaction_ForeignCurrencyConverts(t *testing.T) {
	e := newTestEngine()

	parsed := &domain.ParsedTransaction{
		Bank:             "BAC",
		Kind:             domain.KindPurchase,
		MerchantRaw:      "AMAZON.COM",
		AmountOriginal:   decimal.NewFromInt(20),
		CurrencyOriginal: "USD",
		TxnTime:          time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC),
	}

	txn, err := e.buildTransaction(context.Background(), "profile-1", parsed)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if txn.FXRate == nil {
		t.Fatal("expected a USD transaction to carry an FX rate")
	}
	expected := parsed.AmountOriginal.Mul(*txn.FXRate)
	if !txn.AmountLocal.Equal(expected) {
		t.Fatalf("expected AmountLocal %s, got %s", expected, txn.AmountLocal)
	}
}

func TestIsPDF_DetectsByContentTypeAndExtension(t *testing.T) {
	cases := []struct {
		contentType string
		filename    string
		want        bool
	}{
		{"application/pdf", "statement.bin", true},
		{"application/pdf; charset=binary", "statement.bin", true},
		{"", "estado-cuenta.PDF", true},
		{"image/png", "logo.png", false},
		{"", "notes.txt", false},
	}
	for _, tc := range cases {
		if got := isPDF(tc.contentType, tc.filename); got != tc.want {
			t.Errorf("isPDF(%q, %q) = %v, want %v", tc.contentType, tc.filename, got, tc.want)
		}
	}
}

func TestFirstPDFAttachment(t *testing.T) {
	msg := domain.RawMessage{
		Attachments: []domain.RawAttachment{
			{Filename: "logo.png", ContentType: "image/png"},
			{Filename: "estado.pdf", ContentType: "application/pdf"},
		},
	}
	att := firstPDFAttachment(msg)
	if att == nil || att.Filename != "estado.pdf" {
		t.Fatalf("expected to find estado.pdf, got %v", att)
	}

	noneMsg := domain.RawMessage{Attachments: []domain.RawAttachment{{Filename: "logo.png", ContentType: "image/png"}}}
	if firstPDFAttachment(noneMsg) != nil {
		t.Fatal("expected no PDF attachment to be found")
	}
}

func TestLooksLikeCreditCardStatement(t *testing.T) {
	if !looksLikeCreditCardStatement("estado-tarjeta-visa.pdf", "") {
		t.Error("expected filename keyword match")
	}
	if !looksLikeCreditCardStatement("statement.pdf", "Your Credito MasterCard statement") {
		t.Error("expected subject keyword match")
	}
	if looksLikeCreditCardStatement("cuenta-corriente.pdf", "Monthly account summary") {
		t.Error("expected no match for a deposit-account statement")
	}
}

func TestBankFromSender(t *testing.T) {
	cases := map[string]string{
		"notificaciones@bac.net":        "BAC",
		"estados@bancopopular.fi.cr":    "Banco Popular",
		"someone@othersender.example": "unknown",
	}
	for addr, want := range cases {
		if got := bankFromSender(addr); got != want {
			t.Errorf("bankFromSender(%q) = %q, want %q", addr, got, want)
		}
	}
}

func TestLatestAndEarliestRowDate(t *testing.T) {
	fallback := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := []domain.StatementRow{
		{Date: time.Date(2026, 6, 10, 0, 0, 0, 0, time.UTC)},
		{Date: time.Date(2026, 6, 25, 0, 0, 0, 0, time.UTC)},
		{Date: time.Date(2026, 6, 5, 0, 0, 0, 0, time.UTC)},
	}

	if got := latestRowDate(rows, fallback); !got.Equal(time.Date(2026, 6, 25, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("latestRowDate = %v, want 2026-06-25", got)
	}
	if got := earliestRowDate(rows, fallback); !got.Equal(time.Date(2026, 6, 5, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("earliestRowDate = %v, want 2026-06-05", got)
	}
	if got := earliestRowDate(nil, fallback); !got.Equal(fallback) {
		t.Errorf("earliestRowDate with no rows = %v, want fallback %v", got, fallback)
	}
}

func TestStrPtr(t *testing.T) {
	if strPtr("") != nil {
		t.Error("expected an empty string to map to nil")
	}
	if got := strPtr("REF123"); got == nil || *got != "REF123" {
		t.Errorf("strPtr(%q) = %v, want pointer to REF123", "REF123", got)
	}
}

func TestWindow_OnboardingUsesFullLookback(t *testing.T) {
	e := &Engine{SyncCfg: syncstrategy.DefaultConfig()}
	today := time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC)
	profile := &domain.Profile{ID: "profile-1"}

	start, end := e.window(profile, syncstrategy.ModeOnboarding, today)
	if !end.Equal(today) {
		t.Errorf("expected onboarding window to end today, got %v", end)
	}
	wantStart := today.AddDate(0, 0, -e.SyncCfg.OnboardingLookbackDays)
	if !start.Equal(wantStart) {
		t.Errorf("expected onboarding window to start %v, got %v", wantStart, start)
	}
}

func TestWindow_DailyUsesDailyEmailWindow(t *testing.T) {
	e := &Engine{SyncCfg: syncstrategy.DefaultConfig()}
	today := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)
	lastSync := today.AddDate(0, 0, -1)
	profile := &domain.Profile{ID: "profile-1", LastSyncDate: &lastSync}

	start, end := e.window(profile, syncstrategy.ModeDaily, today)
	wantStart, wantEnd := syncstrategy.DailyEmailWindow(profile.LastSyncDate, today)
	if !start.Equal(wantStart) || !end.Equal(wantEnd) {
		t.Errorf("window() = (%v, %v), want (%v, %v)", start, end, wantStart, wantEnd)
	}
}

func TestRunFuzzyDedupPass_FlagsNearDuplicatePair(t *testing.T) {
	e := newTestEngine()
	merchantID := int64(42)
	day := time.Date(2026, 7, 20, 12, 0, 0, 0, time.UTC)

	txnRepo := e.Transactions.(*testutil.MockTransactionRepository)
	alertRepo := e.Alerts.(*testutil.MockAlertRepository)

	txnRepo.AddTransaction(&domain.Transaction{
		ID: 1, ProfileID: "profile-1", MerchantID: &merchantID,
		MerchantRaw: "WALMART HEREDIA", AmountLocal: decimal.NewFromInt(15000), TxnTime: day,
	})
	txnRepo.AddTransaction(&domain.Transaction{
		ID: 2, ProfileID: "profile-1", MerchantID: &merchantID,
		MerchantRaw: "WALMART HEREDIA", AmountLocal: decimal.NewFromInt(15000), TxnTime: day,
	})

	if err := e.runFuzzyDedupPass("profile-1", day); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	alerts, err := alertRepo.ListUnacked("profile-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(alerts) != 1 {
		t.Fatalf("expected exactly one duplicate-candidate alert, got %d", len(alerts))
	}
	if alerts[0].Kind != domain.AlertDuplicateCandidate {
		t.Errorf("expected kind %q, got %q", domain.AlertDuplicateCandidate, alerts[0].Kind)
	}
}

func TestRunFuzzyDedupPass_DifferentMerchantsNotFlagged(t *testing.T) {
	e := newTestEngine()
	walmart := int64(42)
	automercado := int64(43)
	day := time.Date(2026, 7, 20, 12, 0, 0, 0, time.UTC)

	txnRepo := e.Transactions.(*testutil.MockTransactionRepository)
	alertRepo := e.Alerts.(*testutil.MockAlertRepository)

	txnRepo.AddTransaction(&domain.Transaction{
		ID: 1, ProfileID: "profile-1", MerchantID: &walmart,
		MerchantRaw: "WALMART HEREDIA", AmountLocal: decimal.NewFromInt(15000), TxnTime: day,
	})
	txnRepo.AddTransaction(&domain.Transaction{
		ID: 2, ProfileID: "profile-1", MerchantID: &automercado,
		MerchantRaw: "AUTOMERCADO SABANA", AmountLocal: decimal.NewFromInt(15000), TxnTime: day,
	})

	if err := e.runFuzzyDedupPass("profile-1", day); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	alerts, err := alertRepo.ListUnacked("profile-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(alerts) != 0 {
		t.Fatalf("expected no alerts for distinct merchants, got %d", len(alerts))
	}
}

func TestWindow_MonthlyFallsBackToDailyWithoutLastStatement(t *testing.T) {
	e := &Engine{SyncCfg: syncstrategy.DefaultConfig()}
	today := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)
	profile := &domain.Profile{ID: "profile-1"}

	start, end := e.window(profile, syncstrategy.ModeMonthly, today)
	wantStart, wantEnd := syncstrategy.DailyEmailWindow(profile.LastSyncDate, today)
	if !start.Equal(wantStart) || !end.Equal(wantEnd) {
		t.Errorf("window() = (%v, %v), want (%v, %v)", start, end, wantStart, wantEnd)
	}
}
