package categorize

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sebascrugu/finanzas-tracker-go/internal/domain"
	"github.com/sebascrugu/finanzas-tracker-go/internal/llmclient"
)

type fakePatternRepo struct {
	match *domain.LearnedPattern
}

func (f *fakePatternRepo) FindMatch(profileID, merchantKey string) (*domain.LearnedPattern, error) {
	return f.match, nil
}
func (f *fakePatternRepo) GetByKey(profileID, patternKey string) (*domain.LearnedPattern, error) {
	return nil, nil
}
func (f *fakePatternRepo) ListByProfile(profileID string) ([]*domain.LearnedPattern, error) {
	return nil, nil
}
func (f *fakePatternRepo) Upsert(profileID, patternKey string, subcategoryID int64, userLabel *string, source domain.PatternSource, confirmed bool) (*domain.LearnedPattern, error) {
	return nil, nil
}
func (f *fakePatternRepo) UpdateRecurringStats(profileID, patternKey string, isRecurring bool, cadenceDays int, avg, min, max float64) error {
	return nil
}

type fakeContactRepo struct {
	contact *domain.Contact
}

func (f *fakeContactRepo) FindByPhoneOrPrefix(profileID string, phoneNumber *string, namePrefix string) (*domain.Contact, error) {
	return f.contact, nil
}
func (f *fakeContactRepo) Upsert(profileID string, phoneNumber *string, namePrefix string, amount float64, at time.Time, defaultSubcategoryID *int64) (*domain.Contact, error) {
	return nil, nil
}

type fakeTxnRepo struct {
	domain.TransactionRepository
	priorMatch *domain.Transaction
}

func (f *fakeTxnRepo) GetMostRecentConfirmedByMerchantKey(profileID, merchantKey string) (*domain.Transaction, error) {
	return f.priorMatch, nil
}

type fakeGlobalRepo struct {
	suggestion *domain.GlobalSuggestion
}

func (f *fakeGlobalRepo) GetByPatternKey(patternKey string) (*domain.GlobalSuggestion, error) {
	return nil, nil
}
func (f *fakeGlobalRepo) FindApprovedMatch(patternKey string) (*domain.GlobalSuggestion, error) {
	return f.suggestion, nil
}
func (f *fakeGlobalRepo) Upsert(patternKey string, subcategoryID int64) (*domain.GlobalSuggestion, error) {
	return nil, nil
}

type fakeSubcategoryRepo struct {
	subcategories []*domain.Subcategory
}

func (f *fakeSubcategoryRepo) List() ([]*domain.Subcategory, error) { return f.subcategories, nil }
func (f *fakeSubcategoryRepo) GetByID(id int64) (*domain.Subcategory, error) {
	for _, s := range f.subcategories {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, domain.ErrNotFound
}

type fakeLLM struct {
	suggestion *llmclient.CategorizationSuggestion
	err        error
}

func (f *fakeLLM) Categorize(ctx context.Context, merchant string, amount decimal.Decimal, subcategories []*domain.Subcategory) (*llmclient.CategorizationSuggestion, error) {
	return f.suggestion, f.err
}

var testSubcategories = []*domain.Subcategory{
	{ID: 1, Name: "Supermercado", Description: "Groceries"},
	{ID: 2, Name: "Gasolina", Description: "Fuel"},
	{ID: 3, Name: "Restaurantes", Description: "Dining"},
}

func TestCategorize_UserPreferenceWins(t *testing.T) {
	c := New(
		&fakePatternRepo{match: &domain.LearnedPattern{SubcategoryID: 1, Confidence: 0.9}},
		&fakeContactRepo{},
		&fakeTxnRepo{},
		&fakeGlobalRepo{},
		&fakeSubcategoryRepo{subcategories: testSubcategories},
		nil,
	)

	res, err := c.Categorize(context.Background(), Input{ProfileID: "p1", MerchantKey: "AUTOMERCADO"})
	if err != nil {
		t.Fatalf("Categorize: %v", err)
	}
	if res.Source != domain.SourceUserPreference || res.SubcategoryID != 1 {
		t.Errorf("got %+v, want user_preference/1", res)
	}
}

func TestCategorize_UserPreferenceBelowThresholdFallsThrough(t *testing.T) {
	c := New(
		&fakePatternRepo{match: &domain.LearnedPattern{SubcategoryID: 1, Confidence: 0.5}},
		&fakeContactRepo{},
		&fakeTxnRepo{},
		&fakeGlobalRepo{},
		&fakeSubcategoryRepo{subcategories: testSubcategories},
		nil,
	)

	res, err := c.Categorize(context.Background(), Input{ProfileID: "p1", MerchantRaw: "AUTOMERCADO SABANA", MerchantKey: "AUTOMERCADO SABANA"})
	if err != nil {
		t.Fatalf("Categorize: %v", err)
	}
	if res.Source != domain.SourceKeyword {
		t.Errorf("expected fallthrough to keyword layer, got source=%s", res.Source)
	}
}

func TestCategorize_SINPEContactLayer(t *testing.T) {
	subcatID := int64(3)
	c := New(
		&fakePatternRepo{},
		&fakeContactRepo{contact: &domain.Contact{DefaultSubcategoryID: &subcatID}},
		&fakeTxnRepo{},
		&fakeGlobalRepo{},
		&fakeSubcategoryRepo{subcategories: testSubcategories},
		nil,
	)

	res, err := c.Categorize(context.Background(), Input{ProfileID: "p1", Kind: domain.KindSINPE, MerchantKey: "SINPE MARIA%"})
	if err != nil {
		t.Fatalf("Categorize: %v", err)
	}
	if res.Source != domain.SourceSINPEContact || res.SubcategoryID != 3 {
		t.Errorf("got %+v, want sinpe_contact/3", res)
	}
}

func TestCategorize_HistoryLayer(t *testing.T) {
	subcatID := int64(2)
	c := New(
		&fakePatternRepo{},
		&fakeContactRepo{},
		&fakeTxnRepo{priorMatch: &domain.Transaction{SubcategoryID: &subcatID}},
		&fakeGlobalRepo{},
		&fakeSubcategoryRepo{subcategories: testSubcategories},
		nil,
	)

	res, err := c.Categorize(context.Background(), Input{ProfileID: "p1", MerchantKey: "UNKNOWN MERCHANT"})
	if err != nil {
		t.Fatalf("Categorize: %v", err)
	}
	if res.Source != domain.SourceHistory || res.Confidence != 95 {
		t.Errorf("got %+v, want history/95", res)
	}
}

func TestCategorize_KeywordSingleStrongMatch(t *testing.T) {
	c := New(
		&fakePatternRepo{}, &fakeContactRepo{}, &fakeTxnRepo{}, &fakeGlobalRepo{},
		&fakeSubcategoryRepo{subcategories: testSubcategories}, nil,
	)

	res, err := c.Categorize(context.Background(), Input{ProfileID: "p1", MerchantRaw: "AUTOMERCADO ESCAZU", MerchantKey: "AUTOMERCADO ESCAZU"})
	if err != nil {
		t.Fatalf("Categorize: %v", err)
	}
	if res.Source != domain.SourceKeyword || res.NeedsReview {
		t.Errorf("got %+v, want keyword/no-review", res)
	}
	if res.SubcategoryID != 1 {
		t.Errorf("SubcategoryID = %d, want 1 (Supermercado)", res.SubcategoryID)
	}
}

func TestCategorize_KeywordMultipleMatchesFlagsReview(t *testing.T) {
	c := New(
		&fakePatternRepo{}, &fakeContactRepo{}, &fakeTxnRepo{}, &fakeGlobalRepo{},
		&fakeSubcategoryRepo{subcategories: testSubcategories}, nil,
	)

	res, err := c.Categorize(context.Background(), Input{ProfileID: "p1", MerchantRaw: "GASOLINERA RESTAURANTE MIXTO", MerchantKey: "X"})
	if err != nil {
		t.Fatalf("Categorize: %v", err)
	}
	if res.Source != domain.SourceKeyword || !res.NeedsReview {
		t.Errorf("got %+v, want keyword/needs-review", res)
	}
	if len(res.Alternatives) == 0 {
		t.Error("expected alternatives to be populated")
	}
}

func TestCategorize_GlobalSuggestionLayer(t *testing.T) {
	c := New(
		&fakePatternRepo{}, &fakeContactRepo{}, &fakeTxnRepo{},
		&fakeGlobalRepo{suggestion: &domain.GlobalSuggestion{SuggestedSubcategoryID: 2, Confidence: 0.6}},
		&fakeSubcategoryRepo{subcategories: testSubcategories}, nil,
	)

	res, err := c.Categorize(context.Background(), Input{ProfileID: "p1", MerchantKey: "UNKNOWN", MerchantRaw: "ZZZ UNKNOWN MERCHANT"})
	if err != nil {
		t.Fatalf("Categorize: %v", err)
	}
	if res.Source != domain.SourceGlobal {
		t.Fatalf("got source=%s, want global_suggestion", res.Source)
	}
	if res.Confidence != globalSuggestionFloor {
		t.Errorf("Confidence = %d, want floor %d", res.Confidence, globalSuggestionFloor)
	}
}

func TestCategorize_LLMFallbackLayer(t *testing.T) {
	c := New(
		&fakePatternRepo{}, &fakeContactRepo{}, &fakeTxnRepo{}, &fakeGlobalRepo{},
		&fakeSubcategoryRepo{subcategories: testSubcategories},
		&fakeLLM{suggestion: &llmclient.CategorizationSuggestion{SubcategoryName: "Restaurantes", Confidence: 80}},
	)

	res, err := c.Categorize(context.Background(), Input{
		ProfileID: "p1", MerchantKey: "UNKNOWN", MerchantRaw: "ZZZ UNKNOWN MERCHANT",
		Amount: decimal.NewFromInt(5000),
	})
	if err != nil {
		t.Fatalf("Categorize: %v", err)
	}
	if res.Source != domain.SourceLLM || res.SubcategoryID != 3 || res.NeedsReview {
		t.Errorf("got %+v, want llm/3/no-review", res)
	}
}

func TestCategorize_LLMLowConfidenceFlagsReview(t *testing.T) {
	c := New(
		&fakePatternRepo{}, &fakeContactRepo{}, &fakeTxnRepo{}, &fakeGlobalRepo{},
		&fakeSubcategoryRepo{subcategories: testSubcategories},
		&fakeLLM{suggestion: &llmclient.CategorizationSuggestion{SubcategoryName: "Restaurantes", Confidence: 55}},
	)

	res, err := c.Categorize(context.Background(), Input{ProfileID: "p1", MerchantKey: "UNKNOWN", MerchantRaw: "ZZZ UNKNOWN MERCHANT"})
	if err != nil {
		t.Fatalf("Categorize: %v", err)
	}
	if !res.NeedsReview {
		t.Error("expected NeedsReview=true for low-confidence LLM result")
	}
}

func TestCategorize_LLMErrorFallsThroughToGiveUp(t *testing.T) {
	c := New(
		&fakePatternRepo{}, &fakeContactRepo{}, &fakeTxnRepo{}, &fakeGlobalRepo{},
		&fakeSubcategoryRepo{subcategories: testSubcategories},
		&fakeLLM{err: domain.ErrLLMQuotaExceeded},
	)

	res, err := c.Categorize(context.Background(), Input{ProfileID: "p1", MerchantKey: "UNKNOWN", MerchantRaw: "ZZZ UNKNOWN MERCHANT"})
	if err != nil {
		t.Fatalf("Categorize should not raise on LLM error: %v", err)
	}
	if res.Source != domain.SourceUncategorized || !res.NeedsReview {
		t.Errorf("got %+v, want uncategorized/needs-review", res)
	}
}

func TestCategorize_AllLayersMissResultsInGiveUp(t *testing.T) {
	c := New(
		&fakePatternRepo{}, &fakeContactRepo{}, &fakeTxnRepo{}, &fakeGlobalRepo{},
		&fakeSubcategoryRepo{subcategories: testSubcategories}, nil,
	)

	res, err := c.Categorize(context.Background(), Input{ProfileID: "p1", MerchantKey: "ZZZ", MerchantRaw: "ZZZ UNRECOGNIZABLE MERCHANT"})
	if err != nil {
		t.Fatalf("Categorize: %v", err)
	}
	if res.Source != domain.SourceUncategorized || res.SubcategoryID != domain.UncategorizedSubcategoryID {
		t.Errorf("got %+v, want uncategorized", res)
	}
}
