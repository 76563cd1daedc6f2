// Package categorize implements the Categorization Cascade (spec.md §4.6):
// an ordered decision procedure over per-profile learned patterns, SINPE
// contacts, transaction history, keyword rules, crowd-sourced suggestions,
// and a vendor LLM fallback. The first layer to produce a result wins, but
// every layer's source is recorded so a later user correction can be traced
// back to what the system originally guessed.
package categorize

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/sebascrugu/finanzas-tracker-go/internal/domain"
	"github.com/sebascrugu/finanzas-tracker-go/internal/llmclient"
)

const (
	// userPreferenceMinConfidence is the floor spec.md §4.6 step 1 requires
	// before a LearnedPattern is trusted without review.
	userPreferenceMinConfidence = 0.70

	sinpeContactConfidence = 90
	historyConfidence      = 95

	keywordHighConfidence        = 90
	keywordMediumConfidence      = 75
	keywordHighConfidenceMinLen  = 5 // keyword length strictly greater than this counts as a "strong" match

	globalSuggestionFloor = 70

	llmReviewThreshold = 70
)

// LLMCategorizer is the step-6 fallback contract (spec.md §4.6 step 6):
// raw merchant, amount, and the available subcategories' names/descriptions
// go out; a suggestion or an error (quota, malformed reply, network) comes
// back. Implemented by internal/llmclient.
type LLMCategorizer interface {
	Categorize(ctx context.Context, merchant string, amount decimal.Decimal, subcategories []*domain.Subcategory) (*llmclient.CategorizationSuggestion, error)
}

// Result is what the cascade hands back to the caller, ready to be written
// onto a Transaction's category fields.
type Result struct {
	SubcategoryID int64
	Confidence    int // 0-100
	NeedsReview   bool
	Source        domain.CategorizationSource
	Alternatives  []int64
}

// Input bundles the fields the cascade's layers read. Only MerchantRaw and
// MerchantKey are always required; PhoneNumber/NamePrefix matter only for
// SINPE transactions.
type Input struct {
	ProfileID   string
	Kind        domain.TransactionKind
	MerchantRaw string
	MerchantKey string // normalized, from internal/merchant
	Amount      decimal.Decimal
	PhoneNumber *string
	NamePrefix  string
}

// Cascade holds the repositories and vendor client the seven layers read.
// LLM is optional — a nil LLM skips straight from step 5 to step 7, which
// is how a deployment without an API key configured still produces a
// (lower-quality) result instead of failing.
type Cascade struct {
	patterns     domain.LearnedPatternRepository
	contacts     domain.ContactRepository
	transactions domain.TransactionRepository
	globals      domain.GlobalSuggestionRepository
	subcategories domain.SubcategoryRepository
	llm          LLMCategorizer

	keywordRules []KeywordRule

	// nameToID resolves a subcategory's display name (used by the keyword
	// table and the LLM prompt/reply) back to its taxonomy ID. Built lazily
	// from subcategories.List() and cached for the Cascade's lifetime.
	nameToID map[string]int64
}

// New builds a Cascade. llm may be nil.
func New(
	patterns domain.LearnedPatternRepository,
	contacts domain.ContactRepository,
	transactions domain.TransactionRepository,
	globals domain.GlobalSuggestionRepository,
	subcategories domain.SubcategoryRepository,
	llm LLMCategorizer,
) *Cascade {
	return &Cascade{
		patterns:      patterns,
		contacts:      contacts,
		transactions:  transactions,
		globals:       globals,
		subcategories: subcategories,
		llm:           llm,
		keywordRules:  DefaultKeywordRules(),
	}
}

// Categorize runs the cascade and returns the first layer's result.
func (c *Cascade) Categorize(ctx context.Context, in Input) (*Result, error) {
	if res, err := c.userPreference(in); err != nil || res != nil {
		return res, err
	}
	if res, err := c.sinpeContact(in); err != nil || res != nil {
		return res, err
	}
	if res, err := c.history(in); err != nil || res != nil {
		return res, err
	}
	if res := c.keyword(in); res != nil {
		return res, nil
	}
	if res, err := c.globalSuggestion(in); err != nil || res != nil {
		return res, err
	}
	if res, err := c.llmFallback(ctx, in); err != nil || res != nil {
		return res, err
	}
	return c.giveUp(), nil
}

// userPreference is cascade step 1.
func (c *Cascade) userPreference(in Input) (*Result, error) {
	pattern, err := c.patterns.FindMatch(in.ProfileID, in.MerchantKey)
	if err != nil {
		return nil, err
	}
	if pattern == nil || pattern.Confidence < userPreferenceMinConfidence {
		return nil, nil
	}
	return &Result{
		SubcategoryID: pattern.SubcategoryID,
		Confidence:    int(pattern.Confidence * 100),
		NeedsReview:   false,
		Source:        domain.SourceUserPreference,
	}, nil
}

// sinpeContact is cascade step 2, SINPE transactions only.
func (c *Cascade) sinpeContact(in Input) (*Result, error) {
	if in.Kind != domain.KindSINPE || c.contacts == nil {
		return nil, nil
	}
	contact, err := c.contacts.FindByPhoneOrPrefix(in.ProfileID, in.PhoneNumber, in.NamePrefix)
	if err != nil {
		return nil, err
	}
	if contact == nil || contact.DefaultSubcategoryID == nil {
		return nil, nil
	}
	return &Result{
		SubcategoryID: *contact.DefaultSubcategoryID,
		Confidence:    sinpeContactConfidence,
		NeedsReview:   false,
		Source:        domain.SourceSINPEContact,
	}, nil
}

// history is cascade step 3.
func (c *Cascade) history(in Input) (*Result, error) {
	prior, err := c.transactions.GetMostRecentConfirmedByMerchantKey(in.ProfileID, in.MerchantKey)
	if err != nil {
		return nil, err
	}
	if prior == nil || prior.SubcategoryID == nil {
		return nil, nil
	}
	return &Result{
		SubcategoryID: *prior.SubcategoryID,
		Confidence:    historyConfidence,
		NeedsReview:   false,
		Source:        domain.SourceHistory,
	}, nil
}

// keyword is cascade step 4. Never errors: an unresolvable rule (its
// subcategory name isn't in the current taxonomy) is simply skipped.
func (c *Cascade) keyword(in Input) *Result {
	nameToID := c.subcategoryNameIndex()
	if nameToID == nil {
		return nil
	}

	matches := matchKeywordRules(in.MerchantRaw, c.keywordRules)
	if len(matches) == 0 {
		return nil
	}

	resolved := make([]keywordMatch, 0, len(matches))
	for _, m := range matches {
		if id, ok := nameToID[m.SubcategoryName]; ok {
			m.subcategoryID = id
			resolved = append(resolved, m)
		}
	}
	if len(resolved) == 0 {
		return nil
	}

	if len(resolved) == 1 && resolved[0].Confidence >= keywordHighConfidence {
		return &Result{
			SubcategoryID: resolved[0].subcategoryID,
			Confidence:    resolved[0].Confidence,
			NeedsReview:   false,
			Source:        domain.SourceKeyword,
		}
	}

	alternatives := make([]int64, 0, len(resolved)-1)
	for _, m := range resolved[1:] {
		alternatives = append(alternatives, m.subcategoryID)
	}
	return &Result{
		SubcategoryID: resolved[0].subcategoryID,
		Confidence:    resolved[0].Confidence,
		NeedsReview:   true,
		Source:        domain.SourceKeyword,
		Alternatives:  alternatives,
	}
}

// globalSuggestion is cascade step 5.
func (c *Cascade) globalSuggestion(in Input) (*Result, error) {
	if c.globals == nil {
		return nil, nil
	}
	suggestion, err := c.globals.FindApprovedMatch(in.MerchantKey)
	if err != nil {
		return nil, err
	}
	if suggestion == nil {
		return nil, nil
	}
	confidence := int(suggestion.Confidence * 100)
	if confidence < globalSuggestionFloor {
		confidence = globalSuggestionFloor
	}
	return &Result{
		SubcategoryID: suggestion.SuggestedSubcategoryID,
		Confidence:    confidence,
		NeedsReview:   false,
		Source:        domain.SourceGlobal,
	}, nil
}

// llmFallback is cascade step 6. A nil LLM, a provider error, or a
// malformed/unresolvable reply all fall through to step 7 without raising
// (spec.md §4.6: "the implementation must handle provider errors, quota
// exhaustion, and malformed JSON by falling through to step 7 without
// raising").
func (c *Cascade) llmFallback(ctx context.Context, in Input) (*Result, error) {
	if c.llm == nil {
		return nil, nil
	}
	subcats, err := c.subcategories.List()
	if err != nil || len(subcats) == 0 {
		return nil, nil
	}

	suggestion, err := c.llm.Categorize(ctx, in.MerchantRaw, in.Amount, subcats)
	if err != nil {
		return nil, nil
	}

	nameToID := c.subcategoryNameIndex()
	id, ok := nameToID[suggestion.SubcategoryName]
	if !ok {
		return nil, nil
	}

	return &Result{
		SubcategoryID: id,
		Confidence:    suggestion.Confidence,
		NeedsReview:   suggestion.Confidence < llmReviewThreshold,
		Source:        domain.SourceLLM,
	}, nil
}

// giveUp is cascade step 7.
func (c *Cascade) giveUp() *Result {
	return &Result{
		SubcategoryID: domain.UncategorizedSubcategoryID,
		Confidence:    0,
		NeedsReview:   true,
		Source:        domain.SourceUncategorized,
	}
}

func (c *Cascade) subcategoryNameIndex() map[string]int64 {
	if c.nameToID != nil {
		return c.nameToID
	}
	subcats, err := c.subcategories.List()
	if err != nil {
		return nil
	}
	index := make(map[string]int64, len(subcats))
	for _, s := range subcats {
		index[s.Name] = s.ID
	}
	c.nameToID = index
	return index
}
