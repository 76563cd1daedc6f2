// Package learning implements the pattern-learning triple-write (spec.md
// §4.10): whenever a user corrects a transaction's category, the
// transaction, the profile's LearnedPattern, the crowd-sourced
// GlobalSuggestion, and (for SINPE corrections) the profile's Contact are
// updated as a single committed unit.
package learning

import (
	"strings"
	"time"

	"github.com/sebascrugu/finanzas-tracker-go/internal/domain"
	"github.com/sebascrugu/finanzas-tracker-go/internal/merchant"
)

// Input is a user's correction of a transaction's category.
type Input struct {
	ProfileID        string
	TransactionID    int64
	Kind             domain.TransactionKind
	MerchantRaw      string
	NewSubcategoryID int64
	UserLabel        *string

	// PhoneNumber and NamePrefix are the SINPE descriptor fields already
	// extracted upstream (same shape as categorize.Input); only consulted
	// when Kind is SINPE.
	PhoneNumber *string
	NamePrefix  string

	Amount float64
	At     time.Time
}

// Result reports which of the triple-write's branches actually ran, mirroring
// the original feedback loop's per-step outcome flags.
type Result struct {
	PatternKey      string
	PreferenceSaved bool
	ContactLearned  bool
	GlobalProposed  bool
}

// Learner orchestrates the triple-write across repositories that otherwise
// know nothing of each other.
type Learner struct {
	tx           domain.TxManager
	transactions domain.TransactionRepository
	patterns     domain.LearnedPatternRepository
	globals      domain.GlobalSuggestionRepository
	contacts     domain.ContactRepository
}

func New(
	tx domain.TxManager,
	transactions domain.TransactionRepository,
	patterns domain.LearnedPatternRepository,
	globals domain.GlobalSuggestionRepository,
	contacts domain.ContactRepository,
) *Learner {
	return &Learner{
		tx:           tx,
		transactions: transactions,
		patterns:     patterns,
		globals:      globals,
		contacts:     contacts,
	}
}

// RecordCorrection runs the triple-write (spec.md §4.10) in one transaction:
// 1. the transaction's category is updated,
// 2. the profile's LearnedPattern for the merchant is upserted,
// 3. a SINPE correction additionally upserts the profile's Contact,
// 4. the crowd-sourced GlobalSuggestion is upserted.
// Confidence arithmetic for steps 2-4 lives in the repository Upsert
// implementations (see their domain interface doc comments); this package
// only decides pattern key derivation, ordering, and the SINPE branch.
func (l *Learner) RecordCorrection(in Input) (*Result, error) {
	patternKey := patternKeyFor(in.MerchantRaw)
	result := &Result{PatternKey: patternKey}

	err := l.tx.WithinTx(func() error {
		if err := l.transactions.ApplyUserCorrection(in.ProfileID, in.TransactionID, in.NewSubcategoryID, in.UserLabel); err != nil {
			return err
		}

		if _, err := l.patterns.Upsert(
			in.ProfileID, patternKey, in.NewSubcategoryID, in.UserLabel,
			domain.PatternSourceCorrection, true,
		); err != nil {
			return err
		}
		result.PreferenceSaved = true

		if isSINPE(in) {
			if _, err := l.contacts.Upsert(
				in.ProfileID, in.PhoneNumber, in.NamePrefix, in.Amount, in.At, &in.NewSubcategoryID,
			); err != nil {
				return err
			}
			result.ContactLearned = true
		}

		if _, err := l.globals.Upsert(patternKey, in.NewSubcategoryID); err != nil {
			return err
		}
		result.GlobalProposed = true

		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func isSINPE(in Input) bool {
	return in.Kind == domain.KindSINPE || strings.Contains(strings.ToUpper(in.MerchantRaw), "SINPE")
}

// patternKeyFor derives the glob-generalized pattern key a LearnedPattern and
// GlobalSuggestion are keyed on. merchant.Normalize already strips reference
// numbers/star-codes and appends "%" for the SINPE case, so it doubles as the
// pattern-key derivation spec.md §4.10 step 2 calls for.
func patternKeyFor(merchantRaw string) string {
	key := merchant.Normalize(merchantRaw)
	if strings.HasSuffix(key, "%") {
		return key
	}
	first := merchant.FirstSignificantWord(key)
	if first == "" {
		return key
	}
	return first + "%"
}
