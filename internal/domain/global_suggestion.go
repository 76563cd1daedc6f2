package domain

import "time"

// SuggestionStatus tracks crowd-sourced approval state (spec.md §3).
type SuggestionStatus string

const (
	SuggestionPending      SuggestionStatus = "pending"
	SuggestionApproved     SuggestionStatus = "approved"
	SuggestionAutoApproved SuggestionStatus = "auto-approved"
)

// GlobalSuggestion is the crowd-sourced overlay on top of per-profile
// LearnedPatterns (spec.md §3). Auto-approved once UserCount >= 5.
type GlobalSuggestion struct {
	ID                     int64            `json:"id"`
	PatternKey             string           `json:"patternKey"`
	SuggestedSubcategoryID int64            `json:"suggestedSubcategoryId"`
	UserCount              int              `json:"userCount"`
	Confidence             float64          `json:"confidence"`
	Status                 SuggestionStatus `json:"status"`
	CreatedAt              time.Time        `json:"createdAt"`
	UpdatedAt              time.Time        `json:"updatedAt"`
}

// GlobalSuggestionRepository persists the crowd-sourced overlay table.
type GlobalSuggestionRepository interface {
	GetByPatternKey(patternKey string) (*GlobalSuggestion, error)
	FindApprovedMatch(patternKey string) (*GlobalSuggestion, error)

	// Upsert implements spec.md §4.10 step 3: new rows start at confidence
	// 0.75; existing rows rise to 0.70 + 0.05*UserCount (capped at 0.99) and
	// auto-approve at UserCount >= 5.
	Upsert(patternKey string, subcategoryID int64) (*GlobalSuggestion, error)
}
