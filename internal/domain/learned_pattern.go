package domain

import "time"

// PatternSource records where a LearnedPattern originated (spec.md §3).
type PatternSource string

const (
	PatternSourceUserExplicit PatternSource = "user_explicit"
	PatternSourceCorrection   PatternSource = "correction"
	PatternSourceImported     PatternSource = "imported"
)

// LearnedPattern is what the system has learned, per profile, about a
// merchant family (spec.md §3, §4.6 step 1, §4.10).
type LearnedPattern struct {
	ID          int64   `json:"id"`
	ProfileID   string  `json:"profileId"`
	PatternKey  string  `json:"patternKey"` // normalized, may carry a glob suffix e.g. "UBER%"

	SubcategoryID int64   `json:"subcategoryId"`
	UserLabel     *string `json:"userLabel,omitempty"`

	TimesMatched   int     `json:"timesMatched"`
	TimesConfirmed int     `json:"timesConfirmed"`
	TimesRejected  int     `json:"timesRejected"`
	Confidence     float64 `json:"confidence"` // 0-1
	Source         PatternSource `json:"source"`

	IsRecurring      bool             `json:"isRecurring"`
	RecurringCadence *int             `json:"recurringCadenceDays,omitempty"`
	AvgAmount        *float64         `json:"avgAmount,omitempty"`
	MinAmount        *float64         `json:"minAmount,omitempty"`
	MaxAmount        *float64         `json:"maxAmount,omitempty"`

	LastSeenAt time.Time `json:"lastSeenAt"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// LearnedPatternRepository persists per-profile learned patterns. Writes use
// row-level locking on (profile_id, pattern_key) to keep the triple-update
// in internal/learning atomic (spec.md §5).
type LearnedPatternRepository interface {
	// FindMatch returns the highest-confidence pattern whose key matches
	// merchantKey (glob-aware), or nil if none match.
	FindMatch(profileID string, merchantKey string) (*LearnedPattern, error)
	GetByKey(profileID string, patternKey string) (*LearnedPattern, error)
	ListByProfile(profileID string) ([]*LearnedPattern, error)

	// Upsert increments match/confirm counters and raises confidence,
	// creating the row if absent. Must run inside the caller's transaction
	// when part of the pattern-learning triple-write.
	Upsert(profileID string, patternKey string, subcategoryID int64, userLabel *string, source PatternSource, confirmed bool) (*LearnedPattern, error)

	UpdateRecurringStats(profileID string, patternKey string, isRecurring bool, cadenceDays int, avg, min, max float64) error
}
