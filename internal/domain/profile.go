package domain

import "time"

// Profile is a data-isolation boundary for one user or one slice of a user's
// finances (e.g. "Personal"/"Business"). Created once during onboarding and
// never destroyed; disable it instead of deleting it.
type Profile struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	MailAddress string `json:"mailAddress"`
	Active      bool   `json:"active"`

	// Sync metadata. Updated as a single committed unit after each successful
	// sync phase (spec.md §3, §4.9) so a crash never leaves these three
	// fields mutually inconsistent.
	LastStatementDate *time.Time `json:"lastStatementDate,omitempty"`
	LastSyncDate      *time.Time `json:"lastSyncDate,omitempty"`
	StatementCycleDays int       `json:"statementCycleDays"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SyncMetadataUpdate is the single committed unit written after a sync phase.
// All three fields are written together; a partial write must never be
// observable (spec.md §4.9, §5).
type SyncMetadataUpdate struct {
	LastStatementDate  *time.Time
	LastSyncDate       *time.Time
	StatementCycleDays *int
}

// CreateProfileInput is the input for onboarding a new profile.
type CreateProfileInput struct {
	DisplayName string
	MailAddress string
}

// ProfileRepository persists Profile records and their sync metadata.
type ProfileRepository interface {
	Create(input CreateProfileInput) (*Profile, error)
	GetByID(id string) (*Profile, error)
	ListActive() ([]*Profile, error)
	SetActive(id string, active bool) error

	// UpdateSyncMetadata commits the three sync-metadata fields atomically.
	UpdateSyncMetadata(id string, update SyncMetadataUpdate) (*Profile, error)
}
