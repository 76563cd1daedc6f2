package domain

import "time"

// Contact is a per-profile SINPE counterparty directory entry. Promoted to a
// full table (SPEC_FULL.md supplemented feature #6) because both the
// categorization cascade (step 2) and pattern learning (§4.10) read and write
// it in the same transaction as a LearnedPattern update.
type Contact struct {
	ID          int64     `json:"id"`
	ProfileID   string    `json:"profileId"`
	PhoneNumber *string   `json:"phoneNumber,omitempty"`
	NamePrefix  string    `json:"namePrefix"`

	DefaultSubcategoryID *int64 `json:"defaultSubcategoryId,omitempty"`

	TotalTransactions int       `json:"totalTransactions"`
	TotalAmount       float64   `json:"totalAmount"`
	LastTransactionAt time.Time `json:"lastTransactionAt"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ContactRepository persists SINPE contacts.
type ContactRepository interface {
	// FindByPhoneOrPrefix looks up a contact by phone number first, falling
	// back to a name-prefix match (spec.md §4.6 step 2).
	FindByPhoneOrPrefix(profileID string, phoneNumber *string, namePrefix string) (*Contact, error)

	// Upsert increments transaction stats for the matched contact, creating
	// it if absent (spec.md §4.10).
	Upsert(profileID string, phoneNumber *string, namePrefix string, amount float64, at time.Time, defaultSubcategoryID *int64) (*Contact, error)
}
