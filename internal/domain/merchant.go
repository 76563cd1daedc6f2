package domain

import "time"

// Merchant is the canonical form of a vendor across descriptor variants
// (spec.md §3). Created on first sighting, merged when the normalizer finds
// equivalence, never deleted.
type Merchant struct {
	ID             int64     `json:"id"`
	NormalizedName string    `json:"normalizedName"`
	DisplayName    string    `json:"displayName"`
	City           *string   `json:"city,omitempty"`
	Country        *string   `json:"country,omitempty"`
	Aliases        []string  `json:"aliases,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// MerchantRepository persists canonical merchants.
type MerchantRepository interface {
	GetByNormalizedName(normalizedName string) (*Merchant, error)
	GetByID(id int64) (*Merchant, error)
	Create(m *Merchant) (*Merchant, error)
	// AddAlias appends a descriptor variant to an existing merchant's alias list.
	AddAlias(id int64, alias string) error
	// ListCandidatesForFuzzyMerge returns merchants whose normalized name
	// shares the given first significant word, for edit-distance comparison.
	ListCandidatesForFuzzyMerge(firstWord string) ([]*Merchant, error)
	// Merge folds srcID's aliases and history into dstID and marks srcID merged.
	Merge(dstID, srcID int64) error
}
