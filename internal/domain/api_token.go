package domain

import "time"

// APIToken authenticates automation clients (cron, the batch runner) against
// the control API, separate from the Auth0-gated dashboard read API —
// adapted from the teacher's api_token.go for this single-user deployment's
// "let cron trigger a sync" surface.
type APIToken struct {
	ID         int64      `json:"id"`
	ProfileID  string     `json:"profileId"`
	Label      string     `json:"label"`
	TokenHash  string     `json:"-"`
	Prefix     string     `json:"prefix"` // "ftz_" + first 8 chars, for display
	Revoked    bool       `json:"revoked"`
	LastUsedAt *time.Time `json:"lastUsedAt,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// APITokenRepository persists and validates API tokens.
type APITokenRepository interface {
	Create(profileID, label string, tokenHash string, prefix string) (*APIToken, error)
	GetByHash(tokenHash string) (*APIToken, error)
	Revoke(id int64) error
	TouchLastUsed(id int64, at time.Time) error
}
