package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Card tracks a credit card's identity and running balance so the
// Internal-Transfer Detector has something concrete to decrement when a
// card-payment family matches (spec.md §4.12, SPEC_FULL.md feature #4).
type Card struct {
	ID             int64           `json:"id"`
	ProfileID      string          `json:"profileId"`
	Bank           string          `json:"bank"`
	Last4Digits    string          `json:"last4Digits"`
	CreditLimit    decimal.Decimal `json:"creditLimit"`
	RunningBalance decimal.Decimal `json:"runningBalance"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// CardRepository persists cards and resolves them by trailing digits.
type CardRepository interface {
	GetByID(profileID string, id int64) (*Card, error)
	FindByLast4(profileID string, last4 string) (*Card, error)
	ListByProfile(profileID string) ([]*Card, error)
	Create(c *Card) (*Card, error)
	DecrementBalance(profileID string, id int64, amount decimal.Decimal) error
}
