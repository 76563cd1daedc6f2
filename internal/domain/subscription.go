package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Subscription is a detected recurring charge (spec.md §3, §4.11). The
// offline group-and-score detector in internal/recurring is the canonical
// producer (Open Question #1, spec.md §9) — there is no separate "online"
// detector.
type Subscription struct {
	ID         int64   `json:"id"`
	ProfileID  string  `json:"profileId"`
	MerchantID *int64  `json:"merchantId,omitempty"`
	MerchantKey string `json:"merchantKey"` // used when MerchantID is absent

	AvgAmount    decimal.Decimal `json:"avgAmount"`
	CadenceDays  int             `json:"cadenceDays"`
	FirstSeenAt  time.Time       `json:"firstSeenAt"`
	LastSeenAt   time.Time       `json:"lastSeenAt"`
	NextExpected time.Time       `json:"nextExpected"`
	Confidence   int             `json:"confidence"` // 0-100
	Active       bool            `json:"active"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SubscriptionRepository persists detected subscriptions.
type SubscriptionRepository interface {
	ListActive(profileID string) ([]*Subscription, error)
	GetByMerchantKey(profileID string, merchantKey string) (*Subscription, error)
	Upsert(s *Subscription) (*Subscription, error)
	Deactivate(profileID string, id int64) error
}

// AlertKind enumerates the kinds of derived-view alerts this system raises
// (SPEC_FULL.md supplemented feature #3).
type AlertKind string

const (
	AlertSubscriptionUpcoming   AlertKind = "subscription_upcoming"
	AlertAnomaly                AlertKind = "anomaly"
	AlertReconciliationComplete AlertKind = "reconciliation_complete"
	// AlertDuplicateCandidate is raised by the offline fuzzy duplicate
	// detector (spec.md §4.7); it's reported for the user to resolve, never
	// auto-merged.
	AlertDuplicateCandidate AlertKind = "duplicate_candidate"
)

// Alert is a generic persisted + pushed notification record.
type Alert struct {
	ID        int64     `json:"id"`
	ProfileID string    `json:"profileId"`
	Kind      AlertKind `json:"kind"`
	Message   string    `json:"message"`
	RefID     *int64    `json:"refId,omitempty"` // subscription id, transaction id, statement id
	Acked     bool      `json:"acked"`
	CreatedAt time.Time `json:"createdAt"`
}

// AlertRepository persists alerts for the read-model surface.
type AlertRepository interface {
	Create(a *Alert) (*Alert, error)
	ListUnacked(profileID string) ([]*Alert, error)
	Ack(profileID string, id int64) error
}
