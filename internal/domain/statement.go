package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// StatementKind distinguishes the two PDF variants spec.md §4.4 describes.
type StatementKind string

const (
	StatementCreditCard    StatementKind = "credit_card"
	StatementDepositAccount StatementKind = "deposit_account"
)

// BankStatement is a PDF statement and its reconciliation outcome
// (spec.md §3).
type BankStatement struct {
	ID         int64         `json:"id"`
	ProfileID  string        `json:"profileId"`
	Bank       string        `json:"bank"`
	Kind       StatementKind `json:"kind"`
	CardID     *int64        `json:"cardId,omitempty"`

	PeriodStart time.Time `json:"periodStart"`
	PeriodEnd   time.Time `json:"periodEnd"` // cut date

	DueDate          *time.Time       `json:"dueDate,omitempty"`
	CreditLimit      *decimal.Decimal `json:"creditLimit,omitempty"`
	MinimumPayment   *decimal.Decimal `json:"minimumPayment,omitempty"`

	ObjectKey string `json:"objectKey"` // S3/MinIO key for the archived PDF blob

	TotalPDF         int     `json:"totalPdf"`
	TotalSystem      int     `json:"totalSystem"`
	MatchedCount     int     `json:"matchedCount"`
	MatchPercentage  float64 `json:"matchPercentage"`
	ReconcileStatus  string  `json:"reconcileStatus"` // perfect | good | needs-review

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// StatementSection is the section a PDF row was scanned under
// (spec.md §4.4's state machine).
type StatementSection string

const (
	SectionPurchases StatementSection = "purchases"
	SectionInterest  StatementSection = "interest"
	SectionCharges   StatementSection = "charges"
	SectionProducts  StatementSection = "products_and_services"
	SectionPayment   StatementSection = "payment"
	SectionUnknown   StatementSection = "unknown"
)

// StatementRow is one extracted row from a PDF statement, in source order.
type StatementRow struct {
	Reference   string
	Date        time.Time
	Description string
	Location    *string
	Currency    string
	Amount      decimal.Decimal
	Section     StatementSection
	RowOrdinal  int
}

// BankStatementRepository persists statements and their rows/report summary.
type BankStatementRepository interface {
	Create(s *BankStatement) (*BankStatement, error)
	GetByID(profileID string, id int64) (*BankStatement, error)
	ListByProfile(profileID string) ([]*BankStatement, error)
	// UpdateReconcileSummary commits the four-bucket report (spec.md §4.8).
	UpdateReconcileSummary(profileID string, id int64, totalPDF, totalSystem, matched int, matchPct float64, status string) error
}

// ParsedTransaction is the output contract of an Email Parser
// (spec.md §4.3) — mirrors the Transaction fields a parser can fill, plus a
// metadata bag downstream code lifts into dedicated fields.
type ParsedTransaction struct {
	Bank             string
	Kind             TransactionKind
	MerchantRaw      string
	AmountOriginal   decimal.Decimal
	CurrencyOriginal string
	TxnTime          time.Time
	BankReference    *string

	Metadata ParsedTransactionMetadata

	// SourceMessageID is the upstream mail message id, the natural key for
	// email-sourced dedup (spec.md §4.7).
	SourceMessageID string
}

// ParsedTransactionMetadata is the bag an Email Parser fills; the ingestion
// pipeline lifts these into Transaction's dedicated fields (spec.md §4.3).
type ParsedTransactionMetadata struct {
	Beneficiary         *string
	Concepto            *string
	Subtype             *string
	BankReference       *string
	IsOwnTransfer       bool
	NeedsReconciliation bool
}
