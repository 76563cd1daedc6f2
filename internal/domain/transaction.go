package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionKind classifies the economic nature of a transaction (spec.md §3).
type TransactionKind string

const (
	KindPurchase        TransactionKind = "purchase"
	KindTransfer        TransactionKind = "transfer"
	KindSINPE           TransactionKind = "sinpe"
	KindDeposit         TransactionKind = "deposit"
	KindWithdrawal      TransactionKind = "withdrawal"
	KindInterestEarned  TransactionKind = "interest-earned"
	KindInterestCharged TransactionKind = "interest-charge"
	KindServicePayment  TransactionKind = "service-payment"
	KindInsurance       TransactionKind = "insurance"
	KindCardPayment     TransactionKind = "card-payment"
	KindAdjustment      TransactionKind = "adjustment"
	KindOther           TransactionKind = "other"
)

// TransactionStatus tracks a transaction's lifecycle (spec.md §3).
type TransactionStatus string

const (
	StatusPending     TransactionStatus = "pending"
	StatusConfirmed   TransactionStatus = "confirmed"
	StatusReconciled  TransactionStatus = "reconciled"
	StatusCancelled   TransactionStatus = "cancelled"
	StatusOrphan      TransactionStatus = "orphan"
)

// CategorizationSource records which cascade layer (spec.md §4.6) produced a
// transaction's current category suggestion.
type CategorizationSource string

const (
	SourceUserPreference CategorizationSource = "user_preference"
	SourceSINPEContact   CategorizationSource = "sinpe_contact"
	SourceHistory        CategorizationSource = "history"
	SourceKeyword        CategorizationSource = "keyword"
	SourceGlobal         CategorizationSource = "global_suggestion"
	SourceLLM            CategorizationSource = "llm"
	SourceUncategorized  CategorizationSource = "uncategorized"
	SourceUserCorrection CategorizationSource = "user_correction"
)

// Transaction is the canonical unit this system ingests, reconciles, and
// categorizes (spec.md §3).
type Transaction struct {
	ID      int64  `json:"id"`
	EmailID string `json:"emailId"` // content-addressed, unique per profile (dedup key)

	ProfileID string  `json:"profileId"`
	Bank      string  `json:"bank"`
	CardID    *int64  `json:"cardId,omitempty"`

	// BankAccountIBAN identifies the deposit-account side of a transaction
	// when no card is involved. Open Question #2 (spec.md §9): for card
	// transactions the account identity is CardID; for deposit transactions
	// it is this field.
	BankAccountIBAN *string `json:"bankAccountIban,omitempty"`

	Kind TransactionKind `json:"kind"`

	MerchantRaw string  `json:"merchantRaw"`
	MerchantID  *int64  `json:"merchantId,omitempty"`

	AmountOriginal   decimal.Decimal  `json:"amountOriginal"`
	CurrencyOriginal string           `json:"currencyOriginal"`
	FXRate           *decimal.Decimal `json:"fxRate,omitempty"`
	AmountLocal      decimal.Decimal  `json:"amountLocal"`

	TxnTime time.Time `json:"txnTime"` // always UTC; date-only sources pinned to local noon

	Beneficiary    *string `json:"beneficiary,omitempty"`
	TransferMemo   *string `json:"transferMemo,omitempty"`
	Subtype        *string `json:"subtype,omitempty"`
	BankReference  *string `json:"bankReference,omitempty"`

	SubcategoryID            *int64               `json:"subcategoryId,omitempty"`
	CategoryConfidence       int                  `json:"categoryConfidence"` // 0-100, meaningful only if SubcategoryID set
	CategoryNeedsReview      bool                 `json:"categoryNeedsReview"`
	CategoryConfirmedByUser  bool                 `json:"categoryConfirmedByUser"`
	CategorySource           CategorizationSource `json:"categorySource,omitempty"`
	CategorySuggestedAlt     []int64              `json:"categorySuggestedAlternatives,omitempty"`
	// OriginalAISuggestion preserves the cascade's first suggestion even after
	// a user correction overwrites SubcategoryID (spec.md §4.10 step 1).
	OriginalAISuggestion *int64 `json:"originalAiSuggestion,omitempty"`

	// NeedsReconciliation flags an ambiguous SINPE descriptor (merchant field
	// is only a numeric reference) pending user clarification — distinct
	// from CategoryNeedsReview, which is about category uncertainty
	// (SPEC_FULL.md supplemented feature #2).
	NeedsReconciliation bool `json:"needsReconciliation"`

	Status TransactionStatus `json:"status"`

	IsInternalTransfer bool    `json:"isInternalTransfer"`
	ExcludeFromBudget  bool    `json:"excludeFromBudget"`
	IsAmbiguousMerchant bool   `json:"isAmbiguousMerchant"`
	IsInternational    bool    `json:"isInternational"`
	IsAnomaly          bool    `json:"isAnomaly"`
	AnomalyScore       *decimal.Decimal `json:"anomalyScore,omitempty"`
	SpecialType        *string `json:"specialType,omitempty"` // internal-transfer family, e.g. "card-payment"

	Notes             *string `json:"notes,omitempty"`
	Context           *string `json:"context,omitempty"` // raw metadata bag, JSON-encoded
	AdjustmentReason  *string `json:"adjustmentReason,omitempty"`
	ReconciledAt      *time.Time `json:"reconciledAt,omitempty"`
	StatementID       *int64  `json:"statementId,omitempty"`
	StatementRowRef   *string `json:"statementRowRef,omitempty"`

	TransferPairID *uuid.UUID `json:"transferPairId,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TransactionFilters narrows a listing query.
type TransactionFilters struct {
	ProfileID           string
	StartDate           *time.Time
	EndDate             *time.Time
	Kind                *TransactionKind
	Status              *TransactionStatus
	MerchantID          *int64
	NeedsReview         *bool
	NeedsReconciliation *bool
	Page                int32
	PageSize            int32
}

const (
	DefaultPageSize = 50
	MaxPageSize     = 500
)

// PaginatedTransactions is a page of transaction results.
type PaginatedTransactions struct {
	Data       []*Transaction `json:"data"`
	Page       int32          `json:"page"`
	PageSize   int32          `json:"pageSize"`
	TotalItems int64          `json:"totalItems"`
}

// TransactionRepository persists and queries transactions (Storage Adapter,
// spec.md §4.13/§6).
type TransactionRepository interface {
	// Create is a no-op returning the existing row if EmailID already exists
	// for the profile (spec.md invariant 1 / round-trip law).
	Create(tx *Transaction) (created *Transaction, wasDuplicate bool, err error)
	CreateBatch(txs []*Transaction) (createdCount, duplicateCount int, err error)

	GetByID(profileID string, id int64) (*Transaction, error)
	GetByEmailID(profileID string, emailID string) (*Transaction, error)
	List(filters TransactionFilters) (*PaginatedTransactions, error)

	// GetInWindow returns transactions with TxnTime in [start,end] for a
	// profile, used by reconciliation and recurring detection.
	GetInWindow(profileID string, start, end time.Time) ([]*Transaction, error)
	GetByMerchant(profileID string, merchantID int64, limit int) ([]*Transaction, error)
	GetMostRecentConfirmedByMerchantKey(profileID string, merchantKey string) (*Transaction, error)

	GetNeedingReview(profileID string) ([]*Transaction, error)
	GetNeedingReconciliation(profileID string) ([]*Transaction, error)

	Update(tx *Transaction) error

	// ApplyUserCorrection updates a transaction's category in the same DB
	// transaction that upserts the LearnedPattern/GlobalSuggestion/Contact
	// rows (spec.md §4.10, §5).
	ApplyUserCorrection(profileID string, id int64, subcategoryID int64, userLabel *string) error

	// MarkReconciled links a transaction to a statement row match
	// (spec.md §4.8). Never overwrites other fields.
	MarkReconciled(profileID string, id int64, statementID int64, rowRef string, reconciledAt time.Time) error

	// DecrementCardBalance lowers a card's running balance when a card
	// payment is detected (spec.md §4.12).
	DecrementCardBalance(profileID string, cardID int64, amount decimal.Decimal) error
}
