package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/sebascrugu/finanzas-tracker-go/internal/domain"
)

// TransactionRepository implements domain.TransactionRepository using
// PostgreSQL.
type TransactionRepository struct {
	pool   *pgxpool.Pool
	holder *txHolder
}

func NewTransactionRepository(pool *pgxpool.Pool, holder *txHolder) *TransactionRepository {
	return &TransactionRepository{pool: pool, holder: holder}
}

func (r *TransactionRepository) q() querier { return r.holder.querier(r.pool) }

const txnColumns = `
	id, email_id, profile_id, bank, card_id, bank_account_iban, kind,
	merchant_raw, merchant_id, amount_original, currency_original, fx_rate,
	amount_local, txn_time, beneficiary, transfer_memo, subtype, bank_reference,
	subcategory_id, category_confidence, category_needs_review,
	category_confirmed_by_user, category_source, category_suggested_alt,
	original_ai_suggestion, needs_reconciliation, status, is_internal_transfer,
	exclude_from_budget, is_ambiguous_merchant, is_international, is_anomaly,
	anomaly_score, special_type, notes, context, adjustment_reason,
	reconciled_at, statement_id, statement_row_ref, transfer_pair_id,
	created_at, updated_at`

func scanTxn(row rowScanner) (*domain.Transaction, error) {
	var t domain.Transaction
	var amountOriginal, amountLocal, fxRate, anomalyScore pgtype.Numeric
	var kind, status, categorySource pgtype.Text
	var transferPairID pgtype.UUID

	err := row.Scan(
		&t.ID, &t.EmailID, &t.ProfileID, &t.Bank, &t.CardID, &t.BankAccountIBAN, &kind,
		&t.MerchantRaw, &t.MerchantID, &amountOriginal, &t.CurrencyOriginal, &fxRate,
		&amountLocal, &t.TxnTime, &t.Beneficiary, &t.TransferMemo, &t.Subtype, &t.BankReference,
		&t.SubcategoryID, &t.CategoryConfidence, &t.CategoryNeedsReview,
		&t.CategoryConfirmedByUser, &categorySource, &t.CategorySuggestedAlt,
		&t.OriginalAISuggestion, &t.NeedsReconciliation, &status, &t.IsInternalTransfer,
		&t.ExcludeFromBudget, &t.IsAmbiguousMerchant, &t.IsInternational, &t.IsAnomaly,
		&anomalyScore, &t.SpecialType, &t.Notes, &t.Context, &t.AdjustmentReason,
		&t.ReconciledAt, &t.StatementID, &t.StatementRowRef, &transferPairID,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.Kind = domain.TransactionKind(kind.String)
	t.Status = domain.TransactionStatus(status.String)
	t.CategorySource = domain.CategorizationSource(categorySource.String)
	t.AmountOriginal = numericToDecimal(amountOriginal)
	t.AmountLocal = numericToDecimal(amountLocal)
	if fxRate.Valid {
		d := numericToDecimal(fxRate)
		t.FXRate = &d
	}
	if anomalyScore.Valid {
		d := numericToDecimal(anomalyScore)
		t.AnomalyScore = &d
	}
	if transferPairID.Valid {
		id := uuid.UUID(transferPairID.Bytes)
		t.TransferPairID = &id
	}
	return &t, nil
}

func (r *TransactionRepository) insertArgs(t *domain.Transaction) ([]any, error) {
	amountOriginal, err := decimalToNumeric(t.AmountOriginal)
	if err != nil {
		return nil, fmt.Errorf("invalid amount_original: %w", err)
	}
	amountLocal, err := decimalToNumeric(t.AmountLocal)
	if err != nil {
		return nil, fmt.Errorf("invalid amount_local: %w", err)
	}
	fxRate, err := decimalPtrToNumeric(t.FXRate)
	if err != nil {
		return nil, fmt.Errorf("invalid fx_rate: %w", err)
	}
	anomalyScore, err := decimalPtrToNumeric(t.AnomalyScore)
	if err != nil {
		return nil, fmt.Errorf("invalid anomaly_score: %w", err)
	}

	var transferPairID pgtype.UUID
	if t.TransferPairID != nil {
		transferPairID = pgtype.UUID{Bytes: *t.TransferPairID, Valid: true}
	}

	return []any{
		t.EmailID, t.ProfileID, t.Bank, t.CardID, t.BankAccountIBAN, string(t.Kind),
		t.MerchantRaw, t.MerchantID, amountOriginal, t.CurrencyOriginal, fxRate,
		amountLocal, t.TxnTime, t.Beneficiary, t.TransferMemo, t.Subtype, t.BankReference,
		t.SubcategoryID, t.CategoryConfidence, t.CategoryNeedsReview,
		t.CategoryConfirmedByUser, string(t.CategorySource), t.CategorySuggestedAlt,
		t.OriginalAISuggestion, t.NeedsReconciliation, string(t.Status), t.IsInternalTransfer,
		t.ExcludeFromBudget, t.IsAmbiguousMerchant, t.IsInternational, t.IsAnomaly,
		anomalyScore, t.SpecialType, t.Notes, t.Context, t.AdjustmentReason,
		t.ReconciledAt, t.StatementID, t.StatementRowRef, transferPairID,
	}, nil
}

const insertTxnSQL = `
	INSERT INTO transactions (
		email_id, profile_id, bank, card_id, bank_account_iban, kind,
		merchant_raw, merchant_id, amount_original, currency_original, fx_rate,
		amount_local, txn_time, beneficiary, transfer_memo, subtype, bank_reference,
		subcategory_id, category_confidence, category_needs_review,
		category_confirmed_by_user, category_source, category_suggested_alt,
		original_ai_suggestion, needs_reconciliation, status, is_internal_transfer,
		exclude_from_budget, is_ambiguous_merchant, is_international, is_anomaly,
		anomaly_score, special_type, notes, context, adjustment_reason,
		reconciled_at, statement_id, statement_row_ref, transfer_pair_id
	) VALUES (
		$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,
		$21,$22,$23,$24,$25,$26,$27,$28,$29,$30,$31,$32,$33,$34,$35,$36,$37,$38,$39
	)
	ON CONFLICT (profile_id, email_id) DO NOTHING
	RETURNING ` + txnColumns

// Create is a no-op returning the existing row if EmailID already exists for
// the profile (spec.md invariant 1 / round-trip law).
func (r *TransactionRepository) Create(t *domain.Transaction) (*domain.Transaction, bool, error) {
	args, err := r.insertArgs(t)
	if err != nil {
		return nil, false, err
	}
	row := r.q().QueryRow(context.Background(), insertTxnSQL, args...)
	created, err := scanTxn(row)
	if err == nil {
		return created, false, nil
	}
	if !isNoRows(err) {
		return nil, false, err
	}

	existing, err := r.GetByEmailID(t.ProfileID, t.EmailID)
	if err != nil {
		return nil, false, err
	}
	return existing, true, nil
}

func (r *TransactionRepository) CreateBatch(txs []*domain.Transaction) (createdCount, duplicateCount int, err error) {
	for _, t := range txs {
		_, wasDup, err := r.Create(t)
		if err != nil {
			return createdCount, duplicateCount, err
		}
		if wasDup {
			duplicateCount++
		} else {
			createdCount++
		}
	}
	return createdCount, duplicateCount, nil
}

func (r *TransactionRepository) GetByID(profileID string, id int64) (*domain.Transaction, error) {
	row := r.q().QueryRow(context.Background(),
		`SELECT `+txnColumns+` FROM transactions WHERE profile_id = $1 AND id = $2`, profileID, id)
	t, err := scanTxn(row)
	if isNoRows(err) {
		return nil, domain.ErrTransactionNotFound
	}
	return t, err
}

func (r *TransactionRepository) GetByEmailID(profileID string, emailID string) (*domain.Transaction, error) {
	row := r.q().QueryRow(context.Background(),
		`SELECT `+txnColumns+` FROM transactions WHERE profile_id = $1 AND email_id = $2`, profileID, emailID)
	t, err := scanTxn(row)
	if isNoRows(err) {
		return nil, domain.ErrTransactionNotFound
	}
	return t, err
}

func (r *TransactionRepository) List(f domain.TransactionFilters) (*domain.PaginatedTransactions, error) {
	page := f.Page
	if page < 1 {
		page = 1
	}
	pageSize := f.PageSize
	if pageSize <= 0 {
		pageSize = domain.DefaultPageSize
	}
	if pageSize > domain.MaxPageSize {
		pageSize = domain.MaxPageSize
	}

	where := `WHERE profile_id = $1`
	args := []any{f.ProfileID}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if f.StartDate != nil {
		where += ` AND txn_time >= ` + arg(*f.StartDate)
	}
	if f.EndDate != nil {
		where += ` AND txn_time <= ` + arg(*f.EndDate)
	}
	if f.Kind != nil {
		where += ` AND kind = ` + arg(string(*f.Kind))
	}
	if f.Status != nil {
		where += ` AND status = ` + arg(string(*f.Status))
	}
	if f.MerchantID != nil {
		where += ` AND merchant_id = ` + arg(*f.MerchantID)
	}
	if f.NeedsReview != nil {
		where += ` AND category_needs_review = ` + arg(*f.NeedsReview)
	}
	if f.NeedsReconciliation != nil {
		where += ` AND needs_reconciliation = ` + arg(*f.NeedsReconciliation)
	}

	ctx := context.Background()

	var total int64
	if err := r.q().QueryRow(ctx, `SELECT count(*) FROM transactions `+where, args...).Scan(&total); err != nil {
		return nil, err
	}

	limitArg := arg(pageSize)
	offsetArg := arg((page - 1) * pageSize)
	rows, err := r.q().Query(ctx,
		`SELECT `+txnColumns+` FROM transactions `+where+` ORDER BY txn_time DESC LIMIT `+limitArg+` OFFSET `+offsetArg,
		args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	data := make([]*domain.Transaction, 0, pageSize)
	for rows.Next() {
		t, err := scanTxn(rows)
		if err != nil {
			return nil, err
		}
		data = append(data, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &domain.PaginatedTransactions{
		Data:       data,
		Page:       page,
		PageSize:   pageSize,
		TotalItems: total,
	}, nil
}

func (r *TransactionRepository) GetInWindow(profileID string, start, end time.Time) ([]*domain.Transaction, error) {
	rows, err := r.q().Query(context.Background(),
		`SELECT `+txnColumns+` FROM transactions
		 WHERE profile_id = $1 AND txn_time BETWEEN $2 AND $3
		 ORDER BY txn_time`, profileID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTxns(rows)
}

func (r *TransactionRepository) GetByMerchant(profileID string, merchantID int64, limit int) ([]*domain.Transaction, error) {
	rows, err := r.q().Query(context.Background(),
		`SELECT `+txnColumns+` FROM transactions
		 WHERE profile_id = $1 AND merchant_id = $2
		 ORDER BY txn_time DESC LIMIT $3`, profileID, merchantID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTxns(rows)
}

func (r *TransactionRepository) GetMostRecentConfirmedByMerchantKey(profileID string, merchantKey string) (*domain.Transaction, error) {
	row := r.q().QueryRow(context.Background(),
		`SELECT `+txnColumns+` FROM transactions
		 WHERE profile_id = $1 AND merchant_raw ILIKE $2 AND category_confirmed_by_user = true
		 ORDER BY txn_time DESC LIMIT 1`, profileID, merchantKey)
	t, err := scanTxn(row)
	if isNoRows(err) {
		return nil, nil
	}
	return t, err
}

func (r *TransactionRepository) GetNeedingReview(profileID string) ([]*domain.Transaction, error) {
	rows, err := r.q().Query(context.Background(),
		`SELECT `+txnColumns+` FROM transactions
		 WHERE profile_id = $1 AND category_needs_review = true
		 ORDER BY txn_time DESC`, profileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTxns(rows)
}

func (r *TransactionRepository) GetNeedingReconciliation(profileID string) ([]*domain.Transaction, error) {
	rows, err := r.q().Query(context.Background(),
		`SELECT `+txnColumns+` FROM transactions
		 WHERE profile_id = $1 AND needs_reconciliation = true
		 ORDER BY txn_time DESC`, profileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTxns(rows)
}

func collectTxns(rows pgx.Rows) ([]*domain.Transaction, error) {
	var out []*domain.Transaction
	for rows.Next() {
		t, err := scanTxn(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *TransactionRepository) Update(t *domain.Transaction) error {
	anomalyScore, err := decimalPtrToNumeric(t.AnomalyScore)
	if err != nil {
		return fmt.Errorf("invalid anomaly_score: %w", err)
	}
	tag, err := r.q().Exec(context.Background(), `
		UPDATE transactions SET
			subcategory_id = $3, category_confidence = $4, category_needs_review = $5,
			category_confirmed_by_user = $6, category_source = $7,
			category_suggested_alt = $8, status = $9, is_internal_transfer = $10,
			exclude_from_budget = $11, is_ambiguous_merchant = $12, is_anomaly = $13,
			anomaly_score = $14, special_type = $15, notes = $16, needs_reconciliation = $17,
			updated_at = now()
		WHERE profile_id = $1 AND id = $2`,
		t.ProfileID, t.ID, t.SubcategoryID, t.CategoryConfidence, t.CategoryNeedsReview,
		t.CategoryConfirmedByUser, string(t.CategorySource), t.CategorySuggestedAlt,
		string(t.Status), t.IsInternalTransfer, t.ExcludeFromBudget, t.IsAmbiguousMerchant,
		t.IsAnomaly, anomalyScore, t.SpecialType, t.Notes, t.NeedsReconciliation)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTransactionNotFound
	}
	return nil
}

// ApplyUserCorrection updates a transaction's category in the same DB
// transaction that upserts the LearnedPattern/GlobalSuggestion/Contact rows
// (spec.md §4.10, §5) -- callers run this from inside TxManager.WithinTx.
func (r *TransactionRepository) ApplyUserCorrection(profileID string, id int64, subcategoryID int64, userLabel *string) error {
	tag, err := r.q().Exec(context.Background(), `
		UPDATE transactions SET
			subcategory_id = $3,
			category_confirmed_by_user = true,
			category_needs_review = false,
			category_source = $4,
			updated_at = now()
		WHERE profile_id = $1 AND id = $2`,
		profileID, id, subcategoryID, string(domain.SourceUserCorrection))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTransactionNotFound
	}
	_ = userLabel // stored by LearnedPatternRepository.Upsert, not duplicated here
	return nil
}

func (r *TransactionRepository) MarkReconciled(profileID string, id int64, statementID int64, rowRef string, reconciledAt time.Time) error {
	tag, err := r.q().Exec(context.Background(), `
		UPDATE transactions SET
			status = $4,
			statement_id = $3,
			statement_row_ref = $5,
			reconciled_at = $6,
			updated_at = now()
		WHERE profile_id = $1 AND id = $2`,
		profileID, id, statementID, string(domain.StatusReconciled), rowRef, reconciledAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTransactionNotFound
	}
	return nil
}

func (r *TransactionRepository) DecrementCardBalance(profileID string, cardID int64, amount decimal.Decimal) error {
	num, err := decimalToNumeric(amount)
	if err != nil {
		return err
	}
	tag, err := r.q().Exec(context.Background(),
		`UPDATE cards SET running_balance = running_balance - $3, updated_at = now()
		 WHERE profile_id = $1 AND id = $2`, profileID, cardID, num)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCardNotFound
	}
	return nil
}
