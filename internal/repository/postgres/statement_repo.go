package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sebascrugu/finanzas-tracker-go/internal/domain"
)

// BankStatementRepository implements domain.BankStatementRepository using
// PostgreSQL.
type BankStatementRepository struct {
	pool   *pgxpool.Pool
	holder *txHolder
}

func NewBankStatementRepository(pool *pgxpool.Pool, holder *txHolder) *BankStatementRepository {
	return &BankStatementRepository{pool: pool, holder: holder}
}

func (r *BankStatementRepository) q() querier { return r.holder.querier(r.pool) }

const statementColumns = `
	id, profile_id, bank, kind, card_id, period_start, period_end, due_date,
	credit_limit, minimum_payment, object_key, total_pdf, total_system,
	matched_count, match_percentage, reconcile_status, created_at, updated_at`

func scanStatement(row rowScanner) (*domain.BankStatement, error) {
	var s domain.BankStatement
	var kind pgtype.Text
	var creditLimit, minimumPayment pgtype.Numeric
	err := row.Scan(&s.ID, &s.ProfileID, &s.Bank, &kind, &s.CardID, &s.PeriodStart,
		&s.PeriodEnd, &s.DueDate, &creditLimit, &minimumPayment, &s.ObjectKey,
		&s.TotalPDF, &s.TotalSystem, &s.MatchedCount, &s.MatchPercentage,
		&s.ReconcileStatus, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	s.Kind = domain.StatementKind(kind.String)
	s.CreditLimit = numericPtrToDecimalPtr(creditLimit)
	s.MinimumPayment = numericPtrToDecimalPtr(minimumPayment)
	return &s, nil
}

func (r *BankStatementRepository) Create(s *domain.BankStatement) (*domain.BankStatement, error) {
	creditLimit, err := decimalPtrToNumeric(s.CreditLimit)
	if err != nil {
		return nil, err
	}
	minimumPayment, err := decimalPtrToNumeric(s.MinimumPayment)
	if err != nil {
		return nil, err
	}
	row := r.q().QueryRow(context.Background(), `
		INSERT INTO bank_statements (
			profile_id, bank, kind, card_id, period_start, period_end, due_date,
			credit_limit, minimum_payment, object_key, total_pdf, total_system,
			matched_count, match_percentage, reconcile_status
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
		RETURNING `+statementColumns,
		s.ProfileID, s.Bank, string(s.Kind), s.CardID, s.PeriodStart, s.PeriodEnd, s.DueDate,
		creditLimit, minimumPayment, s.ObjectKey, s.TotalPDF, s.TotalSystem,
		s.MatchedCount, s.MatchPercentage, s.ReconcileStatus)
	return scanStatement(row)
}

func (r *BankStatementRepository) GetByID(profileID string, id int64) (*domain.BankStatement, error) {
	row := r.q().QueryRow(context.Background(),
		`SELECT `+statementColumns+` FROM bank_statements WHERE profile_id = $1 AND id = $2`, profileID, id)
	s, err := scanStatement(row)
	if isNoRows(err) {
		return nil, domain.ErrBankStatementNotFound
	}
	return s, err
}

func (r *BankStatementRepository) ListByProfile(profileID string) ([]*domain.BankStatement, error) {
	rows, err := r.q().Query(context.Background(),
		`SELECT `+statementColumns+` FROM bank_statements WHERE profile_id = $1 ORDER BY period_end DESC`, profileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.BankStatement
	for rows.Next() {
		s, err := scanStatement(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// UpdateReconcileSummary commits the four-bucket report (spec.md §4.8).
func (r *BankStatementRepository) UpdateReconcileSummary(profileID string, id int64, totalPDF, totalSystem, matched int, matchPct float64, status string) error {
	tag, err := r.q().Exec(context.Background(), `
		UPDATE bank_statements SET
			total_pdf = $3, total_system = $4, matched_count = $5,
			match_percentage = $6, reconcile_status = $7, updated_at = now()
		WHERE profile_id = $1 AND id = $2`,
		profileID, id, totalPDF, totalSystem, matched, matchPct, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrBankStatementNotFound
	}
	return nil
}
