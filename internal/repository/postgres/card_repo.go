package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/sebascrugu/finanzas-tracker-go/internal/domain"
)

// CardRepository implements domain.CardRepository using PostgreSQL.
type CardRepository struct {
	pool   *pgxpool.Pool
	holder *txHolder
}

func NewCardRepository(pool *pgxpool.Pool, holder *txHolder) *CardRepository {
	return &CardRepository{pool: pool, holder: holder}
}

func (r *CardRepository) q() querier { return r.holder.querier(r.pool) }

const cardColumns = `id, profile_id, bank, last4_digits, credit_limit, running_balance, created_at, updated_at`

func scanCard(row rowScanner) (*domain.Card, error) {
	var c domain.Card
	var creditLimit, runningBalance pgtype.Numeric
	err := row.Scan(&c.ID, &c.ProfileID, &c.Bank, &c.Last4Digits, &creditLimit,
		&runningBalance, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	c.CreditLimit = numericToDecimal(creditLimit)
	c.RunningBalance = numericToDecimal(runningBalance)
	return &c, nil
}

func (r *CardRepository) GetByID(profileID string, id int64) (*domain.Card, error) {
	row := r.q().QueryRow(context.Background(),
		`SELECT `+cardColumns+` FROM cards WHERE profile_id = $1 AND id = $2`, profileID, id)
	c, err := scanCard(row)
	if isNoRows(err) {
		return nil, domain.ErrCardNotFound
	}
	return c, err
}

func (r *CardRepository) FindByLast4(profileID string, last4 string) (*domain.Card, error) {
	row := r.q().QueryRow(context.Background(),
		`SELECT `+cardColumns+` FROM cards WHERE profile_id = $1 AND last4_digits = $2`, profileID, last4)
	c, err := scanCard(row)
	if isNoRows(err) {
		return nil, nil
	}
	return c, err
}

func (r *CardRepository) ListByProfile(profileID string) ([]*domain.Card, error) {
	rows, err := r.q().Query(context.Background(),
		`SELECT `+cardColumns+` FROM cards WHERE profile_id = $1 ORDER BY bank, last4_digits`, profileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Card
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *CardRepository) Create(c *domain.Card) (*domain.Card, error) {
	creditLimit, err := decimalToNumeric(c.CreditLimit)
	if err != nil {
		return nil, err
	}
	runningBalance, err := decimalToNumeric(c.RunningBalance)
	if err != nil {
		return nil, err
	}
	row := r.q().QueryRow(context.Background(), `
		INSERT INTO cards (profile_id, bank, last4_digits, credit_limit, running_balance)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+cardColumns,
		c.ProfileID, c.Bank, c.Last4Digits, creditLimit, runningBalance)
	return scanCard(row)
}

func (r *CardRepository) DecrementBalance(profileID string, id int64, amount decimal.Decimal) error {
	num, err := decimalToNumeric(amount)
	if err != nil {
		return err
	}
	tag, err := r.q().Exec(context.Background(), `
		UPDATE cards SET running_balance = running_balance - $3, updated_at = now()
		WHERE profile_id = $1 AND id = $2`, profileID, id, num)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCardNotFound
	}
	return nil
}
