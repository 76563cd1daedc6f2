package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sebascrugu/finanzas-tracker-go/internal/domain"
)

// ContactRepository implements domain.ContactRepository using PostgreSQL.
type ContactRepository struct {
	pool   *pgxpool.Pool
	holder *txHolder
}

func NewContactRepository(pool *pgxpool.Pool, holder *txHolder) *ContactRepository {
	return &ContactRepository{pool: pool, holder: holder}
}

func (r *ContactRepository) q() querier { return r.holder.querier(r.pool) }

const contactColumns = `
	id, profile_id, phone_number, name_prefix, default_subcategory_id,
	total_transactions, total_amount, last_transaction_at, created_at, updated_at`

func scanContact(row rowScanner) (*domain.Contact, error) {
	var c domain.Contact
	err := row.Scan(&c.ID, &c.ProfileID, &c.PhoneNumber, &c.NamePrefix,
		&c.DefaultSubcategoryID, &c.TotalTransactions, &c.TotalAmount,
		&c.LastTransactionAt, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// FindByPhoneOrPrefix looks up a contact by phone number first, falling back
// to a name-prefix match (spec.md §4.6 step 2).
func (r *ContactRepository) FindByPhoneOrPrefix(profileID string, phoneNumber *string, namePrefix string) (*domain.Contact, error) {
	if phoneNumber != nil {
		row := r.q().QueryRow(context.Background(),
			`SELECT `+contactColumns+` FROM contacts WHERE profile_id = $1 AND phone_number = $2`,
			profileID, *phoneNumber)
		c, err := scanContact(row)
		if err == nil {
			return c, nil
		}
		if !isNoRows(err) {
			return nil, err
		}
	}

	row := r.q().QueryRow(context.Background(),
		`SELECT `+contactColumns+` FROM contacts WHERE profile_id = $1 AND name_prefix = $2`,
		profileID, namePrefix)
	c, err := scanContact(row)
	if isNoRows(err) {
		return nil, nil
	}
	return c, err
}

// Upsert increments transaction stats for the matched contact, creating it
// if absent (spec.md §4.10).
func (r *ContactRepository) Upsert(profileID string, phoneNumber *string, namePrefix string, amount float64, at time.Time, defaultSubcategoryID *int64) (*domain.Contact, error) {
	conflictTarget := "profile_id, name_prefix"
	if phoneNumber != nil {
		conflictTarget = "profile_id, phone_number"
	}

	row := r.q().QueryRow(context.Background(), `
		INSERT INTO contacts (
			profile_id, phone_number, name_prefix, default_subcategory_id,
			total_transactions, total_amount, last_transaction_at
		) VALUES ($1, $2, $3, $4, 1, $5, $6)
		ON CONFLICT (`+conflictTarget+`) DO UPDATE SET
			default_subcategory_id = COALESCE(EXCLUDED.default_subcategory_id, contacts.default_subcategory_id),
			total_transactions = contacts.total_transactions + 1,
			total_amount = contacts.total_amount + EXCLUDED.total_amount,
			last_transaction_at = EXCLUDED.last_transaction_at,
			updated_at = now()
		RETURNING `+contactColumns,
		profileID, phoneNumber, namePrefix, defaultSubcategoryID, amount, at)
	return scanContact(row)
}
