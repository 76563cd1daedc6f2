package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sebascrugu/finanzas-tracker-go/internal/domain"
)

// ProfileRepository implements domain.ProfileRepository using PostgreSQL.
type ProfileRepository struct {
	pool   *pgxpool.Pool
	holder *txHolder
}

func NewProfileRepository(pool *pgxpool.Pool, holder *txHolder) *ProfileRepository {
	return &ProfileRepository{pool: pool, holder: holder}
}

func (r *ProfileRepository) q() querier { return r.holder.querier(r.pool) }

func (r *ProfileRepository) Create(input domain.CreateProfileInput) (*domain.Profile, error) {
	row := r.q().QueryRow(context.Background(), `
		INSERT INTO profiles (display_name, mail_address, active, statement_cycle_days)
		VALUES ($1, $2, true, $3)
		RETURNING id, display_name, mail_address, active, last_statement_date,
		          last_sync_date, statement_cycle_days, created_at, updated_at`,
		input.DisplayName, input.MailAddress, domain.DefaultStatementCycleDays)
	return scanProfile(row)
}

func (r *ProfileRepository) GetByID(id string) (*domain.Profile, error) {
	row := r.q().QueryRow(context.Background(), `
		SELECT id, display_name, mail_address, active, last_statement_date,
		       last_sync_date, statement_cycle_days, created_at, updated_at
		FROM profiles WHERE id = $1`, id)
	p, err := scanProfile(row)
	if isNoRows(err) {
		return nil, domain.ErrProfileNotFound
	}
	return p, err
}

func (r *ProfileRepository) ListActive() ([]*domain.Profile, error) {
	rows, err := r.q().Query(context.Background(), `
		SELECT id, display_name, mail_address, active, last_statement_date,
		       last_sync_date, statement_cycle_days, created_at, updated_at
		FROM profiles WHERE active = true ORDER BY display_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *ProfileRepository) SetActive(id string, active bool) error {
	tag, err := r.q().Exec(context.Background(),
		`UPDATE profiles SET active = $2, updated_at = now() WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrProfileNotFound
	}
	return nil
}

func (r *ProfileRepository) UpdateSyncMetadata(id string, update domain.SyncMetadataUpdate) (*domain.Profile, error) {
	row := r.q().QueryRow(context.Background(), `
		UPDATE profiles SET
			last_statement_date  = COALESCE($2, last_statement_date),
			last_sync_date       = COALESCE($3, last_sync_date),
			statement_cycle_days = COALESCE($4, statement_cycle_days),
			updated_at           = now()
		WHERE id = $1
		RETURNING id, display_name, mail_address, active, last_statement_date,
		          last_sync_date, statement_cycle_days, created_at, updated_at`,
		id, update.LastStatementDate, update.LastSyncDate, update.StatementCycleDays)
	p, err := scanProfile(row)
	if isNoRows(err) {
		return nil, domain.ErrProfileNotFound
	}
	return p, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (*domain.Profile, error) {
	var p domain.Profile
	err := row.Scan(&p.ID, &p.DisplayName, &p.MailAddress, &p.Active,
		&p.LastStatementDate, &p.LastSyncDate, &p.StatementCycleDays,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, pgx.ErrNoRows
		}
		return nil, err
	}
	return &p, nil
}
