package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sebascrugu/finanzas-tracker-go/internal/domain"
)

// APITokenRepository implements domain.APITokenRepository using PostgreSQL,
// adapted from the teacher's api_token_repo.go for this deployment's
// cron/batch-runner authentication surface (token prefix "ftz_" instead of
// "fort_").
type APITokenRepository struct {
	pool   *pgxpool.Pool
	holder *txHolder
}

func NewAPITokenRepository(pool *pgxpool.Pool, holder *txHolder) *APITokenRepository {
	return &APITokenRepository{pool: pool, holder: holder}
}

func (r *APITokenRepository) q() querier { return r.holder.querier(r.pool) }

const apiTokenColumns = `id, profile_id, label, token_hash, prefix, revoked, last_used_at, created_at`

func scanAPIToken(row rowScanner) (*domain.APIToken, error) {
	var t domain.APIToken
	err := row.Scan(&t.ID, &t.ProfileID, &t.Label, &t.TokenHash, &t.Prefix,
		&t.Revoked, &t.LastUsedAt, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *APITokenRepository) Create(profileID, label string, tokenHash string, prefix string) (*domain.APIToken, error) {
	row := r.q().QueryRow(context.Background(), `
		INSERT INTO api_tokens (profile_id, label, token_hash, prefix, revoked)
		VALUES ($1, $2, $3, $4, false)
		RETURNING `+apiTokenColumns,
		profileID, label, tokenHash, prefix)
	return scanAPIToken(row)
}

func (r *APITokenRepository) GetByHash(tokenHash string) (*domain.APIToken, error) {
	row := r.q().QueryRow(context.Background(),
		`SELECT `+apiTokenColumns+` FROM api_tokens WHERE token_hash = $1`, tokenHash)
	t, err := scanAPIToken(row)
	if isNoRows(err) {
		return nil, domain.ErrAPITokenNotFound
	}
	return t, err
}

func (r *APITokenRepository) Revoke(id int64) error {
	tag, err := r.q().Exec(context.Background(),
		`UPDATE api_tokens SET revoked = true WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAPITokenNotFound
	}
	return nil
}

func (r *APITokenRepository) TouchLastUsed(id int64, at time.Time) error {
	tag, err := r.q().Exec(context.Background(),
		`UPDATE api_tokens SET last_used_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAPITokenNotFound
	}
	return nil
}
