package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sebascrugu/finanzas-tracker-go/internal/domain"
)

// MerchantRepository implements domain.MerchantRepository using PostgreSQL.
type MerchantRepository struct {
	pool   *pgxpool.Pool
	holder *txHolder
}

func NewMerchantRepository(pool *pgxpool.Pool, holder *txHolder) *MerchantRepository {
	return &MerchantRepository{pool: pool, holder: holder}
}

func (r *MerchantRepository) q() querier { return r.holder.querier(r.pool) }

const merchantColumns = `id, normalized_name, display_name, city, country, aliases, created_at, updated_at`

func scanMerchant(row rowScanner) (*domain.Merchant, error) {
	var m domain.Merchant
	err := row.Scan(&m.ID, &m.NormalizedName, &m.DisplayName, &m.City, &m.Country,
		&m.Aliases, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *MerchantRepository) GetByNormalizedName(normalizedName string) (*domain.Merchant, error) {
	row := r.q().QueryRow(context.Background(),
		`SELECT `+merchantColumns+` FROM merchants WHERE normalized_name = $1`, normalizedName)
	m, err := scanMerchant(row)
	if isNoRows(err) {
		return nil, domain.ErrMerchantNotFound
	}
	return m, err
}

func (r *MerchantRepository) GetByID(id int64) (*domain.Merchant, error) {
	row := r.q().QueryRow(context.Background(),
		`SELECT `+merchantColumns+` FROM merchants WHERE id = $1`, id)
	m, err := scanMerchant(row)
	if isNoRows(err) {
		return nil, domain.ErrMerchantNotFound
	}
	return m, err
}

func (r *MerchantRepository) Create(m *domain.Merchant) (*domain.Merchant, error) {
	row := r.q().QueryRow(context.Background(), `
		INSERT INTO merchants (normalized_name, display_name, city, country, aliases)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+merchantColumns,
		m.NormalizedName, m.DisplayName, m.City, m.Country, m.Aliases)
	return scanMerchant(row)
}

func (r *MerchantRepository) AddAlias(id int64, alias string) error {
	tag, err := r.q().Exec(context.Background(), `
		UPDATE merchants SET aliases = array_append(aliases, $2), updated_at = now()
		WHERE id = $1 AND NOT ($2 = ANY(aliases))`, id, alias)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		// either already present or no such merchant; only the latter is an error
		var exists bool
		if err := r.q().QueryRow(context.Background(),
			`SELECT EXISTS(SELECT 1 FROM merchants WHERE id = $1)`, id).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return domain.ErrMerchantNotFound
		}
	}
	return nil
}

func (r *MerchantRepository) ListCandidatesForFuzzyMerge(firstWord string) ([]*domain.Merchant, error) {
	rows, err := r.q().Query(context.Background(),
		`SELECT `+merchantColumns+` FROM merchants WHERE normalized_name LIKE $1 || '%'`, firstWord)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Merchant
	for rows.Next() {
		m, err := scanMerchant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *MerchantRepository) Merge(dstID, srcID int64) error {
	ctx := context.Background()
	_, err := r.q().Exec(ctx, `
		UPDATE merchants SET aliases = (
			SELECT array_agg(DISTINCT a) FROM unnest(
				(SELECT aliases FROM merchants WHERE id = $1) ||
				(SELECT aliases FROM merchants WHERE id = $2) ||
				ARRAY[(SELECT normalized_name FROM merchants WHERE id = $2)]
			) AS a
		), updated_at = now()
		WHERE id = $1`, dstID, srcID)
	if err != nil {
		return err
	}
	_, err = r.q().Exec(ctx, `UPDATE transactions SET merchant_id = $1 WHERE merchant_id = $2`, dstID, srcID)
	if err != nil {
		return err
	}
	_, err = r.q().Exec(ctx, `DELETE FROM merchants WHERE id = $1`, srcID)
	return err
}
