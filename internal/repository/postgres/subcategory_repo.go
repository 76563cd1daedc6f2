package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sebascrugu/finanzas-tracker-go/internal/domain"
)

// SubcategoryRepository implements domain.SubcategoryRepository. The
// taxonomy itself is externally managed seed data, so this is a thin
// read-only lookup (spec.md §4.6 steps 4 and 6).
type SubcategoryRepository struct {
	pool   *pgxpool.Pool
	holder *txHolder
}

func NewSubcategoryRepository(pool *pgxpool.Pool, holder *txHolder) *SubcategoryRepository {
	return &SubcategoryRepository{pool: pool, holder: holder}
}

func (r *SubcategoryRepository) q() querier { return r.holder.querier(r.pool) }

func (r *SubcategoryRepository) List() ([]*domain.Subcategory, error) {
	rows, err := r.q().Query(context.Background(),
		`SELECT id, category_id, name, description FROM subcategories ORDER BY category_id, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Subcategory
	for rows.Next() {
		var s domain.Subcategory
		if err := rows.Scan(&s.ID, &s.CategoryID, &s.Name, &s.Description); err != nil {
			return nil, err
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}

func (r *SubcategoryRepository) GetByID(id int64) (*domain.Subcategory, error) {
	var s domain.Subcategory
	err := r.q().QueryRow(context.Background(),
		`SELECT id, category_id, name, description FROM subcategories WHERE id = $1`, id).
		Scan(&s.ID, &s.CategoryID, &s.Name, &s.Description)
	if isNoRows(err) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}
