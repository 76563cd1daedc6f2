package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sebascrugu/finanzas-tracker-go/internal/domain"
)

// GlobalSuggestionRepository implements domain.GlobalSuggestionRepository
// using PostgreSQL. Owns the crowd-sourced confidence arithmetic spec.md
// §4.10 step 3 assigns to this layer: new rows start at 0.75; existing rows
// rise to 0.70 + 0.05*UserCount (capped 0.99) and auto-approve at
// UserCount >= domain.MinGlobalSuggestionApproval.
type GlobalSuggestionRepository struct {
	pool   *pgxpool.Pool
	holder *txHolder
}

func NewGlobalSuggestionRepository(pool *pgxpool.Pool, holder *txHolder) *GlobalSuggestionRepository {
	return &GlobalSuggestionRepository{pool: pool, holder: holder}
}

func (r *GlobalSuggestionRepository) q() querier { return r.holder.querier(r.pool) }

const globalSuggestionColumns = `
	id, pattern_key, suggested_subcategory_id, user_count, confidence, status,
	created_at, updated_at`

func scanGlobalSuggestion(row rowScanner) (*domain.GlobalSuggestion, error) {
	var g domain.GlobalSuggestion
	var status pgtype.Text
	err := row.Scan(&g.ID, &g.PatternKey, &g.SuggestedSubcategoryID, &g.UserCount,
		&g.Confidence, &status, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return nil, err
	}
	g.Status = domain.SuggestionStatus(status.String)
	return &g, nil
}

func (r *GlobalSuggestionRepository) GetByPatternKey(patternKey string) (*domain.GlobalSuggestion, error) {
	row := r.q().QueryRow(context.Background(),
		`SELECT `+globalSuggestionColumns+` FROM global_suggestions WHERE pattern_key = $1`, patternKey)
	return scanGlobalSuggestion(row)
}

func (r *GlobalSuggestionRepository) FindApprovedMatch(patternKey string) (*domain.GlobalSuggestion, error) {
	row := r.q().QueryRow(context.Background(), `
		SELECT `+globalSuggestionColumns+` FROM global_suggestions
		WHERE $1 LIKE pattern_key AND status IN ($2, $3)
		ORDER BY confidence DESC, length(pattern_key) DESC LIMIT 1`,
		patternKey, string(domain.SuggestionApproved), string(domain.SuggestionAutoApproved))
	g, err := scanGlobalSuggestion(row)
	if isNoRows(err) {
		return nil, nil
	}
	return g, err
}

// Upsert implements spec.md §4.10 step 3.
func (r *GlobalSuggestionRepository) Upsert(patternKey string, subcategoryID int64) (*domain.GlobalSuggestion, error) {
	row := r.q().QueryRow(context.Background(), `
		INSERT INTO global_suggestions (pattern_key, suggested_subcategory_id, user_count, confidence, status)
		VALUES ($1, $2, 1, 0.75, $3)
		ON CONFLICT (pattern_key) DO UPDATE SET
			suggested_subcategory_id = EXCLUDED.suggested_subcategory_id,
			user_count = global_suggestions.user_count + 1,
			confidence = LEAST(0.99, 0.70 + 0.05 * (global_suggestions.user_count + 1)),
			status = CASE
				WHEN global_suggestions.user_count + 1 >= $4 THEN $5
				ELSE global_suggestions.status
			END,
			updated_at = now()
		RETURNING `+globalSuggestionColumns,
		patternKey, subcategoryID, string(domain.SuggestionPending),
		domain.MinGlobalSuggestionApproval, string(domain.SuggestionAutoApproved))
	return scanGlobalSuggestion(row)
}
