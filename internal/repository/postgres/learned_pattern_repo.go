package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sebascrugu/finanzas-tracker-go/internal/domain"
)

// LearnedPatternRepository implements domain.LearnedPatternRepository using
// PostgreSQL. The confidence arithmetic spec.md §4.10 assigns to this layer
// (raise by 0.01 per confirmation, capped at 0.99) lives entirely in Upsert,
// not in internal/learning, which only sequences the call.
type LearnedPatternRepository struct {
	pool   *pgxpool.Pool
	holder *txHolder
}

func NewLearnedPatternRepository(pool *pgxpool.Pool, holder *txHolder) *LearnedPatternRepository {
	return &LearnedPatternRepository{pool: pool, holder: holder}
}

func (r *LearnedPatternRepository) q() querier { return r.holder.querier(r.pool) }

const learnedPatternColumns = `
	id, profile_id, pattern_key, subcategory_id, user_label, times_matched,
	times_confirmed, times_rejected, confidence, source, is_recurring,
	recurring_cadence_days, avg_amount, min_amount, max_amount, last_seen_at,
	created_at, updated_at`

func scanLearnedPattern(row rowScanner) (*domain.LearnedPattern, error) {
	var p domain.LearnedPattern
	var source pgtype.Text
	err := row.Scan(&p.ID, &p.ProfileID, &p.PatternKey, &p.SubcategoryID, &p.UserLabel,
		&p.TimesMatched, &p.TimesConfirmed, &p.TimesRejected, &p.Confidence, &source,
		&p.IsRecurring, &p.RecurringCadence, &p.AvgAmount, &p.MinAmount, &p.MaxAmount,
		&p.LastSeenAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.Source = domain.PatternSource(source.String)
	return &p, nil
}

func (r *LearnedPatternRepository) FindMatch(profileID string, merchantKey string) (*domain.LearnedPattern, error) {
	row := r.q().QueryRow(context.Background(), `
		SELECT `+learnedPatternColumns+` FROM learned_patterns
		WHERE profile_id = $1 AND $2 LIKE pattern_key
		ORDER BY confidence DESC, length(pattern_key) DESC LIMIT 1`, profileID, merchantKey)
	p, err := scanLearnedPattern(row)
	if isNoRows(err) {
		return nil, nil
	}
	return p, err
}

func (r *LearnedPatternRepository) GetByKey(profileID string, patternKey string) (*domain.LearnedPattern, error) {
	row := r.q().QueryRow(context.Background(),
		`SELECT `+learnedPatternColumns+` FROM learned_patterns WHERE profile_id = $1 AND pattern_key = $2`,
		profileID, patternKey)
	p, err := scanLearnedPattern(row)
	if isNoRows(err) {
		return nil, domain.ErrLearnedPatternNotFound
	}
	return p, err
}

func (r *LearnedPatternRepository) ListByProfile(profileID string) ([]*domain.LearnedPattern, error) {
	rows, err := r.q().Query(context.Background(),
		`SELECT `+learnedPatternColumns+` FROM learned_patterns WHERE profile_id = $1 ORDER BY pattern_key`, profileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.LearnedPattern
	for rows.Next() {
		p, err := scanLearnedPattern(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Upsert increments match/confirm counters and raises confidence by 0.01
// per confirmation (capped at 0.99), creating the row if absent at confidence
// 0.85 for a confirmation or 0.60 otherwise (spec.md §4.10). Must run inside the caller's transaction when part
// of the pattern-learning triple-write.
func (r *LearnedPatternRepository) Upsert(profileID string, patternKey string, subcategoryID int64, userLabel *string, source domain.PatternSource, confirmed bool) (*domain.LearnedPattern, error) {
	row := r.q().QueryRow(context.Background(), `
		INSERT INTO learned_patterns (
			profile_id, pattern_key, subcategory_id, user_label, times_matched,
			times_confirmed, times_rejected, confidence, source, last_seen_at
		) VALUES ($1, $2, $3, $4, 1, $5, 0, $6, $7, now())
		ON CONFLICT (profile_id, pattern_key) DO UPDATE SET
			subcategory_id = EXCLUDED.subcategory_id,
			user_label      = COALESCE(EXCLUDED.user_label, learned_patterns.user_label),
			times_matched   = learned_patterns.times_matched + 1,
			times_confirmed = learned_patterns.times_confirmed + $5,
			confidence      = LEAST(0.99, learned_patterns.confidence + $8),
			source          = EXCLUDED.source,
			last_seen_at    = now(),
			updated_at      = now()
		RETURNING `+learnedPatternColumns,
		profileID, patternKey, subcategoryID, userLabel, boolToInt(confirmed),
		initialConfidence(confirmed), string(source), confidenceStep(confirmed))
	return scanLearnedPattern(row)
}

func (r *LearnedPatternRepository) UpdateRecurringStats(profileID string, patternKey string, isRecurring bool, cadenceDays int, avg, min, max float64) error {
	tag, err := r.q().Exec(context.Background(), `
		UPDATE learned_patterns SET
			is_recurring = $3, recurring_cadence_days = $4,
			avg_amount = $5, min_amount = $6, max_amount = $7, updated_at = now()
		WHERE profile_id = $1 AND pattern_key = $2`,
		profileID, patternKey, isRecurring, cadenceDays, avg, min, max)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrLearnedPatternNotFound
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// initialConfidence is the confidence a brand-new row starts at: 0.85 when
// created from a direct user confirmation, 0.60 otherwise.
func initialConfidence(confirmed bool) float64 {
	if confirmed {
		return 0.85
	}
	return 0.60
}

// confidenceStep is how much an existing row's confidence rises on this
// write: +0.01 on a confirmation, unchanged otherwise.
func confidenceStep(confirmed bool) float64 {
	if confirmed {
		return 0.01
	}
	return 0
}
