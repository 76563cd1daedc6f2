package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sebascrugu/finanzas-tracker-go/internal/domain"
)

// SubscriptionRepository implements domain.SubscriptionRepository using
// PostgreSQL.
type SubscriptionRepository struct {
	pool   *pgxpool.Pool
	holder *txHolder
}

func NewSubscriptionRepository(pool *pgxpool.Pool, holder *txHolder) *SubscriptionRepository {
	return &SubscriptionRepository{pool: pool, holder: holder}
}

func (r *SubscriptionRepository) q() querier { return r.holder.querier(r.pool) }

const subscriptionColumns = `
	id, profile_id, merchant_id, merchant_key, avg_amount, cadence_days,
	first_seen_at, last_seen_at, next_expected, confidence, active,
	created_at, updated_at`

func scanSubscription(row rowScanner) (*domain.Subscription, error) {
	var s domain.Subscription
	var avgAmount pgtype.Numeric
	err := row.Scan(&s.ID, &s.ProfileID, &s.MerchantID, &s.MerchantKey, &avgAmount,
		&s.CadenceDays, &s.FirstSeenAt, &s.LastSeenAt, &s.NextExpected, &s.Confidence,
		&s.Active, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	s.AvgAmount = numericToDecimal(avgAmount)
	return &s, nil
}

func (r *SubscriptionRepository) ListActive(profileID string) ([]*domain.Subscription, error) {
	rows, err := r.q().Query(context.Background(),
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE profile_id = $1 AND active = true
		 ORDER BY next_expected`, profileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Subscription
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *SubscriptionRepository) GetByMerchantKey(profileID string, merchantKey string) (*domain.Subscription, error) {
	row := r.q().QueryRow(context.Background(),
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE profile_id = $1 AND merchant_key = $2`,
		profileID, merchantKey)
	s, err := scanSubscription(row)
	if isNoRows(err) {
		return nil, domain.ErrSubscriptionNotFound
	}
	return s, err
}

func (r *SubscriptionRepository) Upsert(s *domain.Subscription) (*domain.Subscription, error) {
	avgAmount, err := decimalToNumeric(s.AvgAmount)
	if err != nil {
		return nil, err
	}
	row := r.q().QueryRow(context.Background(), `
		INSERT INTO subscriptions (
			profile_id, merchant_id, merchant_key, avg_amount, cadence_days,
			first_seen_at, last_seen_at, next_expected, confidence, active
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (profile_id, merchant_key) DO UPDATE SET
			merchant_id   = EXCLUDED.merchant_id,
			avg_amount    = EXCLUDED.avg_amount,
			cadence_days  = EXCLUDED.cadence_days,
			last_seen_at  = EXCLUDED.last_seen_at,
			next_expected = EXCLUDED.next_expected,
			confidence    = EXCLUDED.confidence,
			active        = true,
			updated_at    = now()
		RETURNING `+subscriptionColumns,
		s.ProfileID, s.MerchantID, s.MerchantKey, avgAmount, s.CadenceDays,
		s.FirstSeenAt, s.LastSeenAt, s.NextExpected, s.Confidence, s.Active)
	return scanSubscription(row)
}

func (r *SubscriptionRepository) Deactivate(profileID string, id int64) error {
	tag, err := r.q().Exec(context.Background(),
		`UPDATE subscriptions SET active = false, updated_at = now() WHERE profile_id = $1 AND id = $2`,
		profileID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSubscriptionNotFound
	}
	return nil
}

// AlertRepository implements domain.AlertRepository using PostgreSQL.
type AlertRepository struct {
	pool   *pgxpool.Pool
	holder *txHolder
}

func NewAlertRepository(pool *pgxpool.Pool, holder *txHolder) *AlertRepository {
	return &AlertRepository{pool: pool, holder: holder}
}

func (r *AlertRepository) q() querier { return r.holder.querier(r.pool) }

const alertColumns = `id, profile_id, kind, message, ref_id, acked, created_at`

func scanAlert(row rowScanner) (*domain.Alert, error) {
	var a domain.Alert
	var kind pgtype.Text
	err := row.Scan(&a.ID, &a.ProfileID, &kind, &a.Message, &a.RefID, &a.Acked, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	a.Kind = domain.AlertKind(kind.String)
	return &a, nil
}

func (r *AlertRepository) Create(a *domain.Alert) (*domain.Alert, error) {
	row := r.q().QueryRow(context.Background(), `
		INSERT INTO alerts (profile_id, kind, message, ref_id, acked)
		VALUES ($1, $2, $3, $4, false)
		RETURNING `+alertColumns,
		a.ProfileID, string(a.Kind), a.Message, a.RefID)
	return scanAlert(row)
}

func (r *AlertRepository) ListUnacked(profileID string) ([]*domain.Alert, error) {
	rows, err := r.q().Query(context.Background(),
		`SELECT `+alertColumns+` FROM alerts WHERE profile_id = $1 AND acked = false ORDER BY created_at DESC`,
		profileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *AlertRepository) Ack(profileID string, id int64) error {
	tag, err := r.q().Exec(context.Background(),
		`UPDATE alerts SET acked = true WHERE profile_id = $1 AND id = $2`, profileID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
