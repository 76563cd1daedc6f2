package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sebascrugu/finanzas-tracker-go/internal/domain"
)

// ExchangeRateRepository implements domain.ExchangeRateRepository using
// PostgreSQL -- the durable tier of the two-tier cache (spec.md §4.2); the
// in-memory tier lives in internal/fxcache.
type ExchangeRateRepository struct {
	pool   *pgxpool.Pool
	holder *txHolder
}

func NewExchangeRateRepository(pool *pgxpool.Pool, holder *txHolder) *ExchangeRateRepository {
	return &ExchangeRateRepository{pool: pool, holder: holder}
}

func (r *ExchangeRateRepository) q() querier { return r.holder.querier(r.pool) }

func (r *ExchangeRateRepository) Get(currency string, date time.Time) (*domain.ExchangeRate, error) {
	var e domain.ExchangeRate
	var rate pgtype.Numeric
	var source pgtype.Text
	err := r.q().QueryRow(context.Background(), `
		SELECT date, currency, rate, source, created_at FROM exchange_rates
		WHERE currency = $1 AND date = $2`, currency, date).
		Scan(&e.Date, &e.Currency, &rate, &source, &e.CreatedAt)
	if isNoRows(err) {
		return nil, domain.ErrExchangeRateUnavailable
	}
	if err != nil {
		return nil, err
	}
	e.Rate = numericToDecimal(rate)
	e.Source = domain.RateSource(source.String)
	return &e, nil
}

func (r *ExchangeRateRepository) Put(rate *domain.ExchangeRate) error {
	num, err := decimalToNumeric(rate.Rate)
	if err != nil {
		return err
	}
	_, err = r.q().Exec(context.Background(), `
		INSERT INTO exchange_rates (date, currency, rate, source)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (date, currency) DO UPDATE SET rate = EXCLUDED.rate, source = EXCLUDED.source`,
		rate.Date, rate.Currency, num, string(rate.Source))
	return err
}
