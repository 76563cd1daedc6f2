package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// RateSource records which tier produced an exchange rate (spec.md §4.2).
type RateSource string

const (
	RateSourcePrimaryOfficial RateSource = "primary_official"
	RateSourceFallbackAPI     RateSource = "fallback_api"
	RateSourceDefault         RateSource = "default"
)

// ExchangeRate is a durable cache row: the rate is a property of the date,
// not of request time (spec.md §4.2).
type ExchangeRate struct {
	Date      time.Time       `json:"date"`
	Currency  string          `json:"currency"`
	Rate      decimal.Decimal `json:"rate"`
	Source    RateSource      `json:"source"`
	CreatedAt time.Time       `json:"createdAt"`
}

// ExchangeRateRepository is the durable tier of the two-tier cache
// (spec.md §4.2).
type ExchangeRateRepository interface {
	Get(currency string, date time.Time) (*ExchangeRate, error)
	Put(rate *ExchangeRate) error
}
