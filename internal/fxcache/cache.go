// Package fxcache implements the Exchange-Rate Cache (spec.md §4.2): a
// two-tier cache-aside over a durable store, with per-date call
// serialization so a month of purchases on one date costs one provider
// call, not hundreds.
package fxcache

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/sebascrugu/finanzas-tracker-go/internal/domain"
)

// Provider fetches a rate for currency on date, returning (nil, nil) when
// the provider has no rate for that date rather than an error.
type Provider interface {
	Name() domain.RateSource
	FetchRate(currency string, date time.Time) (*decimal.Decimal, error)
}

// Cache is the two-tier exchange-rate cache. Tier 1 is an in-process map;
// tier 2 is the durable ExchangeRateRepository. Providers are tried in
// order on a full miss.
type Cache struct {
	durable   domain.ExchangeRateRepository
	providers []Provider
	defRate   decimal.Decimal

	mu    sync.RWMutex
	local map[cacheKey]decimal.Decimal

	group singleflight.Group
}

type cacheKey struct {
	currency string
	date     string // YYYY-MM-DD
}

// New builds a Cache. providers must be given in priority order
// (primary_official, fallback_api, ...); defaultRate is the last-resort
// static constant used when every provider misses.
func New(durable domain.ExchangeRateRepository, providers []Provider, defaultRate decimal.Decimal) *Cache {
	return &Cache{
		durable:   durable,
		providers: providers,
		defRate:   defaultRate,
		local:     make(map[cacheKey]decimal.Decimal),
	}
}

// GetRate returns the rate for currency on date, populating both cache
// tiers on a miss. Concurrent calls for the same (currency, date) are
// collapsed into a single provider lookup.
func (c *Cache) GetRate(currency string, date time.Time) (decimal.Decimal, error) {
	day := date.Truncate(24 * time.Hour)
	key := cacheKey{currency: currency, date: day.Format("2006-01-02")}

	if rate, ok := c.readLocal(key); ok {
		return rate, nil
	}

	sfKey := key.currency + "|" + key.date
	v, err, _ := c.group.Do(sfKey, func() (interface{}, error) {
		return c.resolve(currency, day, key)
	})
	if err != nil {
		return decimal.Zero, err
	}
	return v.(decimal.Decimal), nil
}

// resolve runs the full cache-aside lookup; only ever invoked once per key
// at a time via singleflight.
func (c *Cache) resolve(currency string, day time.Time, key cacheKey) (decimal.Decimal, error) {
	// Re-check tier 1: another goroutine may have populated it while we
	// waited to be selected as the singleflight leader.
	if rate, ok := c.readLocal(key); ok {
		return rate, nil
	}

	if stored, err := c.durable.Get(currency, day); err == nil && stored != nil {
		c.writeLocal(key, stored.Rate)
		return stored.Rate, nil
	}

	for _, p := range c.providers {
		rate, err := p.FetchRate(currency, day)
		if err != nil {
			log.Warn().Err(err).Str("provider", string(p.Name())).Str("currency", currency).
				Time("date", day).Msg("fx provider call failed, trying next tier")
			continue
		}
		if rate == nil {
			continue
		}
		return c.persist(currency, day, key, *rate, p.Name())
	}

	return c.persist(currency, day, key, c.defRate, domain.RateSourceDefault)
}

func (c *Cache) persist(currency string, day time.Time, key cacheKey, rate decimal.Decimal, source domain.RateSource) (decimal.Decimal, error) {
	record := &domain.ExchangeRate{
		Date:     day,
		Currency: currency,
		Rate:     rate,
		Source:   source,
	}
	if err := c.durable.Put(record); err != nil {
		return decimal.Zero, err
	}
	c.writeLocal(key, rate)
	return rate, nil
}

func (c *Cache) readLocal(key cacheKey) (decimal.Decimal, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rate, ok := c.local[key]
	return rate, ok
}

func (c *Cache) writeLocal(key cacheKey, rate decimal.Decimal) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.local[key] = rate
}
