package fxcache

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sebascrugu/finanzas-tracker-go/internal/domain"
)

type fakeDurable struct {
	mu    sync.Mutex
	rows  map[string]*domain.ExchangeRate
	puts  int
	gets  int
}

func newFakeDurable() *fakeDurable {
	return &fakeDurable{rows: make(map[string]*domain.ExchangeRate)}
}

func (f *fakeDurable) key(currency string, date time.Time) string {
	return currency + "|" + date.Format("2006-01-02")
}

func (f *fakeDurable) Get(currency string, date time.Time) (*domain.ExchangeRate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	row, ok := f.rows[f.key(currency, date)]
	if !ok {
		return nil, domain.ErrMissingFXRate
	}
	return row, nil
}

func (f *fakeDurable) Put(rate *domain.ExchangeRate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts++
	cp := *rate
	f.rows[f.key(rate.Currency, rate.Date)] = &cp
	return nil
}

// countingProvider counts how many times FetchRate is actually invoked, to
// assert the singleflight invariant: N concurrent calls for the same date
// must produce at most one provider call.
type countingProvider struct {
	source domain.RateSource
	rate   decimal.Decimal
	calls  int32
	delay  time.Duration
}

func (p *countingProvider) Name() domain.RateSource { return p.source }

func (p *countingProvider) FetchRate(_ string, _ time.Time) (*decimal.Decimal, error) {
	atomic.AddInt32(&p.calls, 1)
	if p.delay > 0 {
		time.Sleep(p.delay)
	}
	r := p.rate
	return &r, nil
}

func TestGetRate_ConcurrentCallsCollapseIntoOneProviderCall(t *testing.T) {
	durable := newFakeDurable()
	provider := &countingProvider{source: domain.RateSourcePrimaryOfficial, rate: decimal.NewFromInt(520), delay: 20 * time.Millisecond}
	cache := New(durable, []Provider{provider}, decimal.NewFromInt(1))

	date := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)

	const n = 50
	var wg sync.WaitGroup
	results := make([]decimal.Decimal, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			rate, err := cache.GetRate("USD", date)
			results[idx] = rate
			errs[idx] = err
		}(i)
	}
	wg.Wait()

	if got := atomic.LoadInt32(&provider.calls); got != 1 {
		t.Errorf("provider.calls = %d, want exactly 1 for %d concurrent callers", got, n)
	}
	for i := range results {
		if errs[i] != nil {
			t.Fatalf("GetRate[%d] error: %v", i, errs[i])
		}
		if !results[i].Equal(decimal.NewFromInt(520)) {
			t.Errorf("GetRate[%d] = %s, want 520", i, results[i])
		}
	}
}

func TestGetRate_DurableHitSkipsProviders(t *testing.T) {
	durable := newFakeDurable()
	date := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	durable.rows[durable.key("USD", date)] = &domain.ExchangeRate{
		Date: date, Currency: "USD", Rate: decimal.NewFromInt(600), Source: domain.RateSourcePrimaryOfficial,
	}

	provider := &countingProvider{source: domain.RateSourcePrimaryOfficial, rate: decimal.NewFromInt(999)}
	cache := New(durable, []Provider{provider}, decimal.NewFromInt(1))

	rate, err := cache.GetRate("USD", date)
	if err != nil {
		t.Fatalf("GetRate: %v", err)
	}
	if !rate.Equal(decimal.NewFromInt(600)) {
		t.Errorf("GetRate = %s, want durable-tier value 600", rate)
	}
	if atomic.LoadInt32(&provider.calls) != 0 {
		t.Errorf("provider called despite durable-tier hit")
	}
}

func TestGetRate_FallsThroughToStaticDefault(t *testing.T) {
	durable := newFakeDurable()
	date := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	missingProvider := &missProvider{source: domain.RateSourceFallbackAPI}
	cache := New(durable, []Provider{missingProvider}, decimal.NewFromInt(550))

	rate, err := cache.GetRate("EUR", date)
	if err != nil {
		t.Fatalf("GetRate: %v", err)
	}
	if !rate.Equal(decimal.NewFromInt(550)) {
		t.Errorf("GetRate = %s, want static default 550", rate)
	}

	stored, err := durable.Get("EUR", date)
	if err != nil {
		t.Fatalf("expected default rate persisted: %v", err)
	}
	if stored.Source != domain.RateSourceDefault {
		t.Errorf("stored.Source = %s, want %s", stored.Source, domain.RateSourceDefault)
	}
}

type missProvider struct{ source domain.RateSource }

func (m *missProvider) Name() domain.RateSource                                 { return m.source }
func (m *missProvider) FetchRate(_ string, _ time.Time) (*decimal.Decimal, error) { return nil, nil }

func TestGetRate_SecondCallHitsLocalTier(t *testing.T) {
	durable := newFakeDurable()
	provider := &countingProvider{source: domain.RateSourcePrimaryOfficial, rate: decimal.NewFromInt(515)}
	cache := New(durable, []Provider{provider}, decimal.NewFromInt(1))
	date := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)

	if _, err := cache.GetRate("USD", date); err != nil {
		t.Fatalf("first GetRate: %v", err)
	}
	gets := durable.gets
	if _, err := cache.GetRate("USD", date); err != nil {
		t.Fatalf("second GetRate: %v", err)
	}
	if durable.gets != gets {
		t.Errorf("second call hit durable tier; want local-tier hit to avoid durable lookup")
	}
	if atomic.LoadInt32(&provider.calls) != 1 {
		t.Errorf("provider.calls = %d, want 1 (second call should be a local cache hit)", provider.calls)
	}
}
