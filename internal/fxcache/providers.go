package fxcache

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sebascrugu/finanzas-tracker-go/internal/domain"
)

// httpProvider calls an external exchange-rate API over HTTP. It is used
// for both the primary_official and fallback_api tiers; only the base URL
// and reported source differ.
type httpProvider struct {
	name       domain.RateSource
	baseURL    string
	httpClient *http.Client
}

// NewHTTPProvider builds a Provider backed by an HTTP GET endpoint of the
// form "{baseURL}?currency={code}&date={YYYY-MM-DD}" returning
// {"rate": "<decimal>"}. timeout bounds each call (spec.md §5: outbound
// calls default to a 30s timeout).
func NewHTTPProvider(name domain.RateSource, baseURL string, timeout time.Duration) Provider {
	return &httpProvider{
		name:       name,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (p *httpProvider) Name() domain.RateSource {
	return p.name
}

type rateResponse struct {
	Rate string `json:"rate"`
}

func (p *httpProvider) FetchRate(currency string, date time.Time) (*decimal.Decimal, error) {
	if p.baseURL == "" {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.httpClient.Timeout)
	defer cancel()

	url := fmt.Sprintf("%s?currency=%s&date=%s", p.baseURL, currency, date.Format("2006-01-02"))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fxcache: provider %s returned status %d", p.name, resp.StatusCode)
	}

	var body rateResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("fxcache: decoding response from %s: %w", p.name, err)
	}

	rate, err := decimal.NewFromString(body.Rate)
	if err != nil {
		return nil, fmt.Errorf("fxcache: parsing rate from %s: %w", p.name, err)
	}
	return &rate, nil
}

// StaticProvider always returns a fixed rate. Used to model the
// static_default tier explicitly as a Provider, even though Cache also
// accepts a bare default rate for the same purpose.
type StaticProvider struct {
	Rate decimal.Decimal
}

func (s StaticProvider) Name() domain.RateSource { return domain.RateSourceDefault }

func (s StaticProvider) FetchRate(_ string, _ time.Time) (*decimal.Decimal, error) {
	r := s.Rate
	return &r, nil
}
