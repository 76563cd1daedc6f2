// Package testutil provides in-memory mock implementations of the domain
// repository interfaces, for use by handler and service-layer tests that
// need a full fake rather than a package-local embed-and-override stub.
package testutil

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sebascrugu/finanzas-tracker-go/internal/domain"
)

// MockProfileRepository is a mock implementation of domain.ProfileRepository.
type MockProfileRepository struct {
	mu       sync.Mutex
	Profiles map[string]*domain.Profile
	NextID   int

	CreateFn func(input domain.CreateProfileInput) (*domain.Profile, error)
}

func NewMockProfileRepository() *MockProfileRepository {
	return &MockProfileRepository{Profiles: make(map[string]*domain.Profile)}
}

func (m *MockProfileRepository) Create(input domain.CreateProfileInput) (*domain.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateFn != nil {
		return m.CreateFn(input)
	}
	m.NextID++
	p := &domain.Profile{
		ID:          fmt.Sprintf("profile-%d", m.NextID),
		DisplayName: input.DisplayName,
		MailAddress: input.MailAddress,
		Active:      true,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	m.Profiles[p.ID] = p
	return p, nil
}

func (m *MockProfileRepository) GetByID(id string) (*domain.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.Profiles[id]
	if !ok {
		return nil, domain.ErrProfileNotFound
	}
	return p, nil
}

func (m *MockProfileRepository) ListActive() ([]*domain.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Profile
	for _, p := range m.Profiles {
		if p.Active {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MockProfileRepository) SetActive(id string, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.Profiles[id]
	if !ok {
		return domain.ErrProfileNotFound
	}
	p.Active = active
	p.UpdatedAt = time.Now()
	return nil
}

func (m *MockProfileRepository) UpdateSyncMetadata(id string, update domain.SyncMetadataUpdate) (*domain.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.Profiles[id]
	if !ok {
		return nil, domain.ErrProfileNotFound
	}
	if update.LastStatementDate != nil {
		p.LastStatementDate = update.LastStatementDate
	}
	if update.LastSyncDate != nil {
		p.LastSyncDate = update.LastSyncDate
	}
	if update.StatementCycleDays != nil {
		p.StatementCycleDays = *update.StatementCycleDays
	}
	p.UpdatedAt = time.Now()
	return p, nil
}

// AddProfile adds a profile to the mock repository (helper for tests).
func (m *MockProfileRepository) AddProfile(p *domain.Profile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Profiles[p.ID] = p
}

// MockAPITokenRepository is a mock implementation of domain.APITokenRepository.
type MockAPITokenRepository struct {
	mu       sync.Mutex
	Tokens   map[int64]*domain.APIToken
	ByHash   map[string]*domain.APIToken
	NextID   int64
}

func NewMockAPITokenRepository() *MockAPITokenRepository {
	return &MockAPITokenRepository{
		Tokens: make(map[int64]*domain.APIToken),
		ByHash: make(map[string]*domain.APIToken),
	}
}

func (m *MockAPITokenRepository) Create(profileID, label, tokenHash, prefix string) (*domain.APIToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.NextID++
	t := &domain.APIToken{
		ID:        m.NextID,
		ProfileID: profileID,
		Label:     label,
		TokenHash: tokenHash,
		Prefix:    prefix,
		CreatedAt: time.Now(),
	}
	m.Tokens[t.ID] = t
	m.ByHash[tokenHash] = t
	return t, nil
}

func (m *MockAPITokenRepository) GetByHash(tokenHash string) (*domain.APIToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.ByHash[tokenHash]
	if !ok {
		return nil, domain.ErrAPITokenNotFound
	}
	if t.Revoked {
		return nil, domain.ErrAPITokenRevoked
	}
	return t, nil
}

func (m *MockAPITokenRepository) Revoke(id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.Tokens[id]
	if !ok {
		return domain.ErrAPITokenNotFound
	}
	t.Revoked = true
	return nil
}

func (m *MockAPITokenRepository) TouchLastUsed(id int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.Tokens[id]
	if !ok {
		return domain.ErrAPITokenNotFound
	}
	t.LastUsedAt = &at
	return nil
}

// AddToken adds an API token to the mock repository (helper for tests).
func (m *MockAPITokenRepository) AddToken(t *domain.APIToken) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Tokens[t.ID] = t
	m.ByHash[t.TokenHash] = t
}

// MockCardRepository is a mock implementation of domain.CardRepository.
type MockCardRepository struct {
	mu         sync.Mutex
	Cards      map[int64]*domain.Card
	ByProfile  map[string][]*domain.Card
	NextID     int64
}

func NewMockCardRepository() *MockCardRepository {
	return &MockCardRepository{
		Cards:     make(map[int64]*domain.Card),
		ByProfile: make(map[string][]*domain.Card),
	}
}

func (m *MockCardRepository) GetByID(profileID string, id int64) (*domain.Card, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.Cards[id]
	if !ok || c.ProfileID != profileID {
		return nil, domain.ErrCardNotFound
	}
	return c, nil
}

func (m *MockCardRepository) FindByLast4(profileID string, last4 string) (*domain.Card, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.ByProfile[profileID] {
		if c.Last4Digits == last4 {
			return c, nil
		}
	}
	return nil, domain.ErrCardNotFound
}

func (m *MockCardRepository) ListByProfile(profileID string) ([]*domain.Card, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ByProfile[profileID], nil
}

func (m *MockCardRepository) Create(c *domain.Card) (*domain.Card, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.NextID++
	c.ID = m.NextID
	m.Cards[c.ID] = c
	m.ByProfile[c.ProfileID] = append(m.ByProfile[c.ProfileID], c)
	return c, nil
}

func (m *MockCardRepository) DecrementBalance(profileID string, id int64, amount decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.Cards[id]
	if !ok || c.ProfileID != profileID {
		return domain.ErrCardNotFound
	}
	c.RunningBalance = c.RunningBalance.Sub(amount)
	return nil
}

// AddCard adds a card to the mock repository (helper for tests).
func (m *MockCardRepository) AddCard(c *domain.Card) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Cards[c.ID] = c
	m.ByProfile[c.ProfileID] = append(m.ByProfile[c.ProfileID], c)
}

// MockContactRepository is a mock implementation of domain.ContactRepository.
type MockContactRepository struct {
	mu       sync.Mutex
	Contacts map[int64]*domain.Contact
	NextID   int64
}

func NewMockContactRepository() *MockContactRepository {
	return &MockContactRepository{Contacts: make(map[int64]*domain.Contact)}
}

func (m *MockContactRepository) FindByPhoneOrPrefix(profileID string, phoneNumber *string, namePrefix string) (*domain.Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.Contacts {
		if c.ProfileID != profileID {
			continue
		}
		if phoneNumber != nil && c.PhoneNumber != nil && *c.PhoneNumber == *phoneNumber {
			return c, nil
		}
		if c.NamePrefix == namePrefix {
			return c, nil
		}
	}
	return nil, domain.ErrContactNotFound
}

func (m *MockContactRepository) Upsert(profileID string, phoneNumber *string, namePrefix string, amount float64, at time.Time, defaultSubcategoryID *int64) (*domain.Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.Contacts {
		if c.ProfileID != profileID {
			continue
		}
		matched := (phoneNumber != nil && c.PhoneNumber != nil && *c.PhoneNumber == *phoneNumber) || c.NamePrefix == namePrefix
		if matched {
			c.TotalTransactions++
			c.TotalAmount += amount
			c.LastTransactionAt = at
			if defaultSubcategoryID != nil {
				c.DefaultSubcategoryID = defaultSubcategoryID
			}
			c.UpdatedAt = time.Now()
			return c, nil
		}
	}
	m.NextID++
	c := &domain.Contact{
		ID:                   m.NextID,
		ProfileID:            profileID,
		PhoneNumber:          phoneNumber,
		NamePrefix:           namePrefix,
		DefaultSubcategoryID: defaultSubcategoryID,
		TotalTransactions:    1,
		TotalAmount:          amount,
		LastTransactionAt:    at,
		CreatedAt:            time.Now(),
		UpdatedAt:            time.Now(),
	}
	m.Contacts[c.ID] = c
	return c, nil
}

// AddContact adds a contact to the mock repository (helper for tests).
func (m *MockContactRepository) AddContact(c *domain.Contact) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Contacts[c.ID] = c
}

// MockMerchantRepository is a mock implementation of domain.MerchantRepository.
type MockMerchantRepository struct {
	mu         sync.Mutex
	Merchants  map[int64]*domain.Merchant
	ByName     map[string]*domain.Merchant
	NextID     int64
	merged     map[int64]int64 // srcID -> dstID
}

func NewMockMerchantRepository() *MockMerchantRepository {
	return &MockMerchantRepository{
		Merchants: make(map[int64]*domain.Merchant),
		ByName:    make(map[string]*domain.Merchant),
		merged:    make(map[int64]int64),
	}
}

func (m *MockMerchantRepository) GetByNormalizedName(normalizedName string) (*domain.Merchant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mc, ok := m.ByName[normalizedName]
	if !ok {
		return nil, domain.ErrMerchantNotFound
	}
	return mc, nil
}

func (m *MockMerchantRepository) GetByID(id int64) (*domain.Merchant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if dst, ok := m.merged[id]; ok {
		id = dst
	}
	mc, ok := m.Merchants[id]
	if !ok {
		return nil, domain.ErrMerchantNotFound
	}
	return mc, nil
}

func (m *MockMerchantRepository) Create(mc *domain.Merchant) (*domain.Merchant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.NextID++
	mc.ID = m.NextID
	m.Merchants[mc.ID] = mc
	m.ByName[mc.NormalizedName] = mc
	return mc, nil
}

func (m *MockMerchantRepository) AddAlias(id int64, alias string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	mc, ok := m.Merchants[id]
	if !ok {
		return domain.ErrMerchantNotFound
	}
	mc.Aliases = append(mc.Aliases, alias)
	return nil
}

func (m *MockMerchantRepository) ListCandidatesForFuzzyMerge(firstWord string) ([]*domain.Merchant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Merchant
	for _, mc := range m.Merchants {
		if len(mc.NormalizedName) >= len(firstWord) && mc.NormalizedName[:len(firstWord)] == firstWord {
			out = append(out, mc)
		}
	}
	return out, nil
}

func (m *MockMerchantRepository) Merge(dstID, srcID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	dst, ok := m.Merchants[dstID]
	if !ok {
		return domain.ErrMerchantNotFound
	}
	src, ok := m.Merchants[srcID]
	if !ok {
		return domain.ErrMerchantNotFound
	}
	dst.Aliases = append(dst.Aliases, src.Aliases...)
	dst.Aliases = append(dst.Aliases, src.NormalizedName)
	delete(m.Merchants, srcID)
	m.merged[srcID] = dstID
	return nil
}

// AddMerchant adds a merchant to the mock repository (helper for tests).
func (m *MockMerchantRepository) AddMerchant(mc *domain.Merchant) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Merchants[mc.ID] = mc
	m.ByName[mc.NormalizedName] = mc
}

// MockLearnedPatternRepository is a mock implementation of domain.LearnedPatternRepository.
type MockLearnedPatternRepository struct {
	mu       sync.Mutex
	Patterns map[string]*domain.LearnedPattern // profileID+patternKey -> pattern
	NextID   int64

	UpsertFn func(profileID, patternKey string, subcategoryID int64, userLabel *string, source domain.PatternSource, confirmed bool) (*domain.LearnedPattern, error)
}

func NewMockLearnedPatternRepository() *MockLearnedPatternRepository {
	return &MockLearnedPatternRepository{Patterns: make(map[string]*domain.LearnedPattern)}
}

func patternKey(profileID, key string) string { return profileID + "\x00" + key }

func (m *MockLearnedPatternRepository) FindMatch(profileID string, merchantKey string) (*domain.LearnedPattern, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var best *domain.LearnedPattern
	for _, p := range m.Patterns {
		if p.ProfileID != profileID {
			continue
		}
		if matchesGlob(p.PatternKey, merchantKey) {
			if best == nil || p.Confidence > best.Confidence {
				best = p
			}
		}
	}
	if best == nil {
		return nil, nil
	}
	return best, nil
}

func matchesGlob(pattern, key string) bool {
	if len(pattern) > 0 && pattern[len(pattern)-1] == '%' {
		prefix := pattern[:len(pattern)-1]
		return len(key) >= len(prefix) && key[:len(prefix)] == prefix
	}
	return pattern == key
}

func (m *MockLearnedPatternRepository) GetByKey(profileID string, patternKeyStr string) (*domain.LearnedPattern, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.Patterns[patternKey(profileID, patternKeyStr)]
	if !ok {
		return nil, domain.ErrLearnedPatternNotFound
	}
	return p, nil
}

func (m *MockLearnedPatternRepository) ListByProfile(profileID string) ([]*domain.LearnedPattern, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.LearnedPattern
	for _, p := range m.Patterns {
		if p.ProfileID == profileID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *MockLearnedPatternRepository) Upsert(profileID string, patternKeyStr string, subcategoryID int64, userLabel *string, source domain.PatternSource, confirmed bool) (*domain.LearnedPattern, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpsertFn != nil {
		return m.UpsertFn(profileID, patternKeyStr, subcategoryID, userLabel, source, confirmed)
	}
	key := patternKey(profileID, patternKeyStr)
	p, ok := m.Patterns[key]
	if !ok {
		m.NextID++
		p = &domain.LearnedPattern{
			ID:            m.NextID,
			ProfileID:     profileID,
			PatternKey:    patternKeyStr,
			SubcategoryID: subcategoryID,
			UserLabel:     userLabel,
			Source:        source,
			CreatedAt:     time.Now(),
		}
		m.Patterns[key] = p
	}
	p.TimesMatched++
	if confirmed {
		p.TimesConfirmed++
	} else {
		p.TimesRejected++
	}
	p.SubcategoryID = subcategoryID
	p.LastSeenAt = time.Now()
	p.UpdatedAt = time.Now()
	if p.Confidence < 0.99 {
		p.Confidence += 0.05
	}
	return p, nil
}

func (m *MockLearnedPatternRepository) UpdateRecurringStats(profileID string, patternKeyStr string, isRecurring bool, cadenceDays int, avg, min, max float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.Patterns[patternKey(profileID, patternKeyStr)]
	if !ok {
		return domain.ErrLearnedPatternNotFound
	}
	p.IsRecurring = isRecurring
	p.RecurringCadence = &cadenceDays
	p.AvgAmount = &avg
	p.MinAmount = &min
	p.MaxAmount = &max
	return nil
}

// AddPattern adds a learned pattern to the mock repository (helper for tests).
func (m *MockLearnedPatternRepository) AddPattern(p *domain.LearnedPattern) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Patterns[patternKey(p.ProfileID, p.PatternKey)] = p
}

// MockGlobalSuggestionRepository is a mock implementation of domain.GlobalSuggestionRepository.
type MockGlobalSuggestionRepository struct {
	mu          sync.Mutex
	Suggestions map[string]*domain.GlobalSuggestion
	NextID      int64
}

func NewMockGlobalSuggestionRepository() *MockGlobalSuggestionRepository {
	return &MockGlobalSuggestionRepository{Suggestions: make(map[string]*domain.GlobalSuggestion)}
}

func (m *MockGlobalSuggestionRepository) GetByPatternKey(patternKey string) (*domain.GlobalSuggestion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.Suggestions[patternKey]
	if !ok {
		return nil, domain.ErrGlobalSuggestionInvalid
	}
	return s, nil
}

func (m *MockGlobalSuggestionRepository) FindApprovedMatch(patternKey string) (*domain.GlobalSuggestion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.Suggestions[patternKey]
	if !ok || (s.Status != domain.SuggestionApproved && s.Status != domain.SuggestionAutoApproved) {
		return nil, domain.ErrGlobalSuggestionInvalid
	}
	return s, nil
}

func (m *MockGlobalSuggestionRepository) Upsert(patternKey string, subcategoryID int64) (*domain.GlobalSuggestion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.Suggestions[patternKey]
	if !ok {
		m.NextID++
		s = &domain.GlobalSuggestion{
			ID:                     m.NextID,
			PatternKey:             patternKey,
			SuggestedSubcategoryID: subcategoryID,
			UserCount:              1,
			Confidence:             0.75,
			Status:                 domain.SuggestionPending,
			CreatedAt:              time.Now(),
		}
		m.Suggestions[patternKey] = s
		return s, nil
	}
	s.UserCount++
	s.Confidence = 0.70 + 0.05*float64(s.UserCount)
	if s.Confidence > 0.99 {
		s.Confidence = 0.99
	}
	if s.UserCount >= 5 {
		s.Status = domain.SuggestionAutoApproved
	}
	s.UpdatedAt = time.Now()
	return s, nil
}

// AddSuggestion adds a global suggestion to the mock repository (helper for tests).
func (m *MockGlobalSuggestionRepository) AddSuggestion(s *domain.GlobalSuggestion) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Suggestions[s.PatternKey] = s
}

// MockExchangeRateRepository is a mock implementation of domain.ExchangeRateRepository.
type MockExchangeRateRepository struct {
	mu    sync.Mutex
	Rates map[string]*domain.ExchangeRate // currency+date -> rate
}

func NewMockExchangeRateRepository() *MockExchangeRateRepository {
	return &MockExchangeRateRepository{Rates: make(map[string]*domain.ExchangeRate)}
}

func rateKey(currency string, date time.Time) string {
	return currency + "\x00" + date.Format("2006-01-02")
}

func (m *MockExchangeRateRepository) Get(currency string, date time.Time) (*domain.ExchangeRate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.Rates[rateKey(currency, date)]
	if !ok {
		return nil, domain.ErrExchangeRateUnavailable
	}
	return r, nil
}

func (m *MockExchangeRateRepository) Put(rate *domain.ExchangeRate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Rates[rateKey(rate.Currency, rate.Date)] = rate
	return nil
}

// MockSubcategoryRepository is a mock implementation of domain.SubcategoryRepository.
type MockSubcategoryRepository struct {
	mu            sync.Mutex
	Subcategories map[int64]*domain.Subcategory
}

func NewMockSubcategoryRepository() *MockSubcategoryRepository {
	return &MockSubcategoryRepository{Subcategories: make(map[int64]*domain.Subcategory)}
}

func (m *MockSubcategoryRepository) List() ([]*domain.Subcategory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Subcategory
	for _, s := range m.Subcategories {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MockSubcategoryRepository) GetByID(id int64) (*domain.Subcategory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.Subcategories[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return s, nil
}

// AddSubcategory adds a subcategory to the mock repository (helper for tests).
func (m *MockSubcategoryRepository) AddSubcategory(s *domain.Subcategory) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Subcategories[s.ID] = s
}

// MockBankStatementRepository is a mock implementation of domain.BankStatementRepository.
type MockBankStatementRepository struct {
	mu         sync.Mutex
	Statements map[int64]*domain.BankStatement
	ByProfile  map[string][]*domain.BankStatement
	NextID     int64
}

func NewMockBankStatementRepository() *MockBankStatementRepository {
	return &MockBankStatementRepository{
		Statements: make(map[int64]*domain.BankStatement),
		ByProfile:  make(map[string][]*domain.BankStatement),
	}
}

func (m *MockBankStatementRepository) Create(s *domain.BankStatement) (*domain.BankStatement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.NextID++
	s.ID = m.NextID
	s.CreatedAt = time.Now()
	s.UpdatedAt = time.Now()
	m.Statements[s.ID] = s
	m.ByProfile[s.ProfileID] = append(m.ByProfile[s.ProfileID], s)
	return s, nil
}

func (m *MockBankStatementRepository) GetByID(profileID string, id int64) (*domain.BankStatement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.Statements[id]
	if !ok || s.ProfileID != profileID {
		return nil, domain.ErrBankStatementNotFound
	}
	return s, nil
}

func (m *MockBankStatementRepository) ListByProfile(profileID string) ([]*domain.BankStatement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ByProfile[profileID], nil
}

func (m *MockBankStatementRepository) UpdateReconcileSummary(profileID string, id int64, totalPDF, totalSystem, matched int, matchPct float64, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.Statements[id]
	if !ok || s.ProfileID != profileID {
		return domain.ErrBankStatementNotFound
	}
	s.TotalPDF = totalPDF
	s.TotalSystem = totalSystem
	s.MatchedCount = matched
	s.MatchPercentage = matchPct
	s.ReconcileStatus = status
	s.UpdatedAt = time.Now()
	return nil
}

// AddStatement adds a bank statement to the mock repository (helper for tests).
func (m *MockBankStatementRepository) AddStatement(s *domain.BankStatement) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Statements[s.ID] = s
	m.ByProfile[s.ProfileID] = append(m.ByProfile[s.ProfileID], s)
}

// MockSubscriptionRepository is a mock implementation of domain.SubscriptionRepository.
type MockSubscriptionRepository struct {
	mu            sync.Mutex
	Subscriptions map[string]*domain.Subscription // profileID+merchantKey -> subscription
	NextID        int64
}

func NewMockSubscriptionRepository() *MockSubscriptionRepository {
	return &MockSubscriptionRepository{Subscriptions: make(map[string]*domain.Subscription)}
}

func subKey(profileID, merchantKey string) string { return profileID + "\x00" + merchantKey }

func (m *MockSubscriptionRepository) ListActive(profileID string) ([]*domain.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Subscription
	for _, s := range m.Subscriptions {
		if s.ProfileID == profileID && s.Active {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *MockSubscriptionRepository) GetByMerchantKey(profileID string, merchantKey string) (*domain.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.Subscriptions[subKey(profileID, merchantKey)]
	if !ok {
		return nil, domain.ErrSubscriptionNotFound
	}
	return s, nil
}

func (m *MockSubscriptionRepository) Upsert(s *domain.Subscription) (*domain.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := subKey(s.ProfileID, s.MerchantKey)
	if existing, ok := m.Subscriptions[key]; ok {
		s.ID = existing.ID
		s.CreatedAt = existing.CreatedAt
	} else {
		m.NextID++
		s.ID = m.NextID
		s.CreatedAt = time.Now()
	}
	s.UpdatedAt = time.Now()
	m.Subscriptions[key] = s
	return s, nil
}

func (m *MockSubscriptionRepository) Deactivate(profileID string, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.Subscriptions {
		if s.ProfileID == profileID && s.ID == id {
			s.Active = false
			s.UpdatedAt = time.Now()
			return nil
		}
	}
	return domain.ErrSubscriptionNotFound
}

// AddSubscription adds a subscription to the mock repository (helper for tests).
func (m *MockSubscriptionRepository) AddSubscription(s *domain.Subscription) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Subscriptions[subKey(s.ProfileID, s.MerchantKey)] = s
}

// MockAlertRepository is a mock implementation of domain.AlertRepository.
type MockAlertRepository struct {
	mu     sync.Mutex
	Alerts map[int64]*domain.Alert
	NextID int64
}

func NewMockAlertRepository() *MockAlertRepository {
	return &MockAlertRepository{Alerts: make(map[int64]*domain.Alert)}
}

func (m *MockAlertRepository) Create(a *domain.Alert) (*domain.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.NextID++
	a.ID = m.NextID
	a.CreatedAt = time.Now()
	m.Alerts[a.ID] = a
	return a, nil
}

func (m *MockAlertRepository) ListUnacked(profileID string) ([]*domain.Alert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Alert
	for _, a := range m.Alerts {
		if a.ProfileID == profileID && !a.Acked {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MockAlertRepository) Ack(profileID string, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.Alerts[id]
	if !ok || a.ProfileID != profileID {
		return domain.ErrNotFound
	}
	a.Acked = true
	return nil
}

// AddAlert adds an alert to the mock repository (helper for tests).
func (m *MockAlertRepository) AddAlert(a *domain.Alert) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Alerts[a.ID] = a
}

// MockTransactionRepository is a mock implementation of domain.TransactionRepository.
type MockTransactionRepository struct {
	mu           sync.Mutex
	Transactions map[int64]*domain.Transaction
	ByProfile    map[string][]*domain.Transaction
	ByEmailID    map[string]*domain.Transaction // profileID+emailID -> transaction
	NextID       int64

	CreateFn func(tx *domain.Transaction) (*domain.Transaction, bool, error)
}

func NewMockTransactionRepository() *MockTransactionRepository {
	return &MockTransactionRepository{
		Transactions: make(map[int64]*domain.Transaction),
		ByProfile:    make(map[string][]*domain.Transaction),
		ByEmailID:    make(map[string]*domain.Transaction),
	}
}

func emailKey(profileID, emailID string) string { return profileID + "\x00" + emailID }

func (m *MockTransactionRepository) Create(tx *domain.Transaction) (*domain.Transaction, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateFn != nil {
		return m.CreateFn(tx)
	}
	key := emailKey(tx.ProfileID, tx.EmailID)
	if existing, ok := m.ByEmailID[key]; ok {
		return existing, true, nil
	}
	m.NextID++
	tx.ID = m.NextID
	tx.CreatedAt = time.Now()
	tx.UpdatedAt = time.Now()
	m.Transactions[tx.ID] = tx
	m.ByProfile[tx.ProfileID] = append(m.ByProfile[tx.ProfileID], tx)
	m.ByEmailID[key] = tx
	return tx, false, nil
}

func (m *MockTransactionRepository) CreateBatch(txs []*domain.Transaction) (int, int, error) {
	created, duplicate := 0, 0
	for _, tx := range txs {
		_, wasDup, err := m.Create(tx)
		if err != nil {
			return created, duplicate, err
		}
		if wasDup {
			duplicate++
		} else {
			created++
		}
	}
	return created, duplicate, nil
}

func (m *MockTransactionRepository) GetByID(profileID string, id int64) (*domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, ok := m.Transactions[id]
	if !ok || tx.ProfileID != profileID {
		return nil, domain.ErrTransactionNotFound
	}
	return tx, nil
}

func (m *MockTransactionRepository) GetByEmailID(profileID string, emailID string) (*domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, ok := m.ByEmailID[emailKey(profileID, emailID)]
	if !ok {
		return nil, domain.ErrTransactionNotFound
	}
	return tx, nil
}

func (m *MockTransactionRepository) List(filters domain.TransactionFilters) (*domain.PaginatedTransactions, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var filtered []*domain.Transaction
	for _, tx := range m.ByProfile[filters.ProfileID] {
		if filters.StartDate != nil && tx.TxnTime.Before(*filters.StartDate) {
			continue
		}
		if filters.EndDate != nil && tx.TxnTime.After(*filters.EndDate) {
			continue
		}
		if filters.Kind != nil && tx.Kind != *filters.Kind {
			continue
		}
		if filters.Status != nil && tx.Status != *filters.Status {
			continue
		}
		if filters.MerchantID != nil && (tx.MerchantID == nil || *tx.MerchantID != *filters.MerchantID) {
			continue
		}
		if filters.NeedsReview != nil && tx.CategoryNeedsReview != *filters.NeedsReview {
			continue
		}
		if filters.NeedsReconciliation != nil && tx.NeedsReconciliation != *filters.NeedsReconciliation {
			continue
		}
		filtered = append(filtered, tx)
	}

	page := filters.Page
	if page < 1 {
		page = 1
	}
	pageSize := filters.PageSize
	if pageSize <= 0 {
		pageSize = domain.DefaultPageSize
	}

	total := int64(len(filtered))
	start := (page - 1) * pageSize
	end := start + pageSize
	if start >= int32(len(filtered)) {
		filtered = nil
	} else {
		if end > int32(len(filtered)) {
			end = int32(len(filtered))
		}
		filtered = filtered[start:end]
	}

	return &domain.PaginatedTransactions{
		Data:       filtered,
		Page:       page,
		PageSize:   pageSize,
		TotalItems: total,
	}, nil
}

func (m *MockTransactionRepository) GetInWindow(profileID string, start, end time.Time) ([]*domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Transaction
	for _, tx := range m.ByProfile[profileID] {
		if !tx.TxnTime.Before(start) && !tx.TxnTime.After(end) {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (m *MockTransactionRepository) GetByMerchant(profileID string, merchantID int64, limit int) ([]*domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Transaction
	for _, tx := range m.ByProfile[profileID] {
		if tx.MerchantID != nil && *tx.MerchantID == merchantID {
			out = append(out, tx)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (m *MockTransactionRepository) GetMostRecentConfirmedByMerchantKey(profileID string, merchantKey string) (*domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var best *domain.Transaction
	for _, tx := range m.ByProfile[profileID] {
		if tx.MerchantRaw != merchantKey || !tx.CategoryConfirmedByUser {
			continue
		}
		if best == nil || tx.TxnTime.After(best.TxnTime) {
			best = tx
		}
	}
	if best == nil {
		return nil, domain.ErrTransactionNotFound
	}
	return best, nil
}

func (m *MockTransactionRepository) GetNeedingReview(profileID string) ([]*domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Transaction
	for _, tx := range m.ByProfile[profileID] {
		if tx.CategoryNeedsReview {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (m *MockTransactionRepository) GetNeedingReconciliation(profileID string) ([]*domain.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Transaction
	for _, tx := range m.ByProfile[profileID] {
		if tx.NeedsReconciliation {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (m *MockTransactionRepository) Update(tx *domain.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.Transactions[tx.ID]
	if !ok || existing.ProfileID != tx.ProfileID {
		return domain.ErrTransactionNotFound
	}
	tx.UpdatedAt = time.Now()
	m.Transactions[tx.ID] = tx
	for i, t := range m.ByProfile[tx.ProfileID] {
		if t.ID == tx.ID {
			m.ByProfile[tx.ProfileID][i] = tx
			break
		}
	}
	return nil
}

func (m *MockTransactionRepository) ApplyUserCorrection(profileID string, id int64, subcategoryID int64, userLabel *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, ok := m.Transactions[id]
	if !ok || tx.ProfileID != profileID {
		return domain.ErrTransactionNotFound
	}
	if tx.OriginalAISuggestion == nil {
		tx.OriginalAISuggestion = tx.SubcategoryID
	}
	tx.SubcategoryID = &subcategoryID
	tx.CategoryConfirmedByUser = true
	tx.CategoryNeedsReview = false
	tx.CategorySource = domain.SourceUserCorrection
	tx.UpdatedAt = time.Now()
	return nil
}

func (m *MockTransactionRepository) MarkReconciled(profileID string, id int64, statementID int64, rowRef string, reconciledAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, ok := m.Transactions[id]
	if !ok || tx.ProfileID != profileID {
		return domain.ErrTransactionNotFound
	}
	tx.Status = domain.StatusReconciled
	tx.StatementID = &statementID
	tx.StatementRowRef = &rowRef
	tx.ReconciledAt = &reconciledAt
	tx.UpdatedAt = time.Now()
	return nil
}

func (m *MockTransactionRepository) DecrementCardBalance(profileID string, cardID int64, amount decimal.Decimal) error {
	// The mock transaction repository has no card storage of its own;
	// card-balance state lives in MockCardRepository. Callers that need
	// this interaction wired end-to-end should use MockCardRepository
	// directly and treat this as a no-op audit hook.
	return nil
}

// AddTransaction adds a transaction to the mock repository (helper for tests).
func (m *MockTransactionRepository) AddTransaction(tx *domain.Transaction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Transactions[tx.ID] = tx
	m.ByProfile[tx.ProfileID] = append(m.ByProfile[tx.ProfileID], tx)
	m.ByEmailID[emailKey(tx.ProfileID, tx.EmailID)] = tx
}

// ImmediateTxManager runs fn directly, with no actual transaction semantics
// -- for tests of callers that only need WithinTx to invoke its argument.
type ImmediateTxManager struct{}

func (ImmediateTxManager) WithinTx(fn func() error) error { return fn() }

// AbortingTxManager returns Err from WithinTx without invoking fn, simulating
// a transaction that fails to begin.
type AbortingTxManager struct{ Err error }

func (a AbortingTxManager) WithinTx(fn func() error) error { return a.Err }

var (
	_ domain.ProfileRepository          = (*MockProfileRepository)(nil)
	_ domain.APITokenRepository         = (*MockAPITokenRepository)(nil)
	_ domain.CardRepository             = (*MockCardRepository)(nil)
	_ domain.ContactRepository          = (*MockContactRepository)(nil)
	_ domain.MerchantRepository         = (*MockMerchantRepository)(nil)
	_ domain.LearnedPatternRepository   = (*MockLearnedPatternRepository)(nil)
	_ domain.GlobalSuggestionRepository = (*MockGlobalSuggestionRepository)(nil)
	_ domain.ExchangeRateRepository     = (*MockExchangeRateRepository)(nil)
	_ domain.SubcategoryRepository      = (*MockSubcategoryRepository)(nil)
	_ domain.BankStatementRepository    = (*MockBankStatementRepository)(nil)
	_ domain.SubscriptionRepository     = (*MockSubscriptionRepository)(nil)
	_ domain.AlertRepository            = (*MockAlertRepository)(nil)
	_ domain.TransactionRepository      = (*MockTransactionRepository)(nil)
	_ domain.TxManager                  = ImmediateTxManager{}
	_ domain.TxManager                  = AbortingTxManager{}
)
