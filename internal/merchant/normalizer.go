package merchant

import (
	"strings"

	"github.com/sebascrugu/finanzas-tracker-go/internal/domain"
)

const fuzzyMergeMaxDistance = 2

// Normalizer implements find_or_create(raw_name, city?, country?) -> Merchant
// (spec.md §4.5).
type Normalizer struct {
	repo domain.MerchantRepository
}

// New creates a Normalizer backed by the given repository.
func New(repo domain.MerchantRepository) *Normalizer {
	return &Normalizer{repo: repo}
}

// FindOrCreate normalizes raw, looks for an exact key match, then a fuzzy
// near-duplicate, and finally creates a new Merchant if neither is found.
func (n *Normalizer) FindOrCreate(rawName string, city, country *string) (*domain.Merchant, error) {
	key := Normalize(rawName)

	if existing, err := n.repo.GetByNormalizedName(key); err == nil && existing != nil {
		if !containsAlias(existing, rawName) {
			_ = n.repo.AddAlias(existing.ID, rawName)
		}
		return existing, nil
	}

	if fuzzy, err := n.findFuzzyMatch(key); err == nil && fuzzy != nil {
		_ = n.repo.AddAlias(fuzzy.ID, rawName)
		return fuzzy, nil
	}

	m := &domain.Merchant{
		NormalizedName: key,
		DisplayName:    titleCase(rawName),
		City:           city,
		Country:        country,
		Aliases:        []string{rawName},
	}
	return n.repo.Create(m)
}

// findFuzzyMatch merges near-duplicates: edit-distance <= 2 AND shared first
// significant word (spec.md §4.5).
func (n *Normalizer) findFuzzyMatch(key string) (*domain.Merchant, error) {
	firstWord := FirstSignificantWord(key)
	candidates, err := n.repo.ListCandidatesForFuzzyMerge(firstWord)
	if err != nil {
		return nil, err
	}
	for _, c := range candidates {
		if EditDistance(key, c.NormalizedName) <= fuzzyMergeMaxDistance {
			return c, nil
		}
	}
	return nil, nil
}

func containsAlias(m *domain.Merchant, alias string) bool {
	for _, a := range m.Aliases {
		if strings.EqualFold(a, alias) {
			return true
		}
	}
	return false
}

func titleCase(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	words := strings.Fields(s)
	for i, w := range words {
		if len(w) > 0 {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
