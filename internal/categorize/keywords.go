package categorize

import "strings"

// KeywordRule maps a set of merchant-string substrings to a subcategory,
// identified by name rather than ID since the taxonomy is seeded data the
// cascade resolves at runtime (spec.md §4.6 step 4). Grounded on the
// quantumlife-canon-core categorizer's CategoryRule table, adapted from US
// merchant names to the Costa Rican ones this system's bank parsers
// actually produce.
type KeywordRule struct {
	SubcategoryName string
	Keywords        []string
}

type keywordMatch struct {
	SubcategoryName string
	Confidence      int
	subcategoryID   int64
}

// matchKeywordRules scans the raw merchant string for every rule's
// keywords and returns all matches, highest confidence first. A keyword
// longer than keywordHighConfidenceMinLen counts as a "strong" match
// (spec.md §4.6 step 4: "Single strong match (keyword length > threshold):
// return at 90").
func matchKeywordRules(merchantRaw string, rules []KeywordRule) []keywordMatch {
	lower := strings.ToLower(merchantRaw)

	var matches []keywordMatch
	for _, rule := range rules {
		best := 0
		matched := false
		for _, kw := range rule.Keywords {
			if !strings.Contains(lower, strings.ToLower(kw)) {
				continue
			}
			matched = true
			confidence := keywordMediumConfidence
			if len(kw) > keywordHighConfidenceMinLen {
				confidence = keywordHighConfidence
			}
			if confidence > best {
				best = confidence
			}
		}
		if matched {
			matches = append(matches, keywordMatch{SubcategoryName: rule.SubcategoryName, Confidence: best})
		}
	}

	sortMatchesByConfidenceDesc(matches)
	return matches
}

func sortMatchesByConfidenceDesc(matches []keywordMatch) {
	for i := 1; i < len(matches); i++ {
		for j := i; j > 0 && matches[j].Confidence > matches[j-1].Confidence; j-- {
			matches[j], matches[j-1] = matches[j-1], matches[j]
		}
	}
}

// DefaultKeywordRules is the Costa Rica-flavored keyword table (spec.md
// §4.6 step 4).
func DefaultKeywordRules() []KeywordRule {
	return []KeywordRule{
		{
			SubcategoryName: "Supermercado",
			Keywords: []string{
				"automercado", "walmart", "maxi pali", "masxmenos", "mas x menos",
				"pricesmart", "super compro", "perimercados", "fresh market",
			},
		},
		{
			SubcategoryName: "Gasolina",
			Keywords: []string{
				"gasolinera", "servicentro", "recope", "delta gas", "uno gas",
				"estacion de servicio",
			},
		},
		{
			SubcategoryName: "Restaurantes",
			Keywords: []string{
				"restaurante", "soda", "cafeteria", "mcdonalds", "kfc",
				"burger king", "pizza hut", "dominos", "taco bell", "subway",
			},
		},
		{
			SubcategoryName: "Transporte",
			Keywords: []string{
				"uber", "didi", "taxi", "autobuses", "peaje", "parqueo", "parking",
			},
		},
		{
			SubcategoryName: "Suscripciones",
			Keywords: []string{
				"netflix", "spotify", "disney+", "hbo max", "amazon prime",
				"youtube premium", "apple music", "icloud",
			},
		},
		{
			SubcategoryName: "Salud",
			Keywords: []string{
				"farmacia", "clinica biblica", "hospital cima", "fischel",
				"laboratorio clinico", "consultorio", "dental",
			},
		},
		{
			SubcategoryName: "Servicios Publicos",
			Keywords: []string{
				"ice electricidad", "ice internet", "aya", "kolbi", "cnfl",
				"esph", "jasec", "coopeguanacaste",
			},
		},
		{
			SubcategoryName: "Compras",
			Keywords: []string{
				"amazon.com", "ebay", "aliexpress", "mercado libre", "ekono",
			},
		},
	}
}
