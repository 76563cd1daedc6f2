// Package merchant implements the Merchant Normalizer (spec.md §4.5): it
// turns raw bank descriptor strings into a stable canonical merchant
// identity, with a SINPE-specific keying rule and a fuzzy near-duplicate
// merge pass.
package merchant

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	referenceTokenRe = regexp.MustCompile(`(?:\s+[A-Z0-9]{8,})+\s*$`)
	starCodeRe       = regexp.MustCompile(`\*[A-Z0-9]+\b`)
	multiSpaceRe     = regexp.MustCompile(`\s+`)
	sinpeNameRe      = regexp.MustCompile(`^SINPE\s+([A-Z]+)\b`)
)

// knownLocationTokens lists location suffixes BAC/Costa Rican bank
// descriptors commonly append (city/province names, "CR" country code).
// Grounded on original_source's descriptor handling.
var knownLocationTokens = map[string]bool{
	"SAN JOSE": true, "HEREDIA": true, "CARTAGO": true, "ALAJUELA": true,
	"ESCAZU": true, "SANTA ANA": true, "CR": true, "COSTA RICA": true,
	"GAM": true,
}

// Normalize runs the full pipeline from spec.md §4.5 and returns the lookup
// key used to find-or-create a Merchant.
func Normalize(raw string) string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	s = stripDiacritics(s)

	if m := sinpeNameRe.FindStringSubmatch(s); m != nil {
		return "SINPE " + m[1] + "%"
	}

	s = starCodeRe.ReplaceAllString(s, "")
	s = referenceTokenRe.ReplaceAllString(s, "")
	s = stripLocationTokens(s)
	s = multiSpaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// stripDiacritics removes combining accents by mapping common Spanish
// accented runes to their base form. Hand-rolled rather than pulling in
// golang.org/x/text/unicode/norm: no pack repo imports a transliteration
// library for this, and the accent set bank descriptors use is small and
// fixed (see DESIGN.md).
func stripDiacritics(s string) string {
	replacer := strings.NewReplacer(
		"Á", "A", "É", "E", "Í", "I", "Ó", "O", "Ú", "U", "Ñ", "N", "Ü", "U",
	)
	return replacer.Replace(s)
}

func stripLocationTokens(s string) string {
	for token := range knownLocationTokens {
		s = strings.ReplaceAll(s, token, "")
	}
	return s
}

// FirstSignificantWord returns the first word of a normalized key that isn't
// a filler/location word, used to pre-filter fuzzy-merge candidates.
func FirstSignificantWord(normalized string) string {
	for _, w := range strings.Fields(normalized) {
		if len(w) >= 3 && !unicode.IsDigit(rune(w[0])) {
			return w
		}
	}
	return normalized
}

// EditDistance computes Levenshtein distance on runes. A ~20-line DP table;
// no pack repo reaches for a fuzzy-matching library for this, so it's
// implemented directly rather than adding a dependency (see DESIGN.md).
func EditDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	la, lb := len(ra), len(rb)
	if la == 0 {
		return lb
	}
	if lb == 0 {
		return la
	}

	prev := make([]int, lb+1)
	curr := make([]int, lb+1)
	for j := 0; j <= lb; j++ {
		prev[j] = j
	}

	for i := 1; i <= la; i++ {
		curr[0] = i
		for j := 1; j <= lb; j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			del := prev[j] + 1
			ins := curr[j-1] + 1
			sub := prev[j-1] + cost
			curr[j] = min3(del, ins, sub)
		}
		prev, curr = curr, prev
	}
	return prev[lb]
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}
