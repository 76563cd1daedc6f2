package pdfparser

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sebascrugu/finanzas-tracker-go/internal/domain"
)

var spanishMonths = map[string]time.Month{
	"ENE": time.January, "FEB": time.February, "MAR": time.March,
	"ABR": time.April, "MAY": time.May, "JUN": time.June,
	"JUL": time.July, "AGO": time.August, "SEP": time.September,
	"OCT": time.October, "NOV": time.November, "DIC": time.December,
}

var (
	ccDateRe      = regexp.MustCompile(`(\d{1,2})-([A-Z]{3})-(\d{2,4})`)
	ccRefLineRe   = regexp.MustCompile(`^(\d{10,14})\s+`)
	ccAmountTailRe = regexp.MustCompile(`([\d,]+\.\d{2})(?:\s+([\d,]+\.\d{2}))?\s*$`)
	ccCutDateRe    = regexp.MustCompile(`(?i)fecha de corte:\s*(\d{1,2}-[A-Z]{3}-\d{2,4})`)
	ccDueDateRe    = regexp.MustCompile(`(?i)fecha l[ií]mite pago (?:m[ií]nimo|de contado):\s*(\d{1,2}-[A-Z]{3}-\d{2,4})`)
	ccLimitRe      = regexp.MustCompile(`(?i)l[ií]mite de cr[ée]dito:\s*USD\s*([\d,]+\.?\d*)`)
	ccMinPaymentRe = regexp.MustCompile(`(?i)pago m[ií]nimo[:\s]+(?:CRC\s*)?([\d,]+\.\d{2})`)
	ccCardLast4Re  = regexp.MustCompile(`\*{4,}(\d{4})`)

	ccSectionHeaders = []struct {
		marker  string
		section domain.StatementSection
	}{
		{"detail of purchases", domain.SectionPurchases},
		{"detalle de compras", domain.SectionPurchases},
		{"detail of interest", domain.SectionInterest},
		{"detalle de intereses", domain.SectionInterest},
		{"detail of charges", domain.SectionCharges},
		{"detalle de otros cargos", domain.SectionCharges},
		{"products and services", domain.SectionProducts},
		{"productos y servicios", domain.SectionProducts},
		{"detail of payment", domain.SectionPayment},
		{"detalle de pago", domain.SectionPayment},
	}

	ccSkipLineMarkers = []string{
		"n. referencia", "concepto/descripción", "transacción",
		"no se registran", "total por concepto", "saldos al corte",
		"monto en colones", "colones", "dólares",
		"tarjeta de credito", "total de compras", "total de intereses",
	}
)

// CreditCardMetadata is the header-region data read before row extraction
// (spec.md §4.4).
type CreditCardMetadata struct {
	CardLast4      string
	CutDate        time.Time
	DueDate        time.Time
	CreditLimitUSD decimal.Decimal
	MinimumPayment decimal.Decimal
}

// CreditCardResult is a parsed credit-card statement.
type CreditCardResult struct {
	Metadata CreditCardMetadata
	Rows     []domain.StatementRow
}

// ParseCreditCardStatement runs the section state machine over the
// statement's pages (spec.md §4.4). Two-digit row years are resolved against
// the cut date's year, or the current year when no cut date is found.
func ParseCreditCardStatement(pages []string) (*CreditCardResult, error) {
	allText := strings.Join(pages, "\n")
	metadata := extractCreditCardMetadata(allText)

	year := metadata.CutDate.Year()
	if year == 0 {
		year = time.Now().Year()
	}

	var rows []domain.StatementRow
	ordinal := 0
	section := domain.SectionUnknown

	for _, page := range pages {
		for _, rawLine := range strings.Split(page, "\n") {
			line := strings.TrimSpace(rawLine)
			if line == "" {
				continue
			}
			lower := strings.ToLower(line)

			if newSection, ok := matchSectionHeader(lower); ok {
				section = newSection
				continue
			}
			if shouldSkipLine(lower) {
				continue
			}

			row, ok := parseCreditCardRow(line, section, year)
			if !ok {
				continue
			}
			row.RowOrdinal = ordinal
			ordinal++
			rows = append(rows, row)
		}
	}

	return &CreditCardResult{Metadata: metadata, Rows: rows}, nil
}

func matchSectionHeader(lower string) (domain.StatementSection, bool) {
	for _, h := range ccSectionHeaders {
		if strings.Contains(lower, h.marker) {
			return h.section, true
		}
	}
	return "", false
}

func shouldSkipLine(lower string) bool {
	for _, marker := range ccSkipLineMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// parseCreditCardRow parses one row of the form
// "REFERENCIA FECHA CONCEPTO [LUGAR] [MONEDA] MONTO" (spec.md §4.4: rows
// matching a known grid; unknown rows are skipped, not failed).
func parseCreditCardRow(line string, section domain.StatementSection, year int) (domain.StatementRow, bool) {
	refMatch := ccRefLineRe.FindStringSubmatchIndex(line)
	if refMatch == nil {
		return domain.StatementRow{}, false
	}
	reference := line[refMatch[2]:refMatch[3]]
	rest := line[refMatch[1]:]

	dateMatch := ccDateRe.FindStringSubmatchIndex(rest)
	if dateMatch == nil || dateMatch[0] != 0 {
		return domain.StatementRow{}, false
	}
	txnDate, ok := parseSpanishDate(rest[dateMatch[0]:dateMatch[1]], year)
	if !ok {
		return domain.StatementRow{}, false
	}
	rest = strings.TrimSpace(rest[dateMatch[1]:])

	amountLoc := ccAmountTailRe.FindStringSubmatchIndex(rest)
	if amountLoc == nil {
		return domain.StatementRow{}, false
	}
	amountStr := rest[amountLoc[2]:amountLoc[3]]
	amount, err := decimal.NewFromString(strings.ReplaceAll(amountStr, ",", ""))
	if err != nil {
		return domain.StatementRow{}, false
	}

	descLocation := strings.TrimSpace(rest[:amountLoc[0]])
	currency := "CRC"
	if strings.HasSuffix(descLocation, " USD") {
		currency = "USD"
		descLocation = strings.TrimSuffix(descLocation, " USD")
	} else if strings.HasSuffix(descLocation, " CRC") {
		descLocation = strings.TrimSuffix(descLocation, " CRC")
	}

	description, location := splitDescriptionAndLocation(descLocation)

	row := domain.StatementRow{
		Reference:   reference,
		Date:        txnDate,
		Description: description,
		Currency:    currency,
		Amount:      amount,
		Section:     section,
	}
	if location != "" {
		row.Location = &location
	}
	return row, true
}

// splitDescriptionAndLocation peels a trailing capitalized location token
// off the description, mirroring the original's heuristic: the last
// "word" is a location if it starts uppercase and is longer than 2 chars.
func splitDescriptionAndLocation(s string) (description, location string) {
	fields := strings.Fields(s)
	if len(fields) < 2 {
		return s, ""
	}
	last := fields[len(fields)-1]
	if len(last) > 2 && isUpperInitial(last) {
		return strings.Join(fields[:len(fields)-1], " "), last
	}
	return s, ""
}

func isUpperInitial(s string) bool {
	r := []rune(s)
	return len(r) > 0 && r[0] >= 'A' && r[0] <= 'Z'
}

func parseSpanishDate(s string, defaultYear int) (time.Time, bool) {
	m := ccDateRe.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, false
	}
	day, err := strconv.Atoi(m[1])
	if err != nil {
		return time.Time{}, false
	}
	month, ok := spanishMonths[strings.ToUpper(m[2])]
	if !ok {
		return time.Time{}, false
	}
	year, err := strconv.Atoi(m[3])
	if err != nil {
		return time.Time{}, false
	}
	if year < 100 {
		year += 2000
	}
	if defaultYear > 0 && len(m[3]) == 2 {
		// Two-digit years are resolved against the statement's cut year,
		// but the literal value still wins unless it's clearly wrong
		// (guards against a Dec/Jan rollover at the statement boundary).
		if abs(year-defaultYear) > 1 {
			year = defaultYear
		}
	}
	return time.Date(year, month, day, 12, 0, 0, 0, time.UTC), true
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func extractCreditCardMetadata(text string) CreditCardMetadata {
	var meta CreditCardMetadata

	if m := ccCardLast4Re.FindStringSubmatch(text); m != nil {
		meta.CardLast4 = m[1]
	}
	if m := ccCutDateRe.FindStringSubmatch(text); m != nil {
		if d, ok := parseSpanishDate(m[1], 0); ok {
			meta.CutDate = d
		}
	}
	if m := ccDueDateRe.FindStringSubmatch(text); m != nil {
		if d, ok := parseSpanishDate(m[1], meta.CutDate.Year()); ok {
			meta.DueDate = d
		}
	}
	if m := ccLimitRe.FindStringSubmatch(text); m != nil {
		if v, err := decimal.NewFromString(strings.ReplaceAll(m[1], ",", "")); err == nil {
			meta.CreditLimitUSD = v
		}
	}
	if m := ccMinPaymentRe.FindStringSubmatch(text); m != nil {
		if v, err := decimal.NewFromString(strings.ReplaceAll(m[1], ",", "")); err == nil {
			meta.MinimumPayment = v
		}
	}
	return meta
}
