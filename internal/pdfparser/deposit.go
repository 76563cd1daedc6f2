package pdfparser

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sebascrugu/finanzas-tracker-go/internal/domain"
)

var depositRowRe = regexp.MustCompile(
	`(\d{6,14})\s+` + // reference
		`(\d{1,2}-[A-Z]{3}-\d{2,4})\s+` + // date
		`(.+?)\s+` + // description
		`([\d,]+\.\d{2})\s*$`, // amount
)

// LLMRowExtractor delegates OCR-like row extraction to a vendor LLM when
// the state machine can't parse a deposit-account page (spec.md §4.4). The
// response must be valid JSON conforming to llmRowSchema; implementations
// live in internal/llmclient.
type LLMRowExtractor interface {
	ExtractStatementRows(ctx context.Context, pageText string) (string, error)
}

// llmRow is the JSON row schema the LLM fallback must conform to.
type llmRow struct {
	Reference   string `json:"reference"`
	Date        string `json:"date"` // YYYY-MM-DD
	Description string `json:"description"`
	Location    string `json:"location"`
	Currency    string `json:"currency"`
	Amount      string `json:"amount"`
}

type llmRowsResponse struct {
	Rows []llmRow `json:"rows"`
}

// ParseDepositStatement extracts rows from a deposit-account statement. It
// first tries the same grid regex the credit-card parser uses (the grids
// are structurally similar enough per spec.md §4.4), falling back to an
// LLM extractor for pages that yield zero rows — e.g. image-only pages
// that need OCR-like extraction.
func ParseDepositStatement(ctx context.Context, pages []string, filenameYear int, extractor LLMRowExtractor) ([]domain.StatementRow, error) {
	cutYear := filenameYear

	var rows []domain.StatementRow
	ordinal := 0

	for _, page := range pages {
		pageRows := parseDepositPageRegex(page, cutYear)
		if len(pageRows) == 0 && extractor != nil && strings.TrimSpace(page) != "" {
			llmRows, err := parseDepositPageLLM(ctx, extractor, page, cutYear)
			if err == nil {
				pageRows = llmRows
			}
			// A failed/malformed LLM fallback is not fatal: the page is
			// simply skipped (spec.md §4.4: rejected, not raised).
		}
		for i := range pageRows {
			pageRows[i].RowOrdinal = ordinal
			ordinal++
		}
		rows = append(rows, pageRows...)
	}

	return rows, nil
}

func parseDepositPageRegex(page string, cutYear int) []domain.StatementRow {
	var rows []domain.StatementRow
	for _, line := range strings.Split(page, "\n") {
		line = strings.TrimSpace(line)
		m := depositRowRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		date, ok := parseSpanishDate(m[2], cutYear)
		if !ok {
			continue
		}
		amount, err := decimal.NewFromString(strings.ReplaceAll(m[4], ",", ""))
		if err != nil {
			continue
		}
		description, location := splitDescriptionAndLocation(strings.TrimSpace(m[3]))
		row := domain.StatementRow{
			Reference:   m[1],
			Date:        date,
			Description: description,
			Currency:    "CRC",
			Amount:      amount,
			Section:     domain.SectionUnknown,
		}
		if location != "" {
			row.Location = &location
		}
		rows = append(rows, row)
	}
	return rows
}

// depositLLMPrompt asks the model for a JSON object whose only key is
// "rows", each conforming to llmRow — mirrored on the chunked
// JSON-schema-constrained extraction pattern other pack repos use for LLM
// PDF extraction (see DESIGN.md).
const depositLLMPrompt = `Extract every transaction row from the following bank statement page text. Respond with ONLY a JSON object of the form {"rows":[{"reference":"...","date":"YYYY-MM-DD","description":"...","location":"","currency":"CRC","amount":"1234.56"}]}. Use the statement's own reference numbers; if a row has no reference, use an empty string. Do not include headers, totals, or section titles as rows.

PAGE TEXT:
`

func parseDepositPageLLM(ctx context.Context, extractor LLMRowExtractor, pageText string, cutYear int) ([]domain.StatementRow, error) {
	raw, err := extractor.ExtractStatementRows(ctx, depositLLMPrompt+pageText)
	if err != nil {
		return nil, err
	}

	var parsed llmRowsResponse
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("pdfparser: LLM fallback returned invalid JSON: %w", err)
	}

	rows := make([]domain.StatementRow, 0, len(parsed.Rows))
	for _, r := range parsed.Rows {
		date, err := parseLLMDate(r.Date, cutYear)
		if err != nil {
			continue
		}
		amount, err := decimal.NewFromString(r.Amount)
		if err != nil {
			continue
		}
		currency := r.Currency
		if currency == "" {
			currency = "CRC"
		}
		row := domain.StatementRow{
			Reference:   r.Reference,
			Date:        date,
			Description: r.Description,
			Currency:    currency,
			Amount:      amount,
		}
		if r.Location != "" {
			loc := r.Location
			row.Location = &loc
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseLLMDate(s string, fallbackYear int) (time.Time, error) {
	t, err := time.Parse("2006-01-02", s)
	if err == nil {
		return t, nil
	}
	// Tolerate a two-digit-year Spanish abbreviation slipping through the
	// model's output despite the prompt.
	if d, ok := parseSpanishDate(s, fallbackYear); ok {
		return d, nil
	}
	return time.Time{}, fmt.Errorf("pdfparser: unparseable LLM row date %q", s)
}

// YearFromFilename extracts a four-digit year from a statement filename,
// per spec.md §4.4's year-inference rule. Returns 0 if none is found.
func YearFromFilename(filename string) int {
	re := regexp.MustCompile(`(20\d{2})`)
	m := re.FindStringSubmatch(filename)
	if m == nil {
		return 0
	}
	y, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return y
}
