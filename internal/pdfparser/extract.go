// Package pdfparser implements the PDF Statement Parser (spec.md §4.4):
// credit-card and deposit-account variants, both built on a section state
// machine over per-page plain text, with an LLM OCR fallback for pages the
// state machine can't extract cleanly.
package pdfparser

import (
	"bytes"
	"fmt"

	"github.com/ledongthuc/pdf"
)

// ExtractPages reads raw PDF bytes and returns its plain text, one string
// per page, in page order. Grounded on original_source's pdfplumber usage
// (page.extract_text() per page, concatenated); ledongthuc/pdf is the
// pure-Go equivalent used here since no pack repo carries a PDF
// text-extraction library (DESIGN.md: out-of-pack dependency).
func ExtractPages(data []byte) ([]string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("pdfparser: opening PDF: %w", err)
	}

	pages := make([]string, 0, reader.NumPage())
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// Some pages (image-only, malformed content streams) fail
			// extraction; the caller falls back to LLM OCR for those, so a
			// blank page here is not fatal.
			pages = append(pages, "")
			continue
		}
		pages = append(pages, text)
	}
	return pages, nil
}
