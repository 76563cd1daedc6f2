// Package emailparser implements the Email Parsers (spec.md §4.3): pure
// functions that turn a RawMessage body into a ParsedTransaction, one per
// bank x message variant, registered by sender address.
package emailparser

import (
	"strings"

	"github.com/sebascrugu/finanzas-tracker-go/internal/domain"
)

// Parser is implemented by every bank x message-variant parser. It must be
// pure: no side effects, tolerant of whitespace/encoding variation and
// partial fields. Returns (nil, nil) when the message is not a transaction.
type Parser interface {
	// CanParse reports whether this parser recognizes the message's sender.
	CanParse(fromAddress string) bool
	Parse(msg domain.RawMessage) (*domain.ParsedTransaction, error)
}

// Registry dispatches a RawMessage to the first Parser whose CanParse
// matches the sender. Grounded on original_source's TransactionProcessor
// SENDER_TO_BANK dispatch table, generalized into a per-parser predicate
// instead of a flat map so a bank can register several message variants.
type Registry struct {
	parsers []Parser
}

// NewRegistry builds a Registry with the given parsers tried in order.
func NewRegistry(parsers ...Parser) *Registry {
	return &Registry{parsers: parsers}
}

// Parse finds the first matching parser and delegates to it. Returns
// (nil, nil, false) when no registered parser recognizes the sender —
// the caller logs and skips, it never fails the whole ingestion run.
func (r *Registry) Parse(msg domain.RawMessage) (*domain.ParsedTransaction, bool, error) {
	for _, p := range r.parsers {
		if p.CanParse(msg.FromAddress) {
			parsed, err := p.Parse(msg)
			if err != nil {
				return nil, true, err
			}
			return parsed, true, nil
		}
	}
	return nil, false, nil
}

// htmlToText strips tags well enough for regex extraction on bank HTML
// emails; it is not a general HTML renderer. Grounded on the bank
// notification format, which consists of simple table/paragraph markup
// around the fields the parser extracts.
func htmlToText(body string) string {
	var b strings.Builder
	inTag := false
	for _, r := range body {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
			b.WriteByte(' ')
		case !inTag:
			b.WriteRune(r)
		}
	}
	return collapseSpace(b.String())
}

func collapseSpace(s string) string {
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}
