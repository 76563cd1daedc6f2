package emailparser

import (
	"strings"

	"github.com/sebascrugu/finanzas-tracker-go/internal/domain"
)

// popularSenders mirrors original_source's SENDER_TO_BANK entries for
// Banco Popular.
var popularSenders = map[string]bool{
	"infopersonal@bancopopular.fi.cr": true,
	"cajero@bancopopular.fi.cr":       true,
}

// PopularParser parses Banco Popular notification emails. Structurally the
// same extraction as BACParser (amount/date/merchant regexes over the
// flattened body), since both banks' notifications follow the same
// "purchase/transfer/withdrawal" shape (original_source keeps both parsers
// structurally parallel); kept distinct so each bank's regex and sender
// table can drift independently.
type PopularParser struct {
	inner *BACParser
}

func NewPopularParser() *PopularParser {
	return &PopularParser{inner: &BACParser{}}
}

func (p *PopularParser) CanParse(fromAddress string) bool {
	return popularSenders[strings.ToLower(fromAddress)]
}

func (p *PopularParser) Parse(msg domain.RawMessage) (*domain.ParsedTransaction, error) {
	parsed, err := p.inner.Parse(msg)
	if err != nil || parsed == nil {
		return parsed, err
	}
	parsed.Bank = "Banco Popular"
	return parsed, nil
}
