package emailparser

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sebascrugu/finanzas-tracker-go/internal/domain"
)

// bacSenders mirrors original_source's TransactionProcessor.SENDER_TO_BANK
// for BAC Credomatic.
var bacSenders = map[string]bool{
	"notificacion@notificacionesbaccr.com": true,
	"notificaciones@bacnet.net":            true,
	"notificaciones@notificacionesbaccr.com": true,
	"alerta@baccredomatic.com":             true,
}

var (
	bacAmountRe = regexp.MustCompile(`(?i)(USD|CRC|₡|\$)\s*([\d,]+\.\d{2})`)
	bacDateRe   = regexp.MustCompile(`(\d{2}[/-]\d{2}[/-]\d{4})`)
	bacMerchantRe = regexp.MustCompile(`(?i)(?:en|comercio)[:\s]+([A-Z0-9ÁÉÍÓÚÑ\.\*\- ]{3,60})`)
	bacRefRe      = regexp.MustCompile(`(?i)referencia[:\s]+(\w+)`)
	bacSinpeRe    = regexp.MustCompile(`(?i)sinpe\s+m[oó]vil.*?a\s+([A-ZÁÉÍÓÚÑ ]{3,40})`)
	bacPhoneRe    = regexp.MustCompile(`\b(\d{4}-?\d{4})\b`)
)

// BACParser parses BAC Credomatic transaction-notification emails. Grounded
// on original_source's TransactionProcessor dispatch and the field
// extraction implied by internal_transfer_detector.py's downstream
// metadata fields (beneficiario, concepto, subtipo, referencia).
type BACParser struct{}

func NewBACParser() *BACParser { return &BACParser{} }

func (p *BACParser) CanParse(fromAddress string) bool {
	return bacSenders[strings.ToLower(fromAddress)]
}

func (p *BACParser) Parse(msg domain.RawMessage) (*domain.ParsedTransaction, error) {
	text := msg.Body
	if strings.Contains(strings.ToLower(msg.BodyContentType), "html") {
		text = htmlToText(msg.Body)
	}

	amount, currency, ok := extractAmount(text)
	if !ok {
		return nil, nil
	}

	txnTime := extractDate(text, msg.ReceivedAt)

	subjectLower := strings.ToLower(msg.Subject)
	bodyLower := strings.ToLower(text)

	parsed := &domain.ParsedTransaction{
		Bank:             "BAC",
		AmountOriginal:   amount,
		CurrencyOriginal: currency,
		TxnTime:          txnTime,
		SourceMessageID:  msg.ID,
	}

	if ref := firstSubmatch(bacRefRe, text); ref != "" {
		parsed.BankReference = &ref
		parsed.Metadata.BankReference = &ref
	}

	switch {
	case strings.Contains(subjectLower, "sinpe") || strings.Contains(bodyLower, "sinpe"):
		p.fillSINPE(parsed, text)
	case strings.Contains(subjectLower, "transferencia") || strings.Contains(bodyLower, "transferencia"):
		parsed.Kind = domain.KindTransfer
		parsed.MerchantRaw = firstSubmatch(bacMerchantRe, text)
	case strings.Contains(subjectLower, "retiro") || strings.Contains(bodyLower, "retiro"):
		parsed.Kind = domain.KindWithdrawal
		parsed.MerchantRaw = "RETIRO"
	case strings.Contains(subjectLower, "dep") || strings.Contains(bodyLower, "depósito") || strings.Contains(bodyLower, "deposito") || strings.Contains(bodyLower, "abono"):
		parsed.Kind = domain.KindDeposit
		parsed.MerchantRaw = firstSubmatch(bacMerchantRe, text)
		if parsed.MerchantRaw == "" {
			parsed.MerchantRaw = "DEPOSITO"
		}
	default:
		// compra, cargo, débito, consumo all land here as a purchase.
		parsed.Kind = domain.KindPurchase
		parsed.MerchantRaw = firstSubmatch(bacMerchantRe, text)
		if parsed.MerchantRaw == "" {
			// Some notifications put the merchant right after the amount
			// with no "en"/"comercio" label; fall back to the tail of the
			// first line as a best-effort merchant string.
			parsed.MerchantRaw = fallbackMerchant(text)
		}
	}

	if parsed.MerchantRaw == "" {
		return nil, nil
	}

	return parsed, nil
}

// fillSINPE handles SINPE Móvil notifications, extracting the beneficiary
// name and, when present, a phone-style reference (spec.md §4.3: ambiguous
// SINPE descriptions where the merchant field is only a numeric reference
// set needs_reconciliation = true).
func (p *BACParser) fillSINPE(parsed *domain.ParsedTransaction, text string) {
	parsed.Kind = domain.KindSINPE
	subtype := "sinpe_enviado"
	parsed.Metadata.Subtype = &subtype

	beneficiary := firstSubmatch(bacSinpeRe, text)
	beneficiary = strings.TrimSpace(beneficiary)

	if beneficiary != "" {
		b := beneficiary
		parsed.Metadata.Beneficiary = &b
		parsed.MerchantRaw = "SINPE " + beneficiary
	} else if phone := firstSubmatch(bacPhoneRe, text); phone != "" {
		// No name extracted, only a numeric reference: ambiguous, flag for
		// later user clarification.
		parsed.MerchantRaw = "SINPE " + phone
		parsed.Metadata.NeedsReconciliation = true
	} else {
		parsed.MerchantRaw = "SINPE"
		parsed.Metadata.NeedsReconciliation = true
	}

	if strings.Contains(strings.ToLower(text), "propia") || strings.Contains(strings.ToLower(text), "cta propia") {
		parsed.Metadata.IsOwnTransfer = true
	}
}

func extractAmount(text string) (decimal.Decimal, string, bool) {
	m := bacAmountRe.FindStringSubmatch(text)
	if m == nil {
		return decimal.Zero, "", false
	}
	currency := normalizeCurrency(m[1])
	raw := strings.ReplaceAll(m[2], ",", "")
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, "", false
	}
	return amount, currency, true
}

func normalizeCurrency(sym string) string {
	switch strings.ToUpper(sym) {
	case "USD", "$":
		return "USD"
	default:
		return "CRC"
	}
}

// extractDate parses a DD/MM/YYYY or DD-MM-YYYY date from the body; falls
// back to the message's received timestamp when no date is found (some
// notifications omit an explicit transaction date and rely on delivery
// time).
func extractDate(text string, fallback time.Time) time.Time {
	m := bacDateRe.FindStringSubmatch(text)
	if m == nil {
		return fallback
	}
	sep := "/"
	if strings.Contains(m[1], "-") {
		sep = "-"
	}
	parts := strings.Split(m[1], sep)
	if len(parts) != 3 {
		return fallback
	}
	day, err1 := strconv.Atoi(parts[0])
	month, err2 := strconv.Atoi(parts[1])
	year, err3 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return fallback
	}
	return time.Date(year, time.Month(month), day, 12, 0, 0, 0, time.UTC)
}

func firstSubmatch(re *regexp.Regexp, text string) string {
	m := re.FindStringSubmatch(text)
	if m == nil || len(m) < 2 {
		return ""
	}
	return strings.TrimSpace(m[len(m)-1])
}

// fallbackMerchant takes the first non-empty line of the body as a
// best-effort merchant string when no labeled field is present.
func fallbackMerchant(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if len(line) >= 3 {
			if len(line) > 60 {
				line = line[:60]
			}
			return line
		}
	}
	return ""
}
