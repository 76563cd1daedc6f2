// Package anomaly implements the Internal-Transfer and Statistical Anomaly
// detectors (spec.md §4.12).
package anomaly

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/sebascrugu/finanzas-tracker-go/internal/domain"
)

// cardPaymentPattern is one regex family for a credit-card-payment
// descriptor, with its base confidence (spec.md §4.12, ported 1:1 from
// `PATRONES_PAGO_TARJETA`).
type cardPaymentPattern struct {
	re         *regexp.Regexp
	confidence int
}

var cardPaymentPatterns = []cardPaymentPattern{
	{regexp.MustCompile(`(?i)PAGO\s+(?:A\s+)?(?:SU\s+)?TARJETA\s+(?:DE\s+)?(?:CREDITO)?`), 95},
	{regexp.MustCompile(`(?i)PAGO\s+T\.?C\.?\s*(?:\d{4})?`), 90},
	{regexp.MustCompile(`(?i)PAG\.?\s*T\.?C\.?`), 85},
	{regexp.MustCompile(`(?i)PAGO\s+VISA\s*(?:\d{4})?`), 90},
	{regexp.MustCompile(`(?i)PAGO\s+MASTERCARD\s*(?:\d{4})?`), 90},
	{regexp.MustCompile(`(?i)PAGO\s+AMEX\s*(?:\d{4})?`), 90},
	{regexp.MustCompile(`(?i)PAGO\s+(?:DE\s+)?CREDITO`), 85},
	{regexp.MustCompile(`(?i)ABONO\s+(?:A\s+)?TARJETA`), 80},
	{regexp.MustCompile(`(?i)TRANSFERENCIA\s+PAGO\s+TC`), 85},
	{regexp.MustCompile(`(?i)PAG\s+TARJ\s+CRED`), 85},
}

// internalTransferPatterns are non-card-payment internal-transfer families
// (spec.md §4.12, ported 1:1 from `PATRONES_TRANSFERENCIA_INTERNA`).
var internalTransferPatterns = []cardPaymentPattern{
	{regexp.MustCompile(`(?i)TRANSF(?:ERENCIA)?\s+(?:A\s+)?CTA\s+PROPIA`), 95},
	{regexp.MustCompile(`(?i)TRANSF(?:ERENCIA)?\s+ENTRE\s+CUENTAS`), 90},
	{regexp.MustCompile(`(?i)TRASLADO\s+(?:A\s+)?(?:MI\s+)?CUENTA`), 85},
	{regexp.MustCompile(`(?i)AHORRO\s+PROGRAMADO`), 90},
	{regexp.MustCompile(`(?i)INVERSION\s+AUTOMATICA`), 85},
}

var last4Re = regexp.MustCompile(`(?:\*{4}|\d{4}[-\s]?)(\d{4})`)

const cardBalanceMatchTolerance = 1000 // CRC, mirrors the original's heuristic fallback

// CardPaymentMatch is a detected credit-card-payment descriptor.
type CardPaymentMatch struct {
	SpecialType string // always "card-payment"
	Confidence  int
	Last4       *string
	Card        *domain.Card // resolved card, if any
}

// DetectCardPayment checks descriptor against the card-payment family and,
// if matched, tries to resolve the paid-off card by trailing digits, falling
// back to "balance is close to this amount" when digits are absent.
func DetectCardPayment(descriptor string, amount decimal.Decimal, cards []*domain.Card) *CardPaymentMatch {
	upper := strings.ToUpper(descriptor)

	for _, p := range cardPaymentPatterns {
		if !p.re.MatchString(upper) {
			continue
		}

		last4 := extractLast4(upper)
		confidence := p.confidence
		var card *domain.Card

		if last4 != nil {
			card = findByLast4(cards, *last4)
			if card != nil {
				confidence = minInt(100, confidence+5)
			} else {
				confidence = maxInt(0, confidence-10)
			}
		} else {
			card = matchByBalance(cards, amount)
		}

		return &CardPaymentMatch{
			SpecialType: "card-payment",
			Confidence:  confidence,
			Last4:       last4,
			Card:        card,
		}
	}

	return nil
}

// TransferMatch is a detected non-card-payment internal-transfer descriptor.
type TransferMatch struct {
	SpecialType string // "internal-transfer"
	Confidence  int
}

// DetectInternalTransfer checks descriptor against the internal-transfer
// family (other than card payments, which DetectCardPayment already covers).
func DetectInternalTransfer(descriptor string) *TransferMatch {
	upper := strings.ToUpper(descriptor)
	for _, p := range internalTransferPatterns {
		if p.re.MatchString(upper) {
			return &TransferMatch{SpecialType: "internal-transfer", Confidence: p.confidence}
		}
	}
	return nil
}

func extractLast4(upper string) *string {
	m := last4Re.FindStringSubmatch(upper)
	if m == nil {
		return nil
	}
	return &m[1]
}

func findByLast4(cards []*domain.Card, last4 string) *domain.Card {
	for _, c := range cards {
		if c.Last4Digits == last4 {
			return c
		}
	}
	return nil
}

// matchByBalance pairs a digit-less card payment with whichever card's
// running balance is within tolerance of the payment amount (spec.md §4.12
// "secondary heuristic").
func matchByBalance(cards []*domain.Card, amount decimal.Decimal) *domain.Card {
	for _, c := range cards {
		if c.RunningBalance.IsZero() {
			continue
		}
		diff := c.RunningBalance.Sub(amount).Abs()
		if diff.LessThan(decimal.NewFromInt(cardBalanceMatchTolerance)) {
			return c
		}
	}
	return nil
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
