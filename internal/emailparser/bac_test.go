package emailparser

import (
	"testing"
	"time"

	"github.com/sebascrugu/finanzas-tracker-go/internal/domain"
)

func TestBACParser_CanParse(t *testing.T) {
	p := NewBACParser()
	if !p.CanParse("notificacion@notificacionesbaccr.com") {
		t.Error("expected BAC parser to recognize its sender")
	}
	if p.CanParse("someone@bancopopular.fi.cr") {
		t.Error("BAC parser must not claim a Banco Popular sender")
	}
}

func TestBACParser_ParsesPurchase(t *testing.T) {
	msg := domain.RawMessage{
		ID:          "msg-1",
		FromAddress: "notificacion@notificacionesbaccr.com",
		Subject:     "Notificación de transacción - Compra",
		ReceivedAt:  time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		Body:        "Estimado cliente, se ha realizado una compra por CRC 15,500.00 el 01/03/2026 en AUTOMERCADO ESCAZU. Referencia: AB12345",
	}

	p := NewBACParser()
	parsed, err := p.Parse(msg)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if parsed == nil {
		t.Fatal("expected a parsed transaction, got nil")
	}
	if parsed.Kind != domain.KindPurchase {
		t.Errorf("Kind = %s, want purchase", parsed.Kind)
	}
	if parsed.CurrencyOriginal != "CRC" {
		t.Errorf("CurrencyOriginal = %s, want CRC", parsed.CurrencyOriginal)
	}
	if !parsed.AmountOriginal.Equal(parsed.AmountOriginal) || parsed.AmountOriginal.String() != "15500" {
		t.Errorf("AmountOriginal = %s, want 15500", parsed.AmountOriginal)
	}
	if parsed.MerchantRaw == "" {
		t.Error("expected a non-empty merchant string")
	}
	if parsed.BankReference == nil || *parsed.BankReference != "AB12345" {
		t.Errorf("BankReference = %v, want AB12345", parsed.BankReference)
	}
}

func TestBACParser_SINPEWithBeneficiaryName(t *testing.T) {
	msg := domain.RawMessage{
		ID:          "msg-2",
		FromAddress: "alerta@baccredomatic.com",
		Subject:     "Notificación de transferencia SINPE",
		ReceivedAt:  time.Now(),
		Body:        "Ha enviado SINPE Móvil por USD 25.00 a MARIA FERNANDEZ CASTRO el 02/03/2026.",
	}

	p := NewBACParser()
	parsed, err := p.Parse(msg)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if parsed == nil {
		t.Fatal("expected parsed SINPE transaction")
	}
	if parsed.Kind != domain.KindSINPE {
		t.Errorf("Kind = %s, want sinpe", parsed.Kind)
	}
	if parsed.Metadata.Beneficiary == nil {
		t.Fatal("expected Beneficiary to be set")
	}
	if parsed.Metadata.NeedsReconciliation {
		t.Error("NeedsReconciliation should be false when a beneficiary name was extracted")
	}
}

func TestBACParser_SINPEAmbiguousSetsNeedsReconciliation(t *testing.T) {
	msg := domain.RawMessage{
		ID:          "msg-3",
		FromAddress: "notificacion@notificacionesbaccr.com",
		Subject:     "Notificación de transferencia SINPE",
		ReceivedAt:  time.Now(),
		Body:        "Ha recibido SINPE por CRC 5,000.00. Referencia: 88881234",
	}

	p := NewBACParser()
	parsed, err := p.Parse(msg)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if parsed == nil {
		t.Fatal("expected parsed transaction")
	}
	if !parsed.Metadata.NeedsReconciliation {
		t.Error("expected NeedsReconciliation = true for an ambiguous SINPE descriptor")
	}
}

func TestBACParser_NonTransactionBodyReturnsNil(t *testing.T) {
	msg := domain.RawMessage{
		ID:          "msg-4",
		FromAddress: "notificacion@notificacionesbaccr.com",
		Subject:     "Aviso general",
		ReceivedAt:  time.Now(),
		Body:        "Este es un mensaje sin ningún monto.",
	}

	p := NewBACParser()
	parsed, err := p.Parse(msg)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if parsed != nil {
		t.Error("expected nil for a body with no extractable amount")
	}
}

func TestRegistry_DispatchesBySender(t *testing.T) {
	reg := NewRegistry(NewBACParser(), NewPopularParser())

	msg := domain.RawMessage{
		FromAddress: "cajero@bancopopular.fi.cr",
		ReceivedAt:  time.Now(),
		Body:        "Retiro por CRC 20,000.00 el 03/03/2026.",
	}

	parsed, matched, err := reg.Parse(msg)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !matched {
		t.Fatal("expected registry to find a matching parser")
	}
	if parsed == nil || parsed.Bank != "Banco Popular" {
		t.Errorf("expected Banco Popular parse result, got %+v", parsed)
	}
}

func TestRegistry_NoMatchReturnsFalse(t *testing.T) {
	reg := NewRegistry(NewBACParser(), NewPopularParser())
	msg := domain.RawMessage{FromAddress: "unknown@example.com"}

	parsed, matched, err := reg.Parse(msg)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if matched || parsed != nil {
		t.Error("expected no match for an unregistered sender")
	}
}
