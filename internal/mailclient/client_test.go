package mailclient

import "testing"

func TestIsTransactionSubject_ExcludesMarketing(t *testing.T) {
	cases := []string{
		"¡Gánate un premio con tu tarjeta BAC!",
		"Promoción especial de fin de año",
		"Cambio de PIN exitoso",
	}
	for _, subject := range cases {
		if isTransactionSubject(subject, "alerta@baccredomatic.com", "") {
			t.Errorf("isTransactionSubject(%q) = true, want false (marketing)", subject)
		}
	}
}

func TestIsTransactionSubject_IncludesTransactions(t *testing.T) {
	cases := []string{
		"Notificación de transacción - Compra por $45.00",
		"Aviso de débito en su cuenta",
		"Notificacion de transferencia SINPE recibida",
	}
	for _, subject := range cases {
		if !isTransactionSubject(subject, "notificacion@notificacionesbaccr.com", "") {
			t.Errorf("isTransactionSubject(%q) = false, want true (transaction)", subject)
		}
	}
}

func TestIsTransactionSubject_RejectsWhenNeitherListMatches(t *testing.T) {
	if isTransactionSubject("Mantenimiento programado del sistema", "info@baccredomatic.net", "") {
		t.Error("expected false when subject matches neither list")
	}
}

func TestIsTransactionSubject_NotificationAddressBypassesExclusionButNotInclusion(t *testing.T) {
	// Exclusion keyword present, but sender is the notification address: must
	// still require an inclusion-list match, and this subject has none.
	if isTransactionSubject("Cambio de clave realizado", "alerts@bank.example.com", "alerts@bank.example.com") {
		t.Error("bypassing exclusion must not bypass the inclusion-list requirement")
	}

	// Exclusion keyword AND inclusion keyword both present; notification
	// address should let the inclusion match through.
	if !isTransactionSubject("Cambio de clave - cargo aplicado", "alerts@bank.example.com", "alerts@bank.example.com") {
		t.Error("expected true: notification address bypasses exclusion, inclusion keyword present")
	}
}

func TestIsTransactionSubject_NonNotificationSenderStillExcluded(t *testing.T) {
	if isTransactionSubject("Cambio de clave - cargo aplicado", "someone-else@bank.example.com", "alerts@bank.example.com") {
		t.Error("a non-notification sender must not bypass exclusion")
	}
}
