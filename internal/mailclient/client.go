// Package mailclient implements the Mail Fetcher (spec.md §4.1): it pulls
// raw messages from a remote HTTP mail provider and applies the
// subject-level marketing filter, but never parses message bodies —
// that's the Email Parsers' job (internal/emailparser).
package mailclient

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/sebascrugu/finanzas-tracker-go/internal/domain"
)

// excludeKeywords reject a subject outright: marketing, promotions, and
// account-configuration notices are never transactions.
var excludeKeywords = []string{
	"promoción", "promocion", "oferta", "descuento", "ganate", "gánate",
	"premio", "sorteo", "evento", "renueva", "buenas noticias", "marchamo",
	"pick up", "gamer", "inscripción de promoción", "inscripcion de promocion",
	"presente en su supermercado", "doble oportunidad", "festejamos",
	"cambio de pin", "cambio de clave", "afiliación", "afiliacion",
	"desafiliación", "desafiliacion",
}

// includeKeywords are the only subjects accepted once past exclusion.
var includeKeywords = []string{
	"notificación de transacción", "notificacion de transaccion",
	"notificación de transferencia", "notificacion de transferencia",
	"compra", "pago", "cargo", "débito", "debito", "abono", "retiro",
	"depósito", "deposito", "consumo",
}

// isTransactionSubject applies the two-list rule from spec.md §4.1.
// notificationAddress bypasses the exclusion heuristic (but still requires
// an inclusion-list match).
func isTransactionSubject(subject, fromAddress, notificationAddress string) bool {
	lower := strings.ToLower(subject)

	bypassExclusion := notificationAddress != "" && strings.EqualFold(fromAddress, notificationAddress)
	if !bypassExclusion {
		for _, kw := range excludeKeywords {
			if strings.Contains(lower, kw) {
				return false
			}
		}
	}

	for _, kw := range includeKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// Config configures the Client.
type Config struct {
	BaseURL             string
	Token               string
	NotificationAddress string
	Timeout             time.Duration
	RetryAttempts       int
	// RequestsPerSecond caps outbound calls to the mail provider.
	RequestsPerSecond float64
}

// Client fetches raw messages from the configured mail provider.
type Client struct {
	cfg        Config
	httpClient *http.Client
	limiter    *rate.Limiter
}

// New builds a Client. A nil or zero-value RequestsPerSecond disables
// throttling.
func New(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RetryAttempts == 0 {
		cfg.RetryAttempts = 3
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    limiter,
	}
}

// wireMessage mirrors the provider's JSON field names (spec.md §6):
// id, subject, from.emailAddress.address, receivedDateTime, body.content,
// body.contentType.
type wireMessage struct {
	ID               string `json:"id"`
	Subject          string `json:"subject"`
	ReceivedDateTime string `json:"receivedDateTime"`
	From             struct {
		EmailAddress struct {
			Address string `json:"address"`
		} `json:"emailAddress"`
	} `json:"from"`
	Body struct {
		ContentType string `json:"contentType"`
		Content     string `json:"content"`
	} `json:"body"`
	HasAttachments bool              `json:"hasAttachments"`
	Attachments    []wireAttachment  `json:"attachments,omitempty"`
	Headers        map[string]string `json:"internetMessageHeaders,omitempty"`
}

type wireAttachment struct {
	Name            string `json:"name"`
	ContentType     string `json:"contentType"`
	ContentBytes    string `json:"contentBytes"` // base64
}

type wireResponse struct {
	Value []wireMessage `json:"value"`
}

// Fetch pulls messages received since the given time whose sender is in
// senderAllowlist (if non-empty), applies the subject marketing filter, and
// returns the survivors as RawMessage. Retries on network errors with
// exponential backoff (spec.md §4.1: at least 3 attempts).
func (c *Client) Fetch(ctx context.Context, since time.Time, senderAllowlist []string) ([]domain.RawMessage, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	body, err := c.fetchWithRetry(ctx, since, senderAllowlist)
	if err != nil {
		return nil, err
	}

	var wire wireResponse
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, fmt.Errorf("mailclient: decoding provider response: %w", err)
	}

	out := make([]domain.RawMessage, 0, len(wire.Value))
	for _, m := range wire.Value {
		if !isTransactionSubject(m.Subject, m.From.EmailAddress.Address, c.cfg.NotificationAddress) {
			continue
		}
		received, err := time.Parse(time.RFC3339, m.ReceivedDateTime)
		if err != nil {
			log.Warn().Str("messageId", m.ID).Err(err).Msg("mailclient: unparseable receivedDateTime, skipping")
			continue
		}
		out = append(out, domain.RawMessage{
			ID:              m.ID,
			Subject:         m.Subject,
			FromAddress:     m.From.EmailAddress.Address,
			ReceivedAt:      received,
			BodyContentType: m.Body.ContentType,
			Body:            m.Body.Content,
			Headers:         m.Headers,
			Attachments:     decodeAttachments(m.Attachments),
		})
	}
	return out, nil
}

func decodeAttachments(wire []wireAttachment) []domain.RawAttachment {
	if len(wire) == 0 {
		return nil
	}
	out := make([]domain.RawAttachment, 0, len(wire))
	for _, a := range wire {
		data, err := base64.StdEncoding.DecodeString(a.ContentBytes)
		if err != nil {
			continue
		}
		out = append(out, domain.RawAttachment{
			Filename:    a.Name,
			ContentType: a.ContentType,
			Data:        data,
		})
	}
	return out
}

// fetchWithRetry issues the HTTP request, retrying network errors and 5xx
// HTTP statuses with exponential backoff; 401/403 and other 4xx statuses are
// returned immediately.
func (c *Client) fetchWithRetry(ctx context.Context, since time.Time, senderAllowlist []string) ([]byte, error) {
	var lastErr error
	backoff := 500 * time.Millisecond

	for attempt := 0; attempt < c.cfg.RetryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		body, status, err := c.doRequest(ctx, since, senderAllowlist)
		if err != nil {
			lastErr = err
			continue
		}
		if status == http.StatusUnauthorized || status == http.StatusForbidden {
			return nil, fmt.Errorf("%w: status %d", domain.ErrMailAuthFailed, status)
		}
		if status >= 500 {
			lastErr = fmt.Errorf("mailclient: provider returned status %d", status)
			continue
		}
		if status >= 400 {
			return nil, fmt.Errorf("mailclient: provider returned status %d", status)
		}
		return body, nil
	}
	return nil, fmt.Errorf("%w: %v", domain.ErrMailUnreachable, lastErr)
}

func (c *Client) doRequest(ctx context.Context, since time.Time, senderAllowlist []string) ([]byte, int, error) {
	url := fmt.Sprintf("%s/me/messages?%s", c.cfg.BaseURL, buildQuery(since, senderAllowlist))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	buf := make([]byte, 0, 4096)
	chunk := make([]byte, 4096)
	for {
		n, rerr := resp.Body.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
		}
		if rerr != nil {
			break
		}
	}
	return buf, resp.StatusCode, nil
}

func buildQuery(since time.Time, senderAllowlist []string) string {
	filter := fmt.Sprintf("receivedDateTime ge %s", since.UTC().Format(time.RFC3339))
	if len(senderAllowlist) > 0 {
		clauses := make([]string, len(senderAllowlist))
		for i, s := range senderAllowlist {
			clauses[i] = fmt.Sprintf("from/emailAddress/address eq '%s'", s)
		}
		filter = filter + " and (" + strings.Join(clauses, " or ") + ")"
	}
	return "$filter=" + urlEscape(filter) + "&$select=" + urlEscape("id,subject,from,receivedDateTime,body,hasAttachments")
}

func urlEscape(s string) string {
	// Minimal escaping sufficient for the characters OData filters use.
	r := strings.NewReplacer(" ", "%20", "'", "%27")
	return r.Replace(s)
}
