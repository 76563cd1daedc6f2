// Package llmclient wraps the Anthropic Messages API for the two vendor-LLM
// call sites spec.md names: PDF row extraction (§4.4) and the last layer of
// the categorization cascade (§4.6 step 6). Both calls send only the
// minimum necessary fields — never raw user PII — and both callers handle
// provider errors by falling through rather than failing the pipeline.
package llmclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/sebascrugu/finanzas-tracker-go/internal/domain"
)

// Client wraps the Anthropic SDK client with the model and limits this
// system uses for both call sites.
type Client struct {
	inner     anthropic.Client
	model     anthropic.Model
	maxTokens int64
}

// New builds a Client. model is read from config (spec.md §6: LLM provider
// is treated as swappable via configuration).
func New(apiKey, model string) *Client {
	return &Client{
		inner:     anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:     anthropic.Model(model),
		maxTokens: 1024,
	}
}

// ExtractStatementRows implements pdfparser.LLMRowExtractor: sends a page
// of statement text and returns the model's raw text reply, which the
// caller parses and validates as JSON (spec.md §4.4: rejected if it
// doesn't conform to the row schema, never raised as a hard error).
func (c *Client) ExtractStatementRows(ctx context.Context, prompt string) (string, error) {
	msg, err := c.inner.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", wrapCallError(err)
	}
	return firstTextBlock(msg), nil
}

// CategorizationSuggestion is the cascade's step-6 LLM fallback result
// (spec.md §4.6 step 6).
type CategorizationSuggestion struct {
	SubcategoryName string
	Confidence      int // 0-100
}

// categorizeResponse is the JSON shape the prompt asks the model to reply
// with.
type categorizeResponse struct {
	Subcategory string `json:"subcategory"`
	Confidence  int    `json:"confidence"`
}

// Categorize sends the raw merchant string, amount, and the available
// subcategory names/descriptions (never other user data, per spec.md §4.6
// step 6) and asks the model to pick one. Returns an error on any failure
// — quota exhaustion, malformed JSON, network error — so the cascade can
// fall through to step 7 without distinguishing the cause.
func (c *Client) Categorize(ctx context.Context, merchant string, amount decimal.Decimal, subcategories []*domain.Subcategory) (*CategorizationSuggestion, error) {
	prompt := buildCategorizePrompt(merchant, amount, subcategories)

	msg, err := c.inner.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: 256,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return nil, wrapCallError(err)
	}

	return parseCategorizeReply(firstTextBlock(msg))
}

// parseCategorizeReply validates the model's raw reply against the
// expected schema. Split out from Categorize so the parsing/validation
// logic can be exercised without a live API call.
func parseCategorizeReply(raw string) (*CategorizationSuggestion, error) {
	raw = stripCodeFence(raw)

	var parsed categorizeResponse
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrLLMMalformedReply, err)
	}
	if parsed.Subcategory == "" {
		return nil, fmt.Errorf("%w: empty subcategory", domain.ErrLLMMalformedReply)
	}
	if parsed.Confidence < 0 || parsed.Confidence > 100 {
		return nil, fmt.Errorf("%w: confidence %d out of range", domain.ErrLLMMalformedReply, parsed.Confidence)
	}

	return &CategorizationSuggestion{
		SubcategoryName: parsed.Subcategory,
		Confidence:      parsed.Confidence,
	}, nil
}

func buildCategorizePrompt(merchant string, amount decimal.Decimal, subcategories []*domain.Subcategory) string {
	var b strings.Builder
	b.WriteString("Classify the following transaction into exactly one of the listed subcategories. ")
	b.WriteString("Respond with ONLY a JSON object: {\"subcategory\":\"<name>\",\"confidence\":<0-100>}.\n\n")
	fmt.Fprintf(&b, "Merchant: %s\nAmount: %s\n\nSubcategories:\n", merchant, amount.String())
	for _, s := range subcategories {
		fmt.Fprintf(&b, "- %s: %s\n", s.Name, s.Description)
	}
	return b.String()
}

func firstTextBlock(msg *anthropic.Message) string {
	for _, block := range msg.Content {
		if block.Type == "text" {
			return block.Text
		}
	}
	return ""
}

// stripCodeFence removes a ```json ... ``` wrapper some models add despite
// being asked for raw JSON.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(s, "```")
	}
	return strings.TrimSpace(s)
}

// wrapCallError distinguishes quota/rate-limit failures from other
// transport errors so callers (and logs) can tell "LLM said no" apart from
// "LLM unreachable" — both fall through to the next cascade layer
// identically, but only one is worth alerting on if it persists.
func wrapCallError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) && (apiErr.StatusCode == 429 || apiErr.StatusCode == 529) {
		log.Warn().Err(err).Msg("llmclient: provider quota or rate limit hit, falling through")
		return fmt.Errorf("%w: %v", domain.ErrLLMQuotaExceeded, err)
	}
	return fmt.Errorf("llmclient: provider call failed: %w", err)
}
