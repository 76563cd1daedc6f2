package llmclient

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/sebascrugu/finanzas-tracker-go/internal/domain"
)

func TestParseCategorizeReply_ValidJSON(t *testing.T) {
	result, err := parseCategorizeReply(`{"subcategory":"Groceries","confidence":85}`)
	if err != nil {
		t.Fatalf("parseCategorizeReply: %v", err)
	}
	if result.SubcategoryName != "Groceries" {
		t.Errorf("SubcategoryName = %q, want Groceries", result.SubcategoryName)
	}
	if result.Confidence != 85 {
		t.Errorf("Confidence = %d, want 85", result.Confidence)
	}
}

func TestParseCategorizeReply_StripsCodeFence(t *testing.T) {
	result, err := parseCategorizeReply("```json\n{\"subcategory\":\"Dining\",\"confidence\":70}\n```")
	if err != nil {
		t.Fatalf("parseCategorizeReply: %v", err)
	}
	if result.SubcategoryName != "Dining" {
		t.Errorf("SubcategoryName = %q, want Dining", result.SubcategoryName)
	}
}

func TestParseCategorizeReply_RejectsMalformedJSON(t *testing.T) {
	_, err := parseCategorizeReply("I think this is groceries")
	if err == nil {
		t.Fatal("expected error for non-JSON reply")
	}
	if !isMalformedReply(err) {
		t.Errorf("expected ErrLLMMalformedReply, got %v", err)
	}
}

func TestParseCategorizeReply_RejectsOutOfRangeConfidence(t *testing.T) {
	_, err := parseCategorizeReply(`{"subcategory":"Groceries","confidence":150}`)
	if err == nil {
		t.Fatal("expected error for out-of-range confidence")
	}
	if !isMalformedReply(err) {
		t.Errorf("expected ErrLLMMalformedReply, got %v", err)
	}
}

func TestParseCategorizeReply_RejectsEmptySubcategory(t *testing.T) {
	_, err := parseCategorizeReply(`{"subcategory":"","confidence":50}`)
	if err == nil {
		t.Fatal("expected error for empty subcategory")
	}
}

func TestStripCodeFence_PlainJSONPassesThrough(t *testing.T) {
	got := stripCodeFence(`{"a":1}`)
	if got != `{"a":1}` {
		t.Errorf("stripCodeFence = %q, want unchanged", got)
	}
}

func TestBuildCategorizePrompt_IncludesOnlyNamesAndDescriptions(t *testing.T) {
	subs := []*domain.Subcategory{
		{ID: 1, Name: "Groceries", Description: "Supermarkets and food stores"},
		{ID: 2, Name: "Dining", Description: "Restaurants and cafes"},
	}
	prompt := buildCategorizePrompt("WALMART", decimal.NewFromFloat(1500.50), subs)

	if !strings.Contains(prompt, "WALMART") {
		t.Error("expected prompt to include merchant")
	}
	if !strings.Contains(prompt, "1500.5") {
		t.Error("expected prompt to include amount")
	}
	if !strings.Contains(prompt, "Groceries: Supermarkets and food stores") {
		t.Error("expected prompt to include subcategory name and description")
	}
	if !strings.Contains(prompt, "Dining: Restaurants and cafes") {
		t.Error("expected prompt to include second subcategory")
	}
}

func isMalformedReply(err error) bool {
	return err != nil && strings.Contains(err.Error(), domain.ErrLLMMalformedReply.Error())
}
