package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/sebascrugu/finanzas-tracker-go/internal/domain"
	"github.com/sebascrugu/finanzas-tracker-go/internal/testutil"
)

func TestListStatements_RequiresProfile(t *testing.T) {
	e := echo.New()
	repo := testutil.NewMockBankStatementRepository()
	h := NewStatementHandler(repo)

	req := httptest.NewRequest(http.MethodGet, "/statements", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.ListStatements(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestListStatements_ScopedToProfile(t *testing.T) {
	e := echo.New()
	repo := testutil.NewMockBankStatementRepository()
	repo.AddStatement(&domain.BankStatement{ID: 1, ProfileID: "profile-1"})
	repo.AddStatement(&domain.BankStatement{ID: 2, ProfileID: "profile-2"})
	h := NewStatementHandler(repo)

	req := withProfileID(httptest.NewRequest(http.MethodGet, "/statements", nil), "profile-1")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.ListStatements(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestGetStatement_NotFound(t *testing.T) {
	e := echo.New()
	repo := testutil.NewMockBankStatementRepository()
	h := NewStatementHandler(repo)

	req := withProfileID(httptest.NewRequest(http.MethodGet, "/statements/99", nil), "profile-1")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("99")

	if err := h.GetStatement(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestGetStatement_WrongProfile(t *testing.T) {
	e := echo.New()
	repo := testutil.NewMockBankStatementRepository()
	repo.AddStatement(&domain.BankStatement{ID: 1, ProfileID: "profile-2"})
	h := NewStatementHandler(repo)

	req := withProfileID(httptest.NewRequest(http.MethodGet, "/statements/1", nil), "profile-1")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("1")

	if err := h.GetStatement(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestGetStatement_Success(t *testing.T) {
	e := echo.New()
	repo := testutil.NewMockBankStatementRepository()
	repo.AddStatement(&domain.BankStatement{ID: 1, ProfileID: "profile-1"})
	h := NewStatementHandler(repo)

	req := withProfileID(httptest.NewRequest(http.MethodGet, "/statements/1", nil), "profile-1")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("1")

	if err := h.GetStatement(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
