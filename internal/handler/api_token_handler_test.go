package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/sebascrugu/finanzas-tracker-go/internal/domain"
	"github.com/sebascrugu/finanzas-tracker-go/internal/testutil"
)

func TestCreateAPIToken_RequiresProfile(t *testing.T) {
	e := echo.New()
	repo := testutil.NewMockAPITokenRepository()
	h := NewAPITokenHandler(repo)

	req := httptest.NewRequest(http.MethodPost, "/api-tokens", strings.NewReader(`{"label":"cron"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.CreateAPIToken(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestCreateAPIToken_MissingLabel(t *testing.T) {
	e := echo.New()
	repo := testutil.NewMockAPITokenRepository()
	h := NewAPITokenHandler(repo)

	req := withProfileID(httptest.NewRequest(http.MethodPost, "/api-tokens", strings.NewReader(`{}`)), "profile-1")
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.CreateAPIToken(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestCreateAPIToken_Success(t *testing.T) {
	e := echo.New()
	repo := testutil.NewMockAPITokenRepository()
	h := NewAPITokenHandler(repo)

	req := withProfileID(httptest.NewRequest(http.MethodPost, "/api-tokens", strings.NewReader(`{"label":"cron"}`)), "profile-1")
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.CreateAPIToken(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"token":"ftz_`) {
		t.Fatalf("expected plaintext token with ftz_ prefix in response, got %s", rec.Body.String())
	}
}

func TestRevokeAPIToken_NotFound(t *testing.T) {
	e := echo.New()
	repo := testutil.NewMockAPITokenRepository()
	h := NewAPITokenHandler(repo)

	req := httptest.NewRequest(http.MethodDelete, "/api-tokens/99", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("99")

	if err := h.RevokeAPIToken(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestRevokeAPIToken_Success(t *testing.T) {
	e := echo.New()
	repo := testutil.NewMockAPITokenRepository()
	repo.AddToken(&domain.APIToken{ID: 1, ProfileID: "profile-1", Label: "cron"})
	h := NewAPITokenHandler(repo)

	req := httptest.NewRequest(http.MethodDelete, "/api-tokens/1", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("1")

	if err := h.RevokeAPIToken(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
}
