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

func TestCreateProfile_Success(t *testing.T) {
	e := echo.New()
	repo := testutil.NewMockProfileRepository()
	h := NewProfileHandler(repo)

	body := `{"displayName":"Sebastian","mailAddress":"sebas@example.com"}`
	req := httptest.NewRequest(http.MethodPost, "/profiles", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.CreateProfile(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestCreateProfile_MissingFields(t *testing.T) {
	e := echo.New()
	repo := testutil.NewMockProfileRepository()
	h := NewProfileHandler(repo)

	req := httptest.NewRequest(http.MethodPost, "/profiles", strings.NewReader(`{}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.CreateProfile(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestGetProfile_NotFound(t *testing.T) {
	e := echo.New()
	repo := testutil.NewMockProfileRepository()
	h := NewProfileHandler(repo)

	req := httptest.NewRequest(http.MethodGet, "/profiles/missing", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("missing")

	if err := h.GetProfile(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestGetProfile_Found(t *testing.T) {
	e := echo.New()
	repo := testutil.NewMockProfileRepository()
	repo.AddProfile(&domain.Profile{ID: "profile-1", DisplayName: "Sebastian", Active: true})
	h := NewProfileHandler(repo)

	req := httptest.NewRequest(http.MethodGet, "/profiles/profile-1", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("profile-1")

	if err := h.GetProfile(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestSetActive_NotFound(t *testing.T) {
	e := echo.New()
	repo := testutil.NewMockProfileRepository()
	h := NewProfileHandler(repo)

	req := httptest.NewRequest(http.MethodPut, "/profiles/missing/active", strings.NewReader(`{"active":false}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("missing")

	if err := h.SetActive(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestListProfiles(t *testing.T) {
	e := echo.New()
	repo := testutil.NewMockProfileRepository()
	repo.AddProfile(&domain.Profile{ID: "profile-1", Active: true})
	repo.AddProfile(&domain.Profile{ID: "profile-2", Active: false})
	h := NewProfileHandler(repo)

	req := httptest.NewRequest(http.MethodGet, "/profiles", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.ListProfiles(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "profile-1") || strings.Contains(rec.Body.String(), "profile-2") {
		t.Fatalf("expected only active profile in response, got %s", rec.Body.String())
	}
}
