package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/sebascrugu/finanzas-tracker-go/internal/domain"
	"github.com/sebascrugu/finanzas-tracker-go/internal/recurring"
	"github.com/sebascrugu/finanzas-tracker-go/internal/testutil"
)

func TestListSubscriptions_RequiresProfile(t *testing.T) {
	e := echo.New()
	repo := testutil.NewMockSubscriptionRepository()
	h := NewSubscriptionHandler(repo)

	req := httptest.NewRequest(http.MethodGet, "/subscriptions", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.ListSubscriptions(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestListSubscriptions_OnlyActive(t *testing.T) {
	e := echo.New()
	repo := testutil.NewMockSubscriptionRepository()
	repo.AddSubscription(&domain.Subscription{ID: 1, ProfileID: "profile-1", MerchantKey: "netflix", Active: true})
	repo.AddSubscription(&domain.Subscription{ID: 2, ProfileID: "profile-1", MerchantKey: "spotify", Active: false})
	h := NewSubscriptionHandler(repo)

	req := withProfileID(httptest.NewRequest(http.MethodGet, "/subscriptions", nil), "profile-1")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.ListSubscriptions(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestDeactivateSubscription_NotFound(t *testing.T) {
	e := echo.New()
	repo := testutil.NewMockSubscriptionRepository()
	h := NewSubscriptionHandler(repo)

	req := withProfileID(httptest.NewRequest(http.MethodDelete, "/subscriptions/99", nil), "profile-1")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("99")

	if err := h.DeactivateSubscription(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestDeactivateSubscription_Success(t *testing.T) {
	e := echo.New()
	repo := testutil.NewMockSubscriptionRepository()
	repo.AddSubscription(&domain.Subscription{ID: 1, ProfileID: "profile-1", MerchantKey: "netflix", Active: true})
	h := NewSubscriptionHandler(repo)

	req := withProfileID(httptest.NewRequest(http.MethodDelete, "/subscriptions/1", nil), "profile-1")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("1")

	if err := h.DeactivateSubscription(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
}

func TestGetProjection_RequiresProfile(t *testing.T) {
	e := echo.New()
	repo := testutil.NewMockSubscriptionRepository()
	h := NewSubscriptionHandler(repo)

	req := httptest.NewRequest(http.MethodGet, "/subscriptions/projection", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.GetProjection(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestGetProjection_AggregatesUpcomingCharges(t *testing.T) {
	e := echo.New()
	repo := testutil.NewMockSubscriptionRepository()
	now := time.Now().UTC()
	repo.AddSubscription(&domain.Subscription{
		ID: 1, ProfileID: "profile-1", MerchantKey: "netflix", Active: true,
		AvgAmount: decimal.NewFromInt(5500), NextExpected: now.AddDate(0, 0, 5),
	})
	repo.AddSubscription(&domain.Subscription{
		ID: 2, ProfileID: "profile-1", MerchantKey: "far-future", Active: true,
		AvgAmount: decimal.NewFromInt(9000), NextExpected: now.AddDate(0, 0, 90),
	})
	h := NewSubscriptionHandler(repo)

	req := withProfileID(httptest.NewRequest(http.MethodGet, "/subscriptions/projection", nil), "profile-1")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.GetProjection(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var report recurring.ProjectionReport
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(report.Charges) != 1 {
		t.Fatalf("expected only the within-window subscription, got %d charges", len(report.Charges))
	}
	if report.Charges[0].MerchantKey != "netflix" {
		t.Errorf("expected netflix, got %s", report.Charges[0].MerchantKey)
	}
}
