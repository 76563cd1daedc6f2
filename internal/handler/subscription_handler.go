package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/sebascrugu/finanzas-tracker-go/internal/domain"
	"github.com/sebascrugu/finanzas-tracker-go/internal/middleware"
	"github.com/sebascrugu/finanzas-tracker-go/internal/recurring"
)

// SubscriptionHandler serves the recurring-charge detector's output
// (spec.md §4.11).
type SubscriptionHandler struct {
	repo domain.SubscriptionRepository
}

// NewSubscriptionHandler creates a new SubscriptionHandler
func NewSubscriptionHandler(repo domain.SubscriptionRepository) *SubscriptionHandler {
	return &SubscriptionHandler{repo: repo}
}

// ListSubscriptions godoc
// @Summary List active subscriptions
// @Tags subscriptions
// @Produce json
// @Security BearerAuth
// @Success 200 {array} domain.Subscription
// @Router /subscriptions [get]
func (h *SubscriptionHandler) ListSubscriptions(c echo.Context) error {
	profileID := middleware.GetProfileID(c)
	if profileID == "" {
		return NewUnauthorizedError(c, "profile required")
	}

	subs, err := h.repo.ListActive(profileID)
	if err != nil {
		log.Error().Err(err).Str("profile_id", profileID).Msg("failed to list subscriptions")
		return NewInternalError(c, "failed to list subscriptions")
	}

	return c.JSON(http.StatusOK, subs)
}

// DeactivateSubscription godoc
// @Summary Deactivate a subscription
// @Description Marks a subscription inactive, e.g. after the user cancels it
// @Tags subscriptions
// @Security BearerAuth
// @Param id path int true "Subscription ID"
// @Success 204 "No Content"
// @Failure 404 {object} ProblemDetails
// @Router /subscriptions/{id} [delete]
func (h *SubscriptionHandler) DeactivateSubscription(c echo.Context) error {
	profileID := middleware.GetProfileID(c)
	if profileID == "" {
		return NewUnauthorizedError(c, "profile required")
	}

	id, err := parseInt64Param(c, "id")
	if err != nil {
		return NewValidationError(c, "invalid subscription id", nil)
	}

	if err := h.repo.Deactivate(profileID, id); err != nil {
		if errors.Is(err, domain.ErrSubscriptionNotFound) {
			return NewNotFoundError(c, "subscription not found")
		}
		log.Error().Err(err).Str("profile_id", profileID).Int64("id", id).Msg("failed to deactivate subscription")
		return NewInternalError(c, "failed to deactivate subscription")
	}

	return c.NoContent(http.StatusNoContent)
}

// GetProjection godoc
// @Summary Rolling cash-flow projection
// @Description Aggregates active subscriptions' next-expected charges over the next 30 days
// @Tags subscriptions
// @Security BearerAuth
// @Success 200 {object} recurring.ProjectionReport
// @Router /subscriptions/projection [get]
func (h *SubscriptionHandler) GetProjection(c echo.Context) error {
	profileID := middleware.GetProfileID(c)
	if profileID == "" {
		return NewUnauthorizedError(c, "profile required")
	}

	subs, err := h.repo.ListActive(profileID)
	if err != nil {
		log.Error().Err(err).Str("profile_id", profileID).Msg("failed to list subscriptions for projection")
		return NewInternalError(c, "failed to build projection")
	}

	report := recurring.Project(subs, time.Now().UTC())
	return c.JSON(http.StatusOK, report)
}
