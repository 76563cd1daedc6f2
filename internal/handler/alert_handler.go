package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/sebascrugu/finanzas-tracker-go/internal/domain"
	"github.com/sebascrugu/finanzas-tracker-go/internal/middleware"
)

// AlertHandler serves the derived-view alert feed (subscription-upcoming,
// anomaly, reconciliation-complete — SPEC_FULL.md supplemented feature #3).
type AlertHandler struct {
	repo domain.AlertRepository
}

// NewAlertHandler creates a new AlertHandler
func NewAlertHandler(repo domain.AlertRepository) *AlertHandler {
	return &AlertHandler{repo: repo}
}

// ListAlerts godoc
// @Summary List unacknowledged alerts
// @Tags alerts
// @Produce json
// @Security BearerAuth
// @Success 200 {array} domain.Alert
// @Router /alerts [get]
func (h *AlertHandler) ListAlerts(c echo.Context) error {
	profileID := middleware.GetProfileID(c)
	if profileID == "" {
		return NewUnauthorizedError(c, "profile required")
	}

	alerts, err := h.repo.ListUnacked(profileID)
	if err != nil {
		log.Error().Err(err).Str("profile_id", profileID).Msg("failed to list alerts")
		return NewInternalError(c, "failed to list alerts")
	}

	return c.JSON(http.StatusOK, alerts)
}

// AckAlert godoc
// @Summary Acknowledge an alert
// @Tags alerts
// @Security BearerAuth
// @Param id path int true "Alert ID"
// @Success 204 "No Content"
// @Router /alerts/{id}/ack [put]
func (h *AlertHandler) AckAlert(c echo.Context) error {
	profileID := middleware.GetProfileID(c)
	if profileID == "" {
		return NewUnauthorizedError(c, "profile required")
	}

	id, err := parseInt64Param(c, "id")
	if err != nil {
		return NewValidationError(c, "invalid alert id", nil)
	}

	if err := h.repo.Ack(profileID, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return NewNotFoundError(c, "alert not found")
		}
		log.Error().Err(err).Str("profile_id", profileID).Int64("id", id).Msg("failed to ack alert")
		return NewInternalError(c, "failed to ack alert")
	}

	return c.NoContent(http.StatusNoContent)
}
