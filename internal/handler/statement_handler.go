package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/sebascrugu/finanzas-tracker-go/internal/domain"
	"github.com/sebascrugu/finanzas-tracker-go/internal/middleware"
)

// StatementHandler serves the archived PDF statements and their
// reconciliation reports (spec.md §4.4, §4.8).
type StatementHandler struct {
	repo domain.BankStatementRepository
}

// NewStatementHandler creates a new StatementHandler
func NewStatementHandler(repo domain.BankStatementRepository) *StatementHandler {
	return &StatementHandler{repo: repo}
}

// ListStatements godoc
// @Summary List bank statements
// @Tags statements
// @Produce json
// @Security BearerAuth
// @Success 200 {array} domain.BankStatement
// @Router /statements [get]
func (h *StatementHandler) ListStatements(c echo.Context) error {
	profileID := middleware.GetProfileID(c)
	if profileID == "" {
		return NewUnauthorizedError(c, "profile required")
	}

	statements, err := h.repo.ListByProfile(profileID)
	if err != nil {
		log.Error().Err(err).Str("profile_id", profileID).Msg("failed to list statements")
		return NewInternalError(c, "failed to list statements")
	}

	return c.JSON(http.StatusOK, statements)
}

// GetStatement godoc
// @Summary Get a bank statement and its reconciliation report
// @Tags statements
// @Produce json
// @Security BearerAuth
// @Param id path int true "Statement ID"
// @Success 200 {object} domain.BankStatement
// @Failure 404 {object} ProblemDetails
// @Router /statements/{id} [get]
func (h *StatementHandler) GetStatement(c echo.Context) error {
	profileID := middleware.GetProfileID(c)
	if profileID == "" {
		return NewUnauthorizedError(c, "profile required")
	}

	id, err := parseInt64Param(c, "id")
	if err != nil {
		return NewValidationError(c, "invalid statement id", nil)
	}

	statement, err := h.repo.GetByID(profileID, id)
	if err != nil {
		if errors.Is(err, domain.ErrBankStatementNotFound) {
			return NewNotFoundError(c, "statement not found")
		}
		log.Error().Err(err).Str("profile_id", profileID).Int64("id", id).Msg("failed to get statement")
		return NewInternalError(c, "failed to get statement")
	}

	return c.JSON(http.StatusOK, statement)
}
