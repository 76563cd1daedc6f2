package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/sebascrugu/finanzas-tracker-go/internal/categorize"
	"github.com/sebascrugu/finanzas-tracker-go/internal/domain"
	"github.com/sebascrugu/finanzas-tracker-go/internal/learning"
	"github.com/sebascrugu/finanzas-tracker-go/internal/middleware"
)

// TransactionHandler serves the read-model views over ingested transactions
// and the user-correction endpoint the categorization cascade learns from
// (spec.md §4.6, §4.10).
type TransactionHandler struct {
	repo    domain.TransactionRepository
	learner *learning.Learner
}

// NewTransactionHandler creates a new TransactionHandler
func NewTransactionHandler(repo domain.TransactionRepository, learner *learning.Learner) *TransactionHandler {
	return &TransactionHandler{repo: repo, learner: learner}
}

// ListTransactions godoc
// @Summary List transactions
// @Description List transactions for the authenticated profile, with optional filters
// @Tags transactions
// @Produce json
// @Security BearerAuth
// @Param startDate query string false "YYYY-MM-DD"
// @Param endDate query string false "YYYY-MM-DD"
// @Param kind query string false "transaction kind"
// @Param status query string false "transaction status"
// @Param needsReview query bool false "only transactions awaiting category review"
// @Param needsReconciliation query bool false "only transactions awaiting SINPE reconciliation"
// @Param page query int false "page number (default 1)"
// @Param pageSize query int false "page size (default 50, max 500)"
// @Success 200 {object} domain.PaginatedTransactions
// @Failure 400 {object} ProblemDetails
// @Failure 401 {object} ProblemDetails
// @Router /transactions [get]
func (h *TransactionHandler) ListTransactions(c echo.Context) error {
	profileID := middleware.GetProfileID(c)
	if profileID == "" {
		return NewUnauthorizedError(c, "profile required")
	}

	filters := domain.TransactionFilters{
		ProfileID: profileID,
		Page:      1,
		PageSize:  domain.DefaultPageSize,
	}

	if s := c.QueryParam("startDate"); s != "" {
		parsed, err := time.Parse("2006-01-02", s)
		if err != nil {
			return NewValidationError(c, "invalid startDate (use YYYY-MM-DD)", nil)
		}
		filters.StartDate = &parsed
	}
	if s := c.QueryParam("endDate"); s != "" {
		parsed, err := time.Parse("2006-01-02", s)
		if err != nil {
			return NewValidationError(c, "invalid endDate (use YYYY-MM-DD)", nil)
		}
		filters.EndDate = &parsed
	}
	if s := c.QueryParam("kind"); s != "" {
		kind := domain.TransactionKind(s)
		filters.Kind = &kind
	}
	if s := c.QueryParam("status"); s != "" {
		status := domain.TransactionStatus(s)
		filters.Status = &status
	}
	if s := c.QueryParam("needsReview"); s != "" {
		b, err := strconv.ParseBool(s)
		if err != nil {
			return NewValidationError(c, "invalid needsReview (must be true or false)", nil)
		}
		filters.NeedsReview = &b
	}
	if s := c.QueryParam("needsReconciliation"); s != "" {
		b, err := strconv.ParseBool(s)
		if err != nil {
			return NewValidationError(c, "invalid needsReconciliation (must be true or false)", nil)
		}
		filters.NeedsReconciliation = &b
	}
	if s := c.QueryParam("page"); s != "" {
		page, err := strconv.Atoi(s)
		if err != nil || page < 1 {
			return NewValidationError(c, "invalid page (must be a positive integer)", nil)
		}
		filters.Page = int32(page)
	}
	if s := c.QueryParam("pageSize"); s != "" {
		pageSize, err := strconv.Atoi(s)
		if err != nil || pageSize < 1 {
			return NewValidationError(c, "invalid pageSize (must be a positive integer)", nil)
		}
		if pageSize > domain.MaxPageSize {
			pageSize = domain.MaxPageSize
		}
		filters.PageSize = int32(pageSize)
	}

	result, err := h.repo.List(filters)
	if err != nil {
		log.Error().Err(err).Str("profile_id", profileID).Msg("failed to list transactions")
		return NewInternalError(c, "failed to list transactions")
	}

	return c.JSON(http.StatusOK, result)
}

// GetTransaction godoc
// @Summary Get a transaction
// @Tags transactions
// @Produce json
// @Security BearerAuth
// @Param id path int true "Transaction ID"
// @Success 200 {object} domain.Transaction
// @Failure 404 {object} ProblemDetails
// @Router /transactions/{id} [get]
func (h *TransactionHandler) GetTransaction(c echo.Context) error {
	profileID := middleware.GetProfileID(c)
	if profileID == "" {
		return NewUnauthorizedError(c, "profile required")
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return NewValidationError(c, "invalid transaction id", nil)
	}

	tx, err := h.repo.GetByID(profileID, id)
	if err != nil {
		if errors.Is(err, domain.ErrTransactionNotFound) {
			return NewNotFoundError(c, "transaction not found")
		}
		log.Error().Err(err).Str("profile_id", profileID).Int64("id", id).Msg("failed to get transaction")
		return NewInternalError(c, "failed to get transaction")
	}

	return c.JSON(http.StatusOK, tx)
}

// ListNeedsReview godoc
// @Summary List transactions awaiting category review
// @Tags transactions
// @Produce json
// @Security BearerAuth
// @Success 200 {array} domain.Transaction
// @Router /transactions/needs-review [get]
func (h *TransactionHandler) ListNeedsReview(c echo.Context) error {
	profileID := middleware.GetProfileID(c)
	if profileID == "" {
		return NewUnauthorizedError(c, "profile required")
	}

	txs, err := h.repo.GetNeedingReview(profileID)
	if err != nil {
		log.Error().Err(err).Str("profile_id", profileID).Msg("failed to list transactions needing review")
		return NewInternalError(c, "failed to list transactions needing review")
	}

	return c.JSON(http.StatusOK, txs)
}

// ListNeedsReconciliation godoc
// @Summary List transactions awaiting SINPE reconciliation
// @Tags transactions
// @Produce json
// @Security BearerAuth
// @Success 200 {array} domain.Transaction
// @Router /transactions/needs-reconciliation [get]
func (h *TransactionHandler) ListNeedsReconciliation(c echo.Context) error {
	profileID := middleware.GetProfileID(c)
	if profileID == "" {
		return NewUnauthorizedError(c, "profile required")
	}

	txs, err := h.repo.GetNeedingReconciliation(profileID)
	if err != nil {
		log.Error().Err(err).Str("profile_id", profileID).Msg("failed to list transactions needing reconciliation")
		return NewInternalError(c, "failed to list transactions needing reconciliation")
	}

	return c.JSON(http.StatusOK, txs)
}

// CorrectCategoryRequest represents the user-correction request body
// (spec.md §4.10 step 1).
type CorrectCategoryRequest struct {
	SubcategoryID int64   `json:"subcategoryId"`
	UserLabel     *string `json:"userLabel,omitempty"`
}

// CorrectCategory godoc
// @Summary Correct a transaction's category
// @Description Applies a user correction, feeding the per-profile pattern, global suggestion, and SINPE contact learners (spec.md §4.10)
// @Tags transactions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Transaction ID"
// @Param request body CorrectCategoryRequest true "correction"
// @Success 204 "No Content"
// @Failure 400 {object} ProblemDetails
// @Failure 404 {object} ProblemDetails
// @Router /transactions/{id}/correct [patch]
func (h *TransactionHandler) CorrectCategory(c echo.Context) error {
	profileID := middleware.GetProfileID(c)
	if profileID == "" {
		return NewUnauthorizedError(c, "profile required")
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return NewValidationError(c, "invalid transaction id", nil)
	}

	var req CorrectCategoryRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "invalid request body", nil)
	}
	if req.SubcategoryID <= 0 {
		return NewValidationError(c, "validation failed", []ValidationError{
			{Field: "subcategoryId", Message: "subcategoryId is required"},
		})
	}

	tx, err := h.repo.GetByID(profileID, id)
	if err != nil {
		if errors.Is(err, domain.ErrTransactionNotFound) {
			return NewNotFoundError(c, "transaction not found")
		}
		log.Error().Err(err).Str("profile_id", profileID).Int64("id", id).Msg("failed to load transaction for correction")
		return NewInternalError(c, "failed to apply correction")
	}

	phoneNumber, namePrefix := categorize.SINPEIdentity(tx.MerchantRaw, tx.Beneficiary)
	amount, _ := tx.AmountLocal.Float64()

	if _, err := h.learner.RecordCorrection(learning.Input{
		ProfileID:        profileID,
		TransactionID:    id,
		Kind:             tx.Kind,
		MerchantRaw:      tx.MerchantRaw,
		NewSubcategoryID: req.SubcategoryID,
		UserLabel:        req.UserLabel,
		PhoneNumber:      phoneNumber,
		NamePrefix:       namePrefix,
		Amount:           amount,
		At:               time.Now(),
	}); err != nil {
		if errors.Is(err, domain.ErrTransactionNotFound) {
			return NewNotFoundError(c, "transaction not found")
		}
		log.Error().Err(err).Str("profile_id", profileID).Int64("id", id).Msg("failed to record user correction")
		return NewInternalError(c, "failed to apply correction")
	}

	log.Info().Str("profile_id", profileID).Int64("id", id).Int64("subcategory_id", req.SubcategoryID).Msg("category corrected")

	return c.NoContent(http.StatusNoContent)
}
