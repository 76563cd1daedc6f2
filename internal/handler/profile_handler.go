package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/sebascrugu/finanzas-tracker-go/internal/domain"
)

// ProfileHandler serves onboarding and profile-management endpoints
// (spec.md §3 — the data-isolation boundary).
type ProfileHandler struct {
	repo domain.ProfileRepository
}

// NewProfileHandler creates a new ProfileHandler
func NewProfileHandler(repo domain.ProfileRepository) *ProfileHandler {
	return &ProfileHandler{repo: repo}
}

// CreateProfileRequest is the onboarding request body.
type CreateProfileRequest struct {
	DisplayName string `json:"displayName"`
	MailAddress string `json:"mailAddress"`
}

// CreateProfile godoc
// @Summary Onboard a profile
// @Tags profiles
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateProfileRequest true "profile"
// @Success 201 {object} domain.Profile
// @Failure 400 {object} ProblemDetails
// @Router /profiles [post]
func (h *ProfileHandler) CreateProfile(c echo.Context) error {
	var req CreateProfileRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "invalid request body", nil)
	}

	var validationErrors []ValidationError
	if req.DisplayName == "" {
		validationErrors = append(validationErrors, ValidationError{Field: "displayName", Message: "displayName is required"})
	}
	if req.MailAddress == "" {
		validationErrors = append(validationErrors, ValidationError{Field: "mailAddress", Message: "mailAddress is required"})
	}
	if len(validationErrors) > 0 {
		return NewValidationError(c, "validation failed", validationErrors)
	}

	profile, err := h.repo.Create(domain.CreateProfileInput{
		DisplayName: req.DisplayName,
		MailAddress: req.MailAddress,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNameRequired), errors.Is(err, domain.ErrNameTooLong), errors.Is(err, domain.ErrMailAddressRequired):
			return NewValidationError(c, err.Error(), nil)
		default:
			log.Error().Err(err).Msg("failed to create profile")
			return NewInternalError(c, "failed to create profile")
		}
	}

	return c.JSON(http.StatusCreated, profile)
}

// ListProfiles godoc
// @Summary List active profiles
// @Tags profiles
// @Produce json
// @Security BearerAuth
// @Success 200 {array} domain.Profile
// @Router /profiles [get]
func (h *ProfileHandler) ListProfiles(c echo.Context) error {
	profiles, err := h.repo.ListActive()
	if err != nil {
		log.Error().Err(err).Msg("failed to list profiles")
		return NewInternalError(c, "failed to list profiles")
	}

	return c.JSON(http.StatusOK, profiles)
}

// GetProfile godoc
// @Summary Get a profile
// @Tags profiles
// @Produce json
// @Security BearerAuth
// @Param id path string true "Profile ID"
// @Success 200 {object} domain.Profile
// @Failure 404 {object} ProblemDetails
// @Router /profiles/{id} [get]
func (h *ProfileHandler) GetProfile(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError(c, "profile id is required", nil)
	}

	profile, err := h.repo.GetByID(id)
	if err != nil {
		if errors.Is(err, domain.ErrProfileNotFound) {
			return NewNotFoundError(c, "profile not found")
		}
		log.Error().Err(err).Str("profile_id", id).Msg("failed to get profile")
		return NewInternalError(c, "failed to get profile")
	}

	return c.JSON(http.StatusOK, profile)
}

// SetActiveRequest toggles a profile's active flag.
type SetActiveRequest struct {
	Active bool `json:"active"`
}

// SetActive godoc
// @Summary Activate or deactivate a profile
// @Tags profiles
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Profile ID"
// @Param request body SetActiveRequest true "active flag"
// @Success 204 "No Content"
// @Failure 404 {object} ProblemDetails
// @Router /profiles/{id}/active [put]
func (h *ProfileHandler) SetActive(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError(c, "profile id is required", nil)
	}

	var req SetActiveRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "invalid request body", nil)
	}

	if err := h.repo.SetActive(id, req.Active); err != nil {
		if errors.Is(err, domain.ErrProfileNotFound) {
			return NewNotFoundError(c, "profile not found")
		}
		log.Error().Err(err).Str("profile_id", id).Msg("failed to set profile active state")
		return NewInternalError(c, "failed to update profile")
	}

	return c.NoContent(http.StatusNoContent)
}
