package handler

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/sebascrugu/finanzas-tracker-go/internal/domain"
	"github.com/sebascrugu/finanzas-tracker-go/internal/middleware"
)

const (
	// tokenPrefix must match internal/middleware's apiTokenPrefix; kept as a
	// separate constant since that one is unexported.
	tokenPrefix       = "ftz_"
	tokenRandomBytes  = 32
	tokenPrefixDigits = 8
)

// APITokenHandler issues and revokes the long-lived bearer tokens cron and
// the batch runner use against the control API (SPEC_FULL.md domain stack —
// automation auth, distinct from the dashboard's Auth0 flow).
type APITokenHandler struct {
	repo domain.APITokenRepository
}

// NewAPITokenHandler creates a new APITokenHandler
func NewAPITokenHandler(repo domain.APITokenRepository) *APITokenHandler {
	return &APITokenHandler{repo: repo}
}

// CreateAPITokenRequest is the token-issuance request body.
type CreateAPITokenRequest struct {
	Label string `json:"label"`
}

// CreateAPITokenResponse carries the plaintext token, returned exactly once.
type CreateAPITokenResponse struct {
	*domain.APIToken
	Token string `json:"token"`
}

func generateSecureToken() (plaintext, hash, prefix string, err error) {
	buf := make([]byte, tokenRandomBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", "", "", err
	}
	secret := base64.RawURLEncoding.EncodeToString(buf)
	plaintext = tokenPrefix + secret

	sum := sha256.Sum256([]byte(plaintext))
	hash = fmt.Sprintf("%x", sum)

	prefix = plaintext
	if len(prefix) > len(tokenPrefix)+tokenPrefixDigits {
		prefix = plaintext[:len(tokenPrefix)+tokenPrefixDigits]
	}

	return plaintext, hash, prefix, nil
}

// CreateAPIToken godoc
// @Summary Issue an API token
// @Description Issues a bearer token for cron/batch automation; the plaintext token is returned once and never again
// @Tags api-tokens
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateAPITokenRequest true "token"
// @Success 201 {object} CreateAPITokenResponse
// @Failure 400 {object} ProblemDetails
// @Router /api-tokens [post]
func (h *APITokenHandler) CreateAPIToken(c echo.Context) error {
	profileID := middleware.GetProfileID(c)
	if profileID == "" {
		return NewUnauthorizedError(c, "profile required")
	}

	var req CreateAPITokenRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "invalid request body", nil)
	}
	if req.Label == "" {
		return NewValidationError(c, "validation failed", []ValidationError{
			{Field: "label", Message: "label is required"},
		})
	}

	plaintext, hash, prefix, err := generateSecureToken()
	if err != nil {
		log.Error().Err(err).Msg("failed to generate API token")
		return NewInternalError(c, "failed to generate token")
	}

	token, err := h.repo.Create(profileID, req.Label, hash, prefix)
	if err != nil {
		log.Error().Err(err).Str("profile_id", profileID).Msg("failed to persist API token")
		return NewInternalError(c, "failed to create token")
	}

	log.Info().Str("profile_id", profileID).Int64("token_id", token.ID).Msg("API token issued")

	return c.JSON(http.StatusCreated, CreateAPITokenResponse{APIToken: token, Token: plaintext})
}

// RevokeAPIToken godoc
// @Summary Revoke an API token
// @Tags api-tokens
// @Security BearerAuth
// @Param id path int true "Token ID"
// @Success 204 "No Content"
// @Failure 404 {object} ProblemDetails
// @Router /api-tokens/{id} [delete]
func (h *APITokenHandler) RevokeAPIToken(c echo.Context) error {
	id, err := parseInt64Param(c, "id")
	if err != nil {
		return NewValidationError(c, "invalid token id", nil)
	}

	if err := h.repo.Revoke(id); err != nil {
		if errors.Is(err, domain.ErrAPITokenNotFound) {
			return NewNotFoundError(c, "token not found")
		}
		log.Error().Err(err).Int64("token_id", id).Msg("failed to revoke API token")
		return NewInternalError(c, "failed to revoke token")
	}

	return c.NoContent(http.StatusNoContent)
}
