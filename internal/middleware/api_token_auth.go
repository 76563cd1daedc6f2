package middleware

import (
	"context"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/sebascrugu/finanzas-tracker-go/internal/domain"
)

const (
	// APITokenIDKey is the context key for the API token ID
	APITokenIDKey contextKey = "api_token_id"
	// IsAPITokenAuthKey is the context key indicating API token authentication
	IsAPITokenAuthKey contextKey = "is_api_token_auth"
)

// apiTokenPrefix is this deployment's API token prefix, distinct from the
// teacher's "fort_" so the two are never confusable on the wire.
const apiTokenPrefix = "ftz_"

// APITokenValidator provides API token validation
type APITokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*domain.APIToken, error)
}

// APITokenAuthMiddleware provides API token authentication middleware for
// the automation surface (cron, the batch runner) described in spec.md §6.
type APITokenAuthMiddleware struct {
	validator APITokenValidator
}

// NewAPITokenAuthMiddleware creates a new APITokenAuthMiddleware
func NewAPITokenAuthMiddleware(validator APITokenValidator) *APITokenAuthMiddleware {
	return &APITokenAuthMiddleware{validator: validator}
}

// Authenticate returns an Echo middleware that validates API tokens
func (m *APITokenAuthMiddleware) Authenticate() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return unauthorizedError(c, "Missing authorization header")
			}

			// Check Bearer prefix
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				return unauthorizedError(c, "Invalid authorization header format")
			}

			token := parts[1]
			return m.authenticateWithToken(token)(next)(c)
		}
	}
}

// authenticateWithToken authenticates using an already-extracted token
// (used directly by DualAuthMiddleware when the Bearer prefix was optional).
func (m *APITokenAuthMiddleware) authenticateWithToken(token string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !strings.HasPrefix(token, apiTokenPrefix) {
				return unauthorizedError(c, "Invalid token format")
			}

			apiToken, err := m.validator.ValidateToken(c.Request().Context(), token)
			if err != nil {
				if err == domain.ErrAPITokenNotFound || err == domain.ErrAPITokenRevoked {
					log.Debug().Msg("API token not found or revoked")
					return unauthorizedError(c, "Invalid or expired API token")
				}
				log.Error().Err(err).Msg("Token validation failed")
				return unauthorizedError(c, "Token validation failed")
			}

			ctx := c.Request().Context()
			ctx = context.WithValue(ctx, ProfileIDKey, apiToken.ProfileID)
			ctx = context.WithValue(ctx, APITokenIDKey, apiToken.ID)
			ctx = context.WithValue(ctx, IsAPITokenAuthKey, true)

			c.SetRequest(c.Request().WithContext(ctx))

			log.Debug().
				Str("profile_id", apiToken.ProfileID).
				Str("token_id", strconv.FormatInt(apiToken.ID, 10)).
				Msg("API token authentication successful")

			return next(c)
		}
	}
}

// GetAPITokenID extracts the API token ID from the context
func GetAPITokenID(c echo.Context) int64 {
	if id, ok := c.Request().Context().Value(APITokenIDKey).(int64); ok {
		return id
	}
	return 0
}

// IsAPITokenAuth checks if the request was authenticated via API token
func IsAPITokenAuth(c echo.Context) bool {
	if isAPIToken, ok := c.Request().Context().Value(IsAPITokenAuthKey).(bool); ok {
		return isAPIToken
	}
	return false
}
