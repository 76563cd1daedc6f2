package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// problemDetails represents an RFC 7807 Problem Details response
type problemDetails struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}

// errorDocsBaseURL prefixes every problem-details Type this package emits.
// SetErrorDocsBaseURL lets cmd/api point it at the deployment's own config
// value (internal/config.Config.ErrorDocsBaseURL) instead of a literal
// baked into the binary; this default only applies if that's never called.
var errorDocsBaseURL = "https://finanzas-tracker.app/errors"

// SetErrorDocsBaseURL overrides the base URL used to build problem-details
// Type fields. Call once during startup wiring, before serving traffic.
func SetErrorDocsBaseURL(baseURL string) {
	if baseURL != "" {
		errorDocsBaseURL = baseURL
	}
}

// unauthorizedError creates an unauthorized error response
func unauthorizedError(c echo.Context, detail string) error {
	return c.JSON(http.StatusUnauthorized, problemDetails{
		Type:     errorDocsBaseURL + "/unauthorized",
		Title:    "Unauthorized",
		Status:   http.StatusUnauthorized,
		Detail:   detail,
		Instance: c.Request().URL.Path,
	})
}
