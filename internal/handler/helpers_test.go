package handler

import (
	"context"
	"net/http"

	"github.com/sebascrugu/finanzas-tracker-go/internal/middleware"
)

// withProfileID attaches an authenticated profile id to the request context
// the way middleware.APITokenAuthMiddleware/AuthMiddleware do, so handler
// tests can exercise middleware.GetProfileID without going through the auth
// middleware chain itself.
func withProfileID(req *http.Request, profileID string) *http.Request {
	ctx := context.WithValue(req.Context(), middleware.ProfileIDKey, profileID)
	return req.WithContext(ctx)
}
