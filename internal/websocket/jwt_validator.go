package websocket

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/auth0/go-jwt-middleware/v2/jwks"
	"github.com/auth0/go-jwt-middleware/v2/validator"
)

// ErrInvalidToken is returned when JWT validation fails
var ErrInvalidToken = errors.New("invalid token")

// ErrProfileNotFound is returned when the profile lookup fails
var ErrProfileNotFound = errors.New("profile not found")

// ProfileLookup resolves the profile a validated Auth0 subject may watch.
// A single-user deployment typically has a one-to-one auth0-subject to
// profile mapping; the indirection exists so a deployment with several
// profiles (spec.md §3's "small set of profiles") can still gate on it.
type ProfileLookup interface {
	GetProfileByAuth0ID(auth0ID string) (profileID string, err error)
}

// CustomClaims contains the custom claims from Auth0 JWT
type CustomClaims struct{}

// Validate implements validator.CustomClaims
func (c CustomClaims) Validate(ctx context.Context) error {
	return nil
}

// Auth0JWTValidator validates Auth0 JWT tokens for WebSocket connections
type Auth0JWTValidator struct {
	validator     *validator.Validator
	profileLookup ProfileLookup
}

// NewAuth0JWTValidator creates a new Auth0JWTValidator
func NewAuth0JWTValidator(domain, audience string, profileLookup ProfileLookup) (*Auth0JWTValidator, error) {
	issuerURL, err := url.Parse("https://" + domain + "/")
	if err != nil {
		return nil, err
	}

	provider := jwks.NewCachingProvider(issuerURL, 5*time.Minute)

	jwtValidator, err := validator.New(
		provider.KeyFunc,
		validator.RS256,
		issuerURL.String(),
		[]string{audience},
		validator.WithCustomClaims(func() validator.CustomClaims {
			return &CustomClaims{}
		}),
		validator.WithAllowedClockSkew(time.Minute),
	)
	if err != nil {
		return nil, err
	}

	return &Auth0JWTValidator{
		validator:     jwtValidator,
		profileLookup: profileLookup,
	}, nil
}

// ValidateToken validates a JWT token and returns the profile ID it may watch
func (v *Auth0JWTValidator) ValidateToken(token string) (profileID string, err error) {
	ctx := context.Background()

	claims, err := v.validator.ValidateToken(ctx, token)
	if err != nil {
		return "", ErrInvalidToken
	}

	validatedClaims, ok := claims.(*validator.ValidatedClaims)
	if !ok {
		return "", ErrInvalidToken
	}

	auth0ID := validatedClaims.RegisteredClaims.Subject

	profileID, err = v.profileLookup.GetProfileByAuth0ID(auth0ID)
	if err != nil {
		return "", ErrProfileNotFound
	}

	return profileID, nil
}
