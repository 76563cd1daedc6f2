package main

import (
	"context"
	"crypto/sha256"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/sebascrugu/finanzas-tracker-go/internal/config"
	"github.com/sebascrugu/finanzas-tracker-go/internal/domain"
	"github.com/sebascrugu/finanzas-tracker-go/internal/handler"
	"github.com/sebascrugu/finanzas-tracker-go/internal/ingest"
	"github.com/sebascrugu/finanzas-tracker-go/internal/learning"
	"github.com/sebascrugu/finanzas-tracker-go/internal/middleware"
	"github.com/sebascrugu/finanzas-tracker-go/internal/repository/postgres"
	"github.com/sebascrugu/finanzas-tracker-go/internal/websocket"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if os.Getenv("ENV") != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	middleware.SetErrorDocsBaseURL(cfg.ErrorDocsBaseURL)

	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pool.Close()

	if err := pool.Ping(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to ping database")
	}
	log.Info().Msg("Connected to database")

	txHolder := postgres.NewTxHolder()

	profileRepo := postgres.NewProfileRepository(pool, txHolder)
	apiTokenRepo := postgres.NewAPITokenRepository(pool, txHolder)
	transactionRepo := postgres.NewTransactionRepository(pool, txHolder)
	statementRepo := postgres.NewBankStatementRepository(pool, txHolder)
	subscriptionRepo := postgres.NewSubscriptionRepository(pool, txHolder)
	alertRepo := postgres.NewAlertRepository(pool, txHolder)
	patternRepo := postgres.NewLearnedPatternRepository(pool, txHolder)
	globalSuggestionRepo := postgres.NewGlobalSuggestionRepository(pool, txHolder)
	contactRepo := postgres.NewContactRepository(pool, txHolder)

	txManager := postgres.NewTxManager(pool, txHolder)
	learner := learning.New(txManager, transactionRepo, patternRepo, globalSuggestionRepo, contactRepo)

	profileProvider := &profileProviderAdapter{profileRepo: profileRepo}

	apiTokenMiddleware := middleware.NewAPITokenAuthMiddleware(&apiTokenValidatorAdapter{repo: apiTokenRepo})

	// Auth0 gates the dashboard API only when explicitly turned on (spec.md
	// §3: a single local profile doesn't need network-facing JWT auth by
	// default). Without it, the API token middleware alone guards every
	// route — there's no JWT branch to fall through to.
	var authenticate echo.MiddlewareFunc
	if cfg.RequireAuth {
		authMiddleware, err := middleware.NewAuthMiddleware(cfg.Auth0Domain, cfg.Auth0Audience, profileProvider)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create auth middleware")
		}
		authenticate = middleware.NewDualAuthMiddleware(authMiddleware, apiTokenMiddleware).Authenticate()
	} else {
		authenticate = apiTokenMiddleware.Authenticate()
	}

	hub := websocket.NewHub()

	syncEngine, err := ingest.New(context.Background(), cfg, pool, hub)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire ingestion engine")
	}

	var jwtValidator handler.JWTValidator
	if cfg.RequireAuth {
		jwtValidator, err = websocket.NewAuth0JWTValidator(cfg.Auth0Domain, cfg.Auth0Audience, profileProvider)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create WebSocket JWT validator")
		}
	} else {
		jwtValidator = &openProfileValidator{profileRepo: profileRepo}
	}

	profileHandler := handler.NewProfileHandler(profileRepo)
	transactionHandler := handler.NewTransactionHandler(transactionRepo, learner)
	apiTokenHandler := handler.NewAPITokenHandler(apiTokenRepo)
	statementHandler := handler.NewStatementHandler(statementRepo)
	subscriptionHandler := handler.NewSubscriptionHandler(subscriptionRepo)
	alertHandler := handler.NewAlertHandler(alertRepo)
	syncHandler := handler.NewSyncHandler(syncEngine)
	wsHandler := handler.NewWebSocketHandler(hub, jwtValidator, cfg.CORSOrigins)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomiddleware.RequestID())

	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	e.Use(echomiddleware.SecureWithConfig(echomiddleware.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            31536000,
		ContentSecurityPolicy: "default-src 'self'",
		ReferrerPolicy:        "strict-origin-when-cross-origin",
	}))

	e.Use(zerologMiddleware())
	e.Use(echomiddleware.Recover())

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	handler.RegisterRoutes(e, authenticate, profileHandler, transactionHandler, apiTokenHandler,
		statementHandler, subscriptionHandler, alertHandler, syncHandler, wsHandler)

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting server")
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// profileProviderAdapter resolves an Auth0 subject to a profile. This is a
// small-set-of-profiles deployment (spec.md §3) with no stored per-profile
// Auth0 mapping, so it resolves to the sole active profile; a deployment
// that onboards more than one profile behind one Auth0 tenant would need a
// real mapping table here instead.
type profileProviderAdapter struct {
	profileRepo domain.ProfileRepository
}

func (a *profileProviderAdapter) GetProfileByAuth0ID(auth0ID string) (string, error) {
	profiles, err := a.profileRepo.ListActive()
	if err != nil {
		return "", err
	}
	if len(profiles) == 0 {
		return "", domain.ErrProfileNotFound
	}
	return profiles[0].ID, nil
}

// apiTokenValidatorAdapter implements middleware.APITokenValidator directly
// against the repository, since there is no service layer in this build.
type apiTokenValidatorAdapter struct {
	repo domain.APITokenRepository
}

func (a *apiTokenValidatorAdapter) ValidateToken(ctx context.Context, token string) (*domain.APIToken, error) {
	hash := hashAPIToken(token)

	apiToken, err := a.repo.GetByHash(hash)
	if err != nil {
		return nil, err
	}

	go func() {
		if touchErr := a.repo.TouchLastUsed(apiToken.ID, time.Now()); touchErr != nil {
			log.Error().Err(touchErr).Int64("token_id", apiToken.ID).Msg("failed to update API token last-used timestamp")
		}
	}()

	return apiToken, nil
}

// openProfileValidator is the WebSocket auth fallback when REQUIRE_AUTH is
// unset: any connection whose token is the ID of an existing profile is
// accepted as that profile, matching the dashboard API's own unauthenticated-by-default
// posture for a single local profile.
type openProfileValidator struct {
	profileRepo domain.ProfileRepository
}

func (v *openProfileValidator) ValidateToken(token string) (string, error) {
	profile, err := v.profileRepo.GetByID(token)
	if err != nil {
		return "", err
	}
	return profile.ID, nil
}

// hashAPIToken mirrors internal/handler's token hashing so a token
// presented on a request hashes to the same value stored at issuance.
func hashAPIToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return fmt.Sprintf("%x", sum)
}

// zerologMiddleware logs each request's method, path, status, and latency.
func zerologMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()

			log.Info().
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", res.Status).
				Dur("latency", time.Since(start)).
				Str("request_id", res.Header().Get(echo.HeaderXRequestID)).
				Msg("request")

			return nil
		}
	}
}
