package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application, read once at startup
// (spec.md §6: "No runtime-mutable configuration").
type Config struct {
	// Database
	DatabaseURL string

	// Auth0 (dashboard API, optional)
	Auth0Domain   string
	Auth0Audience string

	// Mail provider
	MailProviderBaseURL string
	MailProviderToken   string
	SenderAllowlist     []string
	NotificationAddress string // bypasses the exclusion heuristic (spec.md §4.1)

	// Exchange-rate providers
	PrimaryFXProviderURL  string
	FallbackFXProviderURL string
	DefaultFXRate         string // decimal string; last-resort constant

	// LLM provider
	AnthropicAPIKey string
	LLMModel        string

	// Object storage (PDF attachment archive)
	Storage StorageConfig

	// Server
	Port        string
	CORSOrigins []string
	Env         string
	LogLevel    string

	// Outbound call tuning (spec.md §5: default 30s timeout, >=3 retries)
	OutboundTimeout time.Duration
	RetryAttempts   int

	// Sync strategy
	TraslapeDays int

	// RequireAuth gates the dashboard API behind Auth0. Disabled by default
	// for a single local profile; turn on for a network-exposed deployment.
	RequireAuth bool

	// ErrorDocsBaseURL prefixes the `type` field of every RFC 7807 problem
	// details response the API returns (internal/middleware/errors.go).
	ErrorDocsBaseURL string
}

// StorageConfig holds S3/MinIO configuration for the PDF attachment archive,
// adapted from the teacher's MinIOConfig.
type StorageConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	UseSSL          bool
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	timeoutSeconds := getEnvInt("OUTBOUND_TIMEOUT_SECONDS", 30)
	retryAttempts := getEnvInt("RETRY_ATTEMPTS", 3)
	traslapeDays := getEnvInt("TRASLAPE_DAYS", 5)

	cfg := &Config{
		DatabaseURL: getEnv("DATABASE_URL", ""),

		Auth0Domain:   getEnv("AUTH0_DOMAIN", ""),
		Auth0Audience: getEnv("AUTH0_AUDIENCE", ""),

		MailProviderBaseURL: getEnv("MAIL_PROVIDER_BASE_URL", ""),
		MailProviderToken:   getEnv("MAIL_PROVIDER_TOKEN", ""),
		SenderAllowlist:     splitNonEmpty(getEnv("MAIL_SENDER_ALLOWLIST", "")),
		NotificationAddress: getEnv("MAIL_NOTIFICATION_ADDRESS", ""),

		PrimaryFXProviderURL:  getEnv("FX_PRIMARY_PROVIDER_URL", ""),
		FallbackFXProviderURL: getEnv("FX_FALLBACK_PROVIDER_URL", ""),
		DefaultFXRate:         getEnv("FX_DEFAULT_RATE", "1"),

		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		LLMModel:        getEnv("LLM_MODEL", "claude-sonnet-4-20250514"),

		Storage: StorageConfig{
			Endpoint:        getEnv("STORAGE_ENDPOINT", "localhost:9000"),
			AccessKeyID:     getEnv("STORAGE_ACCESS_KEY", ""),
			SecretAccessKey: getEnv("STORAGE_SECRET_KEY", ""),
			BucketName:      getEnv("STORAGE_BUCKET", "finanzas-statements"),
			UseSSL:          getEnv("STORAGE_USE_SSL", "false") == "true",
		},

		Port:        getEnv("PORT", "8080"),
		CORSOrigins: splitNonEmpty(getEnv("CORS_ORIGINS", "http://localhost:3000")),
		Env:         getEnv("ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		OutboundTimeout: time.Duration(timeoutSeconds) * time.Second,
		RetryAttempts:   retryAttempts,
		TraslapeDays:    traslapeDays,
		RequireAuth:     getEnv("REQUIRE_AUTH", "false") == "true",

		ErrorDocsBaseURL: getEnv("ERROR_DOCS_BASE_URL", "https://finanzas-tracker.app/errors"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.MailProviderBaseURL == "" {
		return fmt.Errorf("MAIL_PROVIDER_BASE_URL is required")
	}
	if c.RequireAuth && (c.Auth0Domain == "" || c.Auth0Audience == "") {
		return fmt.Errorf("AUTH0_DOMAIN and AUTH0_AUDIENCE are required when REQUIRE_AUTH=true")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func splitNonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
