package ingest

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/sebascrugu/finanzas-tracker-go/internal/categorize"
	"github.com/sebascrugu/finanzas-tracker-go/internal/config"
	"github.com/sebascrugu/finanzas-tracker-go/internal/domain"
	"github.com/sebascrugu/finanzas-tracker-go/internal/emailparser"
	"github.com/sebascrugu/finanzas-tracker-go/internal/fxcache"
	"github.com/sebascrugu/finanzas-tracker-go/internal/llmclient"
	"github.com/sebascrugu/finanzas-tracker-go/internal/mailclient"
	"github.com/sebascrugu/finanzas-tracker-go/internal/merchant"
	"github.com/sebascrugu/finanzas-tracker-go/internal/pdfparser"
	"github.com/sebascrugu/finanzas-tracker-go/internal/repository/postgres"
	"github.com/sebascrugu/finanzas-tracker-go/internal/repository/storage"
	"github.com/sebascrugu/finanzas-tracker-go/internal/syncstrategy"
	"github.com/sebascrugu/finanzas-tracker-go/internal/websocket"
)

// New wires an Engine from a loaded Config and an open pool, so cmd/api,
// cmd/syncd and cmd/batch never duplicate this construction (spec.md §4.9,
// §6). publisher is the only piece that differs between the callers:
// cmd/api and cmd/syncd pass a real websocket.Hub, cmd/batch a
// websocket.NoOpPublisher.
func New(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, publisher websocket.EventPublisher) (*Engine, error) {
	txHolder := postgres.NewTxHolder()

	profileRepo := postgres.NewProfileRepository(pool, txHolder)
	transactionRepo := postgres.NewTransactionRepository(pool, txHolder)
	statementRepo := postgres.NewBankStatementRepository(pool, txHolder)
	subscriptionRepo := postgres.NewSubscriptionRepository(pool, txHolder)
	alertRepo := postgres.NewAlertRepository(pool, txHolder)
	patternRepo := postgres.NewLearnedPatternRepository(pool, txHolder)
	globalSuggestionRepo := postgres.NewGlobalSuggestionRepository(pool, txHolder)
	contactRepo := postgres.NewContactRepository(pool, txHolder)
	cardRepo := postgres.NewCardRepository(pool, txHolder)
	merchantRepo := postgres.NewMerchantRepository(pool, txHolder)
	subcategoryRepo := postgres.NewSubcategoryRepository(pool, txHolder)
	exchangeRateRepo := postgres.NewExchangeRateRepository(pool, txHolder)

	mailClient := mailclient.New(mailclient.Config{
		BaseURL:             cfg.MailProviderBaseURL,
		Token:               cfg.MailProviderToken,
		NotificationAddress: cfg.NotificationAddress,
		Timeout:             cfg.OutboundTimeout,
		RetryAttempts:       cfg.RetryAttempts,
		RequestsPerSecond:   2,
	})

	parsers := emailparser.NewRegistry(emailparser.NewBACParser(), emailparser.NewPopularParser())

	var llm *llmclient.Client
	if cfg.AnthropicAPIKey != "" {
		llm = llmclient.New(cfg.AnthropicAPIKey, cfg.LLMModel)
	}

	defaultRate, err := decimal.NewFromString(cfg.DefaultFXRate)
	if err != nil {
		return nil, fmt.Errorf("ingest: parsing FX_DEFAULT_RATE: %w", err)
	}
	var providers []fxcache.Provider
	if cfg.PrimaryFXProviderURL != "" {
		providers = append(providers, fxcache.NewHTTPProvider(domain.RateSourcePrimaryOfficial, cfg.PrimaryFXProviderURL, cfg.OutboundTimeout))
	}
	if cfg.FallbackFXProviderURL != "" {
		providers = append(providers, fxcache.NewHTTPProvider(domain.RateSourceFallbackAPI, cfg.FallbackFXProviderURL, cfg.OutboundTimeout))
	}
	fxCache := fxcache.New(exchangeRateRepo, providers, defaultRate)

	var cascadeLLM categorize.LLMCategorizer
	if llm != nil {
		cascadeLLM = llm
	}
	cascade := categorize.New(patternRepo, contactRepo, transactionRepo, globalSuggestionRepo, subcategoryRepo, cascadeLLM)

	archive, err := storage.NewS3PDFArchive(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("ingest: connecting to statement archive: %w", err)
	}

	var rowExtractor pdfparser.LLMRowExtractor
	if llm != nil {
		rowExtractor = llm
	}

	return &Engine{
		Mail:       mailClient,
		Parsers:    parsers,
		Normalizer: merchant.New(merchantRepo),
		FX:         fxCache,
		Cascade:    cascade,
		Archive:    archive,
		LLMRows:    rowExtractor,

		Profiles:      profileRepo,
		Transactions:  transactionRepo,
		Statements:    statementRepo,
		Cards:         cardRepo,
		Subscriptions: subscriptionRepo,
		Alerts:        alertRepo,

		Locker:  syncstrategy.NewLocker(),
		SyncCfg: syncstrategy.DefaultConfig(),

		Publisher:           publisher,
		SenderAllowlist:     cfg.SenderAllowlist,
		NotificationAddress: cfg.NotificationAddress,
	}, nil
}
