// cmd/syncd is the sync daemon (spec.md §3, §6): it polls active profiles
// on an interval and runs the full mail/statement/categorization pipeline
// for each, so a running dashboard always has fresh data without a user
// manually triggering a sync.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/sebascrugu/finanzas-tracker-go/internal/config"
	"github.com/sebascrugu/finanzas-tracker-go/internal/domain"
	"github.com/sebascrugu/finanzas-tracker-go/internal/ingest"
	"github.com/sebascrugu/finanzas-tracker-go/internal/repository/postgres"
	"github.com/sebascrugu/finanzas-tracker-go/internal/websocket"
)

// pollInterval is how often syncd wakes to check active profiles. spec.md
// §3 tolerates "minutes to hours" staleness, so a short poll costs nothing
// and lets a manually-triggered sync (cmd/api's /sync endpoint) surface
// quickly without a separate notification channel.
const pollInterval = 5 * time.Minute

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if os.Getenv("ENV") != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ping database")
	}

	// syncd serves no WebSocket endpoint, so no dashboard client registers
	// with this Hub and the events the engine publishes through it reach no
	// watcher; dashboards connect to cmd/api's own Hub instead.
	hub := websocket.NewHub()

	engine, err := ingest.New(ctx, cfg, pool, hub)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to wire ingestion engine")
	}

	profileRepo := postgres.NewProfileRepository(pool, postgres.NewTxHolder())

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	log.Info().Dur("interval", pollInterval).Msg("syncd started")

	runAll(ctx, engine, profileRepo)

	for {
		select {
		case <-ticker.C:
			runAll(ctx, engine, profileRepo)
		case <-quit:
			log.Info().Msg("syncd shutting down")
			return
		}
	}
}

// runAll runs one sync pass over every active profile. A profile whose
// sync fails (auth, network, parse) is logged and skipped — it never stops
// the rest of the fleet from syncing (spec.md §7: "skip the record, not
// the run").
func runAll(ctx context.Context, engine *ingest.Engine, profiles domain.ProfileRepository) {
	actives, err := profiles.ListActive()
	if err != nil {
		log.Error().Err(err).Msg("failed to list active profiles")
		return
	}

	for _, profile := range actives {
		result, err := engine.RunProfile(ctx, profile.ID)
		logEvent := log.Info()
		if err != nil {
			logEvent = log.Error().Err(err)
		}
		logEvent.
			Str("profile_id", profile.ID).
			Int("processed", result.Processed).
			Int("duplicates", result.Duplicates).
			Int("errors", result.Errors).
			Int("auto_categorized", result.AutoCategorized).
			Int("needs_review", result.NeedsReview).
			Msg("sync pass finished")
	}
}
