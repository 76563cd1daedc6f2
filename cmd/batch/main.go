// cmd/batch is the one-shot CLI sync runner (spec.md §6): it runs a single
// ingestion pass for one profile (or every active profile) and exits with
// a code identifying the outcome, for use from a cron entry or a manual
// operator invocation rather than the always-on syncd daemon.
package main

import (
	"context"
	"errors"
	"flag"
	"os"
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

func main() {
	profileID := flag.String("profile", "", "profile id to sync (default: every active profile)")
	flag.Parse()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Error().Err(err).Msg("failed to load configuration")
		os.Exit(domain.ExitGenericFailure)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error().Err(err).Msg("failed to connect to database")
		os.Exit(domain.ExitDBUnreachable)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Error().Err(err).Msg("failed to ping database")
		os.Exit(domain.ExitDBUnreachable)
	}

	engine, err := ingest.New(ctx, cfg, pool, &websocket.NoOpPublisher{})
	if err != nil {
		log.Error().Err(err).Msg("failed to wire ingestion engine")
		os.Exit(domain.ExitGenericFailure)
	}

	profileRepo := postgres.NewProfileRepository(pool, postgres.NewTxHolder())

	ids, err := targetProfiles(profileRepo, *profileID)
	if err != nil {
		log.Error().Err(err).Msg("failed to resolve target profiles")
		os.Exit(exitCodeFor(err))
	}

	var total domain.BatchResult
	var runErr error
	for _, id := range ids {
		result, err := engine.RunProfile(ctx, id)
		total.Merge(result)
		if err != nil {
			runErr = err
			log.Error().Err(err).Str("profile_id", id).Msg("sync run failed")
		}
	}

	log.Info().
		Int("processed", total.Processed).
		Int("duplicates", total.Duplicates).
		Int("errors", total.Errors).
		Int("auto_categorized", total.AutoCategorized).
		Int("needs_review", total.NeedsReview).
		Msg("batch run finished")

	if runErr != nil {
		os.Exit(exitCodeFor(runErr))
	}
	os.Exit(domain.ExitSuccess)
}

// targetProfiles resolves the -profile flag to the set of profile ids to
// run: the named profile if given, otherwise every active profile.
func targetProfiles(repo domain.ProfileRepository, profileID string) ([]string, error) {
	if profileID != "" {
		if _, err := repo.GetByID(profileID); err != nil {
			return nil, err
		}
		return []string{profileID}, nil
	}

	actives, err := repo.ListActive()
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(actives))
	for _, p := range actives {
		ids = append(ids, p.ID)
	}
	return ids, nil
}

// exitCodeFor maps a sync failure to the exit codes spec.md §6 defines:
// ExitAuthFailure for a mail-provider auth failure, ExitDBUnreachable for an
// unreachable database, and ExitGenericFailure for everything else.
func exitCodeFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrMailAuthFailed):
		return domain.ExitAuthFailure
	case errors.Is(err, domain.ErrDatabaseUnreachable):
		return domain.ExitDBUnreachable
	default:
		return domain.ExitGenericFailure
	}
}
