// Package syncstrategy implements the per-profile Sync Strategy state
// machine (spec.md §4.9): which of the three sync modes applies today, the
// gap-fill windows each mode computes, and the per-profile lock that keeps
// two sync runs for the same profile from overlapping (spec.md §5).
package syncstrategy

import (
	"time"

	"github.com/sebascrugu/finanzas-tracker-go/internal/domain"
)

// Mode is one of the three sync modes spec.md §4.9 defines.
type Mode string

const (
	ModeOnboarding Mode = "onboarding"
	ModeDaily      Mode = "daily"
	ModeMonthly    Mode = "monthly"
)

// Config holds the tunables the mode/window decisions read. TraslapeDays is
// the only place the traslape/overlap constant lives (Open Question #3,
// spec.md §9) -- nothing else in the codebase hardcodes it.
type Config struct {
	TraslapeDays               int
	OnboardingLookbackDays     int
	MonthlyStatementSearchDays int
}

// DefaultConfig mirrors spec.md §4.9's literal numbers: a 90-day onboarding
// PDF lookback, a 5-day traslape, and the original detector's 10-day
// monthly re-search window (`sync_strategy.py`'s `_monthly_sync`).
func DefaultConfig() Config {
	return Config{
		TraslapeDays:               domain.DefaultTraslapeDays,
		OnboardingLookbackDays:     90,
		MonthlyStatementSearchDays: 10,
	}
}

// SelectMode implements the spec.md §4.9 mode-selection table.
func SelectMode(profile *domain.Profile, today time.Time) Mode {
	if profile.LastSyncDate == nil {
		return ModeOnboarding
	}
	if profile.LastStatementDate == nil {
		// Synced before but never saw a statement (the onboarding no-PDF
		// fallback path) -- keep behaving like a daily incremental sync
		// until a statement eventually shows up.
		return ModeDaily
	}

	cycle := profile.StatementCycleDays
	if cycle <= 0 {
		cycle = domain.DefaultStatementCycleDays
	}
	nextStatement := profile.LastStatementDate.AddDate(0, 0, cycle)

	if !today.Before(nextStatement) {
		return ModeMonthly
	}
	return ModeDaily
}
