package syncstrategy

import (
	"time"

	"github.com/sebascrugu/finanzas-tracker-go/internal/domain"
)

// OnboardingGapWindow is the email window an onboarding sync fills after
// processing the most recent PDF statement found: from (cutDate -
// TraslapeDays) to today, so the email and PDF streams reliably overlap and
// dedup can collapse the duplicates (spec.md §4.9).
func OnboardingGapWindow(cutDate, today time.Time, cfg Config) (start, end time.Time) {
	return cutDate.AddDate(0, 0, -cfg.TraslapeDays), today
}

// NoStatementFallbackWindow is the email-only window onboarding falls back
// to when no PDF statement turns up in the lookback period: from the 1st of
// the previous calendar month to today (ported from
// `original_source/services/sync_strategy.py`'s onboarding no-PDF branch,
// not present in spec.md's table but a real edge case the distillation
// dropped).
func NoStatementFallbackWindow(today time.Time) (start, end time.Time) {
	firstOfThisMonth := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location())
	return firstOfThisMonth.AddDate(0, -1, 0), today
}

// MonthlyGapWindow is the email window a monthly sync fills after a new
// statement is found: from the previous last_statement_date to today
// (spec.md §4.9 "gap-fill from previous last_statement_date to today").
func MonthlyGapWindow(previousLastStatementDate, today time.Time) (start, end time.Time) {
	return previousLastStatementDate, today
}

// DailyEmailWindow is the plain incremental email window for a daily sync:
// since last_sync_date, or yesterday if the profile has never synced
// (spec.md §4.9).
func DailyEmailWindow(lastSyncDate *time.Time, today time.Time) (start, end time.Time) {
	if lastSyncDate != nil {
		return *lastSyncDate, today
	}
	return today.AddDate(0, 0, -1), today
}

// InferCycleDays derives statement_cycle_days from the two most recent
// statement dates found during an onboarding sync, when at least two
// statements are available (spec.md §4.9 "infer statement_cycle_days if
// >=2 statements"). Returns the default cycle if the gap is non-positive
// (e.g. statements arrived out of order).
func InferCycleDays(mostRecent, previous time.Time) int {
	days := int(mostRecent.Sub(previous).Hours() / 24)
	if days <= 0 {
		return domain.DefaultStatementCycleDays
	}
	return days
}
