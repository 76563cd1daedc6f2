package syncstrategy

import (
	"sync"
	"testing"
	"time"

	"github.com/sebascrugu/finanzas-tracker-go/internal/domain"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestSelectMode_NeverSyncedIsOnboarding(t *testing.T) {
	profile := &domain.Profile{}
	if got := SelectMode(profile, date(2026, 7, 30)); got != ModeOnboarding {
		t.Errorf("SelectMode = %s, want onboarding", got)
	}
}

func TestSelectMode_SyncedButNoStatementIsDaily(t *testing.T) {
	lastSync := date(2026, 7, 29)
	profile := &domain.Profile{LastSyncDate: &lastSync}
	if got := SelectMode(profile, date(2026, 7, 30)); got != ModeDaily {
		t.Errorf("SelectMode = %s, want daily", got)
	}
}

func TestSelectMode_BeforeNextStatementIsDaily(t *testing.T) {
	lastSync := date(2026, 7, 15)
	lastStatement := date(2026, 7, 1)
	profile := &domain.Profile{LastSyncDate: &lastSync, LastStatementDate: &lastStatement, StatementCycleDays: 30}
	if got := SelectMode(profile, date(2026, 7, 20)); got != ModeDaily {
		t.Errorf("SelectMode = %s, want daily", got)
	}
}

func TestSelectMode_OnOrAfterNextStatementIsMonthly(t *testing.T) {
	lastSync := date(2026, 7, 15)
	lastStatement := date(2026, 7, 1)
	profile := &domain.Profile{LastSyncDate: &lastSync, LastStatementDate: &lastStatement, StatementCycleDays: 30}
	if got := SelectMode(profile, date(2026, 7, 31)); got != ModeMonthly {
		t.Errorf("SelectMode = %s, want monthly", got)
	}
}

func TestSelectMode_UsesDefaultCycleWhenUnset(t *testing.T) {
	lastSync := date(2026, 7, 1)
	lastStatement := date(2026, 6, 10)
	profile := &domain.Profile{LastSyncDate: &lastSync, LastStatementDate: &lastStatement, StatementCycleDays: 0}
	if got := SelectMode(profile, date(2026, 7, 5)); got != ModeDaily {
		t.Errorf("SelectMode = %s, want daily (within default 30-day cycle)", got)
	}
}

func TestOnboardingGapWindow_StartsTraslapeBeforeCutDate(t *testing.T) {
	cfg := DefaultConfig()
	cutDate := date(2026, 7, 10)
	today := date(2026, 7, 30)
	start, end := OnboardingGapWindow(cutDate, today, cfg)
	if !start.Equal(date(2026, 7, 5)) {
		t.Errorf("start = %v, want 2026-07-05", start)
	}
	if !end.Equal(today) {
		t.Errorf("end = %v, want today", end)
	}
}

func TestMonthlyGapWindow_StartsAtPreviousStatementDate(t *testing.T) {
	prev := date(2026, 6, 1)
	today := date(2026, 7, 30)
	start, end := MonthlyGapWindow(prev, today)
	if !start.Equal(prev) || !end.Equal(today) {
		t.Errorf("got (%v,%v), want (%v,%v)", start, end, prev, today)
	}
}

func TestDailyEmailWindow_UsesLastSyncDateWhenSet(t *testing.T) {
	last := date(2026, 7, 28)
	today := date(2026, 7, 30)
	start, end := DailyEmailWindow(&last, today)
	if !start.Equal(last) || !end.Equal(today) {
		t.Errorf("got (%v,%v), want (%v,%v)", start, end, last, today)
	}
}

func TestDailyEmailWindow_FallsBackToYesterday(t *testing.T) {
	today := date(2026, 7, 30)
	start, end := DailyEmailWindow(nil, today)
	if !start.Equal(date(2026, 7, 29)) || !end.Equal(today) {
		t.Errorf("got (%v,%v), want yesterday..today", start, end)
	}
}

func TestNoStatementFallbackWindow_StartsFirstOfPreviousMonth(t *testing.T) {
	today := date(2026, 7, 30)
	start, _ := NoStatementFallbackWindow(today)
	if !start.Equal(date(2026, 6, 1)) {
		t.Errorf("start = %v, want 2026-06-01", start)
	}
}

func TestNoStatementFallbackWindow_HandlesJanuaryRollover(t *testing.T) {
	today := date(2026, 1, 15)
	start, _ := NoStatementFallbackWindow(today)
	if !start.Equal(date(2025, 12, 1)) {
		t.Errorf("start = %v, want 2025-12-01", start)
	}
}

func TestInferCycleDays_ComputesGapBetweenStatements(t *testing.T) {
	got := InferCycleDays(date(2026, 7, 1), date(2026, 6, 1))
	if got != 30 {
		t.Errorf("InferCycleDays = %d, want 30", got)
	}
}

func TestInferCycleDays_FallsBackOnNonPositiveGap(t *testing.T) {
	got := InferCycleDays(date(2026, 6, 1), date(2026, 7, 1))
	if got != domain.DefaultStatementCycleDays {
		t.Errorf("InferCycleDays = %d, want default %d", got, domain.DefaultStatementCycleDays)
	}
}

func TestLocker_RejectsConcurrentLockForSameProfile(t *testing.T) {
	l := NewLocker()

	release, err := l.TryLock("p1")
	if err != nil {
		t.Fatalf("first TryLock failed: %v", err)
	}
	defer release()

	if _, err := l.TryLock("p1"); err != domain.ErrSyncAlreadyRunning {
		t.Errorf("second TryLock err = %v, want ErrSyncAlreadyRunning", err)
	}
}

func TestLocker_AllowsDifferentProfilesConcurrently(t *testing.T) {
	l := NewLocker()

	release1, err := l.TryLock("p1")
	if err != nil {
		t.Fatalf("TryLock(p1) failed: %v", err)
	}
	defer release1()

	release2, err := l.TryLock("p2")
	if err != nil {
		t.Fatalf("TryLock(p2) failed: %v", err)
	}
	defer release2()
}

func TestLocker_ReleaseAllowsRelock(t *testing.T) {
	l := NewLocker()

	release, err := l.TryLock("p1")
	if err != nil {
		t.Fatalf("TryLock failed: %v", err)
	}
	release()

	if _, err := l.TryLock("p1"); err != nil {
		t.Errorf("expected relock to succeed after release, got %v", err)
	}
}

func TestLocker_ConcurrentAttemptsAtLeastOneSucceeds(t *testing.T) {
	l := NewLocker()
	var wg sync.WaitGroup
	successCount := 0
	var mu sync.Mutex

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if release, err := l.TryLock("shared"); err == nil {
				mu.Lock()
				successCount++
				mu.Unlock()
				release()
			}
		}()
	}
	wg.Wait()

	if successCount == 0 {
		t.Error("expected at least one lock attempt to succeed")
	}
}
