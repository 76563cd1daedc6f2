package syncstrategy

import (
	"sync"

	"github.com/sebascrugu/finanzas-tracker-go/internal/domain"
)

// Locker guards a per-profile critical section so two sync runs for the
// same profile never overlap, while runs for different profiles proceed
// concurrently (spec.md §5: "never more than one sync for the same profile
// at a time").
type Locker struct {
	mu       sync.Mutex
	inFlight map[string]bool
}

func NewLocker() *Locker {
	return &Locker{inFlight: make(map[string]bool)}
}

// TryLock claims the profile's lock, returning domain.ErrSyncAlreadyRunning
// if a sync for this profile is already running. On success, call the
// returned release func when the run finishes (success or failure).
func (l *Locker) TryLock(profileID string) (release func(), err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.inFlight[profileID] {
		return nil, domain.ErrSyncAlreadyRunning
	}
	l.inFlight[profileID] = true

	return func() {
		l.mu.Lock()
		delete(l.inFlight, profileID)
		l.mu.Unlock()
	}, nil
}
