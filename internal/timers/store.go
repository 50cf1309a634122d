// Package timers holds the client-side projection of the venue's active
// timers. The server owns the truth; the store reconciles each pushed
// snapshot and keeps the countdowns moving between pushes.
package timers

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/BSTCMX/kidyland-dashboard-backup-sub009/internal/models"
)

// Store reconciles full timer snapshots and recomputes remaining time from
// each timer's end timestamp. It is passive: it mutates state only when
// ApplySnapshot or Tick is called, so the caller controls the cadence and
// can drive it from a fake clock in tests.
//
// Insertion order of the last snapshot is preserved in all listings.
type Store struct {
	clock clockwork.Clock

	mu         sync.RWMutex
	order      []string
	byID       map[string]models.Timer
	lastUpdate time.Time
}

// NewStore builds an empty store. A nil clock falls back to the real clock.
func NewStore(clock clockwork.Clock) *Store {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Store{
		clock: clock,
		byID:  make(map[string]models.Timer),
	}
}

// ApplySnapshot replaces the held collection with the pushed one. Timers
// absent from the snapshot are gone afterwards; an empty snapshot empties
// the store. Countdowns are immediately recomputed against the clock so a
// stale pushed time_left_seconds never survives the swap.
func (s *Store) ApplySnapshot(snapshot []models.Timer) {
	now := s.clock.Now()
	order := make([]string, 0, len(snapshot))
	byID := make(map[string]models.Timer, len(snapshot))
	for _, t := range snapshot {
		if t.HasEnd() {
			t.TimeLeftSec = t.RemainingSeconds(now)
		}
		if _, dup := byID[t.ID]; !dup {
			order = append(order, t.ID)
		}
		byID[t.ID] = t
	}

	s.mu.Lock()
	s.order = order
	s.byID = byID
	s.lastUpdate = now
	s.mu.Unlock()
}

// Tick recomputes every countdown from its end timestamp and returns the
// resulting timers in snapshot order. Timers without an end timestamp keep
// the value the server pushed. Tick never changes a timer's status; only
// the server moves timers through their lifecycle.
func (s *Store) Tick() []models.Timer {
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Timer, 0, len(s.order))
	for _, id := range s.order {
		t := s.byID[id]
		if t.HasEnd() {
			t.TimeLeftSec = t.RemainingSeconds(now)
			s.byID[id] = t
		}
		out = append(out, t)
	}
	return out
}

// Snapshot returns the timers in snapshot order without recomputing them.
func (s *Store) Snapshot() []models.Timer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Timer, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out
}

// Get returns one timer by id.
func (s *Store) Get(id string) (models.Timer, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.byID[id]
	return t, ok
}

// Len returns the number of held timers.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// LastUpdate returns when the last snapshot was applied, zero before the
// first one.
func (s *Store) LastUpdate() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastUpdate
}
