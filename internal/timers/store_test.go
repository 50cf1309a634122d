package timers

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/BSTCMX/kidyland-dashboard-backup-sub009/internal/models"
)

func fixedClock() *clockwork.FakeClock {
	return clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 17, 0, 0, 0, time.UTC))
}

func activeTimer(id string, now time.Time, endIn time.Duration) models.Timer {
	end := now.Add(endIn)
	return models.Timer{
		ID:          id,
		SaleID:      "sale-" + id,
		ChildName:   "child-" + id,
		Status:      models.TimerStatusActive,
		EndAt:       &end,
		TimeLeftSec: int(endIn.Seconds()),
	}
}

func TestStore_ApplySnapshotPreservesOrder(t *testing.T) {
	clock := fixedClock()
	s := NewStore(clock)

	now := clock.Now()
	s.ApplySnapshot([]models.Timer{
		activeTimer("c", now, 30*time.Minute),
		activeTimer("a", now, 10*time.Minute),
		activeTimer("b", now, 20*time.Minute),
	})

	got := s.Snapshot()
	wantOrder := []string{"c", "a", "b"}
	if len(got) != len(wantOrder) {
		t.Fatalf("got %d timers, want %d", len(got), len(wantOrder))
	}
	for i, id := range wantOrder {
		if got[i].ID != id {
			t.Fatalf("position %d: got %s, want %s", i, got[i].ID, id)
		}
	}
}

func TestStore_SnapshotReplacesWholesale(t *testing.T) {
	clock := fixedClock()
	s := NewStore(clock)
	now := clock.Now()

	s.ApplySnapshot([]models.Timer{
		activeTimer("a", now, 10*time.Minute),
		activeTimer("b", now, 20*time.Minute),
	})

	// b ends server-side and disappears; d is new.
	s.ApplySnapshot([]models.Timer{
		activeTimer("a", now, 10*time.Minute),
		activeTimer("d", now, 45*time.Minute),
	})

	if _, ok := s.Get("b"); ok {
		t.Fatal("timer b must be gone after a snapshot without it")
	}
	if _, ok := s.Get("d"); !ok {
		t.Fatal("timer d missing after snapshot")
	}
	if s.Len() != 2 {
		t.Fatalf("got %d timers, want 2", s.Len())
	}

	// An empty snapshot empties the store.
	s.ApplySnapshot(nil)
	if s.Len() != 0 {
		t.Fatalf("got %d timers after empty snapshot, want 0", s.Len())
	}
}

func TestStore_TickCountsDownFromEndAt(t *testing.T) {
	clock := fixedClock()
	s := NewStore(clock)
	now := clock.Now()

	s.ApplySnapshot([]models.Timer{activeTimer("a", now, 2*time.Minute)})

	clock.Advance(30 * time.Second)
	got := s.Tick()
	if got[0].TimeLeftSec != 90 {
		t.Fatalf("after 30s: got %d, want 90", got[0].TimeLeftSec)
	}

	clock.Advance(60 * time.Second)
	got = s.Tick()
	if got[0].TimeLeftSec != 30 {
		t.Fatalf("after 90s: got %d, want 30", got[0].TimeLeftSec)
	}

	// Past the end the countdown clamps at zero and stays there.
	clock.Advance(5 * time.Minute)
	got = s.Tick()
	if got[0].TimeLeftSec != 0 {
		t.Fatalf("past end: got %d, want 0", got[0].TimeLeftSec)
	}
	if got[0].Status != models.TimerStatusActive {
		t.Fatalf("tick must not change status, got %s", got[0].Status)
	}
}

func TestStore_TickHoldsValueWithoutEndAt(t *testing.T) {
	clock := fixedClock()
	s := NewStore(clock)

	scheduled := models.Timer{
		ID:            "sch",
		SaleID:        "sale-sch",
		ChildName:     "Mateo",
		Status:        models.TimerStatusScheduled,
		StartDelayMin: 30,
		TimeLeftSec:   3600,
	}
	s.ApplySnapshot([]models.Timer{scheduled})

	clock.Advance(10 * time.Minute)
	got := s.Tick()
	if got[0].TimeLeftSec != 3600 {
		t.Fatalf("scheduled timer drifted: got %d, want 3600", got[0].TimeLeftSec)
	}
}

func TestStore_ApplySnapshotRecomputesStaleHint(t *testing.T) {
	clock := fixedClock()
	s := NewStore(clock)
	now := clock.Now()

	// The push says 999 seconds but end_at is only a minute away.
	tm := activeTimer("a", now, time.Minute)
	tm.TimeLeftSec = 999
	s.ApplySnapshot([]models.Timer{tm})

	got, ok := s.Get("a")
	if !ok {
		t.Fatal("timer a missing")
	}
	if got.TimeLeftSec != 60 {
		t.Fatalf("got %d, want 60 from end_at", got.TimeLeftSec)
	}
}

func TestStore_LastUpdate(t *testing.T) {
	clock := fixedClock()
	s := NewStore(clock)

	if !s.LastUpdate().IsZero() {
		t.Fatal("LastUpdate must be zero before the first snapshot")
	}

	s.ApplySnapshot(nil)
	if !s.LastUpdate().Equal(clock.Now()) {
		t.Fatalf("got %v, want %v", s.LastUpdate(), clock.Now())
	}
}

func TestStore_DuplicateIDKeepsFirstPosition(t *testing.T) {
	clock := fixedClock()
	s := NewStore(clock)
	now := clock.Now()

	first := activeTimer("a", now, 10*time.Minute)
	second := activeTimer("a", now, 20*time.Minute)
	s.ApplySnapshot([]models.Timer{first, activeTimer("b", now, 5*time.Minute), second})

	got := s.Snapshot()
	if len(got) != 2 {
		t.Fatalf("got %d timers, want 2", len(got))
	}
	if got[0].ID != "a" || got[1].ID != "b" {
		t.Fatalf("bad order: %s, %s", got[0].ID, got[1].ID)
	}
	// Last occurrence wins for the value.
	if got[0].TimeLeftSec != 1200 {
		t.Fatalf("got %d, want 1200", got[0].TimeLeftSec)
	}
}
