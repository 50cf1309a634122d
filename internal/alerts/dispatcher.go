// Package alerts turns timer countdowns into operator notifications. It
// detects threshold crossings locally, forwards server-raised alerts, and
// manages looping warning sounds until they are acknowledged.
package alerts

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/BSTCMX/kidyland-dashboard-backup-sub009/internal/models"
)

// Source represents where a notification originated
type Source string

const (
	SourceLocal  Source = "local"  // detected by this client's countdown
	SourceServer Source = "server" // pushed by the venue server
)

// Notification is one alert ready for presentation.
type Notification struct {
	ID           string    `json:"id"`
	TimerID      string    `json:"timer_id,omitempty"`
	ServiceID    string    `json:"service_id,omitempty"`
	ChildName    string    `json:"child_name,omitempty"`
	ThresholdMin int       `json:"threshold_min,omitempty"`
	TimeLeftSec  int       `json:"time_left_seconds,omitempty"`
	Message      string    `json:"message"`
	Sound        bool      `json:"sound"`
	SoundLoop    bool      `json:"sound_loop"`
	Source       Source    `json:"source"`
	At           time.Time `json:"at"`
}

// Dispatcher fires each configured threshold at most once per timer as its
// countdown crosses downward. Dedup state is keyed by (timer id, threshold
// minutes) and is dropped when a timer leaves the snapshot, so an id that
// reappears later alerts again from a clean slate.
//
// Dispatcher methods are safe for concurrent use, but callbacks are invoked
// on the calling goroutine after internal locks are released.
type Dispatcher struct {
	cfg       Config
	clock     clockwork.Clock
	notify    func(Notification)
	soundStop func(timerID string)

	mu      sync.Mutex
	fired   map[string]map[int]bool
	looping map[string]*loopState
}

// loopState tracks one looping sound. sawAlert records that the server
// marked the timer's status alert after the loop started; leaving that
// status again is one of the stop conditions.
type loopState struct {
	sawAlert bool
}

// NewDispatcher builds a dispatcher. notify receives every emitted
// notification; soundStop is called with a timer id when its looping sound
// should stop. Either callback may be nil.
func NewDispatcher(cfg Config, clock clockwork.Clock, notify func(Notification), soundStop func(timerID string)) *Dispatcher {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Dispatcher{
		cfg:       cfg,
		clock:     clock,
		notify:    notify,
		soundStop: soundStop,
		fired:     make(map[string]map[int]bool),
		looping:   make(map[string]*loopState),
	}
}

// Evaluate runs one detection pass over the current timers. Only timers
// with an end timestamp are considered: without one there is no countdown
// to cross. A timer first observed already below a threshold fires that
// threshold immediately, which covers clients that start mid-session.
func (d *Dispatcher) Evaluate(ts []models.Timer) {
	now := d.clock.Now()
	var pending []Notification
	var stops []string

	d.mu.Lock()
	present := make(map[string]bool, len(ts))
	for _, t := range ts {
		present[t.ID] = true

		if ls, ok := d.looping[t.ID]; ok {
			if t.Status == models.TimerStatusAlert {
				ls.sawAlert = true
			} else if ls.sawAlert || t.Status == models.TimerStatusEnded {
				delete(d.looping, t.ID)
				stops = append(stops, t.ID)
			}
		}

		if !t.HasEnd() || t.Status == models.TimerStatusEnded {
			continue
		}

		marks := d.fired[t.ID]
		for _, th := range d.cfg.ThresholdsFor(t.ServiceID) {
			if marks[th.MinutesBefore] {
				continue
			}
			if t.TimeLeftSec > th.MinutesBefore*60 {
				continue
			}
			if marks == nil {
				marks = make(map[int]bool)
				d.fired[t.ID] = marks
			}
			marks[th.MinutesBefore] = true
			if th.SoundEnabled && th.SoundLoop {
				if _, ok := d.looping[t.ID]; !ok {
					d.looping[t.ID] = &loopState{}
				}
			}
			pending = append(pending, Notification{
				ID:           uuid.NewString(),
				TimerID:      t.ID,
				ServiceID:    t.ServiceID,
				ChildName:    t.ChildName,
				ThresholdMin: th.MinutesBefore,
				TimeLeftSec:  t.TimeLeftSec,
				Message:      fmt.Sprintf("%s has %d min left", t.ChildName, th.MinutesBefore),
				Sound:        th.SoundEnabled,
				SoundLoop:    th.SoundLoop,
				Source:       SourceLocal,
				At:           now,
			})
		}
	}

	// Drop state for timers that left the snapshot so a reappearing id
	// starts fresh, and kill any sound still looping for them.
	for id := range d.fired {
		if !present[id] {
			delete(d.fired, id)
		}
	}
	for id := range d.looping {
		if !present[id] {
			delete(d.looping, id)
			stops = append(stops, id)
		}
	}
	d.mu.Unlock()

	for _, id := range stops {
		d.stopSound(id)
	}
	for _, n := range pending {
		d.emit(n)
	}
}

// HandleServerAlert forwards a server-originated alert verbatim. The server
// owns dedup for its own alerts, so every message notifies; the sound is a
// one-shot chime, never a loop.
func (d *Dispatcher) HandleServerAlert(message string) {
	d.emit(Notification{
		ID:      uuid.NewString(),
		Message: message,
		Source:  SourceServer,
		Sound:   true,
		At:      d.clock.Now(),
	})
}

// Acknowledge marks a timer's alert as handled by the operator and stops
// its looping sound if one is playing.
func (d *Dispatcher) Acknowledge(timerID string) {
	d.mu.Lock()
	_, wasLooping := d.looping[timerID]
	delete(d.looping, timerID)
	d.mu.Unlock()
	if wasLooping {
		d.stopSound(timerID)
	}
}

// Looping returns the ids of timers whose warning sound is currently
// looping.
func (d *Dispatcher) Looping() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	ids := make([]string, 0, len(d.looping))
	for id := range d.looping {
		ids = append(ids, id)
	}
	return ids
}

func (d *Dispatcher) emit(n Notification) {
	if d.notify == nil {
		return
	}
	d.notify(n)
}

func (d *Dispatcher) stopSound(timerID string) {
	if d.soundStop == nil {
		return
	}
	d.soundStop(timerID)
}
