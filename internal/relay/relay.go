// Package relay bridges one sucursal's realtime feed onto JetStream so
// back-office consumers (reporting, auditing) can replay venue activity
// without holding a WebSocket of their own.
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/BSTCMX/kidyland-dashboard-backup-sub009/internal/feed"
)

// Envelope is the message shape written to JetStream. Payload carries the
// feed event re-marshaled by type; for unrecognized event types it is the
// original frame untouched.
type Envelope struct {
	EventID    string          `json:"event_id"`
	SucursalID string          `json:"sucursal_id"`
	Type       feed.EventType  `json:"type"`
	At         time.Time       `json:"at"`
	Payload    json.RawMessage `json:"payload"`
}

// Relay pumps decoded feed events into the JetStream publisher. Publish
// failures log and continue: the feed snapshots are self-healing, so a
// missed relay message is recovered by the next push.
type Relay struct {
	client     *feed.Client
	pub        *JetStreamPublisher
	sucursalID string
	clock      clockwork.Clock

	mu      sync.Mutex
	relayed int64
	failed  int64
}

// New builds a relay over an unstarted feed client and a connected
// publisher. A nil clock falls back to the real clock.
func New(client *feed.Client, pub *JetStreamPublisher, sucursalID string, clock clockwork.Clock) *Relay {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Relay{
		client:     client,
		pub:        pub,
		sucursalID: sucursalID,
		clock:      clock,
	}
}

// Run connects the feed and pumps events until ctx is cancelled or the
// feed client shuts down.
func (r *Relay) Run(ctx context.Context) error {
	if err := r.client.Connect(ctx); err != nil {
		return fmt.Errorf("connect feed: %w", err)
	}

	events := r.client.Events()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			r.relay(ctx, ev)
		}
	}
}

// Stats returns how many events were relayed and how many failed.
func (r *Relay) Stats() (relayed, failed int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.relayed, r.failed
}

func (r *Relay) relay(ctx context.Context, ev feed.Event) {
	env, err := eventToEnvelope(ev, r.sucursalID, r.clock.Now())
	if err != nil {
		r.bumpFailed()
		log.Warn().
			Err(err).
			Str("event_type", string(ev.Type())).
			Msg("failed to build relay envelope")
		return
	}

	if err := r.pub.Publish(ctx, env); err != nil {
		r.bumpFailed()
		log.Error().
			Err(err).
			Str("event_type", string(ev.Type())).
			Str("event_id", env.EventID).
			Msg("failed to relay feed event")
		return
	}
	r.bumpRelayed()
}

// eventToEnvelope re-marshals a decoded event into the relay envelope.
func eventToEnvelope(ev feed.Event, sucursalID string, at time.Time) (Envelope, error) {
	env := Envelope{
		EventID:    uuid.NewString(),
		SucursalID: sucursalID,
		Type:       ev.Type(),
		At:         at,
	}

	switch ev := ev.(type) {
	case feed.UnknownEvent:
		env.Payload = ev.Raw
	default:
		payload, err := json.Marshal(ev)
		if err != nil {
			return Envelope{}, fmt.Errorf("marshal %s payload: %w", ev.Type(), err)
		}
		env.Payload = payload
	}

	return env, nil
}

func (r *Relay) bumpRelayed() {
	r.mu.Lock()
	r.relayed++
	r.mu.Unlock()
}

func (r *Relay) bumpFailed() {
	r.mu.Lock()
	r.failed++
	r.mu.Unlock()
}
