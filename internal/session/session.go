// Package session composes the feed client, the timer store and the alert
// dispatcher into one live dashboard state for a single sucursal.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/BSTCMX/kidyland-dashboard-backup-sub009/clients/venue_api_client"
	"github.com/BSTCMX/kidyland-dashboard-backup-sub009/internal/alerts"
	"github.com/BSTCMX/kidyland-dashboard-backup-sub009/internal/feed"
	"github.com/BSTCMX/kidyland-dashboard-backup-sub009/internal/models"
	"github.com/BSTCMX/kidyland-dashboard-backup-sub009/internal/timers"
)

// Config holds configuration for a session.
type Config struct {
	Feed       feed.Config
	Thresholds alerts.Config

	// API, when set, primes the timer store and stock alerts over REST
	// before the feed delivers its first push.
	API *venue_api_client.VenueApiClient

	// TickInterval is the local countdown cadence. Defaults to one second.
	TickInterval time.Duration

	Clock clockwork.Clock

	OnNotification func(alerts.Notification)
	OnSoundStop    func(timerID string)
	OnStateChange  func(feed.ConnState)
}

// Session owns one sucursal's live dashboard state. A single goroutine
// applies feed events and countdown ticks, so consumers observe server
// pushes in arrival order and never see a half-applied snapshot.
type Session struct {
	cfg        Config
	sucursalID string
	clock      clockwork.Clock
	tick       time.Duration

	client     *feed.Client
	store      *timers.Store
	dispatcher *alerts.Dispatcher

	mu      sync.Mutex
	stock   []models.Product
	stockAt time.Time
	started bool
	closed  bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// New validates the feed configuration and builds a session. Nothing runs
// until Start.
func New(cfg Config) (*Session, error) {
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if cfg.Feed.Clock == nil {
		cfg.Feed.Clock = clock
	}
	if cfg.OnStateChange != nil && cfg.Feed.OnStateChange == nil {
		cfg.Feed.OnStateChange = cfg.OnStateChange
	}
	tick := cfg.TickInterval
	if tick <= 0 {
		tick = time.Second
	}

	client, err := feed.New(cfg.Feed)
	if err != nil {
		return nil, err
	}

	return &Session{
		cfg:        cfg,
		sucursalID: cfg.Feed.SucursalID,
		clock:      clock,
		tick:       tick,
		client:     client,
		store:      timers.NewStore(clock),
		dispatcher: alerts.NewDispatcher(cfg.Thresholds, clock, cfg.OnNotification, cfg.OnSoundStop),
		done:       make(chan struct{}),
	}, nil
}

// Start primes state over REST when an API client is configured, launches
// the processing loop and connects the feed. It returns immediately;
// calling Start again is a no-op.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return feed.ErrClosed
	}
	if s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = true
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()

	s.prime(runCtx)

	go s.loop(runCtx)
	if err := s.client.Connect(runCtx); err != nil {
		return err
	}

	log.Info().Str("sucursal_id", s.sucursalID).Msg("session started")
	return nil
}

// Close stops the feed client and waits for the processing loop to exit.
// Once Close returns, no callback fires again. Close is idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	started := s.started
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.client.Close()
	if started {
		<-s.done
	}

	log.Info().Str("sucursal_id", s.sucursalID).Msg("session closed")
}

// prime loads current timers and stock over REST so the dashboard is not
// empty while the first feed push is in flight. Failures only log; the
// feed delivers the same state shortly anyway.
func (s *Session) prime(ctx context.Context) {
	if s.cfg.API == nil {
		return
	}
	if ts, err := s.cfg.API.ActiveTimers(ctx, s.sucursalID); err != nil {
		log.Warn().Err(err).Str("sucursal_id", s.sucursalID).Msg("failed to prime timers over REST")
	} else {
		s.store.ApplySnapshot(ts)
		s.dispatcher.Evaluate(s.store.Snapshot())
	}
	if products, err := s.cfg.API.StockAlerts(ctx, s.sucursalID); err != nil {
		log.Warn().Err(err).Str("sucursal_id", s.sucursalID).Msg("failed to prime stock alerts over REST")
	} else {
		s.setStock(products)
	}
}

// loop is the session's only mutator after Start. Feed events and local
// ticks are serialized here, which keeps strict arrival order for server
// pushes.
func (s *Session) loop(ctx context.Context) {
	defer close(s.done)
	ticker := s.clock.NewTicker(s.tick)
	defer ticker.Stop()
	events := s.client.Events()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			s.handleEvent(ev)
		case <-ticker.Chan():
			s.dispatcher.Evaluate(s.store.Tick())
		}
	}
}

func (s *Session) handleEvent(ev feed.Event) {
	switch ev := ev.(type) {
	case feed.TimersUpdate:
		s.store.ApplySnapshot(ev.Timers)
		s.dispatcher.Evaluate(s.store.Snapshot())
	case feed.TimerAlert:
		s.dispatcher.HandleServerAlert(ev.Message)
	case feed.StockAlert:
		s.setStock(ev.Alerts)
	case feed.UnknownEvent:
		log.Debug().
			Str("event_type", string(ev.EventType)).
			Str("sucursal_id", s.sucursalID).
			Msg("ignoring unrecognized feed event")
	default:
		log.Debug().
			Str("event_type", string(ev.Type())).
			Str("sucursal_id", s.sucursalID).
			Msg("ignoring unhandled feed event")
	}
}

func (s *Session) setStock(products []models.Product) {
	s.mu.Lock()
	s.stock = products
	s.stockAt = s.clock.Now()
	s.mu.Unlock()
}

// Timers returns the current countdown projection in server push order.
func (s *Session) Timers() []models.Timer {
	return s.store.Snapshot()
}

// Timer returns one timer by id.
func (s *Session) Timer(id string) (models.Timer, bool) {
	return s.store.Get(id)
}

// StockAlerts returns the latest low-stock products.
func (s *Session) StockAlerts() []models.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Product, len(s.stock))
	copy(out, s.stock)
	return out
}

// StockUpdatedAt returns when the stock alerts were last replaced, zero
// before the first push.
func (s *Session) StockUpdatedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stockAt
}

// ConnState returns the feed connection state.
func (s *Session) ConnState() feed.ConnState {
	return s.client.State()
}

// Stats returns a snapshot of the feed client's counters.
func (s *Session) Stats() feed.ClientStats {
	return s.client.Stats()
}

// LastUpdate returns when the last timer snapshot was applied.
func (s *Session) LastUpdate() time.Time {
	return s.store.LastUpdate()
}

// Acknowledge marks a timer's alert as handled and stops its looping
// sound.
func (s *Session) Acknowledge(timerID string) {
	s.dispatcher.Acknowledge(timerID)
}

// Looping returns the ids of timers whose warning sound is looping.
func (s *Session) Looping() []string {
	return s.dispatcher.Looping()
}
