package feed

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// ConnState represents the lifecycle state of the feed connection
type ConnState string

const (
	StateIdle       ConnState = "idle"
	StateConnecting ConnState = "connecting"
	StateOpen       ConnState = "open"
	StateClosed     ConnState = "closed"
)

var (
	// ErrMissingURL is returned when no feed endpoint is configured
	ErrMissingURL = errors.New("feed: endpoint URL is required")
	// ErrMissingToken is returned when no auth token is configured
	ErrMissingToken = errors.New("feed: auth token is required")
	// ErrMissingSucursal is returned when no sucursal id is configured
	ErrMissingSucursal = errors.New("feed: sucursal id is required")
	// ErrClosed is returned when the client is used after Close
	ErrClosed = errors.New("feed: client is closed")
	// ErrAuthRejected is the terminal error after the auth retry limit
	ErrAuthRejected = errors.New("feed: server rejected credentials")
)

// Config holds configuration for the feed client. URL, Token and SucursalID
// are required; everything else has a usable default.
type Config struct {
	URL        string // ws://, wss://, http:// or https:// endpoint
	Token      string // sent as the token query parameter
	SucursalID string // sent as the sucursal_id query parameter

	HandshakeTimeout time.Duration
	InitialBackoff   time.Duration
	MaxBackoff       time.Duration
	PingInterval     time.Duration
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	MaxMessageSize   int64

	// AuthRetryLimit caps consecutive handshake rejections (HTTP 401/403)
	// before the client gives up with ErrAuthRejected. Zero means retry
	// forever, useful when the operator can fix credentials out of band.
	AuthRetryLimit int

	// EventBuffer sizes the Events channel. When the consumer falls behind
	// and the buffer fills, new events are dropped and counted.
	EventBuffer int

	// OnStateChange observes connection state transitions. It runs on the
	// client's internal goroutine; keep it fast and non-blocking.
	OnStateChange func(ConnState)

	Clock  clockwork.Clock
	Dialer *websocket.Dialer
}

// DefaultConfig returns a Config with production defaults for the given
// endpoint and credentials.
func DefaultConfig(rawURL, token, sucursalID string) Config {
	return Config{
		URL:              rawURL,
		Token:            token,
		SucursalID:       sucursalID,
		HandshakeTimeout: 10 * time.Second,
		InitialBackoff:   1 * time.Second,
		MaxBackoff:       30 * time.Second,
		PingInterval:     30 * time.Second,
		ReadTimeout:      60 * time.Second,
		WriteTimeout:     10 * time.Second,
		MaxMessageSize:   512 * 1024,
		EventBuffer:      64,
	}
}

// ClientStats is a point-in-time snapshot of the client's counters.
type ClientStats struct {
	State            ConnState `json:"state"`
	Reconnects       int       `json:"reconnects"`
	AuthFailures     int       `json:"auth_failures"` // consecutive, reset on successful open
	MessagesReceived int64     `json:"messages_received"`
	DecodeFailures   int64     `json:"decode_failures"`
	EventsDropped    int64     `json:"events_dropped"`
	ConnectedAt      time.Time `json:"connected_at"` // zero until the first successful open
	LastError        string    `json:"last_error,omitempty"`
}

// Client maintains a WebSocket subscription to the venue's realtime feed
// for one sucursal. It dials, authenticates, decodes pushed envelopes into
// typed events, and reconnects with exponential backoff until Close.
//
// All decoded events are delivered on a single channel in arrival order.
// The channel is closed when the client shuts down, either via Close or
// after exhausting the auth retry limit.
type Client struct {
	cfg      Config
	id       string // short instance id for log correlation
	endpoint string // URL with auth query parameters applied

	clock  clockwork.Clock
	dialer *websocket.Dialer
	events chan Event

	mu          sync.Mutex
	state       ConnState
	conn        *websocket.Conn
	cancel      context.CancelFunc
	started     bool
	closed      bool
	opens       int
	authFails   int
	lastErr     error
	connectedAt time.Time
	stats       counters

	closeEvents sync.Once
	doneCh      chan struct{}
}

type counters struct {
	messagesReceived int64
	decodeFailures   int64
	eventsDropped    int64
}

// New validates cfg and builds a feed client. It does not touch the network;
// call Connect to start the connection manager.
func New(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, ErrMissingURL
	}
	if cfg.Token == "" {
		return nil, ErrMissingToken
	}
	if cfg.SucursalID == "" {
		return nil, ErrMissingSucursal
	}

	defaults := DefaultConfig(cfg.URL, cfg.Token, cfg.SucursalID)
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = defaults.HandshakeTimeout
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = defaults.InitialBackoff
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = defaults.MaxBackoff
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = defaults.PingInterval
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = defaults.ReadTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaults.WriteTimeout
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = defaults.MaxMessageSize
	}
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = defaults.EventBuffer
	}

	endpoint, err := buildEndpoint(cfg.URL, cfg.Token, cfg.SucursalID)
	if err != nil {
		return nil, err
	}

	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	dialer := cfg.Dialer
	if dialer == nil {
		dialer = &websocket.Dialer{HandshakeTimeout: cfg.HandshakeTimeout}
	}

	return &Client{
		cfg:      cfg,
		id:       uuid.New().String()[:8],
		endpoint: endpoint,
		clock:    clock,
		dialer:   dialer,
		events:   make(chan Event, cfg.EventBuffer),
		state:    StateIdle,
		doneCh:   make(chan struct{}),
	}, nil
}

// buildEndpoint normalizes the scheme and bakes the auth query parameters
// into the dial URL.
func buildEndpoint(rawURL, token, sucursalID string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse feed URL: %w", err)
	}
	switch u.Scheme {
	case "ws", "wss":
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported feed URL scheme %q", u.Scheme)
	}
	q := u.Query()
	q.Set("token", token)
	q.Set("sucursal_id", sucursalID)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Connect starts the connection manager goroutine. It returns immediately;
// dialing, reconnecting and event delivery happen in the background until
// ctx is cancelled or Close is called. Calling Connect again is a no-op.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.started {
		c.mu.Unlock()
		return nil
	}
	c.started = true
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.mu.Unlock()

	log.Info().
		Str("client_id", c.id).
		Str("sucursal_id", c.cfg.SucursalID).
		Msg("starting feed client")

	go c.run(runCtx)
	return nil
}

// Events returns the channel of decoded feed events, delivered in the order
// the server sent them. The channel closes when the client shuts down.
func (c *Client) Events() <-chan Event {
	return c.events
}

// Close stops the connection manager and closes the events channel. It is
// idempotent and safe to call from any goroutine; once it returns, no
// further events are delivered.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	started := c.started
	cancel := c.cancel
	conn := c.conn
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		conn.Close()
	}

	if started {
		<-c.doneCh
	} else {
		c.finish()
	}

	log.Info().Str("client_id", c.id).Msg("feed client closed")
	return nil
}

// State returns the current connection state.
func (c *Client) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connected reports whether the connection is currently open.
func (c *Client) Connected() bool {
	return c.State() == StateOpen
}

// Err returns the most recent connection error, or nil. A terminal auth
// failure is reported as an error wrapping ErrAuthRejected.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Stats returns a snapshot of the client's counters.
func (c *Client) Stats() ClientStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := ClientStats{
		State:            c.state,
		Reconnects:       c.opens - 1,
		AuthFailures:     c.authFails,
		MessagesReceived: c.stats.messagesReceived,
		DecodeFailures:   c.stats.decodeFailures,
		EventsDropped:    c.stats.eventsDropped,
		ConnectedAt:      c.connectedAt,
	}
	if s.Reconnects < 0 {
		s.Reconnects = 0
	}
	if c.lastErr != nil {
		s.LastError = c.lastErr.Error()
	}
	return s
}

// run is the connection manager loop: dial, read until failure, back off,
// repeat. It owns all event delivery so ordering follows arrival order.
func (c *Client) run(ctx context.Context) {
	defer c.finish()

	delay := c.cfg.InitialBackoff
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		c.setState(StateConnecting)
		conn, authRejected, err := c.dial(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.recordError(err)
			if authRejected {
				fails := c.bumpAuthFails()
				log.Warn().
					Err(err).
					Str("client_id", c.id).
					Int("consecutive_failures", fails).
					Msg("feed handshake rejected")
				if c.cfg.AuthRetryLimit > 0 && fails >= c.cfg.AuthRetryLimit {
					c.recordError(fmt.Errorf("%w after %d attempts: %v", ErrAuthRejected, fails, err))
					log.Error().
						Str("client_id", c.id).
						Int("attempts", fails).
						Msg("auth retry limit reached, stopping feed client")
					return
				}
			} else {
				log.Warn().
					Err(err).
					Str("client_id", c.id).
					Dur("retry_in", delay).
					Msg("feed dial failed")
			}
			if !c.waitBackoff(ctx, delay) {
				return
			}
			delay = nextDelay(delay, c.cfg.MaxBackoff)
			continue
		}

		delay = c.cfg.InitialBackoff
		if !c.noteConnected(ctx, conn) {
			return
		}

		pingDone := make(chan struct{})
		go c.pingLoop(ctx, conn, pingDone)

		readErr := c.readLoop(conn)
		close(pingDone)
		c.dropConn(conn)

		if ctx.Err() != nil || c.isClosed() {
			return
		}

		c.recordError(readErr)
		log.Warn().
			Err(readErr).
			Str("client_id", c.id).
			Dur("retry_in", delay).
			Msg("feed connection lost, reconnecting")
		c.setState(StateConnecting)
		if !c.waitBackoff(ctx, delay) {
			return
		}
		delay = nextDelay(delay, c.cfg.MaxBackoff)
	}
}

// dial performs one handshake attempt. The second return value reports
// whether the server rejected the handshake as unauthorized.
func (c *Client) dial(ctx context.Context) (*websocket.Conn, bool, error) {
	dialCtx, cancel := context.WithTimeout(ctx, c.cfg.HandshakeTimeout)
	defer cancel()

	conn, resp, err := c.dialer.DialContext(dialCtx, c.endpoint, nil)
	if err != nil {
		if resp != nil {
			if resp.Body != nil {
				resp.Body.Close()
			}
			authRejected := resp.StatusCode == http.StatusUnauthorized ||
				resp.StatusCode == http.StatusForbidden
			return nil, authRejected, fmt.Errorf("failed to dial feed (status %d): %w", resp.StatusCode, err)
		}
		return nil, false, fmt.Errorf("failed to dial feed: %w", err)
	}
	return conn, false, nil
}

// readLoop consumes frames until the connection fails. Malformed frames are
// counted and skipped; they never tear the connection down.
func (c *Client) readLoop(conn *websocket.Conn) error {
	conn.SetReadLimit(c.cfg.MaxMessageSize)
	conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
	})
	conn.SetPingHandler(func(appData string) error {
		conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(c.cfg.WriteTimeout))
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
		c.bumpReceived()

		ev, err := DecodeEvent(raw)
		if err != nil {
			c.bumpDecodeFailures()
			log.Warn().
				Err(err).
				Str("client_id", c.id).
				Msg("dropping undecodable feed message")
			continue
		}
		c.deliver(ev)
	}
}

// pingLoop keeps the connection alive from our side. Read deadlines are
// refreshed by the pong handler when these pings come back.
func (c *Client) pingLoop(ctx context.Context, conn *websocket.Conn, done <-chan struct{}) {
	ticker := c.clock.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.cfg.WriteTimeout)); err != nil {
				log.Debug().
					Err(err).
					Str("client_id", c.id).
					Msg("feed ping write failed")
				return
			}
		}
	}
}

// deliver hands one event to the consumer without ever blocking the read
// loop. A full buffer drops the newest event and counts it.
func (c *Client) deliver(ev Event) {
	select {
	case c.events <- ev:
	default:
		c.mu.Lock()
		c.stats.eventsDropped++
		c.mu.Unlock()
		log.Warn().
			Str("client_id", c.id).
			Str("event_type", string(ev.Type())).
			Msg("events buffer full, dropping feed event")
	}
}

// waitBackoff sleeps for d with jitter applied, or returns false when the
// client is shutting down.
func (c *Client) waitBackoff(ctx context.Context, d time.Duration) bool {
	timer := c.clock.NewTimer(withJitter(d))
	defer stopAndDrainTimer(timer)
	select {
	case <-ctx.Done():
		return false
	case <-timer.Chan():
		return true
	}
}

// stopAndDrainTimer safely stops a timer and drains its channel if needed.
func stopAndDrainTimer(timer clockwork.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}

// withJitter spreads a delay by +/-20% so a fleet of kiosks does not
// reconnect in lockstep after a venue server restart.
func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return d
	}
	return time.Duration(float64(d) * (0.8 + 0.4*rand.Float64()))
}

// nextDelay doubles the backoff up to the configured cap.
func nextDelay(current, max time.Duration) time.Duration {
	next := current * 2
	if next > max {
		next = max
	}
	return next
}

// noteConnected publishes the live connection so Close can reach it. When
// Close already ran (or the run context was cancelled) in the window between
// dial returning and this handoff, it refuses the connection instead: the
// socket is closed here and the caller must stop without starting a read
// loop, otherwise events would keep flowing after Close returned.
func (c *Client) noteConnected(ctx context.Context, conn *websocket.Conn) bool {
	var hook func(ConnState)
	c.mu.Lock()
	if c.closed || ctx.Err() != nil {
		c.mu.Unlock()
		conn.Close()
		return false
	}
	c.conn = conn
	c.authFails = 0
	c.opens++
	c.connectedAt = time.Now()
	reconnects := c.opens - 1
	if c.state != StateOpen {
		c.state = StateOpen
		hook = c.cfg.OnStateChange
	}
	c.mu.Unlock()

	log.Info().
		Str("client_id", c.id).
		Str("sucursal_id", c.cfg.SucursalID).
		Int("reconnects", reconnects).
		Msg("feed connected")
	if hook != nil {
		hook(StateOpen)
	}
	return true
}

func (c *Client) dropConn(conn *websocket.Conn) {
	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	c.mu.Unlock()
	conn.Close()
}

func (c *Client) setState(s ConnState) {
	var hook func(ConnState)
	c.mu.Lock()
	if c.state != s {
		c.state = s
		hook = c.cfg.OnStateChange
	}
	c.mu.Unlock()
	if hook != nil {
		hook(s)
	}
}

func (c *Client) recordError(err error) {
	c.mu.Lock()
	c.lastErr = err
	c.mu.Unlock()
}

func (c *Client) bumpAuthFails() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.authFails++
	return c.authFails
}

func (c *Client) bumpReceived() {
	c.mu.Lock()
	c.stats.messagesReceived++
	c.mu.Unlock()
}

func (c *Client) bumpDecodeFailures() {
	c.mu.Lock()
	c.stats.decodeFailures++
	c.mu.Unlock()
}

func (c *Client) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// finish runs exactly once per client lifetime, on manager exit or on Close
// of a never-started client. After it returns the events channel is closed.
func (c *Client) finish() {
	c.setState(StateClosed)
	c.closeEvents.Do(func() {
		close(c.events)
	})
	close(c.doneCh)
}
