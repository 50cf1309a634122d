// Package monitor exposes one sucursal's live session state over HTTP for
// wall displays and kiosk dashboards.
package monitor

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/BSTCMX/kidyland-dashboard-backup-sub009/internal/alerts"
	"github.com/BSTCMX/kidyland-dashboard-backup-sub009/internal/feed"
	"github.com/BSTCMX/kidyland-dashboard-backup-sub009/internal/models"
)

// StateProvider interface defines what the HTTP layer needs from a running
// session
type StateProvider interface {
	Timers() []models.Timer
	Timer(id string) (models.Timer, bool)
	StockAlerts() []models.Product
	ConnState() feed.ConnState
	Stats() feed.ClientStats
	LastUpdate() time.Time
	Looping() []string
	Acknowledge(timerID string)
}

// StateResponse represents the complete dashboard state for one sucursal
type StateResponse struct {
	SucursalID  string           `json:"sucursal_id"`
	Connection  feed.ConnState   `json:"connection"`
	Timers      []models.Timer   `json:"timers"`
	StockAlerts []models.Product `json:"stock_alerts"`
	Looping     []string         `json:"looping_timers,omitempty"`
	UpdatedAt   *time.Time       `json:"updated_at,omitempty"`
}

// AlertsResponse represents the recent notification feed
type AlertsResponse struct {
	Alerts []alerts.Notification `json:"alerts"`
}

// Handler handles HTTP requests for monitor state
type Handler struct {
	provider   StateProvider
	sucursalID string

	mu         sync.Mutex
	recent     []alerts.Notification
	keepRecent int
}

// NewHandler creates a monitor handler for one sucursal.
func NewHandler(provider StateProvider, sucursalID string) *Handler {
	return &Handler{
		provider:   provider,
		sucursalID: sucursalID,
		keepRecent: 50,
	}
}

// RecordNotification retains a notification for the recent-alerts endpoint.
// Wire it as the session's OnNotification callback.
func (h *Handler) RecordNotification(n alerts.Notification) {
	h.mu.Lock()
	h.recent = append(h.recent, n)
	if len(h.recent) > h.keepRecent {
		h.recent = h.recent[len(h.recent)-h.keepRecent:]
	}
	h.mu.Unlock()
}

// HandleState handles GET /api/monitor/state
func (h *Handler) HandleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	resp := StateResponse{
		SucursalID:  h.sucursalID,
		Connection:  h.provider.ConnState(),
		Timers:      h.provider.Timers(),
		StockAlerts: h.provider.StockAlerts(),
		Looping:     h.provider.Looping(),
	}
	if t := h.provider.LastUpdate(); !t.IsZero() {
		resp.UpdatedAt = &t
	}

	writeJSON(w, resp)
}

// HandleTimer handles GET /api/monitor/timers/{id}
func (h *Handler) HandleTimer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := extractTimerIDFromPath(r.URL.Path, "")
	if id == "" {
		http.Error(w, "Timer ID is required", http.StatusBadRequest)
		return
	}

	timer, ok := h.provider.Timer(id)
	if !ok {
		http.Error(w, "Timer not found", http.StatusNotFound)
		return
	}

	writeJSON(w, timer)
}

// HandleAcknowledge handles POST /api/monitor/timers/{id}/ack
func (h *Handler) HandleAcknowledge(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := extractTimerIDFromPath(r.URL.Path, "/ack")
	if id == "" {
		http.Error(w, "Timer ID is required", http.StatusBadRequest)
		return
	}

	h.provider.Acknowledge(id)
	w.WriteHeader(http.StatusNoContent)
}

// HandleAlerts handles GET /api/monitor/alerts
func (h *Handler) HandleAlerts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	h.mu.Lock()
	recent := make([]alerts.Notification, len(h.recent))
	copy(recent, h.recent)
	h.mu.Unlock()

	writeJSON(w, AlertsResponse{Alerts: recent})
}

// HandleStats handles GET /api/monitor/stats
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, h.provider.Stats())
}

// RegisterRoutes registers the monitor HTTP routes
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/monitor/state", h.HandleState)
	mux.HandleFunc("/api/monitor/alerts", h.HandleAlerts)
	mux.HandleFunc("/api/monitor/stats", h.HandleStats)

	// Per-timer routes share a prefix - note the trailing slash
	mux.HandleFunc("/api/monitor/timers/", func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/ack") {
			h.HandleAcknowledge(w, r)
		} else {
			h.HandleTimer(w, r)
		}
	})
}

// extractTimerIDFromPath extracts the timer id from paths like
// /api/monitor/timers/{id} and /api/monitor/timers/{id}/ack.
func extractTimerIDFromPath(path, suffix string) string {
	const prefix = "/api/monitor/timers/"

	if !strings.HasPrefix(path, prefix) || !strings.HasSuffix(path, suffix) {
		return ""
	}

	id := path[len(prefix) : len(path)-len(suffix)]
	if id == "" || strings.Contains(id, "/") {
		return ""
	}
	return id
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode monitor response")
	}
}
