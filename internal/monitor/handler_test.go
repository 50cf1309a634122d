package monitor

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/BSTCMX/kidyland-dashboard-backup-sub009/internal/alerts"
	"github.com/BSTCMX/kidyland-dashboard-backup-sub009/internal/feed"
	"github.com/BSTCMX/kidyland-dashboard-backup-sub009/internal/models"
)

// fakeProvider serves canned session state and records acknowledgements.
type fakeProvider struct {
	mu      sync.Mutex
	timers  []models.Timer
	stock   []models.Product
	state   feed.ConnState
	stats   feed.ClientStats
	updated time.Time
	looping []string
	acked   []string
}

func (f *fakeProvider) Timers() []models.Timer { return f.timers }

func (f *fakeProvider) Timer(id string) (models.Timer, bool) {
	for _, t := range f.timers {
		if t.ID == id {
			return t, true
		}
	}
	return models.Timer{}, false
}

func (f *fakeProvider) StockAlerts() []models.Product { return f.stock }
func (f *fakeProvider) ConnState() feed.ConnState     { return f.state }
func (f *fakeProvider) Stats() feed.ClientStats       { return f.stats }
func (f *fakeProvider) LastUpdate() time.Time         { return f.updated }
func (f *fakeProvider) Looping() []string             { return f.looping }

func (f *fakeProvider) Acknowledge(timerID string) {
	f.mu.Lock()
	f.acked = append(f.acked, timerID)
	f.mu.Unlock()
}

func (f *fakeProvider) ackedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.acked))
	copy(out, f.acked)
	return out
}

func newMonitorServer(t *testing.T, provider *fakeProvider) (*httptest.Server, *Handler) {
	t.Helper()
	h := NewHandler(provider, "suc-1")
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, h
}

func getJSON(t *testing.T, url string, out interface{}) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("GET %s: status %d, body %s", url, resp.StatusCode, body)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Fatalf("got Content-Type %q, want application/json", ct)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode %s: %v", url, err)
	}
}

func TestHandleState(t *testing.T) {
	end := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	updated := time.Date(2026, 3, 1, 17, 30, 0, 0, time.UTC)
	provider := &fakeProvider{
		timers: []models.Timer{
			{ID: "tm-1", SaleID: "s1", ChildName: "Sofia", Status: models.TimerStatusActive, EndAt: &end, TimeLeftSec: 1800},
			{ID: "tm-2", SaleID: "s2", ChildName: "Mateo", Status: models.TimerStatusAlert, EndAt: &end, TimeLeftSec: 240},
		},
		stock:   []models.Product{{ID: "prd-1", Name: "Juice box", Stock: 1, MinStock: 5}},
		state:   feed.StateOpen,
		updated: updated,
		looping: []string{"tm-2"},
	}
	srv, _ := newMonitorServer(t, provider)

	var got StateResponse
	getJSON(t, srv.URL+"/api/monitor/state", &got)

	if got.SucursalID != "suc-1" {
		t.Fatalf("got sucursal %q, want suc-1", got.SucursalID)
	}
	if got.Connection != feed.StateOpen {
		t.Fatalf("got connection %q, want open", got.Connection)
	}
	if len(got.Timers) != 2 || got.Timers[0].ID != "tm-1" || got.Timers[1].ID != "tm-2" {
		t.Fatalf("bad timers: %+v", got.Timers)
	}
	if len(got.StockAlerts) != 1 || got.StockAlerts[0].ID != "prd-1" {
		t.Fatalf("bad stock alerts: %+v", got.StockAlerts)
	}
	if len(got.Looping) != 1 || got.Looping[0] != "tm-2" {
		t.Fatalf("bad looping list: %v", got.Looping)
	}
	if got.UpdatedAt == nil || !got.UpdatedAt.Equal(updated) {
		t.Fatalf("got updated_at %v, want %v", got.UpdatedAt, updated)
	}
}

func TestHandleState_OmitsUpdatedAtBeforeFirstPush(t *testing.T) {
	srv, _ := newMonitorServer(t, &fakeProvider{state: feed.StateConnecting})

	resp, err := http.Get(srv.URL + "/api/monitor/state")
	if err != nil {
		t.Fatalf("GET state: %v", err)
	}
	defer resp.Body.Close()
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, present := raw["updated_at"]; present {
		t.Fatal("updated_at must be omitted before the first snapshot")
	}
}

func TestHandleTimer(t *testing.T) {
	end := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	provider := &fakeProvider{
		timers: []models.Timer{
			{ID: "tm-1", SaleID: "s1", ChildName: "Sofia", Status: models.TimerStatusActive, EndAt: &end, TimeLeftSec: 900},
		},
	}
	srv, _ := newMonitorServer(t, provider)

	var got models.Timer
	getJSON(t, srv.URL+"/api/monitor/timers/tm-1", &got)
	if got.ID != "tm-1" || got.ChildName != "Sofia" || got.TimeLeftSec != 900 {
		t.Fatalf("bad timer: %+v", got)
	}

	resp, err := http.Get(srv.URL + "/api/monitor/timers/tm-404")
	if err != nil {
		t.Fatalf("GET missing timer: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("got status %d, want 404", resp.StatusCode)
	}
}

func TestHandleAcknowledge(t *testing.T) {
	provider := &fakeProvider{
		timers: []models.Timer{{ID: "tm-1", Status: models.TimerStatusAlert}},
	}
	srv, _ := newMonitorServer(t, provider)

	resp, err := http.Post(srv.URL+"/api/monitor/timers/tm-1/ack", "application/json", nil)
	if err != nil {
		t.Fatalf("POST ack: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("got status %d, want 204", resp.StatusCode)
	}
	if acked := provider.ackedIDs(); len(acked) != 1 || acked[0] != "tm-1" {
		t.Fatalf("bad ack recording: %v", acked)
	}
}

func TestHandleAlerts_KeepsMostRecent(t *testing.T) {
	provider := &fakeProvider{}
	srv, h := newMonitorServer(t, provider)
	h.keepRecent = 3

	var empty AlertsResponse
	getJSON(t, srv.URL+"/api/monitor/alerts", &empty)
	if len(empty.Alerts) != 0 {
		t.Fatalf("expected no alerts initially, got %d", len(empty.Alerts))
	}

	for i := 0; i < 5; i++ {
		h.RecordNotification(alerts.Notification{
			ID:      fmt.Sprintf("n-%d", i),
			TimerID: "tm-1",
			Message: fmt.Sprintf("alert %d", i),
			Source:  alerts.SourceLocal,
		})
	}

	var got AlertsResponse
	getJSON(t, srv.URL+"/api/monitor/alerts", &got)
	if len(got.Alerts) != 3 {
		t.Fatalf("got %d alerts, want 3", len(got.Alerts))
	}
	// Oldest entries fall off the front.
	if got.Alerts[0].ID != "n-2" || got.Alerts[2].ID != "n-4" {
		t.Fatalf("bad retention window: %+v", got.Alerts)
	}
}

func TestHandleStats(t *testing.T) {
	provider := &fakeProvider{
		stats: feed.ClientStats{State: feed.StateOpen, Reconnects: 3, MessagesReceived: 42},
	}
	srv, _ := newMonitorServer(t, provider)

	var got feed.ClientStats
	getJSON(t, srv.URL+"/api/monitor/stats", &got)
	if got.State != feed.StateOpen || got.Reconnects != 3 || got.MessagesReceived != 42 {
		t.Fatalf("bad stats: %+v", got)
	}
}

func TestMethodGuards(t *testing.T) {
	srv, _ := newMonitorServer(t, &fakeProvider{})

	cases := []struct {
		name   string
		method string
		path   string
	}{
		{"post_state", http.MethodPost, "/api/monitor/state"},
		{"delete_alerts", http.MethodDelete, "/api/monitor/alerts"},
		{"post_stats", http.MethodPost, "/api/monitor/stats"},
		{"get_ack", http.MethodGet, "/api/monitor/timers/tm-1/ack"},
		{"post_timer", http.MethodPost, "/api/monitor/timers/tm-1"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req, err := http.NewRequest(tc.method, srv.URL+tc.path, nil)
			if err != nil {
				t.Fatalf("new request: %v", err)
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatalf("%s %s: %v", tc.method, tc.path, err)
			}
			resp.Body.Close()
			if resp.StatusCode != http.StatusMethodNotAllowed {
				t.Fatalf("got status %d, want 405", resp.StatusCode)
			}
		})
	}
}

func TestExtractTimerIDFromPath(t *testing.T) {
	cases := []struct {
		name   string
		path   string
		suffix string
		want   string
	}{
		{"plain_id", "/api/monitor/timers/tm-1", "", "tm-1"},
		{"ack_suffix", "/api/monitor/timers/tm-1/ack", "/ack", "tm-1"},
		{"missing_id", "/api/monitor/timers/", "", ""},
		{"missing_id_with_suffix", "/api/monitor/timers//ack", "/ack", ""},
		{"nested_path", "/api/monitor/timers/tm-1/extra", "", ""},
		{"wrong_prefix", "/api/other/timers/tm-1", "", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := extractTimerIDFromPath(tc.path, tc.suffix); got != tc.want {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
		})
	}
}
