package venue_api_client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/BSTCMX/kidyland-dashboard-backup-sub009/internal/models"
)

func TestLogin_InstallsToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case LoginEndpoint:
			if r.Method != http.MethodPost {
				t.Errorf("login method: got %s", r.Method)
			}
			var req LoginRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Errorf("decode login request: %v", err)
			}
			if req.Username != "cashier1" || req.Password != "s3cret" {
				t.Errorf("bad credentials: %+v", req)
			}
			json.NewEncoder(w).Encode(LoginResponse{
				Token:     "fresh-token",
				ExpiresAt: time.Now().Add(8 * time.Hour),
			})
		case ServicesEndpoint:
			if got := r.Header.Get(AuthorizationHeader); got != "Bearer fresh-token" {
				t.Errorf("authorization after login: got %q", got)
			}
			json.NewEncoder(w).Encode(ServicesResponse{})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client := NewVenueApiClient(srv.URL, "")
	resp, err := client.Login(context.Background(), "cashier1", "s3cret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if resp.Token != "fresh-token" {
		t.Fatalf("got token %q", resp.Token)
	}

	// The fresh token must ride on subsequent requests.
	if _, err := client.Services(context.Background()); err != nil {
		t.Fatalf("services after login: %v", err)
	}
}

func TestCreateSale(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != SalesEndpoint || r.Method != http.MethodPost {
			t.Errorf("got %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get(AuthorizationHeader); got != "Bearer tok-1" {
			t.Errorf("authorization: got %q", got)
		}
		if got := r.Header.Get(ContentTypeHeader); got != ContentTypeJSON {
			t.Errorf("content type: got %q", got)
		}

		var sale models.Sale
		if err := json.NewDecoder(r.Body).Decode(&sale); err != nil {
			t.Errorf("decode sale: %v", err)
		}
		if sale.IdempotencyKey == "" || sale.SucursalID != "suc-1" {
			t.Errorf("bad sale: %+v", sale)
		}
		if len(sale.Timers) != 1 || sale.Timers[0].Minutes != 60 {
			t.Errorf("bad timer requests: %+v", sale.Timers)
		}

		json.NewEncoder(w).Encode(SaleReceipt{
			SaleID:     "sale-77",
			TimerIDs:   []string{"tm-77"},
			TotalCents: sale.TotalCents,
			CreatedAt:  time.Now(),
		})
	}))
	defer srv.Close()

	client := NewVenueApiClient(srv.URL, "tok-1")
	receipt, err := client.CreateSale(context.Background(), models.Sale{
		IdempotencyKey: "key-1",
		SucursalID:     "suc-1",
		Items: []models.SaleItem{
			{ServiceID: "svc-1", Quantity: 1, UnitPriceCents: 18000, TotalCents: 18000},
		},
		Timers: []models.TimerRequest{
			{ServiceID: "svc-1", ChildName: "Sofia", Minutes: 60},
		},
		TotalCents: 18000,
	})
	if err != nil {
		t.Fatalf("create sale: %v", err)
	}
	if receipt.SaleID != "sale-77" || len(receipt.TimerIDs) != 1 {
		t.Fatalf("bad receipt: %+v", receipt)
	}
}

func TestActiveTimers(t *testing.T) {
	end := time.Date(2026, 3, 1, 17, 30, 0, 0, time.UTC)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != ActiveTimersEndpoint {
			t.Errorf("path: got %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("sucursal_id"); got != "suc-1" {
			t.Errorf("sucursal_id: got %q", got)
		}
		json.NewEncoder(w).Encode(TimersResponse{Timers: []models.Timer{
			{ID: "tm-1", SaleID: "s1", ChildName: "Sofia", Status: models.TimerStatusActive, EndAt: &end, TimeLeftSec: 1800},
		}})
	}))
	defer srv.Close()

	client := NewVenueApiClient(srv.URL, "tok-1")
	timers, err := client.ActiveTimers(context.Background(), "suc-1")
	if err != nil {
		t.Fatalf("active timers: %v", err)
	}
	if len(timers) != 1 || timers[0].ID != "tm-1" || !timers[0].EndAt.Equal(end) {
		t.Fatalf("bad timers: %+v", timers)
	}
}

func TestStockAlerts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != StockAlertsEndpoint {
			t.Errorf("path: got %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("sucursal_id"); got != "suc-1" {
			t.Errorf("sucursal_id: got %q", got)
		}
		json.NewEncoder(w).Encode(StockAlertsResponse{Alerts: []models.Product{
			{ID: "prd-1", Name: "Juice box", Stock: 1, MinStock: 5},
		}})
	}))
	defer srv.Close()

	client := NewVenueApiClient(srv.URL, "tok-1")
	alerts, err := client.StockAlerts(context.Background(), "suc-1")
	if err != nil {
		t.Fatalf("stock alerts: %v", err)
	}
	if len(alerts) != 1 || !alerts[0].LowStock() {
		t.Fatalf("bad alerts: %+v", alerts)
	}
}

func TestServiceCatalog(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ServicesResponse{Services: []models.Service{
			{ID: "svc-1", Name: "Playground", SlotMinutes: 30, PricePerSlotCents: 9000},
			{ID: "svc-2", Name: "Trampoline", SlotMinutes: 15, PricePerSlotCents: 6000},
		}})
	}))
	defer srv.Close()

	client := NewVenueApiClient(srv.URL, "tok-1")
	catalog, err := client.ServiceCatalog(context.Background())
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	if len(catalog) != 2 {
		t.Fatalf("got %d services, want 2", len(catalog))
	}
	if catalog["svc-2"].SlotMinutes != 15 {
		t.Fatalf("bad catalog entry: %+v", catalog["svc-2"])
	}
}

func TestErrorStatusSurfacesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "sucursal suspended", http.StatusForbidden)
	}))
	defer srv.Close()

	client := NewVenueApiClient(srv.URL, "tok-1")
	_, err := client.ActiveTimers(context.Background(), "suc-1")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "403") || !strings.Contains(err.Error(), "sucursal suspended") {
		t.Fatalf("error should carry status and body: %v", err)
	}
}
