package venue_api_client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/BSTCMX/kidyland-dashboard-backup-sub009/internal/models"
)

type StockAlertsResponse struct {
	Alerts []models.Product `json:"alerts"`
}

// StockAlerts fetches the products currently at or below minimum stock for
// a sucursal.
func (c *VenueApiClient) StockAlerts(ctx context.Context, sucursalID string) ([]models.Product, error) {
	endpoint := fmt.Sprintf("%s?sucursal_id=%s", StockAlertsEndpoint, url.QueryEscape(sucursalID))
	body, err := c.Get(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to get stock alerts: %w", err)
	}

	var response StockAlertsResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w, raw response: %s", err, string(body))
	}

	return response.Alerts, nil
}
