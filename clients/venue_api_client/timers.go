package venue_api_client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/BSTCMX/kidyland-dashboard-backup-sub009/internal/models"
)

type TimersResponse struct {
	Timers []models.Timer `json:"timers"`
}

// ActiveTimers fetches the current active timers for a sucursal. The feed
// pushes the same collection; this is the slow path for priming state when
// a client starts mid-session.
func (c *VenueApiClient) ActiveTimers(ctx context.Context, sucursalID string) ([]models.Timer, error) {
	endpoint := fmt.Sprintf("%s?sucursal_id=%s", ActiveTimersEndpoint, url.QueryEscape(sucursalID))
	body, err := c.Get(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to get active timers: %w", err)
	}

	var response TimersResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w, raw response: %s", err, string(body))
	}

	return response.Timers, nil
}
