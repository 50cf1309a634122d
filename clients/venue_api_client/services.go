package venue_api_client

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/BSTCMX/kidyland-dashboard-backup-sub009/internal/models"
)

type ServicesResponse struct {
	Services []models.Service `json:"services"`
}

// Services fetches the sellable service catalog with slot pricing.
func (c *VenueApiClient) Services(ctx context.Context) ([]models.Service, error) {
	body, err := c.Get(ctx, ServicesEndpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to get services: %w", err)
	}

	var response ServicesResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w, raw response: %s", err, string(body))
	}

	return response.Services, nil
}

// ServiceCatalog fetches the services keyed by id, the shape the pricing
// helpers consume.
func (c *VenueApiClient) ServiceCatalog(ctx context.Context) (map[string]models.Service, error) {
	services, err := c.Services(ctx)
	if err != nil {
		return nil, err
	}
	catalog := make(map[string]models.Service, len(services))
	for _, svc := range services {
		catalog[svc.ID] = svc
	}
	return catalog, nil
}
