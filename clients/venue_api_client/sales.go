package venue_api_client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/BSTCMX/kidyland-dashboard-backup-sub009/internal/models"
)

// SaleReceipt is the server's acknowledgement of a registered sale,
// including the ids of any timers it created for the sale's services.
type SaleReceipt struct {
	SaleID     string    `json:"sale_id"`
	TimerIDs   []string  `json:"timer_ids,omitempty"`
	TotalCents int64     `json:"total_cents"`
	CreatedAt  time.Time `json:"created_at"`
}

// CreateSale registers a sale. The server creates one timer per timer
// request in the payload and deduplicates on the sale's idempotency key,
// so retrying after a network failure is safe.
func (c *VenueApiClient) CreateSale(ctx context.Context, sale models.Sale) (*SaleReceipt, error) {
	payload, err := json.Marshal(sale)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal sale: %w", err)
	}

	body, err := c.Post(ctx, SalesEndpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create sale: %w", err)
	}

	var receipt SaleReceipt
	if err := json.Unmarshal(body, &receipt); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w, raw response: %s", err, string(body))
	}

	return &receipt, nil
}
