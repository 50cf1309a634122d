package venue_api_client

import (
	"github.com/BSTCMX/kidyland-dashboard-backup-sub009/clients"
)

// VenueApiClient talks to the venue backend's REST API. All write traffic
// (sales, auth) and slow-path reads (catalog, initial timer state) go
// through here; the realtime feed covers the fast path.
type VenueApiClient struct {
	*clients.BaseClient
}

// NewVenueApiClient builds a client for the given base URL. token may be
// empty when the caller intends to Login first.
func NewVenueApiClient(baseURL, token string) *VenueApiClient {
	client := &VenueApiClient{
		BaseClient: clients.NewBaseClient(baseURL),
	}

	client.SetHeader(ContentTypeHeader, ContentTypeJSON)
	if token != "" {
		client.SetToken(token)
	}

	return client
}

// SetToken installs the bearer token used on subsequent requests.
func (c *VenueApiClient) SetToken(token string) {
	c.SetHeader(AuthorizationHeader, "Bearer "+token)
}
