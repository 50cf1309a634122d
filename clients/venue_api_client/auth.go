package venue_api_client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"
)

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Login exchanges credentials for a bearer token and installs it on the
// client for subsequent requests.
func (c *VenueApiClient) Login(ctx context.Context, username, password string) (*LoginResponse, error) {
	payload, err := json.Marshal(LoginRequest{Username: username, Password: password})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal login request: %w", err)
	}

	body, err := c.Post(ctx, LoginEndpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to login: %w", err)
	}

	var response LoginResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w, raw response: %s", err, string(body))
	}

	c.SetToken(response.Token)
	return &response, nil
}
