package venueconfig

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds venue backend endpoints and credentials shared by the
// monitor, the relay and the CLI tools.
type Config struct {
	APIURL         string
	WSURL          string
	Token          string
	SucursalID     string
	AuthRetryLimit int
}

// NewConfigFromEnv reads KIDYLAND_* environment variables (with defaults).
func NewConfigFromEnv() Config {
	authRetryLimit, err := strconv.Atoi(getEnv("KIDYLAND_AUTH_RETRY_LIMIT", "0"))
	if err != nil {
		authRetryLimit = 0
	}

	return Config{
		APIURL:         getEnv("KIDYLAND_API_URL", "http://localhost:8080"),
		WSURL:          getEnv("KIDYLAND_WS_URL", "ws://localhost:8080/ws"),
		Token:          getEnv("KIDYLAND_TOKEN", ""),
		SucursalID:     getEnv("KIDYLAND_SUCURSAL_ID", ""),
		AuthRetryLimit: authRetryLimit,
	}
}

// Validate checks the settings that have no usable default.
func (c Config) Validate() error {
	if c.Token == "" {
		return fmt.Errorf("KIDYLAND_TOKEN is required")
	}
	if c.SucursalID == "" {
		return fmt.Errorf("KIDYLAND_SUCURSAL_ID is required")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
