package alerts

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/BSTCMX/kidyland-dashboard-backup-sub009/internal/models"
)

// Config maps services to their notification thresholds. Services without
// an explicit entry use Defaults.
type Config struct {
	Defaults []models.AlertThreshold            `yaml:"defaults" json:"defaults"`
	Services map[string][]models.AlertThreshold `yaml:"services,omitempty" json:"services,omitempty"`
}

// DefaultConfig returns the thresholds used when no config file is present:
// a 10-minute chime and a looping 5-minute warning.
func DefaultConfig() Config {
	return Config{
		Defaults: []models.AlertThreshold{
			{MinutesBefore: 10, SoundEnabled: true},
			{MinutesBefore: 5, SoundEnabled: true, SoundLoop: true},
		},
	}
}

// LoadConfig reads and validates a YAML threshold file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read alerts config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse alerts config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects non-positive threshold minutes.
func (c Config) Validate() error {
	for _, th := range c.Defaults {
		if th.MinutesBefore <= 0 {
			return fmt.Errorf("alerts config: minutes_before must be positive, got %d", th.MinutesBefore)
		}
	}
	for svc, ths := range c.Services {
		for _, th := range ths {
			if th.MinutesBefore <= 0 {
				return fmt.Errorf("alerts config: service %s: minutes_before must be positive, got %d", svc, th.MinutesBefore)
			}
		}
	}
	return nil
}

// ThresholdsFor returns the thresholds configured for a service, falling
// back to the defaults when the service has no entry of its own.
func (c Config) ThresholdsFor(serviceID string) []models.AlertThreshold {
	if ths, ok := c.Services[serviceID]; ok {
		return ths
	}
	return c.Defaults
}
