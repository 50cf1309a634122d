package models

// AlertThreshold configures one before-the-end notification for a service.
// MinutesBefore is measured against the timer's remaining time.
type AlertThreshold struct {
	MinutesBefore int  `json:"minutes_before" yaml:"minutes_before"`
	SoundEnabled  bool `json:"sound_enabled" yaml:"sound_enabled"`
	SoundLoop     bool `json:"sound_loop" yaml:"sound_loop"`
}

// Service is a catalog entry for a timed play service. Pricing is per slot:
// purchased minutes are rounded up to whole slots of SlotMinutes each.
type Service struct {
	ID                string           `json:"id"`
	Name              string           `json:"name"`
	SlotMinutes       int              `json:"slot_minutes"`
	PricePerSlotCents int64            `json:"price_per_slot_cents"`
	MaxChildren       int              `json:"max_children,omitempty"`
	AlertThresholds   []AlertThreshold `json:"alert_thresholds,omitempty"`
}
