package models

import "time"

// TimerStatus represents the lifecycle status of a timer
type TimerStatus string

const (
	TimerStatusScheduled TimerStatus = "scheduled"
	TimerStatusActive    TimerStatus = "active"
	TimerStatusEnded     TimerStatus = "ended"
	TimerStatusExtended  TimerStatus = "extended"
	TimerStatusAlert     TimerStatus = "alert"
)

// TimerEventType represents a kind of entry in a timer's history
type TimerEventType string

const (
	TimerEventStart  TimerEventType = "start"
	TimerEventExtend TimerEventType = "extend"
	TimerEventEnd    TimerEventType = "end"
)

// TimerEvent is one entry in a timer's append-only history
type TimerEvent struct {
	Event        TimerEventType `json:"event"`
	At           time.Time      `json:"at"`
	MinutesAdded int            `json:"minutes_added,omitempty"` // extensions only
}

// Timer is the client-side projection of a server-owned countdown for one
// child's purchased play time. The server is authoritative for status and
// end_at; time_left_seconds is a hint that clients recompute locally between
// pushes.
type Timer struct {
	ID            string       `json:"id"`
	SaleID        string       `json:"sale_id"`
	ServiceID     string       `json:"service_id,omitempty"`
	SucursalID    string       `json:"sucursal_id,omitempty"`
	ChildName     string       `json:"child_name"`
	ChildAge      int          `json:"child_age,omitempty"`
	StartDelayMin int          `json:"start_delay_min,omitempty"` // minutes the start was deferred
	StartAt       *time.Time   `json:"start_at,omitempty"`
	EndAt         *time.Time   `json:"end_at,omitempty"` // nil while scheduled
	Status        TimerStatus  `json:"status"`
	TimeLeftSec   int          `json:"time_left_seconds"`
	History       []TimerEvent `json:"history,omitempty"`
}

// RemainingSeconds returns the whole seconds between now and the timer's end
// timestamp, clamped at zero. Timers without an end timestamp return zero.
func (t *Timer) RemainingSeconds(now time.Time) int {
	if t.EndAt == nil || t.EndAt.IsZero() {
		return 0
	}
	remaining := int(t.EndAt.Sub(now).Seconds())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// HasEnd reports whether the server has assigned an end timestamp yet.
func (t *Timer) HasEnd() bool {
	return t.EndAt != nil && !t.EndAt.IsZero()
}
