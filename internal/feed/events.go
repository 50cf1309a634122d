package feed

import (
	"encoding/json"
	"fmt"

	"github.com/BSTCMX/kidyland-dashboard-backup-sub009/internal/models"
)

// EventType represents the discriminant carried in every feed envelope
type EventType string

const (
	EventTypeTimersUpdate EventType = "timers_update"
	EventTypeTimerAlert   EventType = "timer_alert"
	EventTypeStockAlert   EventType = "stock_alert"
)

// Event is one decoded feed message. The interface is sealed: consumers
// switch over the concrete variants below and must keep a default arm,
// since the server may add message types this client does not know yet
// (those arrive as UnknownEvent).
type Event interface {
	Type() EventType
	isEvent()
}

// TimersUpdate carries the full active-timer collection for the sucursal.
// Each push replaces the previous collection wholesale; there are no diffs.
type TimersUpdate struct {
	Timers []models.Timer `json:"timers"`
}

// TimerAlert carries a server-originated alert message for display.
type TimerAlert struct {
	Message string `json:"message"`
}

// StockAlert carries the products currently at or below minimum stock.
type StockAlert struct {
	Alerts []models.Product `json:"alerts"`
}

// UnknownEvent preserves a well-formed message whose type this client does
// not recognize. Raw is the full frame as received.
type UnknownEvent struct {
	EventType EventType       `json:"type"`
	Raw       json.RawMessage `json:"raw"`
}

func (TimersUpdate) Type() EventType   { return EventTypeTimersUpdate }
func (TimerAlert) Type() EventType     { return EventTypeTimerAlert }
func (StockAlert) Type() EventType     { return EventTypeStockAlert }
func (e UnknownEvent) Type() EventType { return e.EventType }

func (TimersUpdate) isEvent() {}
func (TimerAlert) isEvent()   {}
func (StockAlert) isEvent()   {}
func (UnknownEvent) isEvent() {}

// header pulls just the discriminant so unknown types survive decoding even
// when their payload fields collide with known ones.
type header struct {
	Type EventType `json:"type"`
}

// DecodeEvent parses one raw feed frame into its typed event. The wire
// format is a flat envelope: payload fields sit alongside the type
// discriminant, so each known type re-parses the frame into its own shape.
func DecodeEvent(raw []byte) (Event, error) {
	var h header
	if err := json.Unmarshal(raw, &h); err != nil {
		return nil, fmt.Errorf("failed to unmarshal feed envelope: %w", err)
	}
	if h.Type == "" {
		return nil, fmt.Errorf("feed envelope has no type discriminant")
	}

	switch h.Type {
	case EventTypeTimersUpdate:
		var ev TimersUpdate
		if err := json.Unmarshal(raw, &ev); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s payload: %w", h.Type, err)
		}
		return ev, nil

	case EventTypeTimerAlert:
		var ev TimerAlert
		if err := json.Unmarshal(raw, &ev); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s payload: %w", h.Type, err)
		}
		return ev, nil

	case EventTypeStockAlert:
		var ev StockAlert
		if err := json.Unmarshal(raw, &ev); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s payload: %w", h.Type, err)
		}
		return ev, nil

	default:
		return UnknownEvent{EventType: h.Type, Raw: append(json.RawMessage(nil), raw...)}, nil
	}
}
