package log

import (
	"strings"
	"time"
)

// Event is a bridge event. CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// SessionID identifies the southbound session (UUID). Empty for
	// events outside a session.
	SessionID string `cbor:"2,keyasint,omitempty"`

	// Component that emitted the event.
	Component Component `cbor:"3,keyasint"`

	// Category classifies the event.
	Category Category `cbor:"4,keyasint"`

	// TagID is set for events concerning a single tag.
	TagID string `cbor:"5,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	StateChange  *StateChangeEvent  `cbor:"10,keyasint,omitempty"`
	Subscription *SubscriptionEvent `cbor:"11,keyasint,omitempty"`
	Sync         *SyncEvent         `cbor:"12,keyasint,omitempty"`
	Error        *ErrorEventData    `cbor:"13,keyasint,omitempty"`
}

// Component identifies the part of the bridge that emitted an event.
type Component uint8

const (
	// ComponentSouthbound is the supervised southbound adapter.
	ComponentSouthbound Component = 0
	// ComponentSync is the sync scheduler.
	ComponentSync Component = 1
	// ComponentNorthbound is the northbound server.
	ComponentNorthbound Component = 2
	// ComponentBridge is process lifecycle.
	ComponentBridge Component = 3
)

// String returns the component name.
func (c Component) String() string {
	switch c {
	case ComponentSouthbound:
		return "SOUTHBOUND"
	case ComponentSync:
		return "SYNC"
	case ComponentNorthbound:
		return "NORTHBOUND"
	case ComponentBridge:
		return "BRIDGE"
	default:
		return "UNKNOWN"
	}
}

// ParseComponent parses a component name (case-insensitive).
func ParseComponent(s string) (Component, bool) {
	for c := ComponentSouthbound; c <= ComponentBridge; c++ {
		if strings.EqualFold(c.String(), s) {
			return c, true
		}
	}
	return 0, false
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryState indicates a state change.
	CategoryState Category = 0
	// CategorySubscription indicates a per-tag subscription result.
	CategorySubscription Category = 1
	// CategorySync indicates a sync tick summary.
	CategorySync Category = 2
	// CategoryError indicates an error event.
	CategoryError Category = 3
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryState:
		return "STATE"
	case CategorySubscription:
		return "SUBSCRIPTION"
	case CategorySync:
		return "SYNC"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseCategory parses a category name (case-insensitive).
func ParseCategory(s string) (Category, bool) {
	for c := CategoryState; c <= CategoryError; c++ {
		if strings.EqualFold(c.String(), s) {
			return c, true
		}
	}
	return 0, false
}

// StateChangeEvent captures lifecycle transitions.
type StateChangeEvent struct {
	// OldState is the previous state (may be empty).
	OldState string `cbor:"1,keyasint,omitempty"`

	// NewState is the new state.
	NewState string `cbor:"2,keyasint"`

	// Reason for the change (if available).
	Reason string `cbor:"3,keyasint,omitempty"`

	// Attempt is the connect attempt number since the last success.
	Attempt int `cbor:"4,keyasint,omitempty"`

	// RetryIn is the backoff delay before the next attempt.
	RetryIn time.Duration `cbor:"5,keyasint,omitempty"`
}

// SubscriptionEvent is the result of subscribing one tag.
type SubscriptionEvent struct {
	// OK is true if the tag was subscribed.
	OK bool `cbor:"1,keyasint"`

	// Reason is the failure reason.
	Reason string `cbor:"2,keyasint,omitempty"`
}

// SyncEvent summarizes one sync tick.
type SyncEvent struct {
	// Tick is the tick sequence number.
	Tick uint64 `cbor:"1,keyasint"`

	// Nodes is the number of nodes visited.
	Nodes int `cbor:"2,keyasint"`

	// Written is the number of nodes written and notified.
	Written int `cbor:"3,keyasint"`

	// Absent is the number of nodes without a store entry.
	Absent int `cbor:"4,keyasint,omitempty"`

	// Unchanged is the number of nodes skipped because nothing changed.
	Unchanged int `cbor:"5,keyasint,omitempty"`

	// Failed is the number of failed node writes.
	Failed int `cbor:"6,keyasint,omitempty"`

	// Duration of the tick.
	Duration time.Duration `cbor:"7,keyasint"`

	// Skipped is true if the tick was dropped because a previous tick
	// was still running.
	Skipped bool `cbor:"8,keyasint,omitempty"`
}

// ErrorEventData captures an error.
type ErrorEventData struct {
	// Message is the error message.
	Message string `cbor:"1,keyasint"`

	// Context describes what operation was being performed.
	Context string `cbor:"2,keyasint,omitempty"`

	// Panic is true if the error was a recovered panic.
	Panic bool `cbor:"3,keyasint,omitempty"`
}
