package eventbus

import (
	"encoding/json"
	"time"
)

// EventType discriminates the payload carried by an Event.
type EventType string

const (
	// EventDeviceActivated signals that the session transitioned into the
	// active state. Payload is DeviceActivated.
	EventDeviceActivated EventType = "device_activated"

	// EventBranchChanged signals that an active session was re-pointed to a
	// different branch. Payload is BranchChanged.
	EventBranchChanged EventType = "branch_changed"

	// EventResultsUpdated signals that a fetch loop obtained a fresh raw
	// result payload. Payload is ResultsUpdated.
	EventResultsUpdated EventType = "results_updated"
)

// Event is the unit of distribution on the Bus.
type Event struct {
	// Seq is a monotonic sequence number assigned by the bus on Publish.
	Seq uint64

	// Type discriminates Payload.
	Type EventType

	// Timestamp is when the event was published.
	Timestamp time.Time

	// Payload carries the type-specific data (DeviceActivated,
	// BranchChanged or ResultsUpdated).
	Payload any
}

// DeviceActivated is the payload for EventDeviceActivated.
type DeviceActivated struct {
	BranchID string
}

// BranchChanged is the payload for EventBranchChanged. Raw carries the
// original backend message for consumers that want more than the branch id.
type BranchChanged struct {
	BranchID string
	Raw      json.RawMessage
}

// ResultsUpdated is the payload for EventResultsUpdated. Raw is the
// unparsed fetch payload; normalization happens at the consumer.
type ResultsUpdated struct {
	// Category is "triples" or "animalitos".
	Category string

	// Date is the ISO calendar date the payload was fetched for, empty for
	// the backend's default (current) day.
	Date string

	Raw json.RawMessage
}
