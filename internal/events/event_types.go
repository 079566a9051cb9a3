package events

import "time"

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventSessionStarted    EventType = "session_started"
	EventSessionTerminated EventType = "session_terminated"
)

// Event represents a session lifecycle event emitted by the core.
type Event struct {
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// SessionStartedPayload payload.
type SessionStartedPayload struct {
	SubjectID string `json:"subject_id"`
	Role      string `json:"role"`
}

// SessionTerminatedPayload payload. Reason states which auth failure forced
// the teardown; the presentation layer navigates to the login entry point.
type SessionTerminatedPayload struct {
	Reason string `json:"reason"`
}
