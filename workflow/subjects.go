// Typed NATS subject definitions for ironloop session lifecycle events.
//
// Events are published as BaseMessage-wrapped JSON on per-event-type
// subjects under "session.events.<action>", enabling subject-based routing
// and type-safe subscription on the consumer side.
package workflow

import (
	"encoding/json"
	"fmt"

	"github.com/c360studio/semstreams/message"
)

// AdvanceSubject is the subject the orchestrator consumes advance
// requests from.
const AdvanceSubject = "session.advance"

// Session lifecycle event subjects.
const (
	// SubjectSessionAdvanced carries SessionAdvancedEvent per transition.
	SubjectSessionAdvanced = "session.events.advanced"

	// SubjectSessionRolledBack carries SessionRolledBackEvent on
	// verification failure.
	SubjectSessionRolledBack = "session.events.rolled_back"

	// SubjectSessionCompleted carries SessionCompletedEvent on DONE.
	SubjectSessionCompleted = "session.events.completed"
)

// SessionAdvancedEvent is published after every applied phase transition.
type SessionAdvancedEvent struct {
	SessionID              string  `json:"session_id"`
	PhaseCompleted         Phase   `json:"phase_completed,omitempty"`
	NextPhase              Phase   `json:"next_phase"`
	TaskIndex              int     `json:"task_index"`
	ReasoningEffectiveness float64 `json:"reasoning_effectiveness"`
}

// SessionRolledBackEvent is published when verification sends a session back
// to PLAN or EXECUTE.
type SessionRolledBackEvent struct {
	SessionID            string  `json:"session_id"`
	TargetPhase          Phase   `json:"target_phase"`
	CompletionPercentage float64 `json:"completion_percentage"`
	Reason               string  `json:"reason"`
}

// SessionCompletedEvent is published when a session reaches DONE.
type SessionCompletedEvent struct {
	SessionID            string  `json:"session_id"`
	CompletionPercentage float64 `json:"completion_percentage"`
	PhaseTransitions     int     `json:"phase_transitions"`
}

// EventSubject returns the per-session subject for an event type, e.g.
// "session.events.completed.session-abc".
func EventSubject(base, sessionID string) string {
	return fmt.Sprintf("%s.%s", base, sessionID)
}

// SessionAdvancedEventType is the message type for advanced events.
var SessionAdvancedEventType = message.Type{
	Domain:   "session",
	Category: "advanced",
	Version:  "v1",
}

// SessionRolledBackEventType is the message type for rollback events.
var SessionRolledBackEventType = message.Type{
	Domain:   "session",
	Category: "rolled-back",
	Version:  "v1",
}

// SessionCompletedEventType is the message type for completion events.
var SessionCompletedEventType = message.Type{
	Domain:   "session",
	Category: "completed",
	Version:  "v1",
}

// Schema returns the message type for this payload.
func (e *SessionAdvancedEvent) Schema() message.Type {
	return SessionAdvancedEventType
}

// Validate validates the event.
func (e *SessionAdvancedEvent) Validate() error {
	if e.SessionID == "" {
		return fmt.Errorf("session_id is required")
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (e *SessionAdvancedEvent) MarshalJSON() ([]byte, error) {
	type Alias SessionAdvancedEvent
	return json.Marshal((*Alias)(e))
}

// UnmarshalJSON implements json.Unmarshaler.
func (e *SessionAdvancedEvent) UnmarshalJSON(data []byte) error {
	type Alias SessionAdvancedEvent
	return json.Unmarshal(data, (*Alias)(e))
}

// Schema returns the message type for this payload.
func (e *SessionRolledBackEvent) Schema() message.Type {
	return SessionRolledBackEventType
}

// Validate validates the event.
func (e *SessionRolledBackEvent) Validate() error {
	if e.SessionID == "" {
		return fmt.Errorf("session_id is required")
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (e *SessionRolledBackEvent) MarshalJSON() ([]byte, error) {
	type Alias SessionRolledBackEvent
	return json.Marshal((*Alias)(e))
}

// UnmarshalJSON implements json.Unmarshaler.
func (e *SessionRolledBackEvent) UnmarshalJSON(data []byte) error {
	type Alias SessionRolledBackEvent
	return json.Unmarshal(data, (*Alias)(e))
}

// Schema returns the message type for this payload.
func (e *SessionCompletedEvent) Schema() message.Type {
	return SessionCompletedEventType
}

// Validate validates the event.
func (e *SessionCompletedEvent) Validate() error {
	if e.SessionID == "" {
		return fmt.Errorf("session_id is required")
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (e *SessionCompletedEvent) MarshalJSON() ([]byte, error) {
	type Alias SessionCompletedEvent
	return json.Marshal((*Alias)(e))
}

// UnmarshalJSON implements json.Unmarshaler.
func (e *SessionCompletedEvent) UnmarshalJSON(data []byte) error {
	type Alias SessionCompletedEvent
	return json.Unmarshal(data, (*Alias)(e))
}
