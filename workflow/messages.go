package workflow

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/c360studio/semstreams/message"
	"github.com/c360studio/semstreams/payloadregistry"
)

// RegisterPayloads registers the session payload types with the supplied
// registry. Called at process bootstrap, before any component that
// unmarshals BaseMessage envelopes starts consuming.
func RegisterPayloads(reg *payloadregistry.Registry) error {
	return errors.Join(
		reg.Register(&payloadregistry.Registration{
			Domain:      "session",
			Category:    "advance",
			Version:     "v1",
			Description: "Session phase advance request",
			Factory:     func() any { return &AdvanceRequest{} },
		}),
		reg.Register(&payloadregistry.Registration{
			Domain:      "session",
			Category:    "advance-result",
			Version:     "v1",
			Description: "Session phase advance result with next phase and payload",
			Factory:     func() any { return &AdvanceResponse{} },
		}),
		reg.Register(&payloadregistry.Registration{
			Domain:      "session",
			Category:    "advanced",
			Version:     "v1",
			Description: "Session advanced to its next phase",
			Factory:     func() any { return &SessionAdvancedEvent{} },
		}),
		reg.Register(&payloadregistry.Registration{
			Domain:      "session",
			Category:    "rolled-back",
			Version:     "v1",
			Description: "Session rolled back after failed verification",
			Factory:     func() any { return &SessionRolledBackEvent{} },
		}),
		reg.Register(&payloadregistry.Registration{
			Domain:      "session",
			Category:    "completed",
			Version:     "v1",
			Description: "Session reached the terminal phase",
			Factory:     func() any { return &SessionCompletedEvent{} },
		}),
	)
}

// AdvanceRequestType is the message type for advance requests.
var AdvanceRequestType = message.Type{
	Domain:   "session",
	Category: "advance",
	Version:  "v1",
}

// AdvanceResponseType is the message type for advance results.
var AdvanceResponseType = message.Type{
	Domain:   "session",
	Category: "advance-result",
	Version:  "v1",
}

// SessionStatus reports whether a workflow is still running.
type SessionStatus string

const (
	// StatusInProgress indicates the workflow has more phases to run.
	StatusInProgress SessionStatus = "IN_PROGRESS"
	// StatusDone indicates the workflow reached the terminal phase.
	StatusDone SessionStatus = "DONE"
)

// ValidationError describes an invalid request field.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// AdvanceRequest is the controller's input message. At most one of
// PhaseCompleted and InitialObjective is meaningfully set: the first call
// for a session supplies the objective, every later call reports the phase
// the agent just finished.
type AdvanceRequest struct {
	// SessionID addresses the workflow instance. Generated when absent.
	SessionID string `json:"session_id,omitempty"`

	// PhaseCompleted names the phase the caller claims to have finished.
	PhaseCompleted Phase `json:"phase_completed,omitempty"`

	// InitialObjective creates a session on the first call.
	InitialObjective string `json:"initial_objective,omitempty"`

	// Payload carries the caller's phase-specific results.
	Payload *AdvancePayload `json:"payload,omitempty"`
}

// AdvancePayload holds the per-phase fields a caller may supply. Which
// fields the controller reads depends entirely on the session's current
// phase; everything else is ignored for that call.
type AdvancePayload struct {
	// QUERY: confirmed role and interpreted goal.
	RoleConfirmation string `json:"detected_role,omitempty"`
	InterpretedGoal  string `json:"interpreted_goal,omitempty"`

	// ENHANCE: refined goal.
	EnhancedGoal string `json:"enhanced_goal,omitempty"`

	// KNOWLEDGE: research findings.
	KnowledgeGathered string `json:"knowledge_gathered,omitempty"`

	// PLAN: todo list replacement.
	PlanCreated bool       `json:"plan_created,omitempty"`
	Todos       []TodoSpec `json:"todos,omitempty"`

	// EXECUTE: outcome of the current task.
	ExecutionSuccess *bool `json:"execution_success,omitempty"`
	TaskComplex      bool  `json:"task_complex,omitempty"`
	MoreTasksPending bool  `json:"more_tasks_pending,omitempty"`

	// EXECUTE: in-place todo status updates (id → status).
	TodoUpdates map[string]TodoStatus `json:"todo_updates,omitempty"`

	// VERIFY: the caller's explicit sign-off.
	VerificationPassed bool `json:"verification_passed,omitempty"`

	// Extra carries additive fields merged into the session payload.
	Extra map[string]any `json:"extra,omitempty"`
}

// TodoSpec is the caller-supplied shape of one planned todo. The controller
// assigns IDs and derives meta-instructions when the plan is accepted.
type TodoSpec struct {
	Content  string       `json:"content"`
	Priority TodoPriority `json:"priority,omitempty"`
}

// Validate validates the AdvanceRequest.
func (r *AdvanceRequest) Validate() error {
	if r.PhaseCompleted != "" && !r.PhaseCompleted.IsValid() {
		return &ValidationError{Field: "phase_completed", Message: fmt.Sprintf("unknown phase %q", r.PhaseCompleted)}
	}
	if r.PhaseCompleted != "" && r.InitialObjective != "" {
		return &ValidationError{Field: "initial_objective", Message: "cannot be combined with phase_completed"}
	}
	if r.PhaseCompleted == "" && r.InitialObjective == "" && r.SessionID == "" {
		return &ValidationError{Field: "session_id", Message: "required without initial_objective"}
	}
	return nil
}

// Schema returns the message type for AdvanceRequest.
func (r *AdvanceRequest) Schema() message.Type {
	return AdvanceRequestType
}

// AdvanceResponse is the controller's output message.
type AdvanceResponse struct {
	// SessionID echoes (or announces, for new sessions) the session identity.
	SessionID string `json:"session_id"`

	// NextPhase is the phase the agent should run next.
	NextPhase Phase `json:"next_phase"`

	// Status is DONE once the terminal phase is reached.
	Status SessionStatus `json:"status"`

	// DetectedRole is the session's current role.
	DetectedRole Role `json:"detected_role"`

	// ReasoningEffectiveness is the session's current score.
	ReasoningEffectiveness float64 `json:"reasoning_effectiveness"`

	// TransitionApplied reports whether this call mutated the phase
	// machine. False for terminal no-ops, stale phase tags and
	// zero-mutation calls such as PLAN completed without a plan.
	TransitionApplied bool `json:"transition_applied"`

	// Payload is the session payload after this call's mutation.
	Payload SessionPayload `json:"payload"`

	// AllowedNextTools lists the external actions permitted in NextPhase.
	// Populated by the host from its phase/tool mapping; the controller
	// itself leaves it empty.
	AllowedNextTools []string `json:"allowed_next_tools,omitempty"`
}

// Validate validates the AdvanceResponse.
func (r *AdvanceResponse) Validate() error {
	if r.SessionID == "" {
		return &ValidationError{Field: "session_id", Message: "required"}
	}
	if !r.NextPhase.IsValid() {
		return &ValidationError{Field: "next_phase", Message: fmt.Sprintf("unknown phase %q", r.NextPhase)}
	}
	return nil
}

// Schema returns the message type for AdvanceResponse.
func (r *AdvanceResponse) Schema() message.Type {
	return AdvanceResponseType
}

// MarshalJSON implements json.Marshaler.
func (r *AdvanceRequest) MarshalJSON() ([]byte, error) {
	type Alias AdvanceRequest
	return json.Marshal((*Alias)(r))
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *AdvanceRequest) UnmarshalJSON(data []byte) error {
	type Alias AdvanceRequest
	return json.Unmarshal(data, (*Alias)(r))
}

// MarshalJSON implements json.Marshaler.
func (r *AdvanceResponse) MarshalJSON() ([]byte, error) {
	type Alias AdvanceResponse
	return json.Marshal((*Alias)(r))
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *AdvanceResponse) UnmarshalJSON(data []byte) error {
	type Alias AdvanceResponse
	return json.Unmarshal(data, (*Alias)(r))
}

// ParseAdvanceRequest decodes an advance request off the wire. It accepts
// both a BaseMessage-wrapped payload (components publishing through the
// semstreams registry) and raw request JSON (direct callers).
func ParseAdvanceRequest(data []byte) (*AdvanceRequest, error) {
	// A BaseMessage envelope carries a type discriminator next to the
	// payload; a raw request has a payload field but no type.
	var envelope struct {
		Type    json.RawMessage `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("parse advance request: %w", err)
	}

	body := data
	if len(envelope.Type) > 0 && len(envelope.Payload) > 0 {
		body = envelope.Payload
	}

	var req AdvanceRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, fmt.Errorf("parse advance request: %w", err)
	}

	if err := req.Validate(); err != nil {
		return nil, err
	}

	return &req, nil
}
