// Package workflow provides the ironloop session workflow system: an
// eight-phase finite-state machine that drives an external reasoning agent
// from objective capture through planning, execution and verification.
package workflow

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Sentinel errors for session operations.
var (
	// ErrSessionNotFound is returned by a SessionStore when no record exists.
	ErrSessionNotFound = errors.New("session not found")

	// ErrUnknownPhase indicates a phase value outside the workflow enum.
	// A stored session carrying one is a store integrity failure, never
	// silently coerced to a default phase.
	ErrUnknownPhase = errors.New("unknown workflow phase")

	// ErrMissingObjective is returned when a call addresses a session that
	// does not exist and supplies no initial objective to create one.
	ErrMissingObjective = errors.New("initial objective required to create session")
)

// TodoStatus represents the status of a single todo.
type TodoStatus string

const (
	TodoStatusPending    TodoStatus = "pending"
	TodoStatusInProgress TodoStatus = "in_progress"
	TodoStatusCompleted  TodoStatus = "completed"
)

// IsValid returns true if the status is a known todo status.
func (s TodoStatus) IsValid() bool {
	switch s {
	case TodoStatusPending, TodoStatusInProgress, TodoStatusCompleted:
		return true
	default:
		return false
	}
}

// TodoPriority represents the priority of a single todo.
type TodoPriority string

const (
	TodoPriorityHigh   TodoPriority = "high"
	TodoPriorityMedium TodoPriority = "medium"
	TodoPriorityLow    TodoPriority = "low"
)

// IsValid returns true if the priority is a known todo priority.
func (p TodoPriority) IsValid() bool {
	switch p {
	case TodoPriorityHigh, TodoPriorityMedium, TodoPriorityLow:
		return true
	default:
		return false
	}
}

// Todo is one unit of planned work. Todos are created wholesale when the
// PLAN phase completes and are only ever status-transitioned afterwards,
// never deleted.
type Todo struct {
	// ID identifies the todo within its session.
	ID string `json:"id"`

	// Content is the raw task text, possibly embedding a meta-instruction.
	Content string `json:"content"`

	// Status is the current todo status.
	Status TodoStatus `json:"status"`

	// Priority is the todo priority.
	Priority TodoPriority `json:"priority"`

	// MetaInstruction is the delegation instruction extracted from Content,
	// or nil when the content carries none. Recomputed at PLAN time.
	MetaInstruction *MetaInstruction `json:"meta_instruction,omitempty"`
}

// IsCritical returns true if the todo must be fully completed before
// verification can pass: high priority or carrying a meta-instruction.
func (t *Todo) IsCritical() bool {
	return t.Priority == TodoPriorityHigh || t.MetaInstruction != nil
}

// SessionPayload holds the phase-scoped working state of a session.
// Fixed fields cover the known phases; Extra carries additive
// forward-compatible fields supplied by callers.
type SessionPayload struct {
	InterpretedGoal      string              `json:"interpreted_goal,omitempty"`
	EnhancedGoal         string              `json:"enhanced_goal,omitempty"`
	KnowledgeGathered    string              `json:"knowledge_gathered,omitempty"`
	CurrentTodos         []Todo              `json:"current_todos"`
	CurrentTaskIndex     int                 `json:"current_task_index"`
	PhaseTransitionCount int                 `json:"phase_transition_count"`
	LastVerification     *VerificationResult `json:"last_verification,omitempty"`
	Extra                map[string]any      `json:"extra,omitempty"`
}

// Session is the unit of workflow state: one record per cooperating agent
// conversation, addressed by SessionID.
type Session struct {
	// SessionID is the opaque unique identity of the workflow instance.
	SessionID string `json:"session_id"`

	// CurrentPhase is the phase the session is currently in.
	CurrentPhase Phase `json:"current_phase"`

	// InitialObjective is the immutable free-text goal captured at creation.
	InitialObjective string `json:"initial_objective"`

	// DetectedRole is the role selected for the objective. It may be revised
	// once during QUERY by a caller-supplied confirmation.
	DetectedRole Role `json:"detected_role"`

	// ReasoningEffectiveness is a bounded score in [0.3, 1.0] reflecting
	// recent execution success.
	ReasoningEffectiveness float64 `json:"reasoning_effectiveness"`

	// Payload holds the phase-scoped working state.
	Payload SessionPayload `json:"payload"`

	// CreatedAt is when the session record was created.
	CreatedAt time.Time `json:"created_at"`

	// LastActivity is refreshed on every mutation. Used by the store's
	// TTL-based cleanup policy; the core never deletes sessions itself.
	LastActivity time.Time `json:"last_activity"`
}

// NewSessionID generates an opaque unique session identifier.
func NewSessionID() string {
	return "session-" + uuid.New().String()
}

// NewSession creates a session in INIT with the given objective and the
// configured initial reasoning effectiveness.
func NewSession(sessionID, objective string) *Session {
	now := time.Now().UTC()
	return &Session{
		SessionID:              sessionID,
		CurrentPhase:           PhaseInit,
		InitialObjective:       objective,
		ReasoningEffectiveness: InitialReasoningEffectiveness,
		Payload: SessionPayload{
			CurrentTodos:     []Todo{},
			CurrentTaskIndex: 0,
		},
		CreatedAt:    now,
		LastActivity: now,
	}
}

// Touch refreshes the last-activity stamp.
func (s *Session) Touch() {
	s.LastActivity = time.Now().UTC()
}

// Clone returns a deep copy of the session. Stores hand out clones so a
// caller mutating the result cannot corrupt shared state.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}

	clone := *s

	clone.Payload.CurrentTodos = make([]Todo, len(s.Payload.CurrentTodos))
	for i, todo := range s.Payload.CurrentTodos {
		clone.Payload.CurrentTodos[i] = todo
		if todo.MetaInstruction != nil {
			mi := *todo.MetaInstruction
			if todo.MetaInstruction.ContextParameters != nil {
				mi.ContextParameters = make(map[string]string, len(todo.MetaInstruction.ContextParameters))
				for k, v := range todo.MetaInstruction.ContextParameters {
					mi.ContextParameters[k] = v
				}
			}
			clone.Payload.CurrentTodos[i].MetaInstruction = &mi
		}
	}

	if s.Payload.LastVerification != nil {
		lv := *s.Payload.LastVerification
		clone.Payload.LastVerification = &lv
	}

	if s.Payload.Extra != nil {
		clone.Payload.Extra = make(map[string]any, len(s.Payload.Extra))
		for k, v := range s.Payload.Extra {
			clone.Payload.Extra[k] = v
		}
	}

	return &clone
}

// TodoStats returns total and completed todo counts for the session.
func (s *Session) TodoStats() (total, completed int) {
	total = len(s.Payload.CurrentTodos)
	for i := range s.Payload.CurrentTodos {
		if s.Payload.CurrentTodos[i].Status == TodoStatusCompleted {
			completed++
		}
	}
	return total, completed
}
