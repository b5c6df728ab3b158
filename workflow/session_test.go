package workflow

import (
	"strings"
	"testing"
)

func TestNewSession(t *testing.T) {
	session := NewSession("session-new", "the objective")

	if session.CurrentPhase != PhaseInit {
		t.Errorf("CurrentPhase = %s, want INIT", session.CurrentPhase)
	}
	if session.ReasoningEffectiveness != InitialReasoningEffectiveness {
		t.Errorf("ReasoningEffectiveness = %v, want %v",
			session.ReasoningEffectiveness, InitialReasoningEffectiveness)
	}
	if session.InitialObjective != "the objective" {
		t.Errorf("InitialObjective = %q", session.InitialObjective)
	}
	if session.Payload.CurrentTodos == nil {
		t.Error("CurrentTodos should be initialized")
	}
	if session.CreatedAt.IsZero() || session.LastActivity.IsZero() {
		t.Error("timestamps should be set")
	}
}

func TestNewSessionID(t *testing.T) {
	a := NewSessionID()
	b := NewSessionID()

	if !strings.HasPrefix(a, "session-") {
		t.Errorf("unexpected ID shape: %s", a)
	}
	if a == b {
		t.Error("session IDs must be unique")
	}
}

func TestSession_Clone(t *testing.T) {
	session := NewSession("session-clone", "objective")
	session.Payload.CurrentTodos = []Todo{
		{
			ID:       "todo-1",
			Content:  "(ROLE: coder) (PROMPT: build it)",
			Status:   TodoStatusPending,
			Priority: TodoPriorityHigh,
			MetaInstruction: &MetaInstruction{
				RoleSpecification: "coder",
				ContextParameters: map[string]string{"domain": "auth"},
				InstructionBlock:  "build it",
			},
		},
	}
	session.Payload.LastVerification = &VerificationResult{CompletionPercentage: 50}
	session.Payload.Extra = map[string]any{"key": "value"}

	clone := session.Clone()

	clone.Payload.CurrentTodos[0].Status = TodoStatusCompleted
	clone.Payload.CurrentTodos[0].MetaInstruction.ContextParameters["domain"] = "other"
	clone.Payload.LastVerification.CompletionPercentage = 99
	clone.Payload.Extra["key"] = "changed"

	if session.Payload.CurrentTodos[0].Status != TodoStatusPending {
		t.Error("clone mutation leaked into the original todo status")
	}
	if session.Payload.CurrentTodos[0].MetaInstruction.ContextParameters["domain"] != "auth" {
		t.Error("clone mutation leaked into the original meta-instruction")
	}
	if session.Payload.LastVerification.CompletionPercentage != 50 {
		t.Error("clone mutation leaked into the original verification result")
	}
	if session.Payload.Extra["key"] != "value" {
		t.Error("clone mutation leaked into the original extra map")
	}
}

func TestSession_CloneNil(t *testing.T) {
	var session *Session
	if session.Clone() != nil {
		t.Error("cloning nil should yield nil")
	}
}

func TestSession_TodoStats(t *testing.T) {
	session := NewSession("session-stats", "objective")

	total, completed := session.TodoStats()
	if total != 0 || completed != 0 {
		t.Errorf("empty session stats = %d/%d", completed, total)
	}

	session.Payload.CurrentTodos = []Todo{
		{ID: "todo-1", Status: TodoStatusCompleted},
		{ID: "todo-2", Status: TodoStatusInProgress},
		{ID: "todo-3", Status: TodoStatusCompleted},
		{ID: "todo-4", Status: TodoStatusPending},
	}

	total, completed = session.TodoStats()
	if total != 4 || completed != 2 {
		t.Errorf("stats = %d/%d, want 2/4", completed, total)
	}
}

func TestTodo_IsCritical(t *testing.T) {
	tests := []struct {
		name string
		todo Todo
		want bool
	}{
		{"high priority", Todo{Priority: TodoPriorityHigh}, true},
		{"meta-instruction", Todo{Priority: TodoPriorityLow,
			MetaInstruction: &MetaInstruction{RoleSpecification: "coder"}}, true},
		{"both", Todo{Priority: TodoPriorityHigh,
			MetaInstruction: &MetaInstruction{}}, true},
		{"medium plain", Todo{Priority: TodoPriorityMedium}, false},
		{"low plain", Todo{Priority: TodoPriorityLow}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.todo.IsCritical(); got != tt.want {
				t.Errorf("IsCritical() = %v, want %v", got, tt.want)
			}
		})
	}
}
