package prompts

import (
	"strings"
	"testing"

	"github.com/loopworks/ironloop/workflow"
)

func TestPromptForPhase_CoversEveryPhase(t *testing.T) {
	session := workflow.NewSession("session-p", "build the exporter")
	session.DetectedRole = workflow.RoleCoder

	for _, phase := range workflow.AllPhases {
		if phase == workflow.PhaseInit {
			continue // INIT never reaches the agent
		}
		prompt := PromptForPhase(phase, session)
		if prompt == "" {
			t.Errorf("no prompt for phase %s", phase)
		}
	}

	if got := PromptForPhase(workflow.Phase("GARBAGE"), session); got != "" {
		t.Errorf("unknown phase should yield an empty prompt, got %q", got)
	}
}

func TestPromptForPhase_QueryIncludesObjectiveAndRole(t *testing.T) {
	session := workflow.NewSession("session-q", "build the exporter")
	session.DetectedRole = workflow.RoleCoder

	prompt := PromptForPhase(workflow.PhaseQuery, session)

	if !strings.Contains(prompt, "build the exporter") {
		t.Error("query prompt should include the objective")
	}
	if !strings.Contains(prompt, RoleGuidance(workflow.RoleCoder)) {
		t.Error("query prompt should include the role guidance")
	}
}

func TestPromptForPhase_PlanDocumentsDelegationGrammar(t *testing.T) {
	session := workflow.NewSession("session-plan", "objective")
	session.Payload.EnhancedGoal = "the refined goal"

	prompt := PromptForPhase(workflow.PhasePlan, session)

	if !strings.Contains(prompt, "(ROLE:") || !strings.Contains(prompt, "(PROMPT:") {
		t.Error("plan prompt should document the delegation grammar")
	}
	if !strings.Contains(prompt, "the refined goal") {
		t.Error("plan prompt should include the enhanced goal")
	}
}

func TestPromptForPhase_ExecuteNamesCurrentTask(t *testing.T) {
	session := workflow.NewSession("session-e", "objective")
	session.Payload.CurrentTodos = []workflow.Todo{
		{ID: "todo-1", Content: "write the schema", Status: workflow.TodoStatusCompleted},
		{ID: "todo-2", Content: "wire the handler", Status: workflow.TodoStatusPending},
	}
	session.Payload.CurrentTaskIndex = 1

	prompt := PromptForPhase(workflow.PhaseExecute, session)

	if !strings.Contains(prompt, "wire the handler") {
		t.Error("execute prompt should include the current task content")
	}
	if !strings.Contains(prompt, "2 of 2") {
		t.Errorf("execute prompt should show task position, got:\n%s", prompt)
	}
}

func TestRoleGuidance_FallsBackToDefault(t *testing.T) {
	for _, role := range workflow.AllRoles {
		if RoleGuidance(role) == "" {
			t.Errorf("no guidance for role %s", role)
		}
	}

	if got := RoleGuidance(workflow.Role("wizard")); got != RoleGuidance(workflow.DefaultRole) {
		t.Errorf("unknown role should fall back to default guidance, got %q", got)
	}
}

func TestAllowedTools(t *testing.T) {
	execute := AllowedTools(workflow.PhaseExecute)
	found := false
	for _, tool := range execute {
		if tool == "bash" {
			found = true
		}
	}
	if !found {
		t.Errorf("execute tools should include bash, got %v", execute)
	}

	if done := AllowedTools(workflow.PhaseDone); len(done) != 0 {
		t.Errorf("done phase should allow no tools, got %v", done)
	}

	query := AllowedTools(workflow.PhaseQuery)
	for _, tool := range query {
		if tool == "bash" || tool == "file_write" {
			t.Errorf("query phase must not expose execution tools, got %v", query)
		}
	}

	// The returned slice is a copy.
	first := AllowedTools(workflow.PhaseExecute)
	if len(first) > 0 {
		first[0] = "mutated"
	}
	second := AllowedTools(workflow.PhaseExecute)
	if len(second) > 0 && second[0] == "mutated" {
		t.Error("AllowedTools must return a fresh copy")
	}
}
