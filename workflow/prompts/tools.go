package prompts

import "github.com/loopworks/ironloop/workflow"

// allowedTools maps each phase to the external actions the host should
// expose while the agent runs that phase. Restricting the surface per phase
// is what keeps the FSM honest: an agent cannot execute work during QUERY
// because no execution tool is offered.
var allowedTools = map[workflow.Phase][]string{
	workflow.PhaseInit:      {"advance"},
	workflow.PhaseQuery:     {"advance"},
	workflow.PhaseEnhance:   {"advance"},
	workflow.PhaseKnowledge: {"advance", "web_search", "web_fetch"},
	workflow.PhasePlan:      {"advance", "todo_write"},
	workflow.PhaseExecute:   {"advance", "todo_write", "task_delegate", "bash", "file_read", "file_write"},
	workflow.PhaseVerify:    {"advance", "file_read"},
	workflow.PhaseDone:      {},
}

// AllowedTools returns the tool names permitted in the given phase. The
// returned slice is a copy; callers may mutate it freely.
func AllowedTools(phase workflow.Phase) []string {
	tools := allowedTools[phase]
	out := make([]string, len(tools))
	copy(out, tools)
	return out
}
