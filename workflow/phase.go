package workflow

import "fmt"

// Phase represents one stage of the fixed session workflow.
type Phase string

const (
	// PhaseInit is the entry phase before an objective has been captured.
	PhaseInit Phase = "INIT"
	// PhaseQuery is the goal-interpretation phase.
	PhaseQuery Phase = "QUERY"
	// PhaseEnhance is the goal-refinement phase.
	PhaseEnhance Phase = "ENHANCE"
	// PhaseKnowledge is the research/knowledge-gathering phase.
	PhaseKnowledge Phase = "KNOWLEDGE"
	// PhasePlan is the task-breakdown phase.
	PhasePlan Phase = "PLAN"
	// PhaseExecute is the iterative task-execution phase.
	PhaseExecute Phase = "EXECUTE"
	// PhaseVerify is the completion-verification phase.
	PhaseVerify Phase = "VERIFY"
	// PhaseDone is the terminal phase.
	PhaseDone Phase = "DONE"
)

// String returns the string representation of the phase.
func (p Phase) String() string {
	return string(p)
}

// IsValid returns true if the phase is a known workflow phase.
func (p Phase) IsValid() bool {
	switch p {
	case PhaseInit, PhaseQuery, PhaseEnhance, PhaseKnowledge,
		PhasePlan, PhaseExecute, PhaseVerify, PhaseDone:
		return true
	default:
		return false
	}
}

// IsTerminal returns true if the phase permits no further transitions.
func (p Phase) IsTerminal() bool {
	return p == PhaseDone
}

// Next returns the happy-path successor of the phase.
// DONE is its own successor.
func (p Phase) Next() Phase {
	switch p {
	case PhaseInit:
		return PhaseQuery
	case PhaseQuery:
		return PhaseEnhance
	case PhaseEnhance:
		return PhaseKnowledge
	case PhaseKnowledge:
		return PhasePlan
	case PhasePlan:
		return PhaseExecute
	case PhaseExecute:
		return PhaseVerify
	case PhaseVerify:
		return PhaseDone
	case PhaseDone:
		return PhaseDone
	default:
		return p
	}
}

// CanTransitionTo returns true if the phase can transition to the target phase.
// Besides the happy path this includes the execute iteration self-loop and the
// verification rollback edges back to PLAN and EXECUTE.
func (p Phase) CanTransitionTo(target Phase) bool {
	switch p {
	case PhaseInit:
		return target == PhaseQuery
	case PhaseQuery:
		return target == PhaseEnhance
	case PhaseEnhance:
		return target == PhaseKnowledge
	case PhaseKnowledge:
		return target == PhasePlan
	case PhasePlan:
		return target == PhaseExecute
	case PhaseExecute:
		// execute → execute (next task) or execute → verify (all tasks done)
		return target == PhaseExecute || target == PhaseVerify
	case PhaseVerify:
		// verify → done (valid) or rollback to plan/execute (invalid)
		return target == PhaseDone || target == PhasePlan || target == PhaseExecute
	case PhaseDone:
		return false // Terminal state
	default:
		return false
	}
}

// AllPhases lists every workflow phase in happy-path order.
var AllPhases = []Phase{
	PhaseInit, PhaseQuery, PhaseEnhance, PhaseKnowledge,
	PhasePlan, PhaseExecute, PhaseVerify, PhaseDone,
}

// ParsePhase converts a string into a Phase, rejecting unknown values.
func ParsePhase(s string) (Phase, error) {
	p := Phase(s)
	if !p.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownPhase, s)
	}
	return p, nil
}
