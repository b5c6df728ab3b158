// Package prompts provides the natural-language prompt bodies and
// phase/tool mappings the host pairs with each workflow phase. The
// controller itself only ever emits the phase enum; everything here is the
// external collaborator side of that contract.
package prompts

import (
	"fmt"

	"github.com/loopworks/ironloop/workflow"
)

// PromptForPhase returns the system prompt for the phase the agent is about
// to run. Unknown phases return an empty string.
func PromptForPhase(phase workflow.Phase, session *workflow.Session) string {
	switch phase {
	case workflow.PhaseQuery:
		return queryPrompt(session)
	case workflow.PhaseEnhance:
		return enhancePrompt(session)
	case workflow.PhaseKnowledge:
		return knowledgePrompt(session)
	case workflow.PhasePlan:
		return planPrompt(session)
	case workflow.PhaseExecute:
		return executePrompt(session)
	case workflow.PhaseVerify:
		return verifyPrompt(session)
	case workflow.PhaseDone:
		return "The workflow is complete. Summarize the outcome for the user."
	default:
		return ""
	}
}

func queryPrompt(session *workflow.Session) string {
	return fmt.Sprintf(`You are operating as %s.

## Objective

%s

## Your Task

Interpret the objective above. State, in one or two sentences, what the user
actually wants accomplished and what a finished result looks like. If the
detected role is wrong for this objective, say which role fits better.

Report back with phase_completed=QUERY, an interpreted_goal, and optionally a
corrected detected_role.`,
		RoleGuidance(session.DetectedRole),
		session.InitialObjective)
}

func enhancePrompt(session *workflow.Session) string {
	goal := session.Payload.InterpretedGoal
	if goal == "" {
		goal = session.InitialObjective
	}
	return fmt.Sprintf(`You are operating as %s.

## Interpreted Goal

%s

## Your Task

Refine the goal: add the constraints, edge cases and success criteria the
short form leaves implicit. Keep it to one paragraph.

Report back with phase_completed=ENHANCE and an enhanced_goal.`,
		RoleGuidance(session.DetectedRole), goal)
}

func knowledgePrompt(session *workflow.Session) string {
	return fmt.Sprintf(`You are operating as %s.

## Goal

%s

## Your Task

Decide what you need to know before planning, gather it with the tools
available in this phase, and condense the findings. If no research is
needed, say so and move on — skipping research is your call, not the
controller's.

Report back with phase_completed=KNOWLEDGE and knowledge_gathered.`,
		RoleGuidance(session.DetectedRole), session.Payload.EnhancedGoal)
}

func planPrompt(session *workflow.Session) string {
	return fmt.Sprintf(`You are operating as %s.

## Goal

%s

## Your Task

Break the goal into concrete todos. Mark genuinely blocking work as
priority high. To delegate a todo to a specialist agent, embed a
meta-instruction in its content:

	(ROLE: coder) (CONTEXT: auth_system) (PROMPT: Implement JWT login) (OUTPUT: code)

ROLE and PROMPT are required for delegation; CONTEXT and OUTPUT are
optional. Keep a ')' out of tag values — it ends the tag.

Report back with phase_completed=PLAN, plan_created=true, and the todo list.`,
		RoleGuidance(session.DetectedRole), session.Payload.EnhancedGoal)
}

func executePrompt(session *workflow.Session) string {
	var current string
	todos := session.Payload.CurrentTodos
	if i := session.Payload.CurrentTaskIndex; i >= 0 && i < len(todos) {
		current = todos[i].Content
	}
	return fmt.Sprintf(`You are operating as %s.

## Current Task (%d of %d)

%s

## Your Task

Execute the task above. If it carries a meta-instruction, delegate through
the host's delegation tool instead of doing the work inline.

Report back with phase_completed=EXECUTE, execution_success, todo status
updates, and more_tasks_pending if you spawned follow-up work.`,
		RoleGuidance(session.DetectedRole),
		session.Payload.CurrentTaskIndex+1, len(todos), current)
}

func verifyPrompt(session *workflow.Session) string {
	total, completed := session.TodoStats()
	return fmt.Sprintf(`You are operating as %s.

## Completion State

%d of %d todos completed.

## Your Task

Check the work against the enhanced goal. Only assert
verification_passed=true if the deliverable genuinely satisfies it — the
controller re-derives the metrics itself and will roll the session back on
any mismatch.

Report back with phase_completed=VERIFY and verification_passed.`,
		RoleGuidance(session.DetectedRole), completed, total)
}
