package workflow

import "fmt"

// Verification thresholds. Expressed as completion percentages in [0, 100].
const (
	// CompletionThreshold is the minimum overall completion for validity.
	CompletionThreshold = 95.0

	// ReplanThreshold routes rollback to PLAN below it.
	ReplanThreshold = 50.0

	// RetryRecentThreshold routes rollback to the most recent task at or
	// above it; between the two thresholds EXECUTE retries forward.
	RetryRecentThreshold = 80.0

	// MinVerificationEffectiveness is the reasoning-effectiveness floor a
	// session must hold for verification to pass.
	MinVerificationEffectiveness = 0.7
)

// VerificationResult is the outcome of the verification engine.
type VerificationResult struct {
	// IsValid reports whether the session may terminate.
	IsValid bool `json:"is_valid"`

	// CompletionPercentage is 100 * completed / total todos; 0 when the
	// session holds no todos.
	CompletionPercentage float64 `json:"completion_percentage"`

	// Reason names the first failed check, or confirms success.
	Reason string `json:"reason"`

	// CriticalTasksCompleted counts completed critical todos.
	CriticalTasksCompleted int `json:"critical_tasks_completed"`

	// TotalCriticalTasks counts all critical todos.
	TotalCriticalTasks int `json:"total_critical_tasks"`
}

// Verify computes completion metrics for the session's todo list and applies
// five ordered checks; the first failure wins and supplies the reason. Even
// with perfect metrics the result is only valid when the caller explicitly
// asserted verification passed: the sign-off is a required conjunct, not a
// formality.
//
// Pure function over the session and the caller's assertion; never faults on
// an empty todo list (0 todos is 0% completion and fails the completion
// check through the normal rollback path).
func Verify(session *Session, callerAsserted bool) VerificationResult {
	total, completed := session.TodoStats()

	result := VerificationResult{}
	if total > 0 {
		result.CompletionPercentage = 100 * float64(completed) / float64(total)
	}

	for i := range session.Payload.CurrentTodos {
		todo := &session.Payload.CurrentTodos[i]
		if !todo.IsCritical() {
			continue
		}
		result.TotalCriticalTasks++
		if todo.Status == TodoStatusCompleted {
			result.CriticalTasksCompleted++
		}
	}

	// Check 1: every critical task completed.
	if result.CriticalTasksCompleted < result.TotalCriticalTasks {
		result.Reason = fmt.Sprintf("critical tasks incomplete: %d of %d completed",
			result.CriticalTasksCompleted, result.TotalCriticalTasks)
		return result
	}

	// Check 2: overall completion meets the threshold.
	if result.CompletionPercentage < CompletionThreshold {
		result.Reason = fmt.Sprintf("completion %.1f%% below required %.0f%%",
			result.CompletionPercentage, CompletionThreshold)
		return result
	}

	// Check 3: no high-priority todo left pending.
	for i := range session.Payload.CurrentTodos {
		todo := &session.Payload.CurrentTodos[i]
		if todo.Priority == TodoPriorityHigh && todo.Status == TodoStatusPending {
			result.Reason = fmt.Sprintf("high-priority task %s still pending", todo.ID)
			return result
		}
	}

	// Check 4: nothing still in progress.
	for i := range session.Payload.CurrentTodos {
		todo := &session.Payload.CurrentTodos[i]
		if todo.Status == TodoStatusInProgress {
			result.Reason = fmt.Sprintf("task %s still in progress", todo.ID)
			return result
		}
	}

	// Check 5: reasoning effectiveness above the floor.
	if session.ReasoningEffectiveness < MinVerificationEffectiveness {
		result.Reason = fmt.Sprintf("reasoning effectiveness %.2f below required %.2f",
			session.ReasoningEffectiveness, MinVerificationEffectiveness)
		return result
	}

	if !callerAsserted {
		result.Reason = "caller did not assert verification passed"
		return result
	}

	result.IsValid = true
	result.Reason = "all verification checks passed"
	return result
}

// ChooseRollback maps an invalid verification result and the current task
// index to the rollback target phase and the new task index:
//
//	< 50%      → PLAN, index reset to 0 (replan from scratch)
//	50% – <80% → EXECUTE, index unchanged (retry forward)
//	>= 80%     → EXECUTE, index decremented when > 0 (retry most recent task)
//
// Deterministic and side-effect free; callers bound oscillation externally
// if they need to.
func ChooseRollback(result VerificationResult, currentIndex int) (Phase, int) {
	switch {
	case result.CompletionPercentage < ReplanThreshold:
		return PhasePlan, 0
	case result.CompletionPercentage < RetryRecentThreshold:
		return PhaseExecute, currentIndex
	default:
		if currentIndex > 0 {
			return PhaseExecute, currentIndex - 1
		}
		return PhaseExecute, currentIndex
	}
}
