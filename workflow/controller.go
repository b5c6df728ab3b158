package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// SessionStore is the persistence contract the controller consumes. The
// controller requires read-your-writes consistency within one invocation and
// performs no cross-session reads; guarding concurrent invocations against
// the same session is the caller's responsibility.
type SessionStore interface {
	// Get returns the session or ErrSessionNotFound.
	Get(ctx context.Context, sessionID string) (*Session, error)

	// Put stores the session, overwriting any previous record.
	Put(ctx context.Context, session *Session) error
}

// Controller is the phase FSM. Each Advance call fully reads, mutates and
// writes one session record: it resolves or creates the session, applies the
// transition rules for the completed phase, and returns the next phase with
// the updated payload.
type Controller struct {
	store  SessionStore
	roles  *RoleSelector
	logger *slog.Logger
}

// NewController creates a controller over the given store and role selector.
func NewController(store SessionStore, roles *RoleSelector, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	if roles == nil {
		roles = NewRoleSelector()
	}
	return &Controller{
		store:  store,
		roles:  roles,
		logger: logger,
	}
}

// Advance processes one controller invocation. Store failures propagate
// unchanged; a corrupt stored phase is a fatal integrity error; a stale
// phase_completed tag is a soft no-op returning the session's actual state.
func (c *Controller) Advance(ctx context.Context, req *AdvanceRequest) (*AdvanceResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	session, created, err := c.resolveSession(ctx, req)
	if err != nil {
		return nil, err
	}

	if !session.CurrentPhase.IsValid() {
		return nil, fmt.Errorf("session %s: %w: stored phase %q",
			session.SessionID, ErrUnknownPhase, session.CurrentPhase)
	}

	if created {
		session.Touch()
		if err := c.store.Put(ctx, session); err != nil {
			return nil, err
		}
		c.logger.Info("Session created",
			"session_id", session.SessionID,
			"detected_role", session.DetectedRole,
			"next_phase", session.CurrentPhase)
		return c.respond(session, true), nil
	}

	// Terminal: repeated calls are a no-op returning DONE.
	if session.CurrentPhase.IsTerminal() {
		return c.respond(session, false), nil
	}

	// A missing or mismatched phase tag is stale: no mutation, report the
	// session's actual state.
	if req.PhaseCompleted != session.CurrentPhase {
		if req.PhaseCompleted != "" {
			c.logger.Warn("Stale phase tag ignored",
				"session_id", session.SessionID,
				"phase_completed", req.PhaseCompleted,
				"current_phase", session.CurrentPhase)
		}
		return c.respond(session, false), nil
	}

	next, mutated := c.applyPhase(session, req.Payload)
	if !mutated {
		return c.respond(session, false), nil
	}

	if next != session.CurrentPhase || next == PhaseExecute {
		session.Payload.PhaseTransitionCount++
	}

	previous := session.CurrentPhase
	session.CurrentPhase = next
	session.Touch()

	if err := c.store.Put(ctx, session); err != nil {
		return nil, err
	}

	c.logger.Info("Session advanced",
		"session_id", session.SessionID,
		"phase_completed", previous,
		"next_phase", next,
		"task_index", session.Payload.CurrentTaskIndex,
		"reasoning_effectiveness", session.ReasoningEffectiveness)

	return c.respond(session, true), nil
}

// resolveSession loads the addressed session, or creates one when the call
// supplies an initial objective for an unknown or absent session ID.
func (c *Controller) resolveSession(ctx context.Context, req *AdvanceRequest) (*Session, bool, error) {
	sessionID := req.SessionID
	if sessionID == "" {
		if req.InitialObjective == "" {
			return nil, false, ErrMissingObjective
		}
		sessionID = NewSessionID()
	} else {
		session, err := c.store.Get(ctx, sessionID)
		if err == nil {
			return session, false, nil
		}
		if !isNotFound(err) {
			return nil, false, err
		}
		if req.InitialObjective == "" {
			return nil, false, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
		}
	}

	session := NewSession(sessionID, req.InitialObjective)
	session.DetectedRole = c.roles.Select(req.InitialObjective, "")
	// INIT always hands the agent straight to QUERY.
	session.CurrentPhase = PhaseQuery

	return session, true, nil
}

// applyPhase applies the phase-specific mutation for the completed phase and
// returns the next phase. A false second return means the call mutated
// nothing (e.g. PLAN completed without a plan).
func (c *Controller) applyPhase(session *Session, payload *AdvancePayload) (Phase, bool) {
	if payload == nil {
		payload = &AdvancePayload{}
	}

	switch session.CurrentPhase {
	case PhaseQuery:
		if payload.RoleConfirmation != "" {
			if role := Role(payload.RoleConfirmation); role.IsValid() {
				session.DetectedRole = role
			} else {
				c.logger.Warn("Ignoring unknown role confirmation",
					"session_id", session.SessionID,
					"role", payload.RoleConfirmation)
			}
		}
		if payload.InterpretedGoal != "" {
			session.Payload.InterpretedGoal = payload.InterpretedGoal
		}
		c.mergeExtra(session, payload)
		return PhaseEnhance, true

	case PhaseEnhance:
		if payload.EnhancedGoal != "" {
			session.Payload.EnhancedGoal = payload.EnhancedGoal
		}
		c.mergeExtra(session, payload)
		return PhaseKnowledge, true

	case PhaseKnowledge:
		// Whether research was skipped is the caller's decision; the
		// controller stores whatever arrived and advances.
		if payload.KnowledgeGathered != "" {
			session.Payload.KnowledgeGathered = payload.KnowledgeGathered
		}
		c.mergeExtra(session, payload)
		return PhasePlan, true

	case PhasePlan:
		if !payload.PlanCreated {
			return PhasePlan, false
		}
		session.Payload.CurrentTodos = buildTodos(payload.Todos)
		session.Payload.CurrentTaskIndex = 0
		c.mergeExtra(session, payload)
		return PhaseExecute, true

	case PhaseExecute:
		c.applyTodoUpdates(session, payload.TodoUpdates)
		if payload.ExecutionSuccess != nil {
			session.ReasoningEffectiveness = AdjustEffectiveness(
				session.ReasoningEffectiveness, *payload.ExecutionSuccess, payload.TaskComplex)
		}
		c.mergeExtra(session, payload)

		if payload.MoreTasksPending ||
			session.Payload.CurrentTaskIndex < len(session.Payload.CurrentTodos)-1 {
			session.Payload.CurrentTaskIndex++
			return PhaseExecute, true
		}
		return PhaseVerify, true

	case PhaseVerify:
		result := Verify(session, payload.VerificationPassed)
		session.Payload.LastVerification = &result
		c.mergeExtra(session, payload)

		if result.IsValid {
			return PhaseDone, true
		}

		target, index := ChooseRollback(result, session.Payload.CurrentTaskIndex)
		session.Payload.CurrentTaskIndex = index
		c.logger.Info("Verification failed, rolling back",
			"session_id", session.SessionID,
			"reason", result.Reason,
			"completion", result.CompletionPercentage,
			"target_phase", target,
			"task_index", index)
		return target, true

	default:
		// INIT and DONE never reach here; resolveSession and the terminal
		// check handle them.
		return session.CurrentPhase, false
	}
}

// applyTodoUpdates applies caller-reported status changes to the todo list.
// Unknown todo IDs and invalid statuses are logged and skipped rather than
// failing the whole invocation.
func (c *Controller) applyTodoUpdates(session *Session, updates map[string]TodoStatus) {
	for id, status := range updates {
		if !status.IsValid() {
			c.logger.Warn("Ignoring invalid todo status",
				"session_id", session.SessionID, "todo_id", id, "status", status)
			continue
		}
		found := false
		for i := range session.Payload.CurrentTodos {
			if session.Payload.CurrentTodos[i].ID == id {
				session.Payload.CurrentTodos[i].Status = status
				found = true
				break
			}
		}
		if !found {
			c.logger.Warn("Ignoring update for unknown todo",
				"session_id", session.SessionID, "todo_id", id)
		}
	}
}

func (c *Controller) mergeExtra(session *Session, payload *AdvancePayload) {
	if len(payload.Extra) == 0 {
		return
	}
	if session.Payload.Extra == nil {
		session.Payload.Extra = make(map[string]any, len(payload.Extra))
	}
	for k, v := range payload.Extra {
		session.Payload.Extra[k] = v
	}
}

// buildTodos materializes caller-supplied todo specs, assigning sequential
// IDs and running every content through the meta-instruction extractor.
func buildTodos(specs []TodoSpec) []Todo {
	todos := make([]Todo, 0, len(specs))
	for i, spec := range specs {
		priority := spec.Priority
		if !priority.IsValid() {
			priority = TodoPriorityMedium
		}
		todos = append(todos, Todo{
			ID:              fmt.Sprintf("todo-%d", i+1),
			Content:         spec.Content,
			Status:          TodoStatusPending,
			Priority:        priority,
			MetaInstruction: ExtractMetaInstruction(spec.Content),
		})
	}
	return todos
}

func (c *Controller) respond(session *Session, applied bool) *AdvanceResponse {
	status := StatusInProgress
	if session.CurrentPhase == PhaseDone {
		status = StatusDone
	}
	return &AdvanceResponse{
		SessionID:              session.SessionID,
		NextPhase:              session.CurrentPhase,
		Status:                 status,
		DetectedRole:           session.DetectedRole,
		ReasoningEffectiveness: session.ReasoningEffectiveness,
		TransitionApplied:      applied,
		Payload:                session.Payload,
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrSessionNotFound)
}
