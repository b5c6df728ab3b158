package workflow

// Reasoning-effectiveness bounds and adjustment steps. The clamp bounds are
// hard invariants: no sequence of updates may leave [0.3, 1.0].
const (
	// InitialReasoningEffectiveness seeds every new session.
	InitialReasoningEffectiveness = 0.8

	// MinReasoningEffectiveness is the floor after repeated failures.
	MinReasoningEffectiveness = 0.3

	// MaxReasoningEffectiveness is the ceiling after repeated successes.
	MaxReasoningEffectiveness = 1.0

	// EffectivenessStep is the per-task adjustment.
	EffectivenessStep = 0.1

	// ComplexEffectivenessStep is the adjustment for complex tasks.
	ComplexEffectivenessStep = 0.15
)

// AdjustEffectiveness applies one execution outcome to the current
// reasoning-effectiveness score and returns the clamped result.
func AdjustEffectiveness(current float64, success, complex bool) float64 {
	step := EffectivenessStep
	if complex {
		step = ComplexEffectivenessStep
	}

	next := current
	if success {
		next += step
		if next > MaxReasoningEffectiveness {
			next = MaxReasoningEffectiveness
		}
	} else {
		next -= step
		if next < MinReasoningEffectiveness {
			next = MinReasoningEffectiveness
		}
	}
	return next
}
