package workflow

import (
	"math"
	"testing"
)

func TestAdjustEffectiveness(t *testing.T) {
	tests := []struct {
		name    string
		current float64
		success bool
		complex bool
		want    float64
	}{
		{"simple success", 0.8, true, false, 0.9},
		{"simple failure", 0.8, false, false, 0.7},
		{"complex success", 0.8, true, true, 0.95},
		{"complex failure", 0.8, false, true, 0.65},
		{"success clamps at ceiling", 0.95, true, false, 1.0},
		{"complex success clamps at ceiling", 0.9, true, true, 1.0},
		{"failure clamps at floor", 0.35, false, false, 0.3},
		{"complex failure clamps at floor", 0.4, false, true, 0.3},
		{"ceiling is sticky", 1.0, true, true, 1.0},
		{"floor is sticky", 0.3, false, true, 0.3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AdjustEffectiveness(tt.current, tt.success, tt.complex)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("AdjustEffectiveness(%v, %v, %v) = %v, want %v",
					tt.current, tt.success, tt.complex, got, tt.want)
			}
		})
	}
}

func TestAdjustEffectiveness_StaysBounded(t *testing.T) {
	// No sequence of updates may leave [0.3, 1.0].
	score := InitialReasoningEffectiveness
	outcomes := []struct {
		success bool
		complex bool
	}{
		{false, true}, {false, true}, {false, false}, {false, true},
		{true, false}, {true, true}, {true, true}, {true, false},
		{true, true}, {false, false},
	}

	for i, o := range outcomes {
		score = AdjustEffectiveness(score, o.success, o.complex)
		if score < MinReasoningEffectiveness || score > MaxReasoningEffectiveness {
			t.Fatalf("step %d: score %v escaped [%v, %v]",
				i, score, MinReasoningEffectiveness, MaxReasoningEffectiveness)
		}
	}
}
