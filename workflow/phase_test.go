package workflow

import (
	"errors"
	"testing"
)

func TestPhase_IsValid(t *testing.T) {
	for _, p := range AllPhases {
		if !p.IsValid() {
			t.Errorf("phase %s should be valid", p)
		}
	}

	invalid := []Phase{"", "init", "query", "FINISHED", "EXEC"}
	for _, p := range invalid {
		if p.IsValid() {
			t.Errorf("phase %q should be invalid", p)
		}
	}
}

func TestPhase_Next(t *testing.T) {
	tests := []struct {
		phase Phase
		want  Phase
	}{
		{PhaseInit, PhaseQuery},
		{PhaseQuery, PhaseEnhance},
		{PhaseEnhance, PhaseKnowledge},
		{PhaseKnowledge, PhasePlan},
		{PhasePlan, PhaseExecute},
		{PhaseExecute, PhaseVerify},
		{PhaseVerify, PhaseDone},
		{PhaseDone, PhaseDone},
	}

	for _, tt := range tests {
		if got := tt.phase.Next(); got != tt.want {
			t.Errorf("%s.Next() = %s, want %s", tt.phase, got, tt.want)
		}
	}
}

func TestPhase_CanTransitionTo(t *testing.T) {
	tests := []struct {
		name string
		from Phase
		to   Phase
		want bool
	}{
		{"init to query", PhaseInit, PhaseQuery, true},
		{"init skips to plan", PhaseInit, PhasePlan, false},
		{"execute self-loop", PhaseExecute, PhaseExecute, true},
		{"execute to verify", PhaseExecute, PhaseVerify, true},
		{"execute back to plan", PhaseExecute, PhasePlan, false},
		{"verify to done", PhaseVerify, PhaseDone, true},
		{"verify rollback to plan", PhaseVerify, PhasePlan, true},
		{"verify rollback to execute", PhaseVerify, PhaseExecute, true},
		{"verify back to query", PhaseVerify, PhaseQuery, false},
		{"done is terminal", PhaseDone, PhaseQuery, false},
		{"done to done", PhaseDone, PhaseDone, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
				t.Errorf("%s.CanTransitionTo(%s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestPhase_IsTerminal(t *testing.T) {
	for _, p := range AllPhases {
		want := p == PhaseDone
		if got := p.IsTerminal(); got != want {
			t.Errorf("%s.IsTerminal() = %v, want %v", p, got, want)
		}
	}
}

func TestParsePhase(t *testing.T) {
	p, err := ParsePhase("EXECUTE")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p != PhaseExecute {
		t.Errorf("ParsePhase(EXECUTE) = %s", p)
	}

	if _, err := ParsePhase("execute"); !errors.Is(err, ErrUnknownPhase) {
		t.Errorf("expected ErrUnknownPhase, got %v", err)
	}
	if _, err := ParsePhase(""); !errors.Is(err, ErrUnknownPhase) {
		t.Errorf("expected ErrUnknownPhase, got %v", err)
	}
}
