package workflow

import "testing"

func TestExtractMetaInstruction(t *testing.T) {
	tests := []struct {
		name string
		text string
		want *MetaInstruction
	}{
		{
			name: "all four tags",
			text: "(ROLE: coder) (CONTEXT: auth_system) (PROMPT: Implement JWT login) (OUTPUT: code)",
			want: &MetaInstruction{
				RoleSpecification:  "coder",
				ContextParameters:  map[string]string{"domain": "auth_system"},
				InstructionBlock:   "Implement JWT login",
				OutputRequirements: "code",
			},
		},
		{
			name: "role and prompt only defaults output",
			text: "(ROLE: critic) (PROMPT: Review the diff)",
			want: &MetaInstruction{
				RoleSpecification:  "critic",
				ContextParameters:  map[string]string{},
				InstructionBlock:   "Review the diff",
				OutputRequirements: DefaultOutputRequirement,
			},
		},
		{
			name: "surrounding text and reordered tags",
			text: "Delegate this one: (PROMPT: measure latency) please (ROLE: analyzer), thanks",
			want: &MetaInstruction{
				RoleSpecification:  "analyzer",
				ContextParameters:  map[string]string{},
				InstructionBlock:   "measure latency",
				OutputRequirements: DefaultOutputRequirement,
			},
		},
		{
			name: "case-insensitive keywords",
			text: "(role: coder) (Prompt: build it)",
			want: &MetaInstruction{
				RoleSpecification:  "coder",
				ContextParameters:  map[string]string{},
				InstructionBlock:   "build it",
				OutputRequirements: DefaultOutputRequirement,
			},
		},
		{
			name: "missing prompt yields nil",
			text: "(ROLE: coder) (CONTEXT: api)",
			want: nil,
		},
		{
			name: "missing role yields nil",
			text: "(PROMPT: do the thing) (OUTPUT: report)",
			want: nil,
		},
		{
			name: "plain text yields nil",
			text: "Write the integration tests for the session store",
			want: nil,
		},
		{
			name: "empty text yields nil",
			text: "",
			want: nil,
		},
		{
			name: "first occurrence of a tag wins",
			text: "(ROLE: coder) (ROLE: critic) (PROMPT: first) (PROMPT: second)",
			want: &MetaInstruction{
				RoleSpecification:  "coder",
				ContextParameters:  map[string]string{},
				InstructionBlock:   "first",
				OutputRequirements: DefaultOutputRequirement,
			},
		},
		{
			name: "tag opened inside another tag's value",
			text: "(ROLE: coder (PROMPT: wire the decoder)",
			want: &MetaInstruction{
				RoleSpecification:  "coder (PROMPT: wire the decoder",
				ContextParameters:  map[string]string{},
				InstructionBlock:   "wire the decoder",
				OutputRequirements: DefaultOutputRequirement,
			},
		},
		{
			name: "unterminated tag drops the instruction",
			text: "(ROLE: coder) (PROMPT: never closed",
			want: nil,
		},
		{
			name: "whitespace trimmed from values",
			text: "(ROLE:   coder  ) (PROMPT:\tship it )",
			want: &MetaInstruction{
				RoleSpecification:  "coder",
				ContextParameters:  map[string]string{},
				InstructionBlock:   "ship it",
				OutputRequirements: DefaultOutputRequirement,
			},
		},
		{
			name: "closing paren truncates the value",
			text: "(ROLE: coder) (PROMPT: call f(x) with defaults)",
			want: &MetaInstruction{
				RoleSpecification:  "coder",
				ContextParameters:  map[string]string{},
				InstructionBlock:   "call f(x",
				OutputRequirements: DefaultOutputRequirement,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractMetaInstruction(tt.text)
			if tt.want == nil {
				if got != nil {
					t.Fatalf("expected nil, got %+v", got)
				}
				return
			}
			if got == nil {
				t.Fatal("expected a meta-instruction, got nil")
			}
			if got.RoleSpecification != tt.want.RoleSpecification {
				t.Errorf("RoleSpecification = %q, want %q", got.RoleSpecification, tt.want.RoleSpecification)
			}
			if got.InstructionBlock != tt.want.InstructionBlock {
				t.Errorf("InstructionBlock = %q, want %q", got.InstructionBlock, tt.want.InstructionBlock)
			}
			if got.OutputRequirements != tt.want.OutputRequirements {
				t.Errorf("OutputRequirements = %q, want %q", got.OutputRequirements, tt.want.OutputRequirements)
			}
			if len(got.ContextParameters) != len(tt.want.ContextParameters) {
				t.Errorf("ContextParameters = %v, want %v", got.ContextParameters, tt.want.ContextParameters)
			}
			for k, v := range tt.want.ContextParameters {
				if got.ContextParameters[k] != v {
					t.Errorf("ContextParameters[%s] = %q, want %q", k, got.ContextParameters[k], v)
				}
			}
		})
	}
}

func TestExtractMetaInstruction_Idempotent(t *testing.T) {
	text := "(ROLE: coder) (PROMPT: build the parser)"

	first := ExtractMetaInstruction(text)
	second := ExtractMetaInstruction(text)

	if first == nil || second == nil {
		t.Fatal("expected meta-instructions from both calls")
	}
	if first.RoleSpecification != second.RoleSpecification ||
		first.InstructionBlock != second.InstructionBlock {
		t.Errorf("extraction not stable: %+v vs %+v", first, second)
	}
}
