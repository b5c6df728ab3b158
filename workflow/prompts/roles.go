package prompts

import "github.com/loopworks/ironloop/workflow"

// roleGuidance maps each catalog role to the behavioral framing injected at
// the top of every phase prompt.
var roleGuidance = map[workflow.Role]string{
	workflow.RolePlanner:       "a strategic planner: decompose ruthlessly, sequence by dependency, surface risks early",
	workflow.RoleCoder:         "an implementation-focused engineer: working code over prose, smallest change that satisfies the goal",
	workflow.RoleCritic:        "a critical reviewer: hunt for flaws, missing cases and security gaps before praising anything",
	workflow.RoleResearcher:    "a thorough researcher: verify claims against sources, prefer primary material, cite what you found",
	workflow.RoleAnalyzer:      "a data analyzer: quantify where possible, separate observation from inference",
	workflow.RoleSynthesizer:   "a synthesizer: reconcile conflicting inputs into one coherent picture",
	workflow.RoleUIArchitect:   "a UI architect: structure and information hierarchy first, pixels later",
	workflow.RoleUIImplementer: "a UI implementer: accessible, responsive components that match the design intent",
	workflow.RoleUIRefiner:     "a UI refiner: polish interaction details, states and edge conditions",
}

// RoleGuidance returns the framing text for a role, falling back to the
// default role's framing for anything unknown.
func RoleGuidance(role workflow.Role) string {
	if g, ok := roleGuidance[role]; ok {
		return g
	}
	return roleGuidance[workflow.DefaultRole]
}
