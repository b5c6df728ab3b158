package workflow

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Role identifies one agent role from the fixed catalog.
type Role string

const (
	RolePlanner       Role = "planner"
	RoleCoder         Role = "coder"
	RoleCritic        Role = "critic"
	RoleResearcher    Role = "researcher"
	RoleAnalyzer      Role = "analyzer"
	RoleSynthesizer   Role = "synthesizer"
	RoleUIArchitect   Role = "ui_architect"
	RoleUIImplementer Role = "ui_implementer"
	RoleUIRefiner     Role = "ui_refiner"
)

// DefaultRole is selected when no catalog keywords match an objective.
const DefaultRole = RoleResearcher

// IsValid returns true if the role is part of the catalog.
func (r Role) IsValid() bool {
	switch r {
	case RolePlanner, RoleCoder, RoleCritic, RoleResearcher, RoleAnalyzer,
		RoleSynthesizer, RoleUIArchitect, RoleUIImplementer, RoleUIRefiner:
		return true
	default:
		return false
	}
}

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// AllRoles lists the full role catalog.
var AllRoles = []Role{
	RolePlanner, RoleCoder, RoleCritic, RoleResearcher, RoleAnalyzer,
	RoleSynthesizer, RoleUIArchitect, RoleUIImplementer, RoleUIRefiner,
}

// defaultRoleKeywords maps each role to the objective keywords that vote for
// it. One point per keyword hit; ties break toward the catalog order above.
var defaultRoleKeywords = map[Role][]string{
	RolePlanner:       {"plan", "strategy", "roadmap", "milestone", "organize", "schedule"},
	RoleCoder:         {"implement", "code", "build", "fix", "refactor", "program", "develop", "api"},
	RoleCritic:        {"review", "critique", "assess", "audit", "evaluate", "security"},
	RoleResearcher:    {"research", "find", "gather", "investigate", "search", "explore", "documentation"},
	RoleAnalyzer:      {"analyze", "data", "metrics", "pattern", "statistics", "measure"},
	RoleSynthesizer:   {"synthesize", "combine", "merge", "integrate", "summarize", "consolidate"},
	RoleUIArchitect:   {"ui design", "wireframe", "layout", "user interface", "mockup"},
	RoleUIImplementer: {"component", "frontend", "css", "styling", "render"},
	RoleUIRefiner:     {"polish", "refine ui", "accessibility", "responsive", "usability"},
}

// RoleSelector maps an objective string, and optionally an agent-provided
// classification, to one role from the catalog. Selection is a pure keyword
// scoring pass with no side effects; the keyword table itself can be
// replaced at runtime via LoadCatalog.
type RoleSelector struct {
	mu       sync.RWMutex
	keywords map[Role][]string
}

// NewRoleSelector creates a selector with the built-in keyword table.
func NewRoleSelector() *RoleSelector {
	return &RoleSelector{keywords: defaultRoleKeywords}
}

// Select returns the role for the given objective. A valid suggested role
// from the caller wins outright; an invalid or empty suggestion falls back
// to keyword scoring, and an objective matching nothing yields DefaultRole.
func (s *RoleSelector) Select(objective, suggested string) Role {
	if r := Role(strings.ToLower(strings.TrimSpace(suggested))); r != "" && r.IsValid() {
		return r
	}

	s.mu.RLock()
	keywords := s.keywords
	s.mu.RUnlock()

	lowered := strings.ToLower(objective)

	best := DefaultRole
	bestScore := 0
	for _, role := range AllRoles {
		score := 0
		for _, kw := range keywords[role] {
			if strings.Contains(lowered, kw) {
				score++
			}
		}
		if score > bestScore {
			best = role
			bestScore = score
		}
	}

	return best
}

// roleCatalogFile is the on-disk shape of a role catalog override.
type roleCatalogFile struct {
	Roles map[string][]string `yaml:"roles"`
}

// LoadCatalog replaces the keyword table from a YAML catalog file:
//
//	roles:
//	  coder: [implement, build, fix]
//	  critic: [review, audit]
//
// Roles absent from the file keep their built-in keywords. Unknown role
// names are rejected rather than ignored so a typo cannot silently disable
// a role.
func (s *RoleSelector) LoadCatalog(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read role catalog: %w", err)
	}

	var file roleCatalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse role catalog: %w", err)
	}

	merged := make(map[Role][]string, len(defaultRoleKeywords))
	for role, kws := range defaultRoleKeywords {
		merged[role] = kws
	}

	for name, kws := range file.Roles {
		role := Role(name)
		if !role.IsValid() {
			return fmt.Errorf("role catalog: unknown role %q", name)
		}
		lowered := make([]string, len(kws))
		for i, kw := range kws {
			lowered[i] = strings.ToLower(kw)
		}
		sort.Strings(lowered)
		merged[role] = lowered
	}

	s.mu.Lock()
	s.keywords = merged
	s.mu.Unlock()

	return nil
}

// Keywords returns the current keyword list for a role. Intended for
// diagnostics and tests.
func (s *RoleSelector) Keywords(role Role) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	kws := s.keywords[role]
	out := make([]string, len(kws))
	copy(out, kws)
	return out
}
