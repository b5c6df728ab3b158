package workflow

import "strings"

// DefaultOutputRequirement is substituted when a meta-instruction omits the
// OUTPUT tag.
const DefaultOutputRequirement = "comprehensive_deliverable"

// Meta-instruction tag keywords. Matching is case-insensitive.
const (
	metaTagRole    = "ROLE"
	metaTagContext = "CONTEXT"
	metaTagPrompt  = "PROMPT"
	metaTagOutput  = "OUTPUT"
)

// MetaInstruction is a structured delegation request extracted from a todo's
// content. It exists only when both a ROLE and a PROMPT tag were present in
// the source text; partial matches never produce one.
type MetaInstruction struct {
	// RoleSpecification is the requested role for the delegated work.
	RoleSpecification string `json:"role_specification"`

	// ContextParameters carries tag-supplied context, keyed by parameter
	// name. A CONTEXT tag populates the "domain" key; absent, the map is
	// empty but non-nil.
	ContextParameters map[string]string `json:"context_parameters"`

	// InstructionBlock is the delegated instruction text.
	InstructionBlock string `json:"instruction_block"`

	// OutputRequirements describes the expected deliverable. Defaults to
	// DefaultOutputRequirement when no OUTPUT tag was present.
	OutputRequirements string `json:"output_requirements"`
}

// ExtractMetaInstruction parses a todo's content for an embedded delegation
// instruction of the form:
//
//	(ROLE: coder) (CONTEXT: auth_system) (PROMPT: Implement JWT login) (OUTPUT: code)
//
// Tags may appear in any order with arbitrary surrounding text. The tag
// keyword is case-insensitive and the value runs up to the first closing
// parenthesis after the colon, trimmed of whitespace. A literal ')' inside a
// value therefore truncates it; that is an accepted limitation of the
// grammar, not something the scanner tries to repair.
//
// Returns nil unless both ROLE and PROMPT tags are found. CONTEXT and OUTPUT
// are optional. The function is pure and safe to call redundantly.
func ExtractMetaInstruction(text string) *MetaInstruction {
	tags := scanMetaTags(text)

	role, hasRole := tags[metaTagRole]
	prompt, hasPrompt := tags[metaTagPrompt]
	if !hasRole || !hasPrompt {
		return nil
	}

	params := map[string]string{}
	if domain, ok := tags[metaTagContext]; ok {
		params["domain"] = domain
	}

	output, ok := tags[metaTagOutput]
	if !ok {
		output = DefaultOutputRequirement
	}

	return &MetaInstruction{
		RoleSpecification:  role,
		ContextParameters:  params,
		InstructionBlock:   prompt,
		OutputRequirements: output,
	}
}

// scanMetaTags walks the text collecting the first occurrence of each known
// tag. Each keyword is matched independently: scanning continues inside a
// captured value, so a tag opened inside another tag's value region is still
// collected. A hand-written scanner keeps the "first closing paren after the
// colon" semantics exact instead of depending on regex engine greediness.
func scanMetaTags(text string) map[string]string {
	tags := make(map[string]string, 4)

	for i := 0; i < len(text); i++ {
		if text[i] != '(' {
			continue
		}

		keyword, valueStart, ok := scanTagKeyword(text, i+1)
		if !ok {
			continue
		}

		end := strings.IndexByte(text[valueStart:], ')')
		if end < 0 {
			// Unterminated tag: nothing past this point can close it.
			break
		}

		if _, seen := tags[keyword]; !seen {
			tags[keyword] = strings.TrimSpace(text[valueStart : valueStart+end])
		}
	}

	return tags
}

// scanTagKeyword reads a tag keyword starting at pos, expecting optional
// whitespace and a colon after it. Returns the canonical keyword and the
// index just past the colon.
func scanTagKeyword(text string, pos int) (keyword string, valueStart int, ok bool) {
	j := pos
	for j < len(text) && isTagLetter(text[j]) {
		j++
	}
	if j == pos {
		return "", 0, false
	}

	word := strings.ToUpper(text[pos:j])
	switch word {
	case metaTagRole, metaTagContext, metaTagPrompt, metaTagOutput:
	default:
		return "", 0, false
	}

	for j < len(text) && (text[j] == ' ' || text[j] == '\t') {
		j++
	}
	if j >= len(text) || text[j] != ':' {
		return "", 0, false
	}

	return word, j + 1, true
}

func isTagLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
