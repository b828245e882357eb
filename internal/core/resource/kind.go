// Package resource defines the shared value types and error taxonomy that
// backends, the cache, and the installer all speak. It has no I/O of its own
// beyond manifest parsing and is independently testable.
package resource

import "fmt"

// Kind identifies a resource category.
type Kind string

const (
	KindSkill    Kind = "skill"
	KindWorkflow Kind = "workflow"
	KindMCP      Kind = "mcp"
)

// Kinds lists all known resource kinds in display order.
func Kinds() []Kind { return []Kind{KindSkill, KindWorkflow, KindMCP} }

// ParseKind converts a user-supplied string to a Kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindSkill, KindWorkflow, KindMCP:
		return Kind(s), nil
	}
	return "", fmt.Errorf("%w: unknown resource kind %q", ErrParse, s)
}

// MarkerFile returns the well-known manifest file that identifies a
// directory as a resource of this kind.
func (k Kind) MarkerFile() string {
	switch k {
	case KindSkill:
		return "SKILL.md"
	case KindWorkflow:
		return "WORKFLOW.md"
	case KindMCP:
		return "mcp.json"
	}
	return ""
}

// DisplayName returns a human-readable label for the kind.
func (k Kind) DisplayName() string {
	switch k {
	case KindSkill:
		return "Skill"
	case KindWorkflow:
		return "Workflow"
	case KindMCP:
		return "MCP Server"
	}
	return string(k)
}
