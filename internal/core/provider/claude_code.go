package provider

// ClaudeCode is the provider template for Claude Code.
type ClaudeCode struct{ Base }

// NewClaudeCode creates a configured Claude Code template.
func NewClaudeCode() *ClaudeCode {
	return &ClaudeCode{Base{
		name:         "claude-code",
		displayName:  "Claude Code",
		skillsDir:    ".claude/skills",
		workflowsDir: ".claude/workflows",
		mcpDir:       ".claude/mcp",
		settingsPath: ".mcp.json",
		settingsKey:  "mcpServers",
		signals:      []string{"CLAUDE.md", ".claude", ".mcp.json"},
	}}
}

func init() { Register(NewClaudeCode()) }
