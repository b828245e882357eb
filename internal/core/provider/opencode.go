package provider

// OpenCode is the provider template for OpenCode. Its config is JSONC, so
// the connector merge reads it through a standardizing parser; the "mcp"
// key replaces the usual "mcpServers".
type OpenCode struct{ Base }

// NewOpenCode creates a configured OpenCode template.
func NewOpenCode() *OpenCode {
	return &OpenCode{Base{
		name:         "opencode",
		displayName:  "OpenCode",
		skillsDir:    ".opencode/skills",
		workflowsDir: ".opencode/workflows",
		mcpDir:       ".opencode/mcp",
		settingsPath: "opencode.json",
		settingsKey:  "mcp",
		signals:      []string{"opencode.json", ".opencode"},
	}}
}

func init() { Register(NewOpenCode()) }
