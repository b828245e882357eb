package provider

// Cursor is the provider template for Cursor.
type Cursor struct{ Base }

// NewCursor creates a configured Cursor template.
func NewCursor() *Cursor {
	return &Cursor{Base{
		name:         "cursor",
		displayName:  "Cursor",
		skillsDir:    ".cursor/skills",
		workflowsDir: ".cursor/workflows",
		mcpDir:       ".cursor/mcp",
		settingsPath: ".cursor/mcp.json",
		settingsKey:  "mcpServers",
		signals:      []string{".cursor", ".cursorrules"},
	}}
}

func init() { Register(NewCursor()) }
