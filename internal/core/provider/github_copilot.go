package provider

// GitHubCopilot is the provider template for GitHub Copilot. Connector
// entries merge into .vscode/mcp.json under "servers" rather than the
// usual "mcpServers".
type GitHubCopilot struct{ Base }

// NewGitHubCopilot creates a configured GitHub Copilot template.
func NewGitHubCopilot() *GitHubCopilot {
	return &GitHubCopilot{Base{
		name:         "github-copilot",
		displayName:  "GitHub Copilot",
		skillsDir:    ".github/skills",
		mcpDir:       ".github/mcp",
		settingsPath: ".vscode/mcp.json",
		settingsKey:  "servers",
		signals:      []string{".github/copilot-instructions.md"},
	}}
}

func init() { Register(NewGitHubCopilot()) }
