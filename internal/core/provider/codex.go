package provider

// Codex is the provider template for the Codex CLI. It consumes skills and
// workflows only; connector settings stay unmanaged.
type Codex struct{ Base }

// NewCodex creates a configured Codex template.
func NewCodex() *Codex {
	return &Codex{Base{
		name:         "codex",
		displayName:  "Codex",
		skillsDir:    ".codex/skills",
		workflowsDir: ".codex/workflows",
		signals:      []string{"codex.md", ".codex"},
	}}
}

func init() { Register(NewCodex()) }
