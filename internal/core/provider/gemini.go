package provider

// GeminiCLI is the provider template for the Gemini CLI. Skills only.
type GeminiCLI struct{ Base }

// NewGeminiCLI creates a configured Gemini CLI template.
func NewGeminiCLI() *GeminiCLI {
	return &GeminiCLI{Base{
		name:        "gemini-cli",
		displayName: "Gemini CLI",
		skillsDir:   ".gemini/skills",
		signals:     []string{"GEMINI.md", ".gemini"},
	}}
}

func init() { Register(NewGeminiCLI()) }
