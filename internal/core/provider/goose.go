package provider

// Goose is the provider template for the Goose coding agent. Skills only.
type Goose struct{ Base }

// NewGoose creates a configured Goose template.
func NewGoose() *Goose {
	return &Goose{Base{
		name:        "goose",
		displayName: "Goose",
		skillsDir:   ".goose/skills",
		signals:     []string{".goose"},
	}}
}

func init() { Register(NewGoose()) }
