package provider

import "github.com/rookery-dev/rookery/internal/core/resource"

// Base is the shared Template implementation: concrete providers embed it
// and supply their paths.
type Base struct {
	name         string
	displayName  string
	skillsDir    string
	workflowsDir string
	mcpDir       string
	settingsPath string
	settingsKey  string
	signals      []string
}

func (b Base) Name() string { return b.name }
func (b Base) DisplayName() string { return b.displayName }

func (b Base) Supports(kind resource.Kind) bool { return b.InstallRoot(kind) != "" }

func (b Base) InstallRoot(kind resource.Kind) string {
	switch kind {
	case resource.KindSkill:
		return b.skillsDir
	case resource.KindWorkflow:
		return b.workflowsDir
	case resource.KindMCP:
		return b.mcpDir
	}
	return ""
}

func (b Base) SettingsPath() string { return b.settingsPath }
func (b Base) SettingsKey() string { return b.settingsKey }
func (b Base) DetectionSignals() []string { return b.signals }
