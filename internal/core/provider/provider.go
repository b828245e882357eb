// Package provider defines the Template abstraction: per-provider-type
// configuration resolving, for each resource kind, where resources install
// and which settings file connector entries merge into. Templates are
// self-contained Go values; the core treats them as read-only input.
package provider

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rookery-dev/rookery/internal/core/fsutil"
	"github.com/rookery-dev/rookery/internal/core/resource"
)

// Template describes one class of consuming application.
type Template interface {
	// Identity
	Name() string        // machine name: "claude-code", "cursor"
	DisplayName() string // human name: "Claude Code", "Cursor"

	// Supports reports whether the provider accepts the given kind.
	Supports(kind resource.Kind) bool

	// InstallRoot returns the provider-relative directory resources of the
	// given kind install into, or "" when the kind is unsupported.
	InstallRoot(kind resource.Kind) string

	// SettingsPath returns the provider-relative structured settings file
	// connector entries merge into.
	SettingsPath() string

	// SettingsKey returns the top-level key holding connector entries
	// inside the settings file (e.g. "mcpServers").
	SettingsKey() string

	// DetectionSignals lists files or directories whose presence in a
	// folder indicates the provider is in use there.
	DetectionSignals() []string
}

// Provider binds a template to one concrete directory: a provider instance
// the installer places resources into.
type Provider struct {
	Template
	Dir string
}

// RootFor resolves the absolute install root for a kind.
func (p Provider) RootFor(kind resource.Kind) (string, error) {
	rel := p.InstallRoot(kind)
	if rel == "" {
		return "", fmt.Errorf("%w: provider %s does not accept %s",
			resource.ErrUnsupportedKind, p.Name(), kind)
	}
	return filepath.Join(p.Dir, filepath.FromSlash(rel)), nil
}

// SettingsFile resolves the absolute settings file path.
func (p Provider) SettingsFile() string {
	return filepath.Join(p.Dir, filepath.FromSlash(p.SettingsPath()))
}

// --- Registry ---

var templates []Template

// Register adds a template to the global registry.
func Register(t Template) { templates = append(templates, t) }

// All returns every registered template.
func All() []Template { return templates }

// ByName returns the template with the given machine name.
func ByName(name string) (Template, error) {
	for _, t := range templates {
		if t.Name() == name {
			return t, nil
		}
	}
	var valid []string
	for _, t := range templates {
		valid = append(valid, t.Name())
	}
	return nil, fmt.Errorf("%w: unknown provider %q; available: %s",
		resource.ErrNotFound, name, strings.Join(valid, ", "))
}

// DetectInFolder returns templates whose detection signals are present in
// the given folder.
func DetectInFolder(dir string) []Template {
	var detected []Template
	for _, t := range templates {
		for _, signal := range t.DetectionSignals() {
			if fsutil.PathExists(filepath.Join(dir, signal)) {
				detected = append(detected, t)
				break
			}
		}
	}
	return detected
}
