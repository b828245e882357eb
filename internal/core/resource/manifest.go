package resource

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Manifest is the parsed marker file of a skill or workflow directory:
// YAML frontmatter between "---" fences at the top of SKILL.md/WORKFLOW.md.
type Manifest struct {
	Name        string          `yaml:"name"`
	Description string          `yaml:"description"`
	License     string          `yaml:"license,omitempty"`
	Metadata    ManifestDetails `yaml:"metadata,omitempty"`
}

// ManifestDetails holds optional metadata fields from the frontmatter.
type ManifestDetails struct {
	Author  string `yaml:"author,omitempty"`
	Version string `yaml:"version,omitempty"`
}

// MCPManifest is the parsed mcp.json marker file describing a connector.
type MCPManifest struct {
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Command     string            `json:"command,omitempty"`
	Args        []string          `json:"args,omitempty"`
	Env         map[string]string `json:"env,omitempty"`
	URL         string            `json:"url,omitempty"`
	Transport   string            `json:"type,omitempty"` // "http", "sse"
}

// IsStdio reports whether the connector launches a local command.
func (m *MCPManifest) IsStdio() bool { return m.Command != "" }

// Validate checks that the connector manifest is well-formed.
func (m *MCPManifest) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("%w: mcp.json missing name field", ErrParse)
	}
	if m.Command == "" && m.URL == "" {
		return fmt.Errorf("%w: mcp.json needs either command (stdio) or url (remote)", ErrParse)
	}
	if m.Command != "" && m.URL != "" {
		return fmt.Errorf("%w: mcp.json cannot have both command and url", ErrParse)
	}
	return nil
}

// ParseManifest reads and parses the YAML frontmatter from a SKILL.md or
// WORKFLOW.md file.
func ParseManifest(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("%w: opening %s: %v", ErrIO, path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)

	if !scanner.Scan() {
		return nil, fmt.Errorf("%w: empty manifest %s", ErrParse, path)
	}
	if strings.TrimSpace(scanner.Text()) != "---" {
		return nil, fmt.Errorf("%w: no frontmatter in %s", ErrParse, path)
	}

	var frontmatter strings.Builder
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "---" {
			break
		}
		frontmatter.WriteString(line)
		frontmatter.WriteString("\n")
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrIO, path, err)
	}

	var m Manifest
	if err := yaml.Unmarshal([]byte(frontmatter.String()), &m); err != nil {
		return nil, fmt.Errorf("%w: frontmatter in %s: %v", ErrParse, path, err)
	}
	if m.Name == "" {
		return nil, fmt.Errorf("%w: manifest %s missing name field", ErrParse, path)
	}
	return &m, nil
}

// ParseMCPManifest reads and validates an mcp.json marker file.
func ParseMCPManifest(path string) (*MCPManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("%w: reading %s: %v", ErrIO, path, err)
	}

	var m MCPManifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", ErrParse, path, err)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &m, nil
}

// ParseAnyManifest parses the marker file for the given kind and returns
// the resource's name and description.
func ParseAnyManifest(kind Kind, path string) (name, description string, err error) {
	switch kind {
	case KindSkill, KindWorkflow:
		m, err := ParseManifest(path)
		if err != nil {
			return "", "", err
		}
		return m.Name, m.Description, nil
	case KindMCP:
		m, err := ParseMCPManifest(path)
		if err != nil {
			return "", "", err
		}
		return m.Name, m.Description, nil
	}
	return "", "", fmt.Errorf("%w: %s", ErrUnsupportedKind, kind)
}
