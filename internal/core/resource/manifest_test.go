package resource

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestParseManifest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "SKILL.md")
	writeFile(t, path, `---
name: code-review
description: Reviews pull requests
license: MIT
metadata:
  author: acme
  version: "1.2.0"
---

# Code Review

Instructions follow.
`)

	m, err := ParseManifest(path)
	if err != nil {
		t.Fatalf("ParseManifest() error: %v", err)
	}
	if m.Name != "code-review" {
		t.Errorf("Name = %q", m.Name)
	}
	if m.Description != "Reviews pull requests" {
		t.Errorf("Description = %q", m.Description)
	}
	if m.License != "MIT" {
		t.Errorf("License = %q", m.License)
	}
	if m.Metadata.Author != "acme" || m.Metadata.Version != "1.2.0" {
		t.Errorf("Metadata = %+v", m.Metadata)
	}
}

func TestParseManifestErrors(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
		want    error
	}{
		{"empty file", "", ErrParse},
		{"no frontmatter", "# Just markdown\n", ErrParse},
		{"missing name", "---\ndescription: no name here\n---\n", ErrParse},
		{"bad yaml", "---\nname: [unclosed\n---\n", ErrParse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, "SKILL.md")
			writeFile(t, path, tt.content)
			if _, err := ParseManifest(path); !errors.Is(err, tt.want) {
				t.Errorf("ParseManifest() = %v, want %v", err, tt.want)
			}
		})
	}

	if _, err := ParseManifest(filepath.Join(dir, "missing", "SKILL.md")); !errors.Is(err, ErrNotFound) {
		t.Errorf("ParseManifest(missing) = %v, want ErrNotFound", err)
	}
}

func TestParseMCPManifest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mcp.json")
	writeFile(t, path, `{
  "name": "context7",
  "description": "Docs lookup",
  "command": "npx",
  "args": ["-y", "@upstash/context7-mcp"],
  "env": {"API_KEY": "x"}
}`)

	m, err := ParseMCPManifest(path)
	if err != nil {
		t.Fatalf("ParseMCPManifest() error: %v", err)
	}
	if m.Name != "context7" || m.Command != "npx" {
		t.Errorf("got %+v", m)
	}
	if !m.IsStdio() {
		t.Error("IsStdio() = false for command connector")
	}
	if len(m.Args) != 2 || m.Env["API_KEY"] != "x" {
		t.Errorf("Args/Env = %v / %v", m.Args, m.Env)
	}
}

func TestMCPManifestValidate(t *testing.T) {
	tests := []struct {
		name    string
		m       MCPManifest
		wantErr bool
	}{
		{"stdio", MCPManifest{Name: "a", Command: "npx"}, false},
		{"remote", MCPManifest{Name: "a", URL: "https://mcp.example.com", Transport: "http"}, false},
		{"no name", MCPManifest{Command: "npx"}, true},
		{"neither command nor url", MCPManifest{Name: "a"}, true},
		{"both command and url", MCPManifest{Name: "a", Command: "npx", URL: "https://x"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.m.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrParse) {
				t.Errorf("Validate() = %v, want ErrParse", err)
			}
		})
	}
}

func TestParseAnyManifest(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "WORKFLOW.md"), "---\nname: deploy\ndescription: Ships it\n---\n")
	writeFile(t, filepath.Join(dir, "mcp.json"), `{"name":"fetcher","description":"HTTP fetch","url":"https://x","type":"sse"}`)

	name, desc, err := ParseAnyManifest(KindWorkflow, filepath.Join(dir, "WORKFLOW.md"))
	if err != nil || name != "deploy" || desc != "Ships it" {
		t.Errorf("workflow: %q %q %v", name, desc, err)
	}

	name, desc, err = ParseAnyManifest(KindMCP, filepath.Join(dir, "mcp.json"))
	if err != nil || name != "fetcher" || desc != "HTTP fetch" {
		t.Errorf("mcp: %q %q %v", name, desc, err)
	}

	if _, _, err := ParseAnyManifest(Kind("bogus"), "x"); !errors.Is(err, ErrUnsupportedKind) {
		t.Errorf("bogus kind: %v", err)
	}
}
