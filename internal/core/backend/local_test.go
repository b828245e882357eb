package backend

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rookery-dev/rookery/internal/core/resource"
)

func writeSkill(t *testing.T, dir, name, description string) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	content := "---\nname: " + name + "\ndescription: " + description + "\n---\n"
	if err := os.WriteFile(filepath.Join(dir, "SKILL.md"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func collect(t *testing.T, seq Seq) []resource.Descriptor {
	t.Helper()
	var out []resource.Descriptor
	for d, err := range seq {
		if err != nil {
			t.Fatalf("sequence yielded error: %v", err)
		}
		out = append(out, d)
	}
	return out
}

func TestLocalListFindsNestedSkills(t *testing.T) {
	root := t.TempDir()
	writeSkill(t, filepath.Join(root, "review"), "code-review", "Reviews PRs")
	writeSkill(t, filepath.Join(root, "deep", "nested", "fmt"), "formatter", "Formats code")
	// A skill directory is a leaf: nested markers below a match are not visited.
	writeSkill(t, filepath.Join(root, "review", "inner"), "hidden", "should not appear")
	// Hidden-style and vendored directories are skipped outright.
	writeSkill(t, filepath.Join(root, "_drafts", "x"), "draft", "skipped")
	writeSkill(t, filepath.Join(root, "node_modules", "x"), "dep", "skipped")

	got := collect(t, NewLocal(root).List(context.Background(), resource.KindSkill, Query{}))
	names := map[string]bool{}
	for _, d := range got {
		names[d.Name] = true
		if d.Ref.Scheme != resource.RefLocal {
			t.Errorf("ref scheme = %s", d.Ref.Scheme)
		}
	}
	if len(got) != 2 || !names["code-review"] || !names["formatter"] {
		t.Errorf("got %v", names)
	}
}

func TestLocalListQueryFilter(t *testing.T) {
	root := t.TempDir()
	writeSkill(t, filepath.Join(root, "a"), "code-review", "Reviews PRs")
	writeSkill(t, filepath.Join(root, "b"), "formatter", "Formats code")

	got := collect(t, NewLocal(root).List(context.Background(), resource.KindSkill, Query{Text: "REVIEW"}))
	if len(got) != 1 || got[0].Name != "code-review" {
		t.Errorf("got %v", got)
	}
}

func TestLocalListMissingRoot(t *testing.T) {
	var got error
	for _, err := range NewLocal(filepath.Join(t.TempDir(), "absent")).List(context.Background(), resource.KindSkill, Query{}) {
		got = err
	}
	if !errors.Is(got, resource.ErrNotFound) {
		t.Errorf("List error = %v, want ErrNotFound", got)
	}
}

func TestLocalListIgnoresOtherKinds(t *testing.T) {
	root := t.TempDir()
	writeSkill(t, filepath.Join(root, "a"), "code-review", "Reviews PRs")
	mcpDir := filepath.Join(root, "ctx")
	if err := os.MkdirAll(mcpDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(mcpDir, "mcp.json"),
		[]byte(`{"name":"ctx","command":"npx"}`), 0o644); err != nil {
		t.Fatal(err)
	}

	if got := collect(t, NewLocal(root).List(context.Background(), resource.KindMCP, Query{})); len(got) != 1 || got[0].Name != "ctx" {
		t.Errorf("mcp listing = %v", got)
	}
	if got := collect(t, NewLocal(root).List(context.Background(), resource.KindSkill, Query{})); len(got) != 1 || got[0].Name != "code-review" {
		t.Errorf("skill listing = %v", got)
	}
}

func TestLocalFetchIsPreStaged(t *testing.T) {
	root := t.TempDir()
	dir := writeSkill(t, filepath.Join(root, "a"), "code-review", "x")

	l := NewLocal(root)
	staged, err := l.Fetch(context.Background(), resource.Descriptor{
		ResourceID: "code-review",
		Ref:        resource.RemoteRef{Scheme: resource.RefLocal, Path: dir},
	})
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if staged.Path != dir || staged.IsArchive {
		t.Errorf("staged = %+v", staged)
	}

	// Cleanup must not delete content the folder still owns.
	staged.Cleanup()
	if _, err := os.Stat(filepath.Join(dir, "SKILL.md")); err != nil {
		t.Errorf("source removed by Cleanup: %v", err)
	}
}
