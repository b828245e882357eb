package cache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rookery-dev/rookery/internal/core/backend"
	"github.com/rookery-dev/rookery/internal/core/resource"
)

func stageTree(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func skillDescriptor(source, id string) resource.Descriptor {
	return resource.Descriptor{
		SourceID:    source,
		ResourceID:  id,
		Kind:        resource.KindSkill,
		Name:        id,
		Description: "a test skill",
	}
}

func TestCommitAndGet(t *testing.T) {
	s := New(t.TempDir(), nil)
	tree := stageTree(t, map[string]string{
		"SKILL.md":          "---\nname: s1\ndescription: x\n---\n",
		"scripts/helper.sh": "#!/bin/sh\n",
	})

	d := skillDescriptor("example_repo", "s1")
	entry, err := s.Commit(context.Background(), d, tree)
	if err != nil {
		t.Fatalf("Commit() error: %v", err)
	}
	if entry.Checksum == "" {
		t.Error("committed entry has no checksum")
	}
	if entry.Path == "" {
		t.Error("committed entry has no content path")
	}

	// Layout: <root>/<kind>/<sourceId>/<resourceId>/content.
	want := filepath.Join(s.Root(), "skill", "example_repo", "s1", "content")
	if entry.Path != want {
		t.Errorf("content path = %q, want %q", entry.Path, want)
	}
	if _, err := os.Stat(filepath.Join(entry.Path, "scripts", "helper.sh")); err != nil {
		t.Errorf("content incomplete: %v", err)
	}

	got, err := s.Get(d.Key())
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got.Checksum != entry.Checksum || got.ResourceID != "s1" {
		t.Errorf("Get() = %+v", got)
	}

	// No stray temp slots after a clean commit.
	siblings, err := os.ReadDir(filepath.Dir(filepath.Join(s.Root(), "skill", "example_repo", "s1")))
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range siblings {
		if e.Name() != "s1" {
			t.Errorf("unexpected leftover %q in cache", e.Name())
		}
	}
}

func TestCommitFirstWriterWins(t *testing.T) {
	s := New(t.TempDir(), nil)
	d := skillDescriptor("src", "s1")

	first := stageTree(t, map[string]string{"SKILL.md": "first"})
	second := stageTree(t, map[string]string{"SKILL.md": "second"})

	e1, err := s.Commit(context.Background(), d, first)
	if err != nil {
		t.Fatal(err)
	}
	e2, err := s.Commit(context.Background(), d, second)
	if err != nil {
		t.Fatal(err)
	}
	if e2.Checksum != e1.Checksum {
		t.Error("second commit replaced the existing entry")
	}
	content, err := os.ReadFile(filepath.Join(s.Root(), "skill", "src", "s1", "content", "SKILL.md"))
	if err != nil || string(content) != "first" {
		t.Errorf("content = %q, %v", content, err)
	}
}

func TestCommitConcurrentConverges(t *testing.T) {
	s := New(t.TempDir(), nil)
	d := skillDescriptor("src", "s1")
	tree := stageTree(t, map[string]string{"SKILL.md": "content"})

	const n = 10
	entries := make([]Entry, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e, err := s.Commit(context.Background(), d, tree)
			if err != nil {
				t.Errorf("Commit: %v", err)
				return
			}
			entries[i] = e
		}()
	}
	wg.Wait()

	for i := 1; i < n; i++ {
		if entries[i].Checksum != entries[0].Checksum {
			t.Fatalf("commit %d diverged: %q vs %q", i, entries[i].Checksum, entries[0].Checksum)
		}
	}
}

func TestFetchDetectsCorruption(t *testing.T) {
	s := New(t.TempDir(), nil)
	d := skillDescriptor("src", "s1")
	tree := stageTree(t, map[string]string{"SKILL.md": "pristine"})

	entry, err := s.Commit(context.Background(), d, tree)
	if err != nil {
		t.Fatal(err)
	}

	staged, err := s.Fetch(context.Background(), d)
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if staged.Path != entry.Path {
		t.Errorf("staged path = %q", staged.Path)
	}

	// Tamper with the cached content; the next fetch must refuse it.
	if err := os.WriteFile(filepath.Join(entry.Path, "SKILL.md"), []byte("tampered"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Fetch(context.Background(), d); !errors.Is(err, resource.ErrCacheCorrupt) {
		t.Errorf("Fetch() = %v, want ErrCacheCorrupt", err)
	}
}

func TestCommitReplacesCorruptEntry(t *testing.T) {
	s := New(t.TempDir(), nil)
	d := skillDescriptor("src", "s1")
	ctx := context.Background()

	if _, err := s.Commit(ctx, d, stageTree(t, map[string]string{"SKILL.md": "pristine"})); err != nil {
		t.Fatal(err)
	}
	entry, err := s.Get(d.Key())
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(entry.Path, "SKILL.md"), []byte("tampered"), 0o644); err != nil {
		t.Fatal(err)
	}

	// A commit holding good content must replace the corrupt slot, not
	// return it.
	recommitted, err := s.Commit(ctx, d, stageTree(t, map[string]string{"SKILL.md": "pristine"}))
	if err != nil {
		t.Fatalf("Commit() over corrupt entry: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(recommitted.Path, "SKILL.md"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "pristine" {
		t.Errorf("recommitted content = %q, want staged tree", data)
	}
	if _, err := s.Fetch(ctx, d); err != nil {
		t.Errorf("Fetch() after recommit: %v", err)
	}
}

func TestFetchMissingEntry(t *testing.T) {
	s := New(t.TempDir(), nil)
	if _, err := s.Fetch(context.Background(), skillDescriptor("src", "absent")); !errors.Is(err, resource.ErrNotFound) {
		t.Errorf("Fetch() = %v, want ErrNotFound", err)
	}
}

func TestListAndPurge(t *testing.T) {
	s := New(t.TempDir(), nil)
	ctx := context.Background()

	for _, id := range []string{"s1", "s2"} {
		tree := stageTree(t, map[string]string{"SKILL.md": id})
		if _, err := s.Commit(ctx, skillDescriptor("src", id), tree); err != nil {
			t.Fatal(err)
		}
	}
	mcpTree := stageTree(t, map[string]string{"mcp.json": `{"name":"m1","command":"npx"}`})
	if _, err := s.Commit(ctx, resource.Descriptor{
		SourceID: "src", ResourceID: "m1", Kind: resource.KindMCP, Name: "m1",
	}, mcpTree); err != nil {
		t.Fatal(err)
	}

	var skills []string
	for d, err := range s.List(ctx, resource.KindSkill, backend.Query{}) {
		if err != nil {
			t.Fatal(err)
		}
		if d.Ref.Scheme != resource.RefCache {
			t.Errorf("ref scheme = %s", d.Ref.Scheme)
		}
		skills = append(skills, d.ResourceID)
	}
	if len(skills) != 2 {
		t.Errorf("skills = %v", skills)
	}

	// Query filtering applies to cached listings too.
	var filtered int
	for _, err := range s.List(ctx, resource.KindSkill, backend.Query{Text: "s1"}) {
		if err != nil {
			t.Fatal(err)
		}
		filtered++
	}
	if filtered != 1 {
		t.Errorf("filtered count = %d", filtered)
	}

	key := resource.Key{Kind: resource.KindSkill, SourceID: "src", ResourceID: "s1"}
	if err := s.Purge(key); err != nil {
		t.Fatalf("Purge() error: %v", err)
	}
	if _, err := s.Get(key); !errors.Is(err, resource.ErrNotFound) {
		t.Errorf("Get() after purge = %v, want ErrNotFound", err)
	}
	// Purge is scoped to one entry.
	if _, err := s.Get(resource.Key{Kind: resource.KindSkill, SourceID: "src", ResourceID: "s2"}); err != nil {
		t.Errorf("sibling entry gone after purge: %v", err)
	}
	// Purging again is a no-op.
	if err := s.Purge(key); err != nil {
		t.Errorf("repeat Purge() error: %v", err)
	}
}

func TestHashTreeDeterministic(t *testing.T) {
	a := stageTree(t, map[string]string{"b.txt": "2", "a.txt": "1", "d/c.txt": "3"})
	b := stageTree(t, map[string]string{"a.txt": "1", "d/c.txt": "3", "b.txt": "2"})

	ha, err := HashTree(a)
	if err != nil {
		t.Fatal(err)
	}
	hb, err := HashTree(b)
	if err != nil {
		t.Fatal(err)
	}
	if ha != hb {
		t.Error("identical trees hashed differently")
	}

	c := stageTree(t, map[string]string{"a.txt": "1", "d/c.txt": "3", "b.txt": "changed"})
	hc, err := HashTree(c)
	if err != nil {
		t.Fatal(err)
	}
	if hc == ha {
		t.Error("differing trees hashed identically")
	}
}

func TestHashTreeSensitiveToPaths(t *testing.T) {
	a := stageTree(t, map[string]string{"x/f.txt": "same"})
	b := stageTree(t, map[string]string{"y/f.txt": "same"})
	ha, _ := HashTree(a)
	hb, _ := HashTree(b)
	if ha == hb {
		t.Error("renamed path did not change the tree hash")
	}
}
