package backend

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/go-git/go-git/v5/plumbing/transport"

	"github.com/rookery-dev/rookery/internal/core/resource"
)

// seededGit plants a working tree on clone so listings have content.
type seededGit struct {
	stubGit
	seed func(dir string) error
}

func (s *seededGit) clone(ctx context.Context, url, dir string, auth transport.AuthMethod) (string, error) {
	rev, err := s.stubGit.clone(ctx, url, dir, auth)
	if err != nil {
		return "", err
	}
	if s.seed != nil {
		if err := s.seed(dir); err != nil {
			return "", err
		}
	}
	return rev, nil
}

func TestGitRepoListAndFetch(t *testing.T) {
	stub := &seededGit{seed: func(dir string) error {
		writeSkill(t, filepath.Join(dir, "skills", "review"), "code-review", "Reviews PRs")
		writeSkill(t, filepath.Join(dir, "skills", "fmt"), "formatter", "Formats code")
		return nil
	}}
	s := NewSyncer(t.TempDir(), nil)
	s.client = stub

	const repoURL = "https://example.com/acme/skills.git"
	g := NewGitRepo(s, repoURL, "skills", Auth{})

	got := collect(t, g.List(context.Background(), resource.KindSkill, Query{}))
	if len(got) != 2 {
		t.Fatalf("got %d descriptors", len(got))
	}
	for _, d := range got {
		if d.SourceID != "example.com_acme_skills" {
			t.Errorf("SourceID = %q", d.SourceID)
		}
		if d.Ref.Scheme != resource.RefGit || d.Ref.RepoURL != repoURL {
			t.Errorf("ref = %+v", d.Ref)
		}
		if d.Ref.Revision != "rev-clone" {
			t.Errorf("revision = %q", d.Ref.Revision)
		}
		if filepath.IsAbs(d.Ref.SubPath) {
			t.Errorf("sub-path %q is absolute", d.Ref.SubPath)
		}
	}

	staged, err := g.Fetch(context.Background(), got[0])
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if staged.IsArchive {
		t.Error("IsArchive = true for clone sub-path")
	}
	if _, err := os.Stat(filepath.Join(staged.Path, "SKILL.md")); err != nil {
		t.Errorf("staged path missing marker: %v", err)
	}
}

func TestGitRepoListMissingSubPath(t *testing.T) {
	stub := &seededGit{}
	s := NewSyncer(t.TempDir(), nil)
	s.client = stub

	g := NewGitRepo(s, "https://example.com/acme/skills.git", "no/such/dir", Auth{})
	var got error
	for _, err := range g.List(context.Background(), resource.KindSkill, Query{}) {
		got = err
	}
	if !errors.Is(got, resource.ErrNotFound) {
		t.Errorf("List error = %v, want ErrNotFound", got)
	}
}

func TestGitRepoFetchRejectsForeignRef(t *testing.T) {
	g := NewGitRepo(NewSyncer(t.TempDir(), nil), "https://example.com/r.git", "", Auth{})
	_, err := g.Fetch(context.Background(), resource.Descriptor{
		ResourceID: "x",
		Ref:        resource.RemoteRef{Scheme: resource.RefLocal, Path: "/x"},
	})
	if !errors.Is(err, resource.ErrNotFound) {
		t.Errorf("Fetch() = %v, want ErrNotFound", err)
	}
}

func TestGitRepoConcurrentListsShareOneSync(t *testing.T) {
	stub := &seededGit{stubGit: stubGit{delay: 15 * time.Millisecond}, seed: func(dir string) error {
		if err := os.MkdirAll(filepath.Join(dir, "a"), 0o755); err != nil {
			return err
		}
		return os.WriteFile(filepath.Join(dir, "a", "SKILL.md"),
			[]byte("---\nname: one\ndescription: x\n---\n"), 0o644)
	}}
	s := NewSyncer(t.TempDir(), nil)
	s.client = stub

	g := NewGitRepo(s, "https://example.com/acme/skills.git", "", Auth{})
	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, err := range g.List(context.Background(), resource.KindSkill, Query{}) {
				if err != nil {
					t.Errorf("List: %v", err)
				}
			}
		}()
	}
	wg.Wait()

	if stub.maxActive != 1 {
		t.Errorf("max concurrent git operations = %d, want 1", stub.maxActive)
	}
}
