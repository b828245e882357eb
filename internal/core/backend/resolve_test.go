package backend

import (
	"errors"
	"net/url"
	"testing"

	"github.com/rookery-dev/rookery/internal/core/resource"
)

func testResolver(t *testing.T) *Resolver {
	t.Helper()
	return &Resolver{
		Marketplace: NewMarketplace("https://marketplace.example.com", "", nil),
		Syncer:      NewSyncer(t.TempDir(), nil),
	}
}

func TestResolveGrammar(t *testing.T) {
	r := testResolver(t)

	tests := []struct {
		input       string
		wantScheme  resource.RefScheme
		wantRepoURL string
		wantSubPath string
		wantFilter  string
	}{
		{"mkt:res-42", resource.RefMarketplace, "", "", ""},
		{"git+https://github.com/acme/skills.git#skills/s1", resource.RefGit,
			"https://github.com/acme/skills.git", "skills/s1", ""},
		{"acme/skills", resource.RefGit, "https://github.com/acme/skills.git", "", ""},
		{"acme/skills@code-review", resource.RefGit, "https://github.com/acme/skills.git", "", "code-review"},
		{"acme/skills/tools/fmt", resource.RefGit, "https://github.com/acme/skills.git", "tools/fmt", ""},
		{"git@github.com:acme/skills.git", resource.RefGit, "git@github.com:acme/skills.git", "", ""},
		{"git@github.com:acme/skills.git@fmt", resource.RefGit, "git@github.com:acme/skills.git", "", "fmt"},
		{"https://gitlab.com/acme/skills", resource.RefGit, "https://gitlab.com/acme/skills", "", ""},
		{"https://gitlab.com/acme/skills@fmt", resource.RefGit, "https://gitlab.com/acme/skills", "", "fmt"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := r.Resolve(tt.input)
			if err != nil {
				t.Fatalf("Resolve() error: %v", err)
			}
			if got.Ref.Scheme != tt.wantScheme {
				t.Errorf("scheme = %s, want %s", got.Ref.Scheme, tt.wantScheme)
			}
			if got.Ref.RepoURL != tt.wantRepoURL {
				t.Errorf("repo URL = %q, want %q", got.Ref.RepoURL, tt.wantRepoURL)
			}
			if got.Ref.SubPath != tt.wantSubPath {
				t.Errorf("sub-path = %q, want %q", got.Ref.SubPath, tt.wantSubPath)
			}
			if got.NameFilter != tt.wantFilter {
				t.Errorf("name filter = %q, want %q", got.NameFilter, tt.wantFilter)
			}
			if got.Backend == nil {
				t.Error("backend is nil")
			}
		})
	}
}

func TestResolveLocalPath(t *testing.T) {
	dir := t.TempDir()
	got, err := testResolver(t).Resolve(dir)
	if err != nil {
		t.Fatalf("Resolve(%q) error: %v", dir, err)
	}
	if got.Ref.Scheme != resource.RefLocal || got.Ref.Path != dir {
		t.Errorf("ref = %+v", got.Ref)
	}
	if _, ok := got.Backend.(*Local); !ok {
		t.Errorf("backend = %T, want *Local", got.Backend)
	}
}

func TestResolveLocalPathMissing(t *testing.T) {
	if _, err := testResolver(t).Resolve("./definitely-not-here-xyz"); !errors.Is(err, resource.ErrNotFound) {
		t.Errorf("Resolve() = %v, want ErrNotFound", err)
	}
}

func TestResolveTriggerEnvelope(t *testing.T) {
	r := testResolver(t)

	got, err := r.Resolve("rookery://install?ref=" + url.QueryEscape("mkt:res-42"))
	if err != nil {
		t.Fatalf("Resolve(trigger) error: %v", err)
	}
	if got.Ref.Scheme != resource.RefMarketplace || got.Ref.ID != "res-42" {
		t.Errorf("ref = %+v", got.Ref)
	}

	if _, err := r.Resolve("rookery://install"); !errors.Is(err, resource.ErrParse) {
		t.Errorf("missing ref param: %v", err)
	}
	if _, err := r.Resolve("rookery://update?ref=mkt:x"); !errors.Is(err, resource.ErrParse) {
		t.Errorf("unknown action: %v", err)
	}
}

func TestResolveErrors(t *testing.T) {
	r := testResolver(t)
	for _, input := range []string{"", "   ", "just-one-word", "mkt:"} {
		if _, err := r.Resolve(input); !errors.Is(err, resource.ErrParse) {
			t.Errorf("Resolve(%q) = %v, want ErrParse", input, err)
		}
	}
}

func TestResolveMarketplaceUnconfigured(t *testing.T) {
	r := &Resolver{Syncer: NewSyncer(t.TempDir(), nil)}
	if _, err := r.Resolve("mkt:res-42"); !errors.Is(err, resource.ErrNotFound) {
		t.Errorf("Resolve() = %v, want ErrNotFound", err)
	}
}
