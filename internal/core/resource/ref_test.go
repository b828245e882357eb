package resource

import (
	"errors"
	"testing"
)

func TestRemoteRefRoundTrip(t *testing.T) {
	refs := []RemoteRef{
		{Scheme: RefMarketplace, ID: "res-123"},
		{Scheme: RefGit, RepoURL: "https://github.com/acme/skills.git"},
		{Scheme: RefGit, RepoURL: "https://github.com/acme/skills.git", SubPath: "skills/s1"},
		{Scheme: RefGit, RepoURL: "git@github.com:acme/skills.git", SubPath: "skills/s1", Revision: "abc123"},
		{Scheme: RefLocal, Path: "/home/user/skills"},
		{Scheme: RefCache, Path: "/home/user/.rookery/cache/store/skill/src/id/content"},
	}

	for _, ref := range refs {
		s := ref.String()
		parsed, err := ParseRemoteRef(s)
		if err != nil {
			t.Fatalf("ParseRemoteRef(%q) error: %v", s, err)
		}
		if parsed != ref {
			t.Errorf("round trip of %q: got %+v, want %+v", s, parsed, ref)
		}
	}
}

func TestParseRemoteRefErrors(t *testing.T) {
	for _, input := range []string{"", "mkt:", "git+", "nonsense", "ftp://host/x"} {
		if _, err := ParseRemoteRef(input); !errors.Is(err, ErrParse) {
			t.Errorf("ParseRemoteRef(%q) = %v, want ErrParse", input, err)
		}
	}
}

func TestParseRemoteRefGitWithSSHUserinfo(t *testing.T) {
	// The "@" in SSH userinfo must not be mistaken for a revision separator.
	ref, err := ParseRemoteRef("git+git@github.com:acme/repo.git")
	if err != nil {
		t.Fatalf("ParseRemoteRef() error: %v", err)
	}
	if ref.RepoURL != "git@github.com:acme/repo.git" {
		t.Errorf("RepoURL = %q", ref.RepoURL)
	}
	if ref.Revision != "" {
		t.Errorf("Revision = %q, want empty", ref.Revision)
	}
}
