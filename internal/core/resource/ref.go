package resource

import (
	"fmt"
	"strings"
)

// RefScheme distinguishes the backend a RemoteRef belongs to.
type RefScheme string

const (
	RefMarketplace RefScheme = "mkt"
	RefGit         RefScheme = "git"
	RefLocal       RefScheme = "local"
	RefCache       RefScheme = "cache"
)

// RemoteRef is the opaque, backend-specific location of a resource.
// Exactly one group of fields is populated, selected by Scheme.
// Refs round-trip through String/ParseRemoteRef so the URL-scheme
// entry point can carry one as a single string.
type RemoteRef struct {
	Scheme RefScheme

	// Marketplace: server-side resource id.
	ID string

	// Version control: clone URL, optional sub-path within the clone,
	// and the revision the descriptor was listed at.
	RepoURL  string
	SubPath  string
	Revision string

	// Local folder or cache slot: absolute path on disk.
	Path string
}

// String renders the canonical single-string form of the ref.
func (r RemoteRef) String() string {
	switch r.Scheme {
	case RefMarketplace:
		return "mkt:" + r.ID
	case RefGit:
		s := "git+" + r.RepoURL
		if r.SubPath != "" {
			s += "#" + r.SubPath
		}
		if r.Revision != "" {
			s += "@" + r.Revision
		}
		return s
	case RefLocal:
		return "local:" + r.Path
	case RefCache:
		return "cache:" + r.Path
	}
	return ""
}

// ParseRemoteRef parses the canonical form produced by String.
// User-facing shorthand grammar (owner/repo, bare paths) lives in the
// backend resolver; this only accepts the canonical encoding.
func ParseRemoteRef(s string) (RemoteRef, error) {
	switch {
	case strings.HasPrefix(s, "mkt:"):
		id := strings.TrimPrefix(s, "mkt:")
		if id == "" {
			return RemoteRef{}, fmt.Errorf("%w: empty marketplace id in ref %q", ErrParse, s)
		}
		return RemoteRef{Scheme: RefMarketplace, ID: id}, nil

	case strings.HasPrefix(s, "git+"):
		rest := strings.TrimPrefix(s, "git+")
		ref := RemoteRef{Scheme: RefGit}
		// Revision comes after the last "@" that follows the fragment,
		// but SSH URLs contain "@" themselves, so split the fragment first.
		if i := strings.Index(rest, "#"); i >= 0 {
			ref.RepoURL = rest[:i]
			frag := rest[i+1:]
			if j := strings.LastIndex(frag, "@"); j >= 0 {
				ref.SubPath, ref.Revision = frag[:j], frag[j+1:]
			} else {
				ref.SubPath = frag
			}
		} else {
			ref.RepoURL = rest
		}
		if ref.RepoURL == "" {
			return RemoteRef{}, fmt.Errorf("%w: empty repository URL in ref %q", ErrParse, s)
		}
		return ref, nil

	case strings.HasPrefix(s, "local:"):
		return RemoteRef{Scheme: RefLocal, Path: strings.TrimPrefix(s, "local:")}, nil

	case strings.HasPrefix(s, "cache:"):
		return RemoteRef{Scheme: RefCache, Path: strings.TrimPrefix(s, "cache:")}, nil
	}
	return RemoteRef{}, fmt.Errorf("%w: unrecognized ref %q", ErrParse, s)
}
