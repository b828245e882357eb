package backend

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/rookery-dev/rookery/internal/core/resource"
)

// ownerRepoPattern matches "owner/repo" shorthand (2 segments, no protocol).
var ownerRepoPattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]+/[a-zA-Z0-9_.-]+$`)

// ownerRepoPathPattern matches "owner/repo/path/to/resource" (3+ segments).
var ownerRepoPathPattern = regexp.MustCompile(`^([a-zA-Z0-9_.-]+)/([a-zA-Z0-9_.-]+)/(.+)$`)

// Resolver maps a remote reference string to the backend that serves it.
// It is the single entry point behind the application's URL-scheme trigger:
// "install the resource identified by this reference".
type Resolver struct {
	Marketplace *Marketplace
	Syncer      *Syncer
	Cache       Backend               // the global cache store, browsable as a backend
	AuthFor     func(url string) Auth // per-call credential lookup for git remotes; may be nil
}

// Resolved pairs a backend with the parsed reference it should serve.
// NameFilter is set when the reference names one specific resource
// (the "...@name" shorthand).
type Resolved struct {
	Backend    Backend
	Ref        resource.RemoteRef
	NameFilter string
}

// Resolve parses a remote reference in any supported form and selects the
// backend that serves it.
//
// Supported forms:
//   - "rookery://install?ref=<encoded ref>"     URL-scheme trigger envelope
//   - "mkt:<id>", "git+<url>...", "local:<p>"   canonical RemoteRef encoding
//   - "owner/repo[/sub/path][@name]"            github shorthand
//   - "git@host:owner/repo.git[@name]"          SSH remote
//   - "https://host/owner/repo[@name]"          HTTPS remote
//   - "./dir", "../dir", "/abs", "~/dir"        local folder
func (r *Resolver) Resolve(input string) (*Resolved, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, fmt.Errorf("%w: empty reference", resource.ErrParse)
	}

	if strings.HasPrefix(input, "rookery://") {
		return r.resolveTrigger(input)
	}

	// Canonical encodings round-trip straight through.
	if strings.HasPrefix(input, "mkt:") || strings.HasPrefix(input, "git+") ||
		strings.HasPrefix(input, "local:") || strings.HasPrefix(input, "cache:") {
		ref, err := resource.ParseRemoteRef(input)
		if err != nil {
			return nil, err
		}
		return r.forRef(ref, "")
	}

	if isLocalPath(input) {
		abs, err := resolveLocalDir(input)
		if err != nil {
			return nil, err
		}
		return r.forRef(resource.RemoteRef{Scheme: resource.RefLocal, Path: abs}, "")
	}

	if strings.HasPrefix(input, "git@") {
		return r.resolveGitURL(input)
	}
	if strings.HasPrefix(input, "https://") || strings.HasPrefix(input, "http://") {
		return r.resolveGitURL(input)
	}

	// owner/repo[@name]
	if at := strings.LastIndex(input, "@"); at > 0 {
		base, name := input[:at], input[at+1:]
		if ownerRepoPattern.MatchString(base) {
			ref := githubRef(base, "")
			return r.forRef(ref, name)
		}
	}
	// owner/repo/path/to/resource
	if m := ownerRepoPathPattern.FindStringSubmatch(input); m != nil {
		return r.forRef(githubRef(m[1]+"/"+m[2], m[3]), "")
	}
	if ownerRepoPattern.MatchString(input) {
		return r.forRef(githubRef(input, ""), "")
	}

	return nil, fmt.Errorf("%w: unrecognized reference %q", resource.ErrParse, input)
}

// resolveTrigger unwraps the rookery:// URL-scheme envelope.
func (r *Resolver) resolveTrigger(input string) (*Resolved, error) {
	u, err := url.Parse(input)
	if err != nil {
		return nil, fmt.Errorf("%w: trigger URL %q: %v", resource.ErrParse, input, err)
	}
	if u.Host != "install" {
		return nil, fmt.Errorf("%w: unsupported trigger action %q", resource.ErrParse, u.Host)
	}
	ref := u.Query().Get("ref")
	if ref == "" {
		return nil, fmt.Errorf("%w: trigger URL missing ref parameter", resource.ErrParse)
	}
	return r.Resolve(ref)
}

func (r *Resolver) resolveGitURL(input string) (*Resolved, error) {
	repoURL, name := input, ""
	// A trailing @name selects one resource; SSH URLs contain their own "@",
	// so only split after the path starts.
	if slash := strings.Index(input, "/"); slash >= 0 {
		if at := strings.LastIndex(input[slash:], "@"); at > 0 {
			repoURL, name = input[:slash+at], input[slash+at+1:]
		}
	}
	return r.forRef(resource.RemoteRef{Scheme: resource.RefGit, RepoURL: repoURL}, name)
}

func (r *Resolver) forRef(ref resource.RemoteRef, nameFilter string) (*Resolved, error) {
	switch ref.Scheme {
	case resource.RefMarketplace:
		if r.Marketplace == nil {
			return nil, fmt.Errorf("%w: no marketplace configured", resource.ErrNotFound)
		}
		return &Resolved{Backend: r.Marketplace, Ref: ref, NameFilter: nameFilter}, nil
	case resource.RefGit:
		var auth Auth
		if r.AuthFor != nil {
			auth = r.AuthFor(ref.RepoURL)
		}
		return &Resolved{
			Backend:    NewGitRepo(r.Syncer, ref.RepoURL, ref.SubPath, auth),
			Ref:        ref,
			NameFilter: nameFilter,
		}, nil
	case resource.RefLocal:
		return &Resolved{Backend: NewLocal(ref.Path), Ref: ref, NameFilter: nameFilter}, nil
	case resource.RefCache:
		if r.Cache == nil {
			return nil, fmt.Errorf("%w: no cache configured", resource.ErrNotFound)
		}
		return &Resolved{Backend: r.Cache, Ref: ref, NameFilter: nameFilter}, nil
	}
	return nil, fmt.Errorf("%w: unrecognized ref scheme %q", resource.ErrParse, ref.Scheme)
}

func githubRef(ownerRepo, subPath string) resource.RemoteRef {
	return resource.RemoteRef{
		Scheme:  resource.RefGit,
		RepoURL: "https://github.com/" + ownerRepo + ".git",
		SubPath: subPath,
	}
}

func isLocalPath(input string) bool {
	return strings.HasPrefix(input, "./") ||
		strings.HasPrefix(input, "../") ||
		strings.HasPrefix(input, "/") ||
		strings.HasPrefix(input, "~/")
}

func resolveLocalDir(input string) (string, error) {
	if strings.HasPrefix(input, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("%w: resolving home directory: %v", resource.ErrIO, err)
		}
		input = filepath.Join(home, input[2:])
	}
	abs, err := filepath.Abs(input)
	if err != nil {
		return "", fmt.Errorf("%w: resolving path %q: %v", resource.ErrIO, input, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("%w: local path %s", resource.ErrNotFound, abs)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: local path %s is not a directory", resource.ErrParse, abs)
	}
	return abs, nil
}
