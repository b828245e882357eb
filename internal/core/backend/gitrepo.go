package backend

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rookery-dev/rookery/internal/core/resource"
)

// GitRepo serves resources from one remote version-controlled repository.
// The syncer owns the shallow clone; the clone itself is the staging area,
// so Fetch returns a sub-path of it rather than copying anything.
type GitRepo struct {
	syncer  *Syncer
	url     string
	subPath string // optional declared sub-path to scan below
	auth    Auth   // credentials for this invocation only
}

// NewGitRepo creates a version-control backend for one remote URL.
// auth applies to operations made through this instance and is not
// persisted anywhere.
func NewGitRepo(syncer *Syncer, url, subPath string, auth Auth) *GitRepo {
	return &GitRepo{syncer: syncer, url: url, subPath: subPath, auth: auth}
}

// Name implements Backend.
func (g *GitRepo) Name() string { return "git" }

// Supports implements Backend. Repositories can hold any kind.
func (*GitRepo) Supports(resource.Kind) bool { return true }

// List synchronizes the clone, then walks its tree below the declared
// sub-path for resource manifests of the given kind.
func (g *GitRepo) List(ctx context.Context, kind resource.Kind, q Query) Seq {
	return func(yield func(resource.Descriptor, error) bool) {
		dir, rev, err := g.syncer.Ensure(ctx, g.url, g.auth)
		if err != nil {
			yield(resource.Descriptor{}, err)
			return
		}

		scanRoot := dir
		if g.subPath != "" {
			scanRoot = filepath.Join(dir, filepath.FromSlash(g.subPath))
			if _, err := os.Stat(scanRoot); err != nil {
				yield(resource.Descriptor{}, fmt.Errorf("%w: sub-path %q in %s", resource.ErrNotFound, g.subPath, g.url))
				return
			}
		}

		sourceID := SourceKey(g.url)
		scanErr := scanTree(scanRoot, kind, defaultScanDepth, func(f found) bool {
			if ctx.Err() != nil {
				return false
			}
			rel, relErr := filepath.Rel(dir, f.dir)
			if relErr != nil {
				return true
			}
			d := resource.Descriptor{
				SourceID:    sourceID,
				ResourceID:  f.name,
				Kind:        kind,
				Name:        f.name,
				Description: f.description,
				Ref: resource.RemoteRef{
					Scheme:   resource.RefGit,
					RepoURL:  g.url,
					SubPath:  filepath.ToSlash(rel),
					Revision: rev,
				},
			}
			if !q.Matches(d) {
				return true
			}
			return yield(d, nil)
		})
		if scanErr != nil {
			yield(resource.Descriptor{}, fmt.Errorf("%w: scanning clone of %s: %v", resource.ErrIO, g.url, scanErr))
		}
	}
}

// Fetch ensures the clone is synchronized to the latest remote state and
// returns the descriptor's resolved sub-path directly: no separate
// download, the clone is the staging area.
func (g *GitRepo) Fetch(ctx context.Context, d resource.Descriptor) (*Staged, error) {
	if d.Ref.Scheme != resource.RefGit {
		return nil, fmt.Errorf("%w: descriptor %q is not a git ref", resource.ErrNotFound, d.ResourceID)
	}

	dir, _, err := g.syncer.Ensure(ctx, d.Ref.RepoURL, g.auth)
	if err != nil {
		return nil, err
	}

	path := dir
	if d.Ref.SubPath != "" {
		path = filepath.Join(dir, filepath.FromSlash(d.Ref.SubPath))
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %q no longer exists in %s", resource.ErrNotFound, d.Ref.SubPath, d.Ref.RepoURL)
	}
	return NewStaged(path, false, "", nil), nil
}
