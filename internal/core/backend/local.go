package backend

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rookery-dev/rookery/internal/core/resource"
)

// defaultScanDepth bounds how deep a folder scan descends below its root.
const defaultScanDepth = 6

// Local serves resources from a directory tree on disk. Scans are
// side-effect-free and independent, so Local carries no mutable state.
type Local struct {
	root     string
	maxDepth int
}

// NewLocal creates a local-folder backend rooted at the given directory.
func NewLocal(root string) *Local {
	return &Local{root: root, maxDepth: defaultScanDepth}
}

// Name implements Backend.
func (l *Local) Name() string { return "local" }

// Supports implements Backend. Local folders can hold any kind.
func (*Local) Supports(resource.Kind) bool { return true }

// List recursively scans the root for marker files of the given kind.
func (l *Local) List(ctx context.Context, kind resource.Kind, q Query) Seq {
	return func(yield func(resource.Descriptor, error) bool) {
		abs, err := filepath.Abs(l.root)
		if err != nil {
			yield(resource.Descriptor{}, fmt.Errorf("%w: resolving %s: %v", resource.ErrIO, l.root, err))
			return
		}
		if _, err := os.Stat(abs); err != nil {
			yield(resource.Descriptor{}, fmt.Errorf("%w: %s", resource.ErrNotFound, abs))
			return
		}

		scanErr := scanTree(abs, kind, l.maxDepth, func(f found) bool {
			if ctx.Err() != nil {
				return false
			}
			d := resource.Descriptor{
				SourceID:    abs,
				ResourceID:  f.name,
				Kind:        kind,
				Name:        f.name,
				Description: f.description,
				Ref:         resource.RemoteRef{Scheme: resource.RefLocal, Path: f.dir},
			}
			if !q.Matches(d) {
				return true
			}
			return yield(d, nil)
		})
		if scanErr != nil {
			yield(resource.Descriptor{}, fmt.Errorf("%w: scanning %s: %v", resource.ErrIO, abs, scanErr))
		}
	}
}

// Fetch is a no-op relative to List: the descriptor's ref already points at
// the final directory, so the content is pre-staged and owned by the folder.
func (l *Local) Fetch(_ context.Context, d resource.Descriptor) (*Staged, error) {
	if d.Ref.Scheme != resource.RefLocal || d.Ref.Path == "" {
		return nil, fmt.Errorf("%w: descriptor %q has no local path", resource.ErrNotFound, d.ResourceID)
	}
	if _, err := os.Stat(d.Ref.Path); err != nil {
		return nil, fmt.Errorf("%w: %s", resource.ErrNotFound, d.Ref.Path)
	}
	return NewStaged(d.Ref.Path, false, "", nil), nil
}
