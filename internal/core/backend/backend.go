// Package backend implements the repository contract over the four resource
// sources: the hosted marketplace API, remote git repositories, local
// folders, and (via the cache package) the on-disk global cache.
//
// Every backend is an independent implementation of the Backend interface,
// selected by the caller. Backends are safe for concurrent use; any mutable
// state inside one instance sits behind a single mutex.
package backend

import (
	"context"
	"iter"
	"strings"

	"github.com/rookery-dev/rookery/internal/core/resource"
)

// Query filters a listing. The zero value matches everything.
type Query struct {
	Text string // case-insensitive substring match on name or description
}

// Matches reports whether the descriptor satisfies the query.
func (q Query) Matches(d resource.Descriptor) bool {
	if q.Text == "" {
		return true
	}
	needle := strings.ToLower(q.Text)
	return strings.Contains(strings.ToLower(d.Name), needle) ||
		strings.Contains(strings.ToLower(d.Description), needle)
}

// Seq is a lazy, finite, single-use sequence of descriptors. Iteration is
// not restartable; a fresh List call re-queries the backend.
type Seq = iter.Seq2[resource.Descriptor, error]

// Staged is the local handle to fetched content, consumable by the installer.
type Staged struct {
	Path      string // file (archive) or directory (pre-staged tree)
	IsArchive bool   // true when Path is a packaged archive, not a tree
	Checksum  string // hex sha256 of the content, when known
	cleanup   func()
}

// NewStaged builds a staged handle. cleanup may be nil for pre-staged
// content the backend continues to own (local folders, clone sub-paths).
func NewStaged(path string, archive bool, checksum string, cleanup func()) *Staged {
	return &Staged{Path: path, IsArchive: archive, Checksum: checksum, cleanup: cleanup}
}

// Cleanup discards any temporary staging state. Safe to call more than once.
func (s *Staged) Cleanup() {
	if s.cleanup != nil {
		s.cleanup()
		s.cleanup = nil
	}
}

// Backend is the uniform contract over heterogeneous resource sources.
type Backend interface {
	// Name identifies the backend for logs and operation context.
	Name() string

	// Supports reports whether this backend can serve the given kind.
	Supports(kind resource.Kind) bool

	// List lazily enumerates resources of the given kind matching the query.
	List(ctx context.Context, kind resource.Kind, q Query) Seq

	// Fetch stages the descriptor's content locally for the installer.
	Fetch(ctx context.Context, d resource.Descriptor) (*Staged, error)
}

// errSeq yields a single error and stops.
func errSeq(err error) Seq {
	return func(yield func(resource.Descriptor, error) bool) {
		yield(resource.Descriptor{}, err)
	}
}
