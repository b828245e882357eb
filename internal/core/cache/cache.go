// Package cache implements the global on-disk content store. It is
// dual-purposed: the installer commits fetched resources into it for
// deduplication, and it is itself a browsable backend over everything
// already fetched.
//
// Layout: one directory tree per kind under the private root,
// <root>/<kind>/<sourceId>/<resourceId>/, each slot holding content/ plus
// an entry.json sidecar. There is no eviction; entries leave only through
// an explicit Purge tied to an uninstall.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/rookery-dev/rookery/internal/core/backend"
	"github.com/rookery-dev/rookery/internal/core/fsutil"
	"github.com/rookery-dev/rookery/internal/core/resource"
)

const (
	entryFile  = "entry.json"
	contentDir = "content"
)

// Entry is the durable record of one cached resource.
type Entry struct {
	Kind        resource.Kind `json:"kind"`
	SourceID    string        `json:"sourceId"`
	ResourceID  string        `json:"resourceId"`
	Name        string        `json:"name,omitempty"`
	Description string        `json:"description,omitempty"`
	Checksum    string        `json:"checksum"` // tree hash of content/
	FetchedAt   time.Time     `json:"fetchedAt"`

	// Path is the absolute content directory; derived, not serialized.
	Path string `json:"-"`
}

// Key returns the entry's cache identity.
func (e Entry) Key() resource.Key {
	return resource.Key{Kind: e.Kind, SourceID: e.SourceID, ResourceID: e.ResourceID}
}

// Store is the global cache service. One instance is created at startup and
// shared by reference; commits for the same key are collapsed so the first
// writer wins and later committers observe its result.
type Store struct {
	root  string
	log   *zap.Logger
	group singleflight.Group
}

// New creates a Store rooted at the given private directory.
func New(root string, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{root: root, log: log}
}

// Root returns the cache root directory.
func (s *Store) Root() string { return s.root }

func (s *Store) slotDir(key resource.Key) string {
	return filepath.Join(s.root, string(key.Kind), fsutil.Slug(key.SourceID), fsutil.Slug(key.ResourceID))
}

// Name implements backend.Backend.
func (s *Store) Name() string { return "cache" }

// Supports implements backend.Backend. The cache holds every kind.
func (*Store) Supports(resource.Kind) bool { return true }

// List enumerates cached entries of a kind as descriptors whose refs point
// at the cache content paths.
func (s *Store) List(ctx context.Context, kind resource.Kind, q backend.Query) backend.Seq {
	return func(yield func(resource.Descriptor, error) bool) {
		kindDir := filepath.Join(s.root, string(kind))
		sources, err := os.ReadDir(kindDir)
		if err != nil {
			return // nothing cached for this kind
		}
		for _, src := range sources {
			if !src.IsDir() {
				continue
			}
			slots, err := os.ReadDir(filepath.Join(kindDir, src.Name()))
			if err != nil {
				continue
			}
			for _, slot := range slots {
				if ctx.Err() != nil {
					return
				}
				if !slot.IsDir() {
					continue
				}
				entry, err := s.loadEntry(filepath.Join(kindDir, src.Name(), slot.Name()))
				if err != nil {
					continue // slot without a valid sidecar is invisible
				}
				fetched := entry.FetchedAt
				d := resource.Descriptor{
					SourceID:    entry.SourceID,
					ResourceID:  entry.ResourceID,
					Kind:        entry.Kind,
					Name:        entry.Name,
					Description: entry.Description,
					Ref:         resource.RemoteRef{Scheme: resource.RefCache, Path: entry.Path},
					Checksum:    entry.Checksum,
					InstalledAt: &fetched,
				}
				if !q.Matches(d) {
					continue
				}
				if !yield(d, nil) {
					return
				}
			}
		}
	}
}

// Fetch is a cache hit for an already-present entry: it returns the content
// directory after a staleness check. A checksum mismatch surfaces as
// ErrCacheCorrupt so the caller re-fetches from the origin backend.
func (s *Store) Fetch(_ context.Context, d resource.Descriptor) (*backend.Staged, error) {
	entry, err := s.Get(d.Key())
	if err != nil {
		return nil, err
	}
	sum, err := HashTree(entry.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: hashing %s: %v", resource.ErrIO, entry.Path, err)
	}
	if entry.Checksum != "" && sum != entry.Checksum {
		return nil, fmt.Errorf("%w: %s/%s/%s content hash %s, recorded %s",
			resource.ErrCacheCorrupt, d.Kind, d.SourceID, d.ResourceID, sum, entry.Checksum)
	}
	return backend.NewStaged(entry.Path, false, entry.Checksum, nil), nil
}

// Get returns the entry for a key, or ErrNotFound.
func (s *Store) Get(key resource.Key) (Entry, error) {
	entry, err := s.loadEntry(s.slotDir(key))
	if err != nil {
		return Entry{}, fmt.Errorf("%w: cache entry %s/%s/%s",
			resource.ErrNotFound, key.Kind, key.SourceID, key.ResourceID)
	}
	return entry, nil
}

// Commit makes a staged content tree durable under the descriptor's key.
// The commit is idempotent under concurrency: simultaneous attempts for one
// key collapse to a single writer, and a committer that finds an existing
// intact entry returns it rather than overwriting. An existing entry that no
// longer matches its recorded checksum is replaced with the staged tree, so
// committing freshly fetched content heals a corrupt slot.
func (s *Store) Commit(ctx context.Context, d resource.Descriptor, treePath string) (Entry, error) {
	key := d.Key()
	flightKey := string(key.Kind) + "\x00" + key.SourceID + "\x00" + key.ResourceID

	v, err, _ := s.group.Do(flightKey, func() (any, error) {
		return s.commit(ctx, d, treePath)
	})
	if err != nil {
		return Entry{}, err
	}
	return v.(Entry), nil
}

func (s *Store) commit(ctx context.Context, d resource.Descriptor, treePath string) (Entry, error) {
	slot := s.slotDir(d.Key())

	// First writer wins, but only while the slot still verifies: a corrupt
	// entry must never outlive a commit that holds good content.
	if existing, err := s.loadEntry(slot); err == nil {
		sum, hashErr := HashTree(existing.Path)
		if hashErr == nil && (existing.Checksum == "" || sum == existing.Checksum) {
			return existing, nil
		}
		s.log.Warn("replacing corrupt cache entry",
			zap.String("kind", string(d.Kind)),
			zap.String("source", d.SourceID),
			zap.String("resource", d.ResourceID))
		if err := os.RemoveAll(slot); err != nil {
			return Entry{}, fmt.Errorf("%w: replacing corrupt entry: %v", resource.ErrCacheCorrupt, err)
		}
	}
	if err := ctx.Err(); err != nil {
		return Entry{}, err
	}

	sum, err := HashTree(treePath)
	if err != nil {
		return Entry{}, fmt.Errorf("%w: hashing staged content: %v", resource.ErrIO, err)
	}

	entry := Entry{
		Kind:        d.Kind,
		SourceID:    d.SourceID,
		ResourceID:  d.ResourceID,
		Name:        d.Name,
		Description: d.Description,
		Checksum:    sum,
		FetchedAt:   time.Now().UTC(),
	}

	// Build the whole slot next to its final location, then rename it into
	// place so no partial slot is ever observable.
	parent := filepath.Dir(slot)
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return Entry{}, fmt.Errorf("%w: creating cache directory: %v", resource.ErrIO, err)
	}
	tmpSlot := filepath.Join(parent, ".tmp-"+uuid.NewString())
	if err := fsutil.CopyTree(treePath, filepath.Join(tmpSlot, contentDir)); err != nil {
		_ = os.RemoveAll(tmpSlot)
		return Entry{}, fmt.Errorf("%w: staging cache content: %v", resource.ErrIO, err)
	}
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		_ = os.RemoveAll(tmpSlot)
		return Entry{}, fmt.Errorf("%w: encoding cache entry: %v", resource.ErrIO, err)
	}
	if err := os.WriteFile(filepath.Join(tmpSlot, entryFile), data, 0o644); err != nil {
		_ = os.RemoveAll(tmpSlot)
		return Entry{}, fmt.Errorf("%w: writing cache entry: %v", resource.ErrIO, err)
	}

	if err := os.Rename(tmpSlot, slot); err != nil {
		_ = os.RemoveAll(tmpSlot)
		// Lost a race with another process; the earlier writer's entry stands.
		if existing, loadErr := s.loadEntry(slot); loadErr == nil {
			return existing, nil
		}
		return Entry{}, fmt.Errorf("%w: committing cache entry: %v", resource.ErrIO, err)
	}

	entry.Path = filepath.Join(slot, contentDir)
	s.log.Debug("cache commit",
		zap.String("kind", string(d.Kind)),
		zap.String("source", d.SourceID),
		zap.String("resource", d.ResourceID),
		zap.String("checksum", sum))
	return entry, nil
}

// Purge removes the entry for a key. Purging a missing key is not an error.
func (s *Store) Purge(key resource.Key) error {
	slot := s.slotDir(key)
	if err := os.RemoveAll(slot); err != nil {
		return fmt.Errorf("%w: purging cache entry: %v", resource.ErrIO, err)
	}
	s.log.Debug("cache purge",
		zap.String("kind", string(key.Kind)),
		zap.String("source", key.SourceID),
		zap.String("resource", key.ResourceID))
	return nil
}

func (s *Store) loadEntry(slot string) (Entry, error) {
	data, err := os.ReadFile(filepath.Join(slot, entryFile))
	if err != nil {
		return Entry{}, err
	}
	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return Entry{}, err
	}
	entry.Path = filepath.Join(slot, contentDir)
	return entry, nil
}

// HashTree computes a deterministic hex sha256 over a directory tree:
// each regular file's relative path and content, in sorted order.
func HashTree(root string) (string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	sort.Strings(files)

	h := sha256.New()
	for _, path := range files {
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return "", err
		}
		io.WriteString(h, filepath.ToSlash(rel))
		h.Write([]byte{0})
		f, err := os.Open(path)
		if err != nil {
			return "", err
		}
		_, err = io.Copy(h, f)
		f.Close()
		if err != nil {
			return "", err
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
