// Package installer orchestrates fetch → stage → cache → place for resource
// installs, and the reverse for uninstalls. Installs and uninstalls for the
// same (provider, resource) pair serialize on a per-pair lock, so concurrent
// requests never interleave filesystem writes. Every failure after partial
// placement rolls the placement back: the caller sees either "fully
// installed" or "not installed", never a half-installed state.
package installer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rookery-dev/rookery/internal/core/backend"
	"github.com/rookery-dev/rookery/internal/core/cache"
	"github.com/rookery-dev/rookery/internal/core/fsutil"
	"github.com/rookery-dev/rookery/internal/core/provider"
	"github.com/rookery-dev/rookery/internal/core/resource"
)

// Method is how a resource is placed into a provider's tree.
type Method string

const (
	// MethodCopy places an independent, provider-owned snapshot.
	MethodCopy Method = "copy"
	// MethodLink places a reference into the cache; later cache commits are
	// reflected without reinstalling.
	MethodLink Method = "link"
)

// defaultMethod returns the placement default per kind: skills copy,
// workflows and connectors link, since the cache is their source of truth.
func defaultMethod(kind resource.Kind) Method {
	if kind == resource.KindSkill {
		return MethodCopy
	}
	return MethodLink
}

// Options configures an install.
type Options struct {
	Method    Method // empty selects the kind's default
	Overwrite bool   // replace an existing install instead of failing with a conflict
}

// Installer coordinates backends, the global cache, and provider placement.
type Installer struct {
	cache *cache.Store
	log   *zap.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex // per (provider dir, resource id)
}

// New creates an Installer backed by the given cache store.
func New(store *cache.Store, log *zap.Logger) *Installer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Installer{cache: store, log: log, locks: make(map[string]*sync.Mutex)}
}

// lockPair serializes work on one (provider, resource) pair.
func (i *Installer) lockPair(providerDir, resourceID string) func() {
	key := providerDir + "\x00" + resourceID
	i.mu.Lock()
	l, ok := i.locks[key]
	if !ok {
		l = &sync.Mutex{}
		i.locks[key] = l
	}
	i.mu.Unlock()
	l.Lock()
	return l.Unlock
}

func opErr(op string, phase resource.Phase, p provider.Provider, resourceID string, err error) error {
	return &resource.OpError{Op: op, Phase: phase, Provider: p.Name(), Resource: resourceID, Err: err}
}

// InstallFromRemote fetches the descriptor from its originating backend,
// commits the result into the global cache, and places it into the
// provider's tree. It fails with a conflict when an install already exists
// and Overwrite was not requested.
func (i *Installer) InstallFromRemote(ctx context.Context, b backend.Backend, d resource.Descriptor, p provider.Provider, opts Options) (*Record, error) {
	if !b.Supports(d.Kind) {
		return nil, opErr("install", resource.PhaseFetch, p, d.ResourceID,
			fmt.Errorf("%w: backend %s does not serve %s", resource.ErrUnsupportedKind, b.Name(), d.Kind))
	}

	unlock := i.lockPair(p.Dir, d.ResourceID)
	defer unlock()

	// Check for a conflict before doing any remote work.
	if err := i.checkConflict(p, d.ResourceID, opts); err != nil {
		return nil, err
	}

	staged, err := b.Fetch(ctx, d)
	if err != nil {
		return nil, opErr("install", resource.PhaseFetch, p, d.ResourceID, err)
	}
	defer staged.Cleanup()

	tree := staged.Path
	if staged.IsArchive {
		staging := filepath.Join(os.TempDir(), "rookery-stage-"+uuid.NewString())
		if err := extractArchive(staged.Path, staging); err != nil {
			_ = os.RemoveAll(staging)
			return nil, opErr("install", resource.PhaseFetch, p, d.ResourceID, err)
		}
		defer os.RemoveAll(staging)
		tree = staging
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entry, err := i.cache.Commit(ctx, d, tree)
	if err != nil {
		return nil, opErr("install", resource.PhaseCache, p, d.ResourceID, err)
	}

	i.log.Info("resource cached",
		zap.String("kind", string(d.Kind)),
		zap.String("resource", d.ResourceID),
		zap.String("backend", b.Name()))

	return i.placeAndRecord(ctx, d, p, entry.Path, entry.Checksum, opts)
}

// InstallFromCache places directly from an existing cache entry, skipping
// fetch and commit. It fails with not-found when no entry exists, and with
// cache-corruption when the entry no longer matches its checksum.
func (i *Installer) InstallFromCache(ctx context.Context, d resource.Descriptor, p provider.Provider, opts Options) (*Record, error) {
	unlock := i.lockPair(p.Dir, d.ResourceID)
	defer unlock()

	if err := i.checkConflict(p, d.ResourceID, opts); err != nil {
		return nil, err
	}

	staged, err := i.cache.Fetch(ctx, d)
	if err != nil {
		return nil, opErr("install", resource.PhaseCache, p, d.ResourceID, err)
	}
	return i.placeAndRecord(ctx, d, p, staged.Path, staged.Checksum, opts)
}

// checkConflict fails when an install record (or stray placement) already
// exists for the pair and overwrite was not requested.
func (i *Installer) checkConflict(p provider.Provider, resourceID string, opts Options) error {
	if opts.Overwrite {
		return nil
	}
	recs, err := loadRecords(p.Dir)
	if err != nil {
		return opErr("install", resource.PhasePlace, p, resourceID, err)
	}
	if recs.find(resourceID) != nil {
		return opErr("install", resource.PhasePlace, p, resourceID,
			fmt.Errorf("%w: %s is already installed (use overwrite to replace)", resource.ErrConflict, resourceID))
	}
	return nil
}

// placeAndRecord is the shared tail of both install paths: place the cached
// content into the provider tree, merge connector settings for MCPs, and
// persist the install record. Any failure past placement unwinds it.
func (i *Installer) placeAndRecord(ctx context.Context, d resource.Descriptor, p provider.Provider, contentPath, checksum string, opts Options) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	method := opts.Method
	if method == "" {
		method = defaultMethod(d.Kind)
	}

	root, err := p.RootFor(d.Kind)
	if err != nil {
		return nil, opErr("install", resource.PhasePlace, p, d.ResourceID, err)
	}
	target := filepath.Join(root, fsutil.Slug(d.ResourceID))

	if fsutil.PathExists(target) {
		if !opts.Overwrite {
			return nil, opErr("install", resource.PhasePlace, p, d.ResourceID,
				fmt.Errorf("%w: %s already exists (use overwrite to replace)", resource.ErrConflict, target))
		}
		if err := removePlaced(target); err != nil {
			return nil, opErr("install", resource.PhasePlace, p, d.ResourceID, err)
		}
	}

	if err := place(contentPath, target, method); err != nil {
		_ = removePlaced(target)
		return nil, opErr("install", resource.PhasePlace, p, d.ResourceID, err)
	}

	merged := false
	if d.Kind == resource.KindMCP {
		manifest, err := resource.ParseMCPManifest(filepath.Join(contentPath, resource.KindMCP.MarkerFile()))
		if err == nil {
			err = mergeConnector(p.SettingsFile(), p.SettingsKey(), manifest)
		}
		if err != nil {
			// The whole operation is all-or-nothing: unwind the placement so
			// the provider is left exactly as it was.
			_ = removePlaced(target)
			return nil, opErr("install", resource.PhaseMerge, p, d.ResourceID, err)
		}
		merged = true
	}

	rec := Record{
		ResourceID:    d.ResourceID,
		Kind:          d.Kind,
		SourceID:      d.SourceID,
		Name:          d.Name,
		InstalledPath: target,
		Method:        method,
		Checksum:      checksum,
		InstalledAt:   time.Now().UTC(),
	}
	if err := upsertRecord(p.Dir, rec); err != nil {
		if merged {
			_ = removeConnector(p.SettingsFile(), p.SettingsKey(), d.Name)
		}
		_ = removePlaced(target)
		return nil, opErr("install", resource.PhasePlace, p, d.ResourceID, err)
	}

	i.log.Info("resource installed",
		zap.String("provider", p.Name()),
		zap.String("resource", d.ResourceID),
		zap.String("method", string(method)),
		zap.String("path", target))
	return &rec, nil
}

// Uninstall removes the placed copy or link and its install record. When
// purgeCache is set, the corresponding cache entry is removed as well.
func (i *Installer) Uninstall(ctx context.Context, p provider.Provider, resourceID string, purgeCache bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	unlock := i.lockPair(p.Dir, resourceID)
	defer unlock()

	recs, err := loadRecords(p.Dir)
	if err != nil {
		return opErr("uninstall", resource.PhasePlace, p, resourceID, err)
	}
	rec := recs.find(resourceID)
	if rec == nil {
		return opErr("uninstall", resource.PhasePlace, p, resourceID,
			fmt.Errorf("%w: %s is not installed", resource.ErrNotFound, resourceID))
	}

	// The settings entry and the placement come out together. The manifest is
	// read before anything is removed so a failed placement removal can merge
	// the entry back, leaving the provider exactly as it was.
	var restoreConnector func()
	if rec.Kind == resource.KindMCP {
		manifest, manifestErr := resource.ParseMCPManifest(filepath.Join(rec.InstalledPath, resource.KindMCP.MarkerFile()))
		if err := removeConnector(p.SettingsFile(), p.SettingsKey(), rec.Name); err != nil {
			return opErr("uninstall", resource.PhaseMerge, p, resourceID, err)
		}
		if manifestErr == nil {
			restoreConnector = func() {
				_ = mergeConnector(p.SettingsFile(), p.SettingsKey(), manifest)
			}
		}
	}
	if err := removePlaced(rec.InstalledPath); err != nil {
		if restoreConnector != nil {
			restoreConnector()
		}
		return opErr("uninstall", resource.PhasePlace, p, resourceID, err)
	}

	key := resource.Key{Kind: rec.Kind, SourceID: rec.SourceID, ResourceID: rec.ResourceID}
	recs.remove(resourceID)
	if err := saveRecords(p.Dir, recs); err != nil {
		return opErr("uninstall", resource.PhasePlace, p, resourceID, err)
	}

	if purgeCache {
		if err := i.cache.Purge(key); err != nil {
			return opErr("uninstall", resource.PhaseCache, p, resourceID, err)
		}
	}

	i.log.Info("resource uninstalled",
		zap.String("provider", p.Name()),
		zap.String("resource", resourceID),
		zap.Bool("purgedCache", purgeCache))
	return nil
}
