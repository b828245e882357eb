package cmd

import (
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/rookery-dev/rookery/internal/config"
	"github.com/rookery-dev/rookery/internal/core/backend"
	"github.com/rookery-dev/rookery/internal/core/cache"
	"github.com/rookery-dev/rookery/internal/core/installer"
	"github.com/rookery-dev/rookery/internal/logging"
)

// app wires the core services together once per command invocation. The
// cache store is created here and shared by reference everywhere it is
// needed; there is no implicit global state.
type app struct {
	cfg       *config.Config
	log       *zap.Logger
	cache     *cache.Store
	syncer    *backend.Syncer
	resolver  *backend.Resolver
	installer *installer.Installer
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	log := logging.New(verbose)

	store := cache.New(filepath.Join(cfg.CacheRoot, "store"), log)
	syncer := backend.NewSyncer(filepath.Join(cfg.CacheRoot, "repos"), log)

	var mkt *backend.Marketplace
	if cfg.Marketplace.BaseURL != "" {
		mkt = backend.NewMarketplace(cfg.Marketplace.BaseURL, cfg.Marketplace.Token, log)
	}

	resolver := &backend.Resolver{
		Marketplace: mkt,
		Syncer:      syncer,
		Cache:       store,
		AuthFor: func(string) backend.Auth {
			return backend.Auth{
				Username:   cfg.Git.Username,
				Token:      cfg.Git.Token,
				SSHKeyPath: cfg.Git.SSHKeyPath,
			}
		},
	}

	return &app{
		cfg:       cfg,
		log:       log,
		cache:     store,
		syncer:    syncer,
		resolver:  resolver,
		installer: installer.New(store, log),
	}, nil
}

// close flushes buffered log output.
func (a *app) close() { _ = a.log.Sync() }

// resolve maps a reference argument to a backend, accepting the "cache"
// and "marketplace" keywords as shorthand for those backends.
func (a *app) resolve(refStr string) (*backend.Resolved, error) {
	switch refStr {
	case "cache":
		return a.resolver.Resolve("cache:")
	case "marketplace", "mkt":
		if a.resolver.Marketplace == nil {
			return nil, fmt.Errorf("no marketplace configured; set marketplace.base_url")
		}
		return &backend.Resolved{Backend: a.resolver.Marketplace}, nil
	}
	return a.resolver.Resolve(refStr)
}
