// Package checker marks the games of a content page that the saved account
// owns or has wishlisted.
//
// A Checker is constructed once per process and processes pages. For each
// page it resolves the selector profiles, fetches the library data
// concurrently, reconciles the cached name sets, merges aliases and marks
// the matching entries. Profiles watching a lazily loading container keep
// rescanning until the Session is closed.
package checker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hazyhaar/steamcheck/checker/internal/alias"
	"github.com/hazyhaar/steamcheck/checker/internal/browser"
	"github.com/hazyhaar/steamcheck/checker/internal/highlight"
	"github.com/hazyhaar/steamcheck/checker/internal/reconcile"
	"github.com/hazyhaar/steamcheck/checker/internal/remote"
	"github.com/hazyhaar/steamcheck/checker/internal/selectors"
	"github.com/hazyhaar/steamcheck/checker/internal/store"
	"github.com/hazyhaar/steamcheck/checker/internal/title"
)

// KV is the persistent key-value store.
type KV interface {
	Get(ctx context.Context, keys ...string) (map[string]json.RawMessage, error)
	Set(ctx context.Context, values map[string]any) error
	Remove(ctx context.Context, keys ...string) error
}

// Remote is the library data services.
type Remote interface {
	OwnedGames(ctx context.Context, id remote.Identity) (*remote.OwnedGames, error)
	Wishlist(ctx context.Context, id remote.Identity) ([]string, error)
	Aliases(ctx context.Context, req remote.AliasRequest) (remote.AliasMap, error)
	AppList(ctx context.Context) ([]remote.App, error)
}

// Deps are the collaborators of a Checker.
type Deps struct {
	Store  KV
	Remote Remote
	// Selectors supplies the page profiles. Nil uses Remote when it
	// implements selectors.Source.
	Selectors selectors.Source
	Logger    *slog.Logger
}

// Checker processes pages.
type Checker struct {
	cfg      *Config
	kv       KV
	remote   Remote
	source   selectors.Source
	registry *selectors.Registry
	recon    *reconcile.Reconciler
	star     string
	logger   *slog.Logger
	closers  []func() error

	browserMu sync.Mutex
	browser   *browser.Manager
}

// New creates a Checker.
func New(cfg *Config, deps Deps) (*Checker, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.defaults()
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Store == nil || deps.Remote == nil {
		return nil, fmt.Errorf("checker: store and remote are required")
	}

	src := deps.Selectors
	if src == nil {
		s, ok := deps.Remote.(selectors.Source)
		if !ok {
			return nil, fmt.Errorf("checker: no selector source")
		}
		src = s
	}

	reg, err := selectors.NewRegistry(cfg.RegistryMemo, logger)
	if err != nil {
		return nil, err
	}

	star := ""
	if !cfg.Marks.NoStar {
		star, err = highlight.LoadStar(cfg.Marks.StarPath)
		if err != nil {
			return nil, err
		}
	}

	return &Checker{
		cfg:      cfg,
		kv:       deps.Store,
		remote:   deps.Remote,
		source:   src,
		registry: reg,
		recon:    reconcile.New(deps.Store, logger),
		star:     star,
		logger:   logger,
	}, nil
}

// Open builds a Checker on the SQLite store at cfg.DBPath and the remote
// services at cfg.Remote. Close releases the store. The caller must
// blank-import modernc.org/sqlite.
func Open(cfg *Config, logger *slog.Logger) (*Checker, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	opts := []remote.Option{remote.WithLogger(logger), remote.WithTimeout(cfg.Remote.Timeout)}
	if cfg.Remote.UserAgent != "" {
		opts = append(opts, remote.WithUserAgent(cfg.Remote.UserAgent))
	}
	rc := remote.New(cfg.Remote.BaseURL, opts...)

	deps := Deps{Store: st, Remote: rc, Logger: logger}
	if cfg.SelectorsFile != "" {
		src, err := selectors.LoadFile(cfg.SelectorsFile)
		if err != nil {
			st.Close()
			return nil, err
		}
		deps.Selectors = src
	}

	c, err := New(cfg, deps)
	if err != nil {
		st.Close()
		return nil, err
	}
	c.closers = append(c.closers, st.Close)
	return c, nil
}

// Close releases what Open and ProcessURL acquired.
func (c *Checker) Close() error {
	var first error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	c.closers = nil
	return first
}

// Process runs the pipeline for page. A page without selectors or an
// account without a saved identity yields an inert Session, not an error.
// Errors are reserved for store failures on the identity read.
func (c *Checker) Process(ctx context.Context, page Page) (*Session, error) {
	start := time.Now()
	sess := newSession(ctx, c, page)
	log := sess.logger

	if err := c.registry.Load(ctx, c.source); err != nil {
		log.Warn("checker: selectors unavailable", "error", err)
	}
	pattern, profiles, ok := c.registry.Match(page.Path())
	if !ok {
		log.Info("checker: not scanning on this page", "path", page.Path())
		return sess.inert(ReasonNoSelectors), nil
	}
	sess.report.Pattern = pattern

	id, reason, err := c.Identity(ctx)
	if err != nil {
		sess.Close()
		return nil, err
	}
	if reason != "" {
		log.Info("checker: "+reason, "path", page.Path())
		return sess.inert(reason), nil
	}

	snap := c.fetch(ctx, id, log)
	owned, wished := c.nameSets(ctx, snap, log)
	sess.owned, sess.wished = owned, wished
	sess.report.Owned, sess.report.Wished = owned.Len(), wished.Len()
	log.Info("checker: library ready",
		"owned", owned.Len(), "wished", wished.Len(), "elapsed", time.Since(start))

	sess.start(profiles)
	log.Info("checker: page processed", "pattern", pattern, "elapsed", time.Since(start))
	return sess, nil
}

// fetch issues the four remote calls concurrently. A failed call is logged
// and leaves its part of the snapshot empty.
func (c *Checker) fetch(ctx context.Context, id remote.Identity, log *slog.Logger) remote.Snapshot {
	var snap remote.Snapshot
	g, gctx := errgroup.WithContext(ctx)

	timed := func(what string, fn func() error) {
		g.Go(func() error {
			start := time.Now()
			if err := fn(); err != nil {
				log.Warn("checker: fetch failed", "what", what, "error", err)
				return nil
			}
			log.Debug("checker: fetched", "what", what, "elapsed", time.Since(start))
			return nil
		})
	}

	timed("owned games", func() error {
		owned, err := c.remote.OwnedGames(gctx, id)
		if err != nil {
			return err
		}
		snap.Owned = *owned
		return nil
	})
	timed("wishlist", func() error {
		ids, err := c.remote.Wishlist(gctx, id)
		snap.Wishlist = ids
		return err
	})
	timed("aliases", func() error {
		// Filtered ("some") requests would miss entries that load after
		// the request is sent, so aliases are always fetched in full.
		a, err := c.remote.Aliases(gctx, remote.AliasRequest{Type: remote.AliasesAll})
		snap.Aliases = a
		return err
	})
	timed("app list", func() error {
		apps, err := c.remote.AppList(gctx)
		snap.AppList = apps
		return err
	})

	_ = g.Wait()
	return snap
}

// nameSets reconciles both categories concurrently and merges aliases. A
// store failure is logged and the category is recomputed in memory.
func (c *Checker) nameSets(ctx context.Context, snap remote.Snapshot, log *slog.Logger) (owned, wished *title.Set) {
	if _, err := c.recon.WipeLegacy(ctx); err != nil {
		log.Warn("checker: legacy wipe failed", "error", err)
	}

	var ownedRes, wishedRes reconcile.Result
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		res, err := c.recon.OwnedGames(gctx, snap.Owned.Games)
		if err != nil {
			log.Warn("checker: owned cache unavailable, recomputing", "error", err)
			res = reconcile.Compute(reconcile.OwnedSource(snap.Owned.Games), func() []string {
				return reconcile.OwnedNames(snap.Owned.Games)
			})
		}
		ownedRes = res
		return nil
	})
	g.Go(func() error {
		res, err := c.recon.WishlistIDs(gctx, snap.Wishlist, snap.AppList)
		if err != nil {
			log.Warn("checker: wishlist cache unavailable, recomputing", "error", err)
			res = reconcile.Compute(snap.Wishlist, func() []string {
				return reconcile.WishlistNames(snap.Wishlist, snap.AppList)
			})
		}
		wishedRes = res
		return nil
	})
	_ = g.Wait()

	owned, wished = ownedRes.Names, wishedRes.Names
	ownedAliases := owned.Union(alias.ResolveOwned(snap.Owned.Games, snap.Aliases))
	wishedAliases := wished.Union(alias.ResolveWishlist(snap.Wishlist, snap.Aliases))
	log.Debug("checker: aliases loaded", "owned", ownedAliases, "wished", wishedAliases)
	return owned, wished
}
