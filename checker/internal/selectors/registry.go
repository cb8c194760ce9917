package selectors

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Source supplies the selector configuration.
type Source interface {
	Selectors(ctx context.Context) ([]Entry, error)
}

// StaticSource serves a fixed configuration.
type StaticSource []Entry

// Selectors returns the fixed entries.
func (s StaticSource) Selectors(context.Context) ([]Entry, error) { return s, nil }

// LoadFile reads a selector configuration document from disk.
func LoadFile(path string) (StaticSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("selectors: read %s: %w", path, err)
	}
	entries, err := DecodeOrdered(data)
	if err != nil {
		return nil, err
	}
	return StaticSource(entries), nil
}

type compiled struct {
	pattern  string
	re       *regexp.Regexp
	profiles []Profile
}

// Registry resolves a page path to the profiles registered for the first
// matching pattern. Configuration is loaded once and never changes after.
type Registry struct {
	mu      sync.RWMutex
	loaded  bool
	entries []compiled
	memo    *lru.Cache[string, int]
	logger  *slog.Logger
}

// NewRegistry creates an empty Registry. memoSize bounds the number of
// page paths whose resolution is remembered.
func NewRegistry(memoSize int, logger *slog.Logger) (*Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if memoSize <= 0 {
		memoSize = 256
	}
	memo, err := lru.New[string, int](memoSize)
	if err != nil {
		return nil, fmt.Errorf("selectors: memo: %w", err)
	}
	return &Registry{memo: memo, logger: logger}, nil
}

// Load fetches the configuration from src. Only the first call fetches;
// later calls are no-ops even if the first one failed, leaving the registry
// inert for the rest of the process.
func (r *Registry) Load(ctx context.Context, src Source) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.loaded {
		return nil
	}
	r.loaded = true

	entries, err := src.Selectors(ctx)
	if err != nil {
		return fmt.Errorf("selectors: load: %w", err)
	}

	for _, e := range entries {
		re, err := regexp.Compile(e.Pattern)
		if err != nil {
			r.logger.Warn("selectors: skipping pattern", "pattern", e.Pattern, "error", err)
			continue
		}
		profiles := make([]Profile, 0, len(e.Profiles))
		for _, p := range e.Profiles {
			if err := p.Validate(); err != nil {
				r.logger.Warn("selectors: skipping profile", "pattern", e.Pattern, "error", err)
				continue
			}
			p.Pattern = e.Pattern
			profiles = append(profiles, p)
		}
		r.entries = append(r.entries, compiled{pattern: e.Pattern, re: re, profiles: profiles})
	}

	r.logger.Info("selectors: fetched game selectors", "patterns", len(r.entries))
	return nil
}

// Loaded reports whether Load has run.
func (r *Registry) Loaded() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loaded
}

// Match returns the pattern and profiles for path. ok is false when no
// pattern matches; that is an expected outcome on unsupported pages.
func (r *Registry) Match(path string) (pattern string, profiles []Profile, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	idx, hit := r.memo.Get(path)
	if !hit {
		idx = -1
		for i, e := range r.entries {
			if e.re.MatchString(path) {
				idx = i
				break
			}
		}
		r.memo.Add(path, idx)
	}
	if idx < 0 {
		return "", nil, false
	}

	e := r.entries[idx]
	out := make([]Profile, len(e.profiles))
	copy(out, e.profiles)
	return e.pattern, out, true
}
