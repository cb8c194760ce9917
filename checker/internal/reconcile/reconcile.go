// Package reconcile keeps the per-category normalized name sets in the
// store, recomputing them only when the remote data they derive from has
// changed. The gate is a 32-bit rolling hash over the remote list.
package reconcile

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
	"unicode/utf16"

	"github.com/hazyhaar/steamcheck/checker/internal/remote"
	"github.com/hazyhaar/steamcheck/checker/internal/store"
	"github.com/hazyhaar/steamcheck/checker/internal/title"
)

// KV is the subset of the key-value store the reconciler needs.
type KV interface {
	Get(ctx context.Context, keys ...string) (map[string]json.RawMessage, error)
	Set(ctx context.Context, values map[string]any) error
	Remove(ctx context.Context, keys ...string) error
}

// Category names the two persisted name sets and their keys.
type Category struct {
	Name     string
	HashKey  string
	NamesKey string
}

var (
	Owned    = Category{Name: "owned", HashKey: store.KeyOwnedHash, NamesKey: store.KeyOwnedShortNames}
	Wishlist = Category{Name: "wishlist", HashKey: store.KeyWishlistHash, NamesKey: store.KeyWishlistShortNames}
)

// Hash is the rolling hash of the comma-joined list: seed 0, then
// h = h*31 + unit for every UTF-16 code unit, wrapping at 32 bits.
// Hash(nil) == 0.
func Hash(list []string) int32 {
	var h int32
	for _, u := range utf16.Encode([]rune(strings.Join(list, ","))) {
		h = h*31 + int32(u)
	}
	return h
}

// Result is one category's reconciled name set.
type Result struct {
	Names *title.Set
	Hash  int32
	// Hit reports that Names was loaded from the store.
	Hit bool
}

// Reconciler reads and writes cache records.
type Reconciler struct {
	kv     KV
	logger *slog.Logger
}

// New creates a Reconciler over kv.
func New(kv KV, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{kv: kv, logger: logger}
}

// WipeLegacy removes every game-data key if any key of the first storage
// schema is present. It reports whether a wipe happened.
func (r *Reconciler) WipeLegacy(ctx context.Context) (bool, error) {
	found, err := r.kv.Get(ctx, store.LegacyKeys...)
	if err != nil {
		return false, fmt.Errorf("reconcile: read legacy keys: %w", err)
	}
	if len(found) == 0 {
		return false, nil
	}
	if err := r.kv.Remove(ctx, store.GameDataKeys...); err != nil {
		return false, fmt.Errorf("reconcile: wipe: %w", err)
	}
	r.logger.Info("reconcile: legacy data found, cache wiped")
	return true, nil
}

// Reconcile returns the name set for cat. source is the remote list the
// hash is computed over; derive builds the normalized names on a miss and
// is not called on a hit. When persist is false a miss is not written back.
func (r *Reconciler) Reconcile(ctx context.Context, cat Category, source []string, derive func() []string, persist bool) (Result, error) {
	start := time.Now()
	h := Hash(source)

	stored, err := r.kv.Get(ctx, cat.HashKey, cat.NamesKey)
	if err != nil {
		return Result{}, fmt.Errorf("reconcile: %s: read: %w", cat.Name, err)
	}
	if names, ok := cached(stored, cat, h); ok {
		r.logger.Debug("reconcile: names loaded from cache",
			"category", cat.Name, "names", len(names), "elapsed", time.Since(start))
		return Result{Names: title.SetOf(names...), Hash: h, Hit: true}, nil
	}

	res := Compute(source, derive)
	if !persist {
		r.logger.Debug("reconcile: names computed, not persisted", "category", cat.Name)
		return res, nil
	}
	err = r.kv.Set(ctx, map[string]any{
		cat.HashKey:  res.Hash,
		cat.NamesKey: nonNil(res.Names.Names()),
	})
	if err != nil {
		return Result{}, fmt.Errorf("reconcile: %s: persist: %w", cat.Name, err)
	}
	r.logger.Info("reconcile: names saved",
		"category", cat.Name, "names", res.Names.Len(), "elapsed", time.Since(start))
	return res, nil
}

// Compute builds a Result without touching the store.
func Compute(source []string, derive func() []string) Result {
	return Result{Names: title.SetOf(derive()...), Hash: Hash(source)}
}

// OwnedGames reconciles the owned category. The hash covers the game
// names in remote order.
func (r *Reconciler) OwnedGames(ctx context.Context, games []remote.Game) (Result, error) {
	src := OwnedSource(games)
	return r.Reconcile(ctx, Owned, src, func() []string { return OwnedNames(games) }, true)
}

// WishlistIDs reconciles the wishlist category. The hash covers the raw
// ids; names come from the app list. With an empty app list a non-empty
// wishlist cannot be named, so a miss is not persisted.
func (r *Reconciler) WishlistIDs(ctx context.Context, ids []string, apps []remote.App) (Result, error) {
	persist := len(ids) == 0 || len(apps) > 0
	return r.Reconcile(ctx, Wishlist, ids, func() []string { return WishlistNames(ids, apps) }, persist)
}

// OwnedSource lists the raw game names the owned hash covers.
func OwnedSource(games []remote.Game) []string {
	src := make([]string, len(games))
	for i, g := range games {
		src[i] = g.Name
	}
	return src
}

// OwnedNames normalizes the owned game names.
func OwnedNames(games []remote.Game) []string {
	names := make([]string, 0, len(games))
	for _, g := range games {
		if n := title.Normalize(g.Name); n != "" {
			names = append(names, n)
		}
	}
	return names
}

// WishlistNames names each wishlist id through the app list. Ids missing
// from the list are dropped.
func WishlistNames(ids []string, apps []remote.App) []string {
	byID := make(map[string]string, len(apps))
	for _, a := range apps {
		k := strconv.Itoa(a.AppID)
		if _, dup := byID[k]; !dup {
			byID[k] = a.Name
		}
	}

	names := make([]string, 0, len(ids))
	for _, id := range ids {
		name, ok := byID[id]
		if !ok {
			continue
		}
		if n := title.Normalize(name); n != "" {
			names = append(names, n)
		}
	}
	return names
}

func cached(stored map[string]json.RawMessage, cat Category, h int32) ([]string, bool) {
	rawHash, ok := stored[cat.HashKey]
	if !ok {
		return nil, false
	}
	var got int32
	if err := json.Unmarshal(rawHash, &got); err != nil || got != h {
		return nil, false
	}
	rawNames, ok := stored[cat.NamesKey]
	if !ok {
		return nil, false
	}
	var names []string
	if err := json.Unmarshal(rawNames, &names); err != nil {
		return nil, false
	}
	return names, true
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
