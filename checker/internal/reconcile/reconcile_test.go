package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/steamcheck/checker/internal/remote"
	"github.com/hazyhaar/steamcheck/checker/internal/store"
)

func TestHash(t *testing.T) {
	if got := Hash(nil); got != 0 {
		t.Errorf("Hash(nil) = %d, want 0", got)
	}
	if got := Hash([]string{}); got != 0 {
		t.Errorf("Hash([]) = %d, want 0", got)
	}
	if got := Hash([]string{"ab"}); got != 3105 {
		t.Errorf("Hash(ab) = %d, want 3105", got)
	}
	if got := Hash([]string{"hello world"}); got != 1794106052 {
		t.Errorf("Hash(hello world) = %d, want 1794106052", got)
	}
	// Wraps to the minimum int32.
	if got := Hash([]string{"polygenelubricants"}); got != -2147483648 {
		t.Errorf("Hash(polygenelubricants) = %d", got)
	}
}

func TestHashOrderSensitive(t *testing.T) {
	ab := Hash([]string{"a", "b"})
	ba := Hash([]string{"b", "a"})
	if ab != 94679 || ba != 95639 {
		t.Errorf("got %d %d, want 94679 95639", ab, ba)
	}
	if Hash([]string{"a", "b"}) != ab {
		t.Error("hash not deterministic")
	}
}

func TestCacheHit(t *testing.T) {
	s := store.OpenMemory(t)
	ctx := context.Background()
	source := []string{"Half-Life 2", "Portal"}

	// A persisted record whose names differ from what derive would build:
	// a hit must return them untouched.
	_ = s.Set(ctx, map[string]any{
		store.KeyOwnedHash:       Hash(source),
		store.KeyOwnedShortNames: []string{"cached one", "cached two"},
	})

	r := New(s, nil)
	res, err := r.Reconcile(ctx, Owned, source, func() []string {
		t.Error("derive called on a cache hit")
		return nil
	}, true)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if !res.Hit {
		t.Error("expected hit")
	}
	names := res.Names.Names()
	if len(names) != 2 || names[0] != "cached one" || names[1] != "cached two" {
		t.Errorf("names: %v", names)
	}
}

func TestCacheMiss(t *testing.T) {
	s := store.OpenMemory(t)
	ctx := context.Background()
	_ = s.Set(ctx, map[string]any{
		store.KeyOwnedHash:       12345,
		store.KeyOwnedShortNames: []string{"stale"},
	})

	games := []remote.Game{{AppID: 220, Name: "Half-Life 2"}, {AppID: 400, Name: "Portal"}}
	r := New(s, nil)
	res, err := r.OwnedGames(ctx, games)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if res.Hit {
		t.Error("expected miss")
	}
	if !res.Names.Has("halflife 2") || !res.Names.Has("portal") || res.Names.Has("stale") {
		t.Errorf("names: %v", res.Names.Names())
	}

	got, _ := s.Get(ctx, store.KeyOwnedHash, store.KeyOwnedShortNames)
	var h int32
	_ = json.Unmarshal(got[store.KeyOwnedHash], &h)
	if h != Hash([]string{"Half-Life 2", "Portal"}) {
		t.Errorf("persisted hash %d", h)
	}
	var names []string
	_ = json.Unmarshal(got[store.KeyOwnedShortNames], &names)
	if len(names) != 2 || names[0] != "halflife 2" {
		t.Errorf("persisted names %v", names)
	}

	// Second run hits.
	res, err = r.OwnedGames(ctx, games)
	if err != nil || !res.Hit {
		t.Errorf("second run: hit=%v err=%v", res.Hit, err)
	}
}

func TestMissInvalidatesOneCategory(t *testing.T) {
	s := store.OpenMemory(t)
	ctx := context.Background()
	ids := []string{"620"}
	_ = s.Set(ctx, map[string]any{
		store.KeyOwnedHash:          1,
		store.KeyOwnedShortNames:    []string{"old"},
		store.KeyWishlistHash:       Hash(ids),
		store.KeyWishlistShortNames: []string{"portal 2"},
	})

	r := New(s, nil)
	if _, err := r.OwnedGames(ctx, []remote.Game{{AppID: 70, Name: "Half-Life"}}); err != nil {
		t.Fatal(err)
	}
	res, err := r.WishlistIDs(ctx, ids, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Hit || !res.Names.Has("portal 2") {
		t.Errorf("wishlist should still hit: %+v %v", res, res.Names.Names())
	}
}

func TestWishlistNames(t *testing.T) {
	apps := []remote.App{{AppID: 620, Name: "Portal 2"}, {AppID: 730, Name: "Counter-Strike 2"}}
	names := WishlistNames([]string{"730", "999", "620"}, apps)
	if len(names) != 2 || names[0] != "counterstrike 2" || names[1] != "portal 2" {
		t.Errorf("names: %v", names)
	}
}

func TestWishlistWithoutAppListNotPersisted(t *testing.T) {
	s := store.OpenMemory(t)
	ctx := context.Background()
	r := New(s, nil)

	res, err := r.WishlistIDs(ctx, []string{"620"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Names.Len() != 0 {
		t.Errorf("names: %v", res.Names.Names())
	}
	keys, _ := s.Keys(ctx)
	if len(keys) != 0 {
		t.Errorf("nothing should be persisted, got %v", keys)
	}
}

func TestWipeLegacy(t *testing.T) {
	s := store.OpenMemory(t)
	ctx := context.Background()
	_ = s.Set(ctx, map[string]any{
		store.KeyNumGames:        10,
		store.KeyOwnedHash:       1,
		store.KeyOwnedShortNames: []string{"x"},
		store.KeyWishlistHash:    2,
		store.KeySteamID:         "gabe",
	})

	r := New(s, nil)
	wiped, err := r.WipeLegacy(ctx)
	if err != nil || !wiped {
		t.Fatalf("wipe: %v %v", wiped, err)
	}
	keys, _ := s.Keys(ctx)
	if len(keys) != 1 || keys[0] != store.KeySteamID {
		t.Errorf("keys after wipe: %v", keys)
	}

	wiped, err = r.WipeLegacy(ctx)
	if err != nil || wiped {
		t.Errorf("second wipe: %v %v", wiped, err)
	}
}

type failingKV struct{ err error }

func (f failingKV) Get(context.Context, ...string) (map[string]json.RawMessage, error) {
	return nil, f.err
}
func (f failingKV) Set(context.Context, map[string]any) error { return f.err }
func (f failingKV) Remove(context.Context, ...string) error  { return f.err }

func TestStoreErrorPropagates(t *testing.T) {
	r := New(failingKV{err: store.ErrClosed}, nil)
	ctx := context.Background()

	if _, err := r.OwnedGames(ctx, nil); !errors.Is(err, store.ErrClosed) {
		t.Errorf("reconcile: got %v, want ErrClosed", err)
	}
	if _, err := r.WipeLegacy(ctx); !errors.Is(err, store.ErrClosed) {
		t.Errorf("wipe: got %v, want ErrClosed", err)
	}
}

func TestCompute(t *testing.T) {
	res := Compute([]string{"Portal"}, func() []string { return []string{"portal", "portal"} })
	if res.Hit || res.Names.Len() != 1 || res.Hash != Hash([]string{"Portal"}) {
		t.Errorf("compute: %+v", res)
	}
}
