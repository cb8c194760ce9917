// Package alias merges externally supplied alternate titles into the
// library name sets.
package alias

import (
	"sort"
	"strconv"

	"github.com/hazyhaar/steamcheck/checker/internal/remote"
	"github.com/hazyhaar/steamcheck/checker/internal/title"
)

// ResolveOwned returns the aliases of every alias id that matches an owned
// game. Ids are compared numerically; an alias key that is not a number
// never matches. Each key contributes at most once.
func ResolveOwned(games []remote.Game, aliases remote.AliasMap) *title.Set {
	return resolve(aliases, func(key string) bool {
		id, err := strconv.Atoi(key)
		if err != nil {
			return false
		}
		for _, g := range games {
			if g.AppID == id {
				return true
			}
		}
		return false
	})
}

// ResolveWishlist returns the aliases of every alias id present in the
// wishlist. Ids are compared as raw strings.
func ResolveWishlist(ids []string, aliases remote.AliasMap) *title.Set {
	return resolve(aliases, func(key string) bool {
		for _, id := range ids {
			if id == key {
				return true
			}
		}
		return false
	})
}

func resolve(aliases remote.AliasMap, present func(key string) bool) *title.Set {
	out := title.NewSet()

	keys := make([]string, 0, len(aliases))
	for k := range aliases {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if !present(k) {
			continue
		}
		for _, a := range aliases[k] {
			out.Add(title.Normalize(a))
		}
	}
	return out
}
