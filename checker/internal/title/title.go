// Package title canonicalizes game titles into the single key used for
// matching page entries against library name sets.
package title

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

var lower = cases.Lower(language.Und)

// Normalize lower-cases s, folds accents, drops every rune that is not a
// letter, digit or whitespace, collapses whitespace runs to one space and
// trims. Normalize(Normalize(s)) == Normalize(s).
func Normalize(s string) string {
	decomposed := norm.NFD.String(lower.String(s))

	var sb strings.Builder
	sb.Grow(len(decomposed))
	pendingSpace := false
	for _, r := range decomposed {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if pendingSpace && sb.Len() > 0 {
				sb.WriteByte(' ')
			}
			pendingSpace = false
			sb.WriteRune(r)
		case unicode.IsSpace(r):
			pendingSpace = true
		}
		// Marks (accents) and punctuation are dropped.
	}
	return norm.NFC.String(sb.String())
}

// Set is a set of normalized names that remembers insertion order so it can
// be persisted and reloaded without reshuffling.
type Set struct {
	index map[string]struct{}
	order []string
}

// NewSet returns an empty Set.
func NewSet() *Set {
	return &Set{index: make(map[string]struct{})}
}

// SetOf builds a Set from already-normalized names, keeping the first
// occurrence of each.
func SetOf(names ...string) *Set {
	s := NewSet()
	for _, n := range names {
		s.Add(n)
	}
	return s
}

// Add inserts name and reports whether it was new. Empty names are ignored.
func (s *Set) Add(name string) bool {
	if name == "" {
		return false
	}
	if _, ok := s.index[name]; ok {
		return false
	}
	s.index[name] = struct{}{}
	s.order = append(s.order, name)
	return true
}

// Has reports membership. A nil Set contains nothing.
func (s *Set) Has(name string) bool {
	if s == nil {
		return false
	}
	_, ok := s.index[name]
	return ok
}

// Len returns the number of names.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.order)
}

// Names returns a copy of the names in insertion order.
func (s *Set) Names() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Union adds every name of other to s and returns the number added.
func (s *Set) Union(other *Set) int {
	if other == nil {
		return 0
	}
	added := 0
	for _, n := range other.order {
		if s.Add(n) {
			added++
		}
	}
	return added
}
