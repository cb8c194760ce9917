// Package selectors holds the declarative page profiles that tell the
// extractor where game entries live on a page and how to mark them.
package selectors

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ScopeSelector in ExtraStyles targets the wrapper element itself.
const ScopeSelector = ":scope"

// Profile describes how to locate and mark game entries for one page layout.
// Profiles are immutable once loaded.
type Profile struct {
	// Wrapper selects one element per game (e.g. "li", "tr.game").
	Wrapper string `json:"game_wrapper" yaml:"game_wrapper"`
	// Title selects the title element inside a wrapper.
	Title string `json:"title" yaml:"title"`
	// TitleAttribute, when set, is read instead of the title's text content.
	TitleAttribute string `json:"title_attribute,omitempty" yaml:"title_attribute,omitempty"`
	// Highlight selects the element inside the wrapper that receives the
	// match class. Empty means the wrapper.
	Highlight string `json:"highlight,omitempty" yaml:"highlight,omitempty"`
	// Star selects the element inside the wrapper that receives the star asset.
	Star string `json:"star,omitempty" yaml:"star,omitempty"`
	// ClassType is appended to the match class name ("Game", "Key").
	ClassType string `json:"class_type" yaml:"class_type"`
	// Observer selects the container watched for lazily loaded entries.
	// Empty means the page is scanned once.
	Observer string `json:"observer,omitempty" yaml:"observer,omitempty"`
	// PartialAliases asks for a name-filtered alias request. Not honoured:
	// aliases are fetched before lazily loaded entries exist.
	PartialAliases bool `json:"partial_aliases,omitempty" yaml:"partial_aliases,omitempty"`
	// ExtraStyles maps a selector inside the wrapper (or ScopeSelector) to
	// inline style properties applied on a match.
	ExtraStyles map[string]map[string]string `json:"extra_styles,omitempty" yaml:"extra_styles,omitempty"`

	// Pattern is the page-path expression this profile was loaded under.
	Pattern string `json:"-" yaml:"-"`
}

// Observed reports whether the profile's entries load lazily.
func (p *Profile) Observed() bool { return p.Observer != "" }

// Validate checks the fields every profile needs.
func (p *Profile) Validate() error {
	if p.Wrapper == "" {
		return fmt.Errorf("selectors: profile missing game_wrapper")
	}
	if p.Title == "" {
		return fmt.Errorf("selectors: profile missing title")
	}
	return nil
}

// ProfileList is the ordered set of profiles registered for one pattern.
// It decodes from either a single profile object or an array of them.
type ProfileList []Profile

// UnmarshalJSON accepts `{...}` or `[{...}, ...]`.
func (l *ProfileList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var p Profile
		if err := json.Unmarshal(data, &p); err != nil {
			return err
		}
		*l = ProfileList{p}
		return nil
	}
	var ps []Profile
	if err := json.Unmarshal(data, &ps); err != nil {
		return err
	}
	*l = ps
	return nil
}

// Entry is one pattern and its profiles, in configuration order.
type Entry struct {
	Pattern  string
	Profiles ProfileList
}

// DecodeOrdered decodes the selector configuration object, keeping the key
// order of the document: the first matching pattern wins, so order matters.
func DecodeOrdered(data []byte) ([]Entry, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("selectors: decode: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("selectors: decode: expected object, got %v", tok)
	}

	var entries []Entry
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("selectors: decode key: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("selectors: decode: non-string key %v", tok)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("selectors: decode %q: %w", key, err)
		}
		var list ProfileList
		if err := json.Unmarshal(raw, &list); err != nil {
			// The service reports failures as {"message": "..."}.
			if key == "message" {
				var msg string
				if json.Unmarshal(raw, &msg) == nil {
					return nil, fmt.Errorf("selectors: service: %s", msg)
				}
			}
			return nil, fmt.Errorf("selectors: decode %q: %w", key, err)
		}
		entries = append(entries, Entry{Pattern: key, Profiles: list})
	}

	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("selectors: decode end: %w", err)
	}
	return entries, nil
}
