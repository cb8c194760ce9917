// Package highlight decides which candidates are owned or wished and marks
// them. Marking only ever adds classes, styles and the star asset.
package highlight

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/hazyhaar/steamcheck/checker/internal/extract"
	"github.com/hazyhaar/steamcheck/checker/internal/selectors"
	"github.com/hazyhaar/steamcheck/checker/internal/title"
)

//go:embed star.svg
var defaultStar string

// StarClass is carried by the star asset's root element.
const StarClass = "steamchecker-star"

// DefaultClassPrefix prefixes every match class.
const DefaultClassPrefix = "steamchecker-"

// DefaultStar returns the embedded star asset markup.
func DefaultStar() string { return strings.TrimSpace(defaultStar) }

// LoadStar reads a star asset from path, or returns the embedded default
// when path is empty.
func LoadStar(path string) (string, error) {
	if path == "" {
		return DefaultStar(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("highlight: read star asset: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Mark is the marking decided for one matched candidate.
type Mark struct {
	Name   string `json:"name"`
	XPath  string `json:"xpath"`
	Owned  bool   `json:"owned"`
	Wished bool   `json:"wished"`
	// Classes go on the highlight target.
	Classes []string `json:"classes"`
	// Highlight selects the highlight target inside the wrapper; empty
	// means the wrapper itself.
	Highlight string `json:"highlight,omitempty"`
	// Star selects the star container; set only on owned matches.
	Star   string                       `json:"star,omitempty"`
	Styles map[string]map[string]string `json:"styles,omitempty"`

	Wrapper *goquery.Selection `json:"-"`
}

// Match tests every candidate against both sets independently and
// returns a Mark for each candidate in at least one of them.
func Match(cands []extract.Candidate, owned, wished *title.Set, classPrefix string) []Mark {
	var marks []Mark
	for _, c := range cands {
		isOwned, isWished := owned.Has(c.Name), wished.Has(c.Name)
		if !isOwned && !isWished {
			continue
		}

		p := c.Profile
		if p == nil {
			p = &selectors.Profile{}
		}
		m := Mark{
			Name:      c.Name,
			XPath:     c.XPath,
			Owned:     isOwned,
			Wished:    isWished,
			Highlight: p.Highlight,
			Styles:    p.ExtraStyles,
			Wrapper:   c.Wrapper,
		}
		if isOwned {
			m.Classes = append(m.Classes, classPrefix+"owned"+p.ClassType)
			m.Star = p.Star
		}
		if isWished {
			m.Classes = append(m.Classes, classPrefix+"wished"+p.ClassType)
		}
		marks = append(marks, m)
	}
	return marks
}

// ApplyDocument marks the wrappers of a parsed document and returns how
// many marks were applied. An empty star disables the star asset. A mark
// whose highlight target is missing is logged and skipped.
func ApplyDocument(marks []Mark, star string, logger *slog.Logger) int {
	if logger == nil {
		logger = slog.Default()
	}

	applied := 0
	for _, m := range marks {
		w := m.Wrapper
		if w == nil || w.Length() == 0 {
			continue
		}

		target := w
		if m.Highlight != "" {
			target = w.Find(m.Highlight).First()
			if target.Length() == 0 {
				logger.Info("highlight: selector for highlight not found",
					"name", m.Name, "highlight", m.Highlight)
				continue
			}
		}
		for _, c := range m.Classes {
			target.AddClass(c)
		}

		if m.Star != "" && star != "" {
			box := w.Find(m.Star).First()
			if box.Length() > 0 && box.Find("."+StarClass).Length() == 0 {
				box.AppendHtml(star)
			}
		}

		for sel, props := range m.Styles {
			els := w
			if sel != selectors.ScopeSelector {
				els = w.Find(sel)
			}
			els.Each(func(_ int, el *goquery.Selection) {
				style, _ := el.Attr("style")
				el.SetAttr("style", MergeStyle(style, props))
			})
		}
		applied++
	}
	return applied
}

// MergeStyle overlays props on an inline style attribute value. Existing
// properties keep their position; new ones are appended in name order.
func MergeStyle(style string, props map[string]string) string {
	type decl struct{ name, value string }
	var decls []decl
	index := make(map[string]int)

	for _, part := range strings.Split(style, ";") {
		name, value, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		index[name] = len(decls)
		decls = append(decls, decl{name, strings.TrimSpace(value)})
	}

	names := make([]string, 0, len(props))
	for n := range props {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		key := cssName(n)
		if i, ok := index[key]; ok {
			decls[i].value = props[n]
			continue
		}
		index[key] = len(decls)
		decls = append(decls, decl{key, props[n]})
	}

	var sb strings.Builder
	for i, d := range decls {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(d.name)
		sb.WriteString(": ")
		sb.WriteString(d.value)
		sb.WriteByte(';')
	}
	return sb.String()
}

// cssName turns a script-style property name ("backgroundColor") into its
// CSS form ("background-color"). CSS names pass through.
func cssName(n string) string {
	var sb strings.Builder
	for _, r := range n {
		if r >= 'A' && r <= 'Z' {
			sb.WriteByte('-')
			sb.WriteRune(r + ('a' - 'A'))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
