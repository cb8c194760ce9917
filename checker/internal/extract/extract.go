// Package extract walks a parsed page with the active selector profiles
// and produces the candidate game entries for one scan.
//
// Extraction is stateless: every call builds a fresh candidate list.
package extract

import (
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/hazyhaar/steamcheck/checker/internal/selectors"
	"github.com/hazyhaar/steamcheck/checker/internal/title"
)

// Candidate is one game entry found on the page during a single scan.
type Candidate struct {
	// Name is the normalized title, the only matching key.
	Name string
	// Raw is the title as read from the page.
	Raw string
	// Wrapper is the entry's wrapper element in the scanned document.
	Wrapper *goquery.Selection
	// XPath locates the wrapper in the live page the document came from.
	XPath string
	// Profile is the profile that produced this entry.
	Profile *selectors.Profile
}

// Extract returns every candidate the profiles find in doc. Wrappers with
// no title element or an empty title are skipped. A profile that finds no
// wrapper is logged and contributes nothing.
func Extract(doc *goquery.Document, profiles []selectors.Profile, logger *slog.Logger) []Candidate {
	if logger == nil {
		logger = slog.Default()
	}

	var out []Candidate
	for i := range profiles {
		p := &profiles[i]

		wrappers := doc.Find(p.Wrapper)
		if wrappers.Length() == 0 {
			logger.Info("extract: no games found on this page",
				"wrapper", p.Wrapper, "class_type", p.ClassType)
			continue
		}

		wrappers.Each(func(_ int, w *goquery.Selection) {
			raw, ok := readTitle(w, p)
			if !ok {
				return
			}
			name := title.Normalize(raw)
			if name == "" {
				return
			}
			out = append(out, Candidate{
				Name:    name,
				Raw:     raw,
				Wrapper: w,
				XPath:   XPath(w.Get(0)),
				Profile: p,
			})
		})
	}

	return out
}

// Names lists the candidates' normalized names in page order.
func Names(cands []Candidate) []string {
	names := make([]string, len(cands))
	for i, c := range cands {
		names[i] = c.Name
	}
	return names
}

func readTitle(w *goquery.Selection, p *selectors.Profile) (string, bool) {
	el := w.Find(p.Title).First()
	if el.Length() == 0 {
		return "", false
	}

	var raw string
	if p.TitleAttribute != "" {
		v, exists := el.Attr(p.TitleAttribute)
		if !exists {
			return "", false
		}
		raw = v
	} else {
		raw = el.Text()
	}

	raw = strings.TrimSpace(raw)
	return raw, raw != ""
}
