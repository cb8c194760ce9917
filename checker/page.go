package checker

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/PuerkitoBio/goquery"

	"github.com/hazyhaar/steamcheck/checker/internal/highlight"
	"github.com/hazyhaar/steamcheck/checker/internal/schedule"
)

// Page is a content page the checker scans and marks.
type Page interface {
	// Path is matched against the selector patterns.
	Path() string
	// Document returns the page's current content.
	Document(ctx context.Context) (*goquery.Document, error)
	// Apply marks the page and returns how many marks were applied.
	Apply(ctx context.Context, marks []highlight.Mark, star string) (int, error)
}

// LivePage is a Page whose content changes after load. Profiles with an
// observer target are rescanned on its mutations; on any other Page they
// are scanned once like the rest.
type LivePage interface {
	Page
	schedule.Target
}

// StaticPage is a parsed HTML document. Marks are applied to the document
// itself, which Render serializes back.
type StaticPage struct {
	path   string
	doc    *goquery.Document
	logger *slog.Logger
}

// NewStaticPage parses r as the page at path.
func NewStaticPage(path string, r io.Reader) (*StaticPage, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("checker: parse page: %w", err)
	}
	return &StaticPage{path: path, doc: doc, logger: slog.Default()}, nil
}

// Path is the page path.
func (p *StaticPage) Path() string { return p.path }

// Document returns the parsed document. Every call returns the same tree,
// so marks land on the document Render serializes.
func (p *StaticPage) Document(context.Context) (*goquery.Document, error) {
	return p.doc, nil
}

// Apply marks the document.
func (p *StaticPage) Apply(_ context.Context, marks []highlight.Mark, star string) (int, error) {
	return highlight.ApplyDocument(marks, star, p.logger), nil
}

// Render serializes the marked document.
func (p *StaticPage) Render() (string, error) {
	return goquery.OuterHtml(p.doc.Selection)
}
