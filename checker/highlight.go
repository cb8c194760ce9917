package checker

import (
	"context"
	"fmt"
	"strings"
)

// HighlightResult is a processed static page.
type HighlightResult struct {
	Report Report `json:"report"`
	HTML   string `json:"html"`
}

// HighlightHTML processes an HTML document as the page at path and returns
// the marked document.
func (c *Checker) HighlightHTML(ctx context.Context, path, html string) (*HighlightResult, error) {
	if path == "" {
		return nil, fmt.Errorf("checker: path is required")
	}
	page, err := NewStaticPage(path, strings.NewReader(html))
	if err != nil {
		return nil, err
	}
	page.logger = c.logger

	sess, err := c.Process(ctx, page)
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	out, err := page.Render()
	if err != nil {
		return nil, fmt.Errorf("checker: render: %w", err)
	}
	return &HighlightResult{Report: sess.Report(), HTML: out}, nil
}
