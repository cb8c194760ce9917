package extract

import (
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// XPath returns the absolute, fully indexed path of an element node, e.g.
// /html[1]/body[1]/ul[1]/li[3]. The browser resolves it with
// document.evaluate to find the same element in the live DOM.
func XPath(n *html.Node) string {
	if n == nil || n.Type != html.ElementNode {
		return ""
	}

	var steps []string
	for cur := n; cur != nil && cur.Type == html.ElementNode; cur = cur.Parent {
		steps = append(steps, cur.Data+"["+strconv.Itoa(siblingIndex(cur))+"]")
	}

	var sb strings.Builder
	for i := len(steps) - 1; i >= 0; i-- {
		sb.WriteByte('/')
		sb.WriteString(steps[i])
	}
	return sb.String()
}

// siblingIndex is the 1-based position of n among same-tag element siblings.
func siblingIndex(n *html.Node) int {
	idx := 1
	for s := n.PrevSibling; s != nil; s = s.PrevSibling {
		if s.Type == html.ElementNode && s.Data == n.Data {
			idx++
		}
	}
	return idx
}
