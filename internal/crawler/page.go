package crawler

import (
	"context"
	"strings"

	"golang.org/x/net/html"
)

// htmlPage wraps a parsed document and answers element-text queries.
// It satisfies adlib.Page.
type htmlPage struct {
	root *html.Node
}

// QueryAllText returns the visible text of every element with the
// given tag name, in document order. Nested matches each report their
// own subtree text; downstream prefix dedupe collapses the overlap.
func (p *htmlPage) QueryAllText(_ context.Context, selector string) ([]string, error) {
	var out []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == selector {
			if text := innerText(n); text != "" {
				out = append(out, text)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(p.root)
	return out, nil
}

// innerText concatenates text nodes under n, skipping script and
// style subtrees.
func innerText(n *html.Node) string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
			b.WriteByte(' ')
		case html.ElementNode:
			if n.Data == "script" || n.Data == "style" {
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSpace(b.String())
}
