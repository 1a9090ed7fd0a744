// Package adlib parses rendered ad-library pages into candidate ad
// creatives. Each platform has its own selector, length thresholds,
// and dedupe rules; the page itself is an external collaborator
// reached through the Page capability.
package adlib

import "context"

// Page is the query-and-extract capability the parsers need from a
// rendered ad-library page. Implementations are typically backed by a
// headless browser handle or an HTTP fetch with DOM extraction.
type Page interface {
	// QueryAllText returns the text content of every node matching
	// the selector, in document order.
	QueryAllText(ctx context.Context, selector string) ([]string, error)
}
