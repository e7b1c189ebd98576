// Package extract pulls the monitored value out of a fetched HTML document.
package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"

	"github.com/priceping/priceping/internal/monitoring/checkerr"
)

// Text parses html and returns the concatenated text content of the first
// element matching selector, in document order. Zero matches yield
// selector_not_found; an unparseable document or selector yields parse_error.
func Text(html, selector string) (string, error) {
	// Compile the selector up front. goquery's Find swallows compile errors
	// and silently matches nothing, which would misreport a bad selector as
	// selector_not_found.
	matcher, err := cascadia.Compile(selector)
	if err != nil {
		return "", checkerr.Wrap(checkerr.KindParseError, err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", checkerr.Wrap(checkerr.KindParseError, err)
	}

	sel := doc.FindMatcher(matcher)
	if sel.Length() == 0 {
		return "", checkerr.New(checkerr.KindSelectorNotFound, selector)
	}
	// First match in document order wins; multiple matches are never an error.
	return sel.First().Text(), nil
}
