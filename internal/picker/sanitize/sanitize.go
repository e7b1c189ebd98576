// Package sanitize strips active content out of third-party HTML so it can
// be rendered inside the sandboxed picker iframe. The output is embedded in
// a frame served with a strict CSP; any HTML that escapes this pass still
// executing script is a direct vulnerability, so the policy errs on the side
// of removing too much.
//
// Each element- and attribute-level step is an independent operation folded
// over the tree: a failure on one node is recorded as a diagnostic and the
// pass moves on. Only the top-level size, parse, and serialize gates abort.
package sanitize

import (
	"fmt"
	"html"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	xhtml "golang.org/x/net/html"

	"github.com/priceping/priceping/internal/monitoring/checkerr"
)

// DefaultMaxSize bounds memory and parse time for a preview (2 MiB).
const DefaultMaxSize = 2 << 20

// Wholesale removals: anything that executes, navigates, frames, or submits.
var dangerousSelectors = []string{
	"script",
	"noscript",
	"iframe",
	"frame",
	"frameset",
	"object",
	"embed",
	"applet",
	"form",
	"input",
	"textarea",
	"select",
	"button",
	`link[rel="import"]`,
	"meta[http-equiv]",
	"base",
}

var (
	eventHandlerAttr = regexp.MustCompile(`^on[a-z]+$`)
	styleURLRef      = regexp.MustCompile(`(?i)url\s*\([^)]*\)`)
)

// URL-bearing attributes rewritten from relative to absolute.
var urlAttributes = []struct {
	tag  string
	attr string
}{
	{"a", "href"},
	{"img", "src"},
	{"link", "href"},
	{"source", "src"},
	{"video", "src"},
	{"audio", "src"},
	{"source", "srcset"},
	{"img", "srcset"},
}

type Options struct {
	BaseURL string
	MaxSize int
}

// Result carries the sanitized document plus per-node diagnostics from
// sub-steps that failed without aborting the pass.
type Result struct {
	HTML        string
	Diagnostics []string
}

// Sanitize rewrites rawHTML into a document safe to render in the preview
// frame. Aborting errors are tagged size_exceeded or parse_error; everything
// else degrades to diagnostics.
func Sanitize(rawHTML string, opts Options) (*Result, error) {
	maxSize := opts.MaxSize
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	if len(rawHTML) > maxSize {
		return nil, checkerr.New(checkerr.KindSizeExceeded, "page too large to preview")
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil, checkerr.Wrap(checkerr.KindParseError, err)
	}

	base, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, checkerr.Wrap(checkerr.KindInvalidURL, err)
	}

	var diags []string
	diag := func(format string, args ...any) {
		diags = append(diags, fmt.Sprintf(format, args...))
	}

	removeDangerousElements(doc)
	stripDangerousAttributes(doc)
	removeImportingStyles(doc)
	rewriteURLAttributes(doc, base, diag)
	neutralizeInlineStyleURLs(doc)
	disableAnchors(doc)

	// Last-resort fallback for any relative reference the rewrite missed.
	doc.Find("head").PrependHtml(`<base href="` + html.EscapeString(base.String()) + `">`)

	out, err := doc.Html()
	if err != nil {
		return nil, checkerr.Wrap(checkerr.KindParseError, err)
	}
	return &Result{HTML: out, Diagnostics: diags}, nil
}

func removeDangerousElements(doc *goquery.Document) {
	doc.Find(strings.Join(dangerousSelectors, ", ")).Remove()
}

// stripDangerousAttributes drops every on* handler and any attribute whose
// value smuggles script through a javascript:, vbscript:, or scriptable
// data: URI.
func stripDangerousAttributes(doc *goquery.Document) {
	doc.Find("*").Each(func(_ int, sel *goquery.Selection) {
		for _, node := range sel.Nodes {
			node.Attr = filterAttrs(node.Attr)
		}
	})
}

func filterAttrs(attrs []xhtml.Attribute) []xhtml.Attribute {
	kept := attrs[:0]
	for _, a := range attrs {
		if eventHandlerAttr.MatchString(strings.ToLower(a.Key)) {
			continue
		}
		if dangerousAttrValue(a.Val) {
			continue
		}
		kept = append(kept, a)
	}
	return kept
}

func dangerousAttrValue(val string) bool {
	v := strings.ToLower(strings.TrimSpace(val))
	if strings.HasPrefix(v, "javascript:") || strings.HasPrefix(v, "vbscript:") {
		return true
	}
	if strings.HasPrefix(v, "data:") &&
		(strings.Contains(v, "text/html") || strings.Contains(v, "text/javascript")) {
		return true
	}
	return false
}

// removeImportingStyles drops <style> blocks containing @import, which can
// pull external resources and exfiltrate through CSS.
func removeImportingStyles(doc *goquery.Document) {
	doc.Find("style").Each(func(_ int, sel *goquery.Selection) {
		if strings.Contains(sel.Text(), "@import") {
			sel.Remove()
		}
	})
}

func rewriteURLAttributes(doc *goquery.Document, base *url.URL, diag func(string, ...any)) {
	for _, ua := range urlAttributes {
		ua := ua
		doc.Find(ua.tag).Each(func(_ int, sel *goquery.Selection) {
			val, ok := sel.Attr(ua.attr)
			if !ok || val == "" || strings.HasPrefix(val, "data:") || strings.HasPrefix(val, "#") {
				return
			}
			if ua.attr == "srcset" {
				sel.SetAttr(ua.attr, rewriteSrcset(val, base, diag))
				return
			}
			sel.SetAttr(ua.attr, resolveURL(val, base, diag))
		})
	}
}

// rewriteSrcset resolves each entry of a multi-URL srcset, keeping width and
// density descriptors intact.
func rewriteSrcset(val string, base *url.URL, diag func(string, ...any)) string {
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		fields := strings.Fields(strings.TrimSpace(part))
		if len(fields) == 0 {
			continue
		}
		fields[0] = resolveURL(fields[0], base, diag)
		out = append(out, strings.Join(fields, " "))
	}
	return strings.Join(out, ", ")
}

// resolveURL makes raw absolute against base. A value that fails to parse is
// left as-is rather than aborting the whole pass.
func resolveURL(raw string, base *url.URL, diag func(string, ...any)) string {
	ref, err := url.Parse(raw)
	if err != nil {
		diag("unresolvable url %q: %v", raw, err)
		return raw
	}
	return base.ResolveReference(ref).String()
}

// neutralizeInlineStyleURLs replaces every url(...) reference inside inline
// style attributes with none. Rewriting CSS urls has too many escape-sequence
// edge cases; losing background images is an accepted fidelity cost.
func neutralizeInlineStyleURLs(doc *goquery.Document) {
	doc.Find("[style]").Each(func(_ int, sel *goquery.Selection) {
		style, ok := sel.Attr("style")
		if !ok || !strings.Contains(strings.ToLower(style), "url") {
			return
		}
		sel.SetAttr("style", styleURLRef.ReplaceAllString(style, "none"))
	})
}

// disableAnchors pins every link to the frame itself so a click can never
// navigate the preview away.
func disableAnchors(doc *goquery.Document) {
	doc.Find("a").Each(func(_ int, sel *goquery.Selection) {
		sel.SetAttr("href", "#")
		sel.SetAttr("target", "_self")
	})
}
