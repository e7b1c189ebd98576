// Package selector synthesizes a CSS selector for an element the user
// clicked in the picker. The ranking prefers hooks a developer left stable
// on purpose (test ids, semantic classes) over anything that smells like a
// generated name, so the selector keeps matching across re-renders of
// CSS-in-JS and framework-id churn. Best effort, not a guarantee.
package selector

import (
	"fmt"
	"regexp"
	"strings"
)

// ElementInfo is the structural snapshot the picker script collects for the
// clicked element. ParentPath is ordered root-first, nearest ancestor last.
type ElementInfo struct {
	TagName    string            `json:"tagName"`
	ID         string            `json:"id,omitempty"`
	ClassList  []string          `json:"classList"`
	Attributes map[string]string `json:"attributes"`
	NthOfType  int               `json:"nthOfType"`
	ParentPath []ElementInfo     `json:"parentPath"`
}

// Data attributes commonly used as test hooks, most stable first.
var dataAttributes = []string{
	"data-testid",
	"data-test",
	"data-qa",
	"data-cy",
	"data-id",
	"data-product-id",
	"data-price",
	"data-value",
}

// Shapes that suggest a generated, per-render id.
var randomIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^[a-f0-9]{8,}$`),  // hex strings
	regexp.MustCompile(`(?i)^[a-z0-9]{20,}$`), // long alphanumeric
	regexp.MustCompile(`^:r[0-9]+:$`),         // React useId
	regexp.MustCompile(`^ember\d+$`),          // Ember
	regexp.MustCompile(`(?i)^__[a-z]+\d+$`),   // framework prefixes
	regexp.MustCompile(`(?i)_[a-f0-9]{4,}$`),  // random hex suffix
	regexp.MustCompile(`\d{10,}`),             // embedded timestamps
}

// Class prefixes that read as semantic.
var stableClassPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^price`),
	regexp.MustCompile(`(?i)^product`),
	regexp.MustCompile(`(?i)^item`),
	regexp.MustCompile(`(?i)^title`),
	regexp.MustCompile(`(?i)^name`),
	regexp.MustCompile(`(?i)^cost`),
	regexp.MustCompile(`(?i)^value`),
	regexp.MustCompile(`(?i)^amount`),
	regexp.MustCompile(`(?i)^total`),
	regexp.MustCompile(`(?i)^discount`),
	regexp.MustCompile(`(?i)^sale`),
	regexp.MustCompile(`(?i)^btn`),
	regexp.MustCompile(`(?i)^button`),
	regexp.MustCompile(`(?i)^card`),
	regexp.MustCompile(`(?i)^header`),
	regexp.MustCompile(`(?i)^footer`),
	regexp.MustCompile(`(?i)^nav`),
	regexp.MustCompile(`(?i)^main`),
	regexp.MustCompile(`(?i)^content`),
	regexp.MustCompile(`(?i)^text`),
	regexp.MustCompile(`(?i)^label`),
}

// Shapes produced by CSS-in-JS and class minifiers.
var randomClassPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^[a-z]{1,2}[A-Z][a-z]+[A-Z]`),  // camel-hash (aButton, bWrapper)
	regexp.MustCompile(`(?i)^_[a-z0-9]+$`),             // underscore random
	regexp.MustCompile(`(?i)^[a-z]{1,3}[0-9]+[a-z]*$`), // short prefix + digits
	regexp.MustCompile(`(?i)^css-[a-z0-9]+$`),          // Emotion
	regexp.MustCompile(`^sc-[a-zA-Z]+$`),               // styled-components
	regexp.MustCompile(`(?i)^[a-f0-9]{6,}$`),           // hex
}

var (
	simpleClassShape = regexp.MustCompile(`(?i)^[a-z][a-z0-9-_]*$`)
	selectorEscaper  = regexp.MustCompile("([!\"#$%&'()*+,./:;<=>?@\\[\\\\\\]^`{|}~])")
)

const (
	minClassNameLen = 3
	maxClassNameLen = 20
	maxPathParents  = 3
)

// Fallback selector when ElementInfo is malformed or carries nothing usable.
const fallback = "body"

func isRandomID(id string) bool {
	for _, p := range randomIDPatterns {
		if p.MatchString(id) {
			return true
		}
	}
	return false
}

func isStableClass(class string) bool {
	for _, p := range randomClassPatterns {
		if p.MatchString(class) {
			return false
		}
	}
	for _, p := range stableClassPatterns {
		if p.MatchString(class) {
			return true
		}
	}
	return len(class) >= minClassNameLen && len(class) <= maxClassNameLen &&
		simpleClassShape.MatchString(class)
}

func escape(s string) string {
	return selectorEscaper.ReplaceAllString(s, `\$1`)
}

// Build returns the highest-ranked selector for el, walking the priority
// order: stable data attribute, non-random id, stable classes, then an
// ancestor path ending in the element's own simple selector or its
// nth-of-type position.
func Build(el ElementInfo) string {
	if el.TagName == "" {
		return fallback
	}

	if s, ok := simple(el); ok {
		return s
	}

	var parts []string
	ancestors := el.ParentPath
	if len(ancestors) > maxPathParents {
		ancestors = ancestors[len(ancestors)-maxPathParents:]
	}
	for _, anc := range ancestors {
		if s, ok := simple(anc); ok {
			parts = append(parts, s)
		}
	}

	tag := strings.ToLower(el.TagName)
	if el.NthOfType > 0 {
		parts = append(parts, fmt.Sprintf("%s:nth-of-type(%d)", tag, el.NthOfType))
	} else {
		parts = append(parts, tag)
	}

	return strings.Join(parts, " > ")
}

// simple builds a one-element selector for el using priority rules 1-3 only.
func simple(el ElementInfo) (string, bool) {
	if el.TagName == "" {
		return "", false
	}

	for _, attr := range dataAttributes {
		if v, ok := el.Attributes[attr]; ok && v != "" {
			return fmt.Sprintf(`[%s="%s"]`, attr, escape(v)), true
		}
	}

	if el.ID != "" && !isRandomID(el.ID) {
		return "#" + escape(el.ID), true
	}

	var stable []string
	for _, c := range el.ClassList {
		if isStableClass(c) {
			stable = append(stable, c)
		}
		if len(stable) == 2 {
			break
		}
	}
	if len(stable) > 0 {
		var b strings.Builder
		b.WriteString(strings.ToLower(el.TagName))
		for _, c := range stable {
			b.WriteString(".")
			b.WriteString(escape(c))
		}
		return b.String(), true
	}

	return "", false
}
