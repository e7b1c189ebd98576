// Package ssrf guards outbound fetches against server-side request forgery.
// Classification is by literal hostname text, not resolved IP: a hostname
// that resolves to a private address after this check (DNS rebinding) is not
// caught here. Re-validating the connect-time IP would close that gap.
package ssrf

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/priceping/priceping/internal/monitoring/checkerr"
)

var blockedHosts = map[string]struct{}{
	"localhost":                {},
	"metadata.google.internal": {},
	"169.254.169.254":          {}, // AWS/GCP metadata
}

var blockedHostPatterns = []*regexp.Regexp{
	// IPv4 private ranges
	regexp.MustCompile(`^10\.`),
	regexp.MustCompile(`^172\.(1[6-9]|2[0-9]|3[0-1])\.`),
	regexp.MustCompile(`^192\.168\.`),
	regexp.MustCompile(`^127\.`),
	regexp.MustCompile(`^0\.`),
	regexp.MustCompile(`^169\.254\.`), // link-local
	regexp.MustCompile(`^224\.`),      // multicast

	// IPv6 special ranges
	regexp.MustCompile(`^::1$`),  // loopback
	regexp.MustCompile(`^fe80:`), // link-local
	regexp.MustCompile(`^fc00:`), // unique local
	regexp.MustCompile(`^fd00:`), // unique local
}

// IsBlocked reports whether url must not be fetched. Unparseable input is
// blocked (fail closed).
func IsBlocked(raw string) bool {
	_, err := Validate(raw)
	return err != nil
}

// Validate parses raw and classifies it, returning the base URL
// (scheme://host) on success and a tagged error otherwise.
func Validate(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, checkerr.Wrap(checkerr.KindInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, checkerr.New(checkerr.KindUnsupportedScheme, u.Scheme)
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return nil, checkerr.New(checkerr.KindInvalidURL, "empty host")
	}
	if _, ok := blockedHosts[host]; ok {
		return nil, checkerr.New(checkerr.KindBlockedBySite, "host is denylisted")
	}
	for _, p := range blockedHostPatterns {
		if p.MatchString(host) {
			return nil, checkerr.New(checkerr.KindBlockedBySite, "host is in a private or reserved range")
		}
	}
	return u, nil
}
