// Package textnorm turns extracted page text into a canonical form and a
// fixed-size fingerprint so change detection can compare values without
// keeping full history around.
package textnorm

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"

	"github.com/priceping/priceping/internal/domain/monitor"
)

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	currencyMarks = strings.NewReplacer("$", "", "€", "", "£", "", "¥", "", ",", "")
)

// Normalize collapses whitespace runs to a single space and trims the ends.
// For price values it additionally strips currency symbols and
// thousands-separator commas so "$1,299.00" and "1299.00" compare equal.
// Idempotent: Normalize(Normalize(x)) == Normalize(x).
func Normalize(text string, vt monitor.ValueType) string {
	s := strings.TrimSpace(whitespaceRun.ReplaceAllString(text, " "))
	if vt == monitor.ValueTypePrice {
		s = strings.TrimSpace(currencyMarks.Replace(s))
	}
	return s
}

// Hash returns the SHA-256 hex digest of a normalized value.
func Hash(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
