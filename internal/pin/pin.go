// Package pin gates access to the settings panel.
//
// The gate is a physical-access deterrent for a shop counter, not a
// security boundary: the secret is fixed, attempts are not rate limited
// and nothing is persisted.
package pin

import (
	"regexp"
	"strings"
)

// DefaultSecret is the settings PIN.
const DefaultSecret = "2809"

var fourDigits = regexp.MustCompile(`^[0-9]{4}$`)

// Gate verifies PIN attempts against a fixed secret.
type Gate struct {
	secret string
}

// NewGate returns a gate for secret.
func NewGate(secret string) *Gate {
	return &Gate{secret: secret}
}

// Verify trims attempt and reports whether it is exactly four digits equal
// to the secret.
func (g *Gate) Verify(attempt string) bool {
	attempt = strings.TrimSpace(attempt)
	if !fourDigits.MatchString(attempt) {
		return false
	}
	return attempt == g.secret
}
