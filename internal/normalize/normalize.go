// Package normalize derives the matching keys used to join uploaded rows
// against vendor lookup tables.
package normalize

import (
	"strings"

	"golang.org/x/text/cases"
)

// Key trims surrounding whitespace and applies Unicode case folding, which
// does not depend on the process locale. It is applied identically to
// uploaded values and to vendor emails and tag names.
func Key(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	// cases.Caser holds state, so one is built per call.
	return cases.Fold().String(s)
}
