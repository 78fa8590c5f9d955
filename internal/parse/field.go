package parse

import "strings"

// Field trims an identity field and collapses internal runs of whitespace,
// including non-breaking spaces, into a single space.
func Field(raw string) string {
	return strings.Join(strings.Fields(raw), " ")
}
