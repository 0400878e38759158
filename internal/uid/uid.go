// Package uid provides unique identifier generation for PageKeep.
package uid

import (
	"regexp"

	"github.com/google/uuid"
)

// idRegex matches a canonical UUID string. Matching is case-insensitive
// because storage keys derived from ids are compared case-insensitively.
var idRegex = regexp.MustCompile(`^[a-fA-F0-9]{8}-[a-fA-F0-9]{4}-[a-fA-F0-9]{4}-[a-fA-F0-9]{4}-[a-fA-F0-9]{12}$`)

// New generates a fresh random book identifier (a lowercase UUIDv4 string).
// Ids are immutable once issued and act as the join key between the library
// index entry and the blob keys derived from it.
func New() string {
	return uuid.NewString()
}

// Valid reports whether s has the shape of an identifier issued by New.
func Valid(s string) bool {
	return idRegex.MatchString(s)
}
