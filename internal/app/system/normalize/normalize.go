// internal/app/system/normalize/normalize.go
package normalize

import (
	"strings"

	"github.com/dalemusser/waffle/pantry/text"
)

// Email trims surrounding whitespace and lowercases the address.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Username trims surrounding whitespace. Case is preserved for display.
func Username(s string) string {
	return strings.TrimSpace(s)
}

// UsernameCI returns the folded form of a username used for case-insensitive
// uniqueness checks and ordering.
func UsernameCI(s string) string {
	return text.Fold(strings.TrimSpace(s))
}

// Bio trims surrounding whitespace from a profile bio.
func Bio(s string) string {
	return strings.TrimSpace(s)
}

// Search folds a search query so it can be prefix-matched against username_ci.
func Search(s string) string {
	return text.Fold(strings.TrimSpace(s))
}
