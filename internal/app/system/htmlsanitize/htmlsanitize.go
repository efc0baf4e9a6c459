// internal/app/system/htmlsanitize/htmlsanitize.go
package htmlsanitize

import (
	"html"

	"github.com/microcosm-cc/bluemonday"
)

// strict removes every element and attribute, leaving text content.
var strict = bluemonday.StrictPolicy()

// PlainText strips all markup from user-supplied text such as a bio or a
// username. Entities escaped by the policy are unescaped again because the
// result is stored and returned as JSON, not rendered as HTML.
func PlainText(s string) string {
	if s == "" {
		return ""
	}
	return html.UnescapeString(strict.Sanitize(s))
}
