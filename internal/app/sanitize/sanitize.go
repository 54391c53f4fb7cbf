/*
Package sanitize strips markup from user-authored text before it enters a broadcast payload.

It is the only trust boundary on user-authored text. Output is plain text in which only
&, < and > stay escaped, so running it twice yields the same result as running it once.
*/
package sanitize

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// strict allows no elements and no attributes; script and style bodies are dropped.
// bluemonday policies are safe for concurrent use once built.
var strict = bluemonday.StrictPolicy()

// quotes undoes the escaping of quote characters. Payloads are JSON strings, and a quote
// outside a tag cannot start markup.
var quotes = strings.NewReplacer("&#39;", "'", "&#34;", `"`)

// Text removes every tag and attribute from s and returns the remaining text content.
// Malformed markup degrades to best-effort text extraction; it never panics.
func Text(s string) string {
	if s == "" {
		return ""
	}
	return quotes.Replace(strict.Sanitize(s))
}
