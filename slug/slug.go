// Package slug derives URL-safe identifiers from free-text titles.
package slug

import "strings"

const separator = '-'

// Derive lower-cases title and collapses every run of characters outside
// [a-z0-9] into a single separator, without a leading or trailing one.
func Derive(title string) string {
	lower := strings.ToLower(title)

	var b strings.Builder
	b.Grow(len(lower))
	pending := false
	for i := 0; i < len(lower); i++ {
		ch := lower[i]
		if isAlnum(ch) {
			if pending && b.Len() > 0 {
				b.WriteByte(separator)
			}
			pending = false
			b.WriteByte(ch)
			continue
		}
		pending = true
	}
	return b.String()
}

func isAlnum(ch byte) bool {
	return ('a' <= ch && ch <= 'z') || ('0' <= ch && ch <= '9')
}
