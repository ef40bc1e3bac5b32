// Package textnorm reduces free-text titles to the canonical comparison form
// used by the matcher. The site's incremental search applies the same rule, so
// any change here changes what users see as "matching" and must be mirrored
// there.
package textnorm

import "strings"

// Normalize maps text to its canonical comparison form: ASCII uppercase
// letters are folded to lowercase, ASCII letters and digits and all non-ASCII
// code points are kept, and every other code point (punctuation, symbols,
// whitespace) is dropped without a replacement marker.
//
// The function is pure and idempotent: Normalize(Normalize(s)) == Normalize(s).
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		case r >= 'a' && r <= 'z':
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r > 127:
			b.WriteRune(r)
		}
	}
	return b.String()
}
