// Package parse – length clipping.
package parse

import "unicode"

// Ellipsis is appended to every clipped value.
const Ellipsis = "…"

// Truncate clips s to at most limit runes plus the ellipsis marker. The cut
// prefers the last whitespace boundary at or before the limit so words are
// never split; when no boundary falls within the trailing 20% of the limit,
// the value is hard-cut at the limit instead of walking back into the text.
// Strings already within the limit are returned unchanged, without a marker.
func Truncate(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}

	cut := limit
	// Search the window [limit - limit/5, limit] for a whitespace boundary.
	floor := limit - limit/5
	boundary := -1
	for i := limit; i >= floor; i-- {
		if i < len(runes) && unicode.IsSpace(runes[i]) {
			boundary = i
			break
		}
	}
	if boundary >= 0 {
		cut = boundary
	}

	// Drop trailing whitespace before appending the marker.
	for cut > 0 && unicode.IsSpace(runes[cut-1]) {
		cut--
	}
	return string(runes[:cut]) + Ellipsis
}
