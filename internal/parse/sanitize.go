// Package parse – output sanitization.
//
// Generated values end up rendered in a CMS dashboard and, once accepted, on
// the marketing site itself, so every string that leaves the parser passes
// through one fixed scrub: script/iframe spans, javascript: URLs, and inline
// event-handler attributes are removed. The pass is uniform across modes and
// types; it is not a full HTML policy engine, just the protocol's strip-list.
package parse

import (
	"regexp"
	"strings"
)

var (
	scriptSpanRE = regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script\s*>`)
	iframeSpanRE = regexp.MustCompile(`(?is)<iframe\b[^>]*>.*?</iframe\s*>`)
	// Unclosed opening tags are stripped too; a dangling <script> is as bad
	// as a closed one.
	scriptOpenRE = regexp.MustCompile(`(?i)<\s*/?\s*(?:script|iframe)\b[^>]*>`)
	jsSchemeRE   = regexp.MustCompile(`(?i)javascript\s*:`)
	onAttrRE     = regexp.MustCompile(`(?i)\bon[a-z]+\s*=\s*(?:"[^"]*"|'[^']*'|[^\s>]+)`)
)

// Sanitize removes script-injection vectors from a generated value. Input
// that trips up the patterns is returned as opaque trimmed text rather than
// rejected; sanitization never fails.
func Sanitize(v string) string {
	if v == "" {
		return ""
	}
	out := scriptSpanRE.ReplaceAllString(v, "")
	out = iframeSpanRE.ReplaceAllString(out, "")
	out = scriptOpenRE.ReplaceAllString(out, "")
	out = jsSchemeRE.ReplaceAllString(out, "")
	out = onAttrRE.ReplaceAllString(out, "")
	return strings.TrimSpace(out)
}
