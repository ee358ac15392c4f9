// Package parse – payload extraction helpers.
//
// firstBalancedObject locates the JSON object in a noisy payload; the
// extractor cascade recovers individual fields when the payload is not valid
// JSON at all. Each extractor is a pure function tried in order, so the
// fallback behavior is testable strategy by strategy.
package parse

import (
	"regexp"
	"strings"

	"github.com/contentforge/contentforge/internal/domain"
)

// firstBalancedObject returns the first balanced brace-delimited span of
// payload. The scan is string-aware: braces inside JSON string literals do
// not affect nesting depth.
func firstBalancedObject(payload string) (string, bool) {
	start := strings.IndexByte(payload, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(payload); i++ {
		c := payload[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return payload[start : i+1], true
			}
		}
	}
	return "", false
}

// extractor attempts to pull the value for one field out of free text.
// Returns ok=false when the strategy finds nothing; the next strategy in the
// cascade then gets its turn.
type extractor func(text, field string) (string, bool)

// extractorCascade is tried in order; the first hit wins. Order matters: the
// quoted pattern is stricter and must run before the loose bare pattern.
var extractorCascade = []extractor{
	extractQuotedPair,
	extractBarePair,
}

// extractField runs the cascade for one field name.
func extractField(text, field string) (string, bool) {
	for _, ex := range extractorCascade {
		if v, ok := ex(text, field); ok {
			return v, true
		}
	}
	return "", false
}

// extractQuotedPair matches `"field": "value"` with JSON-style escapes in
// the value.
func extractQuotedPair(text, field string) (string, bool) {
	re := regexp.MustCompile(`"` + regexp.QuoteMeta(field) + `"\s*:\s*"((?:[^"\\]|\\.)*)"`)
	m := re.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return unescapeJSONString(m[1]), true
}

// extractBarePair matches a line-oriented `field: value` pair, tolerating an
// optionally quoted key and a trailing comma.
func extractBarePair(text, field string) (string, bool) {
	re := regexp.MustCompile(`(?mi)^\s*"?` + regexp.QuoteMeta(field) + `"?\s*:\s*(.+)$`)
	m := re.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	v := strings.TrimSpace(m[1])
	v = strings.TrimSuffix(v, ",")
	v = strings.Trim(v, `"`)
	v = strings.TrimSpace(v)
	if v == "" {
		return "", false
	}
	return v, true
}

// unescapeJSONString resolves the common escapes produced inside JSON string
// literals. Unknown escapes keep the escaped character as-is.
func unescapeJSONString(s string) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}
	var sb strings.Builder
	sb.Grow(len(s))
	escaped := false
	for _, r := range s {
		if !escaped {
			if r == '\\' {
				escaped = true
				continue
			}
			sb.WriteRune(r)
			continue
		}
		escaped = false
		switch r {
		case 'n':
			sb.WriteByte('\n')
		case 't':
			sb.WriteByte('\t')
		case 'r':
			sb.WriteByte('\r')
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// Type-specific cleanup patterns.
var (
	emailTokenRE = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	urlTokenRE   = regexp.MustCompile(`https?://[^\s"'<>)\]]+`)
)

// cleanupForType normalizes a raw extracted value for its semantic type:
// email and URL fields keep only the first token of the right shape,
// single-line types lose their line breaks, everything is trimmed.
func cleanupForType(v string, t domain.SemanticType) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	switch t {
	case domain.TypeEmail:
		if m := emailTokenRE.FindString(v); m != "" {
			return m
		}
		return collapseToLine(v)
	case domain.TypeURL:
		if m := urlTokenRE.FindString(v); m != "" {
			return m
		}
		return collapseToLine(v)
	default:
		if t.SingleLine() {
			return collapseToLine(v)
		}
		return v
	}
}

// collapseToLine strips line breaks and squeezes whitespace runs to single
// spaces.
func collapseToLine(v string) string {
	return strings.Join(strings.Fields(v), " ")
}
