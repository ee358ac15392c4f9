// Package parse interprets free-text model replies under the delimiter
// protocol and turns them into structured field updates.
//
// The parser is deliberately forgiving: model output drifts, and a reply that
// almost follows the protocol is still worth salvaging. Parse never fails;
// at worst it returns an update with no fields, which callers surface as
// "no changes proposed" rather than an error.
//
// Extraction runs in two tiers for multi-field replies: the first balanced
// JSON object in the payload, then an ordered cascade of per-field regex
// extractors when the JSON attempt comes up empty. Every extracted value is
// cleaned for its semantic type, clipped to the field's max length at a word
// boundary, and run through a fixed sanitization pass.
package parse

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/contentforge/contentforge/internal/domain"
)

// DefaultExplanation is returned when the reply carries no text before the
// delimiter.
const DefaultExplanation = "The assistant proposed the following changes."

// Parser converts raw replies into ParsedUpdates. The zero value is ready to
// use.
type Parser struct {
	// MissingExplanation overrides DefaultExplanation when non-empty.
	MissingExplanation string
}

// Parse extracts an explanation and per-field updates from raw for the given
// mode. fields are the definitions of the request's selected fields, in
// request order; updates never contain a field outside this set. Parse never
// returns an error: malformed input degrades to fewer (or zero) updates.
func (p *Parser) Parse(raw string, mode domain.GenerationMode, fields []domain.FieldDefinition) domain.ParsedUpdate {
	explanation, payload := splitReply(raw, mode.Delimiter())
	if explanation == "" {
		explanation = p.missingExplanation()
	}

	updates := domain.ContentRecord{}
	switch mode {
	case domain.ModeBlock, domain.ModeSingleField:
		// The payload is the value itself; it belongs to the first (only)
		// selected field.
		if len(fields) > 0 {
			if v := cleanValue(payload, fields[0]); v != "" {
				updates[fields[0].Name] = v
			}
		}
	default:
		updates = p.parseMultiField(payload, fields)
	}

	return domain.ParsedUpdate{Explanation: explanation, Updates: updates}
}

// parseMultiField tries the JSON path first and falls back to the regex
// cascade. Keys outside the selected set are dropped silently.
func (p *Parser) parseMultiField(payload string, fields []domain.FieldDefinition) domain.ContentRecord {
	defs := make(map[string]domain.FieldDefinition, len(fields))
	for _, f := range fields {
		defs[f.Name] = f
	}

	updates := domain.ContentRecord{}
	if obj, ok := firstBalancedObject(payload); ok {
		var m map[string]any
		if err := json.Unmarshal([]byte(obj), &m); err == nil {
			for k, v := range m {
				def, selected := defs[k]
				if !selected {
					continue // unrequested field, dropped by design
				}
				if s, ok := flattenValue(v); ok {
					if s = cleanValue(s, def); s != "" {
						updates[k] = s
					}
				}
			}
			return updates
		}
	}

	// JSON failed entirely; run the extractor cascade per selected field.
	for _, f := range fields {
		if v, ok := extractField(payload, f.Name); ok {
			if v = cleanValue(v, f); v != "" {
				updates[f.Name] = v
			}
		}
	}
	return updates
}

func (p *Parser) missingExplanation() string {
	if p.MissingExplanation != "" {
		return p.MissingExplanation
	}
	return DefaultExplanation
}

// splitReply divides raw on the first occurrence of delim. When the
// delimiter is absent the whole reply is treated as payload, so a model that
// skipped the protocol entirely still gets a parsing attempt.
func splitReply(raw, delim string) (explanation, payload string) {
	idx := strings.Index(raw, delim)
	if idx < 0 {
		return "", strings.TrimSpace(raw)
	}
	return strings.TrimSpace(raw[:idx]), strings.TrimSpace(raw[idx+len(delim):])
}

// flattenValue renders a loosely-typed JSON value as a string. Scalar lists
// collapse to newline-separated lines; nested objects are rejected (the
// protocol promises a flat mapping).
func flattenValue(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(t), true
	case nil:
		return "", false
	case []any:
		parts := make([]string, 0, len(t))
		for _, el := range t {
			s, ok := flattenValue(el)
			if !ok {
				return "", false
			}
			parts = append(parts, s)
		}
		return strings.Join(parts, "\n"), true
	default:
		return "", false
	}
}

// cleanValue applies the per-type cleanup, the max-length clip, and the
// sanitization pass, in that order.
func cleanValue(v string, def domain.FieldDefinition) string {
	v = cleanupForType(v, def.Type)
	if def.MaxLength > 0 {
		v = Truncate(v, def.MaxLength)
	}
	return Sanitize(v)
}
