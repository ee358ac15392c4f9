// Package domain – generation request/result types.
//
// These are the shapes exchanged between the HTTP layer, the generation
// service, and the engine packages (prompt, parse, diff, session). They are
// deliberately transport-free: handlers bind JSON onto them, services consume
// them as-is.
package domain

import "time"

// GenerationMode selects which prompt template and reply protocol a request
// uses. Each mode has its own delimiter keyword in the model reply.
type GenerationMode string

const (
	// ModeMultiField asks for a JSON object of field updates after
	// "FIELD_UPDATES:".
	ModeMultiField GenerationMode = "multiField"
	// ModeBlock asks for a single block of content after
	// "GENERATED_CONTENT:".
	ModeBlock GenerationMode = "block"
	// ModeSingleField asks for one field value after "FIELD_VALUE:".
	ModeSingleField GenerationMode = "singleField"
)

// Valid reports whether m is a known generation mode.
func (m GenerationMode) Valid() bool {
	switch m {
	case ModeMultiField, ModeBlock, ModeSingleField:
		return true
	}
	return false
}

// Delimiter returns the keyword that separates explanation from payload in a
// model reply for this mode.
func (m GenerationMode) Delimiter() string {
	switch m {
	case ModeBlock:
		return "GENERATED_CONTENT:"
	case ModeSingleField:
		return "FIELD_VALUE:"
	default:
		return "FIELD_UPDATES:"
	}
}

// RefinementContext carries iteration state into a refinement prompt so the
// model can see what it was already asked and avoid circular edits.
type RefinementContext struct {
	Iteration         int      `json:"iteration"`
	PriorInstructions []string `json:"prior_instructions,omitempty"`
}

// GenerationRequest is one unit of work for the engine: a natural-language
// instruction plus a snapshot of the record it should edit.
//
// Invariants enforced at validation time:
//   - Instruction is non-empty and bounded in length.
//   - SelectedFields is non-empty, within the configured cap, and every name
//     resolves to a non-excluded field of the content type.
type GenerationRequest struct {
	ContentType    string         `json:"content_type"`
	Instruction    string         `json:"instruction"`
	SelectedFields []string       `json:"selected_fields"`
	Record         ContentRecord  `json:"record"`
	Mode           GenerationMode `json:"mode"`

	IsRefinement bool               `json:"is_refinement,omitempty"`
	Refinement   *RefinementContext `json:"refinement,omitempty"`
}

// Selected reports whether name is in SelectedFields.
func (r GenerationRequest) Selected(name string) bool {
	for _, f := range r.SelectedFields {
		if f == name {
			return true
		}
	}
	return false
}

// ParsedUpdate is the structured outcome of interpreting a model reply:
// free-text explanation plus the proposed per-field values. Updates only ever
// contains selected fields; anything else the model volunteered is dropped.
type ParsedUpdate struct {
	Explanation string        `json:"explanation"`
	Updates     ContentRecord `json:"updates"`
}

// Empty reports whether no field updates were extracted.
func (p ParsedUpdate) Empty() bool { return len(p.Updates) == 0 }

// FieldComparison is one row of the proposed diff shown to the user. Apply
// starts true exactly when the value actually changed and is only flipped by
// an explicit user toggle.
type FieldComparison struct {
	FieldName   string `json:"field_name"`
	DisplayName string `json:"display_name"`
	OldValue    string `json:"old_value"`
	NewValue    string `json:"new_value"`
	Apply       bool   `json:"apply"`
}

// GenerationResult is what the engine hands back to the caller: the parsed
// update, the per-field diff, and accounting metadata.
type GenerationResult struct {
	ID          string            `json:"id"`
	Explanation string            `json:"explanation"`
	Updates     ContentRecord     `json:"updates"`
	Comparisons []FieldComparison `json:"comparisons"`
	TokensUsed  int               `json:"tokens_used"`
	Degraded    bool              `json:"degraded"` // true when no fields could be extracted
	CreatedAt   time.Time         `json:"created_at"`
}
