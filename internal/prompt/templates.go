// Package prompt – fixed template text.
//
// The templates are the engine's half of the delimiter protocol: each mode
// block ends with an explicit contract naming the keyword the reply must
// contain before the payload. The parser depends on exactly these keywords,
// so the two packages must move together.
package prompt

import "github.com/contentforge/contentforge/internal/domain"

// roleDescription opens every system prompt regardless of mode.
const roleDescription = `You are a content editor for a marketing website. ` +
	`You revise structured content records field by field, following the ` +
	`editor's instruction precisely. You only change the fields you were ` +
	`asked to change, you keep the site's existing tone unless told otherwise, ` +
	`and you never invent factual claims about the product.`

// multiFieldTemplate instructs the model to return a JSON object of updates.
const multiFieldTemplate = `Propose updated values for the selected fields.

First write a short explanation of what you changed and why (one or two
sentences). Then write the line "FIELD_UPDATES:" followed by a single JSON
object mapping field names to their new string values. Only include fields
you actually want to change, and only fields from the selected list. Do not
wrap the JSON in code fences.`

// blockTemplate instructs the model to return one block of content.
const blockTemplate = `Write the requested block of content.

First write a short explanation of your approach (one or two sentences).
Then write the line "GENERATED_CONTENT:" followed by the content itself,
with no surrounding quotes or code fences.`

// singleFieldTemplate instructs the model to return one field value.
const singleFieldTemplate = `Propose a new value for the selected field.

First write a short explanation of what you changed (one sentence). Then
write the line "FIELD_VALUE:" followed by the new value on its own, with no
surrounding quotes or code fences.`

// modeTemplate returns the instruction block for a generation mode.
func modeTemplate(mode domain.GenerationMode) string {
	switch mode {
	case domain.ModeBlock:
		return blockTemplate
	case domain.ModeSingleField:
		return singleFieldTemplate
	default:
		return multiFieldTemplate
	}
}
