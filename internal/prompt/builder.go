// Package prompt renders a validated GenerationRequest into the system and
// user messages sent to the model service. Building is a pure function of the
// request and the content-type schema: no I/O, no clock, no randomness, so
// the same request always produces the same prompt.
package prompt

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/contentforge/contentforge/internal/catalog"
	"github.com/contentforge/contentforge/internal/domain"
)

// Limits bounds the prompt size. One Limits value is shared by every call
// site so request validation and prompt rendering agree on the policy.
type Limits struct {
	// PreviewLen caps the runes of a field's current value shown in the
	// user message. The full value is never sent.
	PreviewLen int
	// MaxInstructionLen caps the instruction length accepted at validation.
	MaxInstructionLen int
	// MaxSelectedFields caps how many fields one request may target.
	MaxSelectedFields int
	// PriorInstructions is how many of the most recent refinement
	// instructions are echoed back to the model.
	PriorInstructions int
}

// DefaultLimits returns the limits used when the host supplies none.
func DefaultLimits() Limits {
	return Limits{
		PreviewLen:        240,
		MaxInstructionLen: 2000,
		MaxSelectedFields: 20,
		PriorInstructions: 2,
	}
}

// normalized fills zero values with defaults so a partially configured
// Limits behaves sensibly.
func (l Limits) normalized() Limits {
	d := DefaultLimits()
	if l.PreviewLen <= 0 {
		l.PreviewLen = d.PreviewLen
	}
	if l.MaxInstructionLen <= 0 {
		l.MaxInstructionLen = d.MaxInstructionLen
	}
	if l.MaxSelectedFields <= 0 {
		l.MaxSelectedFields = d.MaxSelectedFields
	}
	if l.PriorInstructions <= 0 {
		l.PriorInstructions = d.PriorInstructions
	}
	return l
}

// Prompt is the rendered pair of messages for one model call.
type Prompt struct {
	SystemText string
	UserText   string
}

// Builder renders prompts under a fixed Limits policy.
type Builder struct {
	limits Limits
}

// NewBuilder constructs a Builder, defaulting any unset limit.
func NewBuilder(l Limits) *Builder {
	return &Builder{limits: l.normalized()}
}

// Limits returns the effective policy (after defaulting).
func (b *Builder) Limits() Limits { return b.limits }

// Build renders the system and user messages for req against the content
// type's schema. The request is assumed validated; Build itself never fails.
func (b *Builder) Build(req domain.GenerationRequest, def *catalog.ContentTypeDef) Prompt {
	return Prompt{
		SystemText: b.buildSystem(req, def),
		UserText:   b.buildUser(req, def),
	}
}

// buildSystem assembles: role description, per-type guidance, the mode block
// with its delimiter contract, and the refinement block when iterating.
func (b *Builder) buildSystem(req domain.GenerationRequest, def *catalog.ContentTypeDef) string {
	var sb strings.Builder
	sb.WriteString(roleDescription)
	sb.WriteString("\n\n")

	if def != nil && strings.TrimSpace(def.Guidance) != "" {
		sb.WriteString(strings.TrimSpace(def.Guidance))
		sb.WriteString("\n\n")
	}

	sb.WriteString(modeTemplate(req.Mode))

	if req.IsRefinement && req.Refinement != nil {
		sb.WriteString("\n\n")
		fmt.Fprintf(&sb, "This is refinement round %d on the same record.", req.Refinement.Iteration)
		prior := lastN(req.Refinement.PriorInstructions, b.limits.PriorInstructions)
		if req.Refinement.Iteration > 1 && len(prior) > 0 {
			sb.WriteString(" The editor already asked for the following, most recent last;")
			sb.WriteString(" do not undo those changes unless the new instruction says so:\n")
			for _, ins := range prior {
				sb.WriteString("- ")
				sb.WriteString(ins)
				sb.WriteString("\n")
			}
		}
	}

	return strings.TrimRight(sb.String(), "\n")
}

// buildUser lists the content type, the instruction verbatim, the selected
// fields, and a bounded preview of each field's current value.
func (b *Builder) buildUser(req domain.GenerationRequest, def *catalog.ContentTypeDef) string {
	var sb strings.Builder

	typeName := req.ContentType
	if def != nil && def.DisplayName != "" {
		typeName = fmt.Sprintf("%s (%s)", def.DisplayName, req.ContentType)
	}
	fmt.Fprintf(&sb, "Content type: %s\n", typeName)
	fmt.Fprintf(&sb, "Instruction: %s\n", req.Instruction)
	fmt.Fprintf(&sb, "Selected fields: %s\n", strings.Join(req.SelectedFields, ", "))

	sb.WriteString("Current values:\n")
	for _, name := range req.SelectedFields {
		val := req.Record[name]
		label := name
		if def != nil {
			label = def.DisplayNameOf(name)
		}
		if strings.TrimSpace(val) == "" {
			fmt.Fprintf(&sb, "- %s (%s): <empty>\n", label, name)
			continue
		}
		fmt.Fprintf(&sb, "- %s (%s): %s\n", label, name, preview(val, b.limits.PreviewLen))
	}

	if req.IsRefinement && req.Refinement != nil {
		prior := lastN(req.Refinement.PriorInstructions, b.limits.PriorInstructions)
		if len(prior) > 0 {
			sb.WriteString("Previous instructions:\n")
			for _, ins := range prior {
				sb.WriteString("- ")
				sb.WriteString(ins)
				sb.WriteString("\n")
			}
		}
	}

	return strings.TrimRight(sb.String(), "\n")
}

// preview collapses whitespace runs and clips the value to n runes, with an
// ellipsis when anything was cut.
func preview(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "…"
}

// lastN returns the final n elements of vals (all of them when fewer).
func lastN(vals []string, n int) []string {
	if len(vals) <= n {
		return vals
	}
	return vals[len(vals)-n:]
}
