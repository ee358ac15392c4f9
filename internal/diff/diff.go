// Package diff reconciles a content record against a parsed update into the
// per-field comparisons shown in the dashboard's review dialog. Diffing is
// pure and deterministic: the same record and update always yield the same
// ordered comparison list, so the UI can re-render without surprises.
package diff

import (
	"sort"

	"github.com/contentforge/contentforge/internal/catalog"
	"github.com/contentforge/contentforge/internal/domain"
)

// Diff builds one comparison per selected field. The old value is the
// record's current value ("" when unset); the new value falls back to the old
// one when the update did not touch the field. Apply starts true exactly when
// the two differ. Results are sorted by display name so the review list is
// stable regardless of request or map ordering.
func Diff(record domain.ContentRecord, update domain.ParsedUpdate, selected []string, def *catalog.ContentTypeDef) []domain.FieldComparison {
	out := make([]domain.FieldComparison, 0, len(selected))
	for _, name := range selected {
		oldVal := record[name]
		newVal, ok := update.Updates[name]
		if !ok {
			newVal = oldVal
		}
		display := name
		if def != nil {
			display = def.DisplayNameOf(name)
		}
		out = append(out, domain.FieldComparison{
			FieldName:   name,
			DisplayName: display,
			OldValue:    oldVal,
			NewValue:    newVal,
			Apply:       newVal != oldVal,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DisplayName != out[j].DisplayName {
			return out[i].DisplayName < out[j].DisplayName
		}
		return out[i].FieldName < out[j].FieldName
	})
	return out
}

// ApplySelected collapses a comparison list into the patch of fields whose
// Apply flag is still set. The caller merges the patch into its own record
// store; nothing here mutates the original record.
func ApplySelected(comparisons []domain.FieldComparison) domain.ContentRecord {
	patch := domain.ContentRecord{}
	for _, c := range comparisons {
		if c.Apply {
			patch[c.FieldName] = c.NewValue
		}
	}
	return patch
}
