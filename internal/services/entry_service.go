// Package services – EntryService
//
// This file implements the EntryService, which manages the lifecycle of
// content entries. It validates records against the field catalog (known
// content type, known non-excluded fields, per-field length caps), enforces
// ownership rules, and coordinates repository operations for creating,
// listing (with pagination), patching, and deleting entries.
//
// Service-level errors (e.g., ErrEntryNotFound) are returned for predictable
// cases so handlers can map them to HTTP results consistently.
package services

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/contentforge/contentforge/internal/catalog"
	"github.com/contentforge/contentforge/internal/domain"
	"github.com/contentforge/contentforge/internal/parse"
	"github.com/contentforge/contentforge/internal/repo"
)

// EntryService provides CRUD operations over content entries.
type EntryService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Catalog resolves content types and field definitions.
	Catalog *catalog.Catalog
}

// Create inserts a new entry of the given content type owned by userID.
// Every field of the record must exist on the type; values are sanitized
// and clipped to the field's length cap before storage.
func (s *EntryService) Create(ctx context.Context, userID, contentType string, rec domain.ContentRecord) (*domain.ContentEntry, error) {
	def, err := s.Catalog.ContentType(contentType)
	if err != nil {
		return nil, err
	}
	clean, err := cleanRecord(def, rec)
	if err != nil {
		return nil, err
	}
	return repo.CreateEntry(ctx, s.DB, userID, contentType, clean)
}

// Get fetches an entry by ID, enforcing ownership.
func (s *EntryService) Get(ctx context.Context, userID, id string) (*domain.ContentEntry, error) {
	e, err := repo.GetEntry(ctx, s.DB, id, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrEntryNotFound
		}
		return nil, err
	}
	return e, nil
}

// ListPage returns a page of entries for a user, optionally filtered by
// content type. It applies defaults for invalid page/pageSize and returns
// the total count.
func (s *EntryService) ListPage(ctx context.Context, userID, contentType string, page, pageSize int) ([]domain.ContentEntry, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	total, err := repo.CountEntries(ctx, s.DB, userID, contentType)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.ContentEntry{}, 0, nil
	}

	items, err := repo.ListEntriesPage(ctx, s.DB, userID, contentType, offset, pageSize)
	return items, total, err
}

// Patch merges the given fields into an existing entry. Only the named
// fields change; an explicit empty string clears a field. The patch is
// validated against the entry's content type.
func (s *EntryService) Patch(ctx context.Context, userID, id string, patch domain.ContentRecord) (*domain.ContentEntry, error) {
	e, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	def, err := s.Catalog.ContentType(e.ContentType)
	if err != nil {
		return nil, err
	}
	clean, err := cleanRecord(def, patch)
	if err != nil {
		return nil, err
	}

	current, err := e.Record()
	if err != nil {
		return nil, err
	}
	next := current.Merge(clean)
	if err := repo.UpdateEntryRecord(ctx, s.DB, id, userID, next); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrEntryNotFound
		}
		return nil, err
	}
	if err := e.SetRecord(next); err != nil {
		return nil, err
	}
	return e, nil
}

// Delete soft-deletes an entry, enforcing ownership.
func (s *EntryService) Delete(ctx context.Context, userID, id string) error {
	if err := repo.DeleteEntry(ctx, s.DB, id, userID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrEntryNotFound
		}
		return err
	}
	return nil
}

// cleanRecord validates every field of rec against the content type and
// returns a sanitized, length-capped copy. Excluded and unknown fields are
// rejected rather than dropped: entries are authored directly, not proposed
// by a model.
func cleanRecord(def *catalog.ContentTypeDef, rec domain.ContentRecord) (domain.ContentRecord, error) {
	out := make(domain.ContentRecord, len(rec))
	for name, value := range rec {
		fd, ok := def.Field(name)
		if !ok {
			return nil, fmt.Errorf("%w: %q", catalog.ErrUnknownField, name)
		}
		if fd.Excluded {
			return nil, fmt.Errorf("%w: %q", catalog.ErrFieldExcluded, name)
		}
		v := parse.Sanitize(value)
		if fd.MaxLength > 0 && utf8.RuneCountInString(v) > fd.MaxLength {
			v = parse.Truncate(v, fd.MaxLength)
		}
		out[name] = v
	}
	return out, nil
}
