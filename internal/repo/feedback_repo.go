// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// ProposalFeedback model.
//
// The repository follows a "thin" approach: it performs persistence and simple
// query composition, leaving business rules to the services package.
//
// Error semantics:
//   - Duplicate feedback (same generation_id,user_id) relies on the database
//     unique constraint and is returned as a raw DB error. The service layer
//     should translate that into a domain error (e.g., ErrDuplicateFeedback).
//   - On other DB errors (connectivity, constraints, etc.), the raw gorm
//     error is propagated.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/contentforge/contentforge/internal/domain"
)

// CreateFeedback inserts a feedback row for the given generation and user.
//
// The combination (generation_id, user_id) must be unique, enforced by the
// database schema (unique index). If a duplicate exists, the database will
// return an error which should be translated by the service layer into a
// domain-level duplicate error.
//
// Value must be -1 (negative) or 1 (positive). Validation is expected to be
// enforced at higher layers (handlers/services) and/or via DB constraints.
func CreateFeedback(ctx context.Context, db *gorm.DB, generationID, userID string, value int) error {
	fb := &domain.ProposalFeedback{
		ID:           uuid.NewString(),
		GenerationID: generationID,
		UserID:       userID,
		Value:        value,
		CreatedAt:    time.Now().UTC(),
	}
	return db.WithContext(ctx).Create(fb).Error
}
