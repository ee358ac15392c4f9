// Package services – FeedbackService
//
// This file implements the FeedbackService, which governs how users rate
// generation proposals (-1 or +1). It enforces business rules (generation
// existence, ownership, uniqueness) and persists feedback atomically in the
// database. Service-level errors (e.g. ErrInvalidFeedback,
// ErrGenerationNotFound, ErrDuplicateFeedback) are returned for predictable
// cases so handlers can map them to HTTP results consistently.
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/contentforge/contentforge/internal/domain"
	"github.com/contentforge/contentforge/internal/repo"
)

// FeedbackService implements the use-cases around proposal feedback.
// It validates the operation (ownership, uniqueness) and persists the
// feedback using the provided GORM handle. The service is context-aware and
// opens its own transaction per call.
type FeedbackService struct {
	// DB is the database handle used for all feedback operations.
	DB *gorm.DB
}

// Leave records a feedback value for generationID on behalf of userID.
//
// Semantics and validation:
//   - value must be exactly -1 (negative) or 1 (positive); otherwise ErrInvalidFeedback.
//   - generationID must exist and belong to userID; otherwise ErrGenerationNotFound.
//   - A user may rate a generation at most once; attempting to do so again
//     yields ErrDuplicateFeedback.
//
// The existence check and the insert run in one transaction so they are
// atomic with respect to concurrent raters.
func (s *FeedbackService) Leave(ctx context.Context, userID, generationID string, value int) error {
	if value != -1 && value != 1 {
		return ErrInvalidFeedback
	}

	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 1) The generation must exist and be owned by this user.
		if _, err := repo.GetGenerationLog(ctx, tx, generationID, userID); err != nil {
			if isNotFound(err) {
				return ErrGenerationNotFound
			}
			return err
		}

		// 2) Insert with (generation_id, user_id) uniqueness semantics.
		fb := &domain.ProposalFeedback{
			ID:           uuid.NewString(),
			GenerationID: generationID,
			UserID:       userID,
			Value:        value,
			CreatedAt:    time.Now().UTC(),
		}
		if err := tx.Create(fb).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) || isDuplicate(err) {
				return ErrDuplicateFeedback
			}
			return err
		}
		return nil
	})
}

// isNotFound treats repo-level not found sentinels as "not found" in a
// driver-agnostic way. It also checks gorm.ErrRecordNotFound for safety.
func isNotFound(err error) bool {
	if errors.Is(err, repo.ErrNotFound) {
		return true
	}
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// isDuplicate attempts to detect unique-constraint violations across drivers
// that may not map to gorm.ErrDuplicatedKey.
func isDuplicate(err error) bool {
	// SQLite typically: "UNIQUE constraint failed"
	// Postgres typically: "duplicate key value violates unique constraint"
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key")
}
