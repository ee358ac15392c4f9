// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// GenerationLog model, which records every generation round (initial or
// refinement) for audit and feedback purposes.
package repo

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/contentforge/contentforge/internal/domain"
)

// GenerationLogParams carries the fields of one generation round to persist.
type GenerationLogParams struct {
	ID          string
	UserID      string
	EntryID     string
	SessionID   string
	ContentType string
	Mode        string
	Instruction string
	Explanation string
	Updates     map[string]string
	TokensUsed  int
	Succeeded   bool
	Degraded    bool
}

// CreateGenerationLog inserts one generation round. When p.ID is empty a
// fresh UUID is assigned.
func CreateGenerationLog(ctx context.Context, db *gorm.DB, p GenerationLogParams) (*domain.GenerationLog, error) {
	id := p.ID
	if id == "" {
		id = uuid.NewString()
	}
	var updates string
	if p.Updates != nil {
		b, err := json.Marshal(p.Updates)
		if err != nil {
			return nil, err
		}
		updates = string(b)
	}
	g := &domain.GenerationLog{
		ID:          id,
		UserID:      p.UserID,
		EntryID:     p.EntryID,
		SessionID:   p.SessionID,
		ContentType: p.ContentType,
		Mode:        p.Mode,
		Instruction: p.Instruction,
		Explanation: p.Explanation,
		Updates:     updates,
		TokensUsed:  p.TokensUsed,
		Succeeded:   p.Succeeded,
		Degraded:    p.Degraded,
		CreatedAt:   time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(g).Error; err != nil {
		return nil, err
	}
	return g, nil
}

// GetGenerationLog fetches a generation round by ID, enforcing user
// ownership. Returns ErrNotFound when missing.
func GetGenerationLog(ctx context.Context, db *gorm.DB, id, userID string) (*domain.GenerationLog, error) {
	var g domain.GenerationLog
	err := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&g).Error
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// CountGenerations returns how many rounds a user has recorded.
func CountGenerations(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.GenerationLog{}).
		Where("user_id = ?", userID).
		Count(&n).Error
	return n, err
}

// ListGenerationsPage returns a page of a user's generation rounds, newest
// first, optionally scoped to one entry.
func ListGenerationsPage(ctx context.Context, db *gorm.DB, userID, entryID string, offset, limit int) ([]domain.GenerationLog, error) {
	q := db.WithContext(ctx).Where("user_id = ?", userID)
	if entryID != "" {
		q = q.Where("entry_id = ?", entryID)
	}
	var items []domain.GenerationLog
	err := q.Order("created_at DESC").Offset(offset).Limit(limit).Find(&items).Error
	return items, err
}
