// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate/statistics queries used
// primarily for conditional responses (e.g., ETag generation) in the HTTP
// layer. Each function is context-aware and safe to call from services or
// handlers.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/contentforge/contentforge/internal/domain"
)

// EntriesStats returns aggregate metadata for a user's content entries: the
// total number of rows and the maximum UpdatedAt timestamp among those rows.
//
// When the user has no entries, the returned count is 0 and maxUpdatedAt is
// nil.
func EntriesStats(ctx context.Context, db *gorm.DB, userID string) (count int64, maxUpdatedAt *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.ContentEntry{}).Where("user_id = ?", userID)

	// Count
	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest updated_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		UpdatedAt time.Time
	}
	if err = q.Select("updated_at").Order("updated_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.UpdatedAt, nil
}

// GenerationStats summarizes a user's recorded generation rounds.
type GenerationStats struct {
	Total       int64 `json:"total"`
	Succeeded   int64 `json:"succeeded"`
	Degraded    int64 `json:"degraded"`
	TokensTotal int64 `json:"tokens_total"`
}

// GenerationsStats aggregates counts and token spend over a user's
// generation log.
func GenerationsStats(ctx context.Context, db *gorm.DB, userID string) (*GenerationStats, error) {
	var out GenerationStats
	base := db.WithContext(ctx).Model(&domain.GenerationLog{}).Where("user_id = ?", userID)

	if err := base.Session(&gorm.Session{}).Count(&out.Total).Error; err != nil {
		return nil, err
	}
	if out.Total == 0 {
		return &out, nil
	}
	if err := base.Session(&gorm.Session{}).Where("succeeded = ?", true).Count(&out.Succeeded).Error; err != nil {
		return nil, err
	}
	if err := base.Session(&gorm.Session{}).Where("degraded = ?", true).Count(&out.Degraded).Error; err != nil {
		return nil, err
	}
	var row struct {
		Tokens int64
	}
	if err := base.Session(&gorm.Session{}).Select("COALESCE(SUM(tokens_used), 0) AS tokens").Scan(&row).Error; err != nil {
		return nil, err
	}
	out.TokensTotal = row.Tokens
	return &out, nil
}
