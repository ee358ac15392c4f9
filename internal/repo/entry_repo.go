// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// ContentEntry model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When an entry is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/contentforge/contentforge/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
//
// It aliases gorm.ErrRecordNotFound so callers can match with errors.Is.
var ErrNotFound = gorm.ErrRecordNotFound

// CreateEntry inserts a new content entry owned by userID. The record is
// serialized into the Fields column as JSON.
func CreateEntry(ctx context.Context, db *gorm.DB, userID, contentType string, rec domain.ContentRecord) (*domain.ContentEntry, error) {
	now := time.Now().UTC()
	e := &domain.ContentEntry{
		ID:          uuid.NewString(),
		UserID:      userID,
		ContentType: contentType,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := e.SetRecord(rec); err != nil {
		return nil, err
	}
	if err := db.WithContext(ctx).Create(e).Error; err != nil {
		return nil, err
	}
	return e, nil
}

// GetEntry fetches a single entry by ID, enforcing user ownership.
func GetEntry(ctx context.Context, db *gorm.DB, id, userID string) (*domain.ContentEntry, error) {
	var e domain.ContentEntry
	err := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&e).Error
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// ListEntriesPage returns a page of entries for a user, newest first.
// An empty contentType matches all types.
func ListEntriesPage(ctx context.Context, db *gorm.DB, userID, contentType string, offset, limit int) ([]domain.ContentEntry, error) {
	q := db.WithContext(ctx).Where("user_id = ?", userID)
	if contentType != "" {
		q = q.Where("content_type = ?", contentType)
	}
	var items []domain.ContentEntry
	err := q.Order("created_at DESC").Offset(offset).Limit(limit).Find(&items).Error
	return items, err
}

// CountEntries returns the total number of entries owned by the user,
// optionally filtered by content type.
func CountEntries(ctx context.Context, db *gorm.DB, userID, contentType string) (int64, error) {
	q := db.WithContext(ctx).Model(&domain.ContentEntry{}).Where("user_id = ?", userID)
	if contentType != "" {
		q = q.Where("content_type = ?", contentType)
	}
	var n int64
	err := q.Count(&n).Error
	return n, err
}

// UpdateEntryRecord replaces the stored field record of an entry, enforcing
// user ownership. Returns ErrNotFound when no row matched.
func UpdateEntryRecord(ctx context.Context, db *gorm.DB, id, userID string, rec domain.ContentRecord) error {
	var e domain.ContentEntry
	if err := e.SetRecord(rec); err != nil {
		return err
	}
	res := db.WithContext(ctx).
		Model(&domain.ContentEntry{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(map[string]any{"fields": e.Fields, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteEntry soft-deletes an entry, enforcing user ownership.
// Returns ErrNotFound when no row matched.
func DeleteEntry(ctx context.Context, db *gorm.DB, id, userID string) error {
	res := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&domain.ContentEntry{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
