// Package domain defines the persistence models for content entries,
// generation logs, and proposal feedback. These types are mapped with GORM
// and form the stored state of the CMS backend.
package domain

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// ContentEntry represents a stored structured content record owned by a user.
// The field values are serialized as a JSON object in Fields; the engine only
// ever sees the deserialized ContentRecord snapshot.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - UserID: identifier of the entry owner; indexed for efficient retrieval.
//   - ContentType: catalog content type the entry conforms to.
//   - Fields: JSON-serialized ContentRecord.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
//   - DeletedAt: soft deletion marker (retains row for audit/history).
type ContentEntry struct {
	ID          string         `json:"id"           gorm:"type:char(36);primaryKey"`
	UserID      string         `json:"user_id"      gorm:"type:varchar(64);not null;index:idx_user_entries"`
	ContentType string         `json:"content_type" gorm:"type:varchar(64);not null;index"`
	Fields      string         `json:"-"            gorm:"type:text;not null"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-"            gorm:"index"`
}

// TableName returns the database table name for ContentEntry.
func (ContentEntry) TableName() string { return "content_entries" }

// Record deserializes the stored field values. A corrupt payload yields an
// empty record rather than an error; the stored JSON is engine-written and
// treated as trusted.
func (e *ContentEntry) Record() ContentRecord {
	rec := ContentRecord{}
	if e.Fields != "" {
		_ = json.Unmarshal([]byte(e.Fields), &rec)
	}
	return rec
}

// SetRecord serializes rec into the entry's Fields column.
func (e *ContentEntry) SetRecord(rec ContentRecord) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	e.Fields = string(b)
	return nil
}

// GenerationLog records one generation or refinement round: what was asked,
// what came back, and how much it cost. Logs are append-only and back the
// proposal feedback feature.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - UserID: who issued the request (indexed).
//   - EntryID: optional content entry the generation targeted.
//   - SessionID: optional refinement session the round belonged to.
//   - ContentType / Mode / Instruction: the request as validated.
//   - Explanation: free-text explanation extracted from the model reply.
//   - Updates: JSON-serialized proposed field values.
//   - TokensUsed: actual token count reported by the model service.
//   - Succeeded: false when the model call failed after retries.
//   - Degraded: true when parsing extracted no fields (not an error).
type GenerationLog struct {
	ID          string         `json:"id"           gorm:"type:char(36);primaryKey"`
	UserID      string         `json:"user_id"      gorm:"type:varchar(64);not null;index:idx_user_generations"`
	EntryID     string         `json:"entry_id,omitempty"   gorm:"type:char(36);index"`
	SessionID   string         `json:"session_id,omitempty" gorm:"type:char(36);index"`
	ContentType string         `json:"content_type" gorm:"type:varchar(64);not null"`
	Mode        string         `json:"mode"         gorm:"type:varchar(16);not null"`
	Instruction string         `json:"instruction"  gorm:"type:text;not null"`
	Explanation string         `json:"explanation"  gorm:"type:text"`
	Updates     string         `json:"-"            gorm:"type:text"`
	TokensUsed  int            `json:"tokens_used"`
	Succeeded   bool           `json:"succeeded"`
	Degraded    bool           `json:"degraded"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-"            gorm:"index"`
}

// TableName returns the database table name for GenerationLog.
func (GenerationLog) TableName() string { return "generation_logs" }

// ProposalFeedback represents a user rating on a specific generation result.
// A user can only leave one feedback entry per generation (enforced by unique
// index).
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - GenerationID: foreign key to the rated generation log (unique per user).
//   - UserID: identifier of the feedback author (unique per generation).
//   - Value: +1 (positive) or -1 (negative).
type ProposalFeedback struct {
	ID           string         `json:"id"            gorm:"type:char(36);primaryKey"`
	GenerationID string         `json:"generation_id" gorm:"type:char(36);not null;index;uniqueIndex:ux_feedback_generation_user"`
	UserID       string         `json:"user_id"       gorm:"type:varchar(64);not null;index;uniqueIndex:ux_feedback_generation_user"`
	Value        int            `json:"value"         gorm:"not null;check:value IN (-1,1)"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `json:"-"             gorm:"index"`

	// Generation is the rated log row. Feedback is cascade-deleted if the
	// underlying generation is removed.
	Generation GenerationLog `json:"-" gorm:"foreignKey:GenerationID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for ProposalFeedback.
func (ProposalFeedback) TableName() string { return "proposal_feedback" }
