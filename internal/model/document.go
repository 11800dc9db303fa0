package model

import "time"

const (
	DocumentStatusPending   = "pending"
	DocumentStatusCompleted = "completed"
	DocumentStatusFailed    = "failed"
)

type Document struct {
	ID               string    `gorm:"type:uuid;primaryKey" json:"id"`
	ConversationID   string    `gorm:"type:uuid;not null;index" json:"conversation_id"`
	UserID           string    `gorm:"type:uuid;not null;index" json:"user_id"`
	Filename         string    `gorm:"size:256;not null" json:"filename"`
	FileType         string    `gorm:"size:32" json:"file_type"`
	FileSize         int64     `json:"file_size"`
	ContentPreview   string    `gorm:"type:text" json:"content_preview,omitempty"`
	ProcessingStatus string    `gorm:"size:16;not null;default:'pending';index" json:"processing_status"`
	ChunkCount       int       `gorm:"not null;default:0" json:"chunk_count"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}
