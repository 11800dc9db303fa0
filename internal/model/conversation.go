package model

import "time"

// Conversation is the unit of RAG isolation: messages, documents and chunks
// all hang off one conversation owned by one user.
type Conversation struct {
	ID            string     `gorm:"type:uuid;primaryKey" json:"id"`
	UserID        string     `gorm:"type:uuid;not null;index" json:"user_id"`
	Title         string     `gorm:"size:256;not null" json:"title"`
	Model         string     `gorm:"size:32;not null;default:'normal'" json:"model"`
	IsActive      bool       `gorm:"not null;default:true;index" json:"is_active"`
	LastMessageAt *time.Time `json:"last_message_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}
