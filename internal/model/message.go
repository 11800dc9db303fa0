package model

import (
	"time"

	"gorm.io/datatypes"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message is append-only; MessageIndex is strictly increasing per
// conversation, enforced by a unique index on (conversation_id, message_index).
type Message struct {
	ID             string         `gorm:"type:uuid;primaryKey" json:"id"`
	ConversationID string         `gorm:"type:uuid;not null;index;uniqueIndex:idx_messages_conversation_index,priority:1" json:"conversation_id"`
	UserID         string         `gorm:"type:uuid;not null;index" json:"user_id"`
	Role           string         `gorm:"size:16;not null" json:"role"`
	Content        string         `gorm:"type:text;not null" json:"content"`
	Model          string         `gorm:"size:32" json:"model,omitempty"`
	MessageIndex   int            `gorm:"not null;uniqueIndex:idx_messages_conversation_index,priority:2" json:"message_index"`
	Metadata       datatypes.JSON `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}
