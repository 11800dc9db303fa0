package repository

import (
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"pharmgpt/internal/model"
)

type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// Create assigns the next per-conversation message index and inserts the row
// in one transaction. The conversation row is locked FOR UPDATE first so
// concurrent appends to the same conversation serialize on the MAX read;
// the unique index on (conversation_id, message_index) backstops the lock.
func (r *MessageRepository) Create(message *model.Message) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var conv model.Conversation
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id").
			Where("id = ?", message.ConversationID).
			First(&conv).Error
		if err != nil {
			return err
		}

		var next int
		err = tx.Raw(
			"SELECT COALESCE(MAX(message_index) + 1, 0) FROM messages WHERE conversation_id = ?",
			message.ConversationID,
		).Scan(&next).Error
		if err != nil {
			return err
		}
		message.MessageIndex = next
		return tx.Create(message).Error
	})
	if err != nil {
		return fmt.Errorf("create message failed: %w", err)
	}
	return nil
}

func (r *MessageRepository) ListByConversationID(conversationID, userID string, limit int) ([]model.Message, error) {
	if limit <= 0 || limit > 500 {
		limit = 200
	}

	var messages []model.Message
	err := r.db.
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Order("message_index ASC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("list messages failed: %w", err)
	}
	return messages, nil
}

func (r *MessageRepository) CountByConversationID(conversationID string) (int64, error) {
	var count int64
	err := r.db.Model(&model.Message{}).
		Where("conversation_id = ?", conversationID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count messages failed: %w", err)
	}
	return count, nil
}
