package repository

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"pharmgpt/internal/model"
)

type ConversationRepository struct {
	db *gorm.DB
}

func NewConversationRepository(db *gorm.DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

func (r *ConversationRepository) Create(conversation *model.Conversation) error {
	if err := r.db.Create(conversation).Error; err != nil {
		return fmt.Errorf("create conversation failed: %w", err)
	}
	return nil
}

// ListActiveByUserID returns the user's conversations, most recently updated
// first. Soft-deleted conversations are excluded.
func (r *ConversationRepository) ListActiveByUserID(userID string) ([]model.Conversation, error) {
	var conversations []model.Conversation
	err := r.db.
		Where("user_id = ? AND is_active = ?", userID, true).
		Order("updated_at DESC").
		Find(&conversations).Error
	if err != nil {
		return nil, fmt.Errorf("list conversations failed: %w", err)
	}
	return conversations, nil
}

func (r *ConversationRepository) GetByIDAndUserID(conversationID, userID string) (*model.Conversation, error) {
	var conversation model.Conversation
	err := r.db.
		Where("id = ? AND user_id = ? AND is_active = ?", conversationID, userID, true).
		First(&conversation).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get conversation failed: %w", err)
	}
	return &conversation, nil
}

func (r *ConversationRepository) UpdateTitle(conversationID, userID, title string) (bool, error) {
	res := r.db.Model(&model.Conversation{}).
		Where("id = ? AND user_id = ? AND is_active = ?", conversationID, userID, true).
		Update("title", title)
	if res.Error != nil {
		return false, fmt.Errorf("update conversation title failed: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// SoftDelete flips is_active instead of removing the row; messages, documents
// and chunks stay in place for later inspection.
func (r *ConversationRepository) SoftDelete(conversationID, userID string) (bool, error) {
	res := r.db.Model(&model.Conversation{}).
		Where("id = ? AND user_id = ? AND is_active = ?", conversationID, userID, true).
		Update("is_active", false)
	if res.Error != nil {
		return false, fmt.Errorf("soft delete conversation failed: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// TouchLastMessage bumps the last-message marker so the conversation list
// sorts fresh activity first.
func (r *ConversationRepository) TouchLastMessage(conversationID string, at time.Time) error {
	err := r.db.Model(&model.Conversation{}).
		Where("id = ?", conversationID).
		Updates(map[string]interface{}{
			"last_message_at": at,
			"updated_at":      at,
		}).Error
	if err != nil {
		return fmt.Errorf("touch conversation failed: %w", err)
	}
	return nil
}
