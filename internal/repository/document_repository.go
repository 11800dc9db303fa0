package repository

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"pharmgpt/internal/model"
)

type DocumentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) Create(doc *model.Document) error {
	if err := r.db.Create(doc).Error; err != nil {
		return fmt.Errorf("create document failed: %w", err)
	}
	return nil
}

func (r *DocumentRepository) ListByConversationID(conversationID, userID string) ([]model.Document, error) {
	var docs []model.Document
	err := r.db.
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Order("created_at DESC").
		Find(&docs).Error
	if err != nil {
		return nil, fmt.Errorf("list documents failed: %w", err)
	}
	return docs, nil
}

func (r *DocumentRepository) GetByIDAndUserID(documentID, userID string) (*model.Document, error) {
	var doc model.Document
	err := r.db.Where("id = ? AND user_id = ?", documentID, userID).First(&doc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get document failed: %w", err)
	}
	return &doc, nil
}

// UpdateStatus records the pending → completed|failed transition together
// with the resulting chunk count. The row is never deleted on failure.
func (r *DocumentRepository) UpdateStatus(documentID, status string, chunkCount int) error {
	err := r.db.Model(&model.Document{}).
		Where("id = ?", documentID).
		Updates(map[string]interface{}{
			"processing_status": status,
			"chunk_count":       chunkCount,
		}).Error
	if err != nil {
		return fmt.Errorf("update document status failed: %w", err)
	}
	return nil
}
