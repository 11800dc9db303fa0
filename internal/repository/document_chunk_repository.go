package repository

import (
	"context"
	"fmt"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"pharmgpt/internal/model"
)

// chunkInsertBatchSize bounds the number of rows per INSERT statement.
const chunkInsertBatchSize = 100

type DocumentChunkRepository struct {
	db *gorm.DB
}

func NewDocumentChunkRepository(db *gorm.DB) *DocumentChunkRepository {
	return &DocumentChunkRepository{db: db}
}

// CreateBatch inserts all chunks of one document, at most 100 rows per
// statement.
func (r *DocumentChunkRepository) CreateBatch(chunks []model.DocumentChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	if err := r.db.CreateInBatches(&chunks, chunkInsertBatchSize).Error; err != nil {
		return fmt.Errorf("create document chunks batch failed: %w", err)
	}
	return nil
}

func (r *DocumentChunkRepository) DeleteByDocumentID(documentID string) error {
	if err := r.db.Where("document_id = ?", documentID).Delete(&model.DocumentChunk{}).Error; err != nil {
		return fmt.Errorf("delete document chunks failed: %w", err)
	}
	return nil
}

// SearchSimilar runs the cosine-similarity search over the user's chunks.
// conversationID narrows the search to one conversation; an empty string
// searches across all of the user's documents. Results come back ranked by
// similarity, highest first.
func (r *DocumentChunkRepository) SearchSimilar(
	ctx context.Context,
	queryEmbedding []float32,
	userID string,
	conversationID string,
	similarityThreshold float64,
	limit int,
) ([]model.SearchResult, error) {
	if limit <= 0 {
		limit = 10
	}
	vec := pgvector.NewVector(queryEmbedding)

	q := r.db.WithContext(ctx).
		Table("document_chunks AS dc").
		Select(
			"dc.id AS chunk_id, dc.document_id, d.filename, dc.content, dc.metadata, 1 - (dc.embedding <=> ?) AS similarity",
			vec,
		).
		Joins("JOIN documents d ON d.id = dc.document_id").
		Where("dc.user_id = ?", userID).
		Where("1 - (dc.embedding <=> ?) >= ?", vec, similarityThreshold)

	if conversationID != "" {
		q = q.Where("dc.conversation_id = ?", conversationID)
	}

	var results []model.SearchResult
	err := q.
		Clauses(clause.OrderBy{
			Expression: clause.Expr{SQL: "dc.embedding <=> ?", Vars: []interface{}{vec}},
		}).
		Limit(limit).
		Scan(&results).Error
	if err != nil {
		return nil, fmt.Errorf("vector similarity search failed: %w", err)
	}
	return results, nil
}

// ListConversationContext returns every chunk of a conversation ordered by
// source filename then chunk index, for exhaustive context assembly.
func (r *DocumentChunkRepository) ListConversationContext(
	ctx context.Context,
	conversationID, userID string,
) ([]model.ContextChunk, error) {
	var rows []model.ContextChunk
	err := r.db.WithContext(ctx).
		Table("document_chunks AS dc").
		Select("d.filename, dc.chunk_index, dc.content").
		Joins("JOIN documents d ON d.id = dc.document_id").
		Where("dc.conversation_id = ? AND dc.user_id = ?", conversationID, userID).
		Order("d.filename ASC, dc.chunk_index ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list conversation context failed: %w", err)
	}
	return rows, nil
}
