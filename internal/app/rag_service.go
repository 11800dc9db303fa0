package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"pharmgpt/internal/ai"
	"pharmgpt/internal/model"
	"pharmgpt/internal/pkg/textsplit"
)

var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrEmptyDocument    = errors.New("document has no extractable text")
)

const (
	defaultSimilarityThreshold = 0.7
	contextSimilarityThreshold = 0.6

	defaultSearchLimit      = 10
	allDocumentsSearchLimit = 20
	contextCandidateLimit   = 20

	maxContextTokens = 8000
	charsPerToken    = 4
	maxContextChunks = 50

	contentPreviewLength = 500
)

type DocumentStore interface {
	Create(doc *model.Document) error
	ListByConversationID(conversationID, userID string) ([]model.Document, error)
	GetByIDAndUserID(documentID, userID string) (*model.Document, error)
	UpdateStatus(documentID, status string, chunkCount int) error
}

type ChunkStore interface {
	CreateBatch(chunks []model.DocumentChunk) error
	DeleteByDocumentID(documentID string) error
	SearchSimilar(ctx context.Context, queryEmbedding []float32, userID, conversationID string, similarityThreshold float64, limit int) ([]model.SearchResult, error)
	ListConversationContext(ctx context.Context, conversationID, userID string) ([]model.ContextChunk, error)
}

type RAGService struct {
	documents DocumentStore
	chunks    ChunkStore
	embedder  ai.Embedder
	log       *logrus.Logger
}

func NewRAGService(documents DocumentStore, chunks ChunkStore, embedder ai.Embedder, log *logrus.Logger) *RAGService {
	return &RAGService{
		documents: documents,
		chunks:    chunks,
		embedder:  embedder,
		log:       log,
	}
}

type CreateDocumentInput struct {
	UserID         string
	ConversationID string
	Filename       string
	FileType       string
	FileSize       int64
	Content        string
}

// CreateDocument registers a pending document row ahead of asynchronous
// chunking. The stored preview is the first part of the raw text.
func (s *RAGService) CreateDocument(ctx context.Context, input CreateDocumentInput) (*model.Document, error) {
	if input.UserID == "" || input.ConversationID == "" || input.Filename == "" {
		return nil, ErrInvalidInput
	}

	doc := &model.Document{
		ID:               uuid.NewString(),
		ConversationID:   input.ConversationID,
		UserID:           input.UserID,
		Filename:         input.Filename,
		FileType:         input.FileType,
		FileSize:         input.FileSize,
		ContentPreview:   preview(input.Content),
		ProcessingStatus: model.DocumentStatusPending,
	}
	if err := s.documents.Create(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// ProcessDocument chunks and embeds the document text and persists the
// chunks. The document finishes as completed or failed. Failed rows are
// kept so the upload history shows what went wrong.
func (s *RAGService) ProcessDocument(ctx context.Context, doc *model.Document, content string, class textsplit.SizeClass) (int, error) {
	splitter := textsplit.New(class)
	pieces := splitter.Split(content)
	if len(pieces) == 0 {
		s.failDocument(doc.ID)
		return 0, ErrEmptyDocument
	}

	embeddings := s.embedder.EmbedMany(ctx, pieces)
	degraded := !s.embedder.Available()

	now := time.Now().UTC()
	rows := make([]model.DocumentChunk, 0, len(pieces))
	for i, piece := range pieces {
		meta := model.ChunkMetadata{
			Filename:          doc.Filename,
			FileType:          doc.FileType,
			ChunkIndex:        i,
			ChunkLength:       len(piece),
			WordCount:         len(strings.Fields(piece)),
			ProcessedAt:       now.Format(time.RFC3339),
			EmbeddingDegraded: degraded,
		}
		metaJSON, err := json.Marshal(meta)
		if err != nil {
			s.failDocument(doc.ID)
			return 0, fmt.Errorf("marshal chunk metadata failed: %w", err)
		}

		rows = append(rows, model.DocumentChunk{
			ID:             uuid.NewString(),
			DocumentID:     doc.ID,
			ConversationID: doc.ConversationID,
			UserID:         doc.UserID,
			ChunkIndex:     i,
			Content:        piece,
			Embedding:      pgvector.NewVector(embeddings[i]),
			Metadata:       datatypes.JSON(metaJSON),
		})
	}

	if err := s.chunks.CreateBatch(rows); err != nil {
		s.failDocument(doc.ID)
		return 0, err
	}

	if err := s.documents.UpdateStatus(doc.ID, model.DocumentStatusCompleted, len(rows)); err != nil {
		return len(rows), err
	}

	s.log.WithFields(logrus.Fields{
		"document_id": doc.ID,
		"filename":    doc.Filename,
		"chunks":      len(rows),
		"degraded":    degraded,
	}).Info("document processed")
	return len(rows), nil
}

func (s *RAGService) failDocument(documentID string) {
	if err := s.documents.UpdateStatus(documentID, model.DocumentStatusFailed, 0); err != nil {
		s.log.WithError(err).WithField("document_id", documentID).Error("mark document failed errored")
	}
}

func (s *RAGService) ListDocuments(ctx context.Context, userID, conversationID string) ([]model.Document, error) {
	if userID == "" || conversationID == "" {
		return nil, ErrInvalidInput
	}
	return s.documents.ListByConversationID(conversationID, userID)
}

func (s *RAGService) GetDocument(ctx context.Context, userID, documentID string) (*model.Document, error) {
	if userID == "" || documentID == "" {
		return nil, ErrInvalidInput
	}
	doc, err := s.documents.GetByIDAndUserID(documentID, userID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, ErrDocumentNotFound
	}
	return doc, nil
}

// SearchConversation ranks a conversation's chunks against the query.
// A disabled embedder yields a zero query vector, which matches nothing
// above the threshold, so degraded mode searches return empty results
// rather than errors.
func (s *RAGService) SearchConversation(ctx context.Context, userID, conversationID, query string, limit int, threshold float64) ([]model.SearchResult, error) {
	if userID == "" || conversationID == "" || strings.TrimSpace(query) == "" {
		return nil, ErrInvalidInput
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if threshold <= 0 {
		threshold = defaultSimilarityThreshold
	}
	embedding := s.embedder.EmbedOne(ctx, query)
	return s.chunks.SearchSimilar(ctx, embedding, userID, conversationID, threshold, limit)
}

// SearchAllDocuments searches across every conversation of the user.
func (s *RAGService) SearchAllDocuments(ctx context.Context, userID, query string, limit int) ([]model.SearchResult, error) {
	if userID == "" || strings.TrimSpace(query) == "" {
		return nil, ErrInvalidInput
	}
	if limit <= 0 {
		limit = allDocumentsSearchLimit
	}
	embedding := s.embedder.EmbedOne(ctx, query)
	return s.chunks.SearchSimilar(ctx, embedding, userID, "", defaultSimilarityThreshold, limit)
}

// RelevantContext assembles a token-budgeted context string for a query.
// Chunks arrive ranked by similarity; the budget cut keeps whole chunks
// and stops at the first one that would overflow.
func (s *RAGService) RelevantContext(ctx context.Context, userID, conversationID, query string) (string, error) {
	results, err := s.chunks.SearchSimilar(
		ctx,
		s.embedder.EmbedOne(ctx, query),
		userID,
		conversationID,
		contextSimilarityThreshold,
		contextCandidateLimit,
	)
	if err != nil {
		return "", err
	}

	var parts []string
	totalChars := 0
	for _, r := range results {
		if (totalChars+len(r.Content))/charsPerToken > maxContextTokens {
			break
		}
		parts = append(parts, fmt.Sprintf("[%s] %s", r.Filename, r.Content))
		totalChars += len(r.Content)
	}
	return strings.Join(parts, "\n\n"), nil
}

// ConversationContext renders every processed chunk of a conversation,
// grouped by file with markdown headers, capped at maxContextChunks.
func (s *RAGService) ConversationContext(ctx context.Context, userID, conversationID string) (string, error) {
	if userID == "" || conversationID == "" {
		return "", ErrInvalidInput
	}

	rows, err := s.chunks.ListConversationContext(ctx, conversationID, userID)
	if err != nil {
		return "", err
	}
	if len(rows) > maxContextChunks {
		rows = rows[:maxContextChunks]
	}

	var b strings.Builder
	currentFile := ""
	for _, row := range rows {
		if row.Filename != currentFile {
			if currentFile != "" {
				b.WriteString("\n---\n")
			}
			fmt.Fprintf(&b, "**File: %s**\n", row.Filename)
			currentFile = row.Filename
		}
		b.WriteString(row.Content)
		b.WriteString("\n\n")
	}
	return strings.TrimSpace(b.String()), nil
}

func preview(content string) string {
	runes := []rune(content)
	if len(runes) <= contentPreviewLength {
		return content
	}
	return string(runes[:contentPreviewLength])
}
