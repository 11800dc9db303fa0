package model

import (
	"time"

	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

// EmbeddingDimensions is the fixed width of every stored vector
// (mistral-embed output size).
const EmbeddingDimensions = 1024

// DocumentChunk rows are written once, in a single batch per document, and
// only ever removed together with their parent document.
type DocumentChunk struct {
	ID             string          `gorm:"type:uuid;primaryKey" json:"id"`
	DocumentID     string          `gorm:"type:uuid;not null;index" json:"document_id"`
	ConversationID string          `gorm:"type:uuid;not null;index" json:"conversation_id"`
	UserID         string          `gorm:"type:uuid;not null;index" json:"user_id"`
	ChunkIndex     int             `gorm:"not null" json:"chunk_index"`
	Content        string          `gorm:"type:text;not null" json:"content"`
	Embedding      pgvector.Vector `gorm:"type:vector(1024)" json:"-"`
	Metadata       datatypes.JSON  `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

func (DocumentChunk) TableName() string { return "document_chunks" }

// ChunkMetadata is the shape serialized into DocumentChunk.Metadata.
type ChunkMetadata struct {
	Filename          string `json:"filename"`
	FileType          string `json:"file_type"`
	ChunkIndex        int    `json:"chunk_index"`
	ChunkLength       int    `json:"chunk_length"`
	WordCount         int    `json:"word_count"`
	ProcessedAt       string `json:"processed_at"`
	EmbeddingDegraded bool   `json:"embedding_degraded,omitempty"`
}

// SearchResult is one ranked hit from the vector similarity search.
type SearchResult struct {
	ChunkID    string         `json:"chunk_id"`
	DocumentID string         `json:"document_id"`
	Filename   string         `json:"filename"`
	Content    string         `json:"content"`
	Metadata   datatypes.JSON `json:"metadata,omitempty"`
	Similarity float64        `json:"similarity"`
}

// ContextChunk is one row of the full-conversation context listing.
type ContextChunk struct {
	Filename   string `json:"filename"`
	ChunkIndex int    `json:"chunk_index"`
	Content    string `json:"content"`
}
