package handler

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"pharmgpt/internal/app"
	"pharmgpt/internal/platform/rabbitmq"
	"pharmgpt/internal/transport/http/response"
)

const maxUploadSize = 10 << 20 // 10 MB

// DocumentJobQueue hands processing jobs to the ingestion worker.
type DocumentJobQueue interface {
	Publish(ctx context.Context, job rabbitmq.DocumentJob) error
}

type DocumentHandler struct {
	ragService          *app.RAGService
	conversationService *app.ConversationService
	publisher           DocumentJobQueue
	extract             func(file *multipart.FileHeader, ext string) (string, string, error)
}

type CreateDocumentRequest struct {
	ConversationID string `json:"conversation_id" binding:"required"`
	Filename       string `json:"filename" binding:"required,max=255"`
	Content        string `json:"content" binding:"required"`
	ChunkSize      string `json:"chunk_size"`
}

type SearchRequest struct {
	Query          string  `json:"query" binding:"required"`
	ConversationID string  `json:"conversation_id"`
	Limit          int     `json:"limit"`
	Threshold      float64 `json:"threshold"`
}

func NewDocumentHandler(
	ragService *app.RAGService,
	conversationService *app.ConversationService,
	publisher DocumentJobQueue,
) *DocumentHandler {
	return &DocumentHandler{
		ragService:          ragService,
		conversationService: conversationService,
		publisher:           publisher,
		extract:             extractUpload,
	}
}

// Upload accepts a multipart form with "file" (.pdf, .txt or .md),
// "conversation_id", and optional "chunk_size" (small, medium, large).
// The document row is created as pending and processing is queued.
func (h *DocumentHandler) Upload(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	conversationID := strings.TrimSpace(c.PostForm("conversation_id"))
	if conversationID == "" {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing conversation_id")
		return
	}
	if !h.requireOwnership(c, userID, conversationID) {
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing file")
		return
	}
	if file.Size > maxUploadSize {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "file too large (max 10MB)")
		return
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	text, fileType, err := h.extract(file, ext)
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(text) == "" {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "file contains no extractable text")
		return
	}

	// FileSize records the uploaded file, not the extracted text.
	h.enqueue(c, userID, conversationID, file.Filename, fileType, file.Size, text, c.PostForm("chunk_size"))
}

// CreateFromText ingests raw text posted as JSON, for pasted content.
func (h *DocumentHandler) CreateFromText(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	var req CreateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	if !h.requireOwnership(c, userID, req.ConversationID) {
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "content is empty")
		return
	}

	h.enqueue(c, userID, req.ConversationID, req.Filename, "txt", int64(len(req.Content)), req.Content, req.ChunkSize)
}

func (h *DocumentHandler) enqueue(c *gin.Context, userID, conversationID, filename, fileType string, size int64, content, chunkSize string) {
	doc, err := h.ragService.CreateDocument(c.Request.Context(), app.CreateDocumentInput{
		UserID:         userID,
		ConversationID: conversationID,
		Filename:       filename,
		FileType:       fileType,
		FileSize:       size,
		Content:        content,
	})
	if err != nil {
		if errors.Is(err, app.ErrInvalidInput) {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		} else {
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "create document failed")
		}
		return
	}

	err = h.publisher.Publish(c.Request.Context(), rabbitmq.DocumentJob{
		DocumentID:     doc.ID,
		ConversationID: conversationID,
		UserID:         userID,
		Filename:       filename,
		FileType:       fileType,
		Content:        content,
		ChunkSize:      chunkSize,
	})
	if err != nil {
		response.Error(c, http.StatusServiceUnavailable, response.CodeInternalServer, "queue document processing failed")
		return
	}

	response.OK(c, doc)
}

func (h *DocumentHandler) List(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	conversationID := c.Query("conversation_id")
	if conversationID == "" {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing conversation_id")
		return
	}
	if !h.requireOwnership(c, userID, conversationID) {
		return
	}

	docs, err := h.ragService.ListDocuments(c.Request.Context(), userID, conversationID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "list documents failed")
		return
	}
	response.OK(c, docs)
}

func (h *DocumentHandler) Get(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	doc, err := h.ragService.GetDocument(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		case errors.Is(err, app.ErrDocumentNotFound):
			response.Error(c, http.StatusNotFound, response.CodeDocumentNotFound, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "get document failed")
		}
		return
	}
	response.OK(c, doc)
}

// Search ranks document chunks against a query. With a conversation_id
// the search is scoped to that conversation, otherwise it spans all of
// the user's documents.
func (h *DocumentHandler) Search(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	var results interface{}
	var err error
	if req.ConversationID != "" {
		if !h.requireOwnership(c, userID, req.ConversationID) {
			return
		}
		results, err = h.ragService.SearchConversation(c.Request.Context(), userID, req.ConversationID, req.Query, req.Limit, req.Threshold)
	} else {
		results, err = h.ragService.SearchAllDocuments(c.Request.Context(), userID, req.Query, req.Limit)
	}
	if err != nil {
		if errors.Is(err, app.ErrInvalidInput) {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		} else {
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "search failed")
		}
		return
	}
	response.OK(c, results)
}

// Context renders the full document context of a conversation, grouped
// by file.
func (h *DocumentHandler) Context(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	conversationID := c.Param("id")
	if !h.requireOwnership(c, userID, conversationID) {
		return
	}

	context, err := h.ragService.ConversationContext(c.Request.Context(), userID, conversationID)
	if err != nil {
		if errors.Is(err, app.ErrInvalidInput) {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		} else {
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "assemble context failed")
		}
		return
	}
	response.OK(c, gin.H{"conversation_id": conversationID, "context": context})
}

func (h *DocumentHandler) requireOwnership(c *gin.Context, userID, conversationID string) bool {
	owns, err := h.conversationService.OwnsConversation(c.Request.Context(), userID, conversationID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "verify conversation failed")
		return false
	}
	if !owns {
		response.Error(c, http.StatusNotFound, response.CodeConversationNotFound, "conversation not found")
		return false
	}
	return true
}
