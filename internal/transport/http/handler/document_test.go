package handler

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"pharmgpt/internal/app"
	"pharmgpt/internal/cache"
	"pharmgpt/internal/model"
	"pharmgpt/internal/platform/rabbitmq"
	"pharmgpt/internal/transport/http/middleware"
)

type fakeConversationStore struct {
	conversations []model.Conversation
}

func (f *fakeConversationStore) Create(*model.Conversation) error { return nil }
func (f *fakeConversationStore) ListActiveByUserID(userID string) ([]model.Conversation, error) {
	var out []model.Conversation
	for _, c := range f.conversations {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}
func (f *fakeConversationStore) UpdateTitle(string, string, string) (bool, error) { return false, nil }
func (f *fakeConversationStore) SoftDelete(string, string) (bool, error)          { return false, nil }
func (f *fakeConversationStore) TouchLastMessage(string, time.Time) error         { return nil }

type fakeMessageStore struct{}

func (fakeMessageStore) Create(*model.Message) error { return nil }
func (fakeMessageStore) ListByConversationID(string, string, int) ([]model.Message, error) {
	return nil, nil
}

type fakeDocumentStore struct {
	created []*model.Document
}

func (f *fakeDocumentStore) Create(doc *model.Document) error {
	f.created = append(f.created, doc)
	return nil
}
func (f *fakeDocumentStore) ListByConversationID(string, string) ([]model.Document, error) {
	return nil, nil
}
func (f *fakeDocumentStore) GetByIDAndUserID(string, string) (*model.Document, error) {
	return nil, nil
}
func (f *fakeDocumentStore) UpdateStatus(string, string, int) error { return nil }

type fakeChunkStore struct{}

func (fakeChunkStore) CreateBatch([]model.DocumentChunk) error { return nil }
func (fakeChunkStore) DeleteByDocumentID(string) error         { return nil }
func (fakeChunkStore) SearchSimilar(context.Context, []float32, string, string, float64, int) ([]model.SearchResult, error) {
	return nil, nil
}
func (fakeChunkStore) ListConversationContext(context.Context, string, string) ([]model.ContextChunk, error) {
	return nil, nil
}

type fakeEmbedder struct{}

func (fakeEmbedder) EmbedMany(_ context.Context, texts []string) [][]float32 {
	return make([][]float32, len(texts))
}
func (fakeEmbedder) EmbedOne(context.Context, string) []float32 { return nil }
func (fakeEmbedder) Available() bool                            { return false }
func (fakeEmbedder) Dimensions() int                            { return 1024 }

type fakeJobQueue struct {
	published []rabbitmq.DocumentJob
}

func (f *fakeJobQueue) Publish(_ context.Context, job rabbitmq.DocumentJob) error {
	f.published = append(f.published, job)
	return nil
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func uploadTestRouter(t *testing.T, userID string) (*gin.Engine, *fakeDocumentStore, *fakeJobQueue, *DocumentHandler) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	conversations := &fakeConversationStore{conversations: []model.Conversation{
		{ID: "c1", UserID: userID, Title: "drug interactions"},
	}}
	documents := &fakeDocumentStore{}
	queue := &fakeJobQueue{}

	conversationService := app.NewConversationService(conversations, fakeMessageStore{}, cache.NewMemoryCache(), quietLogger())
	ragService := app.NewRAGService(documents, fakeChunkStore{}, fakeEmbedder{}, quietLogger())
	handler := NewDocumentHandler(ragService, conversationService, queue)

	router := gin.New()
	router.Use(func(c *gin.Context) { c.Set(middleware.ContextUserIDKey, userID) })
	router.POST("/documents/upload", handler.Upload)
	return router, documents, queue, handler
}

func multipartUpload(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := writer.WriteField("conversation_id", "c1"); err != nil {
		t.Fatalf("write field: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return body, writer.FormDataContentType()
}

// PDF extraction yields far less text than the file holds; the stored
// file size must reflect the uploaded bytes, not the extracted text.
func TestUploadRecordsUploadedFileSize(t *testing.T) {
	router, documents, queue, handler := uploadTestRouter(t, "u1")

	raw := bytes.Repeat([]byte("%binary-page-data%\n"), 64)
	extracted := "Amiodarone prolongs the QT interval."
	handler.extract = func(file *multipart.FileHeader, ext string) (string, string, error) {
		return extracted, "pdf", nil
	}

	body, contentType := multipartUpload(t, "cardio-notes.pdf", raw)
	req := httptest.NewRequest(http.MethodPost, "/documents/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if len(documents.created) != 1 {
		t.Fatalf("created %d documents, want 1", len(documents.created))
	}
	doc := documents.created[0]
	if doc.FileSize != int64(len(raw)) {
		t.Fatalf("FileSize = %d, want uploaded size %d (extracted text is %d bytes)",
			doc.FileSize, len(raw), len(extracted))
	}
	if len(queue.published) != 1 {
		t.Fatalf("published %d jobs, want 1", len(queue.published))
	}
	if queue.published[0].Content != extracted {
		t.Fatalf("queued content = %q, want the extracted text", queue.published[0].Content)
	}
}

func TestUploadRejectsForeignConversation(t *testing.T) {
	router, documents, _, _ := uploadTestRouter(t, "u1")

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, _ := writer.CreateFormFile("file", "notes.txt")
	part.Write([]byte("verapamil"))
	writer.WriteField("conversation_id", "someone-elses")
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/documents/upload", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if len(documents.created) != 0 {
		t.Fatalf("no document should be created, got %d", len(documents.created))
	}
}
