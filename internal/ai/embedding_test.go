package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func TestNewEmbedderSelectsDisabledWithoutKey(t *testing.T) {
	e := NewEmbedder(EmbeddingConfig{Model: "mistral-embed"}, testLogger())
	if _, ok := e.(*DisabledEmbedder); !ok {
		t.Fatalf("expected DisabledEmbedder, got %T", e)
	}
	if e.Available() {
		t.Fatal("disabled embedder must report unavailable")
	}
}

func TestDisabledEmbedderZeroVectors(t *testing.T) {
	e := &DisabledEmbedder{}

	if got := e.EmbedMany(context.Background(), nil); len(got) != 0 {
		t.Fatalf("expected empty result for empty input, got %d", len(got))
	}

	texts := []string{"warfarin", "heparin", "aspirin"}
	vectors := e.EmbedMany(context.Background(), texts)
	if len(vectors) != len(texts) {
		t.Fatalf("expected %d vectors, got %d", len(texts), len(vectors))
	}
	for i, v := range vectors {
		if len(v) != 1024 {
			t.Fatalf("vector %d has %d dimensions, want 1024", i, len(v))
		}
		for _, f := range v {
			if f != 0 {
				t.Fatalf("vector %d is not all-zero", i)
			}
		}
	}
}

func TestMistralEmbedderBatchesAndOrders(t *testing.T) {
	var batchSizes []int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Input []string `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		batchSizes = append(batchSizes, len(req.Input))

		type item struct {
			Embedding []float32 `json:"embedding"`
		}
		resp := struct {
			Data []item `json:"data"`
		}{}
		for range req.Input {
			v := make([]float32, 1024)
			v[0] = 1
			resp.Data = append(resp.Data, item{Embedding: v})
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	e := NewEmbedder(EmbeddingConfig{BaseURL: srv.URL, APIKey: "k", Model: "mistral-embed"}, testLogger())

	texts := make([]string, 45)
	for i := range texts {
		texts[i] = "chunk"
	}
	vectors := e.EmbedMany(context.Background(), texts)
	if len(vectors) != 45 {
		t.Fatalf("expected 45 vectors, got %d", len(vectors))
	}
	if len(batchSizes) != 3 || batchSizes[0] != 20 || batchSizes[1] != 20 || batchSizes[2] != 5 {
		t.Fatalf("unexpected batch sizes %v", batchSizes)
	}
}

func TestMistralEmbedderSubstitutesZeroVectorsOnFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	e := NewEmbedder(EmbeddingConfig{BaseURL: srv.URL, APIKey: "k", Model: "mistral-embed"}, testLogger())

	vectors := e.EmbedMany(context.Background(), []string{"a", "b"})
	if len(vectors) != 2 {
		t.Fatalf("expected 2 vectors, got %d", len(vectors))
	}
	for i, v := range vectors {
		if len(v) != 1024 {
			t.Fatalf("vector %d has %d dimensions, want 1024", i, len(v))
		}
		for _, f := range v {
			if f != 0 {
				t.Fatalf("vector %d should be all-zero after provider failure", i)
			}
		}
	}
}

func TestEmbedOneReturnsFixedDimension(t *testing.T) {
	e := &DisabledEmbedder{}
	if v := e.EmbedOne(context.Background(), "query"); len(v) != 1024 {
		t.Fatalf("expected 1024 dimensions, got %d", len(v))
	}
}
