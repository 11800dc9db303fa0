package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// EmbeddingConfig holds API settings for text embedding (OpenAI-compatible).
type EmbeddingConfig struct {
	BaseURL string
	APIKey  string
	Model   string
}

const (
	embeddingBatchSize  = 20
	interBatchDelay     = 100 * time.Millisecond
	embeddingDimensions = 1024
)

// Embedder converts text into fixed-dimension vectors. Implementations never
// return an error: on any provider failure the missing results are replaced
// with zero vectors so document processing can continue degraded.
//
// Availability is decided once at construction and not re-checked per call;
// credentials becoming valid mid-process require a restart.
type Embedder interface {
	EmbedMany(ctx context.Context, texts []string) [][]float32
	EmbedOne(ctx context.Context, text string) []float32
	Available() bool
	Dimensions() int
}

// NewEmbedder selects the real or the degraded implementation depending on
// whether an API key is configured.
func NewEmbedder(cfg EmbeddingConfig, log *logrus.Logger) Embedder {
	if strings.TrimSpace(cfg.APIKey) == "" {
		log.Warn("embedding API key not configured, running in zero-vector mode")
		return &DisabledEmbedder{}
	}
	return &MistralEmbedder{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		log:        log,
	}
}

// MistralEmbedder calls an OpenAI-compatible /embeddings endpoint
// (mistral-embed, 1024 dimensions) in rate-limit-friendly batches.
type MistralEmbedder struct {
	cfg        EmbeddingConfig
	httpClient *http.Client
	log        *logrus.Logger
}

func (e *MistralEmbedder) Available() bool { return true }

func (e *MistralEmbedder) Dimensions() int { return embeddingDimensions }

func (e *MistralEmbedder) EmbedMany(ctx context.Context, texts []string) [][]float32 {
	if len(texts) == 0 {
		return [][]float32{}
	}

	out := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += embeddingBatchSize {
		end := i + embeddingBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[i:end]

		vectors, err := e.requestEmbeddings(ctx, batch)
		if err != nil || len(vectors) != len(batch) {
			if err != nil {
				e.log.WithError(err).Error("embedding batch failed, substituting zero vectors")
			} else {
				e.log.WithFields(logrus.Fields{
					"want": len(batch), "got": len(vectors),
				}).Error("embedding count mismatch, substituting zero vectors")
			}
			vectors = make([][]float32, len(batch))
		}
		for _, v := range vectors {
			out = append(out, normalizeDimensions(v))
		}

		// Batches are issued sequentially to respect provider rate limits.
		if end < len(texts) {
			select {
			case <-ctx.Done():
				for len(out) < len(texts) {
					out = append(out, ZeroVector())
				}
				return out
			case <-time.After(interBatchDelay):
			}
		}
	}
	return out
}

func (e *MistralEmbedder) EmbedOne(ctx context.Context, text string) []float32 {
	return e.EmbedMany(ctx, []string{text})[0]
}

func (e *MistralEmbedder) requestEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	reqBody := map[string]interface{}{
		"model": e.cfg.Model,
		"input": texts,
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal embedding request failed: %w", err)
	}

	url := strings.TrimRight(e.cfg.BaseURL, "/") + "/embeddings"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("build embedding request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.cfg.APIKey)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read embedding response failed: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("embedding response status %d: %s", resp.StatusCode, string(raw))
	}

	var parsed struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parse embedding json failed: %w", err)
	}
	result := make([][]float32, len(parsed.Data))
	for i := range parsed.Data {
		result[i] = parsed.Data[i].Embedding
	}
	return result, nil
}

// DisabledEmbedder is the degraded variant selected when no embedding
// credentials are configured. Every call yields zero vectors.
type DisabledEmbedder struct{}

func (d *DisabledEmbedder) Available() bool { return false }

func (d *DisabledEmbedder) Dimensions() int { return embeddingDimensions }

func (d *DisabledEmbedder) EmbedMany(_ context.Context, texts []string) [][]float32 {
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = ZeroVector()
	}
	return out
}

func (d *DisabledEmbedder) EmbedOne(_ context.Context, _ string) []float32 {
	return ZeroVector()
}

// ZeroVector returns an all-zero embedding of the fixed dimension.
func ZeroVector() []float32 {
	return make([]float32, embeddingDimensions)
}

func normalizeDimensions(v []float32) []float32 {
	if len(v) == embeddingDimensions {
		return v
	}
	if len(v) == 0 {
		return ZeroVector()
	}
	fixed := make([]float32, embeddingDimensions)
	copy(fixed, v)
	return fixed
}
