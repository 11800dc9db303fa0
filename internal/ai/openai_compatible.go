package ai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ChatMessage is a single turn in a chat completion request.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatConfig selects an OpenAI-compatible upstream and model.
type ChatConfig struct {
	BaseURL string
	APIKey  string
	Model   string
}

// OpenAICompatibleClient talks to any /chat/completions endpoint that speaks
// the OpenAI wire format, including self-hosted gateways.
type OpenAICompatibleClient struct {
	httpClient *http.Client
}

func NewOpenAICompatibleClient() *OpenAICompatibleClient {
	return &OpenAICompatibleClient{
		httpClient: &http.Client{Timeout: 90 * time.Second},
	}
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []ChatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

func (c *OpenAICompatibleClient) postChat(ctx context.Context, cfg ChatConfig, stream bool, messages []ChatMessage) (*http.Response, error) {
	body, err := json.Marshal(chatRequest{Model: cfg.Model, Messages: messages, Stream: stream})
	if err != nil {
		return nil, fmt.Errorf("marshal chat request failed: %w", err)
	}

	url := strings.TrimRight(cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build chat request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+cfg.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("chat request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		var errBody struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errBody)
		if errBody.Error.Message != "" {
			return nil, fmt.Errorf("chat completion failed: %s (status %d)", errBody.Error.Message, resp.StatusCode)
		}
		return nil, fmt.Errorf("chat completion failed with status %d", resp.StatusCode)
	}
	return resp, nil
}

// Complete runs a blocking chat completion and returns the assistant's reply.
func (c *OpenAICompatibleClient) Complete(ctx context.Context, cfg ChatConfig, messages []ChatMessage) (string, error) {
	resp, err := c.postChat(ctx, cfg, false, messages)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode chat response failed: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("chat response contained no choices")
	}
	return out.Choices[0].Message.Content, nil
}

// StreamComplete runs a streaming chat completion, invoking onChunk for each
// content delta as it arrives. The accumulated full reply is returned once the
// upstream signals completion. A non-nil error from onChunk aborts the stream.
func (c *OpenAICompatibleClient) StreamComplete(ctx context.Context, cfg ChatConfig, messages []ChatMessage, onChunk func(chunk string) error) (string, error) {
	resp, err := c.postChat(ctx, cfg, true, messages)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var full strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 2*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "[DONE]" {
			break
		}

		var event struct {
			Choices []struct {
				Delta struct {
					Content string `json:"content"`
				} `json:"delta"`
			} `json:"choices"`
		}
		if err := json.Unmarshal([]byte(payload), &event); err != nil {
			continue
		}
		if len(event.Choices) == 0 {
			continue
		}
		delta := event.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		full.WriteString(delta)
		if err := onChunk(delta); err != nil {
			return full.String(), fmt.Errorf("stream consumer aborted: %w", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return full.String(), fmt.Errorf("read chat stream failed: %w", err)
	}
	return full.String(), nil
}
