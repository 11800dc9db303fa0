package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"pharmgpt/internal/app"
	"pharmgpt/internal/transport/http/response"
)

type ChatHandler struct {
	chatService *app.ChatService
}

type SendMessageRequest struct {
	ConversationID string `json:"conversation_id" binding:"required"`
	Content        string `json:"content" binding:"required"`
	Model          string `json:"model" binding:"max=32"`
}

func NewChatHandler(chatService *app.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

func (h *ChatHandler) SendMessage(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	result, err := h.chatService.SendMessage(c.Request.Context(), app.SendMessageInput{
		UserID:         userID,
		ConversationID: req.ConversationID,
		Content:        req.Content,
		Model:          req.Model,
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		case errors.Is(err, app.ErrConversationNotFound):
			response.Error(c, http.StatusNotFound, response.CodeConversationNotFound, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "send message failed")
		}
		return
	}

	response.OK(c, gin.H{
		"user_message":      result.UserMessage,
		"assistant_message": result.AssistantMessage,
		"context_used":      result.ContextUsed,
	})
}

// StreamMessage answers a chat turn over server-sent events. Each model
// delta goes out as a data frame; the full persisted reply is sent in a
// final done event so clients can reconcile with the stored message.
func (h *ChatHandler) StreamMessage(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "streaming unsupported")
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Writer.WriteHeader(http.StatusOK)
	flusher.Flush()

	result, err := h.chatService.StreamMessage(c.Request.Context(), app.SendMessageInput{
		UserID:         userID,
		ConversationID: req.ConversationID,
		Content:        req.Content,
		Model:          req.Model,
	}, func(chunk string) error {
		if _, err := fmt.Fprintf(c.Writer, "data: %s\n\n", sanitizeSSE(chunk)); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	})
	if err != nil {
		// The status line is already on the wire; surface failure in-band.
		fmt.Fprintf(c.Writer, "event: error\ndata: %s\n\n", sanitizeSSE(err.Error()))
		flusher.Flush()
		return
	}

	fmt.Fprintf(c.Writer, "event: done\ndata: %s\n\n", sanitizeSSE(result.AssistantMessage.Content))
	flusher.Flush()
}

// sanitizeSSE keeps a payload on a single SSE line by escaping newlines.
func sanitizeSSE(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\\n")
	return strings.ReplaceAll(s, "\n", "\\n")
}
