package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"pharmgpt/internal/app"
	"pharmgpt/internal/transport/http/response"
)

type ConversationHandler struct {
	conversationService *app.ConversationService
}

type CreateConversationRequest struct {
	Title string `json:"title" binding:"max=128"`
	Model string `json:"model" binding:"max=32"`
}

type RenameConversationRequest struct {
	Title string `json:"title" binding:"required,max=128"`
}

func NewConversationHandler(conversationService *app.ConversationService) *ConversationHandler {
	return &ConversationHandler{conversationService: conversationService}
}

func (h *ConversationHandler) Create(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	var req CreateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	conversation, err := h.conversationService.CreateConversation(c.Request.Context(), userID, req.Title, req.Model)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "create conversation failed")
		}
		return
	}

	response.OK(c, conversation)
}

func (h *ConversationHandler) List(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	conversations, err := h.conversationService.ListConversations(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "list conversations failed")
		return
	}

	response.OK(c, conversations)
}

func (h *ConversationHandler) Rename(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	conversationID := c.Param("id")

	var req RenameConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	if err := h.conversationService.RenameConversation(c.Request.Context(), userID, conversationID, req.Title); err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		case errors.Is(err, app.ErrConversationNotFound):
			response.Error(c, http.StatusNotFound, response.CodeConversationNotFound, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "rename conversation failed")
		}
		return
	}

	response.OK(c, gin.H{"conversation_id": conversationID, "title": req.Title})
}

func (h *ConversationHandler) Delete(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	conversationID := c.Param("id")

	if err := h.conversationService.DeleteConversation(c.Request.Context(), userID, conversationID); err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		case errors.Is(err, app.ErrConversationNotFound):
			response.Error(c, http.StatusNotFound, response.CodeConversationNotFound, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "delete conversation failed")
		}
		return
	}

	response.OK(c, gin.H{"deleted_conversation_id": conversationID})
}

func (h *ConversationHandler) ListMessages(c *gin.Context) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid token payload")
		return
	}

	conversationID := c.Param("id")

	messages, err := h.conversationService.ListMessages(c.Request.Context(), userID, conversationID)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		case errors.Is(err, app.ErrConversationNotFound):
			response.Error(c, http.StatusNotFound, response.CodeConversationNotFound, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "list messages failed")
		}
		return
	}

	response.OK(c, messages)
}
