package handler

import (
	"github.com/gin-gonic/gin"

	"pharmgpt/internal/transport/http/middleware"
)

func getUserIDFromContext(c *gin.Context) (string, bool) {
	userIDAny, exists := c.Get(middleware.ContextUserIDKey)
	if !exists {
		return "", false
	}
	userID, ok := userIDAny.(string)
	return userID, ok && userID != ""
}
