package http

import (
	"time"

	"github.com/gin-gonic/gin"

	"pharmgpt/internal/ai"
	appsvc "pharmgpt/internal/app"
	"pharmgpt/internal/bootstrap"
	"pharmgpt/internal/repository"
	"pharmgpt/internal/transport/http/handler"
	"pharmgpt/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/healthz", healthHandler.Check)

	userRepo := repository.NewUserRepository(app.Postgres)
	conversationRepo := repository.NewConversationRepository(app.Postgres)
	messageRepo := repository.NewMessageRepository(app.Postgres)

	authService := appsvc.NewAuthService(
		userRepo,
		app.Config.Auth.JWTSecret,
		time.Duration(app.Config.Auth.JWTExpireMinute)*time.Minute,
	)
	conversationService := appsvc.NewConversationService(conversationRepo, messageRepo, app.Cache, app.Log)
	chatService := appsvc.NewChatService(
		conversationService,
		app.RAGService,
		ai.NewOpenAICompatibleClient(),
		chatProfiles(app),
		app.Log,
	)

	authHandler := handler.NewAuthHandler(authService)
	conversationHandler := handler.NewConversationHandler(conversationService)
	chatHandler := handler.NewChatHandler(chatService)
	documentHandler := handler.NewDocumentHandler(app.RAGService, conversationService, app.JobPublisher)

	v1 := router.Group("/api/v1")

	authGroup := v1.Group("/auth")
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)
	authGroup.GET("/me", middleware.AuthJWT(app.Config.Auth.JWTSecret), authHandler.Me)

	authed := v1.Group("")
	authed.Use(middleware.AuthJWT(app.Config.Auth.JWTSecret))

	authed.POST("/conversations", conversationHandler.Create)
	authed.GET("/conversations", conversationHandler.List)
	authed.PATCH("/conversations/:id", conversationHandler.Rename)
	authed.DELETE("/conversations/:id", conversationHandler.Delete)
	authed.GET("/conversations/:id/messages", conversationHandler.ListMessages)
	authed.GET("/conversations/:id/context", documentHandler.Context)

	authed.POST("/chat/messages", chatHandler.SendMessage)
	authed.POST("/chat/messages/stream", chatHandler.StreamMessage)

	authed.POST("/documents/upload", documentHandler.Upload)
	authed.POST("/documents", documentHandler.CreateFromText)
	authed.GET("/documents", documentHandler.List)
	authed.GET("/documents/:id", documentHandler.Get)
	authed.POST("/documents/search", documentHandler.Search)

	return router
}

func chatProfiles(app *bootstrap.App) map[string]ai.ChatConfig {
	llm := app.Config.LLM
	return map[string]ai.ChatConfig{
		"normal": {BaseURL: llm.BaseURL, APIKey: llm.APIKey, Model: llm.NormalModel},
		"turbo":  {BaseURL: llm.BaseURL, APIKey: llm.APIKey, Model: llm.TurboModel},
	}
}
