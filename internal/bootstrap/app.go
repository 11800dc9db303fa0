package bootstrap

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"pharmgpt/internal/ai"
	"pharmgpt/internal/app"
	"pharmgpt/internal/cache"
	"pharmgpt/internal/config"
	"pharmgpt/internal/logger"
	"pharmgpt/internal/model"
	postgresClient "pharmgpt/internal/platform/postgres"
	rabbitmqClient "pharmgpt/internal/platform/rabbitmq"
	redisClient "pharmgpt/internal/platform/redis"
	"pharmgpt/internal/repository"
	"pharmgpt/internal/worker"
)

type App struct {
	Config *config.Config
	Log    *logrus.Logger

	Postgres *gorm.DB
	Redis    *redis.Client
	MQConn   *amqp.Connection
	Cache    cache.Cache

	Embedder       ai.Embedder
	RAGService     *app.RAGService
	JobPublisher   *rabbitmqClient.DocumentJobPublisher
	DocumentWorker *worker.DocumentProcessWorker

	StartedAt time.Time
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}

	log := logger.New(cfg.Log.Level)

	db, err := postgresClient.New(ctx, cfg.PostgresDSN())
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(
		&model.User{},
		&model.Conversation{},
		&model.Message{},
		&model.Document{},
		&model.DocumentChunk{},
	); err != nil {
		return nil, fmt.Errorf("auto migrate tables failed: %w", err)
	}

	var appCache cache.Cache
	redisCli, err := redisClient.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.WithError(err).Warn("redis unavailable, falling back to in-process cache")
		redisCli = nil
		appCache = cache.NewMemoryCache()
	} else {
		appCache = cache.NewRedisCache(redisCli)
	}

	mqConn, err := rabbitmqClient.New(ctx, cfg.RabbitMQ.URL)
	if err != nil {
		return nil, err
	}

	embedder := ai.NewEmbedder(ai.EmbeddingConfig{
		BaseURL: cfg.Embedding.BaseURL,
		APIKey:  cfg.Embedding.APIKey,
		Model:   cfg.Embedding.Model,
	}, log)

	ragService := app.NewRAGService(
		repository.NewDocumentRepository(db),
		repository.NewDocumentChunkRepository(db),
		embedder,
		log,
	)

	documentWorker := worker.NewDocumentProcessWorker(mqConn, ragService, cfg.RabbitMQ.DocumentQueue, log)
	if err := documentWorker.Start(ctx); err != nil {
		return nil, fmt.Errorf("start document worker failed: %w", err)
	}

	return &App{
		Config:         cfg,
		Log:            log,
		Postgres:       db,
		Redis:          redisCli,
		MQConn:         mqConn,
		Cache:          appCache,
		Embedder:       embedder,
		RAGService:     ragService,
		JobPublisher:   rabbitmqClient.NewDocumentJobPublisher(mqConn, cfg.RabbitMQ.DocumentQueue),
		DocumentWorker: documentWorker,
		StartedAt:      time.Now(),
	}, nil
}

func (a *App) Close() error {
	var closeErr error
	if a.DocumentWorker != nil {
		a.DocumentWorker.Close()
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.Postgres != nil {
		sqlDB, err := a.Postgres.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	return closeErr
}
