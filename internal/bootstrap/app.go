package bootstrap

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"kbretrieval/internal/ai"
	"kbretrieval/internal/app"
	"kbretrieval/internal/cache"
	"kbretrieval/internal/config"
	"kbretrieval/internal/model"
	"kbretrieval/internal/pkg/extract"
	mysqlClient "kbretrieval/internal/platform/mysql"
	rabbitmqClient "kbretrieval/internal/platform/rabbitmq"
	redisClient "kbretrieval/internal/platform/redis"
	"kbretrieval/internal/repository"
	"kbretrieval/internal/worker"
)

type App struct {
	Config *config.Config
	MySQL  *gorm.DB
	Redis  *redis.Client
	MQConn *amqp.Connection

	Extractor *extract.Extractor

	IndexService     *app.IndexService
	RetrievalService *app.RetrievalService
	CategoryService  *app.CategoryService
	AuthService      *app.AuthService

	ReindexPublisher *rabbitmqClient.ReindexPublisher
	ReindexWorker    *worker.ReindexWorker

	StartedAt time.Time
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}

	mysqlDB, err := mysqlClient.New(ctx, cfg.MySQLDSN(), mysqlClient.PoolConfig{
		MaxIdleConns:    cfg.MySQL.MaxIdleConns,
		MaxOpenConns:    cfg.MySQL.MaxOpenConns,
		ConnMaxLifetime: time.Duration(cfg.MySQL.ConnMaxLifetimeMinute) * time.Minute,
	})
	if err != nil {
		return nil, err
	}
	if err := mysqlDB.AutoMigrate(&model.Document{}, &model.Chunk{}, &model.Category{}); err != nil {
		return nil, fmt.Errorf("auto migrate tables failed: %w", err)
	}

	redisCli, err := redisClient.New(ctx, redisClient.Options{
		Addr:        cfg.Redis.Addr,
		Password:    cfg.Redis.Password,
		DB:          cfg.Redis.DB,
		DialTimeout: time.Duration(cfg.Redis.DialTimeoutSeconds) * time.Second,
		ReadTimeout: time.Duration(cfg.Redis.ReadTimeoutSeconds) * time.Second,
	})
	if err != nil {
		return nil, err
	}

	mqConn, err := rabbitmqClient.New(ctx, cfg.RabbitMQ.URL, cfg.RabbitMQ.ReindexQueue)
	if err != nil {
		return nil, err
	}

	embedder := ai.NewEmbedder(ai.RemoteConfig{
		BaseURL:       cfg.Embedding.BaseURL,
		APIKey:        cfg.Embedding.APIKey,
		Model:         cfg.Embedding.Model,
		MaxInputChars: cfg.Embedding.MaxInputChars,
		Timeout:       time.Duration(cfg.Embedding.TimeoutSeconds) * time.Second,
	})
	extractor := extract.New(cfg.Index.RawFallbackBytes)
	retrievalCache := cache.NewRetrievalCache(redisCli, time.Duration(cfg.Retrieval.CacheTTLSeconds)*time.Second)

	documentRepo := repository.NewDocumentRepository(mysqlDB)
	chunkRepo := repository.NewChunkRepository(mysqlDB)
	categoryRepo := repository.NewCategoryRepository(mysqlDB)

	indexService := app.NewIndexService(documentRepo, chunkRepo, embedder, extractor, retrievalCache, app.IndexConfig{
		ChunkSizeWords:    cfg.Index.ChunkSizeWords,
		ChunkOverlapWords: cfg.Index.ChunkOverlapWords,
	})
	retrievalService := app.NewRetrievalService(documentRepo, chunkRepo, embedder, retrievalCache)
	categoryService := app.NewCategoryService(categoryRepo)
	authService := app.NewAuthService(
		cfg.Auth.APIKeyHash,
		cfg.Auth.JWTSecret,
		time.Duration(cfg.Auth.JWTExpireMinute)*time.Minute,
	)

	reindexPublisher := rabbitmqClient.NewReindexPublisher(mqConn, cfg.RabbitMQ.ReindexQueue)
	reindexWorker := worker.NewReindexWorker(mqConn, indexService, cfg.RabbitMQ.ReindexQueue)
	if err := reindexWorker.Start(ctx); err != nil {
		return nil, fmt.Errorf("start reindex worker failed: %w", err)
	}

	return &App{
		Config:           cfg,
		MySQL:            mysqlDB,
		Redis:            redisCli,
		MQConn:           mqConn,
		Extractor:        extractor,
		IndexService:     indexService,
		RetrievalService: retrievalService,
		CategoryService:  categoryService,
		AuthService:      authService,
		ReindexPublisher: reindexPublisher,
		ReindexWorker:    reindexWorker,
		StartedAt:        time.Now(),
	}, nil
}

func (a *App) Close() error {
	var closeErr error
	if a.ReindexWorker != nil {
		a.ReindexWorker.Close()
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MySQL != nil {
		sqlDB, err := a.MySQL.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	return closeErr
}
