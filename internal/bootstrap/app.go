// Package bootstrap wires configuration, clients and services for the binaries.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bull/uwp-rag-server/internal/answer"
	"github.com/bull/uwp-rag-server/internal/chunker"
	"github.com/bull/uwp-rag-server/internal/config"
	"github.com/bull/uwp-rag-server/internal/crawler"
	"github.com/bull/uwp-rag-server/internal/embedding"
	"github.com/bull/uwp-rag-server/internal/indexer"
	"github.com/bull/uwp-rag-server/internal/ingest"
	"github.com/bull/uwp-rag-server/internal/llm"
	"github.com/bull/uwp-rag-server/internal/logger"
	"github.com/bull/uwp-rag-server/internal/retriever"
	"github.com/bull/uwp-rag-server/internal/storage"
)

// fallbackDimension is used for embedding models missing from the known list.
const fallbackDimension = 1536

type App struct {
	Config    *config.Config
	Logger    *slog.Logger
	Embedder  *embedding.Embedder
	Chat      *llm.Chat
	Store     storage.VectorStore
	Retriever *retriever.Retriever
	Answers   *answer.Service
	Builder   *indexer.Builder
	Redis     *redis.Client // nil unless REDIS_ADDR is set

	StartedAt time.Time
}

// New loads configuration and connects every dependency.
func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log := logger.New(os.Stderr, cfg.Logging.Level)
	slog.SetDefault(log)

	client, err := embedding.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("create openai client failed: %w", err)
	}
	embedder := embedding.NewEmbedder(client, cfg.OpenAI.EmbedModel)
	chat := llm.NewChat(client.Client(), cfg.OpenAI.ChatModel)

	dimension := embedder.Dimension()
	if dimension == 0 {
		log.Warn("Unknown embedding model, assuming default dimension",
			"model", embedder.Model(), "dimension", fallbackDimension)
		dimension = fallbackDimension
	}

	store, err := newStore(ctx, cfg, dimension)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config:    cfg,
		Logger:    log,
		Embedder:  embedder,
		Chat:      chat,
		Store:     store,
		StartedAt: time.Now(),
	}

	chunks, err := chunker.New(chunker.WithChunkSize(cfg.Index.ChunkSize))
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("create chunker failed: %w", err)
	}

	app.Retriever = retriever.New(embedder, store, cfg.Index.SimilarityThreshold, log)
	app.Answers = answer.NewService(app.Retriever, chat, log)
	app.Builder = indexer.NewBuilder(chunks, embedder, store, cfg.Index.BatchSize, log)

	if cfg.Redis.Addr != "" {
		app.Redis, err = ingest.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			app.Close()
			return nil, err
		}
	}

	return app, nil
}

func newStore(ctx context.Context, cfg *config.Config, dimension int) (storage.VectorStore, error) {
	switch cfg.Vector.Backend {
	case "memory":
		return storage.NewMemoryStorage(cfg.Vector.Collection, dimension), nil
	default:
		store, err := storage.NewQdrantStorage(ctx, storage.QdrantConfig{
			Host:       cfg.Vector.Host,
			Port:       cfg.Vector.Port,
			APIKey:     cfg.Vector.APIKey,
			UseTLS:     cfg.Vector.UseTLS,
			Collection: cfg.Vector.Collection,
			Dimension:  dimension,
		})
		if err != nil {
			return nil, fmt.Errorf("connect to qdrant at %s:%d failed: %w", cfg.Vector.Host, cfg.Vector.Port, err)
		}
		return store, nil
	}
}

// CrawlerConfig returns crawl settings for a page budget.
func (a *App) CrawlerConfig(maxPages int) crawler.Config {
	return crawler.Config{
		SeedURL:       a.Config.Ingest.SeedURL,
		AllowedDomain: a.Config.Ingest.AllowedDomain,
		MaxPages:      maxPages,
		Throttle:      time.Duration(a.Config.Ingest.ThrottleMillis) * time.Millisecond,
	}
}

// NewRunner builds the ingestion runner. Background runs live as long as ctx.
// The Redis lock is used when Redis is configured.
func (a *App) NewRunner(ctx context.Context) *ingest.Runner {
	var lock ingest.Lock
	if a.Redis != nil {
		lock = ingest.NewRedisLock(a.Redis, ingest.DefaultLockKey, ingest.DefaultLockTTL)
	}

	return ingest.NewRunner(ctx, ingest.RunnerConfig{
		Status: ingest.NewStatusStore(a.Config.StatusPath()),
		NewCrawler: func(maxPages int) ingest.Crawler {
			return crawler.New(a.CrawlerConfig(maxPages), a.Logger)
		},
		Builder:   a.Builder,
		DocsPath:  a.Config.DocsPath(),
		StatsPath: a.Config.StatsPath(),
		Lock:      lock,
		Logger:    a.Logger,
	})
}

func (a *App) Close() error {
	var errs []error
	if a.Redis != nil {
		errs = append(errs, a.Redis.Close())
	}
	if a.Store != nil {
		errs = append(errs, a.Store.Close())
	}
	return errors.Join(errs...)
}
