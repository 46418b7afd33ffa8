// Package app wires shared runtime dependencies for the services.
package app

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"

	"papersum/internal/cache"
	"papersum/internal/chunker"
	"papersum/internal/config"
	"papersum/internal/llm"
	"papersum/internal/logger"
	"papersum/internal/queue"
	"papersum/internal/sections"
	"papersum/internal/store"
	"papersum/internal/summarize"
	"papersum/internal/tokenizer"
)

// Deps bundles common runtime dependencies for services.
type Deps struct {
	Config   config.Config
	Log      *slog.Logger
	Store    store.Store
	Queue    queue.Queue
	Cache    cache.Cache
	LLM      llm.Client
	Pipeline *summarize.Pipeline
}

// Build loads env, config, and shared components. Any error here is a
// configuration error: nothing has been enqueued or generated yet.
func Build(service string) (Deps, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Deps{}, fmt.Errorf("failed to load environment variables: %w", err)
	}
	cfg, err := config.Load()
	if err != nil {
		return Deps{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Deps{}, err
	}
	log := logger.New(cfg.LogLevel, service)

	st, err := buildStore(cfg, log)
	if err != nil {
		return Deps{}, fmt.Errorf("failed to initialize store: %w", err)
	}
	q, err := buildQueue(cfg, log)
	if err != nil {
		return Deps{}, fmt.Errorf("failed to initialize queue: %w", err)
	}
	llmClient, err := llm.New(llm.Options{
		PrimaryModel:  cfg.PrimaryModel,
		FallbackModel: cfg.FallbackModel,
		AnthropicKey:  cfg.AnthropicKey,
		OpenAIKey:     cfg.OpenAIKey,
		Temperature:   cfg.Temperature,
		MaxTokens:     cfg.MaxTokens,
		MaxRetries:    cfg.MaxRetries,
		Timeout:       cfg.RequestTimeout,
		BaseDelay:     cfg.BaseDelay,
		Log:           log,
	})
	if err != nil {
		return Deps{}, fmt.Errorf("failed to initialize generation client: %w", err)
	}

	tok, err := tokenizer.NewTiktoken(cfg.TokenEncoding)
	if err != nil {
		return Deps{}, fmt.Errorf("failed to initialize tokenizer: %w", err)
	}
	ch := chunker.New(tok, cfg.ChunkSize, cfg.ChunkOverlap, log)
	summarizer := summarize.NewSummarizer(llmClient, ch, cfg.MaxSectionChunks, log)
	pipeline := summarize.NewPipeline(sections.NewParser(), summarizer, llmClient, ch, log)

	return Deps{
		Config:   cfg,
		Log:      log,
		Store:    st,
		Queue:    q,
		Cache:    buildCache(cfg, log),
		LLM:      llmClient,
		Pipeline: pipeline,
	}, nil
}

func buildStore(cfg config.Config, log *slog.Logger) (store.Store, error) {
	if cfg.DBURL == "" {
		return nil, fmt.Errorf("DB_URL is required")
	}
	db, err := store.NewPostgres(cfg.DBURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Postgres: %w", err)
	}
	log.Info("using Postgres store")
	return db, nil
}

func buildQueue(cfg config.Config, log *slog.Logger) (queue.Queue, error) {
	if cfg.QueueURL == "" {
		return nil, fmt.Errorf("QUEUE_URL is required")
	}
	nc, err := nats.Connect(cfg.QueueURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	log.Info("using NATS queue")
	return queue.NewNATS(log, nc), nil
}

// buildCache degrades to the no-op cache when Redis is not configured or
// unreachable; caching is an optimization, never a requirement.
func buildCache(cfg config.Config, log *slog.Logger) cache.Cache {
	if cfg.RedisAddr == "" {
		log.Info("redis not configured, caching disabled")
		return cache.NewNoOpCache()
	}
	c, err := cache.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		log.Warn("redis unavailable, caching disabled", "err", err)
		return cache.NewNoOpCache()
	}
	log.Info("using Redis cache", "addr", cfg.RedisAddr)
	return c
}
