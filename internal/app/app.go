// Package app assembles the pipelines from configuration. It owns the
// process-wide clients and releases them on Close.
package app

import (
	"context"
	"fmt"
	"time"

	"bookrag/internal/chunker"
	"bookrag/internal/config"
	"bookrag/internal/domain"
	"bookrag/internal/embedding"
	"bookrag/internal/embedding/hashing"
	embollama "bookrag/internal/embedding/ollama"
	embopenai "bookrag/internal/embedding/openai"
	"bookrag/internal/llm"
	"bookrag/internal/llm/extractive"
	llmollama "bookrag/internal/llm/ollama"
	llmopenai "bookrag/internal/llm/openai"
	"bookrag/internal/logging"
	"bookrag/internal/prompt"
	"bookrag/internal/service"
	"bookrag/internal/vectorstore"
	"bookrag/internal/vectorstore/memory"
	"bookrag/internal/vectorstore/qdrant"
	"bookrag/internal/vectorstore/sqlite"
	"bookrag/internal/vectorstore/weaviate"
)

// App is the explicitly constructed application context shared by the HTTP
// server, the CLI commands and the terminal chat.
type App struct {
	Config    *config.AppConfig
	Embedder  embedding.Embedder
	Generator llm.Generator
	Gateway   *service.Gateway
	Ingestor  *service.Ingestor
	Answerer  *service.Answerer
}

// New builds every component named by cfg and ensures the chunk collection exists.
func New(ctx context.Context, cfg *config.AppConfig) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	tmpl, err := prompt.Load(cfg.LLM.PromptFile)
	if err != nil {
		return nil, err
	}
	emb, err := newEmbedder(cfg.Embedder)
	if err != nil {
		return nil, err
	}
	gen, err := newGenerator(cfg.LLM)
	if err != nil {
		return nil, err
	}
	store, err := newStorage(ctx, cfg.VectorStore, emb)
	if err != nil {
		return nil, err
	}

	gw := service.NewGateway(emb, store, service.GatewayConfig{
		BatchSize:   cfg.Ingest.BatchSize,
		Concurrency: cfg.Ingest.Concurrency,
		PageSize:    cfg.VectorStore.PageSize,
	})
	if err := gw.EnsureSchema(ctx); err != nil {
		_ = gw.Close()
		return nil, err
	}
	ch := chunker.New(chunker.WithChunkSize(cfg.Chunker.ChunkSize), chunker.WithOverlap(cfg.Chunker.ChunkOverlap))

	logging.Debug("embedder=%s generator=%s store=%s collection=%s", emb.Name(), gen.Name(), cfg.VectorStore.Type, cfg.VectorStore.Collection)
	return &App{
		Config:    cfg,
		Embedder:  emb,
		Generator: gen,
		Gateway:   gw,
		Ingestor:  service.NewIngestor(cfg.Ingest.Folder, cfg.Ingest.Extensions, ch, gw),
		Answerer:  service.NewAnswerer(gw, gen, tmpl, cfg.VectorStore.SearchLimit),
	}, nil
}

type idleCloser interface {
	CloseIdleConnections()
}

// Close releases the storage and the idle connections of the model clients.
func (a *App) Close() error {
	for _, c := range []any{a.Embedder, a.Generator} {
		if ic, ok := c.(idleCloser); ok {
			ic.CloseIdleConnections()
		}
	}
	return a.Gateway.Close()
}

func secs(n int) time.Duration { return time.Duration(n) * time.Second }

func newEmbedder(cfg config.EmbedderConfig) (embedding.Embedder, error) {
	switch cfg.Type {
	case "ollama":
		return embollama.NewClient(embollama.Config{
			BaseURL:    cfg.Ollama.BaseURL,
			Model:      cfg.Ollama.Model,
			Timeout:    secs(cfg.Ollama.TimeoutSecs),
			Dimensions: cfg.Ollama.Dimensions,
		}), nil
	case "openai":
		client, err := embopenai.NewClient(embopenai.Config{
			BaseURL:    cfg.OpenAI.BaseURL,
			APIKeyEnv:  cfg.OpenAI.APIKeyEnv,
			Model:      cfg.OpenAI.Model,
			Timeout:    secs(cfg.OpenAI.TimeoutSecs),
			MaxRetries: cfg.OpenAI.MaxRetries,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: openai embedder: %w", domain.ErrConfiguration, err)
		}
		return client, nil
	case "hashing":
		return hashing.NewEmbedder(cfg.Hashing.Dimensions), nil
	default:
		return nil, fmt.Errorf("%w: unknown embedder %q", domain.ErrConfiguration, cfg.Type)
	}
}

func newGenerator(cfg config.LLMConfig) (llm.Generator, error) {
	switch cfg.Type {
	case "ollama":
		return llmollama.NewClient(llmollama.Config{
			BaseURL:     cfg.Ollama.BaseURL,
			Model:       cfg.Ollama.Model,
			Timeout:     secs(cfg.Ollama.TimeoutSecs),
			Temperature: cfg.Ollama.Temperature,
		}), nil
	case "openai":
		client, err := llmopenai.NewClient(llmopenai.Config{
			BaseURL:     cfg.OpenAI.BaseURL,
			APIKeyEnv:   cfg.OpenAI.APIKeyEnv,
			Model:       cfg.OpenAI.Model,
			Timeout:     secs(cfg.OpenAI.TimeoutSecs),
			Temperature: cfg.OpenAI.Temperature,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: openai generator: %w", domain.ErrConfiguration, err)
		}
		return client, nil
	case "extractive":
		return extractive.New(cfg.Extractive.MaxSentences), nil
	default:
		return nil, fmt.Errorf("%w: unknown llm %q", domain.ErrConfiguration, cfg.Type)
	}
}

func newStorage(ctx context.Context, cfg config.VectorStoreConfig, emb embedding.Embedder) (vectorstore.Storage, error) {
	switch cfg.Type {
	case "memory":
		return memory.NewStorage(), nil
	case "weaviate":
		st, err := weaviate.NewStorage(weaviate.Config{
			URL:        cfg.Weaviate.URL,
			APIKey:     cfg.Weaviate.APIKey,
			Class:      cfg.Collection,
			Timeout:    secs(cfg.TimeoutSecs),
			MaxRetries: cfg.MaxRetries,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrConfiguration, err)
		}
		return st, nil
	case "qdrant":
		size, err := vectorSize(ctx, emb)
		if err != nil {
			return nil, err
		}
		st, err := qdrant.NewStorage(qdrant.Config{
			URL:        cfg.Qdrant.URL,
			APIKey:     cfg.Qdrant.APIKey,
			Collection: cfg.Collection,
			VectorSize: size,
			Distance:   cfg.Qdrant.Distance,
			Timeout:    secs(cfg.TimeoutSecs),
			MaxRetries: cfg.MaxRetries,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrConfiguration, err)
		}
		return st, nil
	case "sqlite":
		st, err := sqlite.NewStorage(cfg.SQLite.Path, cfg.Collection)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrStorage, err)
		}
		return st, nil
	default:
		return nil, fmt.Errorf("%w: unknown vector store %q", domain.ErrConfiguration, cfg.Type)
	}
}

// vectorSize returns the embedder's dimension, embedding a probe text when
// the provider only learns it from its first response.
func vectorSize(ctx context.Context, emb embedding.Embedder) (int, error) {
	if d := emb.Dimension(); d > 0 {
		return d, nil
	}
	vec, err := emb.Embed(ctx, "dimension probe")
	if err != nil {
		return 0, fmt.Errorf("%w: probe embedding dimension: %w", domain.ErrStorage, err)
	}
	return len(vec), nil
}
