// Package service holds the ingestion and question-answering pipelines and the
// gateway they share for talking to the vector store.
package service

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"bookrag/internal/domain"
	"bookrag/internal/embedding"
	"bookrag/internal/logging"
	"bookrag/internal/vectorstore"
)

const (
	DefaultBatchSize   = 100
	DefaultConcurrency = 4
	DefaultPageSize    = 100
	DefaultSearchLimit = 20
)

// GatewayConfig tunes batching and pagination. Zero fields take the defaults.
type GatewayConfig struct {
	BatchSize   int
	Concurrency int
	PageSize    int
}

// Gateway pairs an embedder with a storage backend. Every error it returns
// matches domain.ErrStorage.
type Gateway struct {
	embedder    embedding.Embedder
	store       vectorstore.Storage
	batchSize   int
	concurrency int
	pageSize    int
}

// NewGateway creates a Gateway.
func NewGateway(embedder embedding.Embedder, store vectorstore.Storage, cfg GatewayConfig) *Gateway {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	return &Gateway{
		embedder:    embedder,
		store:       store,
		batchSize:   cfg.BatchSize,
		concurrency: cfg.Concurrency,
		pageSize:    cfg.PageSize,
	}
}

// EnsureSchema creates the chunk collection if needed. Safe to call on every startup.
func (g *Gateway) EnsureSchema(ctx context.Context) error {
	if err := g.store.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("%w: ensure schema: %w", domain.ErrStorage, err)
	}
	return nil
}

// AddChunks embeds and stores chunks batch by batch. On failure the returned
// count is the number of chunks already committed.
func (g *Gateway) AddChunks(ctx context.Context, chunks []domain.Chunk) (int, error) {
	inserted := 0
	for start := 0; start < len(chunks); start += g.batchSize {
		end := min(start+g.batchSize, len(chunks))
		batch := chunks[start:end]

		records, err := g.embedBatch(ctx, batch)
		if err != nil {
			return inserted, fmt.Errorf("%w: embed chunks %d-%d: %w", domain.ErrStorage, start, end-1, err)
		}
		n, err := g.store.Insert(ctx, records)
		inserted += n
		if err != nil {
			return inserted, fmt.Errorf("%w: insert chunks %d-%d: %w", domain.ErrStorage, start, end-1, err)
		}
		logging.Debug("inserted batch %d-%d (%d records)", start, end-1, n)
	}
	return inserted, nil
}

func (g *Gateway) embedBatch(ctx context.Context, batch []domain.Chunk) ([]domain.Record, error) {
	records := make([]domain.Record, len(batch))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.concurrency)
	for i, ch := range batch {
		eg.Go(func() error {
			vec, err := g.embedder.Embed(egCtx, ch.Text)
			if err != nil {
				return err
			}
			records[i] = domain.Record{Text: ch.Text, Source: ch.Source, Vector: vec}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return records, nil
}

// Search returns the texts of the stored chunks nearest to query, most similar
// first. Records with empty text are skipped. An empty store yields no texts.
func (g *Gateway) Search(ctx context.Context, query string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	vec, err := g.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: embed query: %w", domain.ErrStorage, err)
	}
	matches, err := g.store.Search(ctx, vec, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: search: %w", domain.ErrStorage, err)
	}
	texts := make([]string, 0, len(matches))
	for _, m := range matches {
		logging.Debug("match %s source=%s distance=%.4f", m.ID, m.Source, m.Distance)
		if m.Text == "" {
			continue
		}
		texts = append(texts, m.Text)
	}
	return texts, nil
}

// Sources returns the distinct source identifiers of all stored records,
// following pagination to the end.
func (g *Gateway) Sources(ctx context.Context) (map[string]struct{}, error) {
	sources := make(map[string]struct{})
	cursor := ""
	for {
		page, err := g.store.Scan(ctx, cursor, g.pageSize)
		if err != nil {
			return nil, fmt.Errorf("%w: list sources: %w", domain.ErrStorage, err)
		}
		for _, r := range page.Records {
			if r.Source != "" {
				sources[r.Source] = struct{}{}
			}
		}
		if page.Next == "" {
			return sources, nil
		}
		if page.Next == cursor {
			return nil, fmt.Errorf("%w: list sources: cursor %q did not advance", domain.ErrStorage, cursor)
		}
		cursor = page.Next
	}
}

// Clear drops every stored chunk and recreates an empty collection.
func (g *Gateway) Clear(ctx context.Context) error {
	if err := g.store.Drop(ctx); err != nil {
		return fmt.Errorf("%w: drop collection: %w", domain.ErrStorage, err)
	}
	return g.EnsureSchema(ctx)
}

// Close releases the storage backend.
func (g *Gateway) Close() error {
	if err := g.store.Close(); err != nil {
		return fmt.Errorf("%w: close: %w", domain.ErrStorage, err)
	}
	return nil
}
