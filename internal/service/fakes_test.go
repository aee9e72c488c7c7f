package service

import (
	"context"
	"errors"
	"sync"

	"bookrag/internal/domain"
	"bookrag/internal/vectorstore"
	"bookrag/internal/vectorstore/memory"
)

// lengthEmbedder maps a text to a vector derived from its length and first byte.
type lengthEmbedder struct {
	mu     sync.Mutex
	calls  int
	failOn string
}

func (e *lengthEmbedder) Name() string   { return "length" }
func (e *lengthEmbedder) Dimension() int { return 2 }

func (e *lengthEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
	if e.failOn != "" && text == e.failOn {
		return nil, errors.New("embedder unavailable")
	}
	first := float32(0)
	if text != "" {
		first = float32(text[0])
	}
	return []float32{float32(len(text)) + 1, first}, nil
}

// flakyStore wraps a memory store and fails the Nth insert call.
type flakyStore struct {
	*memory.Storage
	failInsert int
	inserts    int
	scans      int
	matches    []domain.Match
}

func newFlakyStore() *flakyStore {
	s := memory.NewStorage()
	_ = s.EnsureSchema(context.Background())
	return &flakyStore{Storage: s}
}

func (s *flakyStore) Insert(ctx context.Context, records []domain.Record) (int, error) {
	s.inserts++
	if s.failInsert > 0 && s.inserts == s.failInsert {
		return 0, errors.New("connection reset")
	}
	return s.Storage.Insert(ctx, records)
}

func (s *flakyStore) Scan(ctx context.Context, cursor string, pageSize int) (vectorstore.Page, error) {
	s.scans++
	return s.Storage.Scan(ctx, cursor, pageSize)
}

func (s *flakyStore) Search(ctx context.Context, vector []float32, limit int) ([]domain.Match, error) {
	if s.matches != nil {
		return s.matches, nil
	}
	return s.Storage.Search(ctx, vector, limit)
}

type stubRetriever struct {
	passages []string
	err      error
	query    string
	limit    int
}

func (r *stubRetriever) Search(ctx context.Context, query string, limit int) ([]string, error) {
	r.query, r.limit = query, limit
	return r.passages, r.err
}

type stubGenerator struct {
	reply  string
	err    error
	prompt string
	calls  int
}

func (g *stubGenerator) Name() string { return "stub" }

func (g *stubGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.calls++
	g.prompt = prompt
	return g.reply, g.err
}
