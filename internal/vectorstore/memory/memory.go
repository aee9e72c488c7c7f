// Package memory provides an in-process Storage using brute-force cosine distance.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/google/uuid"

	"bookrag/internal/domain"
	"bookrag/internal/vectorstore"
)

var _ vectorstore.Storage = (*Storage)(nil)

// Storage keeps records in insertion order. Nothing survives the process.
type Storage struct {
	mu        sync.RWMutex
	ready     bool
	dimension int
	records   []domain.Record
}

// NewStorage creates an empty in-memory store.
func NewStorage() *Storage { return &Storage{} }

// EnsureSchema marks the collection as created. Existing records are kept.
func (s *Storage) EnsureSchema(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = true
	return nil
}

// Insert appends records. All vectors must share one dimension.
func (s *Storage) Insert(ctx context.Context, records []domain.Record) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		return 0, errors.New("memory: collection does not exist")
	}
	dim := s.dimension
	for _, r := range records {
		if len(r.Vector) == 0 {
			return 0, errors.New("memory: record without vector")
		}
		if dim == 0 {
			dim = len(r.Vector)
		}
		if len(r.Vector) != dim {
			return 0, fmt.Errorf("memory: vector dimension mismatch: %d vs %d", len(r.Vector), dim)
		}
	}
	s.dimension = dim
	for _, r := range records {
		if r.ID == "" {
			r.ID = uuid.NewString()
		}
		r.Vector = append([]float32(nil), r.Vector...)
		s.records = append(s.records, r)
	}
	return len(records), nil
}

// Search returns the limit closest records by cosine distance.
func (s *Storage) Search(ctx context.Context, vector []float32, limit int) ([]domain.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 || len(s.records) == 0 {
		return nil, nil
	}
	if s.dimension != 0 && len(vector) != s.dimension {
		return nil, fmt.Errorf("memory: query dimension %d does not match %d", len(vector), s.dimension)
	}
	matches := make([]domain.Match, len(s.records))
	for i, r := range s.records {
		matches[i] = domain.Match{
			ID:       r.ID,
			Text:     r.Text,
			Source:   r.Source,
			Distance: vectorstore.CosineDistance(vector, r.Vector),
		}
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Distance < matches[j].Distance })
	if limit > len(matches) {
		limit = len(matches)
	}
	return matches[:limit], nil
}

// Scan pages through records in insertion order. The cursor is an offset.
func (s *Storage) Scan(ctx context.Context, cursor string, pageSize int) (vectorstore.Page, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if pageSize <= 0 {
		return vectorstore.Page{}, errors.New("memory: page size must be positive")
	}
	start := 0
	if cursor != "" {
		n, err := strconv.Atoi(cursor)
		if err != nil || n < 0 {
			return vectorstore.Page{}, fmt.Errorf("memory: invalid cursor %q", cursor)
		}
		start = n
	}
	if start >= len(s.records) {
		return vectorstore.Page{}, nil
	}
	end := start + pageSize
	if end > len(s.records) {
		end = len(s.records)
	}
	page := vectorstore.Page{Records: make([]domain.Record, end-start)}
	for i, r := range s.records[start:end] {
		page.Records[i] = domain.Record{ID: r.ID, Text: r.Text, Source: r.Source}
	}
	if end < len(s.records) {
		page.Next = strconv.Itoa(end)
	}
	return page, nil
}

// Drop removes every record and the collection.
func (s *Storage) Drop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = false
	s.dimension = 0
	s.records = nil
	return nil
}

// Len returns the number of stored records.
func (s *Storage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Close is a no-op.
func (s *Storage) Close() error { return nil }
