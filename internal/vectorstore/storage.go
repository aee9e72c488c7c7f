// Package vectorstore defines the storage port for chunk records and the
// backends implementing it.
package vectorstore

import (
	"context"

	"github.com/viant/sqlite-vec/vector"

	"bookrag/internal/domain"
)

// DefaultCollection is the collection holding chunk records.
const DefaultCollection = "BookChunk"

// Storage persists records with externally supplied vectors and supports
// nearest-neighbour search. Implementations must be safe for concurrent use.
type Storage interface {
	// EnsureSchema creates the collection if it does not exist. It is idempotent.
	EnsureSchema(ctx context.Context) error
	// Insert writes records in one batch and returns how many were stored.
	// Records without an ID are assigned one.
	Insert(ctx context.Context, records []domain.Record) (int, error)
	// Search returns up to limit records ordered by ascending distance to vector.
	Search(ctx context.Context, vector []float32, limit int) ([]domain.Match, error)
	// Scan returns one page of records starting after cursor. An empty cursor
	// starts from the beginning; an empty Page.Next means there are no more pages.
	Scan(ctx context.Context, cursor string, pageSize int) (Page, error)
	// Drop removes the collection and every record in it.
	Drop(ctx context.Context) error
	Close() error
}

// Page is one page of a full scan.
type Page struct {
	Records []domain.Record
	Next    string
}

// CosineDistance returns 1 - cosine similarity. Zero-magnitude, empty or
// mismatched vectors are treated as orthogonal to everything.
func CosineDistance(a, b []float32) float64 {
	sim, err := vector.CosineSimilarity(a, b)
	if err != nil {
		return 1
	}
	return 1 - sim
}
