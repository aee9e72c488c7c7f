// Package embedding defines the embedding provider port and its adapters.
package embedding

import "context"

// Embedder converts free text into a fixed-length vector.
// The same text must always map to the same vector for a given model.
type Embedder interface {
	Name() string
	// Dimension is the vector length, or 0 when it is only known after the first call.
	Dimension() int
	Embed(ctx context.Context, text string) ([]float32, error)
}
