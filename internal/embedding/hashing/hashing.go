// Package hashing provides an offline, deterministic embedder based on the
// hashing trick: tokens are hashed into a fixed number of buckets and the
// resulting term-frequency vector is L2-normalised.
package hashing

import (
	"context"
	"hash/fnv"
	"math"

	"bookrag/internal/embedding"
	"bookrag/internal/textutil"
)

var _ embedding.Embedder = (*Embedder)(nil)

// DefaultDimension is the number of hash buckets when none is configured.
const DefaultDimension = 512

// Embedder maps text to a bag-of-words vector without any model or corpus preparation.
type Embedder struct {
	dimension int
}

// NewEmbedder creates a hashing embedder with the given dimension.
func NewEmbedder(dimension int) *Embedder {
	if dimension <= 0 {
		dimension = DefaultDimension
	}
	return &Embedder{dimension: dimension}
}

// Name returns the identifier of this embedder implementation.
func (e *Embedder) Name() string { return "hashing" }

// Dimension returns the dimensionality of the produced embedding vectors.
func (e *Embedder) Dimension() int { return e.dimension }

// Embed computes the hashed term-frequency vector for text. Text without
// any non-stopword token yields the zero vector.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	counts := make([]float64, e.dimension)
	for _, tok := range textutil.Tokens(text) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(tok))
		counts[h.Sum32()%uint32(e.dimension)]++
	}
	norm := 0.0
	for _, v := range counts {
		norm += v * v
	}
	norm = math.Sqrt(norm)
	vec := make([]float32, e.dimension)
	if norm == 0 {
		return vec, nil
	}
	for i, v := range counts {
		vec[i] = float32(v / norm)
	}
	return vec, nil
}
