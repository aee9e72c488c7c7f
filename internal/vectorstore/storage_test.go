package vectorstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCosineDistance(t *testing.T) {
	assert.InDelta(t, 0, CosineDistance([]float32{1, 0}, []float32{2, 0}), 1e-9)
	assert.InDelta(t, 1, CosineDistance([]float32{1, 0}, []float32{0, 3}), 1e-9)
	assert.InDelta(t, 2, CosineDistance([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	assert.InDelta(t, 1, CosineDistance([]float32{0, 0}, []float32{1, 0}), 1e-9)
}

func TestCosineDistance_Degenerate(t *testing.T) {
	assert.InDelta(t, 1, CosineDistance(nil, nil), 1e-9)
	assert.InDelta(t, 1, CosineDistance([]float32{1, 0}, []float32{1, 0, 0}), 1e-9)
}
