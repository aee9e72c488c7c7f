package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrNoInputIsConfiguration(t *testing.T) {
	assert.True(t, errors.Is(ErrNoInput, ErrConfiguration))
	assert.False(t, errors.Is(ErrConfiguration, ErrNoInput))

	wrapped := fmt.Errorf("%w: folder %q", ErrNoInput, "libros")
	assert.True(t, errors.Is(wrapped, ErrConfiguration))
	assert.False(t, errors.Is(wrapped, ErrStorage))
}

func TestErrorKindsAreDistinct(t *testing.T) {
	kinds := []error{ErrConfiguration, ErrStorage, ErrGeneration, ErrInvalidInput}
	for i, a := range kinds {
		for j, b := range kinds {
			assert.Equal(t, i == j, errors.Is(a, b), "%v vs %v", a, b)
		}
	}
}
