package domain

import (
	"errors"
	"fmt"
)

// Errors returned by the pipelines. Adapters map them to user-facing
// responses with errors.Is.
var (
	// ErrConfiguration indicates a missing or unusable ingestion folder or setting.
	ErrConfiguration = errors.New("configuration error")

	// ErrNoInput indicates the ingestion folder holds no eligible files.
	// It matches ErrConfiguration.
	ErrNoInput = fmt.Errorf("%w: no input documents", ErrConfiguration)

	// ErrStorage indicates the vector store or the embedding provider failed.
	ErrStorage = errors.New("storage error")

	// ErrGeneration indicates the language model failed or timed out.
	ErrGeneration = errors.New("generation error")

	// ErrInvalidInput indicates a malformed request, such as a blank question.
	ErrInvalidInput = errors.New("invalid input")
)
