// Package llm defines the language model port and its adapters.
package llm

import "context"

// Generator is a stateless single-turn completion call.
type Generator interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
}
