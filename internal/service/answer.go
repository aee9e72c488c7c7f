package service

import (
	"context"
	"fmt"
	"strings"

	"bookrag/internal/domain"
	"bookrag/internal/llm"
	"bookrag/internal/logging"
	"bookrag/internal/prompt"
)

// Retriever returns stored chunk texts nearest to a query, most similar first.
type Retriever interface {
	Search(ctx context.Context, query string, limit int) ([]string, error)
}

// Answerer answers questions from retrieved passages.
type Answerer struct {
	retriever Retriever
	generator llm.Generator
	template  *prompt.Template
	limit     int
}

// NewAnswerer creates an Answerer. A nil template means the default prompt;
// a non-positive limit means DefaultSearchLimit.
func NewAnswerer(retriever Retriever, generator llm.Generator, template *prompt.Template, limit int) *Answerer {
	if template == nil {
		template = prompt.Default()
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	return &Answerer{retriever: retriever, generator: generator, template: template, limit: limit}
}

// Answer retrieves passages for question and asks the generator to answer from
// them. When nothing is retrieved it returns domain.FallbackAnswer without
// calling the generator.
func (a *Answerer) Answer(ctx context.Context, question string) (domain.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return domain.Answer{}, fmt.Errorf("%w: question is empty", domain.ErrInvalidInput)
	}

	passages, err := a.retriever.Search(ctx, question, a.limit)
	if err != nil {
		return domain.Answer{}, err
	}
	if len(passages) == 0 {
		logging.Debug("no passages for %q", question)
		return domain.Answer{Text: domain.FallbackAnswer, Passages: []string{}}, nil
	}

	p, err := a.template.Render(strings.Join(passages, "\n"), question)
	if err != nil {
		return domain.Answer{}, fmt.Errorf("%w: %w", domain.ErrConfiguration, err)
	}
	text, err := a.generator.Generate(ctx, p)
	if err != nil {
		return domain.Answer{}, fmt.Errorf("%w: %s: %w", domain.ErrGeneration, a.generator.Name(), err)
	}
	logging.Debug("answered %q from %d passages", question, len(passages))
	return domain.Answer{Text: text, Passages: passages}, nil
}
