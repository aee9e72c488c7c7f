// Package extractive provides an offline Generator that answers by quoting
// sentences from the prompt's context. It needs no model server and never
// produces text that is not in the context.
package extractive

import (
	"context"
	"math"
	"sort"
	"strings"

	"bookrag/internal/domain"
	"bookrag/internal/llm"
	"bookrag/internal/prompt"
	"bookrag/internal/textutil"
)

var _ llm.Generator = (*Generator)(nil)

// DefaultMaxSentences bounds the answer length when none is configured.
const DefaultMaxSentences = 3

// Generator ranks context sentences by how many question terms they share,
// breaking ties with context-wide term frequency.
type Generator struct {
	maxSentences int
}

// New creates an extractive generator.
func New(maxSentences int) *Generator {
	if maxSentences <= 0 {
		maxSentences = DefaultMaxSentences
	}
	return &Generator{maxSentences: maxSentences}
}

// Name returns the generator identifier.
func (g *Generator) Name() string { return "extractive" }

// Generate answers from the context section of p. Prompts not rendered
// with the default layout are treated as context with an empty question.
func (g *Generator) Generate(ctx context.Context, p string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	contextText, question, ok := prompt.Sections(p)
	if !ok {
		contextText = p
	}
	query := textutil.TokenSet(question)
	if len(query) == 0 {
		return domain.FallbackAnswer, nil
	}

	var sentences []string
	seen := make(map[string]struct{})
	for _, line := range strings.Split(contextText, "\n") {
		for _, s := range textutil.Sentences(line) {
			if _, dup := seen[s]; dup {
				continue
			}
			seen[s] = struct{}{}
			sentences = append(sentences, s)
		}
	}

	freq := termFrequencies(sentences)
	type scored struct {
		idx     int
		overlap int
		weight  float64
	}
	var candidates []scored
	for i, s := range sentences {
		overlap := textutil.Overlap(query, s)
		if overlap == 0 {
			continue
		}
		tokens := textutil.Tokens(s)
		w := 0.0
		for _, tok := range tokens {
			w += freq[tok]
		}
		if len(tokens) > 0 {
			w /= math.Sqrt(float64(len(tokens)))
		}
		candidates = append(candidates, scored{idx: i, overlap: overlap, weight: w})
	}
	if len(candidates) == 0 {
		return domain.FallbackAnswer, nil
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].overlap != candidates[j].overlap {
			return candidates[i].overlap > candidates[j].overlap
		}
		return candidates[i].weight > candidates[j].weight
	})
	if len(candidates) > g.maxSentences {
		candidates = candidates[:g.maxSentences]
	}
	// Keep original order among selected
	selected := make([]int, len(candidates))
	for i, c := range candidates {
		selected[i] = c.idx
	}
	sort.Ints(selected)
	out := make([]string, len(selected))
	for i, idx := range selected {
		out[i] = sentences[idx]
	}
	return strings.Join(out, " "), nil
}

// termFrequencies returns token counts normalised by the most frequent token.
func termFrequencies(sentences []string) map[string]float64 {
	freq := map[string]float64{}
	for _, s := range sentences {
		for _, tok := range textutil.Tokens(s) {
			freq[tok]++
		}
	}
	maxF := 0.0
	for _, v := range freq {
		if v > maxF {
			maxF = v
		}
	}
	if maxF > 0 {
		for k, v := range freq {
			freq[k] = v / maxF
		}
	}
	return freq
}
