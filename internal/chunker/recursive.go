// Package chunker splits document text into bounded, overlapping chunks.
package chunker

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"bookrag/internal/domain"
)

// DefaultChunkSize is the default maximum number of characters per chunk.
const DefaultChunkSize = 350

// DefaultChunkOverlap is the default number of characters carried over
// from the end of one chunk into the next.
const DefaultChunkOverlap = 80

// Processor splits text on the largest boundary that fits, falling back
// from paragraphs to lines, sentences, words and finally characters.
type Processor struct {
	chunkSize int
	overlap   int
	levels    []level
}

// Option configures the chunker.
type Option func(*Processor)

// WithChunkSize sets the maximum chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between consecutive chunks in characters.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// New creates a chunker with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
		levels:    defaultLevels(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.overlap >= p.chunkSize {
		p.overlap = p.chunkSize / 4
	}
	return p
}

// Name returns the chunker name.
func (p *Processor) Name() string { return "recursive" }

// ChunkSize returns the configured maximum chunk size.
func (p *Processor) ChunkSize() int { return p.chunkSize }

// Overlap returns the configured overlap.
func (p *Processor) Overlap() int { return p.overlap }

// Chunk splits a document and tags every piece with the document ID as its source.
func (p *Processor) Chunk(doc domain.Document) []domain.Chunk {
	texts := p.Split(doc.Content)
	if len(texts) == 0 {
		return nil
	}
	chunks := make([]domain.Chunk, len(texts))
	for i, t := range texts {
		chunks[i] = domain.Chunk{Source: doc.ID, Text: t, Index: i}
	}
	return chunks
}

// Split returns the chunk texts for text. Empty input yields no chunks.
func (p *Processor) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return p.split(text, p.levels)
}

func (p *Processor) split(text string, levels []level) []string {
	current := levels[len(levels)-1]
	var rest []level
	for i, l := range levels {
		if l.applies(text) {
			current = l
			rest = levels[i+1:]
			break
		}
	}

	var out, small []string
	for _, piece := range current.split(text) {
		if utf8.RuneCountInString(piece) < p.chunkSize {
			small = append(small, piece)
			continue
		}
		if len(small) > 0 {
			out = append(out, p.merge(small)...)
			small = nil
		}
		if len(rest) == 0 {
			if t := strings.TrimSpace(piece); t != "" {
				out = append(out, t)
			}
		} else {
			out = append(out, p.split(piece, rest)...)
		}
	}
	if len(small) > 0 {
		out = append(out, p.merge(small)...)
	}
	return out
}

// merge packs pieces greedily into chunks of at most chunkSize characters.
// When a chunk is emitted, its trailing pieces totalling at most overlap
// characters start the next one.
func (p *Processor) merge(pieces []string) []string {
	var (
		chunks  []string
		window  []string
		lengths []int
		total   int
	)
	emit := func() {
		if t := strings.TrimSpace(strings.Join(window, "")); t != "" {
			chunks = append(chunks, t)
		}
	}
	for _, piece := range pieces {
		n := utf8.RuneCountInString(piece)
		if total+n > p.chunkSize && len(window) > 0 {
			emit()
			for total > p.overlap || (total+n > p.chunkSize && total > 0) {
				total -= lengths[0]
				window = window[1:]
				lengths = lengths[1:]
			}
		}
		window = append(window, piece)
		lengths = append(lengths, n)
		total += n
	}
	emit()
	return chunks
}

type level struct {
	name    string
	applies func(string) bool
	split   func(string) []string
}

var sentenceBoundary = regexp.MustCompile(`[.!?]+\s+`)

func defaultLevels() []level {
	return []level{
		separatorLevel("paragraph", "\n\n"),
		separatorLevel("line", "\n"),
		{
			name:    "sentence",
			applies: sentenceBoundary.MatchString,
			split:   splitSentences,
		},
		separatorLevel("word", " "),
		{
			name:    "character",
			applies: func(string) bool { return true },
			split:   splitRunes,
		},
	}
}

// separatorLevel splits on sep, keeping the separator at the start of the
// following piece so that joining the pieces restores the text.
func separatorLevel(name, sep string) level {
	return level{
		name:    name,
		applies: func(s string) bool { return strings.Contains(s, sep) },
		split: func(s string) []string {
			parts := strings.Split(s, sep)
			out := make([]string, 0, len(parts))
			if parts[0] != "" {
				out = append(out, parts[0])
			}
			for _, part := range parts[1:] {
				out = append(out, sep+part)
			}
			return out
		},
	}
}

// splitSentences cuts after terminal punctuation and the whitespace that follows it.
func splitSentences(s string) []string {
	var out []string
	prev := 0
	for _, loc := range sentenceBoundary.FindAllStringIndex(s, -1) {
		out = append(out, s[prev:loc[1]])
		prev = loc[1]
	}
	if prev < len(s) {
		out = append(out, s[prev:])
	}
	return out
}

func splitRunes(s string) []string {
	out := make([]string, 0, utf8.RuneCountInString(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}
