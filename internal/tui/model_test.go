package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookrag/internal/domain"
)

type stubAsker struct {
	answer domain.Answer
	err    error
	got    string
}

func (s *stubAsker) Answer(ctx context.Context, q string) (domain.Answer, error) {
	s.got = q
	return s.answer, s.err
}

func typeText(m Model, text string) Model {
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
	return next.(Model)
}

func TestEnter_AsksAndShowsAnswer(t *testing.T) {
	asker := &stubAsker{answer: domain.Answer{
		Text:     "Alice went to the market.",
		Passages: []string{"Alice went to the market. It rained.", "Bob stayed home."},
	}}
	m := New(context.Background(), asker, "2 books stored")
	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	m = typeText(next.(Model), "Where did Alice go?")

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	require.NotNil(t, cmd)
	assert.True(t, m.busy)
	assert.Empty(t, m.input.Value())

	next, _ = m.Update(cmd())
	m = next.(Model)
	assert.Equal(t, "Where did Alice go?", asker.got)
	assert.False(t, m.busy)
	assert.Contains(t, m.renderAnswer(), "Passage 1/2")
	assert.Contains(t, m.View(), "bookrag")

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m = next.(Model)
	assert.Equal(t, 1, m.cursor)
	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 0, next.(Model).cursor)
}

func TestAnswerError_ShowsStatus(t *testing.T) {
	m := New(context.Background(), &stubAsker{}, "")
	next, _ := m.Update(answerMsg{question: "q", err: errors.New("generation error: model down")})
	m = next.(Model)
	assert.Contains(t, m.status, "model down")
	assert.Equal(t, "No answer yet.", m.renderAnswer())
}

func TestHighlightBestSentence_NoQuery(t *testing.T) {
	assert.Equal(t, "One. Two.", highlightBestSentence("One. Two.", ""))
	assert.Equal(t, "  ", highlightBestSentence("  ", "x"))
}
