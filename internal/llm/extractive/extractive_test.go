package extractive

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookrag/internal/domain"
	"bookrag/internal/prompt"
)

func render(t *testing.T, ctx, question string) string {
	t.Helper()
	p, err := prompt.Default().Render(ctx, question)
	require.NoError(t, err)
	return p
}

func TestGenerate_QuotesMatchingSentence(t *testing.T) {
	g := New(1)
	p := render(t, "Alice went to the market. The sky was grey.\nBob stayed home.", "Where did Alice go?")

	out, err := g.Generate(context.Background(), p)

	require.NoError(t, err)
	assert.Equal(t, "Alice went to the market.", out)
}

func TestGenerate_KeepsContextOrder(t *testing.T) {
	g := New(2)
	p := render(t, "Pears were cheap at the market. Alice bought pears. Rain fell.", "What did Alice buy at the market?")

	out, err := g.Generate(context.Background(), p)

	require.NoError(t, err)
	assert.Equal(t, "Pears were cheap at the market. Alice bought pears.", out)
}

func TestGenerate_FallbackWhenNothingMatches(t *testing.T) {
	g := New(3)
	p := render(t, "The whale swam beneath the ice.", "What did Alice buy?")

	out, err := g.Generate(context.Background(), p)

	require.NoError(t, err)
	assert.Equal(t, domain.FallbackAnswer, out)
}

func TestGenerate_StopwordQuestion(t *testing.T) {
	out, err := New(0).Generate(context.Background(), render(t, "Anything at all.", "what is it?"))
	require.NoError(t, err)
	assert.Equal(t, domain.FallbackAnswer, out)
}

func TestGenerate_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(1).Generate(ctx, "x")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestName(t *testing.T) {
	assert.Equal(t, "extractive", New(1).Name())
}
