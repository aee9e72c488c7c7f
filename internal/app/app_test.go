package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookrag/internal/config"
	"bookrag/internal/domain"
	"bookrag/internal/service"
	"bookrag/internal/vectorstore/memory"
)

func offlineConfig(t *testing.T, store string) *config.AppConfig {
	t.Helper()
	cfg := config.Default()
	cfg.Embedder.Type = "hashing"
	cfg.LLM.Type = "extractive"
	cfg.VectorStore.Type = store
	cfg.VectorStore.SQLite.Path = filepath.Join(t.TempDir(), "bookrag.db")
	cfg.Ingest.Folder = t.TempDir()
	return cfg
}

func TestNew_OfflineStack(t *testing.T) {
	for _, store := range []string{"memory", "sqlite"} {
		t.Run(store, func(t *testing.T) {
			cfg := offlineConfig(t, store)
			require.NoError(t, os.WriteFile(filepath.Join(cfg.Ingest.Folder, "book1.txt"), []byte("Alice went to the market."), 0o644))
			ctx := context.Background()

			a, err := New(ctx, cfg)
			require.NoError(t, err)
			defer a.Close()

			assert.Equal(t, "hashing", a.Embedder.Name())
			assert.Equal(t, "extractive", a.Generator.Name())

			summary, err := a.Ingestor.Ingest(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"book1.txt"}, summary.Loaded)

			ans, err := a.Answerer.Answer(ctx, "What did Alice buy?")
			require.NoError(t, err)
			assert.Equal(t, "Alice went to the market.", ans.Text)
		})
	}
}

func TestNew_UnknownTypes(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.AppConfig)
	}{
		{"embedder", func(c *config.AppConfig) { c.Embedder.Type = "tfidf" }},
		{"llm", func(c *config.AppConfig) { c.LLM.Type = "gpt2" }},
		{"store", func(c *config.AppConfig) { c.VectorStore.Type = "pinecone" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := offlineConfig(t, "memory")
			tt.mutate(cfg)
			_, err := New(context.Background(), cfg)
			require.ErrorIs(t, err, domain.ErrConfiguration)
		})
	}
}

func TestNew_MissingPromptFile(t *testing.T) {
	cfg := offlineConfig(t, "memory")
	cfg.LLM.PromptFile = filepath.Join(t.TempDir(), "missing.tmpl")
	_, err := New(context.Background(), cfg)
	require.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestNew_OpenAIWithoutKey(t *testing.T) {
	cfg := offlineConfig(t, "memory")
	cfg.Embedder.Type = "openai"
	cfg.Embedder.OpenAI.APIKeyEnv = "BOOKRAG_TEST_UNSET_KEY"
	t.Setenv("BOOKRAG_TEST_UNSET_KEY", "")

	_, err := New(context.Background(), cfg)
	require.ErrorIs(t, err, domain.ErrConfiguration)
}

type pooledEmbedder struct{ closed int }

func (e *pooledEmbedder) Name() string { return "pooled" }
func (e *pooledEmbedder) Dimension() int { return 2 }
func (e *pooledEmbedder) CloseIdleConnections() { e.closed++ }
func (e *pooledEmbedder) Embed(context.Context, string) ([]float32, error) {
	return []float32{1, 0}, nil
}

type pooledGenerator struct{ closed int }

func (g *pooledGenerator) Name() string { return "pooled" }
func (g *pooledGenerator) CloseIdleConnections() { g.closed++ }
func (g *pooledGenerator) Generate(context.Context, string) (string, error) {
	return "", nil
}

func TestClose_ReleasesClients(t *testing.T) {
	emb := &pooledEmbedder{}
	gen := &pooledGenerator{}
	a := &App{
		Embedder:  emb,
		Generator: gen,
		Gateway:   service.NewGateway(emb, memory.NewStorage(), service.GatewayConfig{}),
	}

	require.NoError(t, a.Close())
	assert.Equal(t, 1, emb.closed)
	assert.Equal(t, 1, gen.closed)
}
