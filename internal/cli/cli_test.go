package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookrag/internal/domain"
)

// offlineConfig writes a config using the hashing embedder, the extractive
// generator and a SQLite file so state survives between commands.
func offlineConfig(t *testing.T) (cfgPath, folder string) {
	t.Helper()
	dir := t.TempDir()
	folder = filepath.Join(dir, "libros")
	require.NoError(t, os.Mkdir(folder, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(folder, "book1.txt"), []byte("Alice went to the market."), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(folder, "book2.txt"), []byte("Bob stayed at home."), 0o644))

	cfgPath = filepath.Join(dir, "config.yaml")
	body := fmt.Sprintf(`ingest:
  folder: %s
embedder:
  type: hashing
llm:
  type: extractive
vector_store:
  type: sqlite
  sqlite:
    path: %s
`, folder, filepath.Join(dir, "data", "bookrag.db"))
	require.NoError(t, os.WriteFile(cfgPath, []byte(body), 0o644))
	return cfgPath, folder
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	loadJSON, askPassages, clearYes, verbose, serveAddr = false, false, false, false, ""
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestRootCmd_HasSubcommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"serve", "load", "ask", "books", "clear", "chat"} {
		assert.True(t, names[want], want)
	}
	require.NotNil(t, rootCmd.PersistentFlags().Lookup("config"))
	require.NotNil(t, rootCmd.PersistentFlags().Lookup("verbose"))
}

func TestLoadBooksAsk(t *testing.T) {
	cfg, _ := offlineConfig(t)

	out, err := run(t, "--config", cfg, "load", "--json")
	require.NoError(t, err)
	var summary domain.IngestSummary
	require.NoError(t, json.Unmarshal([]byte(out), &summary), out)
	assert.Equal(t, []string{"book1.txt", "book2.txt"}, summary.Loaded)

	out, err = run(t, "--config", cfg, "load")
	require.NoError(t, err)
	assert.Contains(t, out, "Loaded: none")
	assert.Contains(t, out, "book1.txt, book2.txt")

	out, err = run(t, "--config", cfg, "books")
	require.NoError(t, err)
	assert.Equal(t, "book1.txt\nbook2.txt\n", out)

	out, err = run(t, "--config", cfg, "ask", "What", "did", "Alice", "buy?")
	require.NoError(t, err)
	assert.Equal(t, "Alice went to the market.\n", out)
}

func TestAsk_EmptyStoreFallback(t *testing.T) {
	cfg, _ := offlineConfig(t)
	out, err := run(t, "--config", cfg, "ask", "Who is Alice?")
	require.NoError(t, err)
	assert.Contains(t, out, domain.FallbackAnswer)
}

func TestLoad_MissingFolder(t *testing.T) {
	cfg, folder := offlineConfig(t)
	require.NoError(t, os.RemoveAll(folder))

	_, err := run(t, "--config", cfg, "load")

	require.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestClear_RequiresYes(t *testing.T) {
	cfg, _ := offlineConfig(t)
	_, err := run(t, "--config", cfg, "load")
	require.NoError(t, err)

	_, err = run(t, "--config", cfg, "clear")
	require.Error(t, err)

	out, err := run(t, "--config", cfg, "clear", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "cleared")

	out, err = run(t, "--config", cfg, "books")
	require.NoError(t, err)
	assert.Contains(t, out, "No books stored.")
}

func TestInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("vector_store:\n  type: pinecone\n"), 0o644))

	_, err := run(t, "--config", path, "books")

	require.ErrorIs(t, err, domain.ErrConfiguration)
}
