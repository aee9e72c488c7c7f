package sqlite

import (
	"context"
	"database/sql/driver"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/sqlite-vec/vector"

	"bookrag/internal/domain"
)

func newMemory(t *testing.T) *Storage {
	t.Helper()
	s, err := NewStorage(":memory:", "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.EnsureSchema(context.Background()))
	return s
}

func TestNewStorage_RejectsBadCollection(t *testing.T) {
	_, err := NewStorage(":memory:", "drop table;")
	require.Error(t, err)
}

func TestEnsureSchema_Idempotent(t *testing.T) {
	s := newMemory(t)
	require.NoError(t, s.EnsureSchema(context.Background()))
}

func TestInsertAndSearch(t *testing.T) {
	s := newMemory(t)
	ctx := context.Background()

	n, err := s.Insert(ctx, []domain.Record{
		{Text: "east", Source: "a.txt", Vector: []float32{1, 0}},
		{Text: "north", Source: "b.txt", Vector: []float32{0, 1}},
		{Text: "north-east", Source: "c.txt", Vector: []float32{1, 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	matches, err := s.Search(ctx, []float32{1, 0.1}, 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "east", matches[0].Text)
	assert.Equal(t, "a.txt", matches[0].Source)
	assert.Equal(t, "north-east", matches[1].Text)
	assert.Less(t, matches[0].Distance, matches[1].Distance)
	assert.NotEmpty(t, matches[0].ID)
}

func TestSearch_ZeroVector(t *testing.T) {
	s := newMemory(t)
	ctx := context.Background()
	_, err := s.Insert(ctx, []domain.Record{{Text: "x", Source: "a.txt", Vector: []float32{1, 0}}})
	require.NoError(t, err)

	matches, err := s.Search(ctx, []float32{0, 0}, 5)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.InDelta(t, 1.0, matches[0].Distance, 1e-9)
}

func TestScan_Pages(t *testing.T) {
	s := newMemory(t)
	ctx := context.Background()
	records := make([]domain.Record, 0, 5)
	for i := 0; i < 5; i++ {
		records = append(records, domain.Record{
			ID:     fmt.Sprintf("id-%d", i),
			Text:   fmt.Sprintf("chunk %d", i),
			Source: fmt.Sprintf("book%d.txt", i%2),
			Vector: []float32{float32(i), 1},
		})
	}
	_, err := s.Insert(ctx, records)
	require.NoError(t, err)

	var seen []string
	cursor := ""
	pages := 0
	for {
		page, err := s.Scan(ctx, cursor, 2)
		require.NoError(t, err)
		pages++
		for _, r := range page.Records {
			seen = append(seen, r.ID)
		}
		if page.Next == "" {
			break
		}
		cursor = page.Next
	}
	assert.Equal(t, []string{"id-0", "id-1", "id-2", "id-3", "id-4"}, seen)
	assert.Equal(t, 3, pages)
}

func TestDrop_ThenEmpty(t *testing.T) {
	s := newMemory(t)
	ctx := context.Background()
	_, err := s.Insert(ctx, []domain.Record{{Text: "x", Source: "a.txt", Vector: []float32{1}}})
	require.NoError(t, err)

	require.NoError(t, s.Drop(ctx))

	matches, err := s.Search(ctx, []float32{1}, 3)
	require.NoError(t, err)
	assert.Empty(t, matches)
	page, err := s.Scan(ctx, "", 10)
	require.NoError(t, err)
	assert.Empty(t, page.Records)
	require.NoError(t, s.EnsureSchema(ctx))
}

func TestFileDatabase_Persists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "chunks.db")
	ctx := context.Background()

	s, err := NewStorage(path, "Chunks")
	require.NoError(t, err)
	require.NoError(t, s.EnsureSchema(ctx))
	_, err = s.Insert(ctx, []domain.Record{{Text: "kept", Source: "a.txt", Vector: []float32{0.5, 0.5}}})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = NewStorage(path, "Chunks")
	require.NoError(t, err)
	defer s.Close()
	page, err := s.Scan(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, page.Records, 1)
	assert.Equal(t, "kept", page.Records[0].Text)
}

func TestVecDistance(t *testing.T) {
	a, err := vector.EncodeEmbedding([]float32{1, 0})
	require.NoError(t, err)
	b, err := vector.EncodeEmbedding([]float32{0, 2})
	require.NoError(t, err)

	d, err := vecDistance(nil, []driver.Value{a, a})
	require.NoError(t, err)
	assert.InDelta(t, 0, d.(float64), 1e-9)

	d, err = vecDistance(nil, []driver.Value{a, b})
	require.NoError(t, err)
	assert.InDelta(t, 1, d.(float64), 1e-9)

	d, err = vecDistance(nil, []driver.Value{a, nil})
	require.NoError(t, err)
	assert.InDelta(t, 1, d.(float64), 1e-9)

	_, err = vecDistance(nil, []driver.Value{a, []byte{1, 2, 3}})
	require.Error(t, err)
	_, err = vecDistance(nil, []driver.Value{a, "text"})
	require.Error(t, err)

	c, err := vector.EncodeEmbedding([]float32{1, 0, 0})
	require.NoError(t, err)
	_, err = vecDistance(nil, []driver.Value{a, c})
	require.Error(t, err)
}
