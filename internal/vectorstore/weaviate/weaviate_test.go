package weaviate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookrag/internal/domain"
)

type fakeWeaviate struct {
	mu      sync.Mutex
	exists  bool
	schema  classSchema
	objects []object
	query   string
	afters  []string
}

func (f *fakeWeaviate) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/v1/schema/BookChunk":
		if !f.exists {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"class":"BookChunk"}`))
	case r.Method == http.MethodPost && r.URL.Path == "/v1/schema":
		_ = json.NewDecoder(r.Body).Decode(&f.schema)
		f.exists = true
		_, _ = w.Write([]byte(`{}`))
	case r.Method == http.MethodPost && r.URL.Path == "/v1/batch/objects":
		var body struct {
			Objects []object `json:"objects"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		out := make([]map[string]any, len(body.Objects))
		for i, o := range body.Objects {
			res := map[string]any{}
			if o.Properties["text"] == "reject me" {
				res["errors"] = map[string]any{"error": []map[string]string{{"message": "bad vector"}}}
			} else {
				f.objects = append(f.objects, o)
			}
			out[i] = map[string]any{"id": o.ID, "result": res}
		}
		_ = json.NewEncoder(w).Encode(out)
	case r.Method == http.MethodPost && r.URL.Path == "/v1/graphql":
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.query = body["query"]
		_, _ = w.Write([]byte(`{"data":{"Get":{"BookChunk":[
			{"text":"Alice went to the market.","source":"book1.txt","_additional":{"id":"x1","distance":0.12}},
			{"text":"","source":"book2.txt","_additional":{"id":"x2","distance":0.5}}
		]}}}`))
	case r.Method == http.MethodGet && r.URL.Path == "/v1/objects":
		after := r.URL.Query().Get("after")
		f.afters = append(f.afters, after)
		if after == "" {
			_, _ = w.Write([]byte(`{"objects":[
				{"id":"o1","properties":{"text":"a","source":"book1.txt"}},
				{"id":"o2","properties":{"text":"b","source":"book2.txt"}}]}`))
			return
		}
		_, _ = w.Write([]byte(`{"objects":[{"id":"o3","properties":{"text":"c","source":"book3.txt"}}]}`))
	case r.Method == http.MethodDelete && r.URL.Path == "/v1/schema/BookChunk":
		if !f.exists {
			http.NotFound(w, r)
			return
		}
		f.exists = false
		w.WriteHeader(http.StatusOK)
	default:
		http.Error(w, r.Method+" "+r.URL.Path, http.StatusTeapot)
	}
}

func newTestStorage(t *testing.T, f *fakeWeaviate) *Storage {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	s, err := NewStorage(Config{URL: srv.URL})
	require.NoError(t, err)
	return s
}

func TestNewStorage_ClassName(t *testing.T) {
	_, err := NewStorage(Config{URL: "http://x", Class: "bookChunk"})
	require.Error(t, err)
	_, err = NewStorage(Config{})
	require.Error(t, err)
}

func TestEnsureSchema(t *testing.T) {
	f := &fakeWeaviate{}
	s := newTestStorage(t, f)

	require.NoError(t, s.EnsureSchema(context.Background()))
	require.NoError(t, s.EnsureSchema(context.Background()))

	assert.Equal(t, "BookChunk", f.schema.Class)
	assert.Equal(t, "none", f.schema.Vectorizer)
	assert.Equal(t, []property{
		{Name: "text", DataType: []string{"text"}},
		{Name: "source", DataType: []string{"text"}},
	}, f.schema.Properties)
}

func TestInsert_CountsRejected(t *testing.T) {
	f := &fakeWeaviate{exists: true}
	s := newTestStorage(t, f)

	n, err := s.Insert(context.Background(), []domain.Record{
		{Text: "ok", Source: "b.txt", Vector: []float32{1}},
		{Text: "reject me", Source: "b.txt", Vector: []float32{1}},
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad vector")
	assert.Equal(t, 1, n)
	require.Len(t, f.objects, 1)
	assert.Equal(t, "BookChunk", f.objects[0].Class)
	assert.Len(t, f.objects[0].ID, 36)
}

func TestSearch(t *testing.T) {
	f := &fakeWeaviate{exists: true}
	s := newTestStorage(t, f)

	matches, err := s.Search(context.Background(), []float32{0.5, -1}, 20)

	require.NoError(t, err)
	assert.Contains(t, f.query, "BookChunk(nearVector: {vector: [0.5,-1]}, limit: 20)")
	require.Len(t, matches, 2)
	assert.Equal(t, "Alice went to the market.", matches[0].Text)
	assert.Equal(t, "book1.txt", matches[0].Source)
	assert.InDelta(t, 0.12, matches[0].Distance, 1e-9)
}

func TestScan_CursorPagination(t *testing.T) {
	f := &fakeWeaviate{exists: true}
	s := newTestStorage(t, f)
	ctx := context.Background()

	p1, err := s.Scan(ctx, "", 2)
	require.NoError(t, err)
	assert.Len(t, p1.Records, 2)
	assert.Equal(t, "o2", p1.Next)

	p2, err := s.Scan(ctx, p1.Next, 2)
	require.NoError(t, err)
	require.Len(t, p2.Records, 1)
	assert.Equal(t, "book3.txt", p2.Records[0].Source)
	assert.Empty(t, p2.Next)
	assert.Equal(t, []string{"", "o2"}, f.afters)
}

func TestDrop(t *testing.T) {
	f := &fakeWeaviate{exists: true}
	s := newTestStorage(t, f)
	require.NoError(t, s.Drop(context.Background()))
	require.NoError(t, s.Drop(context.Background()))
	assert.False(t, f.exists)
}

func TestFormatVector(t *testing.T) {
	assert.Equal(t, "[]", formatVector(nil))
	assert.Equal(t, "[1,0.25,-3]", formatVector([]float32{1, 0.25, -3}))
}
