// Package weaviate provides a Storage backed by the Weaviate REST and GraphQL APIs.
package weaviate

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"bookrag/internal/domain"
	"bookrag/internal/vectorstore"
	"bookrag/internal/vectorstore/rest"
)

var _ vectorstore.Storage = (*Storage)(nil)

// Config contains connection details for a Weaviate class.
type Config struct {
	URL        string
	APIKey     string
	Class      string
	Timeout    time.Duration
	MaxRetries int
}

// Storage stores records as objects of one class with vectorizer "none",
// so vectors are always supplied by the caller.
type Storage struct {
	client *rest.Client
	class  string
}

// NewStorage creates a Weaviate storage client. No request is made until EnsureSchema.
func NewStorage(cfg Config) (*Storage, error) {
	if cfg.URL == "" {
		return nil, errors.New("weaviate: url is required")
	}
	if cfg.Class == "" {
		cfg.Class = vectorstore.DefaultCollection
	}
	if r := []rune(cfg.Class); !unicode.IsUpper(r[0]) {
		return nil, fmt.Errorf("weaviate: class name %q must start with an upper-case letter", cfg.Class)
	}
	headers := map[string]string{}
	if cfg.APIKey != "" {
		headers["Authorization"] = "Bearer " + cfg.APIKey
	}
	return &Storage{
		client: rest.New(rest.Config{
			BaseURL:    cfg.URL,
			Headers:    headers,
			Timeout:    cfg.Timeout,
			MaxRetries: cfg.MaxRetries,
		}),
		class: cfg.Class,
	}, nil
}

type property struct {
	Name     string   `json:"name"`
	DataType []string `json:"dataType"`
}

type classSchema struct {
	Class      string     `json:"class"`
	Vectorizer string     `json:"vectorizer"`
	Properties []property `json:"properties"`
}

// EnsureSchema creates the class with text and source properties if missing.
func (s *Storage) EnsureSchema(ctx context.Context) error {
	err := s.client.Do(ctx, http.MethodGet, "/v1/schema/"+url.PathEscape(s.class), nil, nil)
	if err == nil {
		return nil
	}
	if !rest.IsNotFound(err) {
		return err
	}
	schema := classSchema{
		Class:      s.class,
		Vectorizer: "none",
		Properties: []property{
			{Name: "text", DataType: []string{"text"}},
			{Name: "source", DataType: []string{"text"}},
		},
	}
	if err := s.client.Do(ctx, http.MethodPost, "/v1/schema", schema, nil); err != nil {
		return fmt.Errorf("weaviate: create class: %w", err)
	}
	return nil
}

type object struct {
	Class      string            `json:"class"`
	ID         string            `json:"id"`
	Properties map[string]string `json:"properties"`
	Vector     []float32         `json:"vector,omitempty"`
}

type batchResult struct {
	ID     string `json:"id"`
	Result struct {
		Errors *struct {
			Error []struct {
				Message string `json:"message"`
			} `json:"error"`
		} `json:"errors"`
	} `json:"result"`
}

// Insert writes records with the batch endpoint. Weaviate reports errors
// per object; the returned count excludes rejected objects.
func (s *Storage) Insert(ctx context.Context, records []domain.Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	objects := make([]object, len(records))
	for i, r := range records {
		id := r.ID
		if id == "" {
			id = uuid.NewString()
		}
		objects[i] = object{
			Class:      s.class,
			ID:         id,
			Properties: map[string]string{"text": r.Text, "source": r.Source},
			Vector:     r.Vector,
		}
	}
	var results []batchResult
	body := map[string]any{"objects": objects}
	if err := s.client.Do(ctx, http.MethodPost, "/v1/batch/objects", body, &results); err != nil {
		return 0, fmt.Errorf("weaviate: batch insert: %w", err)
	}
	inserted := 0
	var firstErr string
	for _, r := range results {
		if r.Result.Errors != nil && len(r.Result.Errors.Error) > 0 {
			if firstErr == "" {
				firstErr = r.Result.Errors.Error[0].Message
			}
			continue
		}
		inserted++
	}
	if firstErr != "" {
		return inserted, fmt.Errorf("weaviate: %d of %d objects rejected: %s", len(records)-inserted, len(records), firstErr)
	}
	return inserted, nil
}

type graphQLError struct {
	Message string `json:"message"`
}

type graphQLResponse struct {
	Data struct {
		Get map[string][]struct {
			Text       string `json:"text"`
			Source     string `json:"source"`
			Additional struct {
				ID       string  `json:"id"`
				Distance float64 `json:"distance"`
			} `json:"_additional"`
		} `json:"Get"`
	} `json:"data"`
	Errors []graphQLError `json:"errors"`
}

// Search runs a nearVector GraphQL query. Weaviate returns hits ordered by distance.
func (s *Storage) Search(ctx context.Context, vector []float32, limit int) ([]domain.Match, error) {
	if limit <= 0 {
		return nil, nil
	}
	query := fmt.Sprintf(`{ Get { %s(nearVector: {vector: %s}, limit: %d) { text source _additional { id distance } } } }`,
		s.class, formatVector(vector), limit)
	var resp graphQLResponse
	if err := s.client.Do(ctx, http.MethodPost, "/v1/graphql", map[string]string{"query": query}, &resp); err != nil {
		return nil, fmt.Errorf("weaviate: search: %w", err)
	}
	if len(resp.Errors) > 0 {
		return nil, fmt.Errorf("weaviate: search: %s", resp.Errors[0].Message)
	}
	hits := resp.Data.Get[s.class]
	matches := make([]domain.Match, 0, len(hits))
	for _, h := range hits {
		matches = append(matches, domain.Match{
			ID:       h.Additional.ID,
			Text:     h.Text,
			Source:   h.Source,
			Distance: h.Additional.Distance,
		})
	}
	return matches, nil
}

// Scan lists objects with cursor pagination; the cursor is the last object ID seen.
func (s *Storage) Scan(ctx context.Context, cursor string, pageSize int) (vectorstore.Page, error) {
	if pageSize <= 0 {
		return vectorstore.Page{}, errors.New("weaviate: page size must be positive")
	}
	q := url.Values{}
	q.Set("class", s.class)
	q.Set("limit", strconv.Itoa(pageSize))
	if cursor != "" {
		q.Set("after", cursor)
	}
	var resp struct {
		Objects []struct {
			ID         string            `json:"id"`
			Properties map[string]string `json:"properties"`
		} `json:"objects"`
	}
	if err := s.client.Do(ctx, http.MethodGet, "/v1/objects?"+q.Encode(), nil, &resp); err != nil {
		return vectorstore.Page{}, fmt.Errorf("weaviate: list objects: %w", err)
	}
	page := vectorstore.Page{Records: make([]domain.Record, 0, len(resp.Objects))}
	for _, o := range resp.Objects {
		page.Records = append(page.Records, domain.Record{
			ID:     o.ID,
			Text:   o.Properties["text"],
			Source: o.Properties["source"],
		})
	}
	if len(resp.Objects) == pageSize {
		page.Next = resp.Objects[len(resp.Objects)-1].ID
	}
	return page, nil
}

// Drop deletes the class and all its objects. A missing class is not an error.
func (s *Storage) Drop(ctx context.Context) error {
	err := s.client.Do(ctx, http.MethodDelete, "/v1/schema/"+url.PathEscape(s.class), nil, nil)
	if err != nil && !rest.IsNotFound(err) {
		return fmt.Errorf("weaviate: delete class: %w", err)
	}
	return nil
}

// Close is a no-op; the HTTP client holds no resources that need release.
func (s *Storage) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

func formatVector(v []float32) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, x := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(x), 'g', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}
