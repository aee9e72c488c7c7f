// Package qdrant provides a Storage backed by the Qdrant REST API.
package qdrant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"bookrag/internal/domain"
	"bookrag/internal/vectorstore"
	"bookrag/internal/vectorstore/rest"
)

var _ vectorstore.Storage = (*Storage)(nil)

// Distance metrics understood by this backend.
const (
	DistanceCosine = "Cosine"
	DistanceEuclid = "Euclid"
)

// Config contains connection details for a Qdrant collection.
type Config struct {
	URL        string
	APIKey     string
	Collection string
	VectorSize int
	Distance   string
	Timeout    time.Duration
	MaxRetries int
}

// Storage is a minimal REST client to Qdrant. Records are points with a
// UUID id and a {text, source} payload.
type Storage struct {
	client     *rest.Client
	collection string
	vectorSize int
	distance   string
}

// NewStorage creates a Qdrant storage client. No request is made until EnsureSchema.
func NewStorage(cfg Config) (*Storage, error) {
	if cfg.URL == "" {
		return nil, errors.New("qdrant: url is required")
	}
	if cfg.VectorSize <= 0 {
		return nil, errors.New("qdrant: vector size must be positive")
	}
	if cfg.Collection == "" {
		cfg.Collection = vectorstore.DefaultCollection
	}
	switch cfg.Distance {
	case "":
		cfg.Distance = DistanceCosine
	case DistanceCosine, DistanceEuclid:
	default:
		return nil, fmt.Errorf("qdrant: unsupported distance %q", cfg.Distance)
	}
	headers := map[string]string{}
	if cfg.APIKey != "" {
		headers["api-key"] = cfg.APIKey
	}
	return &Storage{
		client: rest.New(rest.Config{
			BaseURL:    cfg.URL,
			Headers:    headers,
			Timeout:    cfg.Timeout,
			MaxRetries: cfg.MaxRetries,
		}),
		collection: cfg.Collection,
		vectorSize: cfg.VectorSize,
		distance:   cfg.Distance,
	}, nil
}

func (s *Storage) path(suffix string) string {
	return "/collections/" + url.PathEscape(s.collection) + suffix
}

// EnsureSchema creates the collection and a keyword index on source if missing.
func (s *Storage) EnsureSchema(ctx context.Context) error {
	err := s.client.Do(ctx, http.MethodGet, s.path(""), nil, nil)
	if err == nil {
		return nil
	}
	if !rest.IsNotFound(err) {
		return err
	}
	body := map[string]any{
		"vectors": map[string]any{
			"size":     s.vectorSize,
			"distance": s.distance,
		},
	}
	if err := s.client.Do(ctx, http.MethodPut, s.path(""), body, nil); err != nil {
		return fmt.Errorf("qdrant: create collection: %w", err)
	}
	index := map[string]any{"field_name": "source", "field_schema": "keyword"}
	if err := s.client.Do(ctx, http.MethodPut, s.path("/index?wait=true"), index, nil); err != nil {
		return fmt.Errorf("qdrant: create source index: %w", err)
	}
	return nil
}

type point struct {
	ID      string         `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload map[string]any `json:"payload"`
}

// Insert upserts records as points and waits for the write to be applied.
func (s *Storage) Insert(ctx context.Context, records []domain.Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	points := make([]point, len(records))
	for i, r := range records {
		if len(r.Vector) != s.vectorSize {
			return 0, fmt.Errorf("qdrant: vector dimension %d does not match collection size %d", len(r.Vector), s.vectorSize)
		}
		id := r.ID
		if id == "" {
			id = uuid.NewString()
		}
		points[i] = point{
			ID:      id,
			Vector:  r.Vector,
			Payload: map[string]any{"text": r.Text, "source": r.Source},
		}
	}
	body := map[string]any{"points": points}
	if err := s.client.Do(ctx, http.MethodPut, s.path("/points?wait=true"), body, nil); err != nil {
		return 0, fmt.Errorf("qdrant: upsert: %w", err)
	}
	return len(records), nil
}

type scoredPoint struct {
	ID      json.RawMessage `json:"id"`
	Score   float64         `json:"score"`
	Payload map[string]any  `json:"payload"`
}

// Search runs a vector search. Cosine scores are converted to distances.
func (s *Storage) Search(ctx context.Context, vector []float32, limit int) ([]domain.Match, error) {
	if limit <= 0 {
		return nil, nil
	}
	req := map[string]any{
		"vector":       vector,
		"limit":        limit,
		"with_payload": true,
	}
	var resp struct {
		Result []scoredPoint `json:"result"`
	}
	if err := s.client.Do(ctx, http.MethodPost, s.path("/points/search"), req, &resp); err != nil {
		if rest.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("qdrant: search: %w", err)
	}
	matches := make([]domain.Match, 0, len(resp.Result))
	for _, r := range resp.Result {
		m := domain.Match{ID: rawID(r.ID), Distance: s.toDistance(r.Score)}
		m.Text, _ = r.Payload["text"].(string)
		m.Source, _ = r.Payload["source"].(string)
		matches = append(matches, m)
	}
	return matches, nil
}

func (s *Storage) toDistance(score float64) float64 {
	if s.distance == DistanceEuclid {
		return score
	}
	return 1 - score
}

// Scan pages through points with the scroll API. The cursor is the raw
// next_page_offset returned by Qdrant.
func (s *Storage) Scan(ctx context.Context, cursor string, pageSize int) (vectorstore.Page, error) {
	if pageSize <= 0 {
		return vectorstore.Page{}, errors.New("qdrant: page size must be positive")
	}
	req := map[string]any{
		"limit":        pageSize,
		"with_payload": []string{"text", "source"},
		"with_vector":  false,
	}
	if cursor != "" {
		req["offset"] = json.RawMessage(cursor)
	}
	var resp struct {
		Result struct {
			Points         []scoredPoint   `json:"points"`
			NextPageOffset json.RawMessage `json:"next_page_offset"`
		} `json:"result"`
	}
	if err := s.client.Do(ctx, http.MethodPost, s.path("/points/scroll"), req, &resp); err != nil {
		if rest.IsNotFound(err) {
			return vectorstore.Page{}, nil
		}
		return vectorstore.Page{}, fmt.Errorf("qdrant: scroll: %w", err)
	}
	page := vectorstore.Page{Records: make([]domain.Record, 0, len(resp.Result.Points))}
	for _, p := range resp.Result.Points {
		r := domain.Record{ID: rawID(p.ID)}
		r.Text, _ = p.Payload["text"].(string)
		r.Source, _ = p.Payload["source"].(string)
		page.Records = append(page.Records, r)
	}
	if next := strings.TrimSpace(string(resp.Result.NextPageOffset)); next != "" && next != "null" {
		page.Next = next
	}
	return page, nil
}

// Drop deletes the collection. A missing collection is not an error.
func (s *Storage) Drop(ctx context.Context) error {
	err := s.client.Do(ctx, http.MethodDelete, s.path(""), nil, nil)
	if err != nil && !rest.IsNotFound(err) {
		return fmt.Errorf("qdrant: delete collection: %w", err)
	}
	return nil
}

// Close is a no-op; the HTTP client holds no resources that need release.
func (s *Storage) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

func rawID(raw json.RawMessage) string {
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		return str
	}
	return string(raw)
}
