// Package sqlite provides a Storage in a single SQLite file. Vectors are stored
// with the sqlite-vec BLOB encoding and ranked by a registered vec_distance function.
package sqlite

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/google/uuid"
	"github.com/viant/sqlite-vec/vector"
	sqlite "modernc.org/sqlite"

	"bookrag/internal/domain"
	"bookrag/internal/vectorstore"
)

var _ vectorstore.Storage = (*Storage)(nil)

var (
	registerOnce sync.Once
	registerErr  error
	tableName    = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// registerFunctions must run before the first connection is opened;
// connections opened earlier do not see new functions.
func registerFunctions() error {
	registerOnce.Do(func() {
		registerErr = sqlite.RegisterDeterministicScalarFunction("vec_distance", 2, vecDistance)
	})
	return registerErr
}

// Storage is a SQLite-backed chunk table.
type Storage struct {
	db    *sql.DB
	table string
}

// NewStorage opens (creating if needed) the database at path. The special path
// ":memory:" keeps everything in process.
func NewStorage(path, collection string) (*Storage, error) {
	if collection == "" {
		collection = vectorstore.DefaultCollection
	}
	if !tableName.MatchString(collection) {
		return nil, fmt.Errorf("sqlite: invalid collection name %q", collection)
	}
	if err := registerFunctions(); err != nil {
		return nil, fmt.Errorf("sqlite: register functions: %w", err)
	}

	dsn := path
	if path == "" || path == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("sqlite: create data directory: %w", err)
		}
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open database: %w", err)
	}
	// Every :memory: connection is a separate database.
	if dsn == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: open database: %w", err)
	}
	return &Storage{db: db, table: collection}, nil
}

// EnsureSchema creates the chunk table and its source index.
func (s *Storage) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id        TEXT PRIMARY KEY,
			text      TEXT NOT NULL,
			source    TEXT NOT NULL,
			embedding BLOB NOT NULL
		)`, s.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_source ON %s(source)`, s.table, s.table),
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlite: create schema: %w", err)
		}
	}
	return nil
}

// Insert writes all records in one transaction.
func (s *Storage) Insert(ctx context.Context, records []domain.Record) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("sqlite: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		`INSERT INTO %s (id, text, source, embedding) VALUES (?, ?, ?, ?)`, s.table))
	if err != nil {
		return 0, fmt.Errorf("sqlite: prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		if len(r.Vector) == 0 {
			return 0, errors.New("sqlite: record without vector")
		}
		id := r.ID
		if id == "" {
			id = uuid.NewString()
		}
		blob, err := vector.EncodeEmbedding(r.Vector)
		if err != nil {
			return 0, fmt.Errorf("sqlite: encode vector: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, id, r.Text, r.Source, blob); err != nil {
			return 0, fmt.Errorf("sqlite: insert: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("sqlite: commit: %w", err)
	}
	return len(records), nil
}

// Search ranks every row by cosine distance. A missing table yields no matches.
func (s *Storage) Search(ctx context.Context, vec []float32, limit int) ([]domain.Match, error) {
	if limit <= 0 {
		return nil, nil
	}
	exists, err := s.tableExists(ctx)
	if err != nil || !exists {
		return nil, err
	}
	query, err := vector.EncodeEmbedding(vec)
	if err != nil {
		return nil, fmt.Errorf("sqlite: encode query: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT id, text, source, vec_distance(embedding, ?) AS distance
		 FROM %s ORDER BY distance ASC, id ASC LIMIT ?`, s.table),
		query, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite: search: %w", err)
	}
	defer rows.Close()

	var matches []domain.Match
	for rows.Next() {
		var m domain.Match
		if err := rows.Scan(&m.ID, &m.Text, &m.Source, &m.Distance); err != nil {
			return nil, fmt.Errorf("sqlite: scan match: %w", err)
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// Scan pages through rows in id order; the cursor is the last id returned.
func (s *Storage) Scan(ctx context.Context, cursor string, pageSize int) (vectorstore.Page, error) {
	if pageSize <= 0 {
		return vectorstore.Page{}, errors.New("sqlite: page size must be positive")
	}
	exists, err := s.tableExists(ctx)
	if err != nil || !exists {
		return vectorstore.Page{}, err
	}
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT id, text, source FROM %s WHERE id > ? ORDER BY id ASC LIMIT ?`, s.table),
		cursor, pageSize)
	if err != nil {
		return vectorstore.Page{}, fmt.Errorf("sqlite: scan: %w", err)
	}
	defer rows.Close()

	page := vectorstore.Page{Records: make([]domain.Record, 0, pageSize)}
	for rows.Next() {
		var r domain.Record
		if err := rows.Scan(&r.ID, &r.Text, &r.Source); err != nil {
			return vectorstore.Page{}, fmt.Errorf("sqlite: scan row: %w", err)
		}
		page.Records = append(page.Records, r)
	}
	if err := rows.Err(); err != nil {
		return vectorstore.Page{}, err
	}
	if len(page.Records) == pageSize {
		page.Next = page.Records[len(page.Records)-1].ID
	}
	return page, nil
}

// Drop removes the table.
func (s *Storage) Drop(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %s`, s.table)); err != nil {
		return fmt.Errorf("sqlite: drop: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Storage) Close() error { return s.db.Close() }

func (s *Storage) tableExists(ctx context.Context) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, s.table).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("sqlite: inspect schema: %w", err)
	}
	return n > 0, nil
}

// vecDistance is registered as vec_distance(a, b): 1 - cosine similarity of
// two embedding BLOBs. A NULL or zero-magnitude side ranks last with distance 1.
func vecDistance(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("vec_distance: expected 2 arguments, got %d", len(args))
	}
	vecs := make([][]float32, 2)
	for i, arg := range args {
		if arg == nil {
			continue
		}
		b, ok := arg.([]byte)
		if !ok {
			return nil, fmt.Errorf("vec_distance: unsupported argument type %T, want BLOB", arg)
		}
		v, err := vector.DecodeEmbedding(b)
		if err != nil {
			return nil, fmt.Errorf("vec_distance: %w", err)
		}
		vecs[i] = v
	}
	if len(vecs[0]) != 0 && len(vecs[1]) != 0 && len(vecs[0]) != len(vecs[1]) {
		return nil, fmt.Errorf("vec_distance: dimension mismatch %d vs %d", len(vecs[0]), len(vecs[1]))
	}
	return vectorstore.CosineDistance(vecs[0], vecs[1]), nil
}
