package service

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"bookrag/internal/domain"
	"bookrag/internal/logging"
)

// Chunker splits a document into chunks tagged with the document's source.
type Chunker interface {
	Chunk(doc domain.Document) []domain.Chunk
}

// ChunkStore is the part of the gateway ingestion needs.
type ChunkStore interface {
	Sources(ctx context.Context) (map[string]struct{}, error)
	AddChunks(ctx context.Context, chunks []domain.Chunk) (int, error)
}

// Ingestor loads new files from a folder into the store. Files whose name is
// already a stored source are skipped without reading them.
type Ingestor struct {
	folder     string
	extensions []string
	chunker    Chunker
	store      ChunkStore

	// mu serialises runs so two loads in one process cannot both see a file as new.
	mu sync.Mutex
}

// NewIngestor creates an Ingestor for folder. Extensions are matched
// case-insensitively; none means ".txt".
func NewIngestor(folder string, extensions []string, chunker Chunker, store ChunkStore) *Ingestor {
	exts := make([]string, 0, len(extensions))
	for _, e := range extensions {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		exts = append(exts, e)
	}
	if len(exts) == 0 {
		exts = []string{".txt"}
	}
	return &Ingestor{folder: folder, extensions: exts, chunker: chunker, store: store}
}

// Folder returns the ingestion folder.
func (in *Ingestor) Folder() string { return in.folder }

// Ingest loads every eligible file not yet stored. When nothing is new the
// store is not written to.
func (in *Ingestor) Ingest(ctx context.Context) (domain.IngestSummary, error) {
	in.mu.Lock()
	defer in.mu.Unlock()

	summary := domain.IngestSummary{Loaded: []string{}, Skipped: []string{}}

	files, err := in.candidates()
	if err != nil {
		return summary, err
	}

	existing, err := in.store.Sources(ctx)
	if err != nil {
		return summary, err
	}
	var fresh []string
	for _, name := range files {
		if _, ok := existing[name]; ok {
			summary.Skipped = append(summary.Skipped, name)
			continue
		}
		fresh = append(fresh, name)
	}
	if len(fresh) == 0 {
		logging.Info("nothing new to load, %d file(s) already stored", len(summary.Skipped))
		return summary, nil
	}

	var chunks []domain.Chunk
	for _, name := range fresh {
		path := filepath.Join(in.folder, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return summary, fmt.Errorf("%w: read %s: %w", domain.ErrConfiguration, name, err)
		}
		docChunks := in.chunker.Chunk(domain.Document{ID: name, Path: path, Content: string(data)})
		logging.Debug("%s: %d chunks", name, len(docChunks))
		chunks = append(chunks, docChunks...)
	}
	summary.Loaded = fresh
	summary.ChunksCreated = len(chunks)

	inserted, err := in.store.AddChunks(ctx, chunks)
	summary.ChunksInserted = inserted
	if err != nil {
		return summary, err
	}
	logging.Info("loaded %d file(s): %d chunks created, %d inserted", len(fresh), len(chunks), inserted)
	return summary, nil
}

func (in *Ingestor) candidates() ([]string, error) {
	info, err := os.Stat(in.folder)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: folder %s does not exist", domain.ErrConfiguration, in.folder)
		}
		return nil, fmt.Errorf("%w: folder %s: %w", domain.ErrConfiguration, in.folder, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a folder", domain.ErrConfiguration, in.folder)
	}
	entries, err := os.ReadDir(in.folder)
	if err != nil {
		return nil, fmt.Errorf("%w: read folder %s: %w", domain.ErrConfiguration, in.folder, err)
	}
	var names []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if slices.Contains(in.extensions, strings.ToLower(filepath.Ext(e.Name()))) {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%w in %s (extensions %s)", domain.ErrNoInput, in.folder, strings.Join(in.extensions, ", "))
	}
	slices.Sort(names)
	return names, nil
}
