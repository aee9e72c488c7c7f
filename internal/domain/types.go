package domain

// FallbackAnswer is returned verbatim when no stored passage supports an answer.
// The prompt instructs the model to emit the same sentence.
const FallbackAnswer = "I could not find this information in the loaded books."

// Document represents a single text file loaded into the system.
type Document struct {
	// ID is the source identifier, the file name.
	ID      string
	Path    string
	Content string
}

// Chunk is a bounded slice of a document used for indexing.
type Chunk struct {
	Source string
	Text   string
	Index  int
}

// Record is the persisted form of a chunk together with its embedding.
// ID is assigned by the storage backend.
type Record struct {
	ID     string
	Text   string
	Source string
	Vector []float32
}

// Match is a stored record returned by a nearest-neighbour search.
// Lower distance means more similar.
type Match struct {
	ID       string
	Text     string
	Source   string
	Distance float64
}

// IngestSummary reports the outcome of one ingestion run.
type IngestSummary struct {
	Loaded         []string `json:"loaded"`
	Skipped        []string `json:"skipped"`
	ChunksCreated  int      `json:"chunks_created"`
	ChunksInserted int      `json:"chunks_inserted"`
}

// Answer is the result of the retrieval and answer pipeline.
type Answer struct {
	Text     string
	Passages []string
}
