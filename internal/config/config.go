package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"bookrag/internal/domain"
)

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Addr                string `yaml:"addr"`
	ReadTimeoutSecs     int    `yaml:"read_timeout_secs"`
	ShutdownTimeoutSecs int    `yaml:"shutdown_timeout_secs"`
}

// IngestConfig configures where books are read from and how they are written.
type IngestConfig struct {
	Folder      string   `yaml:"folder"`
	Extensions  []string `yaml:"extensions"`
	BatchSize   int      `yaml:"batch_size"`
	Concurrency int      `yaml:"concurrency"`
}

// ChunkerConfig configures how documents are split into chunks.
type ChunkerConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
}

// OllamaEmbedderConfig holds configuration for the Ollama embedder.
type OllamaEmbedderConfig struct {
	BaseURL     string `yaml:"base_url"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	Dimensions  int    `yaml:"dimensions"`
}

// OpenAIEmbedderConfig holds configuration for the OpenAI-compatible embedder.
type OpenAIEmbedderConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	MaxRetries  int    `yaml:"max_retries"`
}

// HashingEmbedderConfig configures the offline embedder.
type HashingEmbedderConfig struct {
	Dimensions int `yaml:"dimensions"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type    string                `yaml:"type"`
	Ollama  OllamaEmbedderConfig  `yaml:"ollama"`
	OpenAI  OpenAIEmbedderConfig  `yaml:"openai"`
	Hashing HashingEmbedderConfig `yaml:"hashing"`
}

// OllamaLLMConfig holds configuration for Ollama text generation.
type OllamaLLMConfig struct {
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	TimeoutSecs int     `yaml:"timeout_secs"`
	Temperature float64 `yaml:"temperature"`
}

// OpenAILLMConfig holds configuration for an OpenAI-compatible chat model.
type OpenAILLMConfig struct {
	BaseURL     string  `yaml:"base_url"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	Model       string  `yaml:"model"`
	TimeoutSecs int     `yaml:"timeout_secs"`
	Temperature float64 `yaml:"temperature"`
}

// ExtractiveConfig configures the offline generator.
type ExtractiveConfig struct {
	MaxSentences int `yaml:"max_sentences"`
}

// LLMConfig selects and configures the language model.
type LLMConfig struct {
	Type       string           `yaml:"type"`
	PromptFile string           `yaml:"prompt_file"`
	Ollama     OllamaLLMConfig  `yaml:"ollama"`
	OpenAI     OpenAILLMConfig  `yaml:"openai"`
	Extractive ExtractiveConfig `yaml:"extractive"`
}

// WeaviateConfig contains connection details for Weaviate.
type WeaviateConfig struct {
	URL    string `yaml:"url"`
	APIKey string `yaml:"api_key"`
}

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	URL      string `yaml:"url"`
	APIKey   string `yaml:"api_key"`
	Distance string `yaml:"distance"`
}

// SQLiteConfig locates the SQLite database file.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// VectorStoreConfig selects and configures the vector store implementation.
type VectorStoreConfig struct {
	Type        string         `yaml:"type"`
	Collection  string         `yaml:"collection"`
	PageSize    int            `yaml:"page_size"`
	SearchLimit int            `yaml:"search_limit"`
	TimeoutSecs int            `yaml:"timeout_secs"`
	MaxRetries  int            `yaml:"max_retries"`
	Weaviate    WeaviateConfig `yaml:"weaviate"`
	Qdrant      QdrantConfig   `yaml:"qdrant"`
	SQLite      SQLiteConfig   `yaml:"sqlite"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Verbose bool   `yaml:"verbose"`
	File    string `yaml:"file"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Server      ServerConfig      `yaml:"server"`
	Ingest      IngestConfig      `yaml:"ingest"`
	Chunker     ChunkerConfig     `yaml:"chunker"`
	Embedder    EmbedderConfig    `yaml:"embedder"`
	LLM         LLMConfig         `yaml:"llm"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Logging     LoggingConfig     `yaml:"logging"`
}

var (
	embedderTypes = []string{"ollama", "openai", "hashing"}
	llmTypes      = []string{"ollama", "openai", "extractive"}
	storeTypes    = []string{"weaviate", "qdrant", "sqlite", "memory"}
)

// Load reads a config from a specified path. If the file does not exist, returns defaults.
// ${VAR} references are expanded from the environment before parsing.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("%w: read config: %w", domain.ErrConfiguration, err)
	}
	var cfg AppConfig
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %w", domain.ErrConfiguration, path, err)
	}
	applyConfigDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/bookrag/config.yaml.
// If neither exists, it writes defaults to ~/.config/bookrag/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := Default()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate rejects values no component can work with.
func (c *AppConfig) Validate() error {
	var problems []string
	if c.Chunker.ChunkSize <= 0 {
		problems = append(problems, "chunker.chunk_size must be positive")
	}
	if c.Chunker.ChunkOverlap < 0 || c.Chunker.ChunkOverlap >= c.Chunker.ChunkSize {
		problems = append(problems, "chunker.chunk_overlap must be in [0, chunk_size)")
	}
	if c.Ingest.Folder == "" {
		problems = append(problems, "ingest.folder is required")
	}
	if c.Ingest.BatchSize <= 0 || c.Ingest.Concurrency <= 0 {
		problems = append(problems, "ingest.batch_size and ingest.concurrency must be positive")
	}
	if c.VectorStore.PageSize <= 0 || c.VectorStore.SearchLimit <= 0 {
		problems = append(problems, "vector_store.page_size and vector_store.search_limit must be positive")
	}
	if !slices.Contains(embedderTypes, c.Embedder.Type) {
		problems = append(problems, fmt.Sprintf("embedder.type %q is not one of %s", c.Embedder.Type, strings.Join(embedderTypes, ", ")))
	}
	if !slices.Contains(llmTypes, c.LLM.Type) {
		problems = append(problems, fmt.Sprintf("llm.type %q is not one of %s", c.LLM.Type, strings.Join(llmTypes, ", ")))
	}
	if !slices.Contains(storeTypes, c.VectorStore.Type) {
		problems = append(problems, fmt.Sprintf("vector_store.type %q is not one of %s", c.VectorStore.Type, strings.Join(storeTypes, ", ")))
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrConfiguration, strings.Join(problems, "; "))
	}
	return nil
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "bookrag", "config.yaml"), nil
}

// Default returns the configuration used when no file exists.
func Default() *AppConfig {
	cfg := &AppConfig{
		Embedder:    EmbedderConfig{Type: "ollama"},
		LLM:         LLMConfig{Type: "ollama"},
		VectorStore: VectorStoreConfig{Type: "weaviate"},
	}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	setString(&cfg.Server.Addr, ":8090")
	setInt(&cfg.Server.ReadTimeoutSecs, 30)
	setInt(&cfg.Server.ShutdownTimeoutSecs, 10)

	setString(&cfg.Ingest.Folder, "libros")
	if len(cfg.Ingest.Extensions) == 0 {
		cfg.Ingest.Extensions = []string{".txt"}
	}
	setInt(&cfg.Ingest.BatchSize, 100)
	setInt(&cfg.Ingest.Concurrency, 4)

	setInt(&cfg.Chunker.ChunkSize, 350)
	setInt(&cfg.Chunker.ChunkOverlap, 80)

	setString(&cfg.Embedder.Type, "ollama")
	setString(&cfg.Embedder.Ollama.BaseURL, "http://localhost:11434")
	setString(&cfg.Embedder.Ollama.Model, "nomic-embed-text")
	setInt(&cfg.Embedder.Ollama.TimeoutSecs, 60)
	setInt(&cfg.Embedder.Ollama.Dimensions, 768)
	setString(&cfg.Embedder.OpenAI.BaseURL, "https://api.openai.com/v1")
	setString(&cfg.Embedder.OpenAI.APIKeyEnv, "OPENAI_API_KEY")
	setString(&cfg.Embedder.OpenAI.Model, "text-embedding-3-small")
	setInt(&cfg.Embedder.OpenAI.TimeoutSecs, 30)
	setInt(&cfg.Embedder.OpenAI.MaxRetries, 3)
	setInt(&cfg.Embedder.Hashing.Dimensions, 512)

	setString(&cfg.LLM.Type, "ollama")
	setString(&cfg.LLM.Ollama.BaseURL, "http://localhost:11434")
	setString(&cfg.LLM.Ollama.Model, "llama3.2")
	setInt(&cfg.LLM.Ollama.TimeoutSecs, 120)
	setString(&cfg.LLM.OpenAI.BaseURL, "https://api.openai.com/v1")
	setString(&cfg.LLM.OpenAI.APIKeyEnv, "OPENAI_API_KEY")
	setString(&cfg.LLM.OpenAI.Model, "gpt-4o-mini")
	setInt(&cfg.LLM.OpenAI.TimeoutSecs, 120)
	setInt(&cfg.LLM.Extractive.MaxSentences, 3)

	setString(&cfg.VectorStore.Type, "weaviate")
	setString(&cfg.VectorStore.Collection, "BookChunk")
	setInt(&cfg.VectorStore.PageSize, 100)
	setInt(&cfg.VectorStore.SearchLimit, 20)
	setInt(&cfg.VectorStore.TimeoutSecs, 15)
	setInt(&cfg.VectorStore.MaxRetries, 3)
	setString(&cfg.VectorStore.Weaviate.URL, "http://localhost:8080")
	setString(&cfg.VectorStore.Qdrant.URL, "http://localhost:6333")
	setString(&cfg.VectorStore.Qdrant.Distance, "Cosine")
	setString(&cfg.VectorStore.SQLite.Path, filepath.Join("data", "bookrag.db"))
}

func setString(v *string, def string) {
	if *v == "" {
		*v = def
	}
}

func setInt(v *int, def int) {
	if *v == 0 {
		*v = def
	}
}
