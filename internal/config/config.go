// Package config provides configuration loading and structs for the shiori server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug      bool             `yaml:"debug"`
	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	LLM        LLMConfig        `yaml:"llm"`
	Chunking   ChunkingConfig   `yaml:"chunking"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Generation GenerationConfig `yaml:"generation"`
	Quiz       QuizConfig       `yaml:"quiz"`
	Extract    ExtractConfig    `yaml:"extract"`
	Inbox      InboxConfig      `yaml:"inbox"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds paths for the chunk database and the article catalogue index.
type StorageConfig struct {
	DatabasePath     string `yaml:"database_path"`
	KeywordIndexPath string `yaml:"keyword_index_path"`
}

// EmbeddingConfig selects and configures the embedding provider.
type EmbeddingConfig struct {
	// Provider is one of "ollama", "onnx" or "mock".
	Provider   string `yaml:"provider"`
	Model      string `yaml:"model"`
	BaseURL    string `yaml:"base_url"`
	Dimensions int    `yaml:"dimensions"`
	CacheSize  int    `yaml:"cache_size"`
	// ModelPath and MaxTokens apply to the onnx provider only.
	ModelPath string `yaml:"model_path"`
	MaxTokens int    `yaml:"max_tokens"`
}

// LLMConfig selects the text generation backend.
type LLMConfig struct {
	// Provider is "ollama" or "mock".
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url"`
}

// ChunkingConfig controls how article text is windowed.
type ChunkingConfig struct {
	ChunkSize int  `yaml:"chunk_size"`
	Overlap   *int `yaml:"overlap"`
	// PurgeStale removes higher-index chunks left over when a re-ingested article shrinks.
	PurgeStale *bool `yaml:"purge_stale"`
}

// OverlapOrDefault returns the configured overlap; defaults to 100 when unset.
func (c *ChunkingConfig) OverlapOrDefault() int {
	if c.Overlap != nil {
		return *c.Overlap
	}
	return 100
}

// PurgeStaleOrDefault returns whether stale chunks are purged; defaults to true when unset.
func (c *ChunkingConfig) PurgeStaleOrDefault() bool {
	if c.PurgeStale != nil {
		return *c.PurgeStale
	}
	return true
}

// RetrievalConfig holds similarity search settings.
type RetrievalConfig struct {
	TopK        int   `yaml:"top_k"`
	MaxK        int   `yaml:"max_k"`
	ExpandQuery *bool `yaml:"expand_query"`
}

// ExpandQueryOrDefault returns whether questions are rewritten before embedding; defaults to true.
func (r *RetrievalConfig) ExpandQueryOrDefault() bool {
	if r.ExpandQuery != nil {
		return *r.ExpandQuery
	}
	return true
}

// TaskConfig holds sampling settings for one kind of generation call.
type TaskConfig struct {
	Temperature float64 `yaml:"temperature"`
	NumCtx      int     `yaml:"num_ctx"`
}

// GenerationConfig holds per-task sampling settings.
type GenerationConfig struct {
	Expand  TaskConfig `yaml:"expand"`
	Answer  TaskConfig `yaml:"answer"`
	Summary TaskConfig `yaml:"summary"`
	Quiz    TaskConfig `yaml:"quiz"`
	// MaxInputChars truncates article text passed to summary and quiz prompts.
	MaxInputChars int `yaml:"max_input_chars"`
}

// QuizConfig holds quiz flow settings.
type QuizConfig struct {
	Counts []int `yaml:"counts"`
}

// ExtractConfig holds content extraction settings.
type ExtractConfig struct {
	UserAgent           string   `yaml:"user_agent"`
	TimeoutSeconds      int      `yaml:"timeout_seconds"`
	TranscriptLanguages []string `yaml:"transcript_languages"`
}

// InboxConfig holds watched drop-folder settings. Files placed in these
// directories are ingested as file:// articles.
type InboxConfig struct {
	Directories []string `yaml:"directories"`
	Extensions  []string `yaml:"extensions"`
	Recursive   *bool    `yaml:"recursive"`
}

// RecursiveOrDefault returns whether to watch recursively; defaults to true when unset.
func (w *InboxConfig) RecursiveOrDefault() bool {
	if w.Recursive != nil {
		return *w.Recursive
	}
	return true
}

// Load reads and parses the config file at path, applies environment overrides,
// expands paths, and applies defaults. The result is not validated; call Validate.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyEnv(&cfg)
	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.KeywordIndexPath = expandPath(cfg.Storage.KeywordIndexPath, configDir)
	if cfg.Embedding.ModelPath != "" {
		cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	}
	for i := range cfg.Inbox.Directories {
		cfg.Inbox.Directories[i] = expandPath(cfg.Inbox.Directories[i], configDir)
	}

	return &cfg, nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
