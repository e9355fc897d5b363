package models

import (
	"errors"
	"fmt"
)

// ErrEmptyArticle is returned when an article has no text to index.
var ErrEmptyArticle = errors.New("article text is empty")

// ErrMissingURL is returned when an article has no source URL.
var ErrMissingURL = errors.New("article url is required")

// ErrArticleNotFound is returned when no chunk carries the requested URL.
var ErrArticleNotFound = errors.New("article not found")

// ConfigError reports an invalid configuration value.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid config %s: %s", e.Field, e.Reason)
}

// ExtractionError reports that content could not be pulled from a URL.
type ExtractionError struct {
	URL     string
	Message string
	Err     error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extract %s: %s: %v", e.URL, e.Message, e.Err)
	}
	return fmt.Sprintf("extract %s: %s", e.URL, e.Message)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// EmbeddingError reports a failed or malformed embedding call.
type EmbeddingError struct {
	Err error
}

func (e *EmbeddingError) Error() string { return "embedding failed: " + e.Err.Error() }

func (e *EmbeddingError) Unwrap() error { return e.Err }

// GenerationError reports a failed LLM call.
type GenerationError struct {
	Task string
	Err  error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed (%s): %v", e.Task, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// StoreError reports a failed knowledge store operation.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s failed: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// IngestError reports an ingestion that stopped part-way. Chunks [0, Completed)
// were written; re-running the ingestion is safe.
type IngestError struct {
	URL       string
	Completed int
	Total     int
	Err       error
}

func (e *IngestError) Error() string {
	return fmt.Sprintf("ingest %s stopped after %d/%d chunks: %v", e.URL, e.Completed, e.Total, e.Err)
}

func (e *IngestError) Unwrap() error { return e.Err }
