// Package indexer provides article chunking and the ingestion pipeline.
package indexer

import (
	"fmt"
	"strings"

	"github.com/hyperjump/shiori/internal/chunkid"
	"github.com/hyperjump/shiori/internal/models"
)

// Chunker splits text into overlapping fixed-size character windows.
type Chunker struct {
	chunkSize int
	overlap   int
}

// NewChunker creates a chunker with the given size and overlap (in characters).
// Returns a *models.ConfigError unless 0 <= overlap < chunkSize.
func NewChunker(chunkSize, overlap int) (*Chunker, error) {
	if err := validateWindow(chunkSize, overlap); err != nil {
		return nil, err
	}
	return &Chunker{chunkSize: chunkSize, overlap: overlap}, nil
}

// Overlap returns the number of characters shared by consecutive chunks.
func (c *Chunker) Overlap() int { return c.overlap }

// Split splits text into windows. See Split.
func (c *Chunker) Split(text string) []string {
	return split([]rune(text), c.chunkSize, c.overlap)
}

// Chunk splits an article into chunks with deterministic ids and shared metadata.
// Embeddings are left empty.
func (c *Chunker) Chunk(article models.ArticleInput, dateAdded string) []models.Chunk {
	parts := c.Split(article.Text)
	if len(parts) == 0 {
		return nil
	}
	chunks := make([]models.Chunk, len(parts))
	for i, text := range parts {
		chunks[i] = models.Chunk{
			ID:   chunkid.ChunkID(article.URL, i),
			Text: text,
			Metadata: models.ChunkMetadata{
				Title:      article.Title,
				URL:        article.URL,
				Summary:    article.Summary,
				ChunkIndex: i,
				DateAdded:  dateAdded,
			},
		}
	}
	return chunks
}

// Split cuts text into windows of chunkSize characters, each starting
// chunkSize-overlap characters after the previous one. Splitting stops once a
// window would start at or past the end of text, so the last chunk may be
// shorter. Empty text yields no chunks.
func Split(text string, chunkSize, overlap int) ([]string, error) {
	if err := validateWindow(chunkSize, overlap); err != nil {
		return nil, err
	}
	return split([]rune(text), chunkSize, overlap), nil
}

func split(runes []rune, chunkSize, overlap int) []string {
	if len(runes) == 0 {
		return nil
	}
	step := chunkSize - overlap
	chunks := make([]string, 0, len(runes)/step+1)
	for start := 0; start < len(runes); start += step {
		end := start + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}

// Reassemble inverts Split: it concatenates chunks in order, dropping the
// first overlap characters of every chunk after the first.
func Reassemble(chunks []string, overlap int) string {
	var b strings.Builder
	for i, chunk := range chunks {
		if i == 0 || overlap <= 0 {
			b.WriteString(chunk)
			continue
		}
		runes := []rune(chunk)
		if len(runes) > overlap {
			b.WriteString(string(runes[overlap:]))
		}
	}
	return b.String()
}

func validateWindow(chunkSize, overlap int) error {
	if chunkSize <= 0 {
		return &models.ConfigError{Field: "chunk_size", Reason: fmt.Sprintf("must be positive, got %d", chunkSize)}
	}
	if overlap < 0 {
		return &models.ConfigError{Field: "overlap", Reason: fmt.Sprintf("must not be negative, got %d", overlap)}
	}
	if overlap >= chunkSize {
		return &models.ConfigError{
			Field:  "overlap",
			Reason: fmt.Sprintf("overlap %d must be smaller than chunk size %d", overlap, chunkSize),
		}
	}
	return nil
}
