// Package models defines core data structures for articles, chunks, answers, and quizzes.
package models

import "time"

// DateLayout is the format of ChunkMetadata.DateAdded.
const DateLayout = "2006-01-02"

// Article is a logical source document. It is never stored as a row of its own;
// it exists as the set of chunks sharing its URL.
type Article struct {
	URL       string `json:"url"`
	Title     string `json:"title"`
	Text      string `json:"text"`
	Summary   string `json:"summary"`
	DateAdded string `json:"date_added"`
}

// ArticleInput is the input for ingesting an article.
type ArticleInput struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Text    string `json:"text"`
	Summary string `json:"summary,omitempty"`
}

// ArticleSummary is one row of the article catalogue.
type ArticleSummary struct {
	URL       string `json:"url"`
	Title     string `json:"title"`
	Summary   string `json:"summary"`
	DateAdded string `json:"date_added"`
	Chunks    int    `json:"chunks"`
}

// Content is what an extractor produces for a URL.
type Content struct {
	URL   string `json:"url"`
	Title string `json:"title"`
	Text  string `json:"text"`
}

// ChunkMetadata is shared by all chunks of one article except ChunkIndex.
type ChunkMetadata struct {
	Title      string `json:"title"`
	URL        string `json:"url"`
	Summary    string `json:"summary"`
	ChunkIndex int    `json:"chunk_index"`
	DateAdded  string `json:"date_added"`
}

// Chunk is the stored unit of the knowledge base.
type Chunk struct {
	ID        string        `json:"id"`
	Text      string        `json:"text"`
	Embedding []float32     `json:"-"`
	Metadata  ChunkMetadata `json:"metadata"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// Filter selects chunks by metadata. An empty URL matches every article.
type Filter struct {
	URL           string `json:"url,omitempty"`
	MinChunkIndex int    `json:"min_chunk_index,omitempty"`
}

// IngestResult reports a completed ingestion.
type IngestResult struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Summary string `json:"summary"`
	Chunks  int    `json:"chunks"`
	Purged  int    `json:"purged"`
}
