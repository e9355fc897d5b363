// Package cli provides output formatting, an HTTP client and the interactive
// quiz loop for the shiori command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/hyperjump/shiori/internal/models"
	"github.com/hyperjump/shiori/internal/search"
	"github.com/hyperjump/shiori/internal/storage"
	"github.com/hyperjump/shiori/internal/watcher"
	"github.com/hyperjump/shiori/pkg/utils"
)

// OutputFormat is the format of command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat validates a --output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case OutputText, OutputJSON:
		return OutputFormat(s), nil
	default:
		return "", fmt.Errorf("unknown output format %q; use text or json", s)
	}
}

// Status is the shape of GET /api/v1/status.
type Status struct {
	models.Stats
	DiskUsage *storage.Usage         `json:"disk_usage,omitempty"`
	Inbox     *watcher.Stats         `json:"inbox,omitempty"`
	Config    map[string]interface{} `json:"config,omitempty"`
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteAnswer writes an answer. In text form the rewritten search query, if
// any, precedes the answer.
func WriteAnswer(w io.Writer, a *models.Answer, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, a)
	}
	if a.ExpandedQuery != "" {
		fmt.Fprintf(w, "Search query: %s\n\n", a.ExpandedQuery)
	}
	fmt.Fprintln(w, a.Text)
	return nil
}

// WriteIngestResult writes the outcome of an ingestion.
func WriteIngestResult(w io.Writer, r *models.IngestResult, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, r)
	}
	fmt.Fprintf(w, "Ingested: %s\n", r.Title)
	fmt.Fprintf(w, "URL:      %s\n", r.URL)
	fmt.Fprintf(w, "Chunks:   %d", r.Chunks)
	if r.Purged > 0 {
		fmt.Fprintf(w, " (%d stale removed)", r.Purged)
	}
	fmt.Fprintln(w)
	if r.Summary != "" {
		fmt.Fprintf(w, "\n%s\n", r.Summary)
	}
	return nil
}

// WriteArticles writes the article catalogue.
func WriteArticles(w io.Writer, articles []models.ArticleSummary, format OutputFormat) error {
	if format == OutputJSON {
		if articles == nil {
			articles = []models.ArticleSummary{}
		}
		return writeJSON(w, articles)
	}
	if len(articles) == 0 {
		fmt.Fprintln(w, "No articles in the knowledge base.")
		return nil
	}
	for i, a := range articles {
		fmt.Fprintf(w, "%d. %s\n", i+1, a.Title)
		fmt.Fprintf(w, "   %s\n", a.URL)
		fmt.Fprintf(w, "   added %s, %d chunk(s)\n", a.DateAdded, a.Chunks)
		if a.Summary != "" {
			fmt.Fprintf(w, "   %s\n", TruncateWords(oneLine(a.Summary), 30))
		}
	}
	return nil
}

// WriteArticleHits writes ranked article search results.
func WriteArticleHits(w io.Writer, query string, hits []search.ArticleHit, format OutputFormat) error {
	if format == OutputJSON {
		if hits == nil {
			hits = []search.ArticleHit{}
		}
		return writeJSON(w, map[string]interface{}{"query": query, "articles": hits})
	}
	if len(hits) == 0 {
		fmt.Fprintf(w, "No articles match %q.\n", query)
		return nil
	}
	fmt.Fprintf(w, "Found %d article(s) for %q\n\n", len(hits), query)
	for i, h := range hits {
		fmt.Fprintf(w, "%d. %s\n", i+1, h.Title)
		fmt.Fprintf(w, "   Score: %.4f (Keyword: %.4f, Semantic: %.4f)\n", h.Score, h.KeywordScore, h.SemanticScore)
		fmt.Fprintf(w, "   %s\n", h.URL)
	}
	return nil
}

// WriteArticleText writes a reassembled article.
func WriteArticleText(w io.Writer, a *models.Article, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, a)
	}
	fmt.Fprintf(w, "# %s\n%s\n\n%s\n", a.Title, a.URL, a.Text)
	return nil
}

// WriteRetrieval writes raw similarity matches.
func WriteRetrieval(w io.Writer, r *models.Retrieval, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, r)
	}
	if r == nil || len(r.Matches) == 0 {
		fmt.Fprintln(w, "No matches.")
		return nil
	}
	for i, m := range r.Matches {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "Rank: %d | Score: %.4f | Chunk: %d\n", i+1, m.Score, m.Metadata.ChunkIndex)
		fmt.Fprintf(w, "Title: %s\nURL: %s\n", m.Metadata.Title, m.Metadata.URL)
		fmt.Fprintf(w, "\n%s\n\n", utils.Truncate(m.Text, 200))
	}
	return nil
}

// WriteStatus writes knowledge base status.
func WriteStatus(w io.Writer, s *Status, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, s)
	}
	fmt.Fprintf(w, "articles:           %d   # count of stored articles\n", s.Articles)
	fmt.Fprintf(w, "chunks:             %d   # count of text chunks\n", s.Chunks)
	fmt.Fprintf(w, "vectors:            %d   # count of vectors in the similarity index\n", s.Vectors)
	if s.Unindexed > 0 {
		fmt.Fprintf(w, "unindexed:          %d   # chunks with a stale embedding dimension, re-ingest them\n", s.Unindexed)
	}
	if s.DiskUsage != nil {
		fmt.Fprintf(w, "disk_usage_bytes:   %d   # database + catalogue on disk\n", s.DiskUsage.TotalBytes)
	}
	if s.Inbox != nil {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "# inbox")
		for _, d := range s.Inbox.Directories {
			fmt.Fprintf(w, "directory:          %s\n", d)
		}
		fmt.Fprintf(w, "ingested:           %d\n", s.Inbox.Ingested)
		fmt.Fprintf(w, "removed:            %d\n", s.Inbox.Removed)
		fmt.Fprintf(w, "failed:             %d\n", s.Inbox.Failed)
	}
	if len(s.Config) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "# configuration")
		keys := make([]string, 0, len(s.Config))
		for k := range s.Config {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(w, "%-20s%v\n", k+":", s.Config[k])
		}
	}
	return nil
}

// TruncateWords returns up to maxWords from the space-separated string.
func TruncateWords(s string, maxWords int) string {
	words := strings.Fields(s)
	if len(words) <= maxWords {
		return s
	}
	return strings.Join(words[:maxWords], " ") + "..."
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
