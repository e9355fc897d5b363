// Package keyword provides full-text search over the article catalogue.
package keyword

import "context"

// ArticleDoc is the catalogue entry of one article. The article URL is its id.
type ArticleDoc struct {
	URL       string `json:"url"`
	Title     string `json:"title"`
	Summary   string `json:"summary"`
	DateAdded string `json:"date_added"`
}

// SearchOptions optional parameters for catalogue search. Nil means use defaults.
type SearchOptions struct {
	// TitleBoost multiplies the score of title matches. Values <= 1 mean no boost.
	TitleBoost float64
	// Fuzziness is the maximum edit distance per term (0 disables fuzzy matching).
	Fuzziness int
}

// KeywordIndex defines catalogue indexing and search operations.
type KeywordIndex interface {
	Index(ctx context.Context, doc ArticleDoc) error
	Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]*KeywordResult, error)
	Delete(ctx context.Context, url string) error
	// DocCount returns the total number of articles in the index.
	DocCount() (uint64, error)
	Close() error
}

// KeywordResult is a single catalogue search hit.
type KeywordResult struct {
	URL   string
	Score float64
}
