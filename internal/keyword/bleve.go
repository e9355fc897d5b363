package keyword

import (
	"context"
	"fmt"
	"os"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	blevequery "github.com/blevesearch/bleve/v2/search/query"
)

// BleveIndex implements KeywordIndex using Bleve.
type BleveIndex struct {
	index bleve.Index
}

// NewBleveIndex creates or opens a Bleve index at path. An empty path creates
// an in-memory index.
// If you change the index mapping in code, remove the index directory to force a full re-index.
func NewBleveIndex(path string) (*BleveIndex, error) {
	im := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()
	textFieldMapping := bleve.NewTextFieldMapping()
	// Standard analyzer lowercases and tokenizes without stemming, which also
	// keeps Cyrillic words intact.
	textFieldMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("title", textFieldMapping)
	docMapping.AddFieldMappingsAt("summary", textFieldMapping)
	keywordFieldMapping := bleve.NewKeywordFieldMapping()
	docMapping.AddFieldMappingsAt("url", keywordFieldMapping)
	docMapping.AddFieldMappingsAt("date_added", keywordFieldMapping)
	im.AddDocumentMapping("article", docMapping)
	im.DefaultType = "article"
	im.DefaultMapping = docMapping

	if path == "" {
		index, err := bleve.NewMemOnly(im)
		if err != nil {
			return nil, fmt.Errorf("failed to create Bleve index: %w", err)
		}
		return &BleveIndex{index: index}, nil
	}

	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", openErr)
		}
		return &BleveIndex{index: index}, nil
	}

	index, err := bleve.New(path, im)
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

// Index adds or replaces the catalogue entry for doc.URL.
func (b *BleveIndex) Index(ctx context.Context, doc ArticleDoc) error {
	return b.index.Index(doc.URL, doc)
}

// Search matches query against titles and summaries and returns up to limit
// article URLs, best first.
func (b *BleveIndex) Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]*KeywordResult, error) {
	titleBoost := 3.0
	fuzziness := 0
	if opts != nil {
		if opts.TitleBoost > 0 {
			titleBoost = opts.TitleBoost
		}
		fuzziness = opts.Fuzziness
	}
	if limit <= 0 {
		limit = 10
	}

	title := bleve.NewMatchQuery(query)
	title.SetField("title")
	if titleBoost > 1 {
		title.SetBoost(titleBoost)
	}
	summary := bleve.NewMatchQuery(query)
	summary.SetField("summary")
	if fuzziness > 0 {
		title.SetFuzziness(fuzziness)
		summary.SetFuzziness(fuzziness)
	}
	q := blevequery.NewDisjunctionQuery([]blevequery.Query{title, summary})

	search := bleve.NewSearchRequest(q)
	search.Size = limit
	results, err := b.index.Search(search)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}
	out := make([]*KeywordResult, len(results.Hits))
	for i, hit := range results.Hits {
		out[i] = &KeywordResult{URL: hit.ID, Score: hit.Score}
	}
	return out, nil
}

// Delete removes the catalogue entry for url.
func (b *BleveIndex) Delete(ctx context.Context, url string) error {
	return b.index.Delete(url)
}

// DocCount returns the total number of articles in the index.
func (b *BleveIndex) DocCount() (uint64, error) {
	return b.index.DocCount()
}

// Close closes the index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}
