package indexer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/hyperjump/shiori/internal/chunkid"
	"github.com/hyperjump/shiori/internal/embedding"
	"github.com/hyperjump/shiori/internal/extract"
	"github.com/hyperjump/shiori/internal/keyword"
	"github.com/hyperjump/shiori/internal/models"
	"github.com/hyperjump/shiori/pkg/utils"
	"go.uber.org/zap"
)

// ChunkStore is the part of the knowledge store the pipeline writes to.
type ChunkStore interface {
	Upsert(ctx context.Context, chunks []models.Chunk) error
	GetByFilter(ctx context.Context, filter models.Filter, limit int) ([]models.Chunk, error)
	DeleteByFilter(ctx context.Context, filter models.Filter) (int, error)
	Articles(ctx context.Context, limit int) ([]models.ArticleSummary, error)
}

// Summarizer produces the short description stored with every chunk.
type Summarizer interface {
	Summarize(ctx context.Context, title, text string) (string, error)
}

// fallbackSummaryLen is used when no summary could be generated.
const fallbackSummaryLen = 300

// Indexer turns articles into embedded chunks in the knowledge store and
// keeps the keyword catalogue in step.
type Indexer struct {
	store      ChunkStore
	embedder   embedding.Embedder
	chunker    *Chunker
	catalogue  keyword.KeywordIndex
	extractor  extract.Extractor
	summarizer Summarizer
	purgeStale bool
	now        func() time.Time
	logger     *zap.Logger
}

// IndexerOption configures an Indexer.
type IndexerOption func(*Indexer)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) IndexerOption {
	return func(idx *Indexer) { idx.logger = l }
}

// WithCatalogue enables the keyword catalogue of titles and summaries.
func WithCatalogue(k keyword.KeywordIndex) IndexerOption {
	return func(idx *Indexer) { idx.catalogue = k }
}

// WithExtractor sets the extractor used by IngestURL.
func WithExtractor(e extract.Extractor) IndexerOption {
	return func(idx *Indexer) { idx.extractor = e }
}

// WithSummarizer sets the summarizer used by IngestURL.
func WithSummarizer(s Summarizer) IndexerOption {
	return func(idx *Indexer) { idx.summarizer = s }
}

// WithPurgeStale controls whether a re-ingest removes chunks beyond the new
// chunk count. Enabled by default.
func WithPurgeStale(purge bool) IndexerOption {
	return func(idx *Indexer) { idx.purgeStale = purge }
}

// WithClock overrides the clock that stamps DateAdded.
func WithClock(now func() time.Time) IndexerOption {
	return func(idx *Indexer) { idx.now = now }
}

// NewIndexer creates an ingestion pipeline writing to store.
func NewIndexer(store ChunkStore, embedder embedding.Embedder, chunker *Chunker, opts ...IndexerOption) *Indexer {
	idx := &Indexer{
		store:      store,
		embedder:   embedder,
		chunker:    chunker,
		purgeStale: true,
		now:        time.Now,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// Ingest chunks the article, embeds each chunk and writes it before moving to
// the next one. A failure part-way returns *models.IngestError; chunks already
// written stay and a re-run overwrites them.
func (idx *Indexer) Ingest(ctx context.Context, article models.ArticleInput) (*models.IngestResult, error) {
	article.URL = strings.TrimSpace(article.URL)
	if article.URL == "" {
		return nil, models.ErrMissingURL
	}
	if strings.TrimSpace(article.Text) == "" {
		return nil, models.ErrEmptyArticle
	}
	article.Title = CleanTitle(article.Title)
	if article.Title == "" {
		article.Title = article.URL
	}
	dateAdded := idx.now().Format(models.DateLayout)

	chunks := idx.chunker.Chunk(article, dateAdded)
	total := len(chunks)
	idx.logger.Debug("Ingesting article", zap.String("url", article.URL), zap.Int("chunks", total))

	for i := range chunks {
		if err := ctx.Err(); err != nil {
			return nil, &models.IngestError{URL: article.URL, Completed: i, Total: total, Err: err}
		}
		vec, err := idx.embedder.Embed(ctx, chunks[i].Text)
		if err != nil {
			return nil, &models.IngestError{URL: article.URL, Completed: i, Total: total, Err: asEmbeddingError(err)}
		}
		chunks[i].Embedding = vec
		if err := idx.store.Upsert(ctx, chunks[i:i+1]); err != nil {
			return nil, &models.IngestError{URL: article.URL, Completed: i, Total: total, Err: err}
		}
	}

	result := &models.IngestResult{URL: article.URL, Title: article.Title, Summary: article.Summary, Chunks: total}
	if idx.purgeStale {
		purged, err := idx.store.DeleteByFilter(ctx, models.Filter{URL: article.URL, MinChunkIndex: total})
		if err != nil {
			idx.logger.Warn("Failed to purge stale chunks", zap.String("url", article.URL), zap.Error(err))
		}
		result.Purged = purged
	}
	idx.indexCatalogue(ctx, keyword.ArticleDoc{
		URL:       article.URL,
		Title:     article.Title,
		Summary:   article.Summary,
		DateAdded: dateAdded,
	})

	idx.logger.Info("Article ingested",
		zap.String("url", article.URL),
		zap.String("title", article.Title),
		zap.Int("chunks", total),
		zap.Int("purged", result.Purged))
	return result, nil
}

func asEmbeddingError(err error) error {
	var ee *models.EmbeddingError
	if errors.As(err, &ee) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &models.EmbeddingError{Err: err}
}

// IngestURL extracts the content behind rawURL, summarizes it and ingests it.
// Extraction failures abort before anything is written.
func (idx *Indexer) IngestURL(ctx context.Context, rawURL string) (*models.IngestResult, error) {
	if idx.extractor == nil {
		return nil, &models.ExtractionError{URL: rawURL, Message: "no extractor configured"}
	}
	content, err := idx.extractor.Extract(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	url := content.URL
	if url == "" {
		url = rawURL
	}
	return idx.Ingest(ctx, models.ArticleInput{
		URL:     url,
		Title:   content.Title,
		Text:    content.Text,
		Summary: idx.summarize(ctx, content.Title, content.Text),
	})
}

// summarize never fails: without a summarizer, or when it errors, the
// beginning of the text stands in.
func (idx *Indexer) summarize(ctx context.Context, title, text string) string {
	if idx.summarizer != nil {
		summary, err := idx.summarizer.Summarize(ctx, title, text)
		if err == nil && strings.TrimSpace(summary) != "" {
			return strings.TrimSpace(summary)
		}
		if err != nil {
			idx.logger.Warn("Summary generation failed, using text head", zap.String("title", title), zap.Error(err))
		}
	}
	return utils.Truncate(strings.Join(strings.Fields(text), " "), fallbackSummaryLen)
}

// normalizeTitleForKeywordSearch replaces underscores with spaces so file
// names like "release_notes_2024" match "release notes".
func normalizeTitleForKeywordSearch(title string) string {
	return strings.ReplaceAll(title, "_", " ")
}

func (idx *Indexer) indexCatalogue(ctx context.Context, doc keyword.ArticleDoc) {
	if idx.catalogue == nil {
		return
	}
	doc.Title = normalizeTitleForKeywordSearch(doc.Title)
	if err := idx.catalogue.Index(ctx, doc); err != nil {
		idx.logger.Warn("Failed to update article catalogue", zap.String("url", doc.URL), zap.Error(err))
	}
}

// IngestFile ingests a local file under its file:// URL. If allowedExts is
// non-empty the extension must be listed (case-insensitive).
func (idx *Indexer) IngestFile(ctx context.Context, path string, allowedExts []string) (*models.IngestResult, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(absPath))
	if len(allowedExts) > 0 && !extensionAllowed(ext, allowedExts) {
		return nil, fmt.Errorf("extension %q not in allowed list", ext)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("not a regular file: %s", absPath)
	}
	idx.logger.Debug("Ingesting file", zap.String("path", absPath))
	return idx.IngestURL(ctx, chunkid.FileURL(absPath))
}

// shouldSkipFile reports whether the file's article is stored and was
// written after the file last changed.
func (idx *Indexer) shouldSkipFile(ctx context.Context, absPath string, info os.FileInfo) bool {
	chunks, err := idx.store.GetByFilter(ctx, models.Filter{URL: chunkid.FileURL(absPath)}, 1)
	if err != nil || len(chunks) == 0 {
		return false
	}
	return !info.ModTime().After(chunks[0].UpdatedAt)
}

// IngestDirectory walks dir and ingests every regular file whose extension is
// in allowedExts (all files when empty). Files unchanged since their last
// ingestion are skipped. Failures are logged and joined; the walk continues.
func (idx *Indexer) IngestDirectory(ctx context.Context, dir string, allowedExts []string, recursive bool) (int, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return 0, fmt.Errorf("absolute path: %w", err)
	}
	info, err := os.Stat(absDir)
	if err != nil {
		return 0, fmt.Errorf("stat directory: %w", err)
	}
	if !info.IsDir() {
		return 0, fmt.Errorf("not a directory: %s", absDir)
	}

	var (
		n    int
		errs []error
	)
	walkErr := filepath.WalkDir(absDir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if path != absDir && (!recursive || strings.HasPrefix(d.Name(), ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		if len(allowedExts) > 0 && !extensionAllowed(filepath.Ext(path), allowedExts) {
			return nil
		}
		finfo, statErr := os.Stat(path)
		if statErr != nil || !finfo.Mode().IsRegular() {
			return nil
		}
		if idx.shouldSkipFile(ctx, path, finfo) {
			idx.logger.Debug("Skipping unchanged file", zap.String("path", path))
			return nil
		}
		if _, err := idx.IngestFile(ctx, path, allowedExts); err != nil {
			idx.logger.Warn("Failed to ingest file", zap.String("path", path), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", path, err))
			return nil
		}
		n++
		return nil
	})
	if walkErr != nil {
		errs = append(errs, walkErr)
	}
	return n, errors.Join(errs...)
}

func extensionAllowed(ext string, allowed []string) bool {
	extNorm := strings.ToLower(strings.TrimPrefix(ext, "."))
	for _, a := range allowed {
		if strings.ToLower(strings.TrimPrefix(a, ".")) == extNorm {
			return true
		}
	}
	return false
}

// DeleteArticle removes every chunk of url and its catalogue entry. It
// returns the number of chunks removed; zero means the URL was unknown.
func (idx *Indexer) DeleteArticle(ctx context.Context, url string) (int, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return 0, models.ErrMissingURL
	}
	n, err := idx.store.DeleteByFilter(ctx, models.Filter{URL: url})
	if err != nil {
		return 0, err
	}
	if idx.catalogue != nil {
		if err := idx.catalogue.Delete(ctx, url); err != nil {
			idx.logger.Warn("Failed to remove article from catalogue", zap.String("url", url), zap.Error(err))
		}
	}
	idx.logger.Info("Article deleted", zap.String("url", url), zap.Int("chunks", n))
	return n, nil
}

// FullText rebuilds an article from its chunks in chunk order, removing the
// overlap between neighbours.
func (idx *Indexer) FullText(ctx context.Context, url string) (*models.Article, error) {
	chunks, err := idx.store.GetByFilter(ctx, models.Filter{URL: strings.TrimSpace(url)}, 0)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, models.ErrArticleNotFound
	}
	slices.SortFunc(chunks, func(a, b models.Chunk) int {
		return a.Metadata.ChunkIndex - b.Metadata.ChunkIndex
	})
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	meta := chunks[0].Metadata
	return &models.Article{
		URL:       meta.URL,
		Title:     meta.Title,
		Summary:   meta.Summary,
		DateAdded: meta.DateAdded,
		Text:      Reassemble(texts, idx.chunker.Overlap()),
	}, nil
}

// ListArticles returns the catalogue, newest first. A limit <= 0 means all.
func (idx *Indexer) ListArticles(ctx context.Context, limit int) ([]models.ArticleSummary, error) {
	return idx.store.Articles(ctx, limit)
}

// SearchArticles finds articles whose title or summary matches query. An
// empty query lists articles. Without a catalogue it falls back to a
// case-insensitive substring match on titles.
func (idx *Indexer) SearchArticles(ctx context.Context, query string, limit int) ([]models.ArticleSummary, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return idx.ListArticles(ctx, limit)
	}
	all, err := idx.store.Articles(ctx, 0)
	if err != nil {
		return nil, err
	}

	if idx.catalogue == nil {
		q := strings.ToLower(query)
		var out []models.ArticleSummary
		for _, a := range all {
			if strings.Contains(strings.ToLower(a.Title), q) {
				out = append(out, a)
				if limit > 0 && len(out) == limit {
					break
				}
			}
		}
		return out, nil
	}

	byURL := make(map[string]models.ArticleSummary, len(all))
	for _, a := range all {
		byURL[a.URL] = a
	}
	hits, err := idx.catalogue.Search(ctx, query, limit, &keyword.SearchOptions{TitleBoost: 3, Fuzziness: 1})
	if err != nil {
		return nil, fmt.Errorf("catalogue search: %w", err)
	}
	out := make([]models.ArticleSummary, 0, len(hits))
	for _, h := range hits {
		if a, ok := byURL[h.URL]; ok {
			out = append(out, a)
		}
	}
	return out, nil
}

// SyncCatalogue re-indexes every stored article in the keyword catalogue.
// Run it after opening a fresh or in-memory catalogue.
func (idx *Indexer) SyncCatalogue(ctx context.Context) (int, error) {
	if idx.catalogue == nil {
		return 0, nil
	}
	articles, err := idx.store.Articles(ctx, 0)
	if err != nil {
		return 0, err
	}
	for i, a := range articles {
		doc := keyword.ArticleDoc{
			URL:       a.URL,
			Title:     normalizeTitleForKeywordSearch(a.Title),
			Summary:   a.Summary,
			DateAdded: a.DateAdded,
		}
		if err := idx.catalogue.Index(ctx, doc); err != nil {
			return i, fmt.Errorf("index %s: %w", a.URL, err)
		}
	}
	idx.logger.Debug("Catalogue synced", zap.Int("articles", len(articles)))
	return len(articles), nil
}
