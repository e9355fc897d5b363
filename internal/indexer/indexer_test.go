package indexer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/hyperjump/shiori/internal/chunkid"
	"github.com/hyperjump/shiori/internal/embedding"
	"github.com/hyperjump/shiori/internal/extract"
	"github.com/hyperjump/shiori/internal/keyword"
	"github.com/hyperjump/shiori/internal/knowledge"
	"github.com/hyperjump/shiori/internal/models"
)

const testDims = 8

const alphabet = "abcdefghijklmnopqrstuvwxyz"

func TestExtensionAllowed(t *testing.T) {
	tests := []struct {
		ext     string
		allowed []string
		want    bool
	}{
		{".txt", []string{".txt", ".md"}, true},
		{".TXT", []string{".txt"}, true},
		{".md", []string{"txt", "md"}, true},
		{".go", []string{".txt"}, false},
		{"", []string{".txt"}, false},
	}
	for _, tt := range tests {
		got := extensionAllowed(tt.ext, tt.allowed)
		if got != tt.want {
			t.Errorf("extensionAllowed(%q, %v) = %v, want %v", tt.ext, tt.allowed, got, tt.want)
		}
	}
}

func testStore(t *testing.T) *knowledge.Store {
	t.Helper()
	store, err := knowledge.Open(context.Background(), filepath.Join(t.TempDir(), "kb.db"), testDims)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testIndexer(t *testing.T, store *knowledge.Store, embedder embedding.Embedder, opts ...IndexerOption) *Indexer {
	t.Helper()
	chunker, err := NewChunker(10, 2)
	if err != nil {
		t.Fatal(err)
	}
	if embedder == nil {
		embedder = embedding.NewMockEmbedder(testDims)
	}
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	opts = append([]IndexerOption{WithClock(func() time.Time { return fixed })}, opts...)
	return NewIndexer(store, embedder, chunker, opts...)
}

func countChunks(t *testing.T, store *knowledge.Store, url string) int {
	t.Helper()
	chunks, err := store.GetByFilter(context.Background(), models.Filter{URL: url}, 0)
	if err != nil {
		t.Fatal(err)
	}
	return len(chunks)
}

// failingEmbedder fails every call after the first ok calls.
type failingEmbedder struct {
	*embedding.MockEmbedder
	ok    int
	calls int
}

func (f *failingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	if f.calls > f.ok {
		return nil, errors.New("model unavailable")
	}
	return f.MockEmbedder.Embed(ctx, text)
}

type stubExtractor struct {
	content *models.Content
	err     error
}

func (s stubExtractor) Extract(context.Context, string) (*models.Content, error) {
	return s.content, s.err
}

type stubSummarizer struct {
	summary string
	err     error
}

func (s stubSummarizer) Summarize(context.Context, string, string) (string, error) {
	return s.summary, s.err
}

func TestIngest_chunksAndFullText(t *testing.T) {
	store := testStore(t)
	idx := testIndexer(t, store, nil)
	ctx := context.Background()

	res, err := idx.Ingest(ctx, models.ArticleInput{URL: "https://a.example/1", Title: "  Alpha \n Post ", Text: alphabet, Summary: "letters"})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if res.Chunks != 4 || res.Title != "Alpha Post" || res.Purged != 0 {
		t.Errorf("result = %+v", res)
	}

	chunks, err := store.GetByFilter(ctx, models.Filter{URL: "https://a.example/1"}, 0)
	if err != nil {
		t.Fatal(err)
	}
	for i, c := range chunks {
		if c.ID != chunkid.ChunkID("https://a.example/1", i) {
			t.Errorf("chunk %d id = %s", i, c.ID)
		}
		if c.Metadata.DateAdded != "2024-03-01" || c.Metadata.Summary != "letters" {
			t.Errorf("chunk %d metadata = %+v", i, c.Metadata)
		}
	}

	article, err := idx.FullText(ctx, "https://a.example/1")
	if err != nil {
		t.Fatalf("FullText: %v", err)
	}
	if article.Text != alphabet {
		t.Errorf("FullText = %q, want %q", article.Text, alphabet)
	}
	if article.Title != "Alpha Post" {
		t.Errorf("title = %q", article.Title)
	}
}

// reversedStore returns GetByFilter results in descending chunk order.
type reversedStore struct {
	*knowledge.Store
}

func (r reversedStore) GetByFilter(ctx context.Context, filter models.Filter, limit int) ([]models.Chunk, error) {
	chunks, err := r.Store.GetByFilter(ctx, filter, limit)
	slices.Reverse(chunks)
	return chunks, err
}

func TestFullText_ordersByChunkIndex(t *testing.T) {
	store := testStore(t)
	chunker, err := NewChunker(1000, 100)
	if err != nil {
		t.Fatal(err)
	}
	idx := NewIndexer(reversedStore{store}, embedding.NewMockEmbedder(testDims), chunker)
	ctx := context.Background()
	text := strings.Repeat(alphabet, 100)[:2500]

	res, err := idx.Ingest(ctx, models.ArticleInput{URL: "https://a.example/long", Title: "Long", Text: text})
	if err != nil {
		t.Fatal(err)
	}
	if res.Chunks != 3 {
		t.Errorf("chunks = %d, want 3", res.Chunks)
	}
	raw, err := idx.store.GetByFilter(ctx, models.Filter{URL: "https://a.example/long"}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(raw) != 3 || raw[0].Metadata.ChunkIndex != 2 {
		t.Fatalf("store should return chunks in reverse, got %d chunks", len(raw))
	}

	article, err := idx.FullText(ctx, "https://a.example/long")
	if err != nil {
		t.Fatal(err)
	}
	if article.Text != text {
		t.Errorf("FullText does not match the ingested text (len %d, want %d)", len(article.Text), len(text))
	}

	n, err := idx.DeleteArticle(ctx, "https://a.example/long")
	if err != nil || n != 3 {
		t.Errorf("DeleteArticle = %d, %v", n, err)
	}
	if got := countChunks(t, store, "https://a.example/long"); got != 0 {
		t.Errorf("%d chunks left after delete", got)
	}
}

func TestIngest_sameInputTwiceIsIdempotent(t *testing.T) {
	store := testStore(t)
	idx := testIndexer(t, store, nil)
	ctx := context.Background()
	in := models.ArticleInput{URL: "https://a.example/same", Title: "Same", Text: alphabet, Summary: "letters"}

	snapshot := func() ([]string, []string) {
		chunks, err := store.GetByFilter(ctx, models.Filter{URL: in.URL}, 0)
		if err != nil {
			t.Fatal(err)
		}
		ids := make([]string, len(chunks))
		texts := make([]string, len(chunks))
		for i, c := range chunks {
			ids[i], texts[i] = c.ID, c.Text
		}
		return ids, texts
	}

	first, err := idx.Ingest(ctx, in)
	if err != nil {
		t.Fatal(err)
	}
	ids1, texts1 := snapshot()

	second, err := idx.Ingest(ctx, in)
	if err != nil {
		t.Fatal(err)
	}
	ids2, texts2 := snapshot()

	if first.Chunks != second.Chunks || second.Purged != 0 {
		t.Errorf("first = %+v, second = %+v", first, second)
	}
	if !slices.Equal(ids1, ids2) || !slices.Equal(texts1, texts2) {
		t.Errorf("chunks changed on re-ingest:\n%v %q\n%v %q", ids1, texts1, ids2, texts2)
	}
	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Chunks != first.Chunks || stats.Vectors != first.Chunks {
		t.Errorf("stats = %+v", stats)
	}
}

func TestIngest_rejectsEmptyText(t *testing.T) {
	store := testStore(t)
	idx := testIndexer(t, store, nil)

	_, err := idx.Ingest(context.Background(), models.ArticleInput{URL: "https://a.example/empty", Title: "Empty", Text: " \n\t"})
	if !errors.Is(err, models.ErrEmptyArticle) {
		t.Fatalf("err = %v, want ErrEmptyArticle", err)
	}
	if n := countChunks(t, store, "https://a.example/empty"); n != 0 {
		t.Errorf("stored %d chunks", n)
	}
}

func TestIngest_rejectsMissingURL(t *testing.T) {
	idx := testIndexer(t, testStore(t), nil)
	_, err := idx.Ingest(context.Background(), models.ArticleInput{Title: "x", Text: "text"})
	if !errors.Is(err, models.ErrMissingURL) {
		t.Fatalf("err = %v, want ErrMissingURL", err)
	}
}

func TestIngest_reingestPurgesStaleChunks(t *testing.T) {
	store := testStore(t)
	idx := testIndexer(t, store, nil)
	ctx := context.Background()
	url := "https://a.example/shrink"

	if _, err := idx.Ingest(ctx, models.ArticleInput{URL: url, Title: "Long", Text: alphabet}); err != nil {
		t.Fatal(err)
	}
	res, err := idx.Ingest(ctx, models.ArticleInput{URL: url, Title: "Short", Text: "tiny"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Chunks != 1 || res.Purged != 3 {
		t.Errorf("result = %+v", res)
	}
	if n := countChunks(t, store, url); n != 1 {
		t.Errorf("stored %d chunks, want 1", n)
	}
	article, err := idx.FullText(ctx, url)
	if err != nil {
		t.Fatal(err)
	}
	if article.Text != "tiny" || article.Title != "Short" {
		t.Errorf("article = %+v", article)
	}
}

func TestIngest_purgeDisabledKeepsStaleChunks(t *testing.T) {
	store := testStore(t)
	idx := testIndexer(t, store, nil, WithPurgeStale(false))
	ctx := context.Background()
	url := "https://a.example/keep"

	if _, err := idx.Ingest(ctx, models.ArticleInput{URL: url, Title: "Long", Text: alphabet}); err != nil {
		t.Fatal(err)
	}
	if _, err := idx.Ingest(ctx, models.ArticleInput{URL: url, Title: "Short", Text: "tiny"}); err != nil {
		t.Fatal(err)
	}
	if n := countChunks(t, store, url); n != 4 {
		t.Errorf("stored %d chunks, want 4", n)
	}
}

func TestIngest_embeddingFailureReportsProgress(t *testing.T) {
	store := testStore(t)
	emb := &failingEmbedder{MockEmbedder: embedding.NewMockEmbedder(testDims), ok: 2}
	idx := testIndexer(t, store, emb)
	url := "https://a.example/partial"

	_, err := idx.Ingest(context.Background(), models.ArticleInput{URL: url, Title: "Partial", Text: alphabet})
	var ie *models.IngestError
	if !errors.As(err, &ie) {
		t.Fatalf("err = %v, want IngestError", err)
	}
	if ie.Completed != 2 || ie.Total != 4 {
		t.Errorf("progress = %d/%d, want 2/4", ie.Completed, ie.Total)
	}
	var ee *models.EmbeddingError
	if !errors.As(err, &ee) {
		t.Errorf("expected wrapped EmbeddingError, got %v", err)
	}
	if n := countChunks(t, store, url); n != 2 {
		t.Errorf("stored %d chunks, want 2", n)
	}
}

func TestIngestURL_extractionFailureWritesNothing(t *testing.T) {
	store := testStore(t)
	extErr := &models.ExtractionError{URL: "https://bad.example", Message: "title not found"}
	idx := testIndexer(t, store, nil, WithExtractor(stubExtractor{err: extErr}))

	_, err := idx.IngestURL(context.Background(), "https://bad.example")
	var ee *models.ExtractionError
	if !errors.As(err, &ee) {
		t.Fatalf("err = %v, want ExtractionError", err)
	}
	articles, err := idx.ListArticles(context.Background(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(articles) != 0 {
		t.Errorf("articles = %v", articles)
	}
}

func TestIngestURL_summaries(t *testing.T) {
	content := &models.Content{URL: "https://a.example/s", Title: "Summary Test", Text: "Some article body."}

	t.Run("generated", func(t *testing.T) {
		idx := testIndexer(t, testStore(t), nil,
			WithExtractor(stubExtractor{content: content}),
			WithSummarizer(stubSummarizer{summary: " A short summary. "}))
		res, err := idx.IngestURL(context.Background(), content.URL)
		if err != nil {
			t.Fatal(err)
		}
		if res.Summary != "A short summary." {
			t.Errorf("summary = %q", res.Summary)
		}
	})

	t.Run("fallback on error", func(t *testing.T) {
		idx := testIndexer(t, testStore(t), nil,
			WithExtractor(stubExtractor{content: content}),
			WithSummarizer(stubSummarizer{err: errors.New("llm down")}))
		res, err := idx.IngestURL(context.Background(), content.URL)
		if err != nil {
			t.Fatal(err)
		}
		if res.Summary != "Some article body." {
			t.Errorf("summary = %q", res.Summary)
		}
	})
}

func TestCatalogue_searchAndDelete(t *testing.T) {
	store := testStore(t)
	catalogue, err := keyword.NewBleveIndex("")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = catalogue.Close() })
	idx := testIndexer(t, store, nil, WithCatalogue(catalogue))
	ctx := context.Background()

	if _, err := idx.Ingest(ctx, models.ArticleInput{URL: "https://a.example/go", Title: "Concurrency in Go", Text: alphabet, Summary: "goroutines and channels"}); err != nil {
		t.Fatal(err)
	}
	if _, err := idx.Ingest(ctx, models.ArticleInput{URL: "https://a.example/pg", Title: "Postgres indexes", Text: alphabet, Summary: "btree"}); err != nil {
		t.Fatal(err)
	}

	found, err := idx.SearchArticles(ctx, "goroutines", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(found) != 1 || found[0].URL != "https://a.example/go" {
		t.Fatalf("search = %+v", found)
	}

	n, err := idx.DeleteArticle(ctx, "https://a.example/go")
	if err != nil {
		t.Fatal(err)
	}
	if n != 4 {
		t.Errorf("deleted %d chunks, want 4", n)
	}
	found, err = idx.SearchArticles(ctx, "goroutines", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(found) != 0 {
		t.Errorf("search after delete = %+v", found)
	}
	if _, err := idx.FullText(ctx, "https://a.example/go"); !errors.Is(err, models.ErrArticleNotFound) {
		t.Errorf("FullText err = %v, want ErrArticleNotFound", err)
	}

	n, err = idx.DeleteArticle(ctx, "https://a.example/unknown")
	if err != nil || n != 0 {
		t.Errorf("delete unknown = %d, %v", n, err)
	}
}

func TestSearchArticles_withoutCatalogue(t *testing.T) {
	idx := testIndexer(t, testStore(t), nil)
	ctx := context.Background()
	if _, err := idx.Ingest(ctx, models.ArticleInput{URL: "https://a.example/r", Title: "Rust Ownership", Text: alphabet}); err != nil {
		t.Fatal(err)
	}
	found, err := idx.SearchArticles(ctx, "ownership", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(found) != 1 {
		t.Errorf("found = %+v", found)
	}
}

func TestSyncCatalogue(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	plain := testIndexer(t, store, nil)
	if _, err := plain.Ingest(ctx, models.ArticleInput{URL: "https://a.example/k", Title: "Kubernetes operators", Text: alphabet}); err != nil {
		t.Fatal(err)
	}

	catalogue, err := keyword.NewBleveIndex("")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = catalogue.Close() })
	idx := testIndexer(t, store, nil, WithCatalogue(catalogue))
	n, err := idx.SyncCatalogue(ctx)
	if err != nil || n != 1 {
		t.Fatalf("SyncCatalogue = %d, %v", n, err)
	}
	found, err := idx.SearchArticles(ctx, "kubernetes", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(found) != 1 {
		t.Errorf("found = %+v", found)
	}
}

func TestIngestDirectory(t *testing.T) {
	store := testStore(t)
	idx := testIndexer(t, store, nil, WithExtractor(extract.NewFileExtractor()))
	ctx := context.Background()

	dir := t.TempDir()
	write := func(rel, content string) string {
		path := filepath.Join(dir, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}
		return path
	}
	notes := write("notes.txt", "Meeting notes about the release.")
	write("readme.md", "# Readme\nProject overview.")
	write("main.go", "package main")
	write("sub/deep.txt", "Nested document.")
	exts := []string{".txt", ".md"}

	n, err := idx.IngestDirectory(ctx, dir, exts, false)
	if err != nil {
		t.Fatalf("IngestDirectory: %v", err)
	}
	if n != 2 {
		t.Errorf("ingested %d files, want 2", n)
	}

	n, err = idx.IngestDirectory(ctx, dir, exts, true)
	if err != nil {
		t.Fatalf("IngestDirectory recursive: %v", err)
	}
	if n != 1 {
		t.Errorf("second pass ingested %d files, want 1 (only the nested one)", n)
	}

	article, err := idx.FullText(ctx, chunkid.FileURL(notes))
	if err != nil {
		t.Fatal(err)
	}
	if article.Title != "notes" || !strings.Contains(article.Text, "release") {
		t.Errorf("article = %+v", article)
	}
}

func TestIngestFile_rejectsExtension(t *testing.T) {
	idx := testIndexer(t, testStore(t), nil, WithExtractor(extract.NewFileExtractor()))
	path := filepath.Join(t.TempDir(), "main.go")
	if err := os.WriteFile(path, []byte("package main"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := idx.IngestFile(context.Background(), path, []string{".txt"}); err == nil {
		t.Error("expected error for disallowed extension")
	}
}
