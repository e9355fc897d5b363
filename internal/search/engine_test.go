package search

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperjump/shiori/internal/assistant"
	"github.com/hyperjump/shiori/internal/config"
	"github.com/hyperjump/shiori/internal/embedding"
	"github.com/hyperjump/shiori/internal/indexer"
	"github.com/hyperjump/shiori/internal/keyword"
	"github.com/hyperjump/shiori/internal/knowledge"
	"github.com/hyperjump/shiori/internal/llm"
	"github.com/hyperjump/shiori/internal/models"
)

const testDims = 64

var (
	goArticle = models.ArticleInput{
		URL:     "https://blog.example/go-concurrency",
		Title:   "Go Concurrency",
		Text:    "Goroutines are lightweight threads managed by the Go runtime scheduler.",
		Summary: "goroutines and the scheduler",
	}
	pgArticle = models.ArticleInput{
		URL:     "https://blog.example/postgres-indexes",
		Title:   "Postgres Indexes",
		Text:    "Postgres uses btree indexes for fast lookups on sorted columns.",
		Summary: "btree storage",
	}
)

type fixture struct {
	store     *knowledge.Store
	embedder  *embedding.MockEmbedder
	indexer   *indexer.Indexer
	catalogue *keyword.BleveIndex
}

func newFixture(t *testing.T, articles ...models.ArticleInput) *fixture {
	t.Helper()
	ctx := context.Background()
	store, err := knowledge.Open(ctx, filepath.Join(t.TempDir(), "kb.db"), testDims)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	catalogue, err := keyword.NewBleveIndex("")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = catalogue.Close() })

	emb := embedding.NewMockEmbedder(testDims)
	chunker, err := indexer.NewChunker(200, 20)
	if err != nil {
		t.Fatal(err)
	}
	idx := indexer.NewIndexer(store, emb, chunker, indexer.WithCatalogue(catalogue))
	for _, a := range articles {
		if _, err := idx.Ingest(ctx, a); err != nil {
			t.Fatal(err)
		}
	}
	return &fixture{store: store, embedder: emb, indexer: idx, catalogue: catalogue}
}

func (f *fixture) engine(gen llm.Generator, opts ...EngineOption) *Engine {
	cfg := config.RetrievalConfig{TopK: 5, MaxK: 50}
	if gen != nil {
		opts = append([]EngineOption{
			WithExpander(assistant.NewExpander(gen, config.TaskConfig{NumCtx: 2048})),
			WithSynthesizer(assistant.NewSynthesizer(gen, config.TaskConfig{Temperature: 0.1, NumCtx: 8192})),
		}, opts...)
	}
	return NewEngine(f.store, f.embedder, cfg, opts...)
}

func TestEngine_RetrieveEmptyStore(t *testing.T) {
	f := newFixture(t)
	got, err := f.engine(nil).Retrieve(context.Background(), "anything", 5)
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Errorf("expected nil retrieval, got %+v", got)
	}
}

func TestEngine_Retrieve(t *testing.T) {
	f := newFixture(t, goArticle, pgArticle)
	got, err := f.engine(nil).Retrieve(context.Background(), "goroutines runtime", 2)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil {
		t.Fatal("expected retrieval")
	}
	if len(got.Matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(got.Matches))
	}
	if got.Source.URL != goArticle.URL {
		t.Errorf("source = %s, want %s", got.Source.URL, goArticle.URL)
	}
	want := goArticle.Text + ContextSeparator + pgArticle.Text
	if got.Context != want {
		t.Errorf("context = %q, want %q", got.Context, want)
	}
}

func TestEngine_RetrieveRejectsEmptyQuery(t *testing.T) {
	f := newFixture(t)
	if _, err := f.engine(nil).Retrieve(context.Background(), "  ", 5); err == nil {
		t.Error("expected error for empty query")
	}
}

func TestEngine_AskNoKnowledge(t *testing.T) {
	f := newFixture(t)
	gen := llm.NewScriptedGenerator("expanded query", "an answer")
	ans, err := f.engine(gen).Ask(context.Background(), models.AskRequest{Question: "what is a goroutine?", NoExpand: true})
	if err != nil {
		t.Fatal(err)
	}
	if !ans.NoKnowledge || ans.Text != NoKnowledgeText {
		t.Errorf("answer = %+v", ans)
	}
	if n := len(gen.Calls()); n != 0 {
		t.Errorf("generator called %d times, want 0", n)
	}
}

func TestEngine_AskExpandsAndCites(t *testing.T) {
	f := newFixture(t, goArticle, pgArticle)
	gen := llm.NewScriptedGenerator("goroutines runtime", "Goroutines are scheduled by the runtime.")

	ans, err := f.engine(gen).Ask(context.Background(), models.AskRequest{Question: "How does Go run concurrent code?"})
	if err != nil {
		t.Fatal(err)
	}
	if ans.ExpandedQuery != "goroutines runtime" {
		t.Errorf("expanded query = %q", ans.ExpandedQuery)
	}
	wantText := "Goroutines are scheduled by the runtime.\n\nSource: Go Concurrency\n" + goArticle.URL
	if ans.Text != wantText {
		t.Errorf("text = %q, want %q", ans.Text, wantText)
	}
	if ans.Source == nil || ans.Source.URL != goArticle.URL {
		t.Errorf("source = %+v", ans.Source)
	}

	calls := gen.Calls()
	if len(calls) != 2 {
		t.Fatalf("expected 2 generator calls, got %d", len(calls))
	}
	if !strings.Contains(calls[1].Prompt, goArticle.Text) {
		t.Error("answer prompt should contain retrieved context")
	}
	if !strings.Contains(calls[1].Prompt, "How does Go run concurrent code?") {
		t.Error("answer prompt should contain the original question")
	}
}

func TestEngine_AskFallsBackWhenExpansionFails(t *testing.T) {
	f := newFixture(t, goArticle)
	broken := &llm.ScriptedGenerator{Err: errors.New("model offline")}
	answerer := llm.NewScriptedGenerator("Goroutines are cheap.")

	e := NewEngine(f.store, f.embedder, config.RetrievalConfig{TopK: 3, MaxK: 10},
		WithExpander(assistant.NewExpander(broken, config.TaskConfig{})),
		WithSynthesizer(assistant.NewSynthesizer(answerer, config.TaskConfig{})))

	ans, err := e.Ask(context.Background(), models.AskRequest{Question: "goroutines?"})
	if err != nil {
		t.Fatal(err)
	}
	if ans.ExpandedQuery != "" {
		t.Errorf("expanded query = %q, want empty", ans.ExpandedQuery)
	}
	if ans.Source == nil {
		t.Error("expected cited source")
	}
}

func TestEngine_AskNoExpand(t *testing.T) {
	f := newFixture(t, goArticle)
	gen := llm.NewScriptedGenerator("Only answer.")
	ans, err := f.engine(gen).Ask(context.Background(), models.AskRequest{Question: "goroutines?", NoExpand: true})
	if err != nil {
		t.Fatal(err)
	}
	if n := len(gen.Calls()); n != 1 {
		t.Errorf("generator called %d times, want 1", n)
	}
	if !strings.HasPrefix(ans.Text, "Only answer.") {
		t.Errorf("text = %q", ans.Text)
	}
}

func TestEngine_AskRefusalHasNoCitation(t *testing.T) {
	f := newFixture(t, goArticle)
	gen := llm.NewScriptedGenerator("There is no information about that in the context.")
	ans, err := f.engine(gen).Ask(context.Background(), models.AskRequest{Question: "who won the match?", NoExpand: true})
	if err != nil {
		t.Fatal(err)
	}
	if !ans.Refused || ans.Source != nil || strings.Contains(ans.Text, "Source:") {
		t.Errorf("answer = %+v", ans)
	}
}

func TestEngine_AskGenerationError(t *testing.T) {
	f := newFixture(t, goArticle)
	gen := &llm.ScriptedGenerator{Err: errors.New("boom")}
	_, err := f.engine(gen).Ask(context.Background(), models.AskRequest{Question: "goroutines?", NoExpand: true})
	var ge *models.GenerationError
	if !errors.As(err, &ge) {
		t.Fatalf("err = %v, want GenerationError", err)
	}
}

func TestEngine_FindArticles(t *testing.T) {
	f := newFixture(t, goArticle, pgArticle)
	e := f.engine(nil, WithCatalogue(f.catalogue))

	hits, err := e.FindArticles(context.Background(), "btree", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) == 0 {
		t.Fatal("expected hits")
	}
	if hits[0].URL != pgArticle.URL {
		t.Errorf("top hit = %s, want %s", hits[0].URL, pgArticle.URL)
	}
	if hits[0].KeywordScore != 1 {
		t.Errorf("keyword score = %f, want 1", hits[0].KeywordScore)
	}
	if hits[0].Title != "Postgres Indexes" {
		t.Errorf("title = %q", hits[0].Title)
	}
}
