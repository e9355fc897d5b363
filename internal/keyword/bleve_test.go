package keyword

import (
	"context"
	"path/filepath"
	"testing"
)

func TestBleveIndex_SearchTitleAndSummary(t *testing.T) {
	idx, err := NewBleveIndex(filepath.Join(t.TempDir(), "articles"))
	if err != nil {
		t.Fatalf("NewBleveIndex: %v", err)
	}
	defer func() { _ = idx.Close() }()
	ctx := context.Background()

	docs := []ArticleDoc{
		{URL: "https://habr.com/1", Title: "Планировщик горутин в Go", Summary: "Summary: how the Go runtime schedules goroutines.\nTags: #go"},
		{URL: "https://example.com/2", Title: "Sourdough basics", Summary: "Summary: starter, flour and patience.\nTags: #baking"},
	}
	for _, d := range docs {
		if err := idx.Index(ctx, d); err != nil {
			t.Fatalf("Index: %v", err)
		}
	}

	results, err := idx.Search(ctx, "горутин", 10, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].URL != "https://habr.com/1" {
		t.Errorf("title search: %+v", results)
	}

	results, err = idx.Search(ctx, "flour", 10, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].URL != "https://example.com/2" {
		t.Errorf("summary search: %+v", results)
	}
}

func TestBleveIndex_Fuzzy(t *testing.T) {
	idx, err := NewBleveIndex("")
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()
	ctx := context.Background()
	_ = idx.Index(ctx, ArticleDoc{URL: "u1", Title: "Kubernetes operators"})

	exact, _ := idx.Search(ctx, "kubernets", 10, nil)
	if len(exact) != 0 {
		t.Errorf("typo should not match without fuzziness: %+v", exact)
	}
	fuzzy, err := idx.Search(ctx, "kubernets", 10, &SearchOptions{Fuzziness: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(fuzzy) != 1 {
		t.Errorf("typo should match with fuzziness 1: %+v", fuzzy)
	}
}

func TestBleveIndex_ReindexAndDelete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "articles")
	idx, err := NewBleveIndex(path)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	_ = idx.Index(ctx, ArticleDoc{URL: "u1", Title: "first title"})
	_ = idx.Index(ctx, ArticleDoc{URL: "u1", Title: "second title"})
	if n, _ := idx.DocCount(); n != 1 {
		t.Errorf("re-index should replace, DocCount=%d", n)
	}
	if err := idx.Close(); err != nil {
		t.Fatal(err)
	}

	// Reopen the existing index from disk.
	idx, err = NewBleveIndex(path)
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()
	if res, _ := idx.Search(ctx, "second", 10, nil); len(res) != 1 {
		t.Errorf("reopened index lost document: %+v", res)
	}
	if err := idx.Delete(ctx, "u1"); err != nil {
		t.Fatal(err)
	}
	if n, _ := idx.DocCount(); n != 0 {
		t.Errorf("DocCount after delete=%d", n)
	}
}
