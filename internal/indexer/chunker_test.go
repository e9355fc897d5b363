package indexer

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/hyperjump/shiori/internal/chunkid"
	"github.com/hyperjump/shiori/internal/models"
)

func TestSplit_windows(t *testing.T) {
	text := strings.Repeat("a", 2500)
	chunks, err := Split(text, 1000, 100)
	if err != nil {
		t.Fatal(err)
	}
	// Windows start at 0, 900 and 1800; 2700 is past the end.
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	wantLens := []int{1000, 1000, 700}
	for i, ch := range chunks {
		if len(ch) != wantLens[i] {
			t.Errorf("chunk %d length = %d, want %d", i, len(ch), wantLens[i])
		}
	}
}

func TestSplit_overlapSharedBetweenNeighbours(t *testing.T) {
	text := "abcdefghijklmnopqrstuvwxyz"
	chunks, err := Split(text, 10, 3)
	if err != nil {
		t.Fatal(err)
	}
	for i := 1; i < len(chunks); i++ {
		prev := chunks[i-1]
		if len(prev) < 10 {
			continue
		}
		if !strings.HasPrefix(chunks[i], prev[len(prev)-3:]) {
			t.Errorf("chunk %d %q should start with last 3 chars of %q", i, chunks[i], prev)
		}
	}
}

func TestSplit_coverage(t *testing.T) {
	texts := []string{
		"short",
		strings.Repeat("0123456789", 37),
		strings.Repeat("Привет, мир! ", 211),
		"exactly ten",
	}
	windows := [][2]int{{10, 0}, {10, 3}, {7, 6}, {1000, 100}, {1, 0}}
	for _, text := range texts {
		for _, w := range windows {
			chunks, err := Split(text, w[0], w[1])
			if err != nil {
				t.Fatal(err)
			}
			if got := Reassemble(chunks, w[1]); got != text {
				t.Errorf("size=%d overlap=%d: reassembled text differs (len %d vs %d)", w[0], w[1], len(got), len(text))
			}
			for i, ch := range chunks {
				if n := utf8.RuneCountInString(ch); n > w[0] {
					t.Errorf("chunk %d has %d characters, max %d", i, n, w[0])
				}
			}
		}
	}
}

func TestSplit_neverCutsRunes(t *testing.T) {
	chunks, err := Split(strings.Repeat("ё", 55), 10, 2)
	if err != nil {
		t.Fatal(err)
	}
	for i, ch := range chunks {
		if !utf8.ValidString(ch) {
			t.Errorf("chunk %d is not valid UTF-8", i)
		}
	}
}

func TestSplit_empty(t *testing.T) {
	chunks, err := Split("", 10, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != 0 {
		t.Errorf("empty text should return no chunks, got %v", chunks)
	}
}

func TestSplit_invalidWindow(t *testing.T) {
	tests := []struct {
		name          string
		size, overlap int
	}{
		{"overlap equals size", 10, 10},
		{"overlap exceeds size", 10, 20},
		{"zero size", 0, 0},
		{"negative overlap", 10, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Split("text", tt.size, tt.overlap)
			var cfgErr *models.ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected ConfigError, got %v", err)
			}
			if _, err := NewChunker(tt.size, tt.overlap); err == nil {
				t.Error("NewChunker should reject the same window")
			}
		})
	}
}

func TestChunker_Chunk(t *testing.T) {
	c, err := NewChunker(10, 2)
	if err != nil {
		t.Fatal(err)
	}
	article := models.ArticleInput{
		URL:     "https://example.com/post",
		Title:   "Post",
		Summary: "About things",
		Text:    strings.Repeat("x", 35),
	}
	chunks := c.Chunk(article, "2024-05-01")
	if len(chunks) != 5 {
		t.Fatalf("expected 5 chunks, got %d", len(chunks))
	}
	for i, ch := range chunks {
		if ch.ID != chunkid.ChunkID(article.URL, i) {
			t.Errorf("chunk %d ID=%s", i, ch.ID)
		}
		if ch.Metadata.ChunkIndex != i {
			t.Errorf("chunk %d ChunkIndex=%d", i, ch.Metadata.ChunkIndex)
		}
		if ch.Metadata.URL != article.URL || ch.Metadata.Title != "Post" || ch.Metadata.Summary != "About things" {
			t.Errorf("chunk %d metadata=%+v", i, ch.Metadata)
		}
		if ch.Metadata.DateAdded != "2024-05-01" {
			t.Errorf("chunk %d date=%s", i, ch.Metadata.DateAdded)
		}
	}
}

func TestCleanTitle(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  string
	}{
		{"trim and collapse", "  a \n b  ", "a b"},
		{"soft hyphen", "Goro\u00adutines", "Goroutines"},
		{"zero width and bom", "\ufeffGo\u200b scheduler", "Go scheduler"},
		{"control characters", "Go\x07 tips\t\tand tricks", "Go tips and tricks"},
		{"cyrillic kept", "  Горутины   в Go ", "Горутины в Go"},
		{"blank", " \u200b ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanTitle(tt.title); got != tt.want {
				t.Errorf("CleanTitle(%q) = %q, want %q", tt.title, got, tt.want)
			}
		})
	}
}
