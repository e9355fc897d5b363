package models

import (
	"errors"
	"fmt"
	"testing"
)

func TestRetrieveQuery_Validate(t *testing.T) {
	tests := []struct {
		name    string
		query   *RetrieveQuery
		wantErr bool
		wantK   int
	}{
		{"empty query", &RetrieveQuery{Query: ""}, true, 0},
		{"sets default k", &RetrieveQuery{Query: "x"}, false, 5},
		{"keeps k", &RetrieveQuery{Query: "x", K: 3}, false, 3},
		{"caps k", &RetrieveQuery{Query: "x", K: 500}, false, 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.query.Validate(5, 50)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && tt.query.K != tt.wantK {
				t.Errorf("K = %d, want %d", tt.query.K, tt.wantK)
			}
		})
	}
}

func TestAskRequest_Validate(t *testing.T) {
	if err := (&AskRequest{}).Validate(); err == nil {
		t.Error("expected error for empty question")
	}
	if err := (&AskRequest{Question: "what?"}).Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestQuestion_Valid(t *testing.T) {
	tests := []struct {
		name string
		q    Question
		want bool
	}{
		{"valid", Question{Question: "q", Options: []string{"a", "b"}, CorrectIndex: 1}, true},
		{"index out of range", Question{Question: "q", Options: []string{"a", "b"}, CorrectIndex: 2}, false},
		{"negative index", Question{Question: "q", Options: []string{"a", "b"}, CorrectIndex: -1}, false},
		{"one option", Question{Question: "q", Options: []string{"a"}}, false},
		{"no text", Question{Options: []string{"a", "b"}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.q.Valid(); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestErrorsUnwrap(t *testing.T) {
	cause := errors.New("boom")
	wrapped := fmt.Errorf("ingest: %w", &IngestError{URL: "u", Completed: 1, Total: 3, Err: &EmbeddingError{Err: cause}})

	var embErr *EmbeddingError
	if !errors.As(wrapped, &embErr) {
		t.Fatal("expected EmbeddingError in chain")
	}
	if !errors.Is(wrapped, cause) {
		t.Error("expected cause in chain")
	}
	var ingErr *IngestError
	if !errors.As(wrapped, &ingErr) || ingErr.Completed != 1 {
		t.Errorf("unexpected IngestError: %+v", ingErr)
	}
}
