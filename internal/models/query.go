package models

import "fmt"

// AskRequest is a free-text question against the knowledge base.
type AskRequest struct {
	Question string `json:"question"`
	// NoExpand skips query expansion and embeds the question as written.
	NoExpand bool `json:"no_expand,omitempty"`
}

// Validate rejects empty questions.
func (r *AskRequest) Validate() error {
	if r.Question == "" {
		return fmt.Errorf("question cannot be empty")
	}
	return nil
}

// RetrieveQuery is a raw similarity lookup without generation.
type RetrieveQuery struct {
	Query string `json:"query"`
	K     int    `json:"k,omitempty"`
}

// Validate ensures the query is non-empty and caps K to [1, maxK].
func (q *RetrieveQuery) Validate(defaultK, maxK int) error {
	if q.Query == "" {
		return fmt.Errorf("query cannot be empty")
	}
	if q.K <= 0 {
		q.K = defaultK
	}
	if q.K > maxK {
		q.K = maxK
	}
	return nil
}
