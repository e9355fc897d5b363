package models

// Match is one ranked hit from a similarity query.
type Match struct {
	ID       string        `json:"id"`
	Text     string        `json:"text"`
	Score    float64       `json:"score"`
	Metadata ChunkMetadata `json:"metadata"`
}

// Retrieval is the context assembled for one question. Context holds the
// matched chunk texts in rank order; Source is the metadata of the top match.
type Retrieval struct {
	Context string        `json:"context"`
	Source  ChunkMetadata `json:"source"`
	Matches []Match       `json:"matches"`
}

// Answer is the synthesized response to a question.
type Answer struct {
	Question      string         `json:"question"`
	ExpandedQuery string         `json:"expanded_query,omitempty"`
	Text          string         `json:"text"`
	Refused       bool           `json:"refused"`
	NoKnowledge   bool           `json:"no_knowledge"`
	Source        *ChunkMetadata `json:"source,omitempty"`
}

// Stats describes the size of the knowledge base.
type Stats struct {
	Articles  int `json:"articles"`
	Chunks    int `json:"chunks"`
	Vectors   int `json:"vectors"`
	// Unindexed counts stored chunks whose embedding does not fit the
	// configured dimension. They stay readable but are never retrieved.
	Unindexed int `json:"unindexed,omitempty"`
}
