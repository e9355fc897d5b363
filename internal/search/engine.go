// Package search answers questions from the knowledge store: similarity
// retrieval, the ask pipeline and hybrid article lookup.
package search

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/hyperjump/shiori/internal/config"
	"github.com/hyperjump/shiori/internal/embedding"
	"github.com/hyperjump/shiori/internal/keyword"
	"github.com/hyperjump/shiori/internal/models"
	"go.uber.org/zap"
)

// ContextSeparator joins retrieved chunk texts.
const ContextSeparator = "\n---\n"

// NoKnowledgeText is the answer given when the knowledge base is empty.
const NoKnowledgeText = "The knowledge base is empty. Add an article first."

// VectorStore is the read side of the knowledge store.
type VectorStore interface {
	Query(ctx context.Context, vec []float32, k int) ([]models.Match, error)
	Articles(ctx context.Context, limit int) ([]models.ArticleSummary, error)
}

// QueryExpander rewrites a question into a search query.
type QueryExpander interface {
	Expand(ctx context.Context, question string) (string, error)
}

// AnswerSynthesizer writes an answer grounded in retrieved context.
type AnswerSynthesizer interface {
	Answer(ctx context.Context, question, contextText string, source models.ChunkMetadata) (*models.Answer, error)
}

// Engine runs retrieval and the question answering pipeline.
type Engine struct {
	store       VectorStore
	embedder    embedding.Embedder
	expander    QueryExpander
	synthesizer AnswerSynthesizer
	catalogue   keyword.KeywordIndex
	config      config.RetrievalConfig
	logger      *zap.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// WithExpander enables query expansion for Ask.
func WithExpander(x QueryExpander) EngineOption {
	return func(e *Engine) { e.expander = x }
}

// WithSynthesizer sets the answer synthesizer used by Ask.
func WithSynthesizer(s AnswerSynthesizer) EngineOption {
	return func(e *Engine) { e.synthesizer = s }
}

// WithCatalogue adds keyword scores to FindArticles.
func WithCatalogue(k keyword.KeywordIndex) EngineOption {
	return func(e *Engine) { e.catalogue = k }
}

// NewEngine creates a search engine over store.
func NewEngine(store VectorStore, embedder embedding.Embedder, cfg config.RetrievalConfig, opts ...EngineOption) *Engine {
	if cfg.TopK <= 0 {
		cfg.TopK = 5
	}
	if cfg.MaxK < cfg.TopK {
		cfg.MaxK = cfg.TopK
	}
	e := &Engine{
		store:    store,
		embedder: embedder,
		config:   cfg,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Retrieve embeds query and returns the k most similar chunks joined into one
// context block. An empty store yields nil, nil.
func (e *Engine) Retrieve(ctx context.Context, query string, k int) (*models.Retrieval, error) {
	q := models.RetrieveQuery{Query: strings.TrimSpace(query), K: k}
	if err := q.Validate(e.config.TopK, e.config.MaxK); err != nil {
		return nil, err
	}
	vec, err := e.embedder.Embed(ctx, q.Query)
	if err != nil {
		return nil, embeddingError(err)
	}
	matches, err := e.store.Query(ctx, vec, q.K)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, nil
	}
	texts := make([]string, len(matches))
	for i, m := range matches {
		texts[i] = m.Text
	}
	return &models.Retrieval{
		Context: strings.Join(texts, ContextSeparator),
		Source:  matches[0].Metadata,
		Matches: matches,
	}, nil
}

func embeddingError(err error) error {
	var ee *models.EmbeddingError
	if errors.As(err, &ee) {
		return err
	}
	return &models.EmbeddingError{Err: err}
}

// Ask expands the question, retrieves context and synthesizes an answer.
// A failed expansion falls back to the question as written. With nothing
// retrieved the answer is marked NoKnowledge and no model is called.
func (e *Engine) Ask(ctx context.Context, req models.AskRequest) (*models.Answer, error) {
	req.Question = strings.TrimSpace(req.Question)
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if e.synthesizer == nil {
		return nil, errors.New("no answer synthesizer configured")
	}

	query := req.Question
	if e.expander != nil && e.config.ExpandQueryOrDefault() && !req.NoExpand {
		expanded, err := e.expander.Expand(ctx, req.Question)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			e.logger.Warn("Query expansion failed, using raw question", zap.Error(err))
		} else {
			query = expanded
		}
	}
	e.logger.Debug("Retrieving context", zap.String("question", req.Question), zap.String("query", query))

	retrieval, err := e.Retrieve(ctx, query, e.config.TopK)
	if err != nil {
		return nil, err
	}
	expandedQuery := ""
	if query != req.Question {
		expandedQuery = query
	}
	if retrieval == nil {
		return &models.Answer{
			Question:      req.Question,
			ExpandedQuery: expandedQuery,
			Text:          NoKnowledgeText,
			NoKnowledge:   true,
		}, nil
	}

	answer, err := e.synthesizer.Answer(ctx, req.Question, retrieval.Context, retrieval.Source)
	if err != nil {
		return nil, err
	}
	answer.ExpandedQuery = expandedQuery
	e.logger.Debug("Answer synthesized",
		zap.Bool("refused", answer.Refused),
		zap.String("source", retrieval.Source.URL),
		zap.Int("matches", len(retrieval.Matches)))
	return answer, nil
}

// ArticleHit is an article ranked by FindArticles.
type ArticleHit struct {
	models.ArticleSummary
	Score         float64 `json:"score"`
	KeywordScore  float64 `json:"keyword_score"`
	SemanticScore float64 `json:"semantic_score"`
}

const (
	keywordWeight  = 0.5
	semanticWeight = 0.5
)

// FindArticles ranks articles for query by fusing catalogue matches on title
// and summary with the best chunk similarity of each article. The two
// lookups run concurrently.
func (e *Engine) FindArticles(ctx context.Context, query string, limit int) ([]ArticleHit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("query cannot be empty")
	}
	if limit <= 0 {
		limit = e.config.TopK
	}
	candidates := e.config.MaxK

	var (
		keywordResults []*keyword.KeywordResult
		matches        []models.Match
		errChan        = make(chan error, 2)
		wg             sync.WaitGroup
	)
	if e.catalogue != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results, err := e.catalogue.Search(ctx, query, candidates, &keyword.SearchOptions{TitleBoost: 3, Fuzziness: 1})
			if err != nil {
				errChan <- err
				return
			}
			keywordResults = results
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		vec, err := e.embedder.Embed(ctx, query)
		if err != nil {
			errChan <- embeddingError(err)
			return
		}
		found, err := e.store.Query(ctx, vec, candidates)
		if err != nil {
			errChan <- err
			return
		}
		matches = found
	}()
	wg.Wait()
	close(errChan)
	for err := range errChan {
		if err != nil {
			return nil, err
		}
	}

	kw := NormalizeKeywordScores(keywordResults)
	sem := AggregateMatchesByArticle(matches)
	kwWeight, semWeight := keywordWeight, semanticWeight
	if e.catalogue == nil {
		kwWeight, semWeight = 0, 1
	}
	fused := Fuse(kw, sem, kwWeight, semWeight)
	if len(fused) == 0 {
		return nil, nil
	}

	articles, err := e.store.Articles(ctx, 0)
	if err != nil {
		return nil, err
	}
	byURL := make(map[string]models.ArticleSummary, len(articles))
	for _, a := range articles {
		byURL[a.URL] = a
	}
	hits := make([]ArticleHit, 0, min(limit, len(fused)))
	for _, f := range fused {
		a, ok := byURL[f.URL]
		if !ok {
			continue
		}
		hits = append(hits, ArticleHit{ArticleSummary: a, Score: f.Score, KeywordScore: f.KeywordScore, SemanticScore: f.SemanticScore})
		if len(hits) == limit {
			break
		}
	}
	return hits, nil
}
