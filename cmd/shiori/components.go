package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hyperjump/shiori/internal/assistant"
	"github.com/hyperjump/shiori/internal/config"
	"github.com/hyperjump/shiori/internal/embedding"
	"github.com/hyperjump/shiori/internal/extract"
	"github.com/hyperjump/shiori/internal/indexer"
	"github.com/hyperjump/shiori/internal/keyword"
	"github.com/hyperjump/shiori/internal/knowledge"
	"github.com/hyperjump/shiori/internal/llm"
	"github.com/hyperjump/shiori/internal/quiz"
	"github.com/hyperjump/shiori/internal/search"
	"go.uber.org/zap"
)

// Components holds initialized services.
type Components struct {
	Config    *config.Config
	Store     *knowledge.Store
	Embedder  embedding.Embedder
	Catalogue *keyword.BleveIndex
	Generator llm.Generator
	Engine    *search.Engine
	Indexer   *indexer.Indexer
	Quizzes   *quiz.Manager
}

func (c *Components) Close() {
	if c.Store != nil {
		_ = c.Store.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.Catalogue != nil {
		_ = c.Catalogue.Close()
	}
}

func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Components, error) {
	c := &Components{Config: cfg}
	ok := false
	defer func() {
		if !ok {
			c.Close()
		}
	}()

	embedder, err := embedding.New(cfg.Embedding, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}
	c.Embedder = embedder

	store, err := knowledge.Open(ctx, cfg.Storage.DatabasePath, cfg.Embedding.Dimensions, knowledge.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize knowledge store: %w", err)
	}
	c.Store = store

	if cfg.Storage.KeywordIndexPath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Storage.KeywordIndexPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create keyword index directory: %w", err)
		}
	}
	catalogue, err := keyword.NewBleveIndex(cfg.Storage.KeywordIndexPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize keyword index: %w", err)
	}
	c.Catalogue = catalogue

	gen, err := llm.New(cfg.LLM, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize llm: %w", err)
	}
	c.Generator = gen

	chunker, err := indexer.NewChunker(cfg.Chunking.ChunkSize, cfg.Chunking.OverlapOrDefault())
	if err != nil {
		return nil, err
	}
	maxInput := cfg.Generation.MaxInputChars
	c.Indexer = indexer.NewIndexer(store, embedder, chunker,
		indexer.WithLogger(logger),
		indexer.WithCatalogue(catalogue),
		indexer.WithExtractor(extract.NewRouter(cfg.Extract, extract.WithLogger(logger))),
		indexer.WithSummarizer(assistant.NewSummarizer(gen, cfg.Generation.Summary, maxInput)),
		indexer.WithPurgeStale(cfg.Chunking.PurgeStaleOrDefault()),
	)

	c.Engine = search.NewEngine(store, embedder, cfg.Retrieval,
		search.WithLogger(logger),
		search.WithCatalogue(catalogue),
		search.WithExpander(assistant.NewExpander(gen, cfg.Generation.Expand)),
		search.WithSynthesizer(assistant.NewSynthesizer(gen, cfg.Generation.Answer)),
	)

	c.Quizzes = quiz.NewManager(
		c.Indexer,
		assistant.NewQuizGenerator(gen, cfg.Generation.Quiz, maxInput, assistant.WithQuizLogger(logger)),
		cfg.Quiz.Counts,
		quiz.WithLogger(logger),
	)

	// The catalogue is derived data; rebuild it when it was removed or is new.
	if count, err := catalogue.DocCount(); err == nil && count == 0 {
		if n, err := c.Indexer.SyncCatalogue(ctx); err != nil {
			logger.Warn("catalogue sync failed", zap.Error(err))
		} else if n > 0 {
			logger.Info("catalogue rebuilt", zap.Int("articles", n))
		}
	}

	ok = true
	return c, nil
}
