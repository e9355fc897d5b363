package watcher

import (
	"context"

	"github.com/hyperjump/shiori/internal/chunkid"
	"github.com/hyperjump/shiori/internal/models"
)

// FileIndexer is the part of the ingestion pipeline the inbox drives.
type FileIndexer interface {
	IngestFile(ctx context.Context, path string, allowedExts []string) (*models.IngestResult, error)
	IngestDirectory(ctx context.Context, dir string, allowedExts []string, recursive bool) (int, error)
	DeleteArticle(ctx context.Context, url string) (int, error)
}

// IndexerHandler applies inbox events through a FileIndexer.
type IndexerHandler struct {
	Indexer    FileIndexer
	Extensions []string
	Recursive  bool
}

func (h IndexerHandler) IngestFile(ctx context.Context, path string) error {
	_, err := h.Indexer.IngestFile(ctx, path, h.Extensions)
	return err
}

// RemoveFile deletes the article stored under the file's file:// URL.
func (h IndexerHandler) RemoveFile(ctx context.Context, path string) error {
	_, err := h.Indexer.DeleteArticle(ctx, chunkid.FileURL(path))
	return err
}

func (h IndexerHandler) SyncDirectory(ctx context.Context, root string) error {
	_, err := h.Indexer.IngestDirectory(ctx, root, h.Extensions, h.Recursive)
	return err
}
