package knowledge

import (
	"context"
	"fmt"

	"github.com/hyperjump/shiori/internal/storage"
	"github.com/hyperjump/shiori/internal/vector"
	"go.uber.org/zap"
)

// Open opens the SQLite database at dbPath, builds a memory index of the given
// dimension and warms it from the database.
func Open(ctx context.Context, dbPath string, dims int, opts ...Option) (*Store, error) {
	st, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}
	idx, err := vector.NewMemoryIndex(dims)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("failed to create vector index: %w", err)
	}
	s := NewStore(st, idx, dims, opts...)
	if _, err := s.Warm(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	s.logger.Debug("Knowledge store opened", zap.String("path", dbPath))
	return s, nil
}
