package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/shiori/internal/models"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db, now: time.Now}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS chunks (
		id TEXT PRIMARY KEY,
		url TEXT NOT NULL,
		title TEXT NOT NULL,
		summary TEXT NOT NULL DEFAULT '',
		chunk_index INTEGER NOT NULL,
		date_added TEXT NOT NULL,
		text TEXT NOT NULL,
		embedding BLOB,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_chunks_url_index ON chunks(url, chunk_index);
	CREATE INDEX IF NOT EXISTS idx_chunks_date_added ON chunks(date_added);
	`
	_, err := db.Exec(schema)
	return err
}

const chunkColumns = `id, url, title, summary, chunk_index, date_added, text, updated_at`

// UpsertChunks inserts or replaces chunks in a transaction.
func (s *SQLiteStorage) UpsertChunks(ctx context.Context, chunks []models.Chunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO chunks (id, url, title, summary, chunk_index, date_added, text, embedding, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			url = excluded.url,
			title = excluded.title,
			summary = excluded.summary,
			chunk_index = excluded.chunk_index,
			date_added = excluded.date_added,
			text = excluded.text,
			embedding = excluded.embedding,
			updated_at = excluded.updated_at`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := s.now()
	for i := range chunks {
		c := &chunks[i]
		c.UpdatedAt = now
		m := c.Metadata
		if _, err := stmt.ExecContext(ctx,
			c.ID, m.URL, m.Title, m.Summary, m.ChunkIndex, m.DateAdded, c.Text, encodeVector(c.Embedding), c.UpdatedAt,
		); err != nil {
			return fmt.Errorf("upsert chunk %s: %w", c.ID, err)
		}
	}
	return tx.Commit()
}

// GetChunks returns chunks by id. Missing ids are skipped.
func (s *SQLiteStorage) GetChunks(ctx context.Context, ids []string) ([]models.Chunk, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+chunkColumns+` FROM chunks WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanChunks(rows)
}

// GetByFilter returns chunks matching filter ordered by url, chunk_index.
func (s *SQLiteStorage) GetByFilter(ctx context.Context, filter models.Filter, limit int) ([]models.Chunk, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+chunkColumns+` FROM chunks
		 WHERE (? = '' OR url = ?) AND chunk_index >= ?
		 ORDER BY url, chunk_index LIMIT ?`,
		filter.URL, filter.URL, filter.MinChunkIndex, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanChunks(rows)
}

// DeleteByFilter removes the chunks of filter.URL with chunk_index >= filter.MinChunkIndex.
func (s *SQLiteStorage) DeleteByFilter(ctx context.Context, filter models.Filter) ([]string, error) {
	if filter.URL == "" {
		return nil, errors.New("delete requires a url filter")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx,
		`SELECT id FROM chunks WHERE url = ? AND chunk_index >= ?`, filter.URL, filter.MinChunkIndex)
	if err != nil {
		return nil, err
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM chunks WHERE url = ? AND chunk_index >= ?`, filter.URL, filter.MinChunkIndex); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return ids, nil
}

// ListArticles returns one summary per distinct url, newest first.
func (s *SQLiteStorage) ListArticles(ctx context.Context, limit int) ([]models.ArticleSummary, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT url, MAX(title), MAX(summary), MAX(date_added), COUNT(*)
		 FROM chunks GROUP BY url
		 ORDER BY MAX(date_added) DESC, MAX(updated_at) DESC, url
		 LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var articles []models.ArticleSummary
	for rows.Next() {
		var a models.ArticleSummary
		if err := rows.Scan(&a.URL, &a.Title, &a.Summary, &a.DateAdded, &a.Chunks); err != nil {
			return nil, err
		}
		articles = append(articles, a)
	}
	return articles, rows.Err()
}

// ForEachEmbedding streams every stored embedding to fn. Rows without an
// embedding are skipped. Iteration stops at the first error from fn.
func (s *SQLiteStorage) ForEachEmbedding(ctx context.Context, fn func(id string, vec []float32) error) error {
	rows, err := s.db.QueryContext(ctx, `SELECT id, embedding FROM chunks ORDER BY rowid`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		var blob []byte
		if err := rows.Scan(&id, &blob); err != nil {
			return err
		}
		if len(blob) == 0 {
			continue
		}
		vec, err := decodeVector(blob)
		if err != nil {
			return fmt.Errorf("chunk %s: %w", id, err)
		}
		if err := fn(id, vec); err != nil {
			return err
		}
	}
	return rows.Err()
}

// CountArticles returns the number of distinct article URLs.
func (s *SQLiteStorage) CountArticles(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(DISTINCT url) FROM chunks`).Scan(&count)
	return count, err
}

// CountChunks returns the total number of chunks.
func (s *SQLiteStorage) CountChunks(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func scanChunks(rows *sql.Rows) ([]models.Chunk, error) {
	var chunks []models.Chunk
	for rows.Next() {
		var c models.Chunk
		m := &c.Metadata
		if err := rows.Scan(&c.ID, &m.URL, &m.Title, &m.Summary, &m.ChunkIndex, &m.DateAdded, &c.Text, &c.UpdatedAt); err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}
