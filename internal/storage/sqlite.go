package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite"

	"github.com/IshaanNene/folio/internal/types"
)

// PagesSchema creates the pages table used by SQLiteSink.
const PagesSchema = `
CREATE TABLE IF NOT EXISTS pages (
	id TEXT PRIMARY KEY,
	sequence INTEGER NOT NULL,
	title TEXT NOT NULL,
	url TEXT NOT NULL,
	next_url TEXT,
	html TEXT NOT NULL,
	fetched_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_pages_sequence ON pages(sequence);
`

const upsertPage = `
INSERT INTO pages (id, sequence, title, url, next_url, html, fetched_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	sequence = excluded.sequence,
	title = excluded.title,
	url = excluded.url,
	next_url = excluded.next_url,
	html = excluded.html,
	fetched_at = excluded.fetched_at`

// SQLiteSink stores pages in a single-file SQLite database, one row per page
// ID. Saving an ID again replaces the row.
type SQLiteSink struct {
	db     *sql.DB
	count  int
	logger *slog.Logger
}

// NewSQLiteSink opens (or creates) the database at path and applies the schema.
func NewSQLiteSink(path string, logger *slog.Logger) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, &types.StorageError{Backend: "sqlite", Err: fmt.Errorf("open %s: %w", path, err)}
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(PagesSchema); err != nil {
		db.Close()
		return nil, &types.StorageError{Backend: "sqlite", Err: fmt.Errorf("apply schema to %s: %w", path, err)}
	}

	return &SQLiteSink{
		db:     db,
		logger: logger.With("component", "sqlite_storage"),
	}, nil
}

func (s *SQLiteSink) Name() string { return "sqlite" }

func (s *SQLiteSink) Save(ctx context.Context, page *types.Page) error {
	html, err := page.Standalone()
	if err != nil {
		return &types.StorageError{Backend: s.Name(), Err: fmt.Errorf("render page: %w", err)}
	}

	_, err = s.db.ExecContext(ctx, upsertPage,
		page.ID, page.Sequence, page.Title, page.URL, page.NextURL, html, page.FetchedAt.Unix())
	if err != nil {
		return &types.StorageError{Backend: s.Name(), Err: fmt.Errorf("upsert %s: %w", page.ID, err)}
	}

	s.count++
	s.logger.Debug("page stored in sqlite", "id", page.ID, "total", s.count)
	return nil
}

// DB exposes the underlying handle for read-back.
func (s *SQLiteSink) DB() *sql.DB { return s.db }

func (s *SQLiteSink) Close() error {
	s.logger.Info("sqlite storage closing", "total_pages", s.count)
	return s.db.Close()
}
