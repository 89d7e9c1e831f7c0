package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/IshaanNene/folio/internal/types"
)

// ManifestName is the file name of the JSONL manifest inside the output
// directory.
const ManifestName = "manifest.jsonl"

// --- HTML File Sink ---

// FileSink writes each page as a standalone HTML document named <id>.html.
type FileSink struct {
	dir    string
	mu     sync.Mutex
	count  int
	logger *slog.Logger
}

// NewFileSink creates the output directory if needed.
func NewFileSink(dir string, logger *slog.Logger) (*FileSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &types.StorageError{Backend: "file", Err: fmt.Errorf("create output dir: %w", err)}
	}
	return &FileSink{
		dir:    dir,
		logger: logger.With("component", "file_storage"),
	}, nil
}

func (s *FileSink) Name() string { return "file" }

// Path returns the file a page with the given ID is written to.
func (s *FileSink) Path(id string) string {
	return filepath.Join(s.dir, id+".html")
}

func (s *FileSink) Save(_ context.Context, page *types.Page) error {
	doc, err := page.Standalone()
	if err != nil {
		return &types.StorageError{Backend: s.Name(), Err: fmt.Errorf("render page: %w", err)}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.Path(page.ID)
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		return &types.StorageError{Backend: s.Name(), Err: err}
	}
	s.count++
	s.logger.Debug("page written", "path", path, "bytes", len(doc))
	return nil
}

func (s *FileSink) Close() error {
	s.logger.Info("pages written", "dir", s.dir, "pages", s.count)
	return nil
}

// --- JSONL Manifest Sink ---

// ManifestEntry is one line of the manifest.
type ManifestEntry struct {
	ID        string    `json:"id"`
	Sequence  int       `json:"sequence"`
	Title     string    `json:"title"`
	URL       string    `json:"url"`
	File      string    `json:"file"`
	FetchedAt time.Time `json:"fetched_at"`
}

// ManifestSink records every saved page as newline-delimited JSON, in crawl
// order, so packaging tools can order the chapters.
type ManifestSink struct {
	path   string
	file   *os.File
	enc    *json.Encoder
	mu     sync.Mutex
	count  int
	logger *slog.Logger
}

// NewManifestSink creates (or truncates) the manifest file.
func NewManifestSink(outputPath string, logger *slog.Logger) (*ManifestSink, error) {
	dir := filepath.Dir(outputPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &types.StorageError{Backend: "manifest", Err: fmt.Errorf("create output dir: %w", err)}
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return nil, &types.StorageError{Backend: "manifest", Err: fmt.Errorf("create manifest: %w", err)}
	}

	return &ManifestSink{
		path:   outputPath,
		file:   f,
		enc:    json.NewEncoder(f),
		logger: logger.With("component", "manifest_storage"),
	}, nil
}

func (s *ManifestSink) Name() string { return "manifest" }

func (s *ManifestSink) Save(_ context.Context, page *types.Page) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := ManifestEntry{
		ID:        page.ID,
		Sequence:  page.Sequence,
		Title:     page.Title,
		URL:       page.URL,
		File:      page.ID + ".html",
		FetchedAt: page.FetchedAt,
	}
	if err := s.enc.Encode(entry); err != nil {
		return &types.StorageError{Backend: s.Name(), Err: fmt.Errorf("encode JSONL: %w", err)}
	}
	s.count++
	return nil
}

func (s *ManifestSink) Close() error {
	s.logger.Info("manifest written", "path", s.path, "pages", s.count)
	if s.file != nil {
		return s.file.Close()
	}
	return nil
}
