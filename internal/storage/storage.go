package storage

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/IshaanNene/folio/internal/config"
	"github.com/IshaanNene/folio/internal/types"
)

// Sink is the interface for all page storage backends.
type Sink interface {
	// Save persists one page. The page ID must already be set.
	Save(ctx context.Context, page *types.Page) error

	// Close flushes pending writes and releases resources.
	Close() error

	// Name returns the storage backend identifier.
	Name() string
}

// PageID derives a page identifier from its title: the digits found after
// the last "(" in the title, so "Lesson Twelve (12)" becomes "12". When the
// title has no "(" all of its digits are used. ok is false when no digit is
// found; the ID then falls back to the zero-padded sequence number.
func PageID(title string, sequence int) (id string, ok bool) {
	tail := title
	if i := strings.LastIndex(title, "("); i >= 0 {
		tail = title[i:]
	}

	var b strings.Builder
	for _, r := range tail {
		if unicode.IsDigit(r) && r < unicode.MaxASCII {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return fmt.Sprintf("%04d", sequence), false
	}
	return b.String(), true
}

// New builds the sinks enabled in cfg. The HTML file sink is always present;
// the manifest, SQLite and MongoDB sinks are optional. More than one sink is wrapped
// in a MultiSink.
func New(cfg *config.StorageConfig, logger *slog.Logger) (Sink, error) {
	files, err := NewFileSink(cfg.OutputPath, logger)
	if err != nil {
		return nil, err
	}
	sinks := []Sink{files}

	if cfg.Manifest {
		manifest, err := NewManifestSink(filepath.Join(cfg.OutputPath, ManifestName), logger)
		if err != nil {
			closeAll(sinks)
			return nil, err
		}
		sinks = append(sinks, manifest)
	}

	if cfg.SQLitePath != "" {
		db, err := NewSQLiteSink(cfg.SQLitePath, logger)
		if err != nil {
			closeAll(sinks)
			return nil, err
		}
		sinks = append(sinks, db)
	}

	if cfg.MongoURI != "" {
		mongo, err := NewMongoSink(cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection, logger)
		if err != nil {
			closeAll(sinks)
			return nil, err
		}
		sinks = append(sinks, mongo)
	}

	if len(sinks) == 1 {
		return files, nil
	}
	return NewMultiSink(sinks, logger), nil
}

func closeAll(sinks []Sink) {
	for _, s := range sinks {
		_ = s.Close()
	}
}
