package storage

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/IshaanNene/folio/internal/types"
)

// pageDocument is the MongoDB representation of a page.
type pageDocument struct {
	ID        string    `bson:"_id"`
	Sequence  int       `bson:"sequence"`
	Title     string    `bson:"title"`
	URL       string    `bson:"url"`
	NextURL   string    `bson:"next_url,omitempty"`
	HTML      string    `bson:"html"`
	FetchedAt time.Time `bson:"fetched_at"`
}

// MongoSink upserts pages into a MongoDB collection keyed by page ID, so
// re-running a crawl replaces earlier copies.
type MongoSink struct {
	client     *mongo.Client
	collection *mongo.Collection
	mu         sync.Mutex
	count      int
	logger     *slog.Logger
}

// NewMongoSink connects to MongoDB and verifies the connection.
func NewMongoSink(uri, database, collection string, logger *slog.Logger) (*MongoSink, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, &types.StorageError{Backend: "mongodb", Err: fmt.Errorf("connect: %w", err)}
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, &types.StorageError{Backend: "mongodb", Err: fmt.Errorf("ping: %w", err)}
	}

	return &MongoSink{
		client:     client,
		collection: client.Database(database).Collection(collection),
		logger:     logger.With("component", "mongo_storage"),
	}, nil
}

func (s *MongoSink) Name() string { return "mongodb" }

func (s *MongoSink) Save(ctx context.Context, page *types.Page) error {
	html, err := page.Standalone()
	if err != nil {
		return &types.StorageError{Backend: s.Name(), Err: fmt.Errorf("render page: %w", err)}
	}

	doc := pageDocument{
		ID:        page.ID,
		Sequence:  page.Sequence,
		Title:     page.Title,
		URL:       page.URL,
		NextURL:   page.NextURL,
		HTML:      html,
		FetchedAt: page.FetchedAt,
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.collection.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return &types.StorageError{Backend: s.Name(), Err: fmt.Errorf("upsert: %w", err)}
	}

	s.count++
	s.logger.Debug("page stored in mongodb", "id", doc.ID, "total", s.count)
	return nil
}

func (s *MongoSink) Close() error {
	s.logger.Info("mongodb storage closing", "total_pages", s.count)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// --- Multi-Sink Fan-Out ---

// MultiSink writes pages to several backends in order. Every backend is
// tried; the first error is returned.
type MultiSink struct {
	backends []Sink
	logger   *slog.Logger
}

// NewMultiSink creates a sink that fans out to multiple backends.
func NewMultiSink(backends []Sink, logger *slog.Logger) *MultiSink {
	return &MultiSink{
		backends: backends,
		logger:   logger.With("component", "multi_storage"),
	}
}

func (s *MultiSink) Name() string { return "multi" }

func (s *MultiSink) Save(ctx context.Context, page *types.Page) error {
	var firstErr error
	for _, backend := range s.backends {
		if err := backend.Save(ctx, page); err != nil {
			s.logger.Error("backend save failed", "backend", backend.Name(), "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (s *MultiSink) Close() error {
	var firstErr error
	for _, backend := range s.backends {
		if err := backend.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
