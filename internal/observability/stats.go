package observability

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Stats tracks operational counters for crawl and sanitize runs.
type Stats struct {
	// Crawl metrics
	PagesFetched    atomic.Int64
	PagesSaved      atomic.Int64
	BytesDownloaded atomic.Int64
	FetchErrors     atomic.Int64

	// Sanitizer metrics
	DocumentsSanitized atomic.Int64
	ElementsRemoved    atomic.Int64

	logger *slog.Logger
}

// NewStats creates a new Stats instance.
func NewStats(logger *slog.Logger) *Stats {
	return &Stats{
		logger: logger.With("component", "stats"),
	}
}

// ServeHTTP serves the counters in Prometheus text exposition format.
func (s *Stats) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	metrics := []struct {
		name  string
		help  string
		value int64
	}{
		{"folio_pages_fetched_total", "Total pages fetched", s.PagesFetched.Load()},
		{"folio_pages_saved_total", "Total pages persisted", s.PagesSaved.Load()},
		{"folio_bytes_downloaded_total", "Total bytes downloaded", s.BytesDownloaded.Load()},
		{"folio_fetch_errors_total", "Total failed fetches", s.FetchErrors.Load()},
		{"folio_documents_sanitized_total", "Total documents run through a rule set", s.DocumentsSanitized.Load()},
		{"folio_elements_removed_total", "Total elements removed by selector rules", s.ElementsRemoved.Load()},
	}

	for _, metric := range metrics {
		fmt.Fprintf(w, "# HELP %s %s\n", metric.name, metric.help)
		fmt.Fprintf(w, "# TYPE %s counter\n", metric.name)
		fmt.Fprintf(w, "%s %d\n", metric.name, metric.value)
	}
}

// Router returns the metrics handler mounted at path, plus a /health probe.
func (s *Stats) Router(path string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Method(http.MethodGet, path, s)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
	})
	return r
}

// StartServer starts the metrics HTTP server in the background.
func (s *Stats) StartServer(port int, path string) error {
	addr := fmt.Sprintf(":%d", port)
	s.logger.Info("metrics server starting", "addr", addr, "path", path)

	go func() {
		if err := http.ListenAndServe(addr, s.Router(path)); err != nil {
			s.logger.Error("metrics server error", "error", err)
		}
	}()

	return nil
}

// Snapshot returns all counters as a map.
func (s *Stats) Snapshot() map[string]int64 {
	return map[string]int64{
		"pages_fetched":       s.PagesFetched.Load(),
		"pages_saved":         s.PagesSaved.Load(),
		"bytes_downloaded":    s.BytesDownloaded.Load(),
		"fetch_errors":        s.FetchErrors.Load(),
		"documents_sanitized": s.DocumentsSanitized.Load(),
		"elements_removed":    s.ElementsRemoved.Load(),
	}
}
