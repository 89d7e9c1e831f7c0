package observability

import (
	"log/slog"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func TestStatsServeHTTP(t *testing.T) {
	s := NewStats(testLogger)
	s.PagesSaved.Add(3)
	s.ElementsRemoved.Add(11)

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	for _, want := range []string{
		"folio_pages_saved_total 3",
		"folio_elements_removed_total 11",
		"# TYPE folio_pages_fetched_total counter",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q:\n%s", want, body)
		}
	}
}

func TestStatsSnapshot(t *testing.T) {
	s := NewStats(testLogger)
	s.PagesFetched.Add(2)
	s.BytesDownloaded.Add(512)

	snap := s.Snapshot()
	if snap["pages_fetched"] != 2 {
		t.Errorf("expected 2 pages fetched, got %d", snap["pages_fetched"])
	}
	if snap["bytes_downloaded"] != 512 {
		t.Errorf("expected 512 bytes, got %d", snap["bytes_downloaded"])
	}
	for _, key := range []string{
		"pages_fetched", "pages_saved", "bytes_downloaded",
		"fetch_errors", "documents_sanitized", "elements_removed",
	} {
		if _, ok := snap[key]; !ok {
			t.Errorf("snapshot missing %q", key)
		}
	}
	if len(snap) != 6 {
		t.Errorf("expected 6 counters, got %d", len(snap))
	}
}

func TestStatsRouter(t *testing.T) {
	s := NewStats(testLogger)
	s.FetchErrors.Add(1)
	h := s.Router("/metrics")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 200 || !strings.Contains(rec.Body.String(), "folio_fetch_errors_total 1") {
		t.Errorf("unexpected metrics response %d:\n%s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))
	if rec.Body.String() != "ok" {
		t.Errorf("health returned %q", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("POST", "/metrics", nil))
	if rec.Code != 405 {
		t.Errorf("POST /metrics returned %d, want 405", rec.Code)
	}
}
