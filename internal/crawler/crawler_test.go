package crawler

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/folio/internal/config"
	"github.com/IshaanNene/folio/internal/fetcher"
	"github.com/IshaanNene/folio/internal/rules"
	"github.com/IshaanNene/folio/internal/storage"
	"github.com/IshaanNene/folio/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

// seriesPage renders a page shaped like the default crawl target.
func seriesPage(title, body, next string) string {
	link := ""
	if next != "" {
		link = fmt.Sprintf(`<a title="Next Article" href="%s">Next</a>`, next)
	}
	return fmt.Sprintf(`<html><head><title>%s</title></head><body>
<div class="cs-single-post-content"><div>%s</div></div>
<nav>%s</nav>
</body></html>`, title, body, link)
}

func newSeries(t *testing.T, pages map[string]func(host string) string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		render, ok := pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, render(r.Host))
	}))
	t.Cleanup(srv.Close)
	return srv
}

type harness struct {
	crawler *Crawler
	outDir  string
}

func newHarness(t *testing.T, mutate func(*config.Config), rs *rules.RuleSet, wrap func(storage.Sink) storage.Sink) *harness {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Crawler.PolitenessDelay = 0
	cfg.Storage.OutputPath = filepath.Join(t.TempDir(), "output")
	if mutate != nil {
		mutate(cfg)
	}

	f, err := fetcher.NewHTTPFetcher(cfg, testLogger)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })

	sink, err := storage.New(&cfg.Storage, testLogger)
	require.NoError(t, err)
	t.Cleanup(func() { sink.Close() })
	if wrap != nil {
		sink = wrap(sink)
	}

	p := NewPipeline(&cfg.Crawler, rs, nil, testLogger)
	c, err := New(&cfg.Crawler, f, p, sink, nil, testLogger)
	require.NoError(t, err)
	return &harness{crawler: c, outDir: cfg.Storage.OutputPath}
}

func (h *harness) read(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(h.outDir, name))
	require.NoError(t, err)
	return string(data)
}

func threePageSeries() map[string]func(string) string {
	return map[string]func(string) string{
		"/article1.html": func(host string) string {
			return seriesPage("Lesson One (1)",
				`<p>first</p><img data-src="https://stats.wordpress.com/b.gif?v=1"><img data-src="https://cdn.example.com/one.png"><br>`,
				"//"+host+"/article2.html")
		},
		"/article2.html": func(string) string {
			return seriesPage("Lesson Two (2)", `<p>second</p>`, "article3.html")
		},
		"/article3.html": func(string) string {
			return seriesPage("Lesson Three (3)", `<p>third</p>`, "")
		},
	}
}

func TestCrawlSeries(t *testing.T) {
	srv := newSeries(t, threePageSeries())
	h := newHarness(t, nil, nil, nil)

	summary, err := h.crawler.Run(context.Background(), srv.URL+"/article1.html")
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Pages)
	assert.Equal(t, "1", summary.FirstID)
	assert.Equal(t, "3", summary.LastID)
	assert.Equal(t, srv.URL+"/article3.html", summary.LastURL)
	assert.Equal(t, StateDone, h.crawler.State())

	first := h.read(t, "1.html")
	assert.True(t, strings.HasPrefix(first, "<!doctype html>"))
	assert.Contains(t, first, "<title>Lesson One (1)</title>")
	assert.Contains(t, first, "<p>first</p>")
	assert.Contains(t, first, "cdn.example.com/one.png")
	assert.NotContains(t, first, "stats.wordpress.com")
	assert.NotContains(t, first, "<br")

	assert.Contains(t, h.read(t, "2.html"), "<p>second</p>")
	assert.Contains(t, h.read(t, "3.html"), "<p>third</p>")

	snap := h.crawler.Stats().Snapshot()
	assert.Equal(t, int64(3), snap["pages_fetched"])
	assert.Equal(t, int64(3), snap["pages_saved"])
}

func TestCrawlMaxPages(t *testing.T) {
	srv := newSeries(t, threePageSeries())
	h := newHarness(t, func(cfg *config.Config) { cfg.Crawler.MaxPages = 2 }, nil, nil)

	summary, err := h.crawler.Run(context.Background(), srv.URL+"/article1.html")
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Pages)

	_, err = os.Stat(filepath.Join(h.outDir, "3.html"))
	assert.True(t, os.IsNotExist(err))
}

func TestCrawlMissingContentIsFatal(t *testing.T) {
	srv := newSeries(t, map[string]func(string) string{
		"/article1.html": func(string) string {
			return seriesPage("Lesson One (1)", `<p>first</p>`, "article2.html")
		},
		"/article2.html": func(string) string {
			return `<html><head><title>Moved (2)</title></head><body><p>gone</p></body></html>`
		},
	})
	h := newHarness(t, nil, nil, nil)

	summary, err := h.crawler.Run(context.Background(), srv.URL+"/article1.html")
	require.Error(t, err)
	assert.Equal(t, 1, summary.Pages)

	var ee *types.ExtractionError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, "div.cs-single-post-content > div", ee.Selector)
	assert.True(t, errors.Is(err, types.ErrNoMatch))
}

func TestCrawlFetchErrorIsFatal(t *testing.T) {
	srv := newSeries(t, map[string]func(string) string{
		"/article1.html": func(string) string {
			return seriesPage("Lesson One (1)", `<p>first</p>`, "missing.html")
		},
	})
	h := newHarness(t, nil, nil, nil)

	_, err := h.crawler.Run(context.Background(), srv.URL+"/article1.html")
	var fe *types.FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, http.StatusNotFound, fe.StatusCode)
}

func TestCrawlStopsOnCycle(t *testing.T) {
	srv := newSeries(t, map[string]func(string) string{
		"/article1.html": func(string) string {
			return seriesPage("Lesson One (1)", `<p>first</p>`, "article2.html")
		},
		"/article2.html": func(string) string {
			return seriesPage("Lesson Two (2)", `<p>second</p>`, "article1.html")
		},
	})
	h := newHarness(t, nil, nil, nil)

	summary, err := h.crawler.Run(context.Background(), srv.URL+"/article1.html")
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Pages)
}

func TestCrawlTitleWithoutNumber(t *testing.T) {
	srv := newSeries(t, map[string]func(string) string{
		"/only.html": func(string) string {
			return seriesPage("Preface", `<p>intro</p>`, "")
		},
	})
	h := newHarness(t, nil, nil, nil)

	summary, err := h.crawler.Run(context.Background(), srv.URL+"/only.html")
	require.NoError(t, err)
	assert.Equal(t, "0001", summary.LastID)
	assert.Contains(t, h.read(t, "0001.html"), "<p>intro</p>")
}

func TestCrawlWithRuleSet(t *testing.T) {
	srv := newSeries(t, map[string]func(string) string{
		"/article1.html": func(string) string {
			return seriesPage("Lesson One (1)",
				`<h2 class="heading">One</h2><p style="color:red">first <a href="/x">link</a></p><script>x()</script>`, "")
		},
	})
	rs := &rules.RuleSet{
		Name:      "crawl",
		PreRemove: []string{"script"},
		Directives: []rules.Directive{
			{Step: 1, Type: rules.ExtractTitle, Selector: "h2.heading"},
			{Step: 2, Type: rules.FlattenLinks},
			{Step: 3, Type: rules.StripAttributes},
			{Step: 4, Type: rules.NormalizeHeading},
		},
	}
	h := newHarness(t, nil, rs, nil)

	summary, err := h.crawler.Run(context.Background(), srv.URL+"/article1.html")
	require.NoError(t, err)
	// The sanitized title has no page number, so the ID falls back.
	assert.Equal(t, "0001", summary.LastID)

	out := h.read(t, "0001.html")
	assert.Contains(t, out, "<title>One</title>")
	assert.Contains(t, out, "<h1>One</h1>")
	assert.Contains(t, out, "<p>first link</p>")
	assert.NotContains(t, out, "<script")
	assert.NotContains(t, out, "style=")
}

type cancelOnSave struct {
	storage.Sink
	cancel context.CancelFunc
}

func (s *cancelOnSave) Save(ctx context.Context, p *types.Page) error {
	err := s.Sink.Save(ctx, p)
	s.cancel()
	return err
}

func TestCrawlCancelDuringDelay(t *testing.T) {
	srv := newSeries(t, threePageSeries())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := newHarness(t,
		func(cfg *config.Config) { cfg.Crawler.PolitenessDelay = 24 * time.Hour },
		nil,
		func(s storage.Sink) storage.Sink { return &cancelOnSave{Sink: s, cancel: cancel} },
	)

	summary, err := h.crawler.Run(ctx, srv.URL+"/article1.html")
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrCrawlStopped))
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 1, summary.Pages)
}

func TestCrawlInvalidStartURL(t *testing.T) {
	h := newHarness(t, nil, nil, nil)
	_, err := h.crawler.Run(context.Background(), "http://[::1")
	assert.True(t, errors.Is(err, types.ErrInvalidURL))
}

func TestCrawlLogsSavedPages(t *testing.T) {
	srv := newSeries(t, threePageSeries())

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg := config.DefaultConfig()
	cfg.Crawler.PolitenessDelay = 0
	cfg.Storage.OutputPath = filepath.Join(t.TempDir(), "output")

	f, err := fetcher.NewHTTPFetcher(cfg, testLogger)
	require.NoError(t, err)
	defer f.Close()
	sink, err := storage.New(&cfg.Storage, testLogger)
	require.NoError(t, err)
	defer sink.Close()

	c, err := New(&cfg.Crawler, f, NewPipeline(&cfg.Crawler, nil, nil, testLogger), sink, nil, logger)
	require.NoError(t, err)
	_, err = c.Run(context.Background(), srv.URL+"/article1.html")
	require.NoError(t, err)

	var titles []string
	sc := bufio.NewScanner(&buf)
	for sc.Scan() {
		var entry map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &entry))
		if entry["msg"] == "saving page" {
			assert.Equal(t, "crawler", entry["component"])
			titles = append(titles, entry["title"].(string))
		}
	}
	assert.Equal(t, []string{"Lesson One (1)", "Lesson Two (2)", "Lesson Three (3)"}, titles)
}
