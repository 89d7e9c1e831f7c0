// Package folio provides a public SDK for embedding the series crawler and the
// rule-driven sanitizer as a library.
//
// Example usage:
//
//	c, err := folio.NewCrawler(
//	    folio.WithStartURL("https://example.com/series/article1.html"),
//	    folio.WithSelectors("div.post > div", `a[rel="next"]`),
//	    folio.WithRulesFile("rulesets/maincontent.yaml"),
//	    folio.WithOutput("./book"),
//	)
//	if err != nil {
//	    return err
//	}
//	defer c.Close()
//	summary, err := c.Run(ctx)
//
// Cleaning a single page:
//
//	html, err := folio.CleanString(page, folio.WithCleanRules(rulesYAML))
package folio

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/IshaanNene/folio/internal/config"
	"github.com/IshaanNene/folio/internal/crawler"
	"github.com/IshaanNene/folio/internal/fetcher"
	"github.com/IshaanNene/folio/internal/observability"
	"github.com/IshaanNene/folio/internal/rules"
	"github.com/IshaanNene/folio/internal/sanitize"
	"github.com/IshaanNene/folio/internal/storage"
)

// Summary describes a finished crawl.
type Summary = crawler.Summary

// Option configures a Crawler.
type Option func(*config.Config)

// WithStartURL sets the first page of the series.
func WithStartURL(u string) Option {
	return func(c *config.Config) { c.Crawler.StartURL = u }
}

// WithSelectors sets the content region and next link selectors.
func WithSelectors(content, next string) Option {
	return func(c *config.Config) {
		c.Crawler.ContentSelector = content
		c.Crawler.NextSelector = next
	}
}

// WithTitleSelector sets where the page title is read from.
func WithTitleSelector(sel string) Option {
	return func(c *config.Config) { c.Crawler.TitleSelector = sel }
}

// WithDelay sets the politeness delay between pages.
func WithDelay(d time.Duration) Option {
	return func(c *config.Config) { c.Crawler.PolitenessDelay = d }
}

// WithMaxPages stops the crawl after n pages.
func WithMaxPages(n int) Option {
	return func(c *config.Config) { c.Crawler.MaxPages = n }
}

// WithOutput sets the output directory.
func WithOutput(path string) Option {
	return func(c *config.Config) { c.Storage.OutputPath = path }
}

// WithManifest also writes a JSONL manifest of the saved pages.
func WithManifest() Option {
	return func(c *config.Config) { c.Storage.Manifest = true }
}

// WithSQLite also stores pages in the SQLite database at path.
func WithSQLite(path string) Option {
	return func(c *config.Config) { c.Storage.SQLitePath = path }
}

// WithRulesFile runs the rule set in path over every page.
func WithRulesFile(path string) Option {
	return func(c *config.Config) { c.Crawler.RulesetPath = path }
}

// WithBrowser fetches pages with a headless browser.
func WithBrowser(stealth bool) Option {
	return func(c *config.Config) {
		c.Fetcher.Type = "browser"
		c.Fetcher.Stealth = stealth
	}
}

// WithUserAgent sets a custom User-Agent.
func WithUserAgent(ua string) Option {
	return func(c *config.Config) { c.Fetcher.UserAgent = ua }
}

// WithVerbose enables debug-level logging.
func WithVerbose() Option {
	return func(c *config.Config) { c.Logging.Level = "debug" }
}

// Crawler is the high-level API for crawling a series as a library.
type Crawler struct {
	cfg     *config.Config
	crawler *crawler.Crawler
	fetcher fetcher.Fetcher
	sink    storage.Sink
	stats   *observability.Stats
	logger  *slog.Logger
}

// NewCrawler creates a Crawler from the compiled-in defaults and opts.
func NewCrawler(opts ...Option) (*Crawler, error) {
	cfg := config.DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	logger := config.NewLogger(cfg.Logging, false, os.Stderr)

	var rs *rules.RuleSet
	if cfg.Crawler.RulesetPath != "" {
		var err error
		if rs, err = rules.Load(cfg.Crawler.RulesetPath); err != nil {
			return nil, err
		}
	}

	f, err := fetcher.New(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("create fetcher: %w", err)
	}
	sink, err := storage.New(&cfg.Storage, logger)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create storage: %w", err)
	}

	stats := observability.NewStats(logger)
	c, err := crawler.New(&cfg.Crawler, f, crawler.NewPipeline(&cfg.Crawler, rs, stats, logger), sink, stats, logger)
	if err != nil {
		sink.Close()
		f.Close()
		return nil, err
	}

	return &Crawler{
		cfg:     cfg,
		crawler: c,
		fetcher: f,
		sink:    sink,
		stats:   stats,
		logger:  logger,
	}, nil
}

// Run crawls the configured series until it ends or ctx is cancelled.
func (c *Crawler) Run(ctx context.Context) (Summary, error) {
	return c.crawler.Run(ctx, c.cfg.Crawler.StartURL)
}

// Stats returns crawl statistics.
func (c *Crawler) Stats() map[string]int64 {
	return c.stats.Snapshot()
}

// Close flushes storage and releases the fetcher.
func (c *Crawler) Close() error {
	serr := c.sink.Close()
	ferr := c.fetcher.Close()
	if serr != nil {
		return serr
	}
	return ferr
}

// CleanOption configures Clean.
type CleanOption func(*cleanSettings) error

type cleanSettings struct {
	rules  *rules.RuleSet
	output sanitize.OutputOptions
}

// WithCleanRules uses the YAML rule set in data instead of the built-in one.
func WithCleanRules(data []byte) CleanOption {
	return func(s *cleanSettings) error {
		rs, err := rules.Parse(data)
		if err != nil {
			return err
		}
		s.rules = rs
		return nil
	}
}

// WithCleanRulesFile loads the rule set from path.
func WithCleanRulesFile(path string) CleanOption {
	return func(s *cleanSettings) error {
		rs, err := rules.Load(path)
		if err != nil {
			return err
		}
		s.rules = rs
		return nil
	}
}

// WithMarkdown renders the result as Markdown.
func WithMarkdown() CleanOption {
	return func(s *cleanSettings) error {
		s.output.Format = sanitize.FormatMarkdown
		return nil
	}
}

// WithPretty indents HTML output.
func WithPretty() CleanOption {
	return func(s *cleanSettings) error {
		s.output.Pretty = true
		return nil
	}
}

// WithPolicy adds a final "ugc" or "strict" sanitizing pass.
func WithPolicy(p string) CleanOption {
	return func(s *cleanSettings) error {
		s.output.Policy = sanitize.Policy(p)
		return nil
	}
}

// Clean applies a rule set to the HTML document read from r.
func Clean(r io.Reader, opts ...CleanOption) (string, error) {
	settings := &cleanSettings{rules: rules.Default()}
	for _, opt := range opts {
		if err := opt(settings); err != nil {
			return "", err
		}
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	return sanitize.New(logger).SanitizeReader(r, settings.rules, settings.output)
}

// CleanString is a convenience wrapper around Clean.
func CleanString(html string, opts ...CleanOption) (string, error) {
	return Clean(strings.NewReader(html), opts...)
}
