// Package crawler walks a paginated series one page at a time by following
// each page's next link until a page has none.
package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/IshaanNene/folio/internal/config"
	"github.com/IshaanNene/folio/internal/fetcher"
	"github.com/IshaanNene/folio/internal/observability"
	"github.com/IshaanNene/folio/internal/parser"
	"github.com/IshaanNene/folio/internal/pipeline"
	"github.com/IshaanNene/folio/internal/rules"
	"github.com/IshaanNene/folio/internal/sanitize"
	"github.com/IshaanNene/folio/internal/storage"
	"github.com/IshaanNene/folio/internal/types"
)

// State represents the crawler's current lifecycle state.
type State int32

const (
	StateIdle     State = 0
	StateFetching State = 1
	StateDone     State = 2
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// Summary describes a finished crawl.
type Summary struct {
	Pages    int
	FirstID  string
	LastID   string
	LastURL  string
	Duration time.Duration
}

// Crawler runs one series crawl at a time. It is not safe for concurrent
// use of Run.
type Crawler struct {
	cfg       *config.CrawlerConfig
	fetcher   fetcher.Fetcher
	extractor *parser.PageExtractor
	pipeline  *pipeline.Pipeline
	sink      storage.Sink
	stats     *observability.Stats
	logger    *slog.Logger

	state atomic.Int32
}

// New wires a crawler from its parts. The pipeline may be nil, in which case
// pages are stored exactly as extracted.
func New(
	cfg *config.CrawlerConfig,
	f fetcher.Fetcher,
	p *pipeline.Pipeline,
	sink storage.Sink,
	stats *observability.Stats,
	logger *slog.Logger,
) (*Crawler, error) {
	extractor, err := parser.NewPageExtractor(cfg.ContentSelector, cfg.NextSelector, cfg.TitleSelector, logger)
	if err != nil {
		return nil, err
	}
	if stats == nil {
		stats = observability.NewStats(logger)
	}
	if p == nil {
		p = pipeline.New(logger)
	}

	return &Crawler{
		cfg:       cfg,
		fetcher:   f,
		extractor: extractor,
		pipeline:  p,
		sink:      sink,
		stats:     stats,
		logger:    logger.With("component", "crawler"),
	}, nil
}

// NewPipeline builds the per-page chain used by the crawler: revisit
// detection, removal specs, the trailing break strip and, when rs is not
// nil, a sanitizer pass.
func NewPipeline(cfg *config.CrawlerConfig, rs *rules.RuleSet, stats *observability.Stats, logger *slog.Logger) *pipeline.Pipeline {
	p := pipeline.New(logger)
	p.Use(pipeline.NewDedupMiddleware())
	p.Use(pipeline.NewRemovalMiddleware(cfg.RemovalSpecs, logger))
	p.Use(&pipeline.TrailingBreakMiddleware{})
	if rs != nil {
		engine := sanitize.New(logger, sanitize.WithStats(stats))
		p.Use(pipeline.NewSanitizeMiddleware(engine, rs))
	}
	return p
}

// State returns the current lifecycle state.
func (c *Crawler) State() State {
	return State(c.state.Load())
}

// Stats returns the crawl counters.
func (c *Crawler) Stats() *observability.Stats {
	return c.stats
}

// Run crawls the series starting at startURL. Any fetch, extraction,
// pipeline or storage failure aborts the crawl. Cancelling ctx stops the
// crawl between pages; the returned error then wraps ErrCrawlStopped and
// the summary covers the pages saved so far.
func (c *Crawler) Run(ctx context.Context, startURL string) (summary Summary, err error) {
	start := time.Now()

	defer func() {
		summary.Duration = time.Since(start)
		c.state.Store(int32(StateDone))
	}()

	req, err := types.NewRequest(startURL)
	if err != nil {
		return summary, fmt.Errorf("%w: %v", types.ErrInvalidURL, err)
	}

	c.state.Store(int32(StateFetching))
	c.logger.Info("crawl starting",
		"start_url", startURL,
		"fetcher", c.fetcher.Type(),
		"delay", c.cfg.PolitenessDelay,
		"max_pages", c.cfg.MaxPages,
	)

	for {
		page, err := c.step(ctx, req)
		if err != nil {
			if ctx.Err() != nil {
				return summary, c.stopped(ctx, summary)
			}
			return summary, err
		}
		if page == nil {
			c.logger.Warn("series links back to a visited page, stopping", "url", req.URLString())
			break
		}

		summary.Pages++
		summary.LastID = page.ID
		summary.LastURL = page.URL
		if summary.FirstID == "" {
			summary.FirstID = page.ID
		}

		if page.NextURL == "" {
			c.logger.Debug("no next link", "url", page.URL)
			break
		}
		if c.cfg.MaxPages > 0 && summary.Pages >= c.cfg.MaxPages {
			c.logger.Info("page limit reached", "max_pages", c.cfg.MaxPages)
			break
		}

		if err := c.wait(ctx); err != nil {
			return summary, c.stopped(ctx, summary)
		}

		req, err = req.Next(page.NextURL)
		if err != nil {
			return summary, fmt.Errorf("%w: %v", types.ErrInvalidURL, err)
		}
	}

	c.logger.Info("crawl finished", "pages", summary.Pages, "stats", c.stats.Snapshot())
	return summary, nil
}

// step fetches, extracts, processes and stores a single page. A nil page
// with a nil error means the pipeline dropped it.
func (c *Crawler) step(ctx context.Context, req *types.Request) (*types.Page, error) {
	resp, err := c.fetcher.Fetch(ctx, req)
	if err != nil {
		c.stats.FetchErrors.Add(1)
		return nil, err
	}
	c.stats.PagesFetched.Add(1)
	c.stats.BytesDownloaded.Add(int64(len(resp.Body)))

	page, err := c.extractor.Extract(resp)
	if err != nil {
		return nil, err
	}

	page, err = c.pipeline.Process(page)
	if err != nil || page == nil {
		return nil, err
	}

	id, ok := storage.PageID(page.Title, page.Sequence)
	if !ok {
		c.logger.Warn("no page number in title, using sequence", "title", page.Title, "id", id)
	}
	page.ID = id

	c.logger.Info("saving page", "title", page.Title, "id", page.ID, "url", page.URL)
	if err := c.sink.Save(ctx, page); err != nil {
		return nil, err
	}
	c.stats.PagesSaved.Add(1)
	return page, nil
}

// wait sleeps for the politeness delay or until ctx is cancelled.
func (c *Crawler) wait(ctx context.Context) error {
	if c.cfg.PolitenessDelay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(c.cfg.PolitenessDelay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *Crawler) stopped(ctx context.Context, summary Summary) error {
	c.logger.Info("crawl interrupted", "pages", summary.Pages, "last_url", summary.LastURL)
	return fmt.Errorf("%w: %w", types.ErrCrawlStopped, context.Cause(ctx))
}
