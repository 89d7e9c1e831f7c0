package pipeline

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"

	"github.com/IshaanNene/folio/internal/rules"
	"github.com/IshaanNene/folio/internal/sanitize"
	"github.com/IshaanNene/folio/internal/types"
)

// RemovalMiddleware applies the crawler's removal specs to the page content.
// A spec that matches nothing is reported and skipped.
type RemovalMiddleware struct {
	specs  []rules.RemovalSpec
	logger *slog.Logger
}

func NewRemovalMiddleware(specs []rules.RemovalSpec, logger *slog.Logger) *RemovalMiddleware {
	return &RemovalMiddleware{
		specs:  specs,
		logger: logger.With("component", "removal"),
	}
}

func (m *RemovalMiddleware) Name() string { return "removal" }

func (m *RemovalMiddleware) Process(page *types.Page) (*types.Page, error) {
	for _, spec := range m.specs {
		matched, removed, err := sanitize.RemoveMatching(page.Content, spec)
		if err != nil {
			return nil, err
		}
		if matched == 0 {
			m.logger.Warn("element to remove not found",
				"url", page.URL,
				"selector", spec.Selector,
				"attribute", spec.Attribute,
				"contains", spec.Contains,
			)
			continue
		}
		m.logger.Debug("removed elements", "selector", spec.Selector, "matched", matched, "removed", removed)
	}
	return page, nil
}

// TrailingBreakMiddleware drops a <br> that is the last element child of the
// content element.
type TrailingBreakMiddleware struct{}

func (m *TrailingBreakMiddleware) Name() string { return "trailing_break" }

func (m *TrailingBreakMiddleware) Process(page *types.Page) (*types.Page, error) {
	last := page.Content.Children().Last()
	if goquery.NodeName(last) == "br" {
		last.Remove()
	}
	return page, nil
}

// SanitizeMiddleware runs a rule set over the page rendered as a standalone
// document. The sanitized body replaces the content and the sanitized title
// replaces the page title.
type SanitizeMiddleware struct {
	engine *sanitize.Engine
	rules  *rules.RuleSet
}

func NewSanitizeMiddleware(engine *sanitize.Engine, rs *rules.RuleSet) *SanitizeMiddleware {
	return &SanitizeMiddleware{engine: engine, rules: rs}
}

func (m *SanitizeMiddleware) Name() string { return "sanitize:" + m.rules.Name }

func (m *SanitizeMiddleware) Process(page *types.Page) (*types.Page, error) {
	standalone, err := page.Standalone()
	if err != nil {
		return nil, fmt.Errorf("render page: %w", err)
	}

	doc, err := sanitize.ParseString(standalone)
	if err != nil {
		return nil, err
	}

	out, err := m.engine.Sanitize(doc, m.rules)
	if err != nil {
		return nil, err
	}

	page.Content = out.Body()
	page.Title = out.Title()
	return page, nil
}

// DedupMiddleware drops pages whose URL was already seen, which stops a
// series whose last page links back to an earlier one.
type DedupMiddleware struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewDedupMiddleware() *DedupMiddleware {
	return &DedupMiddleware{seen: make(map[string]struct{})}
}

func (m *DedupMiddleware) Name() string { return "dedup" }

func (m *DedupMiddleware) Process(page *types.Page) (*types.Page, error) {
	key := CanonicalizeURL(page.URL)

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.seen[key]; exists {
		return nil, nil
	}
	m.seen[key] = struct{}{}
	return page, nil
}

// CanonicalizeURL normalizes a URL for deduplication: scheme and host are
// lowercased, default ports and the fragment are dropped, and a trailing
// slash is removed from any path other than "/".
func CanonicalizeURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	port := u.Port()
	if (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443") {
		u.Host = u.Hostname()
	}

	if u.Path != "/" && strings.HasSuffix(u.Path, "/") {
		u.Path = strings.TrimRight(u.Path, "/")
	}
	if u.Path == "" {
		u.Path = "/"
	}
	return u.String()
}
