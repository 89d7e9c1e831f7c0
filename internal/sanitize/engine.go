package sanitize

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/PuerkitoBio/goquery"

	"github.com/IshaanNene/folio/internal/observability"
	"github.com/IshaanNene/folio/internal/rules"
	"github.com/IshaanNene/folio/internal/types"
)

// Engine applies rule sets to documents. It keeps no per-document state and
// may be shared between goroutines.
type Engine struct {
	logger *slog.Logger
	stats  *observability.Stats
}

// Option configures an Engine.
type Option func(*Engine)

// WithStats makes the engine record removal counts into stats.
func WithStats(stats *observability.Stats) Option {
	return func(e *Engine) { e.stats = stats }
}

// New creates an Engine.
func New(logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		logger: logger.With("component", "sanitizer"),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.stats == nil {
		e.stats = observability.NewStats(logger)
	}
	return e
}

// Stats returns the counters the engine records into.
func (e *Engine) Stats() *observability.Stats {
	return e.stats
}

// Sanitize transforms doc according to rs. The phases run in fixed order:
// pre_remove, directives (by step), post_remove, whitelist. The returned
// document is doc itself unless a whitelist is configured, in which case it
// is a fresh projection and doc should be discarded.
func (e *Engine) Sanitize(doc *Document, rs *rules.RuleSet) (*Document, error) {
	root := doc.Selection()

	if err := e.removeAll(root, rs.PreRemove, "pre_remove"); err != nil {
		return nil, &types.RuleError{RuleSet: rs.Name, Err: err}
	}

	for _, d := range byStep(rs.Directives) {
		if err := e.apply(doc, rs, d); err != nil {
			return nil, &types.RuleError{RuleSet: rs.Name, Step: d.Step, Err: err}
		}
	}

	if err := e.removeAll(root, rs.PostRemove, "post_remove"); err != nil {
		return nil, &types.RuleError{RuleSet: rs.Name, Err: err}
	}

	if len(rs.Whitelist) == 0 {
		e.stats.DocumentsSanitized.Add(1)
		return doc, nil
	}

	projected, err := Project(doc, rs.Whitelist)
	if err != nil {
		return nil, &types.RuleError{RuleSet: rs.Name, Err: err}
	}
	e.logger.Debug("whitelist projection", "selectors", len(rs.Whitelist))
	e.stats.DocumentsSanitized.Add(1)
	return projected, nil
}

// byStep returns the directives in ascending step order. Equal steps keep
// their listed order; rs itself is not reordered.
func byStep(directives []rules.Directive) []rules.Directive {
	sorted := slices.Clone(directives)
	slices.SortStableFunc(sorted, func(a, b rules.Directive) int {
		return a.Step - b.Step
	})
	return sorted
}

// SanitizeReader parses r, applies rs and renders the result with opts.
func (e *Engine) SanitizeReader(r io.Reader, rs *rules.RuleSet, opts OutputOptions) (string, error) {
	doc, err := Parse(r)
	if err != nil {
		return "", err
	}
	out, err := e.Sanitize(doc, rs)
	if err != nil {
		return "", err
	}
	return out.Output(opts)
}

func (e *Engine) removeAll(root *goquery.Selection, selectors []string, phase string) error {
	if len(selectors) == 0 {
		return nil
	}
	counts, err := RemoveAll(root, selectors)
	if err != nil {
		return fmt.Errorf("%s: %w", phase, err)
	}

	total := 0
	for i, n := range counts {
		total += n
		if n == 0 {
			e.logger.Debug("selector matched nothing", "phase", phase, "selector", selectors[i])
		}
	}
	e.stats.ElementsRemoved.Add(int64(total))
	e.logger.Debug("removal phase done", "phase", phase, "selectors", len(selectors), "removed", total)
	return nil
}
