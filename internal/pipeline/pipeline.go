package pipeline

import (
	"log/slog"

	"github.com/IshaanNene/folio/internal/types"
)

// Middleware processes a page and returns the (possibly modified) page.
// Return nil to drop the page from the pipeline.
type Middleware interface {
	// Name returns the middleware's identifier.
	Name() string

	// Process transforms a page. Return nil to drop the page.
	Process(page *types.Page) (*types.Page, error)
}

// Pipeline chains middleware processors together.
type Pipeline struct {
	middlewares []Middleware
	logger      *slog.Logger
}

// New creates a new Pipeline.
func New(logger *slog.Logger) *Pipeline {
	return &Pipeline{
		logger: logger.With("component", "pipeline"),
	}
}

// Use adds a middleware to the pipeline chain.
func (p *Pipeline) Use(mw Middleware) {
	p.middlewares = append(p.middlewares, mw)
	p.logger.Debug("middleware added", "name", mw.Name(), "position", len(p.middlewares))
}

// Process runs the page through all middleware in order.
func (p *Pipeline) Process(page *types.Page) (*types.Page, error) {
	current := page

	for _, mw := range p.middlewares {
		result, err := mw.Process(current)
		if err != nil {
			return nil, &types.PipelineError{
				Stage: mw.Name(),
				Page:  current,
				Err:   err,
			}
		}
		if result == nil {
			p.logger.Debug("page dropped", "stage", mw.Name(), "url", page.URL)
			return nil, nil
		}
		current = result
	}

	return current, nil
}

// Len returns the number of middleware in the chain.
func (p *Pipeline) Len() int {
	return len(p.middlewares)
}
