package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure modes.
var (
	ErrUsage         = errors.New("wrong number of arguments")
	ErrEmptyResponse = errors.New("empty response body")
	ErrInvalidURL    = errors.New("invalid URL")
	ErrNoMatch       = errors.New("selector matched nothing")
	ErrCrawlStopped  = errors.New("crawl has been stopped")
)

// UsageError reports a command invoked with missing or surplus arguments.
type UsageError struct {
	Want int
	Got  int
}

func (e *UsageError) Error() string {
	return fmt.Sprintf("expected %d arguments, got %d", e.Want, e.Got)
}

func (e *UsageError) Unwrap() error { return ErrUsage }

// FetchError wraps errors that occur during fetching. A failed fetch ends the
// crawl; nothing is retried.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetch error for %s (status %d): %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch error for %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ExtractionError is returned when a required selector finds nothing on a page.
type ExtractionError struct {
	URL      string
	Selector string
	Err      error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction error for %s (selector=%q): %v", e.URL, e.Selector, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// ParseError wraps errors that occur while parsing markup or selectors.
type ParseError struct {
	URL      string
	Selector string
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error for %s (selector=%q): %v", e.URL, e.Selector, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// RuleError reports an invalid rule set. Step is zero for errors outside the
// directive list.
type RuleError struct {
	RuleSet string
	Step    int
	Err     error
}

func (e *RuleError) Error() string {
	if e.Step > 0 {
		return fmt.Sprintf("rule set %q step %d: %v", e.RuleSet, e.Step, e.Err)
	}
	return fmt.Sprintf("rule set %q: %v", e.RuleSet, e.Err)
}

func (e *RuleError) Unwrap() error { return e.Err }

// StorageError wraps errors that occur while persisting pages.
type StorageError struct {
	Backend string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error (%s): %v", e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// PipelineError wraps errors that occur in the page pipeline.
type PipelineError struct {
	Stage string
	Page  *Page
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("pipeline error at stage %q: %v", e.Stage, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }
