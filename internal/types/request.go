package types

import (
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Request represents a single page fetch issued by the crawler.
type Request struct {
	// URL is the target URL to fetch.
	URL *url.URL

	// Method is the HTTP method. Defaults to GET.
	Method string

	// Headers are custom HTTP headers to send with the request.
	Headers http.Header

	// Sequence is the 1-based position of this page in the series.
	Sequence int

	// ParentURL tracks which page linked to this one.
	ParentURL string

	// Meta stores arbitrary metadata attached to this request.
	Meta map[string]any

	// CreatedAt is when this request was created.
	CreatedAt time.Time
}

// NewRequest creates a new Request with sensible defaults.
func NewRequest(rawURL string) (*Request, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}

	return &Request{
		URL:       u,
		Method:    http.MethodGet,
		Headers:   make(http.Header),
		Sequence:  1,
		Meta:      make(map[string]any),
		CreatedAt: time.Now(),
	}, nil
}

// URLString returns the string representation of the request URL.
func (r *Request) URLString() string {
	if r.URL == nil {
		return ""
	}
	return r.URL.String()
}

// Domain returns the hostname of the request URL.
func (r *Request) Domain() string {
	if r.URL == nil {
		return ""
	}
	return r.URL.Hostname()
}

// Next derives the request for the following page in the series.
func (r *Request) Next(rawURL string) (*Request, error) {
	next, err := NewRequest(rawURL)
	if err != nil {
		return nil, err
	}
	next.Sequence = r.Sequence + 1
	next.ParentURL = r.URLString()
	next.Headers = r.Headers.Clone()
	return next, nil
}
