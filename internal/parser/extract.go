package parser

import (
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/IshaanNene/folio/internal/types"
)

// PageExtractor pulls title, content region and next link out of a series page.
type PageExtractor struct {
	content Selector
	next    Selector
	title   Selector
	logger  *slog.Logger
}

// NewPageExtractor compiles the three selectors that drive extraction.
// titleSelector may be empty, in which case the document <title> is used.
func NewPageExtractor(contentSelector, nextSelector, titleSelector string, logger *slog.Logger) (*PageExtractor, error) {
	if titleSelector == "" {
		titleSelector = "title"
	}

	pe := &PageExtractor{logger: logger.With("component", "page_extractor")}
	for _, c := range []struct {
		dst  *Selector
		expr string
	}{
		{&pe.content, contentSelector},
		{&pe.next, nextSelector},
		{&pe.title, titleSelector},
	} {
		s, err := Compile(c.expr)
		if err != nil {
			return nil, &types.ParseError{Selector: c.expr, Err: err}
		}
		*c.dst = s
	}
	return pe, nil
}

// Extract returns the page found in resp. A missing content region is an
// ExtractionError; a missing next link just ends the series.
func (pe *PageExtractor) Extract(resp *types.Response) (*types.Page, error) {
	pageURL := resp.FinalURL
	if pageURL == "" {
		pageURL = resp.Request.URLString()
	}

	doc, err := resp.Document()
	if err != nil {
		return nil, &types.ParseError{URL: pageURL, Err: err}
	}

	content := pe.content.Select(doc.Selection).First()
	if content.Length() == 0 {
		return nil, &types.ExtractionError{
			URL:      pageURL,
			Selector: pe.content.String(),
			Err:      types.ErrNoMatch,
		}
	}

	title := strings.TrimSpace(pe.title.Select(doc.Selection).First().Text())

	var nextURL string
	if href, ok := pe.next.Select(doc.Selection).First().Attr("href"); ok {
		nextURL = ResolveNext(pageURL, href)
	}

	pe.logger.Debug("page extracted",
		"url", pageURL,
		"title", title,
		"next", nextURL,
	)

	return &types.Page{
		Title:     title,
		URL:       pageURL,
		NextURL:   nextURL,
		Sequence:  resp.Request.Sequence,
		Content:   content,
		FetchedAt: resp.FetchedAt,
	}, nil
}

// ResolveNext turns a next-link href into an absolute URL. Scheme-relative
// links ("//host/path") are pinned to http; other relative links resolve
// against the current page.
func ResolveNext(pageURL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") {
		return ""
	}
	if strings.HasPrefix(href, "//") {
		return "http:" + href
	}

	parsedHref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if parsedHref.IsAbs() {
		return parsedHref.String()
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return href
	}
	resolved := base.ResolveReference(parsedHref)
	resolved.Fragment = ""
	return resolved.String()
}

// Text returns the trimmed text of the first match of expr under root, or ""
// when nothing matches.
func Text(root *goquery.Selection, expr string) (string, error) {
	sel, err := Query(root, expr)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(sel.First().Text()), nil
}
