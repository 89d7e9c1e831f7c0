package types

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Page is one extracted page of a series on its way to storage.
type Page struct {
	// ID names the page on disk, derived from the title.
	ID string

	// Title is the page title as shown in <title>.
	Title string

	// URL is the page the content came from.
	URL string

	// NextURL is the absolute URL of the following page, empty on the last one.
	NextURL string

	// Sequence is the 1-based position of the page in the crawl.
	Sequence int

	// Content is the extracted content element. Its children become the body
	// of the stored document.
	Content *goquery.Selection

	// FetchedAt is when the page was downloaded.
	FetchedAt time.Time
}

// InnerHTML renders the children of the content element.
func (p *Page) InnerHTML() (string, error) {
	if p.Content == nil || p.Content.Length() == 0 {
		return "", nil
	}
	inner, err := p.Content.Html()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(inner), nil
}

// Standalone wraps the content in a minimal HTML document.
func (p *Page) Standalone() (string, error) {
	inner, err := p.InnerHTML()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`<!doctype html>
<html>
  <head>
    <title>%s</title>
  </head>
  <body>
    %s
  </body>
</html>
`, html.EscapeString(p.Title), inner), nil
}
