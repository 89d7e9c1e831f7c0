package sanitize

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/IshaanNene/folio/internal/parser"
)

const projectionShell = `<!DOCTYPE html><html><head><title></title></head><body></body></html>`

// Project builds a new document holding deep copies of every element matched
// by the whitelist, appended in selector order and then match order. Only the
// source title carries over. Overlapping selectors copy a subtree twice.
func Project(src *Document, whitelist []string) (*Document, error) {
	shell, err := goquery.NewDocumentFromReader(strings.NewReader(projectionShell))
	if err != nil {
		return nil, err
	}
	out := Wrap(shell)
	out.SetTitle(src.Title())

	body := out.Body()
	for _, expr := range whitelist {
		matches, err := parser.Query(src.Selection(), expr)
		if err != nil {
			return nil, err
		}
		body.AppendSelection(matches.Clone())
	}
	return out, nil
}
