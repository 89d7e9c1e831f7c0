package sanitize

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/IshaanNene/folio/internal/parser"
	"github.com/IshaanNene/folio/internal/rules"
)

// RemoveAll removes every element matched by each selector, one selector at a
// time and in list order. A later selector sees the document as left by the
// earlier ones. The returned slice holds the per-selector removal counts.
func RemoveAll(root *goquery.Selection, selectors []string) ([]int, error) {
	counts := make([]int, len(selectors))
	for i, expr := range selectors {
		matches, err := parser.Query(root, expr)
		if err != nil {
			return counts, err
		}
		counts[i] = matches.Length()
		matches.Remove()
	}
	return counts, nil
}

// RemoveMatching applies one removal spec to every element it selects and
// returns how many elements matched the selector and how many were removed.
func RemoveMatching(root *goquery.Selection, spec rules.RemovalSpec) (matched, removed int, err error) {
	matches, err := parser.Query(root, spec.Selector)
	if err != nil {
		return 0, 0, err
	}

	matched = matches.Length()
	if !spec.Conditional() {
		matches.Remove()
		return matched, matched, nil
	}

	matches.Each(func(_ int, s *goquery.Selection) {
		if v, ok := s.Attr(spec.Attribute); ok && strings.Contains(v, spec.Contains) {
			s.Remove()
			removed++
		}
	})
	return matched, removed, nil
}
