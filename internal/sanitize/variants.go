package sanitize

import (
	"github.com/PuerkitoBio/goquery"

	"github.com/IshaanNene/folio/internal/parser"
	"github.com/IshaanNene/folio/internal/rules"
)

// PruneVariants deletes the pair's Remove set when both sides of the pair are
// present. If either side is missing the page rendered a single variant and
// nothing is touched. It reports whether anything was removed.
func PruneVariants(root *goquery.Selection, pair rules.VariantPair) (bool, error) {
	keep, err := parser.Query(root, pair.Keep)
	if err != nil {
		return false, err
	}
	drop, err := parser.Query(root, pair.Remove)
	if err != nil {
		return false, err
	}
	if keep.Length() == 0 || drop.Length() == 0 {
		return false, nil
	}
	drop.Remove()
	return true, nil
}
