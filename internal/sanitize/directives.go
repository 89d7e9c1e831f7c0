package sanitize

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/IshaanNene/folio/internal/parser"
	"github.com/IshaanNene/folio/internal/rules"
)

const (
	defaultBackgroundMarker = "[data-bg]"
	defaultHeadings         = "h1, h2, h3, h4, h5, h6"
	defaultSeparator        = ".separator"
	defaultIconSelector     = "svg.icon"
	defaultIconHeight       = "1em"
)

// apply runs a single directive against doc.
func (e *Engine) apply(doc *Document, rs *rules.RuleSet, d rules.Directive) error {
	root := doc.Selection()

	switch d.Type {
	case rules.ExtractTitle:
		return extractTitle(doc, firstNonEmpty(d.Selector, rs.TitleSelector))

	case rules.FlattenLinks:
		n := flattenLinks(root, rs.EffectiveLinkPolicy(d))
		e.logger.Debug("links flattened", "step", d.Step, "count", n)
		return nil

	case rules.StripAttributes:
		return stripAttributes(root, d.Attributes, d.Except)

	case rules.Retag:
		n, err := retag(root, d.Selector, d.Tag)
		e.logger.Debug("elements retagged", "step", d.Step, "selector", d.Selector, "tag", d.Tag, "count", n)
		return err

	case rules.BackgroundToBlockquote:
		return backgroundToBlockquote(root,
			firstNonEmpty(d.Selector, defaultBackgroundMarker),
			firstNonEmpty(d.Heading, defaultHeadings))

	case rules.InsertSeparator:
		return insertSeparator(root, firstNonEmpty(d.Selector, defaultSeparator))

	case rules.NormalizeHeading:
		normalizeHeading(doc)
		return nil

	case rules.SVG:
		return vectorGraphics(root, rs.EffectiveSVGPolicy(d),
			firstNonEmpty(d.IconSelector, defaultIconSelector),
			firstNonEmpty(d.Height, defaultIconHeight))

	case rules.PruneVariants:
		if d.Variants == nil {
			return fmt.Errorf("prune_variants without variants")
		}
		pruned, err := PruneVariants(root, *d.Variants)
		if err != nil {
			return err
		}
		e.logger.Debug("variant pair evaluated",
			"step", d.Step,
			"keep", d.Variants.Keep,
			"remove", d.Variants.Remove,
			"pruned", pruned,
		)
		return nil

	case rules.RemoveIf:
		matched, removed, err := RemoveMatching(root, d.RemovalSpec())
		if err != nil {
			return err
		}
		if matched == 0 {
			e.logger.Debug("element to remove not found", "step", d.Step, "selector", d.Selector)
		}
		e.stats.ElementsRemoved.Add(int64(removed))
		return nil

	case rules.Remove:
		return e.removeAll(root, d.Selectors, fmt.Sprintf("step %d", d.Step))

	default:
		return fmt.Errorf("unknown directive type %q", d.Type)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// extractTitle replaces the document title with the text of the first match.
// No match yields an empty title; no selector at all keeps the current one.
func extractTitle(doc *Document, expr string) error {
	if expr == "" {
		return nil
	}
	title, err := parser.Text(doc.Selection(), expr)
	if err != nil {
		return err
	}
	doc.SetTitle(title)
	return nil
}

// flattenLinks swaps every anchor for its text. Anchors without text keep an
// empty href or disappear, depending on policy.
func flattenLinks(root *goquery.Selection, policy rules.LinkPolicy) int {
	anchors := root.Find("a")
	anchors.Each(func(_ int, a *goquery.Selection) {
		text := a.Text()
		if strings.TrimSpace(text) != "" {
			replaceNode(a.Nodes[0], newText(text))
			return
		}
		switch policy {
		case rules.LinkRemove:
			a.Remove()
		default:
			a.SetAttr("href", "")
		}
	})
	return anchors.Length()
}

// stripAttributes drops the named attributes from every element except those
// matching except.
func stripAttributes(root *goquery.Selection, attrs []string, except string) error {
	if len(attrs) == 0 {
		attrs = []string{"style"}
	}

	var skip parser.Selector
	if except != "" {
		s, err := parser.Compile(except)
		if err != nil {
			return err
		}
		skip = s
	}

	root.Find("*").Each(func(_ int, s *goquery.Selection) {
		if skip != nil && skip.Match(s.Nodes[0]) {
			return
		}
		for _, attr := range attrs {
			s.RemoveAttr(attr)
		}
	})
	return nil
}

// retag replaces each match with a new element named tag that keeps the class
// attribute and the original children.
func retag(root *goquery.Selection, expr, tag string) (int, error) {
	matches, err := parser.Query(root, expr)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, n := range matches.Nodes {
		var attrs []html.Attribute
		for _, a := range n.Attr {
			if a.Key == "class" && a.Namespace == "" {
				attrs = append(attrs, a)
			}
		}
		repl := newElementNamed(tag, attrs...)
		for c := n.FirstChild; c != nil; {
			next := c.NextSibling
			n.RemoveChild(c)
			repl.AppendChild(c)
			c = next
		}
		if replaceNode(n, repl) {
			count++
		}
	}
	return count, nil
}

// backgroundToBlockquote turns lazily painted banners into a quotation of
// their nested heading.
func backgroundToBlockquote(root *goquery.Selection, marker, heading string) error {
	matches, err := parser.Query(root, marker)
	if err != nil {
		return err
	}
	headings, err := parser.Compile(heading)
	if err != nil {
		return err
	}

	matches.Each(func(_ int, s *goquery.Selection) {
		h := headings.Select(s).First()
		if h.Length() == 0 {
			return
		}
		bq := newElement(atom.Blockquote)
		bq.AppendChild(newText(strings.TrimSpace(h.Text())))
		replaceNode(s.Nodes[0], bq)
	})
	return nil
}

// insertSeparator adds an <hr> right after each marker element.
func insertSeparator(root *goquery.Selection, expr string) error {
	matches, err := parser.Query(root, expr)
	if err != nil {
		return err
	}
	for _, n := range matches.Nodes {
		if n.Parent == nil {
			continue
		}
		n.Parent.InsertBefore(newElement(atom.Hr), n.NextSibling)
	}
	return nil
}

// normalizeHeading leaves exactly one <h1>, carrying the document title, as
// the first child of a non-empty body.
func normalizeHeading(doc *Document) {
	doc.Selection().Find("h1").Remove()

	body := doc.Body()
	if body.Length() == 0 || body.Nodes[0].FirstChild == nil {
		return
	}
	h1 := newElement(atom.H1)
	h1.AppendChild(newText(doc.Title()))
	body.Nodes[0].InsertBefore(h1, body.Nodes[0].FirstChild)
}

// vectorGraphics applies the svg policy: strip_non_icons removes every svg
// that is not an icon and pins icon height; retain_all keeps them all but
// drops their inline style.
func vectorGraphics(root *goquery.Selection, policy rules.SVGPolicy, icon, height string) error {
	svgs := root.Find("svg")

	if policy == rules.SVGRetainAll {
		svgs.RemoveAttr("style")
		return nil
	}

	isIcon, err := parser.Compile(icon)
	if err != nil {
		return err
	}
	svgs.Each(func(_ int, s *goquery.Selection) {
		if isIcon.Match(s.Nodes[0]) {
			s.SetAttr("height", height)
			return
		}
		s.Remove()
	})
	return nil
}
