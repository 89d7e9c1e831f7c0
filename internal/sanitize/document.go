// Package sanitize implements the rule engine that rewrites a downloaded page
// into a clean, consistently structured document.
//
// A run applies one rules.RuleSet to one Document in four ordered phases:
// pre-removal, structural directives, post-removal and, when configured,
// whitelist projection. Every selector query returns a snapshot taken before
// the edits that consume it, so removing or replacing elements never disturbs
// the iteration in progress.
package sanitize

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Document is a mutable parsed HTML page owned by a single sanitizer run.
type Document struct {
	doc *goquery.Document
}

// Parse reads a whole HTML document.
func Parse(r io.Reader) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return &Document{doc: doc}, nil
}

// ParseString is a convenience wrapper around Parse.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// Wrap adopts an already parsed goquery document.
func Wrap(doc *goquery.Document) *Document {
	return &Document{doc: doc}
}

// Selection returns the document root selection.
func (d *Document) Selection() *goquery.Selection {
	return d.doc.Selection
}

// Body returns the <body> element.
func (d *Document) Body() *goquery.Selection {
	return d.doc.Find("body").First()
}

// Title returns the text of the <title> element in <head>.
func (d *Document) Title() string {
	return d.doc.Find("head > title").First().Text()
}

// SetTitle overwrites the document title, creating <title> if needed.
func (d *Document) SetTitle(title string) {
	t := d.doc.Find("head > title").First()
	if t.Length() == 0 {
		head := d.doc.Find("head").First()
		if head.Length() == 0 {
			return
		}
		node := newElement(atom.Title)
		head.Nodes[0].AppendChild(node)
		t = head.Children().Last()
	}
	t.SetText(title)
}

// Render serializes the full document, doctype included.
func (d *Document) Render() (string, error) {
	return d.doc.Html()
}

func newElement(a atom.Atom, attrs ...html.Attribute) *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		Data:     a.String(),
		DataAtom: a,
		Attr:     attrs,
	}
}

func newElementNamed(tag string, attrs ...html.Attribute) *html.Node {
	tag = strings.ToLower(tag)
	return &html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
		Attr:     attrs,
	}
}

func newText(text string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: text}
}

// replaceNode puts repl where n was. Detached nodes are left alone.
func replaceNode(n, repl *html.Node) bool {
	if n.Parent == nil {
		return false
	}
	n.Parent.InsertBefore(repl, n)
	n.Parent.RemoveChild(n)
	return true
}
