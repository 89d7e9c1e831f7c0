package parser

import (
	"fmt"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/antchfx/htmlquery"
	"github.com/antchfx/xpath"
	"golang.org/x/net/html"
)

// XPathPrefix marks a selector string as an XPath expression instead of CSS.
const XPathPrefix = "xpath:"

// Selector is a compiled element query.
type Selector interface {
	// Select returns every matching descendant of root in document order. The
	// result is a snapshot: mutating the document does not change it.
	Select(root *goquery.Selection) *goquery.Selection

	// Match reports whether the single node satisfies the selector.
	Match(n *html.Node) bool

	// String returns the source expression.
	String() string
}

var cache sync.Map // string -> Selector

// Compile parses a selector expression. Plain strings are CSS; strings
// prefixed with "xpath:" are XPath 1.0. Compiled selectors are cached.
func Compile(expr string) (Selector, error) {
	if s, ok := cache.Load(expr); ok {
		return s.(Selector), nil
	}

	var (
		sel Selector
		err error
	)
	trimmed := strings.TrimSpace(expr)
	switch {
	case trimmed == "":
		return nil, fmt.Errorf("empty selector")
	case strings.HasPrefix(trimmed, XPathPrefix):
		sel, err = compileXPath(expr, strings.TrimSpace(strings.TrimPrefix(trimmed, XPathPrefix)))
	default:
		sel, err = compileCSS(expr)
	}
	if err != nil {
		return nil, err
	}

	cache.Store(expr, sel)
	return sel, nil
}

// MustCompile is like Compile but panics on error. Intended for compiled-in
// defaults.
func MustCompile(expr string) Selector {
	s, err := Compile(expr)
	if err != nil {
		panic(err)
	}
	return s
}

// Query compiles expr and runs it against root.
func Query(root *goquery.Selection, expr string) (*goquery.Selection, error) {
	s, err := Compile(expr)
	if err != nil {
		return nil, err
	}
	return s.Select(root), nil
}

// --- CSS ---

type cssSelector struct {
	expr    string
	matcher cascadia.Selector
}

func compileCSS(expr string) (*cssSelector, error) {
	m, err := cascadia.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid css selector %q: %w", expr, err)
	}
	return &cssSelector{expr: expr, matcher: m}, nil
}

func (s *cssSelector) Select(root *goquery.Selection) *goquery.Selection {
	return root.FindMatcher(s.matcher)
}

func (s *cssSelector) Match(n *html.Node) bool { return s.matcher.Match(n) }

func (s *cssSelector) String() string { return s.expr }

// --- XPath ---

type xpathSelector struct {
	expr     string
	compiled *xpath.Expr
}

func compileXPath(expr, body string) (*xpathSelector, error) {
	compiled, err := xpath.Compile(body)
	if err != nil {
		return nil, fmt.Errorf("invalid xpath selector %q: %w", expr, err)
	}
	return &xpathSelector{expr: expr, compiled: compiled}, nil
}

func (s *xpathSelector) Select(root *goquery.Selection) *goquery.Selection {
	var nodes []*html.Node
	for _, n := range root.Nodes {
		nodes = append(nodes, htmlquery.QuerySelectorAll(n, s.compiled)...)
	}
	return root.FindNodes(nodes...)
}

func (s *xpathSelector) Match(n *html.Node) bool {
	top := n
	for top.Parent != nil {
		top = top.Parent
	}
	for _, m := range htmlquery.QuerySelectorAll(top, s.compiled) {
		if m == n {
			return true
		}
	}
	return false
}

func (s *xpathSelector) String() string { return s.expr }
