package parser

import (
	"log/slog"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/folio/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

const testHTML = `<!DOCTYPE html>
<html>
<head>
    <title>Lesson Twelve (12)</title>
</head>
<body>
    <h1 class="pageTitle">Hello World</h1>
    <div class="cs-single-post-content">
        <div>
            <p class="intro">First paragraph.</p>
            <p>Second <a href="/page2">paragraph</a>.</p>
            <section><p class="intro">Nested.</p></section>
        </div>
    </div>
    <a title="Next Article" href="//example.com/next.html">Next</a>
</body>
</html>`

func testDoc(t *testing.T) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(testHTML))
	require.NoError(t, err)
	return doc
}

func TestCompileCSS(t *testing.T) {
	doc := testDoc(t)

	sel, err := Compile("p.intro")
	require.NoError(t, err)
	assert.Equal(t, "p.intro", sel.String())

	matches := sel.Select(doc.Selection)
	require.Equal(t, 2, matches.Length())
	assert.Equal(t, "First paragraph.", matches.First().Text())
	assert.True(t, sel.Match(matches.Nodes[1]))
}

func TestCompileHas(t *testing.T) {
	doc := testDoc(t)
	matches, err := Query(doc.Selection, "section:has(p.intro)")
	require.NoError(t, err)
	assert.Equal(t, 1, matches.Length())
}

func TestCompileXPath(t *testing.T) {
	doc := testDoc(t)

	sel, err := Compile("xpath://p[@class='intro']")
	require.NoError(t, err)

	matches := sel.Select(doc.Selection)
	require.Equal(t, 2, matches.Length())
	assert.Equal(t, "First paragraph.", matches.Eq(0).Text())
	assert.Equal(t, "Nested.", matches.Eq(1).Text())

	assert.True(t, sel.Match(matches.Nodes[0]))
	assert.False(t, sel.Match(doc.Find("h1").Nodes[0]))
}

func TestXPathScopedToRoot(t *testing.T) {
	doc := testDoc(t)
	section := doc.Find("section")

	matches, err := Query(section, "xpath://p[@class='intro']")
	require.NoError(t, err)
	require.Equal(t, 1, matches.Length())
	assert.Equal(t, "Nested.", matches.Text())
}

func TestCompileErrors(t *testing.T) {
	for _, expr := range []string{"", "   ", "div[", "xpath://p[@class="} {
		_, err := Compile(expr)
		assert.Error(t, err, "expr %q", expr)
	}
}

func TestCompileCaches(t *testing.T) {
	a, err := Compile("div > p")
	require.NoError(t, err)
	b, err := Compile("div > p")
	require.NoError(t, err)
	assert.Same(t, a, b)
}

func TestSelectIsSnapshot(t *testing.T) {
	doc := testDoc(t)
	matches, err := Query(doc.Selection, "p")
	require.NoError(t, err)
	n := matches.Length()

	matches.Remove()
	assert.Equal(t, n, matches.Length(), "snapshot must not shrink after removal")
	assert.Equal(t, 0, doc.Find("p").Length())
}

func TestMustCompilePanics(t *testing.T) {
	assert.Panics(t, func() { MustCompile("a[") })
	assert.NotPanics(t, func() { MustCompile("a") })
}

func TestText(t *testing.T) {
	doc := testDoc(t)

	got, err := Text(doc.Selection, "h1.pageTitle")
	require.NoError(t, err)
	assert.Equal(t, "Hello World", got)

	got, err = Text(doc.Selection, "h1.missing")
	require.NoError(t, err)
	assert.Equal(t, "", got)
}

func TestResolveNext(t *testing.T) {
	const page = "https://example.com/series/article1.html"

	tests := []struct {
		href string
		want string
	}{
		{"//example.com/next.html", "http://example.com/next.html"},
		{"https://other.org/a2.html", "https://other.org/a2.html"},
		{"article2.html", "https://example.com/series/article2.html"},
		{"/root.html#top", "https://example.com/root.html"},
		{"  article3.html ", "https://example.com/series/article3.html"},
		{"", ""},
		{"#", ""},
		{"javascript:void(0)", ""},
	}

	for _, tt := range tests {
		t.Run(tt.href, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveNext(page, tt.href))
		})
	}
}

func makeResp(t *testing.T, rawURL, body string) *types.Response {
	t.Helper()
	req, err := types.NewRequest(rawURL)
	require.NoError(t, err)
	req.Sequence = 12
	httpResp := &http.Response{
		StatusCode: 200,
		Header:     http.Header{"Content-Type": []string{"text/html"}},
		Request:    &http.Request{URL: req.URL},
	}
	return types.NewResponse(req, httpResp, []byte(body), time.Millisecond)
}

func TestExtract(t *testing.T) {
	pe, err := NewPageExtractor("div.cs-single-post-content > div", `a[title="Next Article"]`, "", testLogger)
	require.NoError(t, err)

	page, err := pe.Extract(makeResp(t, "https://example.com/article12.html", testHTML))
	require.NoError(t, err)

	assert.Equal(t, "Lesson Twelve (12)", page.Title)
	assert.Equal(t, "https://example.com/article12.html", page.URL)
	assert.Equal(t, "http://example.com/next.html", page.NextURL)
	assert.Equal(t, 12, page.Sequence)
	assert.Equal(t, 3, page.Content.Find("p").Length())
}

func TestExtractCustomTitleAndLastPage(t *testing.T) {
	pe, err := NewPageExtractor("div.cs-single-post-content > div", "a.next", "xpath://h1[@class='pageTitle']", testLogger)
	require.NoError(t, err)

	page, err := pe.Extract(makeResp(t, "https://example.com/a.html", testHTML))
	require.NoError(t, err)
	assert.Equal(t, "Hello World", page.Title)
	assert.Equal(t, "", page.NextURL)
}

func TestExtractMissingContent(t *testing.T) {
	pe, err := NewPageExtractor("div.absent", "a.next", "", testLogger)
	require.NoError(t, err)

	_, err = pe.Extract(makeResp(t, "https://example.com/a.html", testHTML))
	var ee *types.ExtractionError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, "div.absent", ee.Selector)
	assert.ErrorIs(t, err, types.ErrNoMatch)
}

func TestNewPageExtractorBadSelector(t *testing.T) {
	_, err := NewPageExtractor("div[", "a", "", testLogger)
	var pe *types.ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "div[", pe.Selector)
}
