package sanitize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/folio/internal/rules"
)

const outputDoc = `<html><head><title>New</title></head><body><h1>New</h1><p onclick="x()">Body <em>text</em></p></body></html>`

func TestOutputHTML(t *testing.T) {
	out, err := parse(t, outputDoc).Output(OutputOptions{})
	require.NoError(t, err)
	assert.Contains(t, out, `<title>New</title>`)
	assert.Contains(t, out, `<p onclick="x()">Body <em>text</em></p>`)
}

func TestOutputPretty(t *testing.T) {
	out, err := parse(t, outputDoc).Output(OutputOptions{Format: FormatHTML, Pretty: true})
	require.NoError(t, err)
	assert.Contains(t, out, "<h1>")
	assert.Greater(t, strings.Count(out, "\n"), 3, "pretty output is indented over several lines")
}

func TestOutputMarkdown(t *testing.T) {
	out, err := parse(t, outputDoc).Output(OutputOptions{Format: FormatMarkdown})
	require.NoError(t, err)
	assert.Contains(t, out, "# New")
	assert.Contains(t, out, "Body *text*")
	assert.NotContains(t, out, "<p")
}

func TestOutputPolicies(t *testing.T) {
	t.Run("ugc drops event handlers", func(t *testing.T) {
		out, err := parse(t, outputDoc).Output(OutputOptions{Policy: PolicyUGC})
		require.NoError(t, err)
		assert.NotContains(t, out, "onclick")
		assert.Contains(t, out, "<em>text</em>")
		assert.Contains(t, out, "<title>New</title>", "head is left alone")
	})

	t.Run("strict drops markup", func(t *testing.T) {
		out, err := parse(t, outputDoc).Output(OutputOptions{Policy: PolicyStrict})
		require.NoError(t, err)
		assert.NotContains(t, out, "<em>")
		assert.Contains(t, out, "Body text")
	})
}

func TestOutputRejectsUnknown(t *testing.T) {
	_, err := parse(t, outputDoc).Output(OutputOptions{Format: "pdf"})
	assert.Error(t, err)

	_, err = parse(t, outputDoc).Output(OutputOptions{Policy: "lenient"})
	assert.Error(t, err)
}

func TestSanitizeReader(t *testing.T) {
	rs := &rules.RuleSet{
		Name:      "reader",
		PreRemove: []string{"p"},
	}
	out, err := New(testLogger).SanitizeReader(strings.NewReader(outputDoc), rs, OutputOptions{})
	require.NoError(t, err)
	assert.Contains(t, out, "<h1>New</h1>")
	assert.NotContains(t, out, "Body")
}
