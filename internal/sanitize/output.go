package sanitize

import (
	"fmt"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yosssi/gohtml"
)

// Format selects the serialization of a sanitized document.
type Format string

const (
	FormatHTML     Format = "html"
	FormatMarkdown Format = "markdown"
)

// Policy is an optional bluemonday pass over the body after the rule set ran.
type Policy string

const (
	PolicyNone   Policy = "none"
	PolicyUGC    Policy = "ugc"
	PolicyStrict Policy = "strict"
)

// OutputOptions controls Document.Output.
type OutputOptions struct {
	Format Format
	Pretty bool
	Policy Policy
}

// Output serializes the document. The zero value renders plain HTML.
func (d *Document) Output(opts OutputOptions) (string, error) {
	if err := d.applyPolicy(opts.Policy); err != nil {
		return "", err
	}

	rendered, err := d.Render()
	if err != nil {
		return "", fmt.Errorf("render html: %w", err)
	}

	switch opts.Format {
	case "", FormatHTML:
		if opts.Pretty {
			return gohtml.Format(rendered), nil
		}
		return rendered, nil
	case FormatMarkdown:
		md, err := htmltomarkdown.ConvertString(rendered)
		if err != nil {
			return "", fmt.Errorf("converting HTML to markdown: %w", err)
		}
		return md, nil
	default:
		return "", fmt.Errorf("unknown output format %q", opts.Format)
	}
}

func (d *Document) applyPolicy(p Policy) error {
	var policy *bluemonday.Policy
	switch p {
	case "", PolicyNone:
		return nil
	case PolicyUGC:
		policy = bluemonday.UGCPolicy()
	case PolicyStrict:
		policy = bluemonday.StrictPolicy()
	default:
		return fmt.Errorf("unknown sanitize policy %q", p)
	}

	body := d.Body()
	inner, err := body.Html()
	if err != nil {
		return err
	}
	body.SetHtml(policy.Sanitize(inner))
	return nil
}
