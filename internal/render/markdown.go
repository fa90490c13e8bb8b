package render

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"golang.org/x/net/html"
)

// DigestFile is the published name of the Markdown digest.
const DigestFile = "summary.md"

// digestParts are the page regions carried into the digest, in order.
var digestParts = []string{"header.header", "section#details .grid", "footer.sources"}

// MarkdownDigest converts the header, the detail cards and the sources line
// of a rendered page into Markdown.
type MarkdownDigest struct {
	conv *converter.Converter
}

// NewMarkdownDigest builds the converter.
func NewMarkdownDigest() *MarkdownDigest {
	return &MarkdownDigest{
		conv: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
	}
}

// Convert extracts the digest regions from page and returns Markdown.
// siteURL, when set, makes relative chart links absolute.
func (m *MarkdownDigest) Convert(page []byte, siteURL string) (string, error) {
	doc, err := html.Parse(bytes.NewReader(page))
	if err != nil {
		return "", fmt.Errorf("render: digest parse: %w", err)
	}

	var frag strings.Builder
	for _, sel := range digestParts {
		nodes := querySelectorAll(doc, sel)
		if len(nodes) == 0 {
			return "", fmt.Errorf("render: digest: %q not found", sel)
		}
		if err := html.Render(&frag, nodes[0]); err != nil {
			return "", fmt.Errorf("render: digest render %q: %w", sel, err)
		}
		frag.WriteString("\n")
	}

	var md string
	if siteURL != "" {
		md, err = m.conv.ConvertString(frag.String(), converter.WithDomain(siteURL))
	} else {
		md, err = m.conv.ConvertString(frag.String())
	}
	if err != nil {
		return "", fmt.Errorf("render: digest convert: %w", err)
	}
	return strings.TrimSpace(md) + "\n", nil
}
