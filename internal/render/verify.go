package render

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// ErrStructure is wrapped by Verify when required elements are missing.
var ErrStructure = errors.New("render: page structure incomplete")

// requirement is one structural element the browser suite depends on.
type requirement struct {
	selector string
	min      int
}

// Required lists the elements every rendered page must contain.
var Required = []requirement{
	{"html[lang]", 1},
	{"title", 1},
	{"header.header h1", 1},
	{"button.tabbtn[data-tab=simple]", 1},
	{"button.tabbtn[data-tab=details]", 1},
	{"section#simple.section.active", 1},
	{"section#details.section", 1},
	{"#simple .tile", 5},
	{".tile.pulse .count[data-value]", 1},
	{".proj", 1},
	{"input[name=scn]", 3},
	{"input#yr[type=range]", 1},
	{"#slr", 1},
	{"#details .card.reveal", 6},
	{".chart[data-chart=co2]", 1},
	{".chart[data-chart=arctic]", 1},
	{".sources", 1},
	{"#zoomModal", 1},
	{"#aboutPopup", 1},
	{"script", 1},
}

// Verify parses page and checks that every Required element is present.
// All missing elements are reported in one error.
func Verify(page []byte) error {
	doc, err := html.Parse(bytes.NewReader(page))
	if err != nil {
		return fmt.Errorf("render: parse output: %w", err)
	}
	var missing []string
	for _, req := range Required {
		if n := len(querySelectorAll(doc, req.selector)); n < req.min {
			missing = append(missing, fmt.Sprintf("%s (%d/%d)", req.selector, n, req.min))
		}
	}
	if titles := querySelectorAll(doc, "title"); len(titles) > 0 && textContent(titles[0]) == "" {
		missing = append(missing, "title text")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrStructure, strings.Join(missing, ", "))
	}
	return nil
}
