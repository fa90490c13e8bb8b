// Package render turns a snapshot into the static dashboard page.
//
// Templates are embedded and parsed once by New. Rendering is pure
// substitution: the same snapshot yields the same bytes, and the only
// run-dependent field is the generation timestamp.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"

	"github.com/microcosm-cc/bluemonday"

	"github.com/hazyhaar/climateboard/internal/snapshot"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// RootTemplate is the template executed by Render.
const RootTemplate = "page"

// Options configures the renderer.
type Options struct {
	// Title is the site name. Default: "Climate Change Board".
	Title string
	// Templates replaces the embedded template set; it must define the
	// templates the page references.
	Templates fs.FS
	Logger    *slog.Logger
}

func (o *Options) defaults() {
	if o.Title == "" {
		o.Title = "Climate Change Board"
	}
	if o.Templates == nil {
		o.Templates = templateFS
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Renderer renders the dashboard page.
type Renderer struct {
	tmpl   *template.Template
	opts   Options
	policy *bluemonday.Policy
	fmt    formatter
}

// New parses the templates. A parse error is a total renderer failure.
func New(opts Options) (*Renderer, error) {
	opts.defaults()
	tmpl, err := template.New(RootTemplate).Option("missingkey=error").ParseFS(opts.Templates, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("render: parse templates: %w", err)
	}
	if tmpl.Lookup(RootTemplate) == nil {
		return nil, fmt.Errorf("render: template %q not defined", RootTemplate)
	}
	return &Renderer{
		tmpl:   tmpl,
		opts:   opts,
		policy: bluemonday.StrictPolicy(),
		fmt:    newFormatter(),
	}, nil
}

// Render produces the complete HTML document for snap.
func (r *Renderer) Render(snap *snapshot.Snapshot, charts Charts) ([]byte, error) {
	if snap == nil {
		return nil, fmt.Errorf("render: nil snapshot")
	}
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, RootTemplate, r.view(snap, charts)); err != nil {
		return nil, fmt.Errorf("render: execute: %w", err)
	}
	r.opts.Logger.Debug("render: page rendered", "bytes", buf.Len(),
		"placeholders", snap.PlaceholderCount())
	return buf.Bytes(), nil
}
