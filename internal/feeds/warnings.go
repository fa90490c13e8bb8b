package feeds

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hazyhaar/climateboard/internal/snapshot"
)

// WarningsSource is Met Eireann's public warnings page.
const WarningsSource = "https://www.met.ie/warnings"

// DefaultWarningsURLs lists the national warnings JSON endpoint.
var DefaultWarningsURLs = []string{
	"https://www.met.ie/Open_Data/json/warning_IRELAND.json",
}

// maxWarningTitles caps the titles carried into the snapshot.
const maxWarningTitles = 3

// Warnings counts the active Met Eireann weather warnings for Ireland.
type Warnings struct {
	URLs []string
}

func (Warnings) Name() string { return "warnings" }

func (w Warnings) Fetch(ctx context.Context, g Getter) (*snapshot.Reading, error) {
	return firstParsed(ctx, g, w.Name(), w.URLs, ParseWarnings)
}

func (w Warnings) Placeholder() *snapshot.Reading {
	r := snapshot.NewReading(w.Name(), WarningsSource)
	r.Metrics[snapshot.WarningsCount] = snapshot.Missing()
	r.Metrics[snapshot.WarningsTitles] = snapshot.Missing()
	return r
}

type metWarning struct {
	Title    string `json:"title"`
	Headline string `json:"headline"`
	Status   string `json:"status"`
}

// ParseWarnings accepts either {"warnings": [...]} or a bare array of
// warnings. Entries whose status is "active" (any case) are counted.
// A document without a warnings list is ErrNoData, not zero warnings.
func ParseWarnings(data []byte) (*snapshot.Reading, error) {
	trimmed := bytes.TrimSpace(data)
	var items []metWarning
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("warnings json: %w", err)
		}
	} else {
		var doc struct {
			Warnings *[]metWarning `json:"warnings"`
		}
		if err := json.Unmarshal(trimmed, &doc); err != nil {
			return nil, fmt.Errorf("warnings json: %w", err)
		}
		if doc.Warnings == nil {
			return nil, fmt.Errorf("warnings: no warnings list: %w", ErrNoData)
		}
		items = *doc.Warnings
	}

	count := 0
	var titles []string
	for _, w := range items {
		if !strings.EqualFold(strings.TrimSpace(w.Status), "active") {
			continue
		}
		count++
		title := strings.TrimSpace(w.Title)
		if title == "" {
			title = strings.TrimSpace(w.Headline)
		}
		if title != "" && len(titles) < maxWarningTitles {
			titles = append(titles, strings.Join(strings.Fields(title), " "))
		}
	}

	r := snapshot.NewReading("warnings", WarningsSource)
	r.Metrics[snapshot.WarningsCount] = snapshot.Num(float64(count))
	r.Metrics[snapshot.WarningsTitles] = snapshot.Str(strings.Join(titles, snapshot.TitlesSeparator))
	return r, nil
}
