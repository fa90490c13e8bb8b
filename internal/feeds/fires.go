package feeds

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/hazyhaar/climateboard/internal/snapshot"
)

// FiresSource is the NASA FIRMS landing page.
const FiresSource = "https://firms.modaps.eosdis.nasa.gov/"

// DefaultFiresURL is the FIRMS area API for worldwide VIIRS detections over
// the last day. {key} is replaced by the map key.
const DefaultFiresURL = "https://firms.modaps.eosdis.nasa.gov/api/area/csv/{key}/VIIRS_SNPP_NRT/world/1"

// Fire descriptions shown next to the count.
const (
	FiresDescription            = "Active fires detected by VIIRS satellite in last 24 hours"
	FiresUnavailableDescription = "Fire data temporarily unavailable"
)

// ErrFiresResponse is returned when FIRMS answers with a message instead of CSV.
var ErrFiresResponse = errors.New("unexpected FIRMS response")

// Fires counts active fire detections from NASA FIRMS.
type Fires struct {
	URLTemplate string
	MapKey      string
}

func (Fires) Name() string { return "fires" }

func (f Fires) Fetch(ctx context.Context, g Getter) (*snapshot.Reading, error) {
	if f.MapKey == "" {
		return nil, fmt.Errorf("feeds: fires: map key: %w", ErrNotConfigured)
	}
	tmpl := f.URLTemplate
	if tmpl == "" {
		tmpl = DefaultFiresURL
	}
	u := strings.ReplaceAll(tmpl, "{key}", url.PathEscape(f.MapKey))

	r, err := firstParsed(ctx, g, f.Name(), []string{u}, ParseFires)
	if err != nil {
		// The key is part of the URL and must not reach the logs.
		return nil, &redactedError{err: err, secret: url.PathEscape(f.MapKey)}
	}
	r.URL = strings.ReplaceAll(tmpl, "{key}", "***")
	return r, nil
}

func (f Fires) Placeholder() *snapshot.Reading {
	r := snapshot.NewReading(f.Name(), FiresSource)
	r.Metrics[snapshot.FiresCount] = snapshot.Missing()
	r.Metrics[snapshot.FiresDesc] = snapshot.Str(FiresUnavailableDescription)
	return r
}

// redactedError masks secret in the message and keeps the chain for errors.Is.
type redactedError struct {
	err    error
	secret string
}

func (e *redactedError) Error() string {
	return strings.ReplaceAll(e.err.Error(), e.secret, "***")
}

func (e *redactedError) Unwrap() error { return e.err }

// ParseFires counts CSV data rows: non-empty lines minus the header.
func ParseFires(data []byte) (*snapshot.Reading, error) {
	lines := nonBlankLines(string(data), false)
	if len(lines) == 0 {
		return nil, fmt.Errorf("fires: %w", ErrNoData)
	}
	if !strings.Contains(lines[0], ",") {
		return nil, fmt.Errorf("fires: %w: %.80q", ErrFiresResponse, lines[0])
	}
	r := snapshot.NewReading("fires", FiresSource)
	r.Metrics[snapshot.FiresCount] = snapshot.Num(float64(len(lines) - 1))
	r.Metrics[snapshot.FiresDesc] = snapshot.Str(FiresDescription)
	return r, nil
}
