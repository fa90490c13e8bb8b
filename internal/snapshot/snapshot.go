// Package snapshot holds the flat set of metric values produced by one
// dashboard build.
//
// A Snapshot is created fresh for every run, filled feed by feed through
// Merge, and then handed read-only to the renderer.
package snapshot

import (
	"sort"
	"time"
)

// Metric names.
const (
	CO2PPM          = "co2_ppm"
	CO2Year         = "co2_year"
	CO2Month        = "co2_month"
	WarningsCount   = "warnings_count"
	WarningsTitles  = "warnings_titles"
	SeaLevelMM      = "sea_level_mm"
	DublinNote      = "dublin_note"
	ArcticExtent    = "arctic_ice_extent"
	ArcticDate      = "arctic_ice_date"
	OHCValue        = "ohc_value"
	OHCYear         = "ohc_year"
	OHCUnits        = "ohc_units"
	FiresCount      = "fires_count"
	FiresDesc       = "fires_description"
	SeriesCO2       = "co2_monthly"
	SeriesArctic    = "arctic_extent_daily"
	TitlesSeparator = "; "
)

// Value is a single metric: a number, a text, or a placeholder marker.
type Value struct {
	Number      float64 `json:"number,omitempty"`
	Text        string  `json:"text,omitempty"`
	Placeholder bool    `json:"placeholder,omitempty"`
}

// Num returns a numeric Value.
func Num(v float64) Value { return Value{Number: v} }

// Str returns a text Value.
func Str(s string) Value { return Value{Text: s} }

// Missing returns a placeholder Value.
func Missing() Value { return Value{Placeholder: true} }

// Point is one sample of a time series.
type Point struct {
	At    time.Time `json:"at"`
	Value float64   `json:"value"`
}

// Reading is the partial snapshot produced by one feed.
type Reading struct {
	Feed    string
	Source  string // human-facing source page
	URL     string // endpoint that served the data, empty for placeholders and static feeds
	Metrics map[string]Value
	Series  map[string][]Point
}

// NewReading returns an empty Reading for feed.
func NewReading(feed, source string) *Reading {
	return &Reading{
		Feed:    feed,
		Source:  source,
		Metrics: make(map[string]Value),
		Series:  make(map[string][]Point),
	}
}

// FeedStatus records how one feed fared during a run.
type FeedStatus struct {
	Feed     string        `json:"feed"`
	OK       bool          `json:"ok"`
	Disabled bool          `json:"disabled,omitempty"`
	URL      string        `json:"url,omitempty"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration_ns"`
}

// Snapshot is the merged result of all feeds for one run.
type Snapshot struct {
	GeneratedAt time.Time          `json:"generated_at"`
	Metrics     map[string]Value   `json:"metrics"`
	Series      map[string][]Point `json:"series,omitempty"`
	Sources     map[string]string  `json:"sources"`
	Feeds       []FeedStatus       `json:"feeds"`
}

// New returns an empty Snapshot stamped with now in UTC.
func New(now time.Time) *Snapshot {
	return &Snapshot{
		GeneratedAt: now.UTC(),
		Metrics:     make(map[string]Value),
		Series:      make(map[string][]Point),
		Sources:     make(map[string]string),
	}
}

// Set stores v under name.
func (s *Snapshot) Set(name string, v Value) { s.Metrics[name] = v }

// Get returns the Value stored under name.
func (s *Snapshot) Get(name string) (Value, bool) {
	v, ok := s.Metrics[name]
	return v, ok
}

// Number returns the numeric value of name and whether it is usable.
// Absent and placeholder metrics report false.
func (s *Snapshot) Number(name string) (float64, bool) {
	v, ok := s.Metrics[name]
	if !ok || v.Placeholder {
		return 0, false
	}
	return v.Number, true
}

// Text returns the text of name, empty for absent or placeholder metrics.
func (s *Snapshot) Text(name string) string {
	v, ok := s.Metrics[name]
	if !ok || v.Placeholder {
		return ""
	}
	return v.Text
}

// IsPlaceholder reports whether name is absent or a placeholder.
func (s *Snapshot) IsPlaceholder(name string) bool {
	v, ok := s.Metrics[name]
	return !ok || v.Placeholder
}

// Names returns the metric names in sorted order.
func (s *Snapshot) Names() []string {
	names := make([]string, 0, len(s.Metrics))
	for k := range s.Metrics {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// PlaceholderCount returns how many metrics hold a placeholder.
func (s *Snapshot) PlaceholderCount() int {
	n := 0
	for _, v := range s.Metrics {
		if v.Placeholder {
			n++
		}
	}
	return n
}

// Merge copies the metrics, series and source link of r into s.
// Later readings overwrite earlier ones on name collisions.
func (s *Snapshot) Merge(r *Reading) {
	if r == nil {
		return
	}
	for k, v := range r.Metrics {
		s.Metrics[k] = v
	}
	for k, pts := range r.Series {
		s.Series[k] = pts
	}
	if r.Source != "" {
		s.Sources[r.Feed] = r.Source
	}
}

// Record appends a feed status to the run log.
func (s *Snapshot) Record(st FeedStatus) { s.Feeds = append(s.Feeds, st) }

// Failed returns the names of feeds that fell back to placeholders.
// Disabled feeds are not failures.
func (s *Snapshot) Failed() []string {
	var out []string
	for _, st := range s.Feeds {
		if !st.OK && !st.Disabled {
			out = append(out, st.Feed)
		}
	}
	return out
}
