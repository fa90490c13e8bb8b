// Package chart renders snapshot time series as PNG line charts.
package chart

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	gochart "github.com/wcharczuk/go-chart"
	"github.com/wcharczuk/go-chart/drawing"

	"github.com/hazyhaar/climateboard/internal/snapshot"
)

// File names of the published charts.
const (
	CO2File    = "co2_24mo.png"
	ArcticFile = "arctic_extent_365d.png"
)

// ErrTooFewPoints is returned for series that cannot form a line.
var ErrTooFewPoints = errors.New("chart: need at least 2 points")

// Spec describes one chart.
type Spec struct {
	Title      string
	Unit       string // y axis label
	DateFormat string // x axis tick format
	Color      string // hex stroke colour without '#'
	Width      int
	Height     int
}

func (s *Spec) defaults() {
	if s.DateFormat == "" {
		s.DateFormat = "2006-01"
	}
	if s.Color == "" {
		s.Color = "2E86AB"
	}
	if s.Width <= 0 {
		s.Width = 1200
	}
	if s.Height <= 0 {
		s.Height = 600
	}
}

// CO2 is the Mauna Loa monthly chart.
var CO2 = Spec{Title: "Mauna Loa CO2 (last 24 months)", Unit: "ppm", Color: "E74C3C"}

// Arctic is the daily sea-ice extent chart.
var Arctic = Spec{Title: "Arctic Sea Ice Extent (last 365 days)", Unit: "million km2", DateFormat: "Jan 06"}

// Render draws pts as a PNG line chart.
func Render(spec Spec, pts []snapshot.Point) ([]byte, error) {
	if len(pts) < 2 {
		return nil, ErrTooFewPoints
	}
	spec.defaults()

	xs := make([]time.Time, len(pts))
	ys := make([]float64, len(pts))
	for i, p := range pts {
		xs[i] = p.At
		ys[i] = p.Value
	}

	graph := gochart.Chart{
		Title:      spec.Title,
		TitleStyle: gochart.Style{Show: true},
		Width:      spec.Width,
		Height:     spec.Height,
		XAxis: gochart.XAxis{
			Style:          gochart.Style{Show: true},
			ValueFormatter: gochart.TimeValueFormatterWithFormat(spec.DateFormat),
		},
		YAxis: gochart.YAxis{
			Name:      spec.Unit,
			NameStyle: gochart.Style{Show: true},
			Style:     gochart.Style{Show: true},
		},
		Series: []gochart.Series{
			gochart.TimeSeries{
				Name: spec.Title,
				Style: gochart.Style{
					Show:        true,
					StrokeColor: drawing.ColorFromHex(spec.Color),
					StrokeWidth: 2,
				},
				XValues: xs,
				YValues: ys,
			},
		},
	}

	var buf bytes.Buffer
	if err := graph.Render(gochart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("chart: render %q: %w", spec.Title, err)
	}
	return buf.Bytes(), nil
}
