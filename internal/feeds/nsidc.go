package feeds

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/hazyhaar/climateboard/internal/snapshot"
)

// SeaIceSource is the NSIDC Sea Ice Today page.
const SeaIceSource = "https://nsidc.org/sea-ice-today"

// DefaultSeaIceURLs lists the Sea Ice Index v3 daily mirrors, plain and gzip.
var DefaultSeaIceURLs = []string{
	"https://noaadata.apps.nsidc.org/NOAA/G02135/north/daily/data/N_seaice_extent_daily_v3.0.csv",
	"https://noaadata.apps.nsidc.org/NOAA/G02135/north/daily/data/N_seaice_extent_daily_v3.0.csv.gz",
	"https://sidads.colorado.edu/DATASETS/NOAA/G02135/north/daily/data/N_seaice_extent_daily_v3.0.csv",
	"https://sidads.colorado.edu/DATASETS/NOAA/G02135/north/daily/data/N_seaice_extent_daily_v3.0.csv.gz",
}

// ErrSeaIceColumns is returned when the header lacks a year, month, day or
// extent column.
var ErrSeaIceColumns = errors.New("unexpected NSIDC CSV columns")

const (
	seaIceSeriesLen = 365
	seaIceMissing   = -9999
)

// SeaIce reads the Arctic daily sea ice extent.
type SeaIce struct {
	URLs []string
}

func (SeaIce) Name() string { return "nsidc" }

func (s SeaIce) Fetch(ctx context.Context, g Getter) (*snapshot.Reading, error) {
	return firstParsed(ctx, g, s.Name(), s.URLs, ParseSeaIce)
}

func (s SeaIce) Placeholder() *snapshot.Reading {
	r := snapshot.NewReading(s.Name(), SeaIceSource)
	r.Metrics[snapshot.ArcticExtent] = snapshot.Missing()
	r.Metrics[snapshot.ArcticDate] = snapshot.Missing()
	return r
}

type iceRow struct {
	date   time.Time
	extent float64
}

// ParseSeaIce parses N_seaice_extent_daily_v3.0.csv. The header is the
// first line starting with "year" or "yyyy"; columns are matched by their
// first letter (y, m, d) and by the substring "extent". Rows with invalid
// dates are dropped, -9999 marks a missing extent.
func ParseSeaIce(data []byte) (*snapshot.Reading, error) {
	lines := nonBlankLines(string(data), false)
	start := -1
	for i, ln := range lines {
		l := strings.ToLower(strings.TrimSpace(ln))
		if strings.HasPrefix(l, "year") || strings.HasPrefix(l, "yyyy") {
			start = i
			break
		}
	}
	if start < 0 {
		return nil, fmt.Errorf("nsidc: %w", ErrSeaIceColumns)
	}

	records, err := readCSV(strings.NewReader(strings.Join(lines[start:], "\n")), 0)
	if err != nil {
		return nil, fmt.Errorf("nsidc csv: %w", err)
	}
	header := records[0]
	ycol := columnWhere(header, func(h string) bool { return strings.HasPrefix(h, "y") })
	mcol := columnWhere(header, func(h string) bool { return strings.HasPrefix(h, "m") })
	dcol := columnWhere(header, func(h string) bool { return strings.HasPrefix(h, "d") })
	ecol := columnWhere(header, func(h string) bool { return strings.Contains(h, "extent") })
	if ycol < 0 || mcol < 0 || dcol < 0 || ecol < 0 {
		return nil, fmt.Errorf("nsidc: %w", ErrSeaIceColumns)
	}
	need := max(ycol, mcol, dcol, ecol)

	var rows []iceRow
	for _, rec := range records[1:] {
		if len(rec) <= need {
			continue
		}
		y, ok1 := parseInt(rec[ycol])
		m, ok2 := parseInt(rec[mcol])
		d, ok3 := parseInt(rec[dcol])
		if !ok1 || !ok2 || !ok3 {
			continue
		}
		date, ok := validDate(y, m, d)
		if !ok {
			continue
		}
		ext, ok := parseNumber(rec[ecol])
		if !ok || ext == seaIceMissing {
			continue
		}
		rows = append(rows, iceRow{date: date, extent: ext})
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("nsidc: %w", ErrNoData)
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].date.Before(rows[j].date) })

	last := rows[len(rows)-1]
	r := snapshot.NewReading("nsidc", SeaIceSource)
	r.Metrics[snapshot.ArcticExtent] = snapshot.Num(last.extent)
	r.Metrics[snapshot.ArcticDate] = snapshot.Str(last.date.Format("2006-01-02"))

	tail := rows[max(0, len(rows)-seaIceSeriesLen):]
	pts := make([]snapshot.Point, 0, len(tail))
	for _, row := range tail {
		pts = append(pts, snapshot.Point{At: row.date, Value: row.extent})
	}
	r.Series[snapshot.SeriesArctic] = pts
	return r, nil
}

// columnWhere returns the index of the first header cell, trimmed and
// lowercased, that satisfies match, or -1.
func columnWhere(header []string, match func(string) bool) int {
	for i, h := range header {
		if match(strings.ToLower(strings.TrimSpace(h))) {
			return i
		}
	}
	return -1
}

// validDate rejects dates that time.Date would normalise (e.g. Feb 30).
func validDate(y, m, d int) (time.Time, bool) {
	if m < 1 || m > 12 || d < 1 {
		return time.Time{}, false
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	if t.Year() != y || int(t.Month()) != m || t.Day() != d {
		return time.Time{}, false
	}
	return t, true
}
