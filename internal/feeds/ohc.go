package feeds

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/hazyhaar/climateboard/internal/snapshot"
)

// OceanHeatSource is the NCEI global ocean heat content page.
const OceanHeatSource = "https://www.ncei.noaa.gov/access/global-ocean-heat-content/"

// OceanHeatUnits labels ohc_value.
const OceanHeatUnits = "J × 10^22"

// DefaultOceanHeatURLs lists the 0-2000 m annual ocean heat content mirrors.
var DefaultOceanHeatURLs = []string{
	"https://www.ncei.noaa.gov/data/ocean-heat-content/anomaly/ohc_levitus_climdash/ohc_0-2000m_annual.csv",
	"https://www.ncei.noaa.gov/data/ocean-heat-content/anomaly/ohc_levitus_climdash/ohc_0-2000m_annual_mean.csv",
	"https://www.ncei.noaa.gov/access/global-ocean-heat-content/ohc_0-2000m.csv",
}

// ErrNoNumericColumn is returned when no column besides the year is numeric.
var ErrNoNumericColumn = errors.New("no numeric value column")

// OceanHeat reads the latest annual 0-2000 m ocean heat content.
type OceanHeat struct {
	URLs []string
}

func (OceanHeat) Name() string { return "ohc" }

func (o OceanHeat) Fetch(ctx context.Context, g Getter) (*snapshot.Reading, error) {
	return firstParsed(ctx, g, o.Name(), o.URLs, ParseOceanHeat)
}

func (o OceanHeat) Placeholder() *snapshot.Reading {
	r := snapshot.NewReading(o.Name(), OceanHeatSource)
	r.Metrics[snapshot.OHCValue] = snapshot.Missing()
	r.Metrics[snapshot.OHCYear] = snapshot.Missing()
	r.Metrics[snapshot.OHCUnits] = snapshot.Missing()
	return r
}

// ParseOceanHeat reads a header row plus data rows, '#' lines skipped.
// The year column is the first whose name starts with "year", else the
// first column. The value is the first other column whose non-empty cells
// are all numeric. Rows missing any numeric value are dropped.
func ParseOceanHeat(data []byte) (*snapshot.Reading, error) {
	lines := nonBlankLines(string(data), true)
	if len(lines) < 2 {
		return nil, fmt.Errorf("ohc: %w", ErrNoData)
	}
	records, err := readCSV(strings.NewReader(strings.Join(lines, "\n")), 0)
	if err != nil {
		return nil, fmt.Errorf("ohc csv: %w", err)
	}
	header, body := records[0], records[1:]

	ycol := columnWhere(header, func(h string) bool { return strings.HasPrefix(h, "year") })
	if ycol < 0 {
		ycol = 0
	}

	var numeric []int
	for c := range header {
		if c != ycol && numericColumn(body, c) {
			numeric = append(numeric, c)
		}
	}
	if len(numeric) == 0 {
		return nil, fmt.Errorf("ohc: %w", ErrNoNumericColumn)
	}
	vcol := numeric[0]

	type ohcRow struct {
		year  int
		value float64
	}
	var rows []ohcRow
	for _, rec := range body {
		if len(rec) <= max(ycol, numeric[len(numeric)-1]) || !allPresent(rec, numeric) {
			continue
		}
		y, ok := parseInt(rec[ycol])
		if !ok {
			continue
		}
		v, _ := parseNumber(rec[vcol])
		rows = append(rows, ohcRow{year: y, value: v})
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("ohc: %w", ErrNoData)
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].year < rows[j].year })

	last := rows[len(rows)-1]
	r := snapshot.NewReading("ohc", OceanHeatSource)
	r.Metrics[snapshot.OHCValue] = snapshot.Num(last.value)
	r.Metrics[snapshot.OHCYear] = snapshot.Num(float64(last.year))
	r.Metrics[snapshot.OHCUnits] = snapshot.Str(OceanHeatUnits)
	return r, nil
}

// numericColumn reports whether column c holds at least one value and
// every non-empty cell parses as a number.
func numericColumn(rows [][]string, c int) bool {
	seen := false
	for _, rec := range rows {
		if c >= len(rec) || strings.TrimSpace(rec[c]) == "" {
			continue
		}
		if _, ok := parseNumber(rec[c]); !ok {
			return false
		}
		seen = true
	}
	return seen
}

func allPresent(rec []string, cols []int) bool {
	for _, c := range cols {
		if _, ok := parseNumber(rec[c]); !ok {
			return false
		}
	}
	return true
}
