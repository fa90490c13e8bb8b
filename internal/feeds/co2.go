package feeds

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/hazyhaar/climateboard/internal/snapshot"
)

// CO2Source is the human-facing page for the Mauna Loa record.
const CO2Source = "https://gml.noaa.gov/ccgg/trends/"

// DefaultCO2URLs lists the NOAA GML monthly mean endpoints.
var DefaultCO2URLs = []string{
	"https://gml.noaa.gov/webdata/ccgg/trends/co2/co2_mm_mlo.csv",
}

// co2SeriesLen is the number of monthly samples charted.
const co2SeriesLen = 24

// CO2 reads the Mauna Loa monthly mean CO2 concentration.
type CO2 struct {
	URLs []string
}

func (CO2) Name() string { return "co2" }

func (c CO2) Fetch(ctx context.Context, g Getter) (*snapshot.Reading, error) {
	return firstParsed(ctx, g, c.Name(), c.URLs, ParseCO2)
}

func (c CO2) Placeholder() *snapshot.Reading {
	r := snapshot.NewReading(c.Name(), CO2Source)
	r.Metrics[snapshot.CO2PPM] = snapshot.Missing()
	r.Metrics[snapshot.CO2Year] = snapshot.Missing()
	r.Metrics[snapshot.CO2Month] = snapshot.Missing()
	return r
}

type co2Row struct {
	year, month int
	ppm         float64
}

// ParseCO2 parses co2_mm_mlo.csv. Columns are year, month, decimal date,
// average, deseasonalized, days, stdev, uncertainty. Comment lines start
// with '#', the header row and rows with a missing average (-99.99) are
// skipped.
func ParseCO2(data []byte) (*snapshot.Reading, error) {
	records, err := readCSV(bytes.NewReader(data), '#')
	if err != nil {
		return nil, fmt.Errorf("co2 csv: %w", err)
	}

	var rows []co2Row
	for _, rec := range records {
		if len(rec) < 4 {
			continue
		}
		year, err1 := strconv.Atoi(strings.TrimSpace(rec[0]))
		month, err2 := strconv.Atoi(strings.TrimSpace(rec[1]))
		ppm, err3 := strconv.ParseFloat(strings.TrimSpace(rec[3]), 64)
		if err1 != nil || err2 != nil || err3 != nil {
			continue
		}
		if month < 1 || month > 12 || ppm < 0 {
			continue
		}
		rows = append(rows, co2Row{year: year, month: month, ppm: ppm})
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("co2: %w", ErrNoData)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].year != rows[j].year {
			return rows[i].year < rows[j].year
		}
		return rows[i].month < rows[j].month
	})

	last := rows[len(rows)-1]
	r := snapshot.NewReading("co2", CO2Source)
	r.Metrics[snapshot.CO2PPM] = snapshot.Num(last.ppm)
	r.Metrics[snapshot.CO2Year] = snapshot.Num(float64(last.year))
	r.Metrics[snapshot.CO2Month] = snapshot.Num(float64(last.month))

	tail := rows[max(0, len(rows)-co2SeriesLen):]
	pts := make([]snapshot.Point, 0, len(tail))
	for _, row := range tail {
		pts = append(pts, snapshot.Point{
			At:    time.Date(row.year, time.Month(row.month), 15, 0, 0, 0, 0, time.UTC),
			Value: row.ppm,
		})
	}
	r.Series[snapshot.SeriesCO2] = pts
	return r, nil
}
