package render

import (
	"fmt"
	"html"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/hazyhaar/climateboard/internal/snapshot"
)

// Placeholder texts.
const (
	Dash = "—"
	NA   = "N/A"
)

// Charts names the chart files published alongside the page. An empty name
// means the chart is unavailable this run.
type Charts struct {
	CO2    string
	Arctic string
}

type co2View struct {
	Value  string
	Raw    string // plain number for the count-up, empty when unavailable
	Date   string
	Source string
	Chart  string
}

type seaLevelView struct {
	Rise   bool // prefix the value with a plus sign
	Inches string
	CM     string
	Source string
}

type arcticView struct {
	Value  string
	Date   string
	Source string
	Chart  string
}

type warningsView struct {
	Value  string
	Titles string
	Source string
}

type textView struct {
	Value  string
	Source string
}

type ohcView struct {
	Value  string
	Units  string
	Year   string
	Source string
}

type firesView struct {
	Value       string
	Description string
	Source      string
}

// pageView is everything the templates read. All strings are final; the
// templates only substitute and branch on presence.
type pageView struct {
	Title      string
	Generated  string
	CO2        co2View
	SeaLevel   seaLevelView
	Arctic     arcticView
	Warnings   warningsView
	Dublin     textView
	OHC        ohcView
	Fires      firesView
	Scenarios  []scenario
	Projection scenario
	Solutions  []solution
	Cities     []city
	Sources    []link
}

// formatter renders numbers with English digit grouping.
type formatter struct {
	p *message.Printer
}

func newFormatter() formatter {
	return formatter{p: message.NewPrinter(language.English)}
}

// number formats name with decimals digits, or Dash when unavailable.
func (f formatter) number(s *snapshot.Snapshot, name string, decimals int) string {
	v, ok := s.Number(name)
	if !ok {
		return Dash
	}
	return f.p.Sprintf("%."+strconv.Itoa(decimals)+"f", v)
}

// integer formats name as a grouped integer, or Dash when unavailable.
func (f formatter) integer(s *snapshot.Snapshot, name string) string {
	v, ok := s.Number(name)
	if !ok {
		return Dash
	}
	return f.p.Sprintf("%d", int64(v))
}

// plainInt formats name without grouping (years), or NA.
func plainInt(s *snapshot.Snapshot, name string) string {
	v, ok := s.Number(name)
	if !ok {
		return NA
	}
	return strconv.FormatInt(int64(v), 10)
}

func (r *Renderer) view(s *snapshot.Snapshot, charts Charts) pageView {
	f := r.fmt
	v := pageView{
		Title:      r.opts.Title,
		Generated:  s.GeneratedAt.UTC().Format("2006-01-02 15:04") + " UTC",
		Scenarios:  scenarios,
		Projection: defaultScenario(),
		Solutions:  solutions,
		Cities:     cities,
	}

	v.CO2 = co2View{
		Value:  f.number(s, snapshot.CO2PPM, 2),
		Date:   NA,
		Source: s.Sources["co2"],
		Chart:  charts.CO2,
	}
	if ppm, ok := s.Number(snapshot.CO2PPM); ok {
		v.CO2.Raw = strconv.FormatFloat(ppm, 'f', 2, 64)
	}
	if y, ok := s.Number(snapshot.CO2Year); ok {
		v.CO2.Date = fmt.Sprintf("%d", int(y))
		if m, ok := s.Number(snapshot.CO2Month); ok {
			v.CO2.Date += fmt.Sprintf("-%02d", int(m))
		}
	}

	v.SeaLevel = seaLevelView{Inches: Dash, CM: Dash, Source: s.Sources["sealevel"]}
	if mm, ok := s.Number(snapshot.SeaLevelMM); ok {
		v.SeaLevel.Rise = mm > 0
		v.SeaLevel.Inches = fmt.Sprintf("%.1f inches", mm/25.4)
		v.SeaLevel.CM = fmt.Sprintf("about %.1f cm", mm/10)
	}

	v.Arctic = arcticView{
		Value:  f.number(s, snapshot.ArcticExtent, 2),
		Date:   orNA(s.Text(snapshot.ArcticDate)),
		Source: s.Sources["nsidc"],
		Chart:  charts.Arctic,
	}

	v.Warnings = warningsView{
		Value:  f.integer(s, snapshot.WarningsCount),
		Titles: Dash,
		Source: s.Sources["warnings"],
	}
	if t := s.Text(snapshot.WarningsTitles); t != "" {
		parts := strings.Split(t, snapshot.TitlesSeparator)
		for i, p := range parts {
			parts[i] = r.plain(p)
		}
		v.Warnings.Titles = strings.Join(parts, ", ")
	}

	v.Dublin = textView{Value: orDash(r.plain(s.Text(snapshot.DublinNote))), Source: s.Sources["psmsl"]}

	v.OHC = ohcView{
		Value:  f.number(s, snapshot.OHCValue, 2),
		Units:  s.Text(snapshot.OHCUnits),
		Year:   plainInt(s, snapshot.OHCYear),
		Source: s.Sources["ohc"],
	}

	v.Fires = firesView{
		Value:       f.integer(s, snapshot.FiresCount),
		Description: r.plain(s.Text(snapshot.FiresDesc)),
		Source:      s.Sources["fires"],
	}

	for _, so := range sourceOrder {
		if u, ok := s.Sources[so.feed]; ok && u != "" {
			v.Sources = append(v.Sources, link{Name: so.name, URL: u})
		}
	}
	return v
}

// plain strips any markup from feed-supplied text. The sanitiser
// entity-encodes its output; the templates escape again, so decode here.
func (r *Renderer) plain(s string) string {
	return strings.TrimSpace(html.UnescapeString(r.policy.Sanitize(s)))
}

func orNA(s string) string {
	if s == "" {
		return NA
	}
	return s
}

func orDash(s string) string {
	if s == "" {
		return Dash
	}
	return s
}
