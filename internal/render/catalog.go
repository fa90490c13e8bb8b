package render

import "fmt"

// metresToInches converts sea level figures for display.
const metresToInches = 39.3701

// scenario is an IPCC AR6 likely range of global mean sea level rise by
// 2050, relative to 1995-2014.
type scenario struct {
	Key     string
	Short   string
	Label   string
	LowM    float64
	HighM   float64
	Checked bool
}

// Low and High are the range bounds in inches, one decimal.
func (s scenario) Low() string  { return fmt.Sprintf("%.1f", s.LowM*metresToInches) }
func (s scenario) High() string { return fmt.Sprintf("%.1f", s.HighM*metresToInches) }

var scenarios = []scenario{
	{Key: "low", Short: "Low", Label: "SSP1-1.9", LowM: 0.15, HighM: 0.23},
	{Key: "mid", Short: "Middle", Label: "SSP2-4.5/5-8.5", LowM: 0.20, HighM: 0.29, Checked: true},
	{Key: "high", Short: "High", Label: "SSP5-8.5", LowM: 0.20, HighM: 0.29},
}

func defaultScenario() scenario {
	for _, s := range scenarios {
		if s.Checked {
			return s
		}
	}
	return scenarios[0]
}

type link struct {
	Name string
	URL  string
}

type solution struct {
	Name    string
	Summary string
	Links   []link
}

var solutions = []solution{
	{
		Name:    "Carbon nanofibre sheets",
		Summary: "Ultra-thin carbon capture materials that absorb CO₂ directly from air.",
		Links: []link{
			{"Nature paper", "https://www.nature.com/articles/s41586-019-1018-4"},
			{"ACS research", "https://pubs.acs.org/doi/10.1021/acs.chemmater.0c00001"},
		},
	},
	{
		Name:    "Advanced battery storage",
		Summary: "Next-generation batteries that make fully renewable grids practical.",
		Links: []link{
			{"Science", "https://www.science.org/doi/10.1126/science.abc2757"},
			{"Nature Energy", "https://www.nature.com/articles/s41560-020-00687-2"},
		},
	},
	{
		Name:    "Ocean carbon capture",
		Summary: "Alkalinity enhancement of seawater to speed up CO₂ uptake.",
		Links: []link{
			{"Nature study", "https://www.nature.com/articles/s41586-021-04341-1"},
			{"ACS research", "https://pubs.acs.org/doi/10.1021/acs.est.1c01205"},
		},
	},
	{
		Name:    "Regenerative agriculture",
		Summary: "Soil carbon sequestration through improved farming practices.",
		Links: []link{
			{"Nature research", "https://www.nature.com/articles/s41586-019-1552-6"},
			{"Science study", "https://www.science.org/doi/10.1126/science.abc2487"},
		},
	},
}

type city struct {
	Name       string
	Population string
	Risk       string
	RiskClass  string
	Impact     string
	Elevation  string
}

var cities = []city{
	{"Miami, Florida", "2.7M", "High", "high", "2050", "2m"},
	{"Dhaka, Bangladesh", "21M", "Critical", "critical", "2030", "4m"},
	{"Amsterdam, Netherlands", "1.1M", "Medium", "medium", "2060", "2m (protected)"},
	{"Jakarta, Indonesia", "10.8M", "High", "high", "2040", "8m"},
}

// sourceOrder fixes the order of the footer links.
var sourceOrder = []struct {
	feed string
	name string
}{
	{"co2", "NOAA GML"},
	{"nsidc", "NSIDC"},
	{"ohc", "NOAA NCEI"},
	{"psmsl", "PSMSL Dublin"},
	{"warnings", "Met Éireann"},
	{"fires", "NASA FIRMS"},
	{"sealevel", "NASA Sea Level"},
}
