package board

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"
	"testing/fstest"
	"time"

	"github.com/hazyhaar/climateboard/internal/chart"
	"github.com/hazyhaar/climateboard/internal/feeds"
	"github.com/hazyhaar/climateboard/internal/fetch"
	"github.com/hazyhaar/climateboard/internal/history"
	"github.com/hazyhaar/climateboard/internal/publish"
	"github.com/hazyhaar/climateboard/internal/render"
	"github.com/hazyhaar/climateboard/internal/snapshot"
)

const (
	co2CSV = `# NOAA GML
year,month,decimal date,average,deseasonalized,ndays,sdev,unc
2024,11,2024.875,423.81,425.50,27,0.39,0.14
2024,12,2024.958,425.40,425.99,30,0.51,0.18
2025,1,2025.042,426.65,426.30,29,0.57,0.20
`
	warningsJSON = `{"warnings":[{"title":"Status Yellow - Wind warning","status":"active"}]}`
	seaIceCSV    = `Year, Month, Day,     Extent,    Missing, Source Data
2025,     2,  26,     13.950,      0.000, x
2025,     2,  27,     14.012,      0.000, x
2025,     2,  28,     14.134,      0.000, x
`
	ohcCSV   = "Year,WO\n2023,26.1\n2024,27.4\n"
	firesCSV = "latitude,longitude,brightness\n1,2,300\n3,4,310\n5,6,320\n"
)

// fixture serves every feed and counts requests per path.
type fixture struct {
	srv *httptest.Server

	mu   sync.Mutex
	hits map[string]int
	fail map[string]bool
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{hits: map[string]int{}, fail: map[string]bool{}}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.hits[r.URL.Path]++
		failing := f.fail[r.URL.Path]
		f.mu.Unlock()
		if failing {
			http.Error(w, "down", http.StatusServiceUnavailable)
			return
		}
		switch r.URL.Path {
		case "/co2.csv":
			w.Write([]byte(co2CSV))
		case "/warnings.json":
			w.Write([]byte(warningsJSON))
		case "/nsidc.csv":
			w.Write([]byte(seaIceCSV))
		case "/ohc.csv":
			w.Write([]byte(ohcCSV))
		case "/fires/testkey/world/1":
			w.Write([]byte(firesCSV))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fixture) failPath(path string) {
	f.mu.Lock()
	f.fail[path] = true
	f.mu.Unlock()
}

func (f *fixture) count(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[path]
}

func (f *fixture) feeds() []feeds.Feed {
	u := f.srv.URL
	return []feeds.Feed{
		feeds.CO2{URLs: []string{u + "/co2.csv"}},
		feeds.Warnings{URLs: []string{u + "/warnings.json"}},
		feeds.SeaLevel{},
		feeds.TideGauge{},
		feeds.SeaIce{URLs: []string{u + "/nsidc.csv"}},
		feeds.OceanHeat{URLs: []string{u + "/ohc.csv"}},
		feeds.Fires{URLTemplate: u + "/fires/{key}/world/1", MapKey: "testkey"},
	}
}

func (f *fixture) config(t *testing.T, out string) Config {
	t.Helper()
	r, err := render.New(render.Options{})
	if err != nil {
		t.Fatalf("renderer: %v", err)
	}
	return Config{
		Feeds:     f.feeds(),
		Getter:    fetch.New(fetch.Config{Timeout: 5 * time.Second, URLValidator: func(string) error { return nil }}),
		Renderer:  r,
		Publisher: publish.New(out, nil),
		Now:       func() time.Time { return time.Date(2025, 3, 1, 6, 0, 0, 0, time.UTC) },
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

type fakeExporter struct {
	snaps []*snapshot.Snapshot
	err   error
}

func (f *fakeExporter) Export(_ context.Context, s *snapshot.Snapshot) error {
	f.snaps = append(f.snaps, s)
	return f.err
}

type failingRecorder struct{}

func (failingRecorder) RecordRun(context.Context, string, *snapshot.Snapshot) (string, error) {
	return "", errors.New("disk full")
}

func TestBuild_AllFeeds(t *testing.T) {
	// WHAT: With every feed up the page carries the parsed values and both charts.
	// WHY: Feed success means the snapshot value equals the parsed feed value.
	fx := newFixture(t)
	out := t.TempDir()
	cfg := fx.config(t, out)
	hist := history.OpenMemory(t)
	exp := &fakeExporter{}
	cfg.History = hist
	cfg.Influx = exp
	cfg.Digest = render.NewMarkdownDigest()

	res, err := New(cfg, nil).Build(context.Background())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(res.Failed) != 0 {
		t.Errorf("failed feeds: %v", res.Failed)
	}
	if v, _ := res.Snapshot.Number(snapshot.CO2PPM); v != 426.65 {
		t.Errorf("co2: %v", v)
	}
	if v, _ := res.Snapshot.Number(snapshot.FiresCount); v != 3 {
		t.Errorf("fires: %v", v)
	}

	page := readFile(t, filepath.Join(out, publish.Index))
	for _, want := range []string{
		`data-value="426.65"`,
		`Latest: 2025-01`,
		`14.13 million km²`,
		`3 fires`,
		`Status Yellow - Wind warning`,
		`27.40 J × 10^22`,
		`src="` + chart.CO2File + `"`,
		`src="` + chart.ArcticFile + `"`,
	} {
		if !strings.Contains(page, want) {
			t.Errorf("page missing %q", want)
		}
	}
	for _, name := range []string{chart.CO2File, chart.ArcticFile, render.DigestFile} {
		if _, err := os.Stat(filepath.Join(out, name)); err != nil {
			t.Errorf("%s not published: %v", name, err)
		}
	}
	if !strings.Contains(readFile(t, filepath.Join(out, render.DigestFile)), "426.65 ppm") {
		t.Error("digest missing co2 value")
	}

	runs, err := hist.RecentRuns(context.Background(), 5)
	if err != nil || len(runs) != 1 || runs[0].ID != res.RunID {
		t.Errorf("history: %v %v", runs, err)
	}
	if len(exp.snaps) != 1 {
		t.Errorf("influx exports: %d", len(exp.snaps))
	}
}

func TestBuild_FeedFailureUsesPlaceholder(t *testing.T) {
	// WHAT: A failing feed yields its placeholder and the build still publishes.
	// WHY: One feed outage must not take the dashboard down.
	fx := newFixture(t)
	fx.failPath("/co2.csv")
	out := t.TempDir()

	res, err := New(fx.config(t, out), nil).Build(context.Background())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(res.Failed) != 1 || res.Failed[0] != "co2" {
		t.Errorf("failed: %v", res.Failed)
	}
	if !res.Snapshot.IsPlaceholder(snapshot.CO2PPM) {
		t.Error("co2 should be a placeholder")
	}
	if fx.count("/co2.csv") != 1 {
		t.Errorf("co2 requested %d times, want 1", fx.count("/co2.csv"))
	}

	page := readFile(t, filepath.Join(out, publish.Index))
	if !strings.Contains(page, `data-value="">—</span> ppm`) {
		t.Error("co2 placeholder not rendered")
	}
	if !strings.Contains(page, `14.13 million km²`) {
		t.Error("other feeds must still render")
	}
	if n := strings.Count(page, "Chart unavailable this run."); n != 1 {
		t.Errorf("chart fallbacks: %d, want 1", n)
	}
	if _, err := os.Stat(filepath.Join(out, chart.CO2File)); !os.IsNotExist(err) {
		t.Error("co2 chart should not be published")
	}
}

func TestBuild_RendererFailureLeavesSiteUntouched(t *testing.T) {
	// WHAT: A page that fails verification aborts before any file is written.
	// WHY: The previously published site must survive a broken build.
	fx := newFixture(t)
	out := t.TempDir()
	if err := os.WriteFile(filepath.Join(out, publish.Index), []byte("previous"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := fx.config(t, out)
	broken, err := render.New(render.Options{Templates: fstest.MapFS{
		"templates/page.tmpl": {Data: []byte(`{{define "page"}}<html><body>{{.Title}}</body></html>{{end}}`)},
	}})
	if err != nil {
		t.Fatalf("renderer: %v", err)
	}
	cfg.Renderer = broken
	exp := &fakeExporter{}
	cfg.Influx = exp

	_, err = New(cfg, nil).Build(context.Background())
	if !errors.Is(err, render.ErrStructure) {
		t.Fatalf("expected ErrStructure, got %v", err)
	}
	if got := readFile(t, filepath.Join(out, publish.Index)); got != "previous" {
		t.Errorf("index overwritten: %q", got)
	}
	entries, _ := os.ReadDir(out)
	if len(entries) != 1 {
		t.Errorf("output dir has %d entries, want 1", len(entries))
	}
	if len(exp.snaps) != 0 {
		t.Error("failed build must not export")
	}
}

var generated = regexp.MustCompile(`Generated: [0-9: -]+ UTC`)

func TestBuild_Deterministic(t *testing.T) {
	// WHAT: The same feed responses give the same page apart from the timestamp.
	fx := newFixture(t)
	outA, outB := t.TempDir(), t.TempDir()

	cfgA := fx.config(t, outA)
	cfgB := fx.config(t, outB)
	cfgB.Now = func() time.Time { return time.Date(2025, 3, 2, 18, 30, 0, 0, time.UTC) }

	if _, err := New(cfgA, nil).Build(context.Background()); err != nil {
		t.Fatalf("build a: %v", err)
	}
	if _, err := New(cfgB, nil).Build(context.Background()); err != nil {
		t.Fatalf("build b: %v", err)
	}

	a := readFile(t, filepath.Join(outA, publish.Index))
	b := readFile(t, filepath.Join(outB, publish.Index))
	if a == b {
		t.Fatal("timestamps should differ")
	}
	if generated.ReplaceAllString(a, "") != generated.ReplaceAllString(b, "") {
		t.Error("pages differ beyond the timestamp")
	}
	if readFile(t, filepath.Join(outA, chart.CO2File)) != readFile(t, filepath.Join(outB, chart.CO2File)) {
		t.Error("charts differ")
	}
}

func TestBuild_DisabledFeed(t *testing.T) {
	// WHAT: A disabled feed makes no request and shows its placeholder.
	// WHY: Switching a feed off is configuration, not an outage.
	fx := newFixture(t)
	cfg := fx.config(t, t.TempDir())
	cfg.Disabled = map[string]bool{"fires": true}

	res, err := New(cfg, nil).Build(context.Background())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if fx.count("/fires/testkey/world/1") != 0 {
		t.Error("disabled feed was fetched")
	}
	if got := res.Snapshot.Text(snapshot.FiresDesc); got != feeds.FiresUnavailableDescription {
		t.Errorf("fires description: %q", got)
	}
	if len(res.Failed) != 0 {
		t.Errorf("disabled feed counted as failed: %v", res.Failed)
	}
}

func TestBuild_SideEffectFailuresAreNotFatal(t *testing.T) {
	// WHAT: History and export errors are logged, the build still succeeds.
	fx := newFixture(t)
	cfg := fx.config(t, t.TempDir())
	cfg.History = failingRecorder{}
	cfg.Influx = &fakeExporter{err: errors.New("influx down")}

	if _, err := New(cfg, nil).Build(context.Background()); err != nil {
		t.Fatalf("build: %v", err)
	}
}

func TestSnapshot_WritesNothing(t *testing.T) {
	// WHAT: The fetch phase alone records every feed and publishes nothing.
	fx := newFixture(t)
	out := filepath.Join(t.TempDir(), "site")
	cfg := fx.config(t, out)
	cfg.Feeds[6] = feeds.Fires{}

	snap := New(cfg, nil).Snapshot(context.Background())
	if len(snap.Feeds) != 7 {
		t.Fatalf("feed statuses: %d", len(snap.Feeds))
	}
	if got := snap.Failed(); len(got) != 1 || got[0] != "fires" {
		t.Errorf("failed: %v", got)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Error("snapshot must not create the output directory")
	}
}
