package uitest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/hazyhaar/climateboard/internal/board"
	"github.com/hazyhaar/climateboard/internal/feeds"
	"github.com/hazyhaar/climateboard/internal/fetch"
	"github.com/hazyhaar/climateboard/internal/publish"
	"github.com/hazyhaar/climateboard/internal/render"
)

const (
	co2CSV = `year,month,decimal date,average,deseasonalized,ndays,sdev,unc
2024,11,2024.875,423.81,425.50,27,0.39,0.14
2024,12,2024.958,425.40,425.99,30,0.51,0.18
2025,1,2025.042,426.65,426.30,29,0.57,0.20
`
	seaIceCSV = `Year, Month, Day, Extent, Missing, Source Data
2025, 2, 26, 13.950, 0.000, x
2025, 2, 27, 14.012, 0.000, x
2025, 2, 28, 14.134, 0.000, x
`
)

// buildSite runs a full build against local fixture feeds and returns the
// output directory.
func buildSite(t *testing.T) string {
	t.Helper()
	feedSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/co2.csv":
			w.Write([]byte(co2CSV))
		case "/nsidc.csv":
			w.Write([]byte(seaIceCSV))
		case "/warnings.json":
			w.Write([]byte(`{"warnings":[]}`))
		case "/ohc.csv":
			w.Write([]byte("Year,WO\n2024,27.4\n"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer feedSrv.Close()

	renderer, err := render.New(render.Options{})
	if err != nil {
		t.Fatalf("renderer: %v", err)
	}
	out := t.TempDir()
	u := feedSrv.URL
	b := board.New(board.Config{
		Feeds: []feeds.Feed{
			feeds.CO2{URLs: []string{u + "/co2.csv"}},
			feeds.Warnings{URLs: []string{u + "/warnings.json"}},
			feeds.SeaLevel{},
			feeds.TideGauge{},
			feeds.SeaIce{URLs: []string{u + "/nsidc.csv"}},
			feeds.OceanHeat{URLs: []string{u + "/ohc.csv"}},
			feeds.Fires{},
		},
		Getter:    fetch.New(fetch.Config{URLValidator: func(string) error { return nil }}),
		Renderer:  renderer,
		Publisher: publish.New(out, nil),
	}, nil)
	if _, err := b.Build(context.Background()); err != nil {
		t.Fatalf("build: %v", err)
	}
	return out
}

func TestHandler_Headers(t *testing.T) {
	// WHAT: The preview server serves the page with static-host headers and no CSP.
	// WHY: The dashboard script is inline; a CSP would block it in the browser tests.
	dir := t.TempDir()
	if err := os.WriteFile(dir+"/index.html", []byte("<html></html>"), 0o644); err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest("GET", "/", nil)
	w := httptest.NewRecorder()
	Handler(dir).ServeHTTP(w, req)

	if w.Code != 200 {
		t.Fatalf("status: %d", w.Code)
	}
	for header, want := range map[string]string{
		"X-Frame-Options":        "DENY",
		"X-Content-Type-Options": "nosniff",
		"Referrer-Policy":        "strict-origin-when-cross-origin",
	} {
		if got := w.Header().Get(header); got != want {
			t.Errorf("%s: got %q, want %q", header, got, want)
		}
	}
	if w.Header().Get("Content-Security-Policy") != "" {
		t.Error("unexpected CSP header")
	}
	if !strings.Contains(w.Body.String(), "<html>") {
		t.Error("index not served")
	}
}

func TestServe_BuiltSite(t *testing.T) {
	// WHAT: A built site is reachable through the preview server, charts included.
	srv := Serve(buildSite(t))
	defer srv.Close()

	for _, path := range []string{"/", "/co2_24mo.png", "/arctic_extent_365d.png", "/healthz"} {
		resp, err := http.Get(srv.URL() + path)
		if err != nil {
			t.Fatalf("get %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode/100 != 2 {
			t.Errorf("%s: status %d", path, resp.StatusCode)
		}
	}
}

// newBrowser skips unless browser tests are enabled.
func newBrowser(t *testing.T) *Browser {
	t.Helper()
	if os.Getenv("CLIMATEBOARD_UI_TESTS") != "1" {
		t.Skip("set CLIMATEBOARD_UI_TESTS=1 to run browser tests")
	}
	b, err := NewBrowser(BrowserConfig{RemoteURL: os.Getenv("CLIMATEBOARD_CHROME_URL")})
	if err != nil {
		t.Fatalf("browser: %v", err)
	}
	t.Cleanup(b.Close)
	return b
}

func TestDashboard(t *testing.T) {
	// WHAT: The dashboard works on desktop, tablet and mobile viewports.
	// WHY: The page is the product; a broken tab or overflow is a broken release.
	b := newBrowser(t)
	srv := Serve(buildSite(t))
	defer srv.Close()

	for _, vp := range Viewports {
		vp := vp
		t.Run(vp.Name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
			defer cancel()
			page, err := b.Open(ctx, srv.URL()+"/", vp)
			if err != nil {
				t.Fatalf("open: %v", err)
			}
			defer page.Close()

			t.Run("structure", func(t *testing.T) { checkStructure(t, page) })
			t.Run("count_up", func(t *testing.T) { checkCountUp(t, page) })
			t.Run("projection", func(t *testing.T) { checkProjection(t, page) })
			t.Run("about", func(t *testing.T) { checkAbout(t, page) })
			t.Run("tabs", func(t *testing.T) { checkTabs(t, page) })
			t.Run("reveal", func(t *testing.T) { checkReveal(t, page) })
			t.Run("zoom", func(t *testing.T) { checkZoom(t, page) })
			t.Run("layout", func(t *testing.T) { checkLayout(t, page) })
		})
	}
}

func checkStructure(t *testing.T, p *Page) {
	info, err := p.Info()
	if err != nil {
		t.Fatalf("info: %v", err)
	}
	if info.Title != "Climate Change Board — Dashboard" {
		t.Errorf("title: %q", info.Title)
	}
	lang, err := p.Bool(`() => document.documentElement.lang === "en"`)
	if err != nil || !lang {
		t.Errorf("lang attribute: %v %v", lang, err)
	}
	active, err := p.HasClass("section#simple", "active")
	if err != nil || !active {
		t.Errorf("simple tab should be active by default: %v", err)
	}
	selected, err := p.Bool(`() => document.querySelector('.tabbtn[data-tab="simple"]').getAttribute("aria-selected") === "true"`)
	if err != nil || !selected {
		t.Errorf("simple tab button should be selected: %v", err)
	}
	n, err := p.Int(`() => document.querySelectorAll("#simple .tile").length`)
	if err != nil || n != 5 {
		t.Errorf("tiles: %d %v", n, err)
	}
}

func checkCountUp(t *testing.T, p *Page) {
	err := p.WaitTrue(`() => {
		const e = document.querySelector(".tile.pulse .count");
		return !!e && e.textContent.trim() === e.dataset.value;
	}`, 10*time.Second)
	if err != nil {
		t.Fatalf("count-up did not reach its target: %v", err)
	}
	got, _ := p.Text(".tile.pulse .count")
	if got != "426.65" {
		t.Errorf("co2 count: %q", got)
	}
}

func checkProjection(t *testing.T, p *Page) {
	if err := p.Click(`input[name="scn"][value="low"]`); err != nil {
		t.Fatalf("click low: %v", err)
	}
	slr, err := p.Text("#slr")
	if err != nil {
		t.Fatalf("slr: %v", err)
	}
	if !strings.Contains(slr, "(Low)") || !strings.Contains(slr, "5.9–9.1 inches") {
		t.Errorf("low scenario: %q", slr)
	}

	if _, err := p.Eval(`() => {
		const y = document.getElementById("yr");
		y.value = 2040;
		y.dispatchEvent(new Event("input"));
	}`); err != nil {
		t.Fatalf("slider: %v", err)
	}
	slr, _ = p.Text("#slr")
	if !strings.Contains(slr, "By 2040") {
		t.Errorf("slider year: %q", slr)
	}
}

func checkAbout(t *testing.T, p *Page) {
	if err := p.Click("#aboutBtn"); err != nil {
		t.Fatalf("open about: %v", err)
	}
	open, _ := p.Bool(`() => !document.getElementById("aboutPopup").hidden`)
	if !open {
		t.Fatal("about popup did not open")
	}
	if err := p.PressEscape(); err != nil {
		t.Fatalf("escape: %v", err)
	}
	if err := p.WaitTrue(`() => document.getElementById("aboutPopup").hidden`, 5*time.Second); err != nil {
		t.Errorf("about popup did not close: %v", err)
	}
}

func checkTabs(t *testing.T, p *Page) {
	if err := p.Click(`.tabbtn[data-tab="details"]`); err != nil {
		t.Fatalf("click details: %v", err)
	}
	details, _ := p.HasClass("section#details", "active")
	simple, _ := p.HasClass("section#simple", "active")
	if !details || simple {
		t.Errorf("after click: details=%v simple=%v", details, simple)
	}
	selected, _ := p.Bool(`() => document.querySelector('.tabbtn[data-tab="details"]').getAttribute("aria-selected") === "true"`)
	if !selected {
		t.Error("details button should be aria-selected")
	}
}

func checkReveal(t *testing.T, p *Page) {
	if _, err := p.Eval(`() => document.querySelector("#details .card.reveal").scrollIntoView()`); err != nil {
		t.Fatalf("scroll: %v", err)
	}
	if err := p.WaitTrue(`() => document.querySelector("#details .card.reveal").classList.contains("show")`, 5*time.Second); err != nil {
		t.Errorf("card not revealed: %v", err)
	}
}

func checkZoom(t *testing.T, p *Page) {
	if err := p.Click(`.chart[data-chart="co2"] img`); err != nil {
		t.Fatalf("click chart: %v", err)
	}
	if err := p.WaitTrue(`() => document.getElementById("zoomModal").classList.contains("show")`, 5*time.Second); err != nil {
		t.Fatalf("zoom modal did not open: %v", err)
	}
	if err := p.PressEscape(); err != nil {
		t.Fatalf("escape: %v", err)
	}
	if err := p.WaitTrue(`() => !document.getElementById("zoomModal").classList.contains("show")`, 5*time.Second); err != nil {
		t.Errorf("zoom modal did not close: %v", err)
	}
}

func checkLayout(t *testing.T, p *Page) {
	if n, err := p.OverflowX(); err != nil || n > 0 {
		t.Errorf("horizontal overflow on %s: %dpx %v", p.Viewport.Name, n, err)
	}
	if n, err := p.ImagesWithoutAlt(); err != nil || n > 0 {
		t.Errorf("images without alt: %d %v", n, err)
	}
	if n, err := p.UnnamedButtons(); err != nil || n > 0 {
		t.Errorf("buttons without accessible name: %d %v", n, err)
	}
}
