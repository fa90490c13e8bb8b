package uitest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// Viewport is a device size the dashboard must work on.
type Viewport struct {
	Name   string
	Width  int
	Height int
	Mobile bool
}

// Device viewports.
var (
	Desktop = Viewport{Name: "desktop", Width: 1280, Height: 720}
	Tablet  = Viewport{Name: "tablet", Width: 768, Height: 1024, Mobile: true}
	Mobile  = Viewport{Name: "mobile", Width: 375, Height: 667, Mobile: true}

	Viewports = []Viewport{Desktop, Tablet, Mobile}
)

// BrowserConfig configures the browser.
type BrowserConfig struct {
	// RemoteURL is the DevTools WebSocket URL of a running Chrome.
	// Empty launches a local headless Chrome.
	RemoteURL string
	// NavTimeout bounds navigation and load. Default: 30s.
	NavTimeout time.Duration
	Logger     *slog.Logger
}

func (c *BrowserConfig) defaults() {
	if c.NavTimeout <= 0 {
		c.NavTimeout = 30 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Browser owns one Chrome connection.
type Browser struct {
	cfg     BrowserConfig
	browser *rod.Browser
	lnch    *launcher.Launcher
}

// NewBrowser launches Chrome or connects to cfg.RemoteURL.
func NewBrowser(cfg BrowserConfig) (*Browser, error) {
	cfg.defaults()
	log := cfg.Logger

	b := &Browser{cfg: cfg}
	wsURL := cfg.RemoteURL
	if wsURL != "" {
		log.Info("uitest: connecting to remote chrome", "url", wsURL)
	} else {
		l := launcher.New().Headless(true)
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("uitest: launch: %w", err)
		}
		wsURL = u
		b.lnch = l
		log.Info("uitest: launched local chrome", "url", wsURL)
	}

	rb := rod.New().ControlURL(wsURL)
	if err := rb.Connect(); err != nil {
		b.Close()
		return nil, fmt.Errorf("uitest: connect: %w", err)
	}
	b.browser = rb
	return b, nil
}

// Close shuts the browser down.
func (b *Browser) Close() {
	if b.browser != nil {
		b.browser.Close()
		b.browser = nil
	}
	if b.lnch != nil {
		b.lnch.Cleanup()
		b.lnch = nil
	}
}

// Page is one tab at a fixed viewport.
type Page struct {
	*rod.Page
	Viewport Viewport
}

// Open creates a tab sized to vp and loads pageURL.
func (b *Browser) Open(ctx context.Context, pageURL string, vp Viewport) (*Page, error) {
	page, err := b.browser.Page(proto.TargetCreateTarget{URL: ""})
	if err != nil {
		return nil, fmt.Errorf("uitest: create tab: %w", err)
	}
	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             vp.Width,
		Height:            vp.Height,
		DeviceScaleFactor: 1,
		Mobile:            vp.Mobile,
	}); err != nil {
		page.Close()
		return nil, fmt.Errorf("uitest: viewport %s: %w", vp.Name, err)
	}

	navCtx, cancel := context.WithTimeout(ctx, b.cfg.NavTimeout)
	defer cancel()
	if err := page.Context(navCtx).Navigate(pageURL); err != nil {
		page.Close()
		return nil, fmt.Errorf("uitest: navigate %s: %w", pageURL, err)
	}
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		page.Close()
		return nil, fmt.Errorf("uitest: wait load %s: %w", pageURL, err)
	}
	return &Page{Page: page.Context(ctx), Viewport: vp}, nil
}

// Click clicks the first element matching selector.
func (p *Page) Click(selector string) error {
	el, err := p.Element(selector)
	if err != nil {
		return fmt.Errorf("uitest: find %s: %w", selector, err)
	}
	if err := el.ScrollIntoView(); err != nil {
		return fmt.Errorf("uitest: scroll %s: %w", selector, err)
	}
	return el.Click(proto.InputMouseButtonLeft, 1)
}

// Text returns the trimmed text of the first element matching selector.
func (p *Page) Text(selector string) (string, error) {
	res, err := p.Eval(`(s) => { const e = document.querySelector(s); return e ? e.textContent.trim() : null }`, selector)
	if err != nil {
		return "", fmt.Errorf("uitest: text %s: %w", selector, err)
	}
	if res.Value.Nil() {
		return "", fmt.Errorf("uitest: %s not found", selector)
	}
	return res.Value.Str(), nil
}

// Bool evaluates a JS function returning a boolean.
func (p *Page) Bool(js string, args ...interface{}) (bool, error) {
	res, err := p.Eval(js, args...)
	if err != nil {
		return false, err
	}
	return res.Value.Bool(), nil
}

// Int evaluates a JS function returning a number.
func (p *Page) Int(js string, args ...interface{}) (int, error) {
	res, err := p.Eval(js, args...)
	if err != nil {
		return 0, err
	}
	return res.Value.Int(), nil
}

// HasClass reports whether the first element matching selector has class.
func (p *Page) HasClass(selector, class string) (bool, error) {
	return p.Bool(`(s, c) => { const e = document.querySelector(s); return !!e && e.classList.contains(c) }`, selector, class)
}

// WaitTrue polls js until it returns true or timeout elapses.
func (p *Page) WaitTrue(js string, timeout time.Duration) error {
	return p.Timeout(timeout).Wait(rod.Eval(js))
}

// PressEscape sends the Escape key to the page.
func (p *Page) PressEscape() error {
	return p.Keyboard.Press(input.Escape)
}

// Page-level checks.
const (
	// jsOverflowX is the number of CSS pixels the document overflows the viewport.
	jsOverflowX = `() => Math.max(0, document.documentElement.scrollWidth - window.innerWidth)`
	// jsImagesWithoutAlt counts img elements without a non-empty alt, modal image excluded.
	jsImagesWithoutAlt = `() => Array.from(document.querySelectorAll("img:not(.zoom-image)")).filter(i => !(i.getAttribute("alt") || "").trim()).length`
	// jsUnnamedButtons counts buttons without text or aria-label.
	jsUnnamedButtons = `() => Array.from(document.querySelectorAll("button")).filter(b => !(b.textContent.trim() || b.getAttribute("aria-label"))).length`
)

// OverflowX returns the horizontal overflow in CSS pixels.
func (p *Page) OverflowX() (int, error) { return p.Int(jsOverflowX) }

// ImagesWithoutAlt returns the number of content images lacking alt text.
func (p *Page) ImagesWithoutAlt() (int, error) { return p.Int(jsImagesWithoutAlt) }

// UnnamedButtons returns the number of buttons without an accessible name.
func (p *Page) UnnamedButtons() (int, error) { return p.Int(jsUnnamedButtons) }
