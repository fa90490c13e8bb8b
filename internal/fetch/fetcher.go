// Package fetch performs the single-attempt HTTP GETs behind every data feed.
//
// There are no retries. A list of mirrors is walked once, in order, each URL
// being a distinct endpoint for the same dataset.
package fetch

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// ErrNoURLs is returned by First when given an empty URL list.
var ErrNoURLs = errors.New("fetch: no urls")

// Result contains the outcome of a fetch.
type Result struct {
	URL        string
	Body       []byte // decompressed when the payload was gzip
	StatusCode int
	Hash       string // SHA-256 of Body
}

// Config configures the fetcher.
type Config struct {
	Timeout   time.Duration // per request. Default: 30s.
	MaxBytes  int64         // max body size, before and after gunzip. Default: 10MB.
	UserAgent string
	// URLValidator runs before every request and redirect.
	// Default: ValidateURL.
	URLValidator func(string) error
	Logger       *slog.Logger
}

func (c *Config) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = 10 * 1024 * 1024
	}
	if c.UserAgent == "" {
		c.UserAgent = "climateboard/1.0 (+scheduled build)"
	}
	if c.URLValidator == nil {
		c.URLValidator = ValidateURL
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Fetcher performs HTTP GETs with a fixed timeout and body cap.
type Fetcher struct {
	client *http.Client
	config Config
}

// New creates a Fetcher with URL validation on redirects.
func New(cfg Config) *Fetcher {
	cfg.defaults()
	validate := cfg.URLValidator
	return &Fetcher{
		client: &http.Client{
			Timeout: cfg.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return fmt.Errorf("too many redirects (%d)", len(via))
				}
				if err := validate(req.URL.String()); err != nil {
					return fmt.Errorf("redirect blocked: %w", err)
				}
				return nil
			},
		},
		config: cfg,
	}
}

// Get retrieves rawURL once. Any status outside 2xx is an error.
func (f *Fetcher) Get(ctx context.Context, rawURL string) (*Result, error) {
	if err := f.config.URLValidator(rawURL); err != nil {
		return nil, fmt.Errorf("fetch: url blocked: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch: new request: %w", err)
	}
	req.Header.Set("User-Agent", f.config.UserAgent)

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &Result{URL: rawURL, StatusCode: resp.StatusCode}, fmt.Errorf("fetch: http %d", resp.StatusCode)
	}

	body, err := readCapped(resp.Body, f.config.MaxBytes)
	if err != nil {
		return nil, fmt.Errorf("fetch: read body: %w", err)
	}

	if isGzip(body) {
		zr, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("fetch: gzip: %w", err)
		}
		body, err = readCapped(zr, f.config.MaxBytes)
		zr.Close()
		if err != nil {
			return nil, fmt.Errorf("fetch: gunzip: %w", err)
		}
	}

	f.config.Logger.Debug("fetch: ok", "url", rawURL, "bytes", len(body),
		"duration_ms", time.Since(start).Milliseconds())

	return &Result{
		URL:        rawURL,
		Body:       body,
		StatusCode: resp.StatusCode,
		Hash:       fmt.Sprintf("%x", sha256.Sum256(body)),
	}, nil
}

// Accept inspects a successful response. A non-nil error sends First on to
// the next URL, as if the request itself had failed.
type Accept func(*Result) error

// First tries each URL once, in order, and returns the first response that
// both succeeds and passes accept (nil accepts everything). When every URL
// fails the last error is returned.
func (f *Fetcher) First(ctx context.Context, urls []string, accept Accept) (*Result, error) {
	if len(urls) == 0 {
		return nil, ErrNoURLs
	}
	var lastErr error
	for _, u := range urls {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res, err := f.Get(ctx, u)
		if err == nil && accept != nil {
			if aerr := accept(res); aerr != nil {
				err = fmt.Errorf("fetch: %s: %w", u, aerr)
			}
		}
		if err == nil {
			return res, nil
		}
		f.config.Logger.Debug("fetch: endpoint failed", "url", u, "error", err)
		lastErr = err
	}
	return nil, lastErr
}

// isGzip sniffs the gzip magic bytes. A ".gz" URL whose body was already
// decoded by the transport is read as plain text.
func isGzip(body []byte) bool {
	return len(body) >= 2 && body[0] == 0x1f && body[1] == 0x8b
}
