// Package uitest drives a real browser against a built dashboard.
//
// Serve exposes an output directory over HTTP the way a static host would;
// NewBrowser launches (or attaches to) Chrome through rod; Page wraps a tab
// sized to one of the device viewports and offers the checks the dashboard
// tests need.
package uitest

import (
	"net/http"
	"net/http/httptest"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// staticHeaders are the response headers a typical static host adds. There
// is no Content-Security-Policy: the page carries its script and styles inline.
var staticHeaders = [][2]string{
	{"X-Content-Type-Options", "nosniff"},
	{"X-Frame-Options", "DENY"},
	{"Referrer-Policy", "strict-origin-when-cross-origin"},
}

// Handler serves dir with the static headers applied.
func Handler(dir string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	for _, h := range staticHeaders {
		r.Use(middleware.SetHeader(h[0], h[1]))
	}
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.Handle("/*", http.FileServer(http.Dir(dir)))
	return r
}

// Server is a running preview of an output directory.
type Server struct {
	srv *httptest.Server
}

// Serve starts a preview server for dir on a loopback port.
func Serve(dir string) *Server {
	return &Server{srv: httptest.NewServer(Handler(dir))}
}

// URL returns the base URL, without a trailing slash.
func (s *Server) URL() string { return s.srv.URL }

// Close stops the server.
func (s *Server) Close() { s.srv.Close() }
