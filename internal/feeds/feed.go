// Package feeds turns the public climate data endpoints into snapshot
// readings.
//
// Each feed knows its endpoints, how to parse their payload, and the
// documented placeholder reading that stands in when the feed is down.
package feeds

import (
	"context"
	"errors"
	"fmt"

	"github.com/hazyhaar/climateboard/internal/fetch"
	"github.com/hazyhaar/climateboard/internal/snapshot"
)

// ErrNoData is returned when a payload parses but holds no usable rows.
var ErrNoData = errors.New("feeds: no usable data")

// ErrNotConfigured is returned by feeds that lack a required setting,
// such as an API key. The caller substitutes the placeholder without
// treating it as an outage.
var ErrNotConfigured = errors.New("feeds: not configured")

// Getter is the part of *fetch.Fetcher the feeds need.
type Getter interface {
	First(ctx context.Context, urls []string, accept fetch.Accept) (*fetch.Result, error)
}

// Feed is one data source.
type Feed interface {
	Name() string
	Fetch(ctx context.Context, g Getter) (*snapshot.Reading, error)
	Placeholder() *snapshot.Reading
}

// firstParsed walks urls through g and returns the reading of the first
// payload that parse accepts.
func firstParsed(ctx context.Context, g Getter, name string, urls []string,
	parse func([]byte) (*snapshot.Reading, error)) (*snapshot.Reading, error) {

	var r *snapshot.Reading
	res, err := g.First(ctx, urls, func(res *fetch.Result) error {
		var perr error
		r, perr = parse(res.Body)
		return perr
	})
	if err != nil {
		return nil, fmt.Errorf("feeds: %s: %w", name, err)
	}
	r.URL = res.URL
	return r, nil
}
