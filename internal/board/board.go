// Package board runs one dashboard build: fetch every feed in order, draw
// the charts, render and verify the page, publish it, then record the run.
//
// Feed failures never abort a build; the feed's placeholder is merged
// instead. Render or verification failures abort before anything is written,
// so the previously published site stays in place.
package board

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hazyhaar/climateboard/internal/chart"
	"github.com/hazyhaar/climateboard/internal/feeds"
	"github.com/hazyhaar/climateboard/internal/history"
	"github.com/hazyhaar/climateboard/internal/publish"
	"github.com/hazyhaar/climateboard/internal/render"
	"github.com/hazyhaar/climateboard/internal/snapshot"
)

// Recorder stores finished runs.
type Recorder interface {
	RecordRun(ctx context.Context, runID string, snap *snapshot.Snapshot) (string, error)
}

// Exporter pushes metrics to an external store.
type Exporter interface {
	Export(ctx context.Context, snap *snapshot.Snapshot) error
}

// Config wires a Board.
type Config struct {
	// Feeds are fetched in slice order.
	Feeds []feeds.Feed
	// Disabled feeds contribute their placeholder without a request.
	Disabled map[string]bool
	Getter   feeds.Getter

	Renderer  *render.Renderer
	Publisher *publish.Publisher
	// Digest, when set, adds a Markdown summary to the published files.
	Digest  *render.MarkdownDigest
	SiteURL string
	// NoCharts skips PNG rendering; the page shows its chart fallback.
	NoCharts bool

	// History and Influx are optional; their failures are logged only.
	History Recorder
	Influx  Exporter

	Now   func() time.Time
	NewID func() string
}

func (c *Config) defaults() {
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.NewID == nil {
		c.NewID = history.NewRunID
	}
}

// Result describes a finished build.
type Result struct {
	RunID    string
	Snapshot *snapshot.Snapshot
	Files    []string
	Failed   []string
}

// Board runs builds.
type Board struct {
	cfg    Config
	logger *slog.Logger
}

// New creates a Board. Renderer and Publisher are required for Build.
func New(cfg Config, logger *slog.Logger) *Board {
	cfg.defaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Board{cfg: cfg, logger: logger}
}

// Snapshot runs the fetch phase only.
func (b *Board) Snapshot(ctx context.Context) *snapshot.Snapshot {
	snap := snapshot.New(b.cfg.Now())
	for _, f := range b.cfg.Feeds {
		name := f.Name()
		if b.cfg.Disabled[name] {
			snap.Merge(f.Placeholder())
			snap.Record(snapshot.FeedStatus{Feed: name, Disabled: true})
			b.logger.Info("board: feed disabled", "feed", name)
			continue
		}

		start := time.Now()
		r, err := f.Fetch(ctx, b.cfg.Getter)
		st := snapshot.FeedStatus{Feed: name, Duration: time.Since(start)}
		switch {
		case err == nil:
			snap.Merge(r)
			st.OK = true
			st.URL = r.URL
			b.logger.Debug("board: feed ok", "feed", name, "url", r.URL,
				"duration_ms", st.Duration.Milliseconds())
		case errors.Is(err, feeds.ErrNotConfigured):
			snap.Merge(f.Placeholder())
			st.Error = err.Error()
			b.logger.Info("board: feed not configured", "feed", name, "error", err)
		default:
			snap.Merge(f.Placeholder())
			st.Error = err.Error()
			b.logger.Warn("board: feed failed, using placeholder", "feed", name, "error", err)
		}
		snap.Record(st)
	}
	return snap
}

// Build runs a full build and publishes the result.
func (b *Board) Build(ctx context.Context) (*Result, error) {
	if b.cfg.Renderer == nil || b.cfg.Publisher == nil {
		return nil, fmt.Errorf("board: renderer and publisher are required")
	}
	runID := b.cfg.NewID()
	logger := b.logger.With("run_id", runID)

	snap := b.Snapshot(ctx)

	var (
		files  []publish.File
		charts render.Charts
	)
	if !b.cfg.NoCharts {
		if data := b.drawChart(logger, chart.CO2, snap.Series[snapshot.SeriesCO2]); data != nil {
			charts.CO2 = chart.CO2File
			files = append(files, publish.File{Name: chart.CO2File, Data: data})
		}
		if data := b.drawChart(logger, chart.Arctic, snap.Series[snapshot.SeriesArctic]); data != nil {
			charts.Arctic = chart.ArcticFile
			files = append(files, publish.File{Name: chart.ArcticFile, Data: data})
		}
	}

	page, err := b.cfg.Renderer.Render(snap, charts)
	if err != nil {
		return nil, fmt.Errorf("board: %w", err)
	}
	if err := render.Verify(page); err != nil {
		return nil, fmt.Errorf("board: %w", err)
	}

	if b.cfg.Digest != nil {
		md, err := b.cfg.Digest.Convert(page, b.cfg.SiteURL)
		if err != nil {
			logger.Warn("board: digest skipped", "error", err)
		} else {
			files = append(files, publish.File{Name: render.DigestFile, Data: []byte(md)})
		}
	}
	files = append(files, publish.File{Name: publish.Index, Data: page})

	if err := b.cfg.Publisher.Publish(files); err != nil {
		return nil, fmt.Errorf("board: %w", err)
	}

	res := &Result{RunID: runID, Snapshot: snap, Failed: snap.Failed()}
	for _, f := range files {
		res.Files = append(res.Files, f.Name)
	}

	if b.cfg.History != nil {
		if _, err := b.cfg.History.RecordRun(ctx, runID, snap); err != nil {
			logger.Error("board: history record failed", "error", err)
		}
	}
	if b.cfg.Influx != nil {
		if err := b.cfg.Influx.Export(ctx, snap); err != nil {
			logger.Error("board: influx export failed", "error", err)
		}
	}

	logger.Info("board: build complete", "files", len(res.Files),
		"placeholders", snap.PlaceholderCount(), "failed_feeds", res.Failed)
	return res, nil
}

func (b *Board) drawChart(logger *slog.Logger, spec chart.Spec, pts []snapshot.Point) []byte {
	if len(pts) == 0 {
		return nil
	}
	data, err := chart.Render(spec, pts)
	if err != nil {
		logger.Warn("board: chart unavailable", "chart", spec.Title, "error", err)
		return nil
	}
	return data
}
