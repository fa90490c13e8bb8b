// Command climateboard builds the static climate dashboard.
//
// Usage:
//
//	climateboard -config board.yaml            # fetch, render, publish
//	climateboard -out public -log-level debug  # defaults, custom output dir
//	climateboard -dry-run                      # print the snapshot as JSON
//	climateboard -history 10                   # list the last 10 runs
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/hazyhaar/climateboard/internal/board"
	"github.com/hazyhaar/climateboard/internal/config"
	"github.com/hazyhaar/climateboard/internal/fetch"
	"github.com/hazyhaar/climateboard/internal/history"
	"github.com/hazyhaar/climateboard/internal/influx"
	"github.com/hazyhaar/climateboard/internal/publish"
	"github.com/hazyhaar/climateboard/internal/render"
)

type options struct {
	configPath string
	envFile    string
	outDir     string
	logLevel   string
	dryRun     bool
	history    int
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "path to climateboard YAML config")
	flag.StringVar(&opts.envFile, "env", "", "optional .env file loaded before the environment")
	flag.StringVar(&opts.outDir, "out", "", "output directory (overrides config)")
	flag.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flag.BoolVar(&opts.dryRun, "dry-run", false, "fetch feeds and print the snapshot, write nothing")
	flag.IntVar(&opts.history, "history", 0, "print the last N runs from the history database and exit")
	flag.Parse()

	cfg, err := config.Load(opts.configPath, opts.envFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, "climateboard:", err)
		os.Exit(2)
	}
	if opts.outDir != "" {
		cfg.OutDir = opts.outDir
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}
	level, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, "climateboard:", err)
		os.Exit(2)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, cfg, opts, os.Stdout); err != nil {
		logger.Error("climateboard: fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, cfg *config.Config, opts options, stdout io.Writer) error {
	if opts.history > 0 {
		return printHistory(ctx, cfg, opts.history, stdout)
	}

	bcfg := board.Config{
		Feeds:    cfg.BuildFeeds(),
		Disabled: cfg.DisabledFeeds(),
		Getter:   fetch.New(cfg.FetcherConfig(logger.With("component", "fetch"))),
		SiteURL:  cfg.SiteURL,
		NoCharts: cfg.NoCharts,
	}

	if opts.dryRun {
		snap := board.New(bcfg, logger.With("component", "board")).Snapshot(ctx)
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	}

	renderer, err := render.New(render.Options{Title: cfg.Title, Logger: logger.With("component", "render")})
	if err != nil {
		return err
	}
	bcfg.Renderer = renderer
	bcfg.Publisher = publish.New(cfg.OutDir, logger.With("component", "publish"))
	if cfg.Digest {
		bcfg.Digest = render.NewMarkdownDigest()
	}

	if cfg.History.Path != "" {
		store, err := history.Open(cfg.History.Path)
		if err != nil {
			logger.Error("climateboard: history disabled", "error", err)
		} else {
			defer store.Close()
			bcfg.History = store
		}
	}

	icfg := influx.Config{
		URL:    cfg.Influx.URL,
		Token:  cfg.Influx.Token,
		Org:    cfg.Influx.Org,
		Bucket: cfg.Influx.Bucket,
		Logger: logger.With("component", "influx"),
	}
	if icfg.Enabled() {
		exp, err := influx.New(icfg)
		if err != nil {
			logger.Error("climateboard: influx disabled", "error", err)
		} else {
			defer exp.Close()
			bcfg.Influx = exp
		}
	}

	res, err := board.New(bcfg, logger.With("component", "board")).Build(ctx)
	if err != nil {
		return err
	}
	logger.Info("climateboard: published", "dir", cfg.OutDir, "run_id", res.RunID,
		"files", strings.Join(res.Files, ","))
	return nil
}

func printHistory(ctx context.Context, cfg *config.Config, n int, stdout io.Writer) error {
	if cfg.History.Path == "" {
		return fmt.Errorf("history: no database configured (history.path or %s)", config.EnvHistoryDB)
	}
	store, err := history.Open(cfg.History.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.RecentRuns(ctx, n)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tGENERATED\tPLACEHOLDERS\tFAILED")
	for _, r := range runs {
		failed := strings.Join(r.FailedFeeds, ",")
		if failed == "" {
			failed = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", r.ID, r.GeneratedAt.Format("2006-01-02 15:04"), r.Placeholders, failed)
	}
	return tw.Flush()
}
