// Package influx pushes the numeric metrics of a snapshot to InfluxDB as a
// single point, so the readings can be graphed over time outside the page.
package influx

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/hazyhaar/climateboard/internal/snapshot"
)

// ErrNotConfigured is returned by New when URL, Org or Bucket is missing.
var ErrNotConfigured = errors.New("influx: not configured")

// Config holds the InfluxDB connection settings.
type Config struct {
	URL    string
	Token  string
	Org    string
	Bucket string
	// Measurement is the point name. Default: "climate_snapshot".
	Measurement string
	// Tags are attached to every point.
	Tags map[string]string
	// Timeout bounds one write. Default: 10s.
	Timeout time.Duration
	Logger  *slog.Logger
}

func (c *Config) defaults() {
	if c.Measurement == "" {
		c.Measurement = "climate_snapshot"
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Enabled reports whether enough is set to attempt a connection.
func (c Config) Enabled() bool {
	return c.URL != "" && c.Org != "" && c.Bucket != ""
}

type pointWriter interface {
	WritePoint(ctx context.Context, point ...*write.Point) error
}

// Exporter writes snapshots to one bucket.
type Exporter struct {
	cfg    Config
	client influxdb2.Client
	writer pointWriter
}

// New creates an Exporter. No connection is made until Export.
func New(cfg Config) (*Exporter, error) {
	if !cfg.Enabled() {
		return nil, ErrNotConfigured
	}
	cfg.defaults()
	client := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token,
		influxdb2.DefaultOptions().SetHTTPRequestTimeout(uint(cfg.Timeout.Seconds())))
	return &Exporter{
		cfg:    cfg,
		client: client,
		writer: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
	}, nil
}

// Export writes one point for snap. A snapshot without any usable number
// writes nothing.
func (e *Exporter) Export(ctx context.Context, snap *snapshot.Snapshot) error {
	p := Point(e.cfg.Measurement, e.cfg.Tags, snap)
	if p == nil {
		e.cfg.Logger.Info("influx: no numeric metrics, skipping")
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()
	if err := e.writer.WritePoint(ctx, p); err != nil {
		return fmt.Errorf("influx: write: %w", err)
	}
	e.cfg.Logger.Info("influx: point written", "measurement", e.cfg.Measurement,
		"fields", len(p.FieldList()))
	return nil
}

// Close releases the client.
func (e *Exporter) Close() {
	if e.client != nil {
		e.client.Close()
	}
}

// Point builds the point for snap: every numeric, non-placeholder metric
// becomes a float field, stamped with GeneratedAt. Nil when there is none.
func Point(measurement string, tags map[string]string, snap *snapshot.Snapshot) *write.Point {
	if snap == nil {
		return nil
	}
	fields := make(map[string]interface{})
	for _, name := range snap.Names() {
		v := snap.Metrics[name]
		if v.Placeholder || v.Text != "" {
			continue
		}
		fields[name] = v.Number
	}
	if len(fields) == 0 {
		return nil
	}
	if tags == nil {
		tags = map[string]string{}
	}
	return influxdb2.NewPoint(measurement, tags, fields, snap.GeneratedAt)
}
