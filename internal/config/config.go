// Package config loads the climateboard settings from a YAML file, an
// optional .env file and the process environment, in that order of
// increasing precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/climateboard/internal/feeds"
	"github.com/hazyhaar/climateboard/internal/fetch"
)

// Feed names in build order.
var FeedOrder = []string{"co2", "warnings", "sealevel", "psmsl", "nsidc", "ohc", "fires"}

// Environment variables that override the file.
const (
	EnvOutDir       = "CLIMATEBOARD_OUT_DIR"
	EnvHistoryDB    = "CLIMATEBOARD_HISTORY_DB"
	EnvFIRMSKey     = "FIRMS_MAP_KEY"
	EnvInfluxURL    = "INFLUXDB_URL"
	EnvInfluxToken  = "INFLUXDB_TOKEN"
	EnvInfluxOrg    = "INFLUXDB_ORG"
	EnvInfluxBucket = "INFLUXDB_BUCKET"
	EnvLogLevel     = "LOG_LEVEL"
)

// ErrInvalid is wrapped by Validate.
var ErrInvalid = errors.New("config: invalid")

// Config is the top-level configuration.
type Config struct {
	OutDir   string `yaml:"out_dir"`
	Title    string `yaml:"title"`
	SiteURL  string `yaml:"site_url"`
	Digest   bool   `yaml:"digest"`
	NoCharts bool   `yaml:"no_charts"`
	LogLevel string `yaml:"log_level"`

	Fetch   FetchConfig           `yaml:"fetch"`
	Feeds   map[string]FeedConfig `yaml:"feeds"`
	History HistoryConfig         `yaml:"history"`
	Influx  InfluxConfig          `yaml:"influx"`
}

// FetchConfig controls the HTTP client.
type FetchConfig struct {
	Timeout   time.Duration `yaml:"timeout"`
	MaxBytes  int64         `yaml:"max_bytes"`
	UserAgent string        `yaml:"user_agent"`
}

// FeedConfig overrides one feed. Unset fields keep the built-in defaults.
type FeedConfig struct {
	Enabled *bool    `yaml:"enabled"`
	URLs    []string `yaml:"urls"`
	// MapKey is the FIRMS key (fires only).
	MapKey string `yaml:"map_key"`
	// Value replaces a static figure (sealevel only, millimetres).
	Value float64 `yaml:"value"`
}

// HistoryConfig enables the SQLite run log when Path is set.
type HistoryConfig struct {
	Path string `yaml:"path"`
}

// InfluxConfig enables metric export when URL, Org and Bucket are set.
type InfluxConfig struct {
	URL    string `yaml:"url"`
	Token  string `yaml:"token"`
	Org    string `yaml:"org"`
	Bucket string `yaml:"bucket"`
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// LoadFile reads a YAML configuration file and applies defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// Load builds the effective configuration: path (optional), then envFile
// (optional), then the environment. The result is validated.
func Load(path, envFile string) (*Config, error) {
	cfg := Default()
	if path != "" {
		var err error
		if cfg, err = LoadFile(path); err != nil {
			return nil, err
		}
	}
	if envFile != "" {
		// Existing variables win over the file.
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("config: env file: %w", err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.OutDir == "" {
		c.OutDir = "site"
	}
	if c.Title == "" {
		c.Title = "Climate Change Board"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Fetch.Timeout <= 0 {
		c.Fetch.Timeout = 30 * time.Second
	}
	if c.Fetch.MaxBytes <= 0 {
		c.Fetch.MaxBytes = 10 << 20
	}
	if c.Feeds == nil {
		c.Feeds = make(map[string]FeedConfig)
	}
}

func (c *Config) applyEnv() {
	set := func(dst *string, key string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	set(&c.OutDir, EnvOutDir)
	set(&c.History.Path, EnvHistoryDB)
	set(&c.Influx.URL, EnvInfluxURL)
	set(&c.Influx.Token, EnvInfluxToken)
	set(&c.Influx.Org, EnvInfluxOrg)
	set(&c.Influx.Bucket, EnvInfluxBucket)
	set(&c.LogLevel, EnvLogLevel)

	if v := os.Getenv(EnvFIRMSKey); v != "" {
		fc := c.Feeds["fires"]
		fc.MapKey = v
		c.Feeds["fires"] = fc
	}
}

// Validate checks names, URLs and levels.
func (c *Config) Validate() error {
	var problems []string
	if c.OutDir == "" {
		problems = append(problems, "out_dir is empty")
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		problems = append(problems, err.Error())
	}
	if c.SiteURL != "" {
		if _, err := fetch.CheckScheme(c.SiteURL); err != nil {
			problems = append(problems, "site_url: "+err.Error())
		}
	}
	for name, fc := range c.Feeds {
		if !known(name) {
			problems = append(problems, fmt.Sprintf("unknown feed %q", name))
			continue
		}
		for _, u := range fc.URLs {
			if name == "fires" {
				u = strings.ReplaceAll(u, "{key}", "k")
			}
			if _, err := fetch.CheckScheme(u); err != nil {
				problems = append(problems, fmt.Sprintf("feeds.%s: %s", name, err))
			}
		}
	}
	if c.Influx.URL != "" {
		if _, err := fetch.CheckScheme(c.Influx.URL); err != nil {
			problems = append(problems, "influx.url: "+err.Error())
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}

// FeedEnabled reports whether name should be fetched. Feeds are on unless
// explicitly disabled.
func (c *Config) FeedEnabled(name string) bool {
	fc, ok := c.Feeds[name]
	return !ok || fc.Enabled == nil || *fc.Enabled
}

// BuildFeeds returns every feed in build order with its configured
// endpoints.
func (c *Config) BuildFeeds() []feeds.Feed {
	urls := func(name string, def []string) []string {
		if u := c.Feeds[name].URLs; len(u) > 0 {
			return u
		}
		return def
	}
	fires := feeds.Fires{MapKey: c.Feeds["fires"].MapKey}
	if u := c.Feeds["fires"].URLs; len(u) > 0 {
		fires.URLTemplate = u[0]
	}
	return []feeds.Feed{
		feeds.CO2{URLs: urls("co2", feeds.DefaultCO2URLs)},
		feeds.Warnings{URLs: urls("warnings", feeds.DefaultWarningsURLs)},
		feeds.SeaLevel{MM: c.Feeds["sealevel"].Value},
		feeds.TideGauge{},
		feeds.SeaIce{URLs: urls("nsidc", feeds.DefaultSeaIceURLs)},
		feeds.OceanHeat{URLs: urls("ohc", feeds.DefaultOceanHeatURLs)},
		fires,
	}
}

// DisabledFeeds returns the set of feeds switched off in the file.
func (c *Config) DisabledFeeds() map[string]bool {
	out := make(map[string]bool)
	for _, name := range FeedOrder {
		if !c.FeedEnabled(name) {
			out[name] = true
		}
	}
	return out
}

// FetcherConfig returns the fetcher settings.
func (c *Config) FetcherConfig(logger *slog.Logger) fetch.Config {
	return fetch.Config{
		Timeout:   c.Fetch.Timeout,
		MaxBytes:  c.Fetch.MaxBytes,
		UserAgent: c.Fetch.UserAgent,
		Logger:    logger,
	}
}

// ParseLevel maps debug, info, warn and error to slog levels.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}

func known(name string) bool {
	for _, n := range FeedOrder {
		if n == name {
			return true
		}
	}
	return false
}
