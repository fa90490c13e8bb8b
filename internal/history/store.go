// Package history keeps an append-only SQLite log of dashboard runs: one row
// per run, its metric values and the outcome of each feed. The dashboard
// never reads it back; it exists for operators.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hazyhaar/climateboard/internal/snapshot"
)

// Feed log statuses.
const (
	StatusOK          = "ok"
	StatusPlaceholder = "placeholder"
	StatusDisabled    = "disabled"
)

// ErrNilSnapshot is returned by RecordRun for a nil snapshot.
var ErrNilSnapshot = errors.New("history: nil snapshot")

// NewRunID returns a time-sortable UUIDv7 string.
func NewRunID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Run is one row of the runs table.
type Run struct {
	ID           string
	GeneratedAt  time.Time
	Placeholders int
	FailedFeeds  []string
}

// FeedLogEntry is one feed outcome within a run.
type FeedLogEntry struct {
	RunID        string
	Feed         string
	Status       string
	URL          string
	ErrorMessage string
	DurationMs   int64
	FetchedAt    time.Time
}

// Store wraps the history database.
type Store struct {
	DB    *sql.DB
	newID func() string
}

// Open opens or creates the history database at path.
func Open(path string) (*Store, error) {
	db, err := openDB(path, 10_000)
	if err != nil {
		return nil, err
	}
	return &Store{DB: db, newID: NewRunID}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.DB.Close()
}

// RecordRun stores snap under runID in one transaction. An empty runID gets
// a fresh UUIDv7, which is returned.
func (s *Store) RecordRun(ctx context.Context, runID string, snap *snapshot.Snapshot) (string, error) {
	if snap == nil {
		return "", ErrNilSnapshot
	}
	if runID == "" {
		runID = s.newID()
	}

	body, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("history: marshal snapshot: %w", err)
	}
	at := snap.GeneratedAt.UnixMilli()

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("history: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, generated_at, placeholders, failed_feeds, snapshot_json)
		VALUES (?, ?, ?, ?, ?)`,
		runID, at, snap.PlaceholderCount(), strings.Join(snap.Failed(), ","), string(body),
	); err != nil {
		return "", fmt.Errorf("history: insert run: %w", err)
	}

	for _, name := range snap.Names() {
		v := snap.Metrics[name]
		var num any
		if !v.Placeholder && v.Text == "" {
			num = v.Number
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO readings (run_id, metric, number, text, placeholder)
			VALUES (?, ?, ?, ?, ?)`,
			runID, name, num, v.Text, boolInt(v.Placeholder),
		); err != nil {
			return "", fmt.Errorf("history: insert reading %s: %w", name, err)
		}
	}

	for _, st := range snap.Feeds {
		status := StatusOK
		switch {
		case st.Disabled:
			status = StatusDisabled
		case !st.OK:
			status = StatusPlaceholder
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO feed_log (run_id, feed, status, url, error_message, duration_ms, fetched_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			runID, st.Feed, status, st.URL, st.Error, st.Duration.Milliseconds(), at,
		); err != nil {
			return "", fmt.Errorf("history: insert feed log %s: %w", st.Feed, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("history: commit: %w", err)
	}
	return runID, nil
}

// RecentRuns returns the latest runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, generated_at, placeholders, failed_feeds
		FROM runs ORDER BY generated_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("history: recent runs: %w", err)
	}
	defer rows.Close()

	var result []*Run
	for rows.Next() {
		var (
			r      Run
			at     int64
			failed string
		)
		if err := rows.Scan(&r.ID, &at, &r.Placeholders, &failed); err != nil {
			return nil, fmt.Errorf("history: scan run: %w", err)
		}
		r.GeneratedAt = time.UnixMilli(at).UTC()
		if failed != "" {
			r.FailedFeeds = strings.Split(failed, ",")
		}
		result = append(result, &r)
	}
	return result, rows.Err()
}

// FeedHistory returns the log entries for feed, newest first.
func (s *Store) FeedHistory(ctx context.Context, feed string, limit int) ([]*FeedLogEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.DB.QueryContext(ctx,
		`SELECT run_id, feed, status, url, error_message, duration_ms, fetched_at
		FROM feed_log WHERE feed = ?
		ORDER BY fetched_at DESC LIMIT ?`, feed, limit)
	if err != nil {
		return nil, fmt.Errorf("history: feed history: %w", err)
	}
	defer rows.Close()

	var result []*FeedLogEntry
	for rows.Next() {
		var (
			e  FeedLogEntry
			at int64
		)
		if err := rows.Scan(&e.RunID, &e.Feed, &e.Status, &e.URL,
			&e.ErrorMessage, &e.DurationMs, &at); err != nil {
			return nil, fmt.Errorf("history: scan feed log: %w", err)
		}
		e.FetchedAt = time.UnixMilli(at).UTC()
		result = append(result, &e)
	}
	return result, rows.Err()
}

// Snapshot returns the stored snapshot of runID, or nil when unknown.
func (s *Store) Snapshot(ctx context.Context, runID string) (*snapshot.Snapshot, error) {
	var body string
	err := s.DB.QueryRowContext(ctx,
		`SELECT snapshot_json FROM runs WHERE id = ?`, runID).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("history: load snapshot: %w", err)
	}
	var snap snapshot.Snapshot
	if err := json.Unmarshal([]byte(body), &snap); err != nil {
		return nil, fmt.Errorf("history: decode snapshot: %w", err)
	}
	return &snap, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
