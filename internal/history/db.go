package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

// openDB opens the SQLite file at path with the production pragmas applied
// and the schema in place. Parent directories are created as needed.
func openDB(path string, busyTimeoutMS int) (*sql.DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("history: mkdir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: open: %w", err)
	}

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		fmt.Sprintf("PRAGMA busy_timeout = %d", busyTimeoutMS),
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("history: %s: %w", p, err)
		}
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: apply schema: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: ping: %w", err)
	}
	return db, nil
}

// OpenMemory opens an in-memory Store for tests. MaxOpenConns is 1 because
// every connection to ":memory:" gets its own database.
func OpenMemory(t testing.TB) *Store {
	t.Helper()
	db, err := openDB(":memory:", 10_000)
	if err != nil {
		t.Fatalf("history.OpenMemory: %v", err)
	}
	db.SetMaxOpenConns(1)
	s := &Store{DB: db, newID: NewRunID}
	t.Cleanup(func() { s.Close() })
	return s
}
