package history

// Schema is the run log. Times are unix milliseconds.
const Schema = `
CREATE TABLE IF NOT EXISTS runs (
    id              TEXT PRIMARY KEY,
    generated_at    INTEGER NOT NULL,
    placeholders    INTEGER NOT NULL DEFAULT 0,
    failed_feeds    TEXT NOT NULL DEFAULT '',
    snapshot_json   TEXT NOT NULL DEFAULT '{}'
);
CREATE INDEX IF NOT EXISTS idx_runs_time ON runs(generated_at DESC);

CREATE TABLE IF NOT EXISTS readings (
    run_id          TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    metric          TEXT NOT NULL,
    number          REAL,
    text            TEXT NOT NULL DEFAULT '',
    placeholder     INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (run_id, metric)
);

CREATE TABLE IF NOT EXISTS feed_log (
    run_id          TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    feed            TEXT NOT NULL,
    status          TEXT NOT NULL,
    url             TEXT NOT NULL DEFAULT '',
    error_message   TEXT NOT NULL DEFAULT '',
    duration_ms     INTEGER NOT NULL DEFAULT 0,
    fetched_at      INTEGER NOT NULL,
    PRIMARY KEY (run_id, feed)
);
CREATE INDEX IF NOT EXISTS idx_feed_log_feed ON feed_log(feed, fetched_at DESC);
`
