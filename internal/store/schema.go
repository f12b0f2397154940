package store

const schemaSQL = `
CREATE TABLE IF NOT EXISTS file_tracker (
    file_path            TEXT PRIMARY KEY,
    mtime_ns             INTEGER NOT NULL,
    size_bytes           INTEGER NOT NULL,
    options              TEXT NOT NULL,
    coerced_cells        INTEGER NOT NULL DEFAULT 0,
    parsed_at            TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS records (
    file_path            TEXT NOT NULL REFERENCES file_tracker(file_path) ON DELETE CASCADE,
    row_idx              INTEGER NOT NULL,
    station              TEXT NOT NULL,
    kind                 TEXT NOT NULL,
    year                 TEXT NOT NULL,
    month                INTEGER NOT NULL,
    counts               TEXT NOT NULL,
    PRIMARY KEY (file_path, row_idx)
);

CREATE INDEX IF NOT EXISTS idx_records_year ON records(year);
`
