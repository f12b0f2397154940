// Package store provides a SQLite-backed snapshot of cleaned input records,
// so unchanged files are not decoded and parsed again.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/theirongolddev/aforos/internal/catalog"
	"github.com/theirongolddev/aforos/internal/model"

	_ "modernc.org/sqlite" // register sqlite driver
)

// Cache provides SQLite-backed record snapshots.
type Cache struct {
	db *sql.DB
}

// Open opens or creates the cache database at the given path.
func Open(dbPath string) (*Cache, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=synchronous(normal)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, fmt.Errorf("opening cache db: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Cache{db: db}, nil
}

// Close closes the cache database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// FileInfo holds what a snapshot was taken from.
type FileInfo struct {
	MtimeNs      int64
	SizeBytes    int64
	Options      string // source.Options.Key() at parse time
	CoercedCells int
}

// Matches reports whether the snapshot is still valid for a file with the
// given mtime, size and parse options.
func (fi FileInfo) Matches(mtimeNs, sizeBytes int64, options string) bool {
	return fi.MtimeNs == mtimeNs && fi.SizeBytes == sizeBytes && fi.Options == options
}

// GetTrackedFiles returns a map of file_path -> FileInfo for all tracked files.
func (c *Cache) GetTrackedFiles() (map[string]FileInfo, error) {
	rows, err := c.db.Query("SELECT file_path, mtime_ns, size_bytes, options, coerced_cells FROM file_tracker")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	result := make(map[string]FileInfo)
	for rows.Next() {
		var path string
		var fi FileInfo
		if err := rows.Scan(&path, &fi.MtimeNs, &fi.SizeBytes, &fi.Options, &fi.CoercedCells); err != nil {
			return nil, err
		}
		result[path] = fi
	}
	return result, rows.Err()
}

// SaveFile replaces the snapshot of one file with records.
func (c *Cache) SaveFile(path string, fi FileInfo, records []model.Record) error {
	tx, err := c.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC().Format(time.RFC3339)

	// Clears the old rows through the cascade.
	if _, err := tx.Exec("DELETE FROM file_tracker WHERE file_path = ?", path); err != nil {
		return err
	}
	_, err = tx.Exec(`INSERT INTO file_tracker
		(file_path, mtime_ns, size_bytes, options, coerced_cells, parsed_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		path, fi.MtimeNs, fi.SizeBytes, fi.Options, fi.CoercedCells, now,
	)
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(`INSERT INTO records
		(file_path, row_idx, station, kind, year, month, counts)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	for i, r := range records {
		counts, err := json.Marshal(r.Counts)
		if err != nil {
			return err
		}
		if _, err := stmt.Exec(path, i, r.Station, r.Kind, r.Year, int(r.Month), string(counts)); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// LoadFile reads the snapshot of one file in its original row order.
func (c *Cache) LoadFile(path string) ([]model.Record, error) {
	rows, err := c.db.Query(`SELECT station, kind, year, month, counts
		FROM records WHERE file_path = ? ORDER BY row_idx`, path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var records []model.Record
	for rows.Next() {
		var r model.Record
		var month int
		var counts string
		if err := rows.Scan(&r.Station, &r.Kind, &r.Year, &month, &counts); err != nil {
			return nil, err
		}

		year, err := strconv.Atoi(r.Year)
		if err != nil || month < 1 || month > 12 {
			return nil, fmt.Errorf("corrupt snapshot row for %s: year %q month %d", path, r.Year, month)
		}
		var vals []float64
		if err := json.Unmarshal([]byte(counts), &vals); err != nil {
			return nil, fmt.Errorf("corrupt snapshot counts for %s: %w", path, err)
		}
		if len(vals) != catalog.Count {
			return nil, fmt.Errorf("snapshot for %s has %d counts, want %d", path, len(vals), catalog.Count)
		}

		r.Month = time.Month(month)
		r.Date = model.FirstOfMonth(year, r.Month)
		copy(r.Counts[:], vals)
		r.Source = path
		records = append(records, r)
	}
	return records, rows.Err()
}

// DeleteFile removes a file's snapshot and its records.
func (c *Cache) DeleteFile(path string) error {
	_, err := c.db.Exec("DELETE FROM file_tracker WHERE file_path = ?", path)
	return err
}

// RecordCount returns the number of cached records.
func (c *Cache) RecordCount() (int, error) {
	var count int
	err := c.db.QueryRow("SELECT COUNT(*) FROM records").Scan(&count)
	return count, err
}
