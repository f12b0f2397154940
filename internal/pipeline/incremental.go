package pipeline

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/theirongolddev/aforos/internal/model"
	"github.com/theirongolddev/aforos/internal/source"
	"github.com/theirongolddev/aforos/internal/store"
)

// CachedLoadResult extends LoadResult with cache metadata.
type CachedLoadResult struct {
	LoadResult
	CacheHits int
	Reparsed  int
	// Pruned counts snapshots dropped because their file left the directory.
	Pruned int
	// CachedRecords is the cache size after the load, or -1 if unknown.
	CachedRecords int
}

// ErrCache marks failures of the snapshot store itself, as opposed to input
// errors. Callers may retry without the cache.
var ErrCache = errors.New("reading cache")

// LoadWithCache discovers input files, reuses snapshots of unchanged files and
// parses only the rest. Fresh parses are written back to the cache; a failed
// write only costs a reparse next time.
func LoadWithCache(path string, opts source.Options, cache *store.Cache, progressFn ProgressFunc) (*CachedLoadResult, error) {
	files, err := source.ScanPath(path)
	if err != nil {
		return nil, err
	}

	result := &CachedLoadResult{
		LoadResult: LoadResult{TotalFiles: len(files)},
	}

	tracked, err := cache.GetTrackedFiles()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCache, err)
	}

	result.Pruned = pruneVanished(path, files, tracked, cache)

	optKey := opts.Key()
	perFile := make([][]model.Record, len(files))

	// Diff: partition into changed and unchanged
	var toReparse []int
	for i, f := range files {
		cached, ok := tracked[f.Path]
		if !ok || !cached.Matches(f.ModTime.UnixNano(), f.Size, optKey) {
			toReparse = append(toReparse, i)
			continue
		}
		records, err := cache.LoadFile(f.Path)
		if err != nil {
			toReparse = append(toReparse, i)
			continue
		}
		perFile[i] = records
		result.CacheHits++
		result.ParsedFiles++
		result.CoercedCells += cached.CoercedCells
	}
	result.Reparsed = len(toReparse)

	if progressFn != nil && result.CacheHits > 0 {
		progressFn(result.CacheHits, result.TotalFiles)
	}

	// Parse changed files
	if len(toReparse) > 0 {
		changed := make([]source.DiscoveredFile, len(toReparse))
		for j, idx := range toReparse {
			changed[j] = files[idx]
		}
		results := parseFiles(changed, opts, result.CacheHits, result.TotalFiles, progressFn)

		for j, pr := range results {
			if pr.Err != nil {
				return nil, fmt.Errorf("loading %s: %w", path, pr.Err)
			}
			result.ParsedFiles++
			result.CoercedCells += pr.CoercedCells
			perFile[toReparse[j]] = pr.Records

			f := changed[j]
			_ = cache.SaveFile(f.Path, store.FileInfo{
				MtimeNs:      f.ModTime.UnixNano(),
				SizeBytes:    f.Size,
				Options:      optKey,
				CoercedCells: pr.CoercedCells,
			}, pr.Records)
		}
	}

	// Files are merged in scan order so the table does not depend on which
	// ones came from the cache.
	var records []model.Record
	for _, rs := range perFile {
		records = append(records, rs...)
	}
	result.Table = NewTable(records)
	result.Rows = result.Table.Len()
	result.CachedRecords = -1
	if n, err := cache.RecordCount(); err == nil {
		result.CachedRecords = n
	}
	return result, nil
}

// pruneVanished drops snapshots of files that used to sit directly in the
// scanned directory and are gone now. Snapshots of other datasets sharing
// the cache are left alone.
func pruneVanished(path string, files []source.DiscoveredFile, tracked map[string]store.FileInfo, cache *store.Cache) int {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return 0
	}
	dir := filepath.Clean(path)
	present := make(map[string]bool, len(files))
	for _, f := range files {
		present[f.Path] = true
	}
	pruned := 0
	for p := range tracked {
		if present[p] || filepath.Dir(p) != dir || !strings.EqualFold(filepath.Ext(p), ".csv") {
			continue
		}
		if cache.DeleteFile(p) == nil {
			pruned++
		}
	}
	return pruned
}

// CacheDir returns the platform-appropriate cache directory.
func CacheDir() string {
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, "aforos")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".cache", "aforos")
}

// CachePath returns the full path to the cache database.
func CachePath() string {
	return filepath.Join(CacheDir(), "snapshot.db")
}
