package pipeline

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/theirongolddev/aforos/internal/model"
	"github.com/theirongolddev/aforos/internal/source"
)

// LoadResult holds the output of the full data loading pipeline.
type LoadResult struct {
	Table        *Table
	TotalFiles   int
	ParsedFiles  int
	Rows         int
	CoercedCells int
}

// ProgressFunc is called during loading to report progress.
// current is the number of files processed so far, total is the total count.
type ProgressFunc func(current, total int)

// Load resolves path to one or more CSV files, parses them with a bounded
// worker pool and merges the records into one table. Any file that fails to
// parse fails the whole load.
func Load(path string, opts source.Options, progressFn ProgressFunc) (*LoadResult, error) {
	files, err := source.ScanPath(path)
	if err != nil {
		return nil, err
	}

	results := parseFiles(files, opts, 0, len(files), progressFn)

	result := &LoadResult{TotalFiles: len(files)}
	var records []model.Record
	for _, pr := range results {
		if pr.Err != nil {
			return nil, fmt.Errorf("loading %s: %w", path, pr.Err)
		}
		result.ParsedFiles++
		result.CoercedCells += pr.CoercedCells
		records = append(records, pr.Records...)
	}

	result.Table = NewTable(records)
	result.Rows = result.Table.Len()
	return result, nil
}

// parseFiles parses files in parallel. Progress is reported as offset plus the
// number of files done, out of total.
func parseFiles(files []source.DiscoveredFile, opts source.Options, offset, total int, progressFn ProgressFunc) []source.ParseResult {
	results := make([]source.ParseResult, len(files))
	if len(files) == 0 {
		return results
	}

	numWorkers := runtime.GOMAXPROCS(0)
	if numWorkers < 1 {
		numWorkers = 4
	}
	if numWorkers > len(files) {
		numWorkers = len(files)
	}

	work := make(chan int, len(files))
	var wg sync.WaitGroup
	var processed atomic.Int64

	// Feed work
	for i := range files {
		work <- i
	}
	close(work)

	// Spawn workers
	wg.Add(numWorkers)
	for w := 0; w < numWorkers; w++ {
		go func() {
			defer wg.Done()
			for idx := range work {
				results[idx] = source.ParseFile(files[idx], opts)
				n := processed.Add(1)
				if progressFn != nil {
					progressFn(offset+int(n), total)
				}
			}
		}()
	}

	wg.Wait()
	return results
}
