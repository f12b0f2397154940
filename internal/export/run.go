package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/theirongolddev/aforos/internal/logging"
	"github.com/theirongolddev/aforos/internal/model"
	"github.com/theirongolddev/aforos/internal/pipeline"

	"golang.org/x/sync/errgroup"
)

// Request describes what to export.
type Request struct {
	Dir        string
	Table      *pipeline.Table
	Selection  pipeline.Selection
	Forecaster pipeline.Forecaster
	XLSX       bool
	PNG        bool
	// Logger reports charts replaced by a placeholder. Nil discards.
	Logger logging.Logger
}

// Run renders the requested artifacts concurrently into req.Dir and returns
// the written paths, sorted. A chart whose view cannot be computed is written
// as a placeholder; only I/O failures abort, and the first one cancels the
// remaining work.
func Run(ctx context.Context, req Request) ([]string, error) {
	if !req.XLSX && !req.PNG {
		return nil, nil
	}
	log := req.Logger
	if log == nil {
		log = logging.Nop()
	}
	if err := os.MkdirAll(req.Dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating %s: %w", req.Dir, err)
	}

	sel := req.Selection
	year := sel.DistributionYear

	var mu sync.Mutex
	var written []string
	add := func(path string) {
		mu.Lock()
		written = append(written, path)
		mu.Unlock()
	}

	g, ctx := errgroup.WithContext(ctx)

	if req.XLSX {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			view := pipeline.TableView(req.Table, year, sel.Categories)
			totals := pipeline.TotalsByYear(req.Table, year)
			var ex *model.Extremes
			if e, err := pipeline.Extremes(req.Table, year); err == nil {
				ex = &e
			}
			path := filepath.Join(req.Dir, "aforos-"+year+".xlsx")
			if err := WriteXLSX(path, view, totals, ex); err != nil {
				return fmt.Errorf("writing %s: %w", path, err)
			}
			add(path)
			return nil
		})
	}

	if req.PNG {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			dist := pipeline.Distribution(req.Table, year, sel.Categories)
			path := filepath.Join(req.Dir, "distribucion-"+year+".png")
			if err := DistributionPNG(path, dist); err != nil {
				if err := chartFallback(log, path, "Distribución en "+year, err); err != nil {
					return err
				}
			}
			add(path)
			return nil
		})

		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			path := filepath.Join(req.Dir, chartName(sel.Category))
			series, err := pipeline.SeriesFor(req.Table, sel.Category)
			if err == nil {
				result := model.Forecast{Target: sel.Target(), Kind: model.ForecastUnavailable}
				if req.Forecaster != nil {
					result = req.Forecaster.Forecast(req.Table, sel.Target())
				}
				err = ForecastPNG(path, series, result)
			}
			if err != nil {
				if err := chartFallback(log, path, "Pronóstico para "+sel.Category.Label(), err); err != nil {
					return err
				}
			}
			add(path)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	sort.Strings(written)
	return written, nil
}

// chartFallback logs why a chart failed and writes the placeholder instead.
func chartFallback(log logging.Logger, path, title string, cause error) error {
	log.WithError(cause).Warn("chart replaced by placeholder", logging.F(logging.FieldPath, path))
	if err := ErrorPNG(path, title, cause); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
