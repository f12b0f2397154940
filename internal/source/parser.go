// Package source reads raw traffic-count files into cleaned records.
package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/theirongolddev/aforos/internal/catalog"
	"github.com/theirongolddev/aforos/internal/model"

	"github.com/gocarina/gocsv"
)

// ErrMissingColumn is returned when a required header is absent.
var ErrMissingColumn = errors.New("missing required column")

// ParseFile decodes and parses a single discovered file.
func ParseFile(df DiscoveredFile, opts Options) ParseResult {
	result := ParseResult{File: df}

	f, err := os.Open(df.Path)
	if err != nil {
		result.Err = fmt.Errorf("opening %s: %w", df.Path, err)
		return result
	}
	defer f.Close()

	records, coerced, err := Parse(f, df.Path, opts)
	if err != nil {
		result.Err = fmt.Errorf("%s: %w", df.Name, err)
		return result
	}
	result.Records = records
	result.CoercedCells = coerced
	return result
}

// Parse reads one CSV stream. Unknown month names and unusable years abort the
// parse; malformed count cells are coerced and counted.
func Parse(r io.Reader, sourceName string, opts Options) ([]model.Record, int, error) {
	decoded, err := NewDecodingReader(r, opts.Encoding)
	if err != nil {
		return nil, 0, err
	}

	cr := csv.NewReader(decoded)
	cr.Comma = opts.delimiter()
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, 0, fmt.Errorf("%w: empty input", ErrMissingColumn)
		}
		return nil, 0, fmt.Errorf("reading header: %w", err)
	}
	header = normalizeHeader(header)
	if err := checkHeader(header); err != nil {
		return nil, 0, err
	}

	var rows []*rawRow
	if err := gocsv.UnmarshalCSV(&headerReplay{header: header, r: cr}, &rows); err != nil {
		return nil, 0, fmt.Errorf("decoding rows: %w", err)
	}

	records := make([]model.Record, 0, len(rows))
	coerced := 0
	for i, row := range rows {
		line := i + 2 // header is line 1

		month, err := catalog.MonthFromName(row.Month)
		if err != nil {
			return nil, 0, fmt.Errorf("line %d: %w", line, err)
		}
		token, year, err := NormalizeYear(row.Year)
		if err != nil {
			return nil, 0, fmt.Errorf("line %d: %w", line, err)
		}

		rec := model.Record{
			Station: strings.TrimSpace(row.Station),
			Kind:    strings.TrimSpace(row.Kind),
			Year:    token,
			Month:   month,
			Date:    model.FirstOfMonth(year, month),
			Source:  sourceName,
		}
		for c, cell := range row.cells() {
			v, clean := CoerceCount(cell)
			if !clean {
				coerced++
			}
			rec.Counts[c] = v
		}
		records = append(records, rec)
	}

	return records, coerced, nil
}

func normalizeHeader(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		out[i] = strings.ToUpper(strings.Join(strings.Fields(h), " "))
	}
	return out
}

// RequiredColumns lists the headers every input must carry.
func RequiredColumns() []string {
	cols := []string{ColYear, ColMonth}
	return append(cols, catalog.Codes(catalog.All())...)
}

func checkHeader(header []string) error {
	present := make(map[string]bool, len(header))
	for _, h := range header {
		present[h] = true
	}
	var missing []string
	for _, col := range RequiredColumns() {
		if !present[col] {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	return nil
}

// headerReplay hands gocsv the normalized header followed by the remaining rows.
type headerReplay struct {
	header []string
	r      *csv.Reader
	sent   bool
}

func (h *headerReplay) Read() ([]string, error) {
	if !h.sent {
		h.sent = true
		return h.header, nil
	}
	return h.r.Read()
}

func (h *headerReplay) ReadAll() ([][]string, error) {
	rest, err := h.r.ReadAll()
	if err != nil {
		return nil, err
	}
	if h.sent {
		return rest, nil
	}
	h.sent = true
	return append([][]string{h.header}, rest...), nil
}
