package pipeline

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/theirongolddev/aforos/internal/catalog"
	"github.com/theirongolddev/aforos/internal/model"

	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
)

// rec builds a record with the given counts in catalog order.
func rec(station string, year int, month time.Month, counts ...float64) model.Record {
	r := model.Record{
		Station: station,
		Kind:    "PLAZA",
		Year:    strconv.Itoa(year),
		Month:   month,
		Date:    model.FirstOfMonth(year, month),
	}
	copy(r.Counts[:], counts)
	return r
}

// monthlyAutos returns one record per value starting at (year, month), with
// the values in the AUTOS column.
func monthlyAutos(station string, year int, month time.Month, values ...float64) []model.Record {
	var out []model.Record
	d := model.FirstOfMonth(year, month)
	for _, v := range values {
		out = append(out, rec(station, d.Year(), d.Month(), v))
		d = d.AddDate(0, 1, 0)
	}
	return out
}

// writeDataset writes a latin-1 CSV with one line per record.
func writeDataset(t testing.TB, dir, name string, records []model.Record) string {
	t.Helper()
	cols := append([]string{"NOMBRE", "TIPO", "AÑO", "MES"}, catalog.Codes(catalog.All())...)
	lines := []string{strings.Join(cols, ",")}
	for _, r := range records {
		cells := []string{r.Station, r.Kind, r.Year, catalog.MonthName(r.Month)}
		for _, v := range r.Counts {
			cells = append(cells, strconv.FormatFloat(v, 'f', -1, 64))
		}
		lines = append(lines, strings.Join(cells, ","))
	}
	body, err := charmap.ISO8859_1.NewEncoder().String(strings.Join(lines, "\n") + "\n")
	require.NoError(t, err)

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}
