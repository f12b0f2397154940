package pipeline

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/theirongolddev/aforos/internal/catalog"
	"github.com/theirongolddev/aforos/internal/model"
	"github.com/theirongolddev/aforos/internal/source"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSingleFile(t *testing.T) {
	dir := t.TempDir()
	path := writeDataset(t, dir, "Aforos-RedPropia.csv", monthlyAutos("Peñón", 2021, time.January, 100, 120, 90))

	res, err := Load(path, source.DefaultOptions(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.TotalFiles)
	assert.Equal(t, 1, res.ParsedFiles)
	assert.Equal(t, 3, res.Rows)

	recs := res.Table.Records()
	assert.Equal(t, "Peñón", recs[0].Station)
	for _, r := range recs {
		y, err := strconv.Atoi(r.Year)
		require.NoError(t, err)
		assert.Equal(t, model.FirstOfMonth(y, r.Month), r.Date)
	}
}

func TestLoadDirectoryMergesFiles(t *testing.T) {
	dir := t.TempDir()
	writeDataset(t, dir, "2021.csv", monthlyAutos("A", 2021, time.January, 1, 2))
	writeDataset(t, dir, "2022.csv", monthlyAutos("A", 2021, time.March, 3, 4))
	writeDataset(t, dir, "2021-b.csv", monthlyAutos("B", 2021, time.January, 10, 20))

	var calls atomic.Int64
	res, err := Load(dir, source.DefaultOptions(), func(cur, total int) {
		calls.Add(1)
		assert.LessOrEqual(t, cur, total)
		assert.Equal(t, 3, total)
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), calls.Load())
	assert.Equal(t, 3, res.ParsedFiles)
	assert.Equal(t, 6, res.Rows)

	s, err := SeriesFor(res.Table, catalog.Autos)
	require.NoError(t, err)
	assert.Equal(t, []float64{11, 22, 3, 4}, s.Values())
	assert.Len(t, res.Table.Sources(), 3)
}

func TestLoadFailsOnBadFile(t *testing.T) {
	dir := t.TempDir()
	writeDataset(t, dir, "good.csv", monthlyAutos("A", 2021, time.January, 1))
	bad := "NOMBRE,TIPO,AÑO,MES\nA,PLAZA,2021,enero\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.csv"), []byte(bad), 0o600))

	_, err := Load(dir, source.DefaultOptions(), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, source.ErrMissingColumn))
}

func TestLoadMissingPath(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.csv"), source.DefaultOptions(), nil)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}
