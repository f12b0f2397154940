package pipeline

import (
	"testing"
	"time"

	"github.com/theirongolddev/aforos/internal/model"

	"github.com/stretchr/testify/assert"
)

func TestNewTableSortsStablyByDate(t *testing.T) {
	in := []model.Record{
		rec("B", 2022, time.February, 2),
		rec("A", 2021, time.March, 1),
		rec("C", 2022, time.February, 3),
		rec("D", 2021, time.January, 4),
	}
	tbl := NewTable(in)

	got := tbl.Records()
	var stations []string
	for _, r := range got {
		stations = append(stations, r.Station)
	}
	assert.Equal(t, []string{"D", "A", "B", "C"}, stations)
	assert.Equal(t, "B", in[0].Station, "input is not reordered")
}

func TestTableIsImmutable(t *testing.T) {
	in := []model.Record{rec("A", 2021, time.January, 5)}
	tbl := NewTable(in)
	in[0].Counts[0] = 99

	out := tbl.Records()
	out[0].Counts[0] = 77
	assert.Equal(t, 5.0, tbl.Records()[0].Counts[0])

	years := tbl.Years()
	years[0] = "1999"
	assert.Equal(t, []string{"2021"}, tbl.Years())
}

func TestTableYearsAndSpan(t *testing.T) {
	tbl := NewTable([]model.Record{
		rec("A", 2023, time.May, 1),
		rec("A", 2021, time.January, 1),
		rec("A", 2022, time.July, 1),
	})
	assert.Equal(t, []string{"2021", "2022", "2023"}, tbl.Years())
	assert.True(t, tbl.HasYear("2022"))
	assert.False(t, tbl.HasYear("2024"))
	assert.Equal(t, "2023", tbl.LatestYear())

	first, last := tbl.Span()
	assert.Equal(t, model.FirstOfMonth(2021, time.January), first)
	assert.Equal(t, model.FirstOfMonth(2023, time.May), last)
	assert.Equal(t, 3, tbl.Len())
}

func TestEmptyTable(t *testing.T) {
	tbl := NewTable(nil)
	assert.Equal(t, 0, tbl.Len())
	assert.Empty(t, tbl.Years())
	assert.Equal(t, "", tbl.LatestYear())
	first, _ := tbl.Span()
	assert.True(t, first.IsZero())
}
