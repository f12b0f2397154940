// Package export writes dashboard views to files: an XLSX workbook and PNG charts.
package export

import (
	"fmt"

	"github.com/theirongolddev/aforos/internal/model"

	"github.com/xuri/excelize/v2"
)

// Sheet names.
const (
	SheetTable  = "Tabla"
	SheetTotals = "Totales"
)

const (
	colorHeader = "#3AA99F"
	colorStripe = "#F2F0E5"
)

// WriteXLSX writes the table view and the yearly totals to path. ex may be nil
// when the year has no extremes.
func WriteXLSX(path string, view model.TableView, totals model.CategoryTotals, ex *model.Extremes) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetTable); err != nil {
		return err
	}
	if _, err := f.NewSheet(SheetTotals); err != nil {
		return err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{colorHeader}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
			WrapText:   true,
		},
	})
	if err != nil {
		return err
	}
	countStyle, err := f.NewStyle(&excelize.Style{NumFmt: 3}) // #,##0
	if err != nil {
		return err
	}
	stripeStyle, err := f.NewStyle(&excelize.Style{
		NumFmt: 3,
		Fill:   excelize.Fill{Type: "pattern", Color: []string{colorStripe}, Pattern: 1},
	})
	if err != nil {
		return err
	}

	if err := writeTableSheet(f, view, headerStyle, countStyle, stripeStyle); err != nil {
		return fmt.Errorf("sheet %s: %w", SheetTable, err)
	}
	if err := writeTotalsSheet(f, totals, ex, headerStyle, countStyle); err != nil {
		return fmt.Errorf("sheet %s: %w", SheetTotals, err)
	}

	f.SetActiveSheet(0)
	return f.SaveAs(path)
}

func writeTableSheet(f *excelize.File, view model.TableView, headerStyle, countStyle, stripeStyle int) error {
	for i, h := range view.Headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(SheetTable, cell, h); err != nil {
			return err
		}
	}
	last, err := excelize.CoordinatesToCellName(max(len(view.Headers), 1), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetTable, "A1", last, headerStyle); err != nil {
		return err
	}

	for r, row := range view.Rows {
		line := r + 2
		values := []interface{}{row.Year, row.MonthName}
		for _, v := range row.Values {
			values = append(values, v)
		}
		start, _ := excelize.CoordinatesToCellName(1, line)
		if err := f.SetSheetRow(SheetTable, start, &values); err != nil {
			return err
		}

		style := countStyle
		if r%2 == 1 {
			style = stripeStyle
		}
		end, _ := excelize.CoordinatesToCellName(len(values), line)
		if err := f.SetCellStyle(SheetTable, start, end, style); err != nil {
			return err
		}
	}

	if err := f.SetColWidth(SheetTable, "A", "B", 12); err != nil {
		return err
	}
	if len(view.Headers) > 2 {
		lastCol, _ := excelize.ColumnNumberToName(len(view.Headers))
		if err := f.SetColWidth(SheetTable, "C", lastCol, 16); err != nil {
			return err
		}
	}
	return f.SetPanes(SheetTable, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func writeTotalsSheet(f *excelize.File, totals model.CategoryTotals, ex *model.Extremes, headerStyle, countStyle int) error {
	header := []interface{}{"Tipo de vehículo", "Total " + totals.Year}
	if err := f.SetSheetRow(SheetTotals, "A1", &header); err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetTotals, "A1", "B1", headerStyle); err != nil {
		return err
	}

	line := 2
	for _, ct := range totals.Totals {
		row := []interface{}{ct.Label, ct.Value}
		cell, _ := excelize.CoordinatesToCellName(1, line)
		if err := f.SetSheetRow(SheetTotals, cell, &row); err != nil {
			return err
		}
		line++
	}
	sumRow := []interface{}{"Total", totals.Sum()}
	cell, _ := excelize.CoordinatesToCellName(1, line)
	if err := f.SetSheetRow(SheetTotals, cell, &sumRow); err != nil {
		return err
	}
	end, _ := excelize.CoordinatesToCellName(2, line)
	if err := f.SetCellStyle(SheetTotals, "B2", end, countStyle); err != nil {
		return err
	}

	if ex != nil {
		line += 2
		stats := [][]interface{}{
			{"Mayor movimiento", ex.Max.Label, ex.Max.Value},
			{"Menor movimiento", ex.Min.Label, ex.Min.Value},
		}
		for _, row := range stats {
			cell, _ := excelize.CoordinatesToCellName(1, line)
			if err := f.SetSheetRow(SheetTotals, cell, &row); err != nil {
				return err
			}
			valueCell, _ := excelize.CoordinatesToCellName(3, line)
			if err := f.SetCellStyle(SheetTotals, valueCell, valueCell, countStyle); err != nil {
				return err
			}
			line++
		}
	}
	return f.SetColWidth(SheetTotals, "A", "C", 20)
}
