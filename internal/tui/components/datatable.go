package components

import (
	"github.com/theirongolddev/aforos/internal/cli"
	"github.com/theirongolddev/aforos/internal/model"
	"github.com/theirongolddev/aforos/internal/tui/theme"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
)

// NewDataTable builds a scrollable table for view. Label columns are sized to
// their content; count columns share the remaining width.
func NewDataTable(view model.TableView, width, height int) table.Model {
	t := theme.Active

	yearW, monthW := 5, 10
	for _, r := range view.Rows {
		monthW = max(monthW, lipgloss.Width(r.MonthName)+1)
	}

	cols := make([]table.Column, len(view.Headers))
	for i, h := range view.Headers {
		cols[i] = table.Column{Title: h}
	}
	if len(cols) >= 2 {
		cols[0].Width = yearW
		cols[1].Width = monthW
	}
	if n := len(cols) - 2; n > 0 {
		// table.Model pads each cell by one column on each side.
		avail := width - yearW - monthW - 2*len(cols)
		widths := LayoutRow(max(avail, n*8), n)
		for i := range n {
			cols[i+2].Width = max(widths[i], lipgloss.Width(cols[i+2].Title))
		}
	}

	rows := make([]table.Row, len(view.Rows))
	for i, r := range view.Rows {
		row := table.Row{r.Year, r.MonthName}
		for _, v := range r.Values {
			row = append(row, cli.FormatCount(v))
		}
		rows[i] = row
	}

	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Foreground(t.TextMuted).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(t.Border).
		BorderBottom(true).
		Bold(true)
	styles.Cell = styles.Cell.Foreground(t.TextPrimary)
	styles.Selected = styles.Selected.
		Foreground(t.AccentBright).
		Background(t.SurfaceHover).
		Bold(false)

	return table.New(
		table.WithColumns(cols),
		table.WithRows(rows),
		table.WithHeight(max(height, 3)),
		table.WithFocused(true),
		table.WithStyles(styles),
	)
}
