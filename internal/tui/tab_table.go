package tui

import (
	"github.com/theirongolddev/aforos/internal/model"
	"github.com/theirongolddev/aforos/internal/tui/components"
)

func (a App) renderTableTab(cw int) string {
	view := a.dash.Table
	title := "Tabla " + a.sel.DistributionYear
	switch {
	case view == nil:
		return components.NoticeCard(title, a.dash.Errors[model.ViewTable], cw)
	case len(view.Rows) == 0:
		return components.NoticeCard(title, "Sin registros para el año seleccionado", cw)
	}
	return components.ContentCard(title, a.dataTable.View(), cw)
}
