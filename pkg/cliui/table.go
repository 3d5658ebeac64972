package cliui

import (
	"charm.land/lipgloss/v2"
	"charm.land/lipgloss/v2/table"
	"github.com/charmbracelet/x/ansi"
)

// MaxCellWidth caps table cells; longer cells are truncated with an ellipsis.
const MaxCellWidth = 36

// Table renders rows under headers with a rounded border. Cells may carry
// ANSI styling; truncation is done on display width.
func Table(headers []string, rows [][]string) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(DimStyle).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return HeaderStyle.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})

	for _, r := range rows {
		cells := make([]string, len(r))
		for i, c := range r {
			cells[i] = TruncateCell(c, MaxCellWidth)
		}
		t.Row(cells...)
	}

	return t.String()
}

// TruncateCell shortens s to at most width display cells.
func TruncateCell(s string, width int) string {
	if ansi.StringWidth(s) <= width {
		return s
	}
	return ansi.Truncate(s, width, "…")
}
