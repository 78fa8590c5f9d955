package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// column describes one table column. Identifiers and CI numbers are
// right-aligned so their digits line up.
type column struct {
	title string
	align text.Align
}

var (
	waitingColumns = []column{
		{"ID", text.AlignRight},
		{"CI", text.AlignRight},
		{"Nombre", text.AlignLeft},
		{"Apellido", text.AlignLeft},
	}
	historyColumns = []column{
		{"Fecha", text.AlignLeft},
		{"ID", text.AlignRight},
		{"CI", text.AlignRight},
		{"Paciente", text.AlignLeft},
		{"Estado", text.AlignLeft},
	}
)

// renderTable draws rows under cols with a patient count in the footer.
// Short rows are padded; extra cells are dropped.
func renderTable(cols []column, rows [][]string) string {
	if len(cols) == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(cols))
	configs := make([]table.ColumnConfig, len(cols))
	for i, c := range cols {
		header[i] = c.title
		configs[i] = table.ColumnConfig{Number: i + 1, Align: c.align, AlignHeader: text.AlignLeft}
	}
	tw.AppendHeader(header)
	tw.SetColumnConfigs(configs)

	for _, row := range rows {
		r := make(table.Row, len(cols))
		for i := range r {
			r[i] = ""
			if i < len(row) {
				r[i] = row[i]
			}
		}
		tw.AppendRow(r)
	}
	tw.AppendFooter(table.Row{fmt.Sprintf("Total: %d", len(rows))})

	return tw.Render() + "\n"
}
