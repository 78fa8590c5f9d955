package display

import (
	"fmt"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"patient-caller-backend/internal/model"
)

// Render draws the waiting-room screen for snap. Times are shown in loc.
func Render(snap Snapshot, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	// A Caser keeps state between calls and cannot be shared.
	upper := cases.Upper(language.Spanish)

	var b strings.Builder
	b.WriteString("SALA DE ESPERA\n\n")

	if snap.Called == nil {
		b.WriteString("Esperando próximo paciente ...\n")
	} else {
		b.WriteString("Paciente llamado:\n")
		fmt.Fprintf(&b, "  %s\n", upper.String(snap.Called.FullName()))
		fmt.Fprintf(&b, "  CI: %s\n", snap.Called.CINro)
	}

	b.WriteString("\nAtendidos hoy\n")
	if len(snap.Attended) == 0 {
		b.WriteString("  (ninguno)\n")
	} else {
		b.WriteString(attendedTable(snap.Attended, loc, upper))
		b.WriteString("\n")
	}

	if !snap.FetchedAt.IsZero() {
		fmt.Fprintf(&b, "\nActualizado %s\n", snap.FetchedAt.In(loc).Format("15:04:05"))
	}
	return b.String()
}

func attendedTable(records []model.AttendedRecord, loc *time.Location, upper cases.Caser) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Hora", "Paciente", "CI", "Estado"})
	for _, r := range records {
		tw.AppendRow(table.Row{
			r.CalledAt.In(loc).Format("15:04"),
			upper.String(r.Nombre + " " + r.Apellido),
			r.CINro,
			r.Status,
		})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
	})
	return tw.Render()
}
