package dataset

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
)

// Show renders the first n rows as a table, followed by a truncation note
// when the table holds more rows.
func (t *Table) Show(w io.Writer, n int) {
	table := tablewriter.NewWriter(w)
	header := make([]string, len(t.Schema))
	for i, col := range t.Schema {
		header[i] = col.Name
	}
	table.SetHeader(header)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)

	shown := t.Len()
	if n >= 0 && n < shown {
		shown = n
	}
	for _, row := range t.Rows[:shown] {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = FormatValue(v)
		}
		table.Append(cells)
	}
	table.Render()

	if shown < t.Len() {
		fmt.Fprintf(w, "only showing top %d rows of %d\n", shown, t.Len())
	}
}
