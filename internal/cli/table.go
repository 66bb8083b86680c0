package cli

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// column describes one table column. Numeric columns are right aligned;
// wide columns (keys, titles, errors) wrap at wrap characters.
type column struct {
	title   string
	numeric bool
	wrap    int
}

const wideColumn = 64

var (
	indexCol  = column{title: "#", numeric: true}
	startCol  = column{title: "Start", numeric: true}
	endCol    = column{title: "End", numeric: true}
	dubbedCol = column{title: "Dubbed"}
	resultCol = column{title: "Result", wrap: wideColumn}
)

// renderTable prints rows under cols. Headers keep their case so stage and
// status names read the same as in the manifest.
func renderTable(cols []column, rows [][]string) string {
	if len(cols) == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.Style().Format.Header = text.FormatDefault

	header := make(table.Row, len(cols))
	configs := make([]table.ColumnConfig, len(cols))
	for i, c := range cols {
		header[i] = c.title
		align := text.AlignLeft
		if c.numeric {
			align = text.AlignRight
		}
		configs[i] = table.ColumnConfig{Number: i + 1, Align: align, AlignHeader: text.AlignLeft, WidthMax: c.wrap}
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
	return tw.Render()
}
