package qa

import "github.com/medigraph/medigraph/internal/platform/graph"

// Table is the fixed-column tabular contract handed to callers. Columns are
// always present, even for zero rows, so consumers can render consistent
// headers regardless of match count.
type Table struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// Project normalizes raw query records into rows ordered by the declared
// columns. Keys absent from a record project as nil.
func Project(records []graph.Record, columns []string) *Table {
	table := &Table{
		Columns: columns,
		Rows:    make([][]any, 0, len(records)),
	}
	for _, rec := range records {
		row := make([]any, len(columns))
		for i, col := range columns {
			row[i] = rec[col]
		}
		table.Rows = append(table.Rows, row)
	}
	return table
}
