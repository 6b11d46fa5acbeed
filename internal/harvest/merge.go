package harvest

import (
	"log"

	"github.com/tularam-sharma/pdfharvest-sub002/internal/extraction"
	"github.com/tularam-sharma/pdfharvest-sub002/internal/geometry"
)

// accumulator folds header or summary fragments from successive pages into
// one merged table. Rows join on their provenance label; a label seen before
// unions its cells instead of appending, and a non-null cell is never
// overwritten.
type accumulator struct {
	section geometry.Section
	columns []string
	colSeen map[string]bool
	order   []string
	rows    map[string]*extraction.Row
}

func newAccumulator(section geometry.Section) *accumulator {
	return &accumulator{
		section: section,
		colSeen: map[string]bool{},
		rows:    map[string]*extraction.Row{},
	}
}

// merge folds one fragment in. Columns keep first-occurrence order across
// fragments; rows keep insertion order. logger may be nil.
func (a *accumulator) merge(f *extraction.Fragment, logger *log.Logger) {
	if f.Empty() {
		return
	}

	for _, col := range f.Columns {
		if !a.colSeen[col] {
			a.colSeen[col] = true
			a.columns = append(a.columns, col)
		}
	}

	for _, row := range f.Rows {
		existing, ok := a.rows[row.RegionLabel]
		if !ok {
			copied := row
			copied.Cells = make(map[string]extraction.Cell, len(row.Cells))
			for col, cell := range row.Cells {
				copied.Cells[col] = cell
			}
			a.rows[row.RegionLabel] = &copied
			a.order = append(a.order, row.RegionLabel)
			continue
		}

		for col, cell := range row.Cells {
			have, present := existing.Cells[col]
			switch {
			case !present || have.Null:
				existing.Cells[col] = cell
			case cell.Null || cell.Value == have.Value:
				// Nothing new.
			default:
				if logger != nil {
					logger.Printf("[harvest] %s row %s column %s: conflicting values %q and %q, keeping first",
						a.section, row.RegionLabel, col, have.Value, cell.Value)
				}
			}
		}
	}
}

// fragment materializes the merged table. It returns nil when no fragment
// ever contributed a row. The merged fragment spans pages, so it carries no
// single page number.
func (a *accumulator) fragment() *extraction.Fragment {
	if len(a.order) == 0 {
		return nil
	}
	rows := make([]extraction.Row, 0, len(a.order))
	for _, label := range a.order {
		row := *a.rows[label]
		// Backfill columns another page introduced after this row landed.
		for _, col := range a.columns {
			if _, ok := row.Cells[col]; !ok {
				row.Cells[col] = extraction.Cell{Null: true}
			}
		}
		rows = append(rows, row)
	}
	return &extraction.Fragment{
		Section: a.section,
		Columns: a.columns,
		Rows:    rows,
	}
}
