package extraction

import (
	"fmt"
	"log"

	"github.com/tularam-sharma/pdfharvest-sub002/internal/engine"
	"github.com/tularam-sharma/pdfharvest-sub002/internal/geometry"
	"github.com/tularam-sharma/pdfharvest-sub002/internal/pdfio"
)

// TableEngine is the underlying extraction engine, one call per region.
type TableEngine interface {
	ExtractTable(words []pdfio.Word, coords geometry.Coords, columns []float64, flavor engine.Flavor) (*engine.Table, error)
}

// WordSource supplies the positioned words of a page; *pdfio.Document
// satisfies it.
type WordSource interface {
	PageWords(pageNumber int) ([]pdfio.Word, error)
}

// Adapter invokes the table engine for a region set on one page and
// normalizes the results into tagged fragments.
type Adapter struct {
	engine TableEngine
	logger *log.Logger
}

// NewAdapter creates an adapter. logger may be nil to silence warnings.
func NewAdapter(eng TableEngine, logger *log.Logger) *Adapter {
	return &Adapter{engine: eng, logger: logger}
}

// Extract runs one engine call per region of a section on one page.
// columns[i] holds the column lines belonging to regions[i]; they are
// forwarded only under the stream flavor and dropped with a warning under
// lattice. A region whose extraction fails or yields no rows contributes an
// empty fragment; other regions still count.
func (a *Adapter) Extract(doc WordSource, pageNumber int, regions []geometry.Region,
	columns [][]float64, section geometry.Section, params Params,
) ([]Fragment, error) {
	fragments := make([]Fragment, 0, len(regions))
	for i, region := range regions {
		var regionColumns []float64
		if i < len(columns) {
			regionColumns = columns[i]
		}
		fragment, err := a.ExtractRegion(doc, pageNumber, region, i, regionColumns, section, params)
		if err != nil {
			return nil, err
		}
		fragments = append(fragments, *fragment)
	}
	return fragments, nil
}

// ExtractRegion runs the engine for a single region. regionIndex positions
// the region within its section for labeling. Engine failure or an empty
// table yields an empty fragment, not an error; the error return is reserved
// for the page itself being unreadable or the flavor unresolvable.
func (a *Adapter) ExtractRegion(doc WordSource, pageNumber int, region geometry.Region,
	regionIndex int, regionColumns []float64, section geometry.Section, params Params,
) (*Fragment, error) {
	words, err := doc.PageWords(pageNumber)
	if err != nil {
		return nil, fmt.Errorf("page %d words: %w", pageNumber, err)
	}

	flavor := params.FlavorFor(section)
	if !flavor.Valid() {
		return nil, fmt.Errorf("section %s resolves to unknown flavor %q", section, flavor)
	}

	if flavor == engine.FlavorLattice && len(regionColumns) > 0 {
		a.warnf("dropping %d column lines for region %s on page %d: lattice infers its own boundaries",
			len(regionColumns), region.Label, pageNumber)
		regionColumns = nil
	}

	fragment := &Fragment{
		Section:     section,
		RegionLabel: RegionBaseLabel(section, regionIndex),
		PageNumber:  pageNumber,
	}

	table, err := a.engine.ExtractTable(words, region.Extraction, regionColumns, flavor)
	if err != nil {
		a.warnf("extraction failed for region %s on page %d: %v", region.Label, pageNumber, err)
		return fragment, nil
	}
	if table == nil || len(table.Rows) == 0 {
		return fragment, nil
	}

	// Tag rows before any other transformation so provenance survives
	// downstream cleaning.
	fragment.Columns = columnNames(table)
	fragment.Rows = make([]Row, 0, len(table.Rows))
	for rowIdx, rawRow := range table.Rows {
		row := Row{
			RegionLabel: RowLabel(section, regionIndex, rowIdx+1, pageNumber),
			PageNumber:  pageNumber,
			RowNumber:   rowIdx + 1,
			Cells:       make(map[string]Cell, len(rawRow)),
		}
		for colIdx, col := range fragment.Columns {
			if colIdx < len(rawRow) && rawRow[colIdx] != "" {
				row.Cells[col] = Cell{Value: rawRow[colIdx]}
			} else {
				row.Cells[col] = Cell{Null: true}
			}
		}
		fragment.Rows = append(fragment.Rows, row)
	}
	return fragment, nil
}

// columnNames fixes the column identity for a raw table as C1..CN over its
// widest row, so ragged rows keep their position and all-null columns are
// preserved rather than dropped.
func columnNames(table *engine.Table) []string {
	width := 0
	for _, row := range table.Rows {
		if len(row) > width {
			width = len(row)
		}
	}
	names := make([]string, width)
	for i := range names {
		names[i] = fmt.Sprintf("C%d", i+1)
	}
	return names
}

func (a *Adapter) warnf(format string, args ...interface{}) {
	if a.logger != nil {
		a.logger.Printf("[adapter] "+format, args...)
	}
}
