// Package engine implements the underlying table-extraction engine the
// adapter invokes once per region: positioned words are clipped to the
// region, grouped into rows, and split into columns either by explicit
// column lines (stream) or inferred cell boundaries (lattice).
package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tularam-sharma/pdfharvest-sub002/internal/geometry"
	"github.com/tularam-sharma/pdfharvest-sub002/internal/pdfio"
)

// Flavor selects the extraction strategy.
type Flavor string

const (
	// FlavorStream splits rows at explicit column boundaries, or at
	// whitespace gaps when none are given.
	FlavorStream Flavor = "stream"
	// FlavorLattice infers cell boundaries from word edge alignment and
	// ignores explicit column lines by construction.
	FlavorLattice Flavor = "lattice"
)

// Valid reports whether f names a known flavor.
func (f Flavor) Valid() bool { return f == FlavorStream || f == FlavorLattice }

// Table is the raw result of one region extraction: ordered rows of cell
// strings, blank cells as "".
type Table struct {
	Rows [][]string
}

const (
	rowTolerance = 5.0
	// minGapWidth is the narrowest whitespace run treated as a column
	// separator when no explicit boundaries are given.
	minGapWidth = 8.0
	// edgeClusterEpsilon merges word start edges into one lattice boundary.
	edgeClusterEpsilon = 4.0
)

// Engine turns clipped word sets into tables. It is stateless and safe to
// share across documents.
type Engine struct {
	rowTolerance float64
}

// New creates an engine with default tolerances.
func New() *Engine {
	return &Engine{rowTolerance: rowTolerance}
}

// ExtractTable builds a table from the words of one page clipped to coords.
// columns are explicit x boundaries in extraction space; they are only
// honored under FlavorStream. A region with no usable words yields
// (nil, nil) - "no table here" is a result, not an error.
func (e *Engine) ExtractTable(words []pdfio.Word, coords geometry.Coords, columns []float64, flavor Flavor) (*Table, error) {
	if !flavor.Valid() {
		return nil, fmt.Errorf("unknown flavor %q", flavor)
	}

	clipped := clip(words, coords)
	if len(clipped) == 0 {
		return nil, nil
	}

	rows := groupRows(clipped, e.rowTolerance)

	var boundaries []float64
	switch flavor {
	case FlavorStream:
		if len(columns) > 0 {
			boundaries = append(boundaries, columns...)
			sort.Float64s(boundaries)
		} else {
			boundaries = gapBoundaries(rows)
		}
	case FlavorLattice:
		boundaries = edgeBoundaries(rows)
	}

	table := &Table{Rows: make([][]string, 0, len(rows))}
	for _, row := range rows {
		table.Rows = append(table.Rows, splitRow(row, boundaries))
	}
	return table, nil
}

// clip keeps the words whose horizontal center and baseline fall inside the
// extraction-space rectangle.
func clip(words []pdfio.Word, c geometry.Coords) []pdfio.Word {
	var inside []pdfio.Word
	for _, w := range words {
		cx := w.X + w.W/2
		if cx >= c[0] && cx <= c[2] && w.Y >= c[1] && w.Y <= c[3] {
			inside = append(inside, w)
		}
	}
	return inside
}

// groupRows buckets words into rows by baseline proximity, top of the region
// first. Words inside a row are ordered left to right.
func groupRows(words []pdfio.Word, tolerance float64) [][]pdfio.Word {
	sorted := make([]pdfio.Word, len(words))
	copy(sorted, words)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Y > sorted[j].Y
	})

	var rows [][]pdfio.Word
	current := []pdfio.Word{sorted[0]}
	currentY := sorted[0].Y
	for _, w := range sorted[1:] {
		if currentY-w.Y <= tolerance {
			current = append(current, w)
		} else {
			rows = append(rows, sortRow(current))
			current = []pdfio.Word{w}
			currentY = w.Y
		}
	}
	rows = append(rows, sortRow(current))
	return rows
}

func sortRow(row []pdfio.Word) []pdfio.Word {
	sort.SliceStable(row, func(i, j int) bool { return row[i].X < row[j].X })
	return row
}

// gapBoundaries finds column separators from whitespace runs that persist
// across every row: the midpoints of horizontal gaps wider than minGapWidth
// shared by all rows.
func gapBoundaries(rows [][]pdfio.Word) []float64 {
	if len(rows) == 0 {
		return nil
	}

	// Seed candidate gaps from the first row, then intersect with the rest.
	gaps := rowGaps(rows[0])
	for _, row := range rows[1:] {
		var kept []span
		for _, g := range gaps {
			for _, h := range rowGaps(row) {
				lo := maxFloat(g.start, h.start)
				hi := minFloat(g.end, h.end)
				if hi-lo >= minGapWidth {
					kept = append(kept, span{lo, hi})
				}
			}
		}
		gaps = kept
		if len(gaps) == 0 {
			return nil
		}
	}

	boundaries := make([]float64, 0, len(gaps))
	for _, g := range gaps {
		boundaries = append(boundaries, (g.start+g.end)/2)
	}
	sort.Float64s(boundaries)
	return boundaries
}

// span is a horizontal whitespace run shared across rows.
type span struct{ start, end float64 }

func rowGaps(row []pdfio.Word) []span {
	var gaps []span
	for i := 1; i < len(row); i++ {
		prevEnd := row[i-1].X + row[i-1].W
		if row[i].X-prevEnd >= minGapWidth {
			gaps = append(gaps, span{prevEnd, row[i].X})
		}
	}
	return gaps
}

// edgeBoundaries clusters word start edges across rows and places a boundary
// just left of each cluster after the first. Columns in ruled tables start at
// consistent x positions, so aligned left edges stand in for the rulings the
// text layer cannot see.
func edgeBoundaries(rows [][]pdfio.Word) []float64 {
	var edges []float64
	for _, row := range rows {
		for _, w := range row {
			edges = append(edges, w.X)
		}
	}
	if len(edges) == 0 {
		return nil
	}
	sort.Float64s(edges)

	// Cluster sorted edges within epsilon and keep each cluster center.
	var centers []float64
	clusterStart := 0
	for i := 1; i <= len(edges); i++ {
		if i == len(edges) || edges[i]-edges[i-1] > edgeClusterEpsilon {
			sum := 0.0
			for _, e := range edges[clusterStart:i] {
				sum += e
			}
			centers = append(centers, sum/float64(i-clusterStart))
			clusterStart = i
		}
	}

	// A boundary sits just before each column start except the first.
	var boundaries []float64
	for _, c := range centers[1:] {
		boundaries = append(boundaries, c-edgeClusterEpsilon/2)
	}
	return boundaries
}

// splitRow assigns each word of a row to the cell its horizontal center falls
// into, joining multiple words per cell with single spaces.
func splitRow(row []pdfio.Word, boundaries []float64) []string {
	cells := make([][]string, len(boundaries)+1)
	for _, w := range row {
		idx := sort.SearchFloat64s(boundaries, w.X+w.W/2)
		cells[idx] = append(cells[idx], w.Text)
	}
	out := make([]string, len(cells))
	for i, parts := range cells {
		out[i] = strings.Join(parts, " ")
	}
	return out
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
