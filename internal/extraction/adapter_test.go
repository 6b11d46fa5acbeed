package extraction

import (
	"errors"
	"io"
	"log"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tularam-sharma/pdfharvest-sub002/internal/engine"
	"github.com/tularam-sharma/pdfharvest-sub002/internal/geometry"
	"github.com/tularam-sharma/pdfharvest-sub002/internal/pdfio"
)

type fakeWordSource struct {
	words []pdfio.Word
	err   error
}

func (f *fakeWordSource) PageWords(int) ([]pdfio.Word, error) { return f.words, f.err }

// fakeEngine records calls and replays canned tables per region coordinate.
type fakeEngine struct {
	calls   int
	flavors []engine.Flavor
	columns [][]float64
	tables  []*engine.Table
	errs    []error
}

func (f *fakeEngine) ExtractTable(_ []pdfio.Word, _ geometry.Coords, columns []float64, flavor engine.Flavor) (*engine.Table, error) {
	i := f.calls
	f.calls++
	f.flavors = append(f.flavors, flavor)
	f.columns = append(f.columns, columns)
	var table *engine.Table
	if i < len(f.tables) {
		table = f.tables[i]
	}
	var err error
	if i < len(f.errs) {
		err = f.errs[i]
	}
	return table, err
}

func mustRegion(t *testing.T, label string, x int) geometry.Region {
	t.Helper()
	r, err := geometry.NewRegion(label, geometry.Rect{X: x, Y: 10, Width: 100, Height: 50},
		geometry.PageMetrics{ScaleX: 1, ScaleY: 1, Height: 792})
	require.NoError(t, err)
	return r
}

func TestExtractOneEngineCallPerRegion(t *testing.T) {
	eng := &fakeEngine{tables: []*engine.Table{
		{Rows: [][]string{{"a", "b"}}},
		{Rows: [][]string{{"c"}}},
	}}
	adapter := NewAdapter(eng, nil)

	regions := []geometry.Region{mustRegion(t, "H1", 0), mustRegion(t, "H2", 200)}
	fragments, err := adapter.Extract(&fakeWordSource{}, 1, regions,
		[][]float64{{150}, nil}, geometry.SectionHeader, Params{})

	require.NoError(t, err)
	assert.Equal(t, 2, eng.calls)
	require.Len(t, fragments, 2)
	assert.Equal(t, "H1", fragments[0].RegionLabel)
	assert.Equal(t, "H2", fragments[1].RegionLabel)
	// Each region gets its own column subset.
	assert.Equal(t, []float64{150}, eng.columns[0])
	assert.Empty(t, eng.columns[1])
}

func TestExtractRowTagging(t *testing.T) {
	eng := &fakeEngine{tables: []*engine.Table{
		{Rows: [][]string{{"Widget", "9.99"}, {"Gadget", "12.50"}}},
	}}
	adapter := NewAdapter(eng, nil)

	fragments, err := adapter.Extract(&fakeWordSource{}, 3,
		[]geometry.Region{mustRegion(t, "I1", 0)}, nil, geometry.SectionItems, Params{})

	require.NoError(t, err)
	require.Len(t, fragments, 1)
	rows := fragments[0].Rows
	require.Len(t, rows, 2)
	assert.Equal(t, "I1_R1_P3", rows[0].RegionLabel)
	assert.Equal(t, "I1_R2_P3", rows[1].RegionLabel)
	assert.Equal(t, 3, rows[0].PageNumber)
	assert.Equal(t, 1, rows[0].RowNumber)
	assert.Equal(t, 2, rows[1].RowNumber)
}

func TestExtractNormalizesEmptyCellsToNull(t *testing.T) {
	eng := &fakeEngine{tables: []*engine.Table{
		{Rows: [][]string{{"Widget", ""}, {"Gadget"}}},
	}}
	adapter := NewAdapter(eng, nil)

	fragments, err := adapter.Extract(&fakeWordSource{}, 1,
		[]geometry.Region{mustRegion(t, "I1", 0)}, nil, geometry.SectionItems, Params{})

	require.NoError(t, err)
	require.Len(t, fragments, 1)
	f := fragments[0]
	assert.Equal(t, []string{"C1", "C2"}, f.Columns)
	// Blank cell and missing ragged cell both become the null sentinel, and
	// the all-null column C2 is preserved.
	assert.True(t, f.Rows[0].Cells["C2"].Null)
	assert.True(t, f.Rows[1].Cells["C2"].Null)
	assert.Equal(t, "Gadget", f.Rows[1].Cells["C1"].Value)
}

func TestExtractFlavorResolution(t *testing.T) {
	tests := []struct {
		name   string
		params Params
		want   engine.Flavor
	}{
		{"default stream", Params{}, engine.FlavorStream},
		{"template flavor", Params{Flavor: "lattice"}, engine.FlavorLattice},
		{
			"section override wins",
			Params{
				Flavor:   "lattice",
				Sections: map[geometry.Section]SectionParams{geometry.SectionItems: {Flavor: "stream"}},
			},
			engine.FlavorStream,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng := &fakeEngine{}
			adapter := NewAdapter(eng, nil)
			_, err := adapter.Extract(&fakeWordSource{}, 1,
				[]geometry.Region{mustRegion(t, "I1", 0)}, nil, geometry.SectionItems, tt.params)
			require.NoError(t, err)
			require.Len(t, eng.flavors, 1)
			assert.Equal(t, tt.want, eng.flavors[0])
		})
	}
}

func TestExtractLatticeDropsColumnLinesWithWarning(t *testing.T) {
	var buf strings.Builder
	eng := &fakeEngine{}
	adapter := NewAdapter(eng, log.New(&buf, "", 0))

	_, err := adapter.Extract(&fakeWordSource{}, 1,
		[]geometry.Region{mustRegion(t, "I1", 0)}, [][]float64{{100, 200}},
		geometry.SectionItems, Params{Flavor: "lattice"})

	require.NoError(t, err)
	assert.Empty(t, eng.columns[0])
	assert.Contains(t, buf.String(), "dropping 2 column lines")
}

func TestExtractRegionFailureYieldsEmptyFragment(t *testing.T) {
	eng := &fakeEngine{
		tables: []*engine.Table{nil, {Rows: [][]string{{"ok"}}}},
		errs:   []error{errors.New("engine blew up"), nil},
	}
	adapter := NewAdapter(eng, log.New(io.Discard, "", 0))

	fragments, err := adapter.Extract(&fakeWordSource{}, 1,
		[]geometry.Region{mustRegion(t, "S1", 0), mustRegion(t, "S2", 200)},
		nil, geometry.SectionSummary, Params{})

	require.NoError(t, err)
	require.Len(t, fragments, 2)
	assert.True(t, fragments[0].Empty())
	assert.False(t, fragments[1].Empty())
	assert.Equal(t, "S2_R1_P1", fragments[1].Rows[0].RegionLabel)
}

func TestExtractWordSourceFailure(t *testing.T) {
	adapter := NewAdapter(&fakeEngine{}, nil)
	_, err := adapter.Extract(&fakeWordSource{err: errors.New("torn stream")}, 2,
		[]geometry.Region{mustRegion(t, "H1", 0)}, nil, geometry.SectionHeader, Params{})
	assert.Error(t, err)
}
