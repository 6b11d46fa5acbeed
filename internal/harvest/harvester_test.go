package harvest

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tularam-sharma/pdfharvest-sub002/internal/cache"
	"github.com/tularam-sharma/pdfharvest-sub002/internal/extraction"
	"github.com/tularam-sharma/pdfharvest-sub002/internal/geometry"
	"github.com/tularam-sharma/pdfharvest-sub002/internal/pdfio"
	"github.com/tularam-sharma/pdfharvest-sub002/internal/template"
)

type fakeDoc struct {
	path  string
	pages int
}

func (d *fakeDoc) Path() string                       { return d.path }
func (d *fakeDoc) PageCount() int                     { return d.pages }
func (d *fakeDoc) PageWords(int) ([]pdfio.Word, error) { return nil, nil }
func (d *fakeDoc) Close() error                       { return nil }

type fakeOpener struct {
	doc *fakeDoc
	err error
}

func (o fakeOpener) Open(string) (Document, error) {
	if o.err != nil {
		return nil, o.err
	}
	return o.doc, nil
}

// fakeExtractor replays fragments per page and section through fn and counts
// engine invocations so cache behavior is observable.
type fakeExtractor struct {
	calls int
	fn    func(pageNumber int, regionIndex int, section geometry.Section) (*extraction.Fragment, error)
}

func (e *fakeExtractor) ExtractRegion(_ extraction.WordSource, pageNumber int, _ geometry.Region,
	regionIndex int, _ []float64, section geometry.Section, _ extraction.Params,
) (*extraction.Fragment, error) {
	e.calls++
	return e.fn(pageNumber, regionIndex, section)
}

func testTemplate(t *testing.T) *template.Template {
	t.Helper()
	metrics := geometry.PageMetrics{ScaleX: 1, ScaleY: 1, Height: 800}
	mustRegion := func(label string, y int) geometry.Region {
		region, err := geometry.NewRegion(label, geometry.Rect{X: 20, Y: y, Width: 500, Height: 100}, metrics)
		require.NoError(t, err)
		return region
	}
	return &template.Template{
		Name:      "acme-invoice",
		Type:      template.TypeSingle,
		PageCount: 1,
		Pages: []template.PageSpec{{
			Metrics: metrics,
			Regions: map[geometry.Section][]geometry.Region{
				geometry.SectionHeader:  {mustRegion("header", 40)},
				geometry.SectionItems:   {mustRegion("items", 200)},
				geometry.SectionSummary: {mustRegion("totals", 600)},
			},
		}},
	}
}

func singleRowFragment(section geometry.Section, page int, value string) *extraction.Fragment {
	return &extraction.Fragment{
		Section:     section,
		RegionLabel: extraction.RegionBaseLabel(section, 0),
		PageNumber:  page,
		Columns:     []string{"C1"},
		Rows: []extraction.Row{{
			RegionLabel: extraction.RowLabel(section, 0, 1, page),
			PageNumber:  page,
			RowNumber:   1,
			Cells:       map[string]extraction.Cell{"C1": {Value: value}},
		}},
	}
}

func TestRunThreePageDocument(t *testing.T) {
	ext := &fakeExtractor{fn: func(page, _ int, section geometry.Section) (*extraction.Fragment, error) {
		return singleRowFragment(section, page, fmt.Sprintf("%s-p%d", section, page)), nil
	}}
	c := cache.New()
	h := New(fakeOpener{doc: &fakeDoc{path: "/tmp/inv.pdf", pages: 3}}, ext, c, nil)

	result, err := h.Run(context.Background(), testTemplate(t), "/tmp/inv.pdf")
	require.NoError(t, err)
	assert.Equal(t, 3, result.PageCount)

	// Header rows from all three pages survive with their page-tagged labels.
	require.NotNil(t, result.Header)
	require.Len(t, result.Header.Rows, 3)
	assert.Equal(t, "H1_R1_P1", result.Header.Rows[0].RegionLabel)
	assert.Equal(t, "H1_R1_P2", result.Header.Rows[1].RegionLabel)
	assert.Equal(t, "H1_R1_P3", result.Header.Rows[2].RegionLabel)

	// Items stay per-page fragments in page order, never merged.
	require.Len(t, result.Items, 3)
	assert.Equal(t, 1, result.Items[0].PageNumber)
	assert.Equal(t, 3, result.Items[2].PageNumber)

	require.NotNil(t, result.Summary)
	assert.Len(t, result.Summary.Rows, 3)

	for _, section := range geometry.Sections {
		assert.Equal(t, extraction.StatusSuccess, result.Status.Sections[section])
	}
	assert.Equal(t, extraction.OverallSuccess, result.Status.Overall)

	// The merged result lands in the whole-document tier.
	cached, ok := c.GetDocument("/tmp/inv.pdf")
	require.True(t, ok)
	assert.Equal(t, result, cached)
}

func TestRunCachesRegionFragments(t *testing.T) {
	ext := &fakeExtractor{fn: func(page, _ int, section geometry.Section) (*extraction.Fragment, error) {
		return singleRowFragment(section, page, "v"), nil
	}}
	c := cache.New()
	h := New(fakeOpener{doc: &fakeDoc{path: "/tmp/inv.pdf", pages: 2}}, ext, c, nil)
	tpl := testTemplate(t)

	_, err := h.Run(context.Background(), tpl, "/tmp/inv.pdf")
	require.NoError(t, err)
	firstRun := ext.calls
	assert.Equal(t, 6, firstRun) // 3 sections x 2 pages

	_, err = h.Run(context.Background(), tpl, "/tmp/inv.pdf")
	require.NoError(t, err)
	assert.Equal(t, firstRun, ext.calls, "second run must be served from cache")

	stats := c.Stats()
	assert.Equal(t, int64(6), stats.Misses)
	assert.Equal(t, int64(6), stats.Hits)
}

func TestRunSectionFailsOnOnePageOnly(t *testing.T) {
	ext := &fakeExtractor{fn: func(page, _ int, section geometry.Section) (*extraction.Fragment, error) {
		if section == geometry.SectionSummary && page == 2 {
			return nil, errors.New("region clipped to nothing")
		}
		return singleRowFragment(section, page, "v"), nil
	}}
	h := New(fakeOpener{doc: &fakeDoc{path: "/tmp/inv.pdf", pages: 3}}, ext, cache.New(), nil)

	result, err := h.Run(context.Background(), testTemplate(t), "/tmp/inv.pdf")
	require.NoError(t, err)

	// Pages 1 and 3 still contribute, so the section as a whole succeeded.
	assert.Equal(t, extraction.StatusSuccess, result.Status.Sections[geometry.SectionSummary])
	require.NotNil(t, result.Summary)
	assert.Len(t, result.Summary.Rows, 2)
	assert.Equal(t, extraction.OverallSuccess, result.Status.Overall)
}

func TestRunSectionProducesNothing(t *testing.T) {
	ext := &fakeExtractor{fn: func(page, _ int, section geometry.Section) (*extraction.Fragment, error) {
		if section == geometry.SectionItems {
			return &extraction.Fragment{Section: section, PageNumber: page}, nil
		}
		return singleRowFragment(section, page, "v"), nil
	}}
	h := New(fakeOpener{doc: &fakeDoc{path: "/tmp/inv.pdf", pages: 2}}, ext, cache.New(), nil)

	result, err := h.Run(context.Background(), testTemplate(t), "/tmp/inv.pdf")
	require.NoError(t, err)

	assert.Equal(t, extraction.StatusFailed, result.Status.Sections[geometry.SectionItems])
	assert.Equal(t, extraction.StatusSuccess, result.Status.Sections[geometry.SectionHeader])
	assert.Empty(t, result.Items)
	assert.Equal(t, extraction.OverallPartial, result.Status.Overall)
}

func TestRunUnreadableDocument(t *testing.T) {
	h := New(fakeOpener{err: pdfio.ErrDocumentUnreadable}, &fakeExtractor{}, cache.New(), nil)

	result, err := h.Run(context.Background(), testTemplate(t), "/tmp/missing.pdf")
	require.Error(t, err)
	assert.ErrorIs(t, err, pdfio.ErrDocumentUnreadable)

	// The caller still gets a result shell for diagnostics.
	require.NotNil(t, result)
	assert.Equal(t, extraction.OverallNotAttempted, result.Status.Overall)
	for _, section := range geometry.Sections {
		assert.Equal(t, extraction.StatusNotAttempted, result.Status.Sections[section])
	}
}

func TestRunCancelledContext(t *testing.T) {
	ext := &fakeExtractor{fn: func(page, _ int, section geometry.Section) (*extraction.Fragment, error) {
		return singleRowFragment(section, page, "v"), nil
	}}
	c := cache.New()
	h := New(fakeOpener{doc: &fakeDoc{path: "/tmp/inv.pdf", pages: 3}}, ext, c, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := h.Run(ctx, testTemplate(t), "/tmp/inv.pdf")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, ext.calls)
	assert.Equal(t, extraction.OverallNotAttempted, result.Status.Overall)

	// A cancelled run never publishes a whole-document entry.
	_, ok := c.GetDocument("/tmp/inv.pdf")
	assert.False(t, ok)
}
