// Package harvest drives template application across every page of a
// document and stitches the per-page fragments into one logical invoice
// record: header and summary merged across pages, line items concatenated.
package harvest

import (
	"context"
	"log"

	"github.com/tularam-sharma/pdfharvest-sub002/internal/cache"
	"github.com/tularam-sharma/pdfharvest-sub002/internal/extraction"
	"github.com/tularam-sharma/pdfharvest-sub002/internal/geometry"
	"github.com/tularam-sharma/pdfharvest-sub002/internal/pdfio"
	"github.com/tularam-sharma/pdfharvest-sub002/internal/template"
)

// Document is the slice of pdfio.Document the harvester needs; tests
// substitute fakes.
type Document interface {
	Path() string
	PageCount() int
	PageWords(pageNumber int) ([]pdfio.Word, error)
	Close() error
}

// Opener opens documents for harvesting.
type Opener interface {
	Open(path string) (Document, error)
}

// Extractor runs a single region on one page; *extraction.Adapter
// satisfies it.
type Extractor interface {
	ExtractRegion(doc extraction.WordSource, pageNumber int, region geometry.Region,
		regionIndex int, regionColumns []float64, section geometry.Section,
		params extraction.Params) (*extraction.Fragment, error)
}

// FileOpener opens real PDF documents.
type FileOpener struct {
	MaxFileSize int64
}

func (o FileOpener) Open(path string) (Document, error) {
	return pdfio.Open(path, o.MaxFileSize)
}

// Harvester applies a template to a whole document through the extraction
// cache. One harvester drives one document at a time; independent documents
// get independent workers with the cache keyed per document.
type Harvester struct {
	opener    Opener
	extractor Extractor
	cache     *cache.Cache
	logger    *log.Logger
}

// New creates a harvester. logger may be nil.
func New(opener Opener, extractor Extractor, c *cache.Cache, logger *log.Logger) *Harvester {
	return &Harvester{opener: opener, extractor: extractor, cache: c, logger: logger}
}

// Run extracts and merges one document. The caller always receives a
// DocumentExtraction with statuses; only an unreadable document or a
// cancelled context returns an error, and even then whatever was accumulated
// so far comes back with it for diagnostics. The whole-document cache entry
// is written only after the merge completes.
func (h *Harvester) Run(ctx context.Context, tpl *template.Template, documentPath string) (*extraction.DocumentExtraction, error) {
	result := &extraction.DocumentExtraction{
		DocumentPath: documentPath,
		Items:        []extraction.Fragment{},
		Status: extraction.Status{
			Sections: map[geometry.Section]extraction.SectionStatus{
				geometry.SectionHeader:  extraction.StatusNotAttempted,
				geometry.SectionItems:   extraction.StatusNotAttempted,
				geometry.SectionSummary: extraction.StatusNotAttempted,
			},
			Overall: extraction.OverallNotAttempted,
		},
	}

	doc, err := h.opener.Open(documentPath)
	if err != nil {
		return result, err
	}
	defer doc.Close()

	result.PageCount = doc.PageCount()
	mappings := template.MapPages(tpl, doc.PageCount())

	headerAcc := newAccumulator(geometry.SectionHeader)
	summaryAcc := newAccumulator(geometry.SectionSummary)
	attempted := map[geometry.Section]bool{}
	produced := map[geometry.Section]bool{}

	for pageIdx := 0; pageIdx < doc.PageCount(); pageIdx++ {
		// Cancellation is coarse: between pages only.
		select {
		case <-ctx.Done():
			h.finalize(result, attempted, produced, headerAcc, summaryAcc)
			return result, ctx.Err()
		default:
		}

		mapping := mappings[pageIdx]
		if mapping.Empty() {
			continue
		}
		pageNumber := pageIdx + 1

		for _, section := range geometry.Sections {
			regions := mapping.Regions[section]
			if len(regions) == 0 {
				continue
			}
			attempted[section] = true

			fragments := h.extractSection(doc, pageNumber, regions, mapping.Columns[section], section, tpl.Params)
			for _, fragment := range fragments {
				if fragment.Empty() {
					continue
				}
				produced[section] = true
				switch section {
				case geometry.SectionHeader:
					headerAcc.merge(&fragment, h.logger)
				case geometry.SectionSummary:
					summaryAcc.merge(&fragment, h.logger)
				case geometry.SectionItems:
					// Line items are never merged, only appended in page
					// then region order.
					result.Items = append(result.Items, fragment)
				}
			}
		}
	}

	h.finalize(result, attempted, produced, headerAcc, summaryAcc)
	h.cache.PutDocument(documentPath, result)
	return result, nil
}

// extractSection runs one section of one page through the cache, one entry
// per region so invalidation stays region-scoped. An extraction failure is
// logged and costs only that region's fragment; it never aborts the
// remaining pages.
func (h *Harvester) extractSection(doc Document, pageNumber int, regions []geometry.Region,
	columns [][]float64, section geometry.Section, params extraction.Params,
) []extraction.Fragment {
	fragments := make([]extraction.Fragment, 0, len(regions))

	for i, region := range regions {
		var regionColumns []float64
		if i < len(columns) {
			regionColumns = columns[i]
		}
		regionIdx := i
		key := cache.NewKey(doc.Path(), pageNumber, region.Extraction, regionColumns, section, region.Label)

		fragment, _, err := h.cache.GetOrCompute(key, func() (*extraction.Fragment, error) {
			return h.extractor.ExtractRegion(doc, pageNumber, region, regionIdx,
				regionColumns, section, params)
		})
		if err != nil {
			h.warnf("page %d %s region %s: extraction failed: %v", pageNumber, section, region.Label, err)
			continue
		}
		if fragment != nil {
			fragments = append(fragments, *fragment)
		}
	}

	return fragments
}

func (h *Harvester) finalize(result *extraction.DocumentExtraction,
	attempted, produced map[geometry.Section]bool, headerAcc, summaryAcc *accumulator,
) {
	result.Header = headerAcc.fragment()
	result.Summary = summaryAcc.fragment()

	attemptedCount, succeeded := 0, 0
	for _, section := range geometry.Sections {
		if !attempted[section] {
			result.Status.Sections[section] = extraction.StatusNotAttempted
			continue
		}
		attemptedCount++
		if produced[section] {
			result.Status.Sections[section] = extraction.StatusSuccess
			succeeded++
		} else {
			result.Status.Sections[section] = extraction.StatusFailed
		}
	}

	switch {
	case attemptedCount == 0:
		result.Status.Overall = extraction.OverallNotAttempted
	case succeeded == attemptedCount:
		result.Status.Overall = extraction.OverallSuccess
	case succeeded == 0:
		result.Status.Overall = extraction.OverallFailed
	default:
		result.Status.Overall = extraction.OverallPartial
	}
}

func (h *Harvester) warnf(format string, args ...interface{}) {
	if h.logger != nil {
		h.logger.Printf("[harvest] "+format, args...)
	}
}
