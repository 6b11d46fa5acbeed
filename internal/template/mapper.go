package template

import (
	"github.com/tularam-sharma/pdfharvest-sub002/internal/geometry"
)

// PageMapping says which template page's geometry applies to one document
// page.
type PageMapping struct {
	TemplatePage int
	Regions      map[geometry.Section][]geometry.Region
	Columns      map[geometry.Section][][]float64
}

// Empty reports whether the mapping carries no regions in any section; such
// pages are skipped by the harvester without attempting extraction.
func (m PageMapping) Empty() bool {
	for _, regions := range m.Regions {
		if len(regions) > 0 {
			return false
		}
	}
	return true
}

// MapPages decides which template page applies to each document page, total
// for every page index in [0, pdfPageCount). Single templates map everything
// to page 0; multi templates reuse their last page for trailing document
// pages. A degenerate template with no pages maps everything to index 0 with
// empty regions.
func MapPages(t *Template, pdfPageCount int) map[int]PageMapping {
	mappings := make(map[int]PageMapping, pdfPageCount)

	for pageIdx := 0; pageIdx < pdfPageCount; pageIdx++ {
		templatePage := 0
		if t.Type == TypeMulti {
			templatePage = pageIdx
			if templatePage > t.PageCount-1 {
				templatePage = t.PageCount - 1
			}
			if templatePage < 0 {
				templatePage = 0
			}
		}

		if templatePage >= len(t.Pages) {
			mappings[pageIdx] = PageMapping{
				TemplatePage: 0,
				Regions:      map[geometry.Section][]geometry.Region{},
				Columns:      map[geometry.Section][][]float64{},
			}
			continue
		}

		spec := t.Pages[templatePage]
		mappings[pageIdx] = PageMapping{
			TemplatePage: templatePage,
			Regions:      spec.Regions,
			Columns:      spec.Columns,
		}
	}

	return mappings
}
