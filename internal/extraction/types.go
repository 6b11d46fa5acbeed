// Package extraction normalizes raw engine tables into tagged, labeled row
// data and defines the result shapes shared by the cache, the harvester, and
// the serializer.
package extraction

import (
	"fmt"

	"github.com/tularam-sharma/pdfharvest-sub002/internal/engine"
	"github.com/tularam-sharma/pdfharvest-sub002/internal/geometry"
)

// Cell is one field value. Empty engine cells are normalized to the null
// sentinel (Null=true) instead of being dropped, so the raw extraction shape
// survives verbatim.
type Cell struct {
	Value string `json:"value"`
	Null  bool   `json:"null,omitempty"`
}

// Row is one extracted table row with its provenance tags. RegionLabel is the
// globally unique join key {H|I|S}{region}_R{row}_P{page}.
type Row struct {
	RegionLabel string          `json:"region_label"`
	PageNumber  int             `json:"page_number"`
	RowNumber   int             `json:"row_number"`
	Cells       map[string]Cell `json:"cells"`
}

// Fragment is the normalized result of running the engine once: one region on
// one page. Columns fixes the cell order; RegionLabel here is the region base
// label ("H1"), not the per-row join key.
type Fragment struct {
	Section     geometry.Section `json:"section"`
	RegionLabel string           `json:"region_label"`
	PageNumber  int              `json:"page_number"`
	Columns     []string         `json:"columns"`
	Rows        []Row            `json:"rows"`
}

// Empty reports whether the fragment carries no rows.
func (f *Fragment) Empty() bool { return f == nil || len(f.Rows) == 0 }

// SectionStatus tracks how extraction went for one section of a document.
type SectionStatus string

const (
	StatusNotAttempted SectionStatus = "not_attempted"
	StatusSuccess      SectionStatus = "success"
	StatusFailed       SectionStatus = "failed"
)

// OverallStatus rolls the per-section statuses up to one verdict.
type OverallStatus string

const (
	OverallSuccess      OverallStatus = "success"
	OverallFailed       OverallStatus = "failed"
	OverallPartial      OverallStatus = "partial"
	OverallNotAttempted OverallStatus = "not_attempted"
)

// Status is the per-section and rolled-up extraction outcome.
type Status struct {
	Sections map[geometry.Section]SectionStatus `json:"sections"`
	Overall  OverallStatus                      `json:"overall"`
}

// DocumentExtraction is the unified result for one document: header and
// summary as single merged tables, items as per-page/per-region fragments in
// page then region order.
type DocumentExtraction struct {
	DocumentPath string           `json:"document_path"`
	PageCount    int              `json:"page_count"`
	Header       *Fragment        `json:"header,omitempty"`
	Items        []Fragment       `json:"items"`
	Summary      *Fragment        `json:"summary,omitempty"`
	Status       Status           `json:"status"`
}

// SectionParams overrides extraction parameters for a single section.
type SectionParams struct {
	Flavor string `json:"flavor,omitempty"`
}

// Params carries the template's extraction parameters. Flavor resolution is
// section override, then template default, then stream.
type Params struct {
	Flavor   string                               `json:"flavor,omitempty"`
	Sections map[geometry.Section]SectionParams   `json:"sections,omitempty"`
}

// FlavorFor resolves the effective flavor for a section.
func (p Params) FlavorFor(section geometry.Section) engine.Flavor {
	if sp, ok := p.Sections[section]; ok && sp.Flavor != "" {
		return engine.Flavor(sp.Flavor)
	}
	if p.Flavor != "" {
		return engine.Flavor(p.Flavor)
	}
	return engine.FlavorStream
}

// RowLabel builds the synthetic provenance label for one row. regionIndex is
// 0-based, rowNumber and pageNumber 1-based.
func RowLabel(section geometry.Section, regionIndex, rowNumber, pageNumber int) string {
	return fmt.Sprintf("%s%d_R%d_P%d", section.Prefix(), regionIndex+1, rowNumber, pageNumber)
}

// RegionBaseLabel names a region within its section, e.g. "H1".
func RegionBaseLabel(section geometry.Section, regionIndex int) string {
	return fmt.Sprintf("%s%d", section.Prefix(), regionIndex+1)
}
