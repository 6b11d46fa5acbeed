// Package template defines the reusable extraction templates: named region
// sets with column lines and extraction parameters, single- or multi-page,
// plus the mapping from template pages onto a concrete document's pages.
package template

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tularam-sharma/pdfharvest-sub002/internal/extraction"
	"github.com/tularam-sharma/pdfharvest-sub002/internal/geometry"
)

// Type distinguishes single-page templates, whose one geometry applies to
// every document page, from multi-page templates with per-page geometry.
type Type string

const (
	TypeSingle Type = "single"
	TypeMulti  Type = "multi"
)

// PageSpec is the geometry of one template page: regions and column lines
// per section. Columns[section][i] holds the column x-lines belonging to
// Regions[section][i].
type PageSpec struct {
	Metrics geometry.PageMetrics
	Regions map[geometry.Section][]geometry.Region
	Columns map[geometry.Section][][]float64
}

// Template is a named, persisted region set.
type Template struct {
	Name      string
	Type      Type
	PageCount int
	Pages     []PageSpec
	Params    extraction.Params
}

// Validate checks the structural invariants: single implies one page, multi
// has as many page specs as PageCount, and every page's region set is
// well-formed. All violations are returned at once.
func (t *Template) Validate() []error {
	var violations []error

	switch t.Type {
	case TypeSingle:
		if t.PageCount != 1 {
			violations = append(violations,
				fmt.Errorf("single template %q must have page_count 1, has %d", t.Name, t.PageCount))
		}
		if len(t.Pages) != 1 {
			violations = append(violations,
				fmt.Errorf("single template %q must have exactly one page spec, has %d", t.Name, len(t.Pages)))
		}
	case TypeMulti:
		if len(t.Pages) != t.PageCount {
			violations = append(violations,
				fmt.Errorf("multi template %q declares %d pages but carries %d page specs",
					t.Name, t.PageCount, len(t.Pages)))
		}
	default:
		violations = append(violations, fmt.Errorf("template %q has unknown type %q", t.Name, t.Type))
	}

	for i := range t.Pages {
		for _, v := range geometry.ValidateRegionSet(t.Pages[i].Regions) {
			violations = append(violations, fmt.Errorf("page %d: %w", i, v))
		}
	}

	return violations
}

// JSON boundary format. Geometry arrives in display coordinates plus the
// scale metadata needed to reconstruct extraction coordinates; the conversion
// happens exactly once, here, through geometry.NewRegion.

type pageJSON struct {
	ScaleX     float64                                 `json:"scale_x"`
	ScaleY     float64                                 `json:"scale_y"`
	PageHeight float64                                 `json:"page_height"`
	Regions    map[geometry.Section][]geometry.StoredRegion `json:"regions"`
	Columns    map[geometry.Section][][]float64        `json:"column_lines,omitempty"`
}

type templateJSON struct {
	Name      string            `json:"name"`
	Type      Type              `json:"template_type"`
	PageCount int               `json:"page_count"`
	Pages     []pageJSON        `json:"pages"`
	Params    extraction.Params `json:"extraction_params,omitempty"`
}

// Load reads and validates a template from a JSON file.
func Load(path string) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read template %s: %w", path, err)
	}
	return Parse(data)
}

// Parse builds a template from its JSON form.
func Parse(data []byte) (*Template, error) {
	var raw templateJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse template: %w", err)
	}

	tpl := &Template{
		Name:      raw.Name,
		Type:      raw.Type,
		PageCount: raw.PageCount,
		Params:    raw.Params,
		Pages:     make([]PageSpec, 0, len(raw.Pages)),
	}

	for i, p := range raw.Pages {
		metrics := geometry.PageMetrics{ScaleX: p.ScaleX, ScaleY: p.ScaleY, Height: p.PageHeight}
		if metrics.ScaleX == 0 {
			metrics.ScaleX = 1
		}
		if metrics.ScaleY == 0 {
			metrics.ScaleY = 1
		}
		spec := PageSpec{
			Metrics: metrics,
			Regions: make(map[geometry.Section][]geometry.Region),
			Columns: p.Columns,
		}
		if spec.Columns == nil {
			spec.Columns = make(map[geometry.Section][][]float64)
		}
		for _, section := range geometry.Sections {
			stored := p.Regions[section]
			regions := make([]geometry.Region, 0, len(stored))
			for _, s := range stored {
				r, err := geometry.FromStored(s, metrics)
				if err != nil {
					return nil, fmt.Errorf("template %q page %d %s: %w", raw.Name, i, section, err)
				}
				regions = append(regions, r)
			}
			spec.Regions[section] = regions
		}
		tpl.Pages = append(tpl.Pages, spec)
	}

	if violations := tpl.Validate(); len(violations) > 0 {
		return nil, fmt.Errorf("template %q invalid: %v", raw.Name, violations)
	}
	return tpl, nil
}

// Marshal writes the template back to its JSON boundary form. Extraction
// coordinates are never emitted.
func Marshal(t *Template) ([]byte, error) {
	raw := templateJSON{
		Name:      t.Name,
		Type:      t.Type,
		PageCount: t.PageCount,
		Params:    t.Params,
		Pages:     make([]pageJSON, 0, len(t.Pages)),
	}
	for _, p := range t.Pages {
		page := pageJSON{
			ScaleX:     p.Metrics.ScaleX,
			ScaleY:     p.Metrics.ScaleY,
			PageHeight: p.Metrics.Height,
			Regions:    make(map[geometry.Section][]geometry.StoredRegion),
			Columns:    p.Columns,
		}
		for section, regions := range p.Regions {
			stored := make([]geometry.StoredRegion, 0, len(regions))
			for _, r := range regions {
				stored = append(stored, geometry.ToStored(r))
			}
			page.Regions[section] = stored
		}
		raw.Pages = append(raw.Pages, page)
	}
	return json.MarshalIndent(raw, "", "  ")
}
