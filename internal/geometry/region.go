// Package geometry defines the canonical region representation shared by the
// extraction pipeline and the conversions between the display coordinate
// space (UI pixels, top-left origin, y down) and the extraction coordinate
// space (PDF points, bottom-left origin, y up).
package geometry

import (
	"errors"
	"fmt"
	"math"
)

// Section identifies one of the three logical zones of an invoice template.
type Section string

const (
	SectionHeader  Section = "header"
	SectionItems   Section = "items"
	SectionSummary Section = "summary"
)

// Sections lists the required sections in their canonical order.
var Sections = []Section{SectionHeader, SectionItems, SectionSummary}

// Prefix returns the single-letter label prefix used for row provenance.
func (s Section) Prefix() string {
	switch s {
	case SectionHeader:
		return "H"
	case SectionItems:
		return "I"
	case SectionSummary:
		return "S"
	}
	return "?"
}

// Valid reports whether s is one of the three known sections.
func (s Section) Valid() bool {
	return s == SectionHeader || s == SectionItems || s == SectionSummary
}

// Rect is a rectangle in display space. Coordinates are stored as integer
// pixels because that is what the drawing surface produces.
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Coords is an extraction-space rectangle as [x0, y0, x1, y1] with a
// bottom-left origin. x0,y0 is the lower-left corner, x1,y1 the upper-right.
type Coords [4]float64

// PageMetrics carries the per-page scale metadata needed to convert between
// the two coordinate spaces. Height is the page height in extraction units.
type PageMetrics struct {
	ScaleX float64 `json:"scale_x"`
	ScaleY float64 `json:"scale_y"`
	Height float64 `json:"page_height"`
}

// ErrInvalidGeometry is the sentinel wrapped by every GeometryError.
var ErrInvalidGeometry = errors.New("invalid geometry")

// GeometryError reports a malformed region. It unwraps to ErrInvalidGeometry.
type GeometryError struct {
	Label  string
	Reason string
}

func (e *GeometryError) Error() string {
	if e.Label != "" {
		return fmt.Sprintf("invalid geometry for region %q: %s", e.Label, e.Reason)
	}
	return fmt.Sprintf("invalid geometry: %s", e.Reason)
}

func (e *GeometryError) Unwrap() error { return ErrInvalidGeometry }

// Region is a single rectangular extraction area within a section. The two
// coordinate representations are never mutated independently: Extraction is
// derived from Display exactly once, at construction.
type Region struct {
	Label      string `json:"label"`
	Display    Rect   `json:"display_rect"`
	Extraction Coords `json:"extraction_coords"`
}

// NewRegion builds a Region from a display rectangle, deriving the extraction
// coordinates from the page metrics. This is the only construction path.
func NewRegion(label string, display Rect, m PageMetrics) (Region, error) {
	if label == "" {
		return Region{}, &GeometryError{Reason: "missing label"}
	}
	if display.Width <= 0 || display.Height <= 0 {
		return Region{}, &GeometryError{
			Label:  label,
			Reason: fmt.Sprintf("non-positive dimensions %dx%d", display.Width, display.Height),
		}
	}
	return Region{
		Label:      label,
		Display:    display,
		Extraction: ToExtraction(display, m),
	}, nil
}

// ToExtraction converts a display rectangle into extraction coordinates,
// flipping the y axis and applying the page scale factors.
func ToExtraction(r Rect, m PageMetrics) Coords {
	x0 := float64(r.X) * m.ScaleX
	x1 := float64(r.X+r.Width) * m.ScaleX
	y0 := m.Height - float64(r.Y+r.Height)*m.ScaleY
	y1 := m.Height - float64(r.Y)*m.ScaleY
	return Coords{x0, y0, x1, y1}
}

// ToDisplay is the exact inverse of ToExtraction up to integer rounding of
// the pixel coordinates.
func ToDisplay(c Coords, m PageMetrics) Rect {
	x := c[0] / m.ScaleX
	y := (m.Height - c[3]) / m.ScaleY
	w := (c[2] - c[0]) / m.ScaleX
	h := (c[3] - c[1]) / m.ScaleY
	return Rect{
		X:      int(math.Round(x)),
		Y:      int(math.Round(y)),
		Width:  int(math.Round(w)),
		Height: int(math.Round(h)),
	}
}

// ParseCoords validates a raw coordinate list coming in from a boundary
// format. Anything other than exactly four values is rejected.
func ParseCoords(vals []float64) (Coords, error) {
	if len(vals) != 4 {
		return Coords{}, &GeometryError{
			Reason: fmt.Sprintf("extraction coordinates need exactly 4 values, got %d", len(vals)),
		}
	}
	var c Coords
	copy(c[:], vals)
	return c, nil
}
