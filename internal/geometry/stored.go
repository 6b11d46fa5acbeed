package geometry

import "fmt"

// StoredRegion is the persistence shape for a region: display coordinates and
// label only. Extraction coordinates are recomputed on load with the current
// page metrics, so re-measuring a document at a different zoom never leaves
// stale geometry behind.
type StoredRegion struct {
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Label  string `json:"label"`
}

// ToStored strips a region down to its persisted shape.
func ToStored(r Region) StoredRegion {
	return StoredRegion{
		X:      r.Display.X,
		Y:      r.Display.Y,
		Width:  r.Display.Width,
		Height: r.Display.Height,
		Label:  r.Label,
	}
}

// FromStored rebuilds a full region from its persisted shape, deriving fresh
// extraction coordinates from the supplied page metrics.
func FromStored(s StoredRegion, m PageMetrics) (Region, error) {
	return NewRegion(s.Label, Rect{X: s.X, Y: s.Y, Width: s.Width, Height: s.Height}, m)
}

// ValidateRegionSet checks a full section-to-regions map before extraction
// and returns every violation it finds rather than stopping at the first, so
// a caller can surface all problems at once. The three known sections must be
// present as keys (empty slices are fine); every region must carry a label,
// positive dimensions, and labels must be unique across the whole set.
func ValidateRegionSet(regions map[Section][]Region) []error {
	var violations []error

	for _, section := range Sections {
		if _, ok := regions[section]; !ok {
			violations = append(violations, fmt.Errorf("%w: missing section %q", ErrInvalidGeometry, section))
		}
	}

	seen := make(map[string]Section)
	for _, section := range Sections {
		for i, r := range regions[section] {
			if r.Label == "" {
				violations = append(violations,
					fmt.Errorf("%w: %s region %d has no label", ErrInvalidGeometry, section, i))
				continue
			}
			if prev, dup := seen[r.Label]; dup {
				violations = append(violations,
					fmt.Errorf("%w: label %q used in both %s and %s", ErrInvalidGeometry, r.Label, prev, section))
			}
			seen[r.Label] = section
			if r.Display.Width <= 0 || r.Display.Height <= 0 {
				violations = append(violations,
					fmt.Errorf("%w: %s region %q has non-positive dimensions %dx%d",
						ErrInvalidGeometry, section, r.Label, r.Display.Width, r.Display.Height))
			}
			if r.Extraction[2] < r.Extraction[0] || r.Extraction[3] < r.Extraction[1] {
				violations = append(violations,
					fmt.Errorf("%w: %s region %q has inverted extraction coordinates",
						ErrInvalidGeometry, section, r.Label))
			}
		}
	}

	return violations
}
