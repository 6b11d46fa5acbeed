package template

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/tularam-sharma/pdfharvest-sub002/internal/geometry"
)

// ErrTemplateNotFound is returned when loading or deleting a name that does
// not exist in the store.
var ErrTemplateNotFound = errors.New("template not found")

// Store persists templates in SQLite. Regions are stored in the display-space
// shape {x, y, width, height, label} grouped by section; extraction
// coordinates are recomputed on load from the page metrics, never persisted.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS templates (
	template_id   INTEGER PRIMARY KEY AUTOINCREMENT,
	name          TEXT NOT NULL UNIQUE,
	template_type TEXT NOT NULL,
	page_count    INTEGER NOT NULL,
	params_json   TEXT NOT NULL DEFAULT '{}'
);
CREATE TABLE IF NOT EXISTS template_pages (
	page_id     INTEGER PRIMARY KEY AUTOINCREMENT,
	template_id INTEGER NOT NULL REFERENCES templates(template_id) ON DELETE CASCADE,
	page_index  INTEGER NOT NULL,
	scale_x     REAL NOT NULL,
	scale_y     REAL NOT NULL,
	page_height REAL NOT NULL,
	UNIQUE(template_id, page_index)
);
CREATE TABLE IF NOT EXISTS regions (
	region_id    INTEGER PRIMARY KEY AUTOINCREMENT,
	page_id      INTEGER NOT NULL REFERENCES template_pages(page_id) ON DELETE CASCADE,
	section      TEXT NOT NULL,
	region_index INTEGER NOT NULL,
	label        TEXT NOT NULL,
	x            INTEGER NOT NULL,
	y            INTEGER NOT NULL,
	width        INTEGER NOT NULL,
	height       INTEGER NOT NULL,
	UNIQUE(page_id, section, region_index)
);
CREATE TABLE IF NOT EXISTS column_lines (
	line_id   INTEGER PRIMARY KEY AUTOINCREMENT,
	region_id INTEGER NOT NULL REFERENCES regions(region_id) ON DELETE CASCADE,
	position  REAL NOT NULL
);
`

// OpenStore opens or creates the template database at dbPath.
func OpenStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open template database: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// SaveTemplate inserts or replaces a template by name.
func (s *Store) SaveTemplate(t *Template) error {
	if violations := t.Validate(); len(violations) > 0 {
		return fmt.Errorf("refusing to save invalid template %q: %v", t.Name, violations)
	}

	paramsJSON, err := json.Marshal(t.Params)
	if err != nil {
		return fmt.Errorf("failed to encode params: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec("DELETE FROM templates WHERE name = ?", t.Name); err != nil {
		return fmt.Errorf("failed to replace template: %w", err)
	}

	res, err := tx.Exec(`
		INSERT INTO templates (name, template_type, page_count, params_json)
		VALUES (?, ?, ?, ?)
	`, t.Name, string(t.Type), t.PageCount, string(paramsJSON))
	if err != nil {
		return fmt.Errorf("failed to insert template: %w", err)
	}
	templateID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get template ID: %w", err)
	}

	for pageIdx, page := range t.Pages {
		res, err := tx.Exec(`
			INSERT INTO template_pages (template_id, page_index, scale_x, scale_y, page_height)
			VALUES (?, ?, ?, ?, ?)
		`, templateID, pageIdx, page.Metrics.ScaleX, page.Metrics.ScaleY, page.Metrics.Height)
		if err != nil {
			return fmt.Errorf("failed to insert page %d: %w", pageIdx, err)
		}
		pageID, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get page ID: %w", err)
		}

		for _, section := range geometry.Sections {
			for regionIdx, region := range page.Regions[section] {
				stored := geometry.ToStored(region)
				res, err := tx.Exec(`
					INSERT INTO regions (page_id, section, region_index, label, x, y, width, height)
					VALUES (?, ?, ?, ?, ?, ?, ?, ?)
				`, pageID, string(section), regionIdx, stored.Label, stored.X, stored.Y, stored.Width, stored.Height)
				if err != nil {
					return fmt.Errorf("failed to insert region %s/%d: %w", section, regionIdx, err)
				}
				regionID, err := res.LastInsertId()
				if err != nil {
					return fmt.Errorf("failed to get region ID: %w", err)
				}

				columns := page.Columns[section]
				if regionIdx < len(columns) {
					for _, pos := range columns[regionIdx] {
						if _, err := tx.Exec(`
							INSERT INTO column_lines (region_id, position) VALUES (?, ?)
						`, regionID, pos); err != nil {
							return fmt.Errorf("failed to insert column line: %w", err)
						}
					}
				}
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit template: %w", err)
	}
	return nil
}

// LoadTemplate reads a template by name, rebuilding extraction coordinates
// from the stored display geometry and page metrics.
func (s *Store) LoadTemplate(name string) (*Template, error) {
	var templateID int64
	var templateType string
	var pageCount int
	var paramsJSON string
	err := s.db.QueryRow(`
		SELECT template_id, template_type, page_count, params_json
		FROM templates WHERE name = ?
	`, name).Scan(&templateID, &templateType, &pageCount, &paramsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load template %q: %w", name, err)
	}

	tpl := &Template{
		Name:      name,
		Type:      Type(templateType),
		PageCount: pageCount,
	}
	if err := json.Unmarshal([]byte(paramsJSON), &tpl.Params); err != nil {
		return nil, fmt.Errorf("failed to decode params for %q: %w", name, err)
	}

	pageRows, err := s.db.Query(`
		SELECT page_id, scale_x, scale_y, page_height
		FROM template_pages WHERE template_id = ? ORDER BY page_index
	`, templateID)
	if err != nil {
		return nil, fmt.Errorf("failed to load pages for %q: %w", name, err)
	}
	defer pageRows.Close()

	type pageRef struct {
		id      int64
		metrics geometry.PageMetrics
	}
	var refs []pageRef
	for pageRows.Next() {
		var ref pageRef
		if err := pageRows.Scan(&ref.id, &ref.metrics.ScaleX, &ref.metrics.ScaleY, &ref.metrics.Height); err != nil {
			return nil, fmt.Errorf("failed to scan page: %w", err)
		}
		refs = append(refs, ref)
	}
	if err := pageRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate pages: %w", err)
	}

	for _, ref := range refs {
		spec, err := s.loadPageSpec(ref.id, ref.metrics)
		if err != nil {
			return nil, fmt.Errorf("template %q: %w", name, err)
		}
		tpl.Pages = append(tpl.Pages, *spec)
	}

	return tpl, nil
}

func (s *Store) loadPageSpec(pageID int64, metrics geometry.PageMetrics) (*PageSpec, error) {
	spec := &PageSpec{
		Metrics: metrics,
		Regions: make(map[geometry.Section][]geometry.Region),
		Columns: make(map[geometry.Section][][]float64),
	}
	for _, section := range geometry.Sections {
		spec.Regions[section] = []geometry.Region{}
		spec.Columns[section] = [][]float64{}
	}

	rows, err := s.db.Query(`
		SELECT region_id, section, label, x, y, width, height
		FROM regions WHERE page_id = ? ORDER BY section, region_index
	`, pageID)
	if err != nil {
		return nil, fmt.Errorf("failed to load regions: %w", err)
	}
	defer rows.Close()

	type regionRef struct {
		id      int64
		section geometry.Section
	}
	var regionRefs []regionRef
	for rows.Next() {
		var id int64
		var section string
		var stored geometry.StoredRegion
		if err := rows.Scan(&id, &section, &stored.Label, &stored.X, &stored.Y, &stored.Width, &stored.Height); err != nil {
			return nil, fmt.Errorf("failed to scan region: %w", err)
		}
		region, err := geometry.FromStored(stored, metrics)
		if err != nil {
			return nil, fmt.Errorf("stored region %q: %w", stored.Label, err)
		}
		sec := geometry.Section(section)
		spec.Regions[sec] = append(spec.Regions[sec], region)
		regionRefs = append(regionRefs, regionRef{id: id, section: sec})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate regions: %w", err)
	}

	for _, ref := range regionRefs {
		lines, err := s.loadColumnLines(ref.id)
		if err != nil {
			return nil, err
		}
		spec.Columns[ref.section] = append(spec.Columns[ref.section], lines)
	}

	return spec, nil
}

func (s *Store) loadColumnLines(regionID int64) ([]float64, error) {
	rows, err := s.db.Query(`
		SELECT position FROM column_lines WHERE region_id = ? ORDER BY position
	`, regionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load column lines: %w", err)
	}
	defer rows.Close()

	var lines []float64
	for rows.Next() {
		var pos float64
		if err := rows.Scan(&pos); err != nil {
			return nil, fmt.Errorf("failed to scan column line: %w", err)
		}
		lines = append(lines, pos)
	}
	return lines, rows.Err()
}

// ListTemplates returns the stored template names in alphabetical order.
func (s *Store) ListTemplates() ([]string, error) {
	rows, err := s.db.Query("SELECT name FROM templates ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan template name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// DeleteTemplate removes a template and, via cascades, its pages, regions and
// column lines.
func (s *Store) DeleteTemplate(name string) error {
	res, err := s.db.Exec("DELETE FROM templates WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("failed to delete template %q: %w", name, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrTemplateNotFound, name)
	}
	return nil
}
