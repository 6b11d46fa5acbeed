// Package cache memoizes extraction work within one document-editing session.
// The per-region tier is keyed by a fingerprint of the semantic inputs; a
// second tier holds the latest whole-document result per document path.
// There is no eviction beyond explicit invalidation - the owner clears the
// cache between documents.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/tularam-sharma/pdfharvest-sub002/internal/extraction"
	"github.com/tularam-sharma/pdfharvest-sub002/internal/geometry"
)

// Key identifies one region extraction. Build it with NewKey only, so two
// logically identical requests always collapse to the same entry.
type Key struct {
	fingerprint string
	document    string
	page        int
	section     geometry.Section
}

// NewKey derives a deterministic fingerprint from the semantic inputs.
// Coordinates and column lines are rounded to two decimals before hashing so
// representation noise (float formatting, list vs string) cannot split
// entries; document, page, section and region label keep distinct geometries
// from ever colliding in practice.
func NewKey(document string, page int, coords geometry.Coords, columns []float64,
	section geometry.Section, regionLabel string,
) Key {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\x00%d\x00%s\x00%s\x00", document, page, section, regionLabel)
	for _, c := range coords {
		fmt.Fprintf(&b, "%.2f,", c)
	}
	b.WriteByte('\x00')
	rounded := make([]float64, len(columns))
	copy(rounded, columns)
	sort.Float64s(rounded)
	for _, c := range rounded {
		fmt.Fprintf(&b, "%.2f,", c)
	}

	sum := sha256.Sum256([]byte(b.String()))
	return Key{
		fingerprint: hex.EncodeToString(sum[:]),
		document:    document,
		page:        page,
		section:     section,
	}
}

// Stats exposes hit/miss counters so tests can observe cache behavior.
type Stats struct {
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Entries   int   `json:"entries"`
	Documents int   `json:"documents"`
}

type entry struct {
	fragment *extraction.Fragment // nil memoizes "no usable table"
	document string
	page     int
	section  geometry.Section
}

// Cache is safe for concurrent use. Section-scoped invalidation is atomic
// with respect to in-flight readers: a reader sees either the pre-edit or the
// post-edit state of a key, never a torn mix.
type Cache struct {
	mu        sync.RWMutex
	entries   map[string]entry
	documents map[string]*extraction.DocumentExtraction
	hits      int64
	misses    int64
}

// New creates an empty cache for one editing session.
func New() *Cache {
	return &Cache{
		entries:   make(map[string]entry),
		documents: make(map[string]*extraction.DocumentExtraction),
	}
}

// GetOrCompute returns the cached fragment for key, computing and storing it
// on a miss. Nil results are stored too: "no usable table" is an answer worth
// remembering. The bool reports whether this was a hit.
func (c *Cache) GetOrCompute(key Key, compute func() (*extraction.Fragment, error)) (*extraction.Fragment, bool, error) {
	c.mu.RLock()
	e, ok := c.entries[key.fingerprint]
	c.mu.RUnlock()
	if ok {
		c.mu.Lock()
		c.hits++
		c.mu.Unlock()
		return e.fragment, true, nil
	}

	fragment, err := compute()
	if err != nil {
		return nil, false, err
	}

	c.mu.Lock()
	c.misses++
	c.entries[key.fingerprint] = entry{
		fragment: fragment,
		document: key.document,
		page:     key.page,
		section:  key.section,
	}
	c.mu.Unlock()
	return fragment, false, nil
}

// InvalidateSection removes only the entries matching the document+page+
// section triple. The whole-document tier is always preserved here: a
// section-level geometry edit should not force a full re-extraction unless
// the caller explicitly drops it via InvalidateDocument.
func (c *Cache) InvalidateSection(document string, page int, section geometry.Section) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for fp, e := range c.entries {
		if e.document == document && e.page == page && e.section == section {
			delete(c.entries, fp)
			removed++
		}
	}
	return removed
}

// InvalidateDocument removes every per-region entry derived from the
// document. Unless preserveMultipage is set, the whole-document entry goes
// too.
func (c *Cache) InvalidateDocument(document string, preserveMultipage bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for fp, e := range c.entries {
		if e.document == document {
			delete(c.entries, fp)
			removed++
		}
	}
	if !preserveMultipage {
		delete(c.documents, document)
	}
	return removed
}

// GetDocument returns the latest whole-document result for a path.
func (c *Cache) GetDocument(document string) (*extraction.DocumentExtraction, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	res, ok := c.documents[document]
	return res, ok
}

// PutDocument publishes a complete whole-document result. Only the merge
// engine calls this, and only after its merge phase finished.
func (c *Cache) PutDocument(document string, result *extraction.DocumentExtraction) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.documents[document] = result
}

// Stats returns a snapshot of the counters.
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Stats{
		Hits:      c.hits,
		Misses:    c.misses,
		Entries:   len(c.entries),
		Documents: len(c.documents),
	}
}

// Clear disposes of everything; the cache can be reused afterwards.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry)
	c.documents = make(map[string]*extraction.DocumentExtraction)
	c.hits = 0
	c.misses = 0
}
