// Package pdfio gives the extraction pipeline read access to a PDF document:
// page count, page dimensions, and positioned words in extraction space.
package pdfio

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// ErrDocumentUnreadable marks a document that cannot be opened or paged.
// It is fatal for that document but never touches the extraction cache.
var ErrDocumentUnreadable = errors.New("document unreadable")

// Word is a positioned run of text in extraction space (bottom-left origin).
// X is the left edge, W the width, Y the baseline.
type Word struct {
	Text string
	X    float64
	Y    float64
	W    float64
}

// Document is an open PDF. It is not safe for concurrent page reads; the
// harvester drives one document on one worker at a time.
type Document struct {
	path      string
	file      *os.File
	reader    *pdf.Reader
	pageCount int
	closed    bool
}

// Open validates and opens the document at path. The page count is taken from
// pdfcpu, which is stricter about malformed files than the text reader; any
// failure on this path is reported as ErrDocumentUnreadable.
func Open(path string, maxFileSize int64) (*Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDocumentUnreadable, path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrDocumentUnreadable, path)
	}
	if maxFileSize > 0 && info.Size() > maxFileSize {
		return nil, fmt.Errorf("%w: %s is %d bytes (max %d)", ErrDocumentUnreadable, path, info.Size(), maxFileSize)
	}

	pageCount, err := api.PageCountFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDocumentUnreadable, path, err)
	}
	if pageCount <= 0 {
		return nil, fmt.Errorf("%w: %s has no pages", ErrDocumentUnreadable, path)
	}

	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDocumentUnreadable, path, err)
	}

	return &Document{
		path:      path,
		file:      f,
		reader:    reader,
		pageCount: pageCount,
	}, nil
}

// Path returns the document path, which also keys the extraction cache.
func (d *Document) Path() string { return d.path }

// PageCount returns the number of pages.
func (d *Document) PageCount() int { return d.pageCount }

// Close releases the underlying file handle.
func (d *Document) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	if d.file != nil {
		return d.file.Close()
	}
	return nil
}

// PageHeight returns the MediaBox height of a 1-based page, falling back to
// US Letter when the page carries no usable MediaBox.
func (d *Document) PageHeight(pageNumber int) (float64, error) {
	if pageNumber < 1 || pageNumber > d.pageCount {
		return 0, fmt.Errorf("page %d out of range 1..%d", pageNumber, d.pageCount)
	}
	page := d.reader.Page(pageNumber)
	if page.V.IsNull() {
		return 0, fmt.Errorf("page %d is not readable", pageNumber)
	}
	mediaBox := page.V.Key("MediaBox")
	if mediaBox.IsNull() || mediaBox.Kind() != pdf.Array || mediaBox.Len() != 4 {
		return 792, nil
	}
	y0 := mediaBox.Index(1).Float64()
	y1 := mediaBox.Index(3).Float64()
	h := y1 - y0
	if h <= 0 {
		return 792, nil
	}
	return h, nil
}

// PageWords extracts the positioned words of a 1-based page. Text runs from
// the content stream are joined into words when they share a baseline and sit
// close enough horizontally. Malformed content streams panic inside the
// reader; that is recovered here and surfaced as an error.
func (d *Document) PageWords(pageNumber int) (words []Word, err error) {
	if pageNumber < 1 || pageNumber > d.pageCount {
		return nil, fmt.Errorf("page %d out of range 1..%d", pageNumber, d.pageCount)
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic reading page %d of %s: %v", pageNumber, d.path, r)
		}
	}()

	page := d.reader.Page(pageNumber)
	if page.V.IsNull() {
		return nil, fmt.Errorf("page %d is not readable", pageNumber)
	}

	content := page.Content()
	return assembleWords(content.Text), nil
}

// baselineTolerance is how far apart two Y baselines may be while still
// counting as the same text line.
const baselineTolerance = 2.0

// assembleWords joins raw text runs into words. Runs are sorted top-down then
// left-to-right; adjacent runs on one baseline merge when the horizontal gap
// is smaller than a fraction of the font size.
func assembleWords(texts []pdf.Text) []Word {
	if len(texts) == 0 {
		return nil
	}

	sorted := make([]pdf.Text, len(texts))
	copy(sorted, texts)
	sort.SliceStable(sorted, func(i, j int) bool {
		if diff := sorted[i].Y - sorted[j].Y; diff > baselineTolerance || diff < -baselineTolerance {
			return sorted[i].Y > sorted[j].Y
		}
		return sorted[i].X < sorted[j].X
	})

	var words []Word
	current := Word{}
	var lastEnd float64

	flush := func() {
		if current.Text != "" {
			words = append(words, current)
			current = Word{}
		}
	}

	for _, t := range sorted {
		if t.S == "" {
			continue
		}
		gapLimit := t.FontSize * 0.3
		if gapLimit <= 0 {
			gapLimit = 1.0
		}
		sameLine := current.Text != "" && t.Y >= current.Y-baselineTolerance && t.Y <= current.Y+baselineTolerance
		if sameLine && t.S != " " && t.X-lastEnd <= gapLimit {
			current.Text += t.S
			current.W = t.X + t.W - current.X
		} else {
			flush()
			if t.S == " " {
				lastEnd = t.X + t.W
				continue
			}
			current = Word{Text: t.S, X: t.X, Y: t.Y, W: t.W}
		}
		lastEnd = t.X + t.W
	}
	flush()

	return words
}
