// Package serialize renders a document extraction into the flat pipe-delimited
// text consumed by the downstream field-matching engine. The line order and
// the "|" separator are a fixed external contract.
package serialize

import (
	"strings"

	"github.com/tularam-sharma/pdfharvest-sub002/internal/extraction"
)

// MetadataEntry is one key|value line of the METADATA block. A slice keeps the
// caller's ordering, which the output must reproduce.
type MetadataEntry struct {
	Key   string
	Value string
}

// Serialize renders the extraction deterministically. Every block header is
// always emitted; a section with no rows contributes only its header line.
// Provenance fields other than the leading region label are not rendered.
func Serialize(result *extraction.DocumentExtraction, metadata []MetadataEntry) string {
	var b strings.Builder

	b.WriteString("METADATA\n")
	for _, entry := range metadata {
		b.WriteString(entry.Key)
		b.WriteByte('|')
		b.WriteString(entry.Value)
		b.WriteByte('\n')
	}

	b.WriteString("HEADER\n")
	writeFragment(&b, result.Header)

	b.WriteString("ITEMS\n")
	for i := range result.Items {
		writeFragment(&b, &result.Items[i])
	}

	b.WriteString("SUMMARY\n")
	writeFragment(&b, result.Summary)

	return b.String()
}

// writeFragment emits one region_label|v1|v2|... line per row, cells in the
// fragment's column order. Null cells render as empty fields.
func writeFragment(b *strings.Builder, f *extraction.Fragment) {
	if f.Empty() {
		return
	}
	for _, row := range f.Rows {
		b.WriteString(row.RegionLabel)
		for _, col := range f.Columns {
			b.WriteByte('|')
			if cell, ok := row.Cells[col]; ok && !cell.Null {
				b.WriteString(cell.Value)
			}
		}
		b.WriteByte('\n')
	}
}
