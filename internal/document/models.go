// Package document defines the units that flow through the indexing pipeline.
package document

import "maps"

// Metadata keys shared by documents and chunks.
const (
	MetaSource  = "source"  // Path of the source file the unit came from
	MetaPage    = "page"    // Page (or section) index within a paginated source
	MetaType    = "type"    // Type tag: pdf, json, markdown, text
	MetaSection = "section" // Header path for markdown sections
	MetaRecord  = "record"  // Record index or key within a record collection
	MetaChunk   = "chunk"   // Chunk ordinal within its parent document
)

// Type tags stored under MetaType.
const (
	TypePDF      = "pdf"
	TypeJSON     = "json"
	TypeMarkdown = "markdown"
	TypeText     = "text"
)

// UnknownSource is reported for chunks whose metadata carries no source.
const UnknownSource = "unknown"

// Document is one normalized unit of source text: a page, a section or a record.
// Documents are immutable once produced by the loader.
type Document struct {
	Text     string
	Metadata map[string]string
}

// Chunk is a bounded segment of a Document, the unit that gets embedded and retrieved.
type Chunk struct {
	ID       string            // Deterministic UUID derived from source, page and ordinal
	Text     string            // Segment text
	Metadata map[string]string // Parent metadata plus MetaChunk
}

// Source returns the chunk's source identifier, or UnknownSource if absent.
func (c Chunk) Source() string {
	if s := c.Metadata[MetaSource]; s != "" {
		return s
	}
	return UnknownSource
}

// CloneMetadata returns a copy of m that can be extended without touching the original.
func CloneMetadata(m map[string]string) map[string]string {
	out := make(map[string]string, len(m)+1)
	maps.Copy(out, m)
	return out
}
