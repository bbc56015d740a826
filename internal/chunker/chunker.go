// Package chunker splits documents into fixed-size overlapping chunks.
package chunker

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/mike-a-ellis/hse-assistant/internal/document"
)

const (
	// DefaultChunkSize is the maximum chunk length in characters.
	DefaultChunkSize = 1000

	// DefaultChunkOverlap is the number of characters shared by neighbouring chunks.
	DefaultChunkOverlap = 200

	// Separator is the preferred split boundary.
	Separator = '\n'
)

var ErrInvalidParameters = errors.New("invalid chunking parameters")

// Option configures a Chunker.
type Option func(*Chunker)

// WithChunkSize sets the maximum chunk length in characters.
func WithChunkSize(size int) Option {
	return func(c *Chunker) { c.size = size }
}

// WithOverlap sets the overlap between consecutive chunks in characters.
func WithOverlap(overlap int) Option {
	return func(c *Chunker) { c.overlap = overlap }
}

// Chunker cuts document text into windows of at most size characters.
// Lengths are counted in Unicode code points, not bytes.
type Chunker struct {
	size    int
	overlap int
}

// New creates a Chunker. Overlap must be non-negative and smaller than size.
func New(opts ...Option) (*Chunker, error) {
	c := &Chunker{size: DefaultChunkSize, overlap: DefaultChunkOverlap}
	for _, opt := range opts {
		opt(c)
	}
	if c.size <= 0 {
		return nil, fmt.Errorf("%w: chunk size %d must be positive", ErrInvalidParameters, c.size)
	}
	if c.overlap < 0 || c.overlap >= c.size {
		return nil, fmt.Errorf("%w: overlap %d must be in [0, %d)", ErrInvalidParameters, c.overlap, c.size)
	}
	return c, nil
}

// Size returns the configured chunk size.
func (c *Chunker) Size() int { return c.size }

// Overlap returns the configured chunk overlap.
func (c *Chunker) Overlap() int { return c.overlap }

// Split chunks every document in order. Chunks keep their parent's metadata
// and add the intra-document ordinal under document.MetaChunk.
func (c *Chunker) Split(docs []document.Document) []document.Chunk {
	var chunks []document.Chunk
	for i, doc := range docs {
		for ordinal, text := range c.SplitText(doc.Text) {
			meta := document.CloneMetadata(doc.Metadata)
			meta[document.MetaChunk] = strconv.Itoa(ordinal)
			chunks = append(chunks, document.Chunk{
				ID:       chunkID(meta[document.MetaSource], i, ordinal),
				Text:     text,
				Metadata: meta,
			})
		}
	}
	return chunks
}

// SplitText cuts text into windows. A window that does not reach the end of
// the text is shortened to end just after its last line break, provided the
// shortened window still extends past the overlap; otherwise it is cut hard.
// Each window after the first starts exactly overlap characters before the
// previous one ended. Whitespace-only windows are dropped.
func (c *Chunker) SplitText(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	runes := []rune(text)
	if len(runes) <= c.size {
		return []string{text}
	}

	var out []string
	start := 0
	for {
		end := start + c.size
		if end >= len(runes) {
			out = appendNonBlank(out, string(runes[start:]))
			return out
		}
		for cut := end; cut > start+c.overlap; cut-- {
			if runes[cut-1] == Separator {
				end = cut
				break
			}
		}
		out = appendNonBlank(out, string(runes[start:end]))
		start = end - c.overlap
	}
}

func appendNonBlank(out []string, s string) []string {
	if strings.TrimSpace(s) == "" {
		return out
	}
	return append(out, s)
}

// chunkID is stable for the same source layout so rebuilt indexes keep their IDs.
func chunkID(source string, docIndex, ordinal int) string {
	name := fmt.Sprintf("%s|%d|%d", source, docIndex, ordinal)
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()
}
