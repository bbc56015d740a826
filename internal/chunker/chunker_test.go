package chunker

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/mike-a-ellis/hse-assistant/internal/document"
)

func mustNew(t *testing.T, opts ...Option) *Chunker {
	t.Helper()
	c, err := New(opts...)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return c
}

// TestSplitText_ShortText tests that text shorter than the chunk size stays whole.
func TestSplitText_ShortText(t *testing.T) {
	text := "Workers must wear helmets and steel-toe boots in all excavation zones."
	chunks := mustNew(t).SplitText(text)
	if len(chunks) != 1 {
		t.Fatalf("Expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0] != text {
		t.Errorf("Chunk text changed: %q", chunks[0])
	}
}

// TestSplitText_ExactOverlap tests that neighbours share exactly overlap characters.
func TestSplitText_ExactOverlap(t *testing.T) {
	text := strings.Repeat("abcdefghij", 250)
	chunks := mustNew(t).SplitText(text)
	if len(chunks) != 3 {
		t.Fatalf("Expected 3 chunks, got %d", len(chunks))
	}

	for i := 0; i+1 < len(chunks); i++ {
		prev := []rune(chunks[i])
		next := []rune(chunks[i+1])
		tail := string(prev[len(prev)-DefaultChunkOverlap:])
		head := string(next[:DefaultChunkOverlap])
		if tail != head {
			t.Errorf("Chunks %d and %d do not overlap by %d characters", i, i+1, DefaultChunkOverlap)
		}
	}
	for i, c := range chunks {
		if n := utf8.RuneCountInString(c); n > DefaultChunkSize {
			t.Errorf("Chunk %d has %d characters, limit %d", i, n, DefaultChunkSize)
		}
	}
}

// TestSplitText_ChunkCount tests ceil((L - overlap) / (size - overlap)) for text without line breaks.
func TestSplitText_ChunkCount(t *testing.T) {
	tests := []struct {
		length int
		want   int
	}{
		{1000, 1},
		{1001, 2},
		{1800, 2},
		{1801, 3},
		{5000, 6},
	}

	c := mustNew(t)
	for _, tt := range tests {
		got := len(c.SplitText(strings.Repeat("x", tt.length)))
		if got != tt.want {
			t.Errorf("length %d: expected %d chunks, got %d", tt.length, tt.want, got)
		}
	}
}

// TestSplitText_PrefersLineBreak tests the line-break boundary and its fallback.
func TestSplitText_PrefersLineBreak(t *testing.T) {
	c := mustNew(t, WithChunkSize(10), WithOverlap(2))
	chunks := c.SplitText("aaaaa\nbbbbbbbbbbbb")

	want := []string{"aaaaa\n", "a\nbbbbbbbb", "bbbbbb"}
	if len(chunks) != len(want) {
		t.Fatalf("Expected %d chunks, got %d: %q", len(want), len(chunks), chunks)
	}
	for i := range want {
		if chunks[i] != want[i] {
			t.Errorf("Chunk %d: expected %q, got %q", i, want[i], chunks[i])
		}
	}
}

// TestSplitText_Unicode tests that limits are counted in characters, not bytes.
func TestSplitText_Unicode(t *testing.T) {
	c := mustNew(t, WithChunkSize(5), WithOverlap(1))
	chunks := c.SplitText("éééééééé")
	if len(chunks) != 2 {
		t.Fatalf("Expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0] != "ééééé" || chunks[1] != "éééé" {
		t.Errorf("Unexpected chunks %q", chunks)
	}
}

// TestSplitText_Blank tests that whitespace-only text produces no chunks.
func TestSplitText_Blank(t *testing.T) {
	if chunks := mustNew(t).SplitText(" \n\t "); len(chunks) != 0 {
		t.Errorf("Expected no chunks, got %d", len(chunks))
	}
}

// TestSplit_MetadataAndOrder tests inheritance, ordinals and output order.
func TestSplit_MetadataAndOrder(t *testing.T) {
	docs := []document.Document{
		{
			Text:     strings.Repeat("y", 15),
			Metadata: map[string]string{document.MetaSource: "a.pdf", document.MetaPage: "1"},
		},
		{
			Text:     "short",
			Metadata: map[string]string{document.MetaSource: "b.json", document.MetaType: document.TypeJSON},
		},
	}

	c := mustNew(t, WithChunkSize(10), WithOverlap(2))
	chunks := c.Split(docs)
	if len(chunks) != 3 {
		t.Fatalf("Expected 3 chunks, got %d", len(chunks))
	}

	wantSources := []string{"a.pdf", "a.pdf", "b.json"}
	wantOrdinals := []string{"0", "1", "0"}
	for i, ch := range chunks {
		if ch.Metadata[document.MetaSource] != wantSources[i] {
			t.Errorf("Chunk %d source: expected %q, got %q", i, wantSources[i], ch.Metadata[document.MetaSource])
		}
		if ch.Metadata[document.MetaChunk] != wantOrdinals[i] {
			t.Errorf("Chunk %d ordinal: expected %q, got %q", i, wantOrdinals[i], ch.Metadata[document.MetaChunk])
		}
	}
	if chunks[0].Metadata[document.MetaPage] != "1" {
		t.Errorf("Chunk 0 lost parent page metadata")
	}
	if _, ok := docs[0].Metadata[document.MetaChunk]; ok {
		t.Errorf("Split modified the parent document metadata")
	}
}

// TestSplit_DeterministicIDs tests that rebuilding yields the same chunk IDs.
func TestSplit_DeterministicIDs(t *testing.T) {
	docs := []document.Document{{Text: "text", Metadata: map[string]string{document.MetaSource: "a.pdf"}}}
	c := mustNew(t)

	first := c.Split(docs)
	second := c.Split(docs)
	if first[0].ID == "" || first[0].ID != second[0].ID {
		t.Errorf("Chunk IDs differ between runs: %q vs %q", first[0].ID, second[0].ID)
	}
}

// TestNew_InvalidParameters tests parameter validation.
func TestNew_InvalidParameters(t *testing.T) {
	cases := [][]Option{
		{WithChunkSize(0)},
		{WithOverlap(-1)},
		{WithChunkSize(100), WithOverlap(100)},
	}
	for i, opts := range cases {
		if _, err := New(opts...); !errors.Is(err, ErrInvalidParameters) {
			t.Errorf("case %d: expected ErrInvalidParameters, got %v", i, err)
		}
	}
}
