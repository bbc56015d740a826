package document

import "testing"

func TestChunkSource(t *testing.T) {
	c := Chunk{Metadata: map[string]string{MetaSource: "data/hse.pdf"}}
	if got := c.Source(); got != "data/hse.pdf" {
		t.Errorf("Source: expected data/hse.pdf, got %q", got)
	}

	empty := Chunk{}
	if got := empty.Source(); got != UnknownSource {
		t.Errorf("Source without metadata: expected %q, got %q", UnknownSource, got)
	}
}

func TestCloneMetadata_Independent(t *testing.T) {
	orig := map[string]string{MetaSource: "a.pdf"}
	clone := CloneMetadata(orig)
	clone[MetaChunk] = "0"

	if _, ok := orig[MetaChunk]; ok {
		t.Error("CloneMetadata: modifying clone changed the original")
	}
	if clone[MetaSource] != "a.pdf" {
		t.Errorf("CloneMetadata: expected source a.pdf, got %q", clone[MetaSource])
	}
}
