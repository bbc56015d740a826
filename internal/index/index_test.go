package index

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mike-a-ellis/hse-assistant/internal/document"
)

func unit(v ...float32) []float32 {
	var s float64
	for _, x := range v {
		s += float64(x) * float64(x)
	}
	n := float32(math.Sqrt(s))
	for i := range v {
		v[i] /= n
	}
	return v
}

func entry(id string, vec []float32) Entry {
	return Entry{
		Chunk: document.Chunk{
			ID:       id,
			Text:     "text of " + id,
			Metadata: map[string]string{document.MetaSource: id + ".pdf", document.MetaChunk: "0"},
		},
		Vector: vec,
	}
}

func randomEntries(r *rand.Rand, n, dim int) []Entry {
	entries := make([]Entry, n)
	for i := range entries {
		v := make([]float32, dim)
		for j := range v {
			v[j] = float32(r.NormFloat64())
		}
		id := fmt.Sprintf("00000000-0000-0000-0000-%012d", i)
		entries[i] = entry(id, unit(v...))
	}
	return entries
}

var testManifest = Manifest{Model: "test-model", Dimension: 3}

func TestFlatIndex_SearchOrdering(t *testing.T) {
	idx, err := NewFlatIndex(testManifest, []Entry{
		entry("a", unit(1, 0, 0)),
		entry("b", unit(0, 1, 0)),
		entry("c", unit(1, 1, 0)),
	})
	require.NoError(t, err)

	hits, err := idx.Search(context.Background(), unit(1, 0.2, 0), 3)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, "a", hits[0].Chunk.ID)
	assert.Equal(t, "c", hits[1].Chunk.ID)
	assert.Equal(t, "b", hits[2].Chunk.ID)

	for i := 1; i < len(hits); i++ {
		assert.GreaterOrEqual(t, hits[i-1].Score, hits[i].Score)
	}
}

func TestFlatIndex_FewerEntriesThanK(t *testing.T) {
	idx, err := NewFlatIndex(testManifest, []Entry{
		entry("a", unit(0, 0, 1)),
		entry("b", unit(0, 1, 1)),
	})
	require.NoError(t, err)

	hits, err := idx.Search(context.Background(), unit(0, 1, 0), 10)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "b", hits[0].Chunk.ID)
}

func TestFlatIndex_TiesKeepInsertionOrder(t *testing.T) {
	idx, err := NewFlatIndex(testManifest, []Entry{
		entry("first", unit(1, 0, 0)),
		entry("second", unit(1, 0, 0)),
		entry("third", unit(1, 0, 0)),
	})
	require.NoError(t, err)

	hits, err := idx.Search(context.Background(), unit(1, 0, 0), 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second", "third"},
		[]string{hits[0].Chunk.ID, hits[1].Chunk.ID, hits[2].Chunk.ID})
}

func TestFlatIndex_InvalidQueries(t *testing.T) {
	idx, err := NewFlatIndex(testManifest, []Entry{entry("a", unit(1, 0, 0))})
	require.NoError(t, err)

	_, err = idx.Search(context.Background(), unit(1, 0, 0), 0)
	assert.ErrorIs(t, err, ErrInvalidK)

	_, err = idx.Search(context.Background(), unit(1, 0), 1)
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	_, err = NewFlatIndex(testManifest, []Entry{entry("bad", unit(1, 0))})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestFlatIndex_RandomOrderingProperty(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	m := Manifest{Model: "test-model", Dimension: 16}
	idx, err := NewFlatIndex(m, randomEntries(r, 50, 16))
	require.NoError(t, err)

	for _, k := range []int{1, 3, 10, 50, 80} {
		hits, err := idx.Search(context.Background(), randomEntries(r, 1, 16)[0].Vector, k)
		require.NoError(t, err)
		assert.Len(t, hits, min(k, 50))
		for i := 1; i < len(hits); i++ {
			assert.GreaterOrEqual(t, hits[i-1].Score, hits[i].Score, "k=%d position %d", k, i)
		}
	}
}

func TestManifest_Compatible(t *testing.T) {
	assert.NoError(t, testManifest.Compatible(Manifest{Model: "test-model", Dimension: 3}))
	assert.Error(t, testManifest.Compatible(Manifest{Model: "other", Dimension: 3}))
	assert.ErrorIs(t, testManifest.Compatible(Manifest{Model: "test-model", Dimension: 4}), ErrDimensionMismatch)
}

func TestSQLiteStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	r := rand.New(rand.NewSource(42))
	m := Manifest{Model: "test-model", Dimension: 8}
	entries := randomEntries(r, 30, 8)

	store := NewSQLiteStore(filepath.Join(t.TempDir(), "db"), nil)
	built, err := store.Build(ctx, m, entries)
	require.NoError(t, err)
	assert.Equal(t, 30, built.Len())

	loaded, err := store.Load(ctx, m)
	require.NoError(t, err)
	defer loaded.Close()
	assert.Equal(t, 30, loaded.Len())
	assert.Equal(t, m.Model, loaded.Manifest().Model)

	for q := 0; q < 5; q++ {
		query := randomEntries(r, 1, 8)[0].Vector
		for _, k := range []int{1, 5, 30, 100} {
			want, err := built.Search(ctx, query, k)
			require.NoError(t, err)
			got, err := loaded.Search(ctx, query, k)
			require.NoError(t, err)

			require.Len(t, got, len(want))
			for i := range want {
				assert.Equal(t, want[i].Chunk, got[i].Chunk)
				assert.InDelta(t, want[i].Score, got[i].Score, 1e-9)
			}
		}
	}
}

func TestSQLiteStore_LoadMissing(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	_, err := NewSQLiteStore(filepath.Join(dir, "absent"), nil).Load(ctx, testManifest)
	assert.ErrorIs(t, err, ErrIndexNotFound)

	// An existing but empty directory is treated the same way.
	_, err = NewSQLiteStore(dir, nil).Load(ctx, testManifest)
	assert.ErrorIs(t, err, ErrIndexNotFound)
}

func TestSQLiteStore_LoadRejectsOtherModel(t *testing.T) {
	ctx := context.Background()
	store := NewSQLiteStore(t.TempDir(), nil)
	_, err := store.Build(ctx, testManifest, []Entry{entry("a", unit(1, 0, 0))})
	require.NoError(t, err)

	_, err = store.Load(ctx, Manifest{Model: "another-model", Dimension: 3})
	assert.ErrorIs(t, err, ErrIndexLoad)

	_, err = store.Load(ctx, Manifest{Model: "test-model", Dimension: 384})
	assert.ErrorIs(t, err, ErrIndexLoad)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestSQLiteStore_LoadCorrupt(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("not a database at all, just junk bytes"), 0o644))

	_, err := NewSQLiteStore(dir, nil).Load(context.Background(), testManifest)
	assert.ErrorIs(t, err, ErrIndexLoad)
}

func TestSQLiteStore_RebuildReplaces(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := NewSQLiteStore(dir, nil)

	_, err := store.Build(ctx, testManifest, []Entry{entry("old", unit(1, 0, 0))})
	require.NoError(t, err)
	_, err = store.Build(ctx, testManifest, []Entry{entry("new1", unit(0, 1, 0)), entry("new2", unit(0, 0, 1))})
	require.NoError(t, err)

	loaded, err := store.Load(ctx, testManifest)
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.Len())

	files, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, files, 1, "temporary build files must not be left behind")
	assert.Equal(t, FileName, files[0].Name())
}

func TestSQLiteStore_BuildRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "db")
	store := NewSQLiteStore(dir, nil)

	_, err := store.Build(ctx, testManifest, nil)
	assert.Error(t, err)

	_, err = store.Build(ctx, testManifest, []Entry{entry("a", unit(1, 0))})
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	_, err = store.Load(ctx, testManifest)
	assert.ErrorIs(t, err, ErrIndexNotFound, "a failed build must leave no index behind")
}

func TestSQLiteStore_Remove(t *testing.T) {
	ctx := context.Background()
	store := NewSQLiteStore(t.TempDir(), nil)
	_, err := store.Build(ctx, testManifest, []Entry{entry("a", unit(1, 0, 0))})
	require.NoError(t, err)

	require.NoError(t, store.Remove(ctx))
	_, err = store.Load(ctx, testManifest)
	assert.ErrorIs(t, err, ErrIndexNotFound)

	assert.NoError(t, store.Remove(ctx), "removing twice is not an error")
}
