package index

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/mike-a-ellis/hse-assistant/internal/document"
)

// DefaultCollection is the Qdrant collection used when none is configured.
const DefaultCollection = "hse_chunks"

const (
	vectorName    = "content"
	pointChunk    = "chunk"
	pointManifest = "manifest"
	upsertBatch   = 100
)

// manifestID is the fixed point ID of the manifest. The manifest point is
// written after every chunk, so its presence marks a complete build.
var manifestID = uuid.NewSHA1(uuid.NameSpaceURL, []byte("hse-assistant/index-manifest")).String()

// QdrantConfig describes the Qdrant connection.
type QdrantConfig struct {
	Host       string
	Port       int // gRPC port, usually 6334
	APIKey     string
	UseTLS     bool
	Collection string
}

// QdrantStore keeps the index in a Qdrant collection. Searches run server-side.
type QdrantStore struct {
	client     *qdrant.Client
	collection string
	logger     *slog.Logger
}

// NewQdrantStore connects to Qdrant and fails fast if it is unreachable.
func NewQdrantStore(cfg QdrantConfig, logger *slog.Logger) (*QdrantStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	s := &QdrantStore{client: client, collection: cfg.Collection, logger: logger}
	if err := s.healthCheckWithRetry(context.Background()); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrQdrantUnreachable, err)
	}
	return s, nil
}

func newBackoff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second
	return b
}

func (s *QdrantStore) healthCheckWithRetry(ctx context.Context) error {
	return backoff.Retry(func() error { return s.Health(ctx) }, backoff.WithContext(newBackoff(), ctx))
}

// Health performs a single health check against Qdrant.
func (s *QdrantStore) Health(ctx context.Context) error {
	result, err := s.client.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if result == nil || result.Title == "" {
		return fmt.Errorf("health check returned invalid response")
	}
	return nil
}

// Close closes the Qdrant connection.
func (s *QdrantStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

func (s *QdrantStore) exists(ctx context.Context) (bool, error) {
	names, err := s.client.ListCollections(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to list collections: %w", err)
	}
	for _, name := range names {
		if name == s.collection {
			return true, nil
		}
	}
	return false, nil
}

// Build recreates the collection and uploads every entry.
func (s *QdrantStore) Build(ctx context.Context, m Manifest, entries []Entry) (Index, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("build index: no entries")
	}
	if err := validateEntries(m, entries); err != nil {
		return nil, err
	}
	m.Chunks = len(entries)
	if m.BuiltAt.IsZero() {
		m.BuiltAt = time.Now().UTC()
	}

	if err := s.Remove(ctx); err != nil {
		return nil, err
	}
	if err := s.createCollection(ctx, m.Dimension); err != nil {
		return nil, err
	}

	for i := 0; i < len(entries); i += upsertBatch {
		end := min(i+upsertBatch, len(entries))
		points := make([]*qdrant.PointStruct, 0, end-i)
		for j := i; j < end; j++ {
			points = append(points, chunkPoint(j, entries[j]))
		}
		if err := s.upsertWithRetry(ctx, points); err != nil {
			return nil, fmt.Errorf("failed to upsert batch %d-%d: %w", i, end, err)
		}
	}

	raw, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encoding manifest: %w", err)
	}
	manifest := &qdrant.PointStruct{
		Id:      qdrant.NewIDUUID(manifestID),
		Vectors: qdrant.NewVectorsMap(map[string]*qdrant.Vector{}),
		Payload: qdrant.NewValueMap(map[string]any{"type": pointManifest, "manifest": string(raw)}),
	}
	if err := s.upsertWithRetry(ctx, []*qdrant.PointStruct{manifest}); err != nil {
		return nil, fmt.Errorf("failed to write manifest: %w", err)
	}

	s.logger.Info("Index written", "collection", s.collection, "chunks", m.Chunks, "model", m.Model)
	return &qdrantIndex{store: s, manifest: m}, nil
}

func (s *QdrantStore) createCollection(ctx context.Context, dim int) error {
	err := s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfigMap(map[string]*qdrant.VectorParams{
			vectorName: {
				Size:     uint64(dim),
				Distance: qdrant.Distance_Cosine,
			},
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	for _, field := range []string{"type", "source"} {
		_, err := s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: s.collection,
			FieldName:      field,
			FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
		})
		if err != nil {
			return fmt.Errorf("failed to create index for field %s: %w", field, err)
		}
	}
	return nil
}

func chunkPoint(ordinal int, e Entry) *qdrant.PointStruct {
	meta := make(map[string]any, len(e.Chunk.Metadata))
	for k, v := range e.Chunk.Metadata {
		meta[k] = v
	}
	return &qdrant.PointStruct{
		Id: qdrant.NewIDUUID(e.Chunk.ID),
		Vectors: qdrant.NewVectorsMap(map[string]*qdrant.Vector{
			vectorName: qdrant.NewVector(e.Vector...),
		}),
		Payload: qdrant.NewValueMap(map[string]any{
			"type":     pointChunk,
			"ordinal":  ordinal,
			"text":     e.Chunk.Text,
			"source":   e.Chunk.Source(),
			"metadata": meta,
		}),
	}
}

func (s *QdrantStore) upsertWithRetry(ctx context.Context, points []*qdrant.PointStruct) error {
	operation := func() error {
		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: s.collection,
			Points:         points,
		})
		return err
	}
	return backoff.Retry(operation, backoff.WithContext(newBackoff(), ctx))
}

// Load checks that a complete index built for want exists in the collection.
func (s *QdrantStore) Load(ctx context.Context, want Manifest) (Index, error) {
	ok, err := s.exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIndexLoad, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %w: %s", ErrIndexNotFound, ErrCollectionNotFound, s.collection)
	}

	points, err := s.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: s.collection,
		Ids:            []*qdrant.PointId{qdrant.NewIDUUID(manifestID)},
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: reading manifest: %v", ErrIndexLoad, err)
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("%w: collection has no manifest, build incomplete", ErrIndexLoad)
	}

	var m Manifest
	if err := json.Unmarshal([]byte(points[0].Payload["manifest"].GetStringValue()), &m); err != nil {
		return nil, fmt.Errorf("%w: decoding manifest: %v", ErrIndexLoad, err)
	}
	if err := m.Compatible(want); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIndexLoad, err)
	}

	count, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: s.collection,
		Filter:         &qdrant.Filter{Must: []*qdrant.Condition{qdrant.NewMatch("type", pointChunk)}},
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: counting chunks: %v", ErrIndexLoad, err)
	}
	if count == 0 || int(count) != m.Chunks {
		return nil, fmt.Errorf("%w: manifest lists %d chunks, found %d", ErrIndexLoad, m.Chunks, count)
	}

	s.logger.Info("Index loaded", "collection", s.collection, "chunks", count, "model", m.Model)
	return &qdrantIndex{store: s, manifest: m}, nil
}

// Remove deletes the collection if it exists.
func (s *QdrantStore) Remove(ctx context.Context) error {
	ok, err := s.exists(ctx)
	if err != nil || !ok {
		return err
	}
	if err := s.client.DeleteCollection(ctx, s.collection); err != nil {
		return fmt.Errorf("failed to delete collection: %w", err)
	}
	return nil
}

type qdrantIndex struct {
	store    *QdrantStore
	manifest Manifest
}

func (q *qdrantIndex) Search(ctx context.Context, query []float32, k int) ([]Hit, error) {
	if k < 1 {
		return nil, ErrInvalidK
	}
	if len(query) != q.manifest.Dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, expected %d",
			ErrDimensionMismatch, len(query), q.manifest.Dimension)
	}

	using := vectorName
	results, err := q.store.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.store.collection,
		Query:          qdrant.NewQuery(query...),
		Using:          &using,
		Filter:         &qdrant.Filter{Must: []*qdrant.Condition{qdrant.NewMatch("type", pointChunk)}},
		Limit:          qdrant.PtrOf(uint64(k)),
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(false),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search chunks: %w", err)
	}

	hits := make([]Hit, 0, len(results))
	ordinals := make([]int64, 0, len(results))
	for _, r := range results {
		payload := r.Payload
		meta := make(map[string]string)
		for key, v := range payload["metadata"].GetStructValue().GetFields() {
			meta[key] = v.GetStringValue()
		}
		hits = append(hits, Hit{
			Chunk: document.Chunk{
				ID:       r.Id.GetUuid(),
				Text:     payload["text"].GetStringValue(),
				Metadata: meta,
			},
			Score: float64(r.Score),
		})
		ordinals = append(ordinals, payload["ordinal"].GetIntegerValue())
	}

	// Equal scores are ordered by insertion, as with the local index.
	order := make([]int, len(hits))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ha, hb := hits[order[a]], hits[order[b]]
		if ha.Score != hb.Score {
			return ha.Score > hb.Score
		}
		return ordinals[order[a]] < ordinals[order[b]]
	})
	sorted := make([]Hit, len(hits))
	for i, j := range order {
		sorted[i] = hits[j]
	}
	return sorted, nil
}

func (q *qdrantIndex) Len() int { return q.manifest.Chunks }

func (q *qdrantIndex) Manifest() Manifest { return q.manifest }

// Close is a no-op; the connection belongs to the store.
func (q *qdrantIndex) Close() error { return nil }
