package index

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/mike-a-ellis/hse-assistant/internal/document"
)

// FileName is the index database inside the configured directory.
const FileName = "index.db"

const schema = `
CREATE TABLE meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
CREATE TABLE chunks (
	ordinal  INTEGER PRIMARY KEY,
	id       TEXT NOT NULL,
	text     TEXT NOT NULL,
	metadata TEXT NOT NULL,
	vector   BLOB NOT NULL
);`

// SQLiteStore persists the index as a single SQLite file and serves searches
// from memory. Build writes to a temporary file in the same directory and
// renames it into place, so a reader sees either the previous index or the
// new one, never a partial file.
type SQLiteStore struct {
	dir    string
	logger *slog.Logger
}

// NewSQLiteStore creates a store rooted at dir. The directory is created on Build.
func NewSQLiteStore(dir string, logger *slog.Logger) *SQLiteStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &SQLiteStore{dir: dir, logger: logger}
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return filepath.Join(s.dir, FileName)
}

// Build writes entries to disk and returns the in-memory index.
func (s *SQLiteStore) Build(ctx context.Context, m Manifest, entries []Entry) (Index, error) {
	if len(entries) == 0 {
		return nil, errors.New("build index: no entries")
	}
	if err := validateEntries(m, entries); err != nil {
		return nil, err
	}
	m.Chunks = len(entries)
	if m.BuiltAt.IsZero() {
		m.BuiltAt = time.Now().UTC()
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}
	tmp := filepath.Join(s.dir, "."+FileName+"."+uuid.NewString()+".tmp")
	defer os.Remove(tmp) // no-op once renamed

	if err := s.write(ctx, tmp, m, entries); err != nil {
		return nil, err
	}
	if err := os.Rename(tmp, s.Path()); err != nil {
		return nil, fmt.Errorf("installing index: %w", err)
	}
	s.logger.Info("Index written", "path", s.Path(), "chunks", m.Chunks, "model", m.Model)

	return NewFlatIndex(m, entries)
}

func (s *SQLiteStore) write(ctx context.Context, path string, m Manifest, entries []Entry) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO chunks (ordinal, id, text, metadata, vector) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, e := range entries {
		meta, err := json.Marshal(e.Chunk.Metadata)
		if err != nil {
			return fmt.Errorf("encoding metadata for chunk %d: %w", i, err)
		}
		if _, err := stmt.ExecContext(ctx, i, e.Chunk.ID, e.Chunk.Text, string(meta), encodeVector(e.Vector)); err != nil {
			return fmt.Errorf("inserting chunk %d: %w", i, err)
		}
	}

	manifest, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO meta (key, value) VALUES ('manifest', ?)`, string(manifest)); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing index: %w", err)
	}
	return db.Close()
}

// Load reads the persisted index into memory and checks it against want.
func (s *SQLiteStore) Load(ctx context.Context, want Manifest) (Index, error) {
	if _, err := os.Stat(s.Path()); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrIndexNotFound, s.Path())
		}
		return nil, fmt.Errorf("%w: %v", ErrIndexLoad, err)
	}

	db, err := sql.Open("sqlite", s.Path())
	if err != nil {
		return nil, fmt.Errorf("%w: opening database: %v", ErrIndexLoad, err)
	}
	defer db.Close()

	var raw string
	if err := db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = 'manifest'`).Scan(&raw); err != nil {
		return nil, fmt.Errorf("%w: reading manifest: %v", ErrIndexLoad, err)
	}
	var m Manifest
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, fmt.Errorf("%w: decoding manifest: %v", ErrIndexLoad, err)
	}
	if err := m.Compatible(want); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIndexLoad, err)
	}

	entries, err := readEntries(ctx, db, m.Dimension)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIndexLoad, err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: index is empty", ErrIndexLoad)
	}
	if len(entries) != m.Chunks {
		return nil, fmt.Errorf("%w: manifest lists %d chunks, found %d", ErrIndexLoad, m.Chunks, len(entries))
	}

	s.logger.Info("Index loaded", "path", s.Path(), "chunks", len(entries), "model", m.Model)
	return NewFlatIndex(m, entries)
}

func readEntries(ctx context.Context, db *sql.DB, dim int) ([]Entry, error) {
	rows, err := db.QueryContext(ctx, `SELECT id, text, metadata, vector FROM chunks ORDER BY ordinal`)
	if err != nil {
		return nil, fmt.Errorf("reading chunks: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			id, text, meta string
			blob           []byte
		)
		if err := rows.Scan(&id, &text, &meta, &blob); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		var metadata map[string]string
		if err := json.Unmarshal([]byte(meta), &metadata); err != nil {
			return nil, fmt.Errorf("decoding metadata of chunk %s: %w", id, err)
		}
		vec, err := decodeVector(blob, dim)
		if err != nil {
			return nil, fmt.Errorf("chunk %s: %w", id, err)
		}
		entries = append(entries, Entry{
			Chunk:  document.Chunk{ID: id, Text: text, Metadata: metadata},
			Vector: vec,
		})
	}
	return entries, rows.Err()
}

// Remove deletes the persisted index and any leftover temporary files.
func (s *SQLiteStore) Remove(ctx context.Context) error {
	if err := os.Remove(s.Path()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing index: %w", err)
	}
	leftovers, _ := filepath.Glob(filepath.Join(s.dir, "."+FileName+".*.tmp"))
	for _, f := range leftovers {
		os.Remove(f)
	}
	s.logger.Info("Index removed", "path", s.Path())
	return nil
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(data []byte, dim int) ([]float32, error) {
	if len(data) != dim*4 {
		return nil, fmt.Errorf("%w: vector has %d bytes, expected %d", ErrDimensionMismatch, len(data), dim*4)
	}
	v := make([]float32, dim)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return v, nil
}
