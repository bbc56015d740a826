// Package loader reads the configured HSE source files and normalizes them
// into document.Document units: one per page, section or record.
package loader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mike-a-ellis/hse-assistant/internal/document"
)

// Sources lists the files to ingest.
type Sources struct {
	Documents []string // Paginated documents (.pdf, .md, .txt)
	Records   string   // Structured record collection (.json), optional
}

// Report describes what a Load call ingested and what it skipped.
type Report struct {
	Loaded  []LoadedSource
	Skipped []SkippedSource
}

// LoadedSource is a source that produced at least one document.
type LoadedSource struct {
	Path  string
	Units int
}

// SkippedSource is a source that was missing or could not be parsed.
type SkippedSource struct {
	Path   string
	Reason string
}

// TotalUnits returns the number of documents produced across all sources.
func (r *Report) TotalUnits() int {
	n := 0
	for _, l := range r.Loaded {
		n += l.Units
	}
	return n
}

// Loader reads Sources into documents.
type Loader struct {
	sources  Sources
	markdown *markdownReader
	logger   *slog.Logger
}

// New creates a Loader for the given sources.
func New(sources Sources, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		sources:  sources,
		markdown: newMarkdownReader(),
		logger:   logger,
	}
}

// Load reads every configured source in order. Missing or unparseable sources
// are skipped with a warning. Returns ErrNoDocumentsFound if nothing was read.
func (l *Loader) Load(ctx context.Context) ([]document.Document, *Report, error) {
	report := &Report{}
	var docs []document.Document

	for _, path := range l.sources.Documents {
		if err := ctx.Err(); err != nil {
			return nil, report, err
		}
		units, err := l.readPaginated(path)
		if err != nil {
			l.skip(report, path, err)
			continue
		}
		docs = append(docs, units...)
		l.loaded(report, path, len(units))
	}

	if l.sources.Records != "" {
		if err := ctx.Err(); err != nil {
			return nil, report, err
		}
		units, err := readRecords(l.sources.Records)
		if err != nil {
			l.skip(report, l.sources.Records, err)
		} else {
			docs = append(docs, units...)
			l.loaded(report, l.sources.Records, len(units))
		}
	}

	if len(docs) == 0 {
		return nil, report, ErrNoDocumentsFound
	}
	l.logger.Info("Documents loaded", "sources", len(report.Loaded), "documents", len(docs))
	return docs, report, nil
}

func (l *Loader) readPaginated(path string) ([]document.Document, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return readPDF(path)
	case ".md", ".markdown":
		return l.markdown.read(path)
	case ".txt":
		return readText(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

func (l *Loader) skip(report *Report, path string, err error) {
	reason := err.Error()
	if errors.Is(err, fs.ErrNotExist) {
		reason = "file not found"
		l.logger.Warn("Source file missing, skipping", "path", path)
	} else {
		l.logger.Warn("Failed to read source, skipping", "path", path, "error", err)
	}
	report.Skipped = append(report.Skipped, SkippedSource{Path: path, Reason: reason})
}

func (l *Loader) loaded(report *Report, path string, units int) {
	l.logger.Debug("Read source", "path", path, "units", units)
	report.Loaded = append(report.Loaded, LoadedSource{Path: path, Units: units})
}
