// Package monitor records every answered question as one JSON line.
package monitor

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Interaction is one logged question and its answer.
type Interaction struct {
	Timestamp time.Time `json:"timestamp"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	Sources   []string  `json:"sources"`
}

// Monitor appends interactions to a log file.
type Monitor struct {
	mu     sync.Mutex
	out    io.WriteCloser
	logger *slog.Logger
	now    func() time.Time
}

// Open creates the parent directory of path and opens it for appending.
func Open(path string) (*Monitor, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open interaction log: %w", err)
	}
	return New(f), nil
}

// New writes interactions to w. Close closes w.
func New(w io.WriteCloser) *Monitor {
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// Only the interaction fields go to the file.
			if len(groups) == 0 && (a.Key == slog.TimeKey || a.Key == slog.LevelKey || a.Key == slog.MessageKey) {
				return slog.Attr{}
			}
			return a
		},
	})
	return &Monitor{out: w, logger: slog.New(h), now: time.Now}
}

// LogInteraction writes one line. Sources are logged as returned by the
// query, duplicates included.
func (m *Monitor) LogInteraction(ctx context.Context, question, answer string, sources []string) {
	if m == nil {
		return
	}
	if sources == nil {
		sources = []string{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logger.LogAttrs(ctx, slog.LevelInfo, "interaction",
		slog.Time("timestamp", m.now()),
		slog.String("question", question),
		slog.String("answer", answer),
		slog.Any("sources", sources),
	)
}

func (m *Monitor) Close() error {
	if m == nil {
		return nil
	}
	return m.out.Close()
}
