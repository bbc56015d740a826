// Package rag answers HSE questions from the indexed document collection.
//
// System is the entry point used by the CLI, the chat UI and the MCP server.
// It resolves the index once (load, or build on a miss), then answers each
// question by retrieving the top-k chunks and asking the language model for
// a grounded answer. Query never panics or returns a Go error: every outcome
// is a Result.
package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mike-a-ellis/hse-assistant/internal/embedding"
	"github.com/mike-a-ellis/hse-assistant/internal/index"
	"github.com/mike-a-ellis/hse-assistant/internal/indexer"
	"github.com/mike-a-ellis/hse-assistant/internal/llm"
)

// State is the lifecycle stage of a System.
type State int32

const (
	Uninitialized State = iota
	Initializing
	Ready
	Failed
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Initializing:
		return "initializing"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Deps are the collaborators of a System.
type Deps struct {
	Store     index.Store
	Pipeline  *indexer.Pipeline
	Embedder  embedding.Embedder
	Completer llm.Completer
}

// Options are fixed for the lifetime of a System.
type Options struct {
	K          int
	Generation GenerationOptions
}

// Status is a snapshot for health checks and status reports.
type Status struct {
	State   string    `json:"state"`
	Chunks  int       `json:"chunks"`
	Model   string    `json:"model,omitempty"`
	BuiltAt time.Time `json:"built_at,omitempty"`
	Rebuilt bool      `json:"rebuilt"`
	Error   string    `json:"error,omitempty"`
}

// System is the question-answering orchestrator.
type System struct {
	deps   Deps
	opts   Options
	logger *slog.Logger

	initMu sync.Mutex
	state  atomic.Int32

	// Set before the state becomes Ready and read-only afterwards.
	index     index.Index
	retriever *Retriever
	synth     *Synthesizer
	build     *indexer.IndexResult
	cause     error
}

// NewSystem creates an uninitialized System.
func NewSystem(deps Deps, opts Options, logger *slog.Logger) *System {
	if logger == nil {
		logger = slog.Default()
	}
	return &System{deps: deps, opts: opts, logger: logger}
}

// State returns the current lifecycle stage.
func (s *System) State() State {
	return State(s.state.Load())
}

// Initialize resolves the index and prepares retrieval and synthesis. It is
// idempotent once Ready. Failed is terminal: a failed System must be
// recreated to try again.
func (s *System) Initialize(ctx context.Context) (ok bool) {
	s.initMu.Lock()
	defer s.initMu.Unlock()

	switch s.State() {
	case Ready:
		return true
	case Failed:
		return false
	}
	s.state.Store(int32(Initializing))

	defer func() {
		if r := recover(); r != nil {
			s.fail(fmt.Errorf("panic during initialization: %v", r))
			ok = false
		}
	}()

	start := time.Now()
	if err := s.initialize(ctx); err != nil {
		s.fail(err)
		return false
	}
	s.state.Store(int32(Ready))
	s.logger.Info("System ready", "chunks", s.index.Len(), "k", s.retriever.K(), "duration", time.Since(start))
	return true
}

func (s *System) initialize(ctx context.Context) error {
	idx, err := s.resolveIndex(ctx)
	if err != nil {
		return err
	}
	retriever, err := NewRetriever(s.deps.Embedder, idx, s.opts.K)
	if err != nil {
		idx.Close()
		return fmt.Errorf("create retriever: %w", err)
	}
	s.index = idx
	s.retriever = retriever
	s.synth = NewSynthesizer(s.deps.Completer, s.opts.Generation)
	return nil
}

// resolveIndex loads the persisted index, rebuilding on any load failure.
func (s *System) resolveIndex(ctx context.Context) (index.Index, error) {
	idx, err := s.deps.Store.Load(ctx, indexer.ManifestFor(s.deps.Embedder))
	if err == nil {
		return idx, nil
	}
	if errors.Is(err, index.ErrIndexNotFound) {
		s.logger.Info("No persisted index, building", "reason", err)
	} else {
		s.logger.Warn("Persisted index unusable, rebuilding", "error", err)
	}

	idx, result, err := s.deps.Pipeline.Build(ctx)
	s.build = result
	if err != nil {
		return nil, fmt.Errorf("build index: %w", err)
	}
	return idx, nil
}

func (s *System) fail(err error) {
	s.cause = err
	s.state.Store(int32(Failed))
	s.logger.Error("Initialization failed", "error", err)
}

// Query answers question. It returns a Failure when the System is not Ready,
// the question is blank, or retrieval or generation fails. Failures do not
// change the System state.
func (s *System) Query(ctx context.Context, question string) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Query panicked", "panic", r)
			res = failed(fmt.Errorf("internal error: %v", r))
		}
	}()

	if s.State() != Ready {
		return failed(ErrNotInitialized)
	}
	if strings.TrimSpace(question) == "" {
		return failed(ErrEmptyQuestion)
	}

	hits, err := s.retriever.Retrieve(ctx, question)
	if err != nil {
		s.logger.Error("Retrieval failed", "error", err)
		return failed(fmt.Errorf("retrieval failed: %w", err))
	}

	answer, err := s.synth.Synthesize(ctx, question, hits)
	if err != nil {
		s.logger.Error("Generation failed", "error", err)
		return failed(err)
	}
	s.logger.Debug("Question answered", "chunks", len(hits), "answer_len", len(answer.Answer))
	return answer
}

// Search returns the top k chunks for query without calling the language
// model. Used by diagnostics and the document search tool.
func (s *System) Search(ctx context.Context, query string, k int) ([]index.Hit, error) {
	if s.State() != Ready {
		return nil, ErrNotInitialized
	}
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuestion
	}
	return s.retriever.RetrieveK(ctx, query, k)
}

// Status reports the current state and, once Ready, the index size.
func (s *System) Status() Status {
	st := Status{State: s.State().String()}
	switch s.State() {
	case Ready:
		m := s.index.Manifest()
		st.Chunks = s.index.Len()
		st.Model = m.Model
		st.BuiltAt = m.BuiltAt
		st.Rebuilt = s.build != nil
	case Failed:
		if s.cause != nil {
			st.Error = s.cause.Error()
		}
	}
	return st
}

// BuildResult returns the statistics of the build performed during
// Initialize, or nil if the index was loaded from disk.
func (s *System) BuildResult() *indexer.IndexResult {
	if s.State() != Ready && s.State() != Failed {
		return nil
	}
	return s.build
}

// Close releases the index.
func (s *System) Close() error {
	if s.State() == Ready && s.index != nil {
		return s.index.Close()
	}
	return nil
}
