package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mike-a-ellis/hse-assistant/internal/document"
	"github.com/mike-a-ellis/hse-assistant/internal/index"
	"github.com/mike-a-ellis/hse-assistant/internal/indexer"
	"github.com/mike-a-ellis/hse-assistant/internal/monitor"
	"github.com/mike-a-ellis/hse-assistant/internal/present"
	"github.com/mike-a-ellis/hse-assistant/internal/rag"
)

const (
	defaultMaxResults = 5
	maxMaxResults     = 20
)

// Assistant is the part of rag.System the tools use.
type Assistant interface {
	Query(ctx context.Context, question string) rag.Result
	Search(ctx context.Context, query string, k int) ([]index.Hit, error)
	Status() rag.Status
	BuildResult() *indexer.IndexResult
}

// makeAskHandler creates the ask_hse_question tool handler.
// Failures are reported in the output, not as tool errors, so clients can
// show them like an answer.
func makeAskHandler(a Assistant, mon *monitor.Monitor) func(
	context.Context, *mcp.CallToolRequest, AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input AskInput) (
		*mcp.CallToolResult, AskOutput, error,
	) {
		if err := present.ValidateQuestion(input.Question); err != nil {
			return nil, AskOutput{Sources: []string{}, Error: err.Error()}, nil
		}

		switch res := a.Query(ctx, input.Question).(type) {
		case rag.Answer:
			mon.LogInteraction(ctx, input.Question, res.Answer, res.Sources)
			return nil, AskOutput{
				Answer:       res.Answer,
				Sources:      present.UniqueSources(res.Sources),
				SafetyNotice: present.SafetyNotice(input.Question),
			}, nil
		case rag.Failure:
			return nil, AskOutput{Sources: []string{}, Error: res.Message}, nil
		default:
			return nil, AskOutput{}, fmt.Errorf("unexpected result %T", res)
		}
	}
}

// makeSearchHandler creates the search_hse_documents tool handler.
func makeSearchHandler(a Assistant) func(
	context.Context, *mcp.CallToolRequest, SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input SearchInput) (
		*mcp.CallToolResult, SearchOutput, error,
	) {
		k := input.MaxResults
		if k <= 0 {
			k = defaultMaxResults
		}
		if k > maxMaxResults {
			k = maxMaxResults
		}

		hits, err := a.Search(ctx, input.Query, k)
		if err != nil {
			return nil, SearchOutput{}, fmt.Errorf("search failed: %w", err)
		}

		results := make([]Passage, 0, len(hits))
		for _, h := range hits {
			results = append(results, Passage{
				Source: h.Chunk.Source(),
				Page:   h.Chunk.Metadata[document.MetaPage],
				Score:  h.Score,
				Text:   h.Chunk.Text,
			})
		}
		if len(results) == 0 {
			return nil, SearchOutput{
				Results: []Passage{},
				Message: "No matching passages found. Try broader search terms.",
			}, nil
		}
		return nil, SearchOutput{Results: results}, nil
	}
}

// makeStatusHandler creates the get_index_status tool handler.
func makeStatusHandler(a Assistant) func(
	context.Context, *mcp.CallToolRequest, StatusInput,
) (*mcp.CallToolResult, StatusOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input StatusInput) (
		*mcp.CallToolResult, StatusOutput, error,
	) {
		st := a.Status()
		out := StatusOutput{
			State:       st.State,
			TotalChunks: st.Chunks,
			Model:       st.Model,
			BuiltAt:     st.BuiltAt,
			Rebuilt:     st.Rebuilt,
			Error:       st.Error,
		}
		// Source details are only known when this process built the index.
		if build := a.BuildResult(); build != nil {
			for _, s := range build.Sources {
				out.Sources = append(out.Sources, s.Path)
			}
			for _, s := range build.FailedSources {
				out.FailedSources = append(out.FailedSources, fmt.Sprintf("%s: %s", s.Path, s.Reason))
			}
		}
		return nil, out, nil
	}
}
