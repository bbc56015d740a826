// Package mcp exposes the HSE assistant as a Model Context Protocol server.
package mcp

import "time"

// AskInput defines the input parameters for the ask_hse_question tool.
type AskInput struct {
	Question string `json:"question" jsonschema:"the health, safety or environment question to answer"`
}

// AskOutput is a grounded answer or the reason none could be given.
type AskOutput struct {
	Answer string `json:"answer,omitempty"`
	// Sources are the distinct documents the answer was built from.
	Sources []string `json:"sources"`
	// SafetyNotice is set when the question mentions an emergency.
	SafetyNotice string `json:"safety_notice,omitempty"`
	Error        string `json:"error,omitempty"`
}

// SearchInput defines the input parameters for the search_hse_documents tool.
type SearchInput struct {
	Query      string `json:"query" jsonschema:"the search query"`
	MaxResults int    `json:"max_results,omitempty" jsonschema:"maximum number of passages to return (default 5, at most 20)"`
}

// SearchOutput contains the matching passages.
type SearchOutput struct {
	Results []Passage `json:"results"`
	Message string    `json:"message,omitempty"`
}

// Passage is one retrieved chunk.
type Passage struct {
	Source string  `json:"source"`
	Page   string  `json:"page,omitempty"`
	Score  float64 `json:"score"`
	Text   string  `json:"text"`
}

// StatusInput takes no parameters.
type StatusInput struct{}

// StatusOutput describes the index behind the assistant.
type StatusOutput struct {
	State         string    `json:"state"`
	TotalChunks   int       `json:"total_chunks"`
	Model         string    `json:"model,omitempty"`
	BuiltAt       time.Time `json:"built_at,omitempty"`
	Rebuilt       bool      `json:"rebuilt"`
	Sources       []string  `json:"sources,omitempty"`
	FailedSources []string  `json:"failed_sources,omitempty"`
	Error         string    `json:"error,omitempty"`
}
