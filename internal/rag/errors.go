package rag

import "errors"

var (
	ErrNotInitialized    = errors.New("system not initialized")
	ErrEmptyQuestion     = errors.New("question is empty")
	ErrEmbeddingMismatch = errors.New("query embedder does not match the index")
)
