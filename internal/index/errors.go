package index

import "errors"

var (
	ErrIndexNotFound      = errors.New("index not found")
	ErrIndexLoad          = errors.New("index load failed")
	ErrDimensionMismatch  = errors.New("embedding dimension mismatch")
	ErrInvalidK           = errors.New("k must be at least 1")
	ErrQdrantUnreachable  = errors.New("qdrant server unreachable")
	ErrCollectionNotFound = errors.New("collection not found")
)
