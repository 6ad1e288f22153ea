package storage

import "errors"

var (
	ErrQdrantUnreachable = errors.New("qdrant server unreachable")
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	ErrDocumentNotFound  = errors.New("document not found")
	ErrMissingID         = errors.New("document id is empty")
)
