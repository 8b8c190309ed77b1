package storage

import "errors"

var (
	// ErrQdrantUnreachable is returned when the startup health check keeps failing.
	ErrQdrantUnreachable = errors.New("qdrant server unreachable")
	// ErrCollectionNotFound is returned when reading from a collection that does not exist.
	ErrCollectionNotFound = errors.New("vector collection not found")
	// ErrDimensionMismatch is returned when a vector's length differs from the collection's.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)
