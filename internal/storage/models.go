package storage

import (
	"context"

	"github.com/google/uuid"
)

// Record is one chunk with its embedding, ready to be written to the collection.
type Record struct {
	ID         string    // Chunk id "{page_index}-{chunk_index}"
	Vector     []float32 // Embedding, collection dimension
	Text       string
	URL        string
	Title      string
	PageIndex  int
	ChunkIndex int
	TokenCount int
}

// Hit is a nearest-neighbour result. Distance is the squared Euclidean distance
// ‖a-b‖² to the query vector, so unit vectors give 0 when equal, 2 when
// orthogonal and 4 when opposite. Hits are ordered by ascending distance.
type Hit struct {
	ID       string
	Text     string
	URL      string
	Title    string
	Distance float64
}

// VectorStore is a single named vector collection.
type VectorStore interface {
	Health(ctx context.Context) error
	CollectionName() string
	CollectionExists(ctx context.Context) (bool, error)
	// DeleteCollection drops the collection; a missing collection is not an error.
	DeleteCollection(ctx context.Context) error
	// EnsureCollection creates the collection if it does not exist.
	EnsureCollection(ctx context.Context) error
	// Upsert writes records, replacing any with the same ID.
	Upsert(ctx context.Context, records []Record) error
	// Query returns the k nearest records, or ErrCollectionNotFound.
	Query(ctx context.Context, vector []float32, k int) ([]Hit, error)
	// Count returns the number of records, or ErrCollectionNotFound.
	Count(ctx context.Context) (uint64, error)
	Close() error
}

// DefaultCollectionName is the collection used when none is configured.
const DefaultCollectionName = "uwp"

// pointNamespace seeds the deterministic point UUIDs derived from chunk ids.
var pointNamespace = uuid.MustParse("6f3c1c0e-7d0a-4b7e-9a51-2f1f0d5c8e11")

// PointID maps a chunk id to the UUID stored as the Qdrant point id.
func PointID(chunkID string) string {
	return uuid.NewSHA1(pointNamespace, []byte(chunkID)).String()
}
