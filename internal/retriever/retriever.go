// Package retriever finds the chunks most relevant to a question.
package retriever

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bull/uwp-rag-server/internal/storage"
)

// DefaultThreshold is the minimum similarity a chunk needs for an answer to be attempted.
const DefaultThreshold = 0.2

// DefaultK is the number of chunks retrieved when the caller does not say.
const DefaultK = 5

// RetrievedChunk is a chunk returned for a question.
type RetrievedChunk struct {
	Text  string  `json:"text"`
	URL   string  `json:"url"`
	Title string  `json:"title"`
	Score float64 `json:"score"`
}

// Embedder turns texts into vectors.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Retriever embeds questions and searches the vector collection.
type Retriever struct {
	embedder  Embedder
	store     storage.VectorStore
	threshold float64
	logger    *slog.Logger
}

// New creates a Retriever. A negative threshold means DefaultThreshold;
// zero accepts every retrieved chunk.
func New(embedder Embedder, store storage.VectorStore, threshold float64, logger *slog.Logger) *Retriever {
	if threshold < 0 {
		threshold = DefaultThreshold
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{
		embedder:  embedder,
		store:     store,
		threshold: threshold,
		logger:    logger,
	}
}

// Threshold returns the confidence threshold.
func (r *Retriever) Threshold() float64 {
	return r.threshold
}

// Similarity converts a squared L2 distance d to max(0, 1 - d²/4).
// For unit vectors it is 1 when equal and 0 from orthogonal onwards.
func Similarity(distance float64) float64 {
	return max(0, 1-(distance*distance)/4)
}

// Query returns up to k chunks nearest to question, in the store's order.
// A missing collection yields no chunks and no error.
func (r *Retriever) Query(ctx context.Context, question string, k int) ([]RetrievedChunk, error) {
	if k <= 0 {
		k = DefaultK
	}

	exists, err := r.store.CollectionExists(ctx)
	if err != nil {
		return nil, fmt.Errorf("check collection: %w", err)
	}
	if !exists {
		r.logger.WarnContext(ctx, "Collection does not exist, returning no chunks", "collection", r.store.CollectionName())
		return nil, nil
	}

	vectors, err := r.embedder.Embed(ctx, []string{question})
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embed question: got %d vectors", len(vectors))
	}

	hits, err := r.store.Query(ctx, vectors[0], k)
	if errors.Is(err, storage.ErrCollectionNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query collection: %w", err)
	}

	chunks := make([]RetrievedChunk, len(hits))
	for i, hit := range hits {
		chunks[i] = RetrievedChunk{
			Text:  hit.Text,
			URL:   hit.URL,
			Title: hit.Title,
			Score: Similarity(hit.Distance),
		}
	}

	r.logger.DebugContext(ctx, "Retrieved chunks", "k", k, "returned", len(chunks))
	return chunks, nil
}

// HasConfidentMatch reports whether any chunk scores at least the threshold.
func (r *Retriever) HasConfidentMatch(chunks []RetrievedChunk) bool {
	for _, c := range chunks {
		if c.Score >= r.threshold {
			return true
		}
	}
	return false
}
