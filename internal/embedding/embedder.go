package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/openai/openai-go"
)

// DefaultModel is the embedding model used when none is configured.
const DefaultModel = "text-embedding-3-small"

// ErrEmptyResponse is returned when the API answers with a different number of
// vectors than texts sent.
var ErrEmptyResponse = errors.New("embedding response does not match request")

// modelDimensions lists vector sizes of the known OpenAI embedding models.
var modelDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// Dimension returns the vector size of model, or 0 if unknown.
func Dimension(model string) int {
	return modelDimensions[model]
}

// Embedder turns texts into vectors with one API request per call.
// It retries with exponential backoff on rate limit errors.
type Embedder struct {
	client *Client
	model  string
}

// NewEmbedder creates a new Embedder for model. An empty model means DefaultModel.
func NewEmbedder(client *Client, model string) *Embedder {
	if model == "" {
		model = DefaultModel
	}
	return &Embedder{
		client: client,
		model:  model,
	}
}

// Model returns the embedding model name.
func (e *Embedder) Model() string {
	return e.model
}

// Dimension returns the vector size of the configured model, or 0 if unknown.
func (e *Embedder) Dimension() int {
	return Dimension(e.model)
}

// Embed returns one vector per text, in input order.
// The whole slice is sent in a single request; callers control batch size.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	var embeddings [][]float32

	operation := func() error {
		resp, err := e.client.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
			Input: openai.EmbeddingNewParamsInputUnion{
				OfArrayOfStrings: texts,
			},
			Model: openai.EmbeddingModel(e.model),
		})
		if err != nil {
			if isRateLimitError(err) {
				return err
			}
			return backoff.Permanent(err)
		}

		if len(resp.Data) != len(texts) {
			return backoff.Permanent(fmt.Errorf("%w: got %d vectors for %d texts",
				ErrEmptyResponse, len(resp.Data), len(texts)))
		}

		// The API may return items out of order; place each by its index.
		embeddings = make([][]float32, len(texts))
		for _, data := range resp.Data {
			if data.Index < 0 || int(data.Index) >= len(texts) || embeddings[data.Index] != nil {
				return backoff.Permanent(fmt.Errorf("%w: bad index %d", ErrEmptyResponse, data.Index))
			}
			embeddings[data.Index] = toFloat32(data.Embedding)
		}
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second

	if err := backoff.Retry(operation, backoff.WithContext(b, ctx)); err != nil {
		return nil, fmt.Errorf("embed %d texts: %w", len(texts), err)
	}
	return embeddings, nil
}

// isRateLimitError checks if the error is a rate limit error (HTTP 429).
func isRateLimitError(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429
	}
	return false
}

// toFloat32 converts []float64 to []float32.
// OpenAI API returns float64, but storage uses float32 for memory efficiency.
func toFloat32(f64 []float64) []float32 {
	f32 := make([]float32, len(f64))
	for i, v := range f64 {
		f32[i] = float32(v)
	}
	return f32
}
