package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/qdrant/go-client/qdrant"
)

// QdrantConfig holds connection and collection settings.
type QdrantConfig struct {
	Host       string
	Port       int
	APIKey     string
	UseTLS     bool
	Collection string
	Dimension  int
}

// QdrantStorage wraps the Qdrant client with connection management and health checks.
// The collection uses Euclidean distance. Qdrant scores are L2 distances and
// are squared into Hit.Distance.
type QdrantStorage struct {
	client     *qdrant.Client
	collection string
	dimension  int
}

var _ VectorStore = (*QdrantStorage)(nil)

// NewQdrantStorage creates a new Qdrant client with health validation.
// It performs health check with retry on startup and fails fast if Qdrant is unreachable.
func NewQdrantStorage(ctx context.Context, cfg QdrantConfig) (*QdrantStorage, error) {
	if cfg.Dimension <= 0 {
		return nil, fmt.Errorf("invalid vector dimension %d", cfg.Dimension)
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollectionName
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	storage := &QdrantStorage{
		client:     client,
		collection: cfg.Collection,
		dimension:  cfg.Dimension,
	}

	if err := storage.healthCheckWithRetry(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrQdrantUnreachable, err)
	}

	return storage, nil
}

func newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second
	return b
}

// healthCheckWithRetry performs health check with exponential backoff.
// Initial interval 500ms, max interval 10s, max elapsed 30s.
func (s *QdrantStorage) healthCheckWithRetry(ctx context.Context) error {
	operation := func() error {
		return s.Health(ctx)
	}
	return backoff.Retry(operation, backoff.WithContext(newBackOff(), ctx))
}

// Health performs a single health check against Qdrant.
func (s *QdrantStorage) Health(ctx context.Context) error {
	result, err := s.client.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	if result == nil || result.Title == "" {
		return fmt.Errorf("health check returned invalid response")
	}

	return nil
}

func (s *QdrantStorage) CollectionName() string {
	return s.collection
}

func (s *QdrantStorage) CollectionExists(ctx context.Context) (bool, error) {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return false, fmt.Errorf("failed to check collection: %w", err)
	}
	return exists, nil
}

// DeleteCollection drops the collection. A missing collection is ignored.
func (s *QdrantStorage) DeleteCollection(ctx context.Context) error {
	exists, err := s.CollectionExists(ctx)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}

	if err := s.client.DeleteCollection(ctx, s.collection); err != nil {
		return fmt.Errorf("failed to delete collection: %w", err)
	}
	return nil
}

// EnsureCollection creates the collection with Euclidean distance and a keyword
// index on url if it does not exist yet. Idempotent.
func (s *QdrantStorage) EnsureCollection(ctx context.Context) error {
	exists, err := s.CollectionExists(ctx)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(s.dimension),
			Distance: qdrant.Distance_Euclid,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	_, err = s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
		CollectionName: s.collection,
		FieldName:      "url",
		FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
	})
	if err != nil {
		return fmt.Errorf("failed to create index for field url: %w", err)
	}

	return nil
}

// Upsert writes records in a single request, retried with exponential backoff.
// Callers batch; the point id is derived from the chunk id.
func (s *QdrantStorage) Upsert(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	points := make([]*qdrant.PointStruct, len(records))
	for i, r := range records {
		if len(r.Vector) != s.dimension {
			return fmt.Errorf("%w: record %s has %d dimensions, expected %d",
				ErrDimensionMismatch, r.ID, len(r.Vector), s.dimension)
		}

		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(PointID(r.ID)),
			Vectors: qdrant.NewVectors(r.Vector...),
			Payload: qdrant.NewValueMap(map[string]any{
				"chunk_id":    r.ID,
				"text":        r.Text,
				"url":         r.URL,
				"title":       r.Title,
				"page_index":  r.PageIndex,
				"chunk_index": r.ChunkIndex,
				"token_count": r.TokenCount,
			}),
		}
	}

	operation := func() error {
		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: s.collection,
			Points:         points,
			Wait:           qdrant.PtrOf(true),
		})
		return err
	}

	if err := backoff.Retry(operation, backoff.WithContext(newBackOff(), ctx)); err != nil {
		return fmt.Errorf("failed to upsert %d points: %w", len(points), err)
	}
	return nil
}

// Query returns the k nearest points ordered by ascending squared L2 distance.
func (s *QdrantStorage) Query(ctx context.Context, vector []float32, k int) ([]Hit, error) {
	if len(vector) != s.dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, expected %d",
			ErrDimensionMismatch, len(vector), s.dimension)
	}

	exists, err := s.CollectionExists(ctx)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrCollectionNotFound
	}

	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(k)),
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(false),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query points: %w", err)
	}

	hits := make([]Hit, 0, len(results))
	for _, result := range results {
		payload := result.Payload
		hits = append(hits, Hit{
			ID:       payload["chunk_id"].GetStringValue(),
			Text:     payload["text"].GetStringValue(),
			URL:      payload["url"].GetStringValue(),
			Title:    payload["title"].GetStringValue(),
			Distance: float64(result.Score) * float64(result.Score),
		})
	}

	return hits, nil
}

// Count returns the exact number of points in the collection.
func (s *QdrantStorage) Count(ctx context.Context) (uint64, error) {
	exists, err := s.CollectionExists(ctx)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, ErrCollectionNotFound
	}

	count, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: s.collection,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count points: %w", err)
	}
	return count, nil
}

// Close closes the Qdrant client connection.
func (s *QdrantStorage) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}
