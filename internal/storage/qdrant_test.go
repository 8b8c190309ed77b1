//go:build integration
// +build integration

package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestStorage creates a test storage instance with a fresh collection.
// Skips test if Qdrant is not running.
func setupTestStorage(t *testing.T) *QdrantStorage {
	storage, err := NewQdrantStorage(context.Background(), QdrantConfig{
		Host:       "localhost",
		Port:       6334,
		Collection: "uwp_integration_test",
		Dimension:  4,
	})
	if err != nil {
		t.Skipf("Qdrant not available: %v", err)
	}

	ctx := context.Background()
	require.NoError(t, storage.DeleteCollection(ctx))
	require.NoError(t, storage.EnsureCollection(ctx), "Failed to ensure collection")

	t.Cleanup(func() {
		_ = storage.DeleteCollection(context.Background())
		storage.Close()
	})
	return storage
}

func TestQdrantUpsertAndQuery(t *testing.T) {
	storage := setupTestStorage(t)
	ctx := context.Background()

	err := storage.Upsert(ctx, []Record{
		{ID: "0-0", Vector: []float32{1, 0, 0, 0}, Text: "admissions", URL: "https://www.uwp.edu/apply", Title: "Apply"},
		{ID: "0-1", Vector: []float32{0, 1, 0, 0}, Text: "housing", URL: "https://www.uwp.edu/apply", Title: "Apply"},
		{ID: "1-0", Vector: []float32{0, 0, 1, 0}, Text: "athletics", URL: "https://www.uwp.edu/sports", Title: "Sports"},
	})
	require.NoError(t, err)

	count, err := storage.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), count)

	hits, err := storage.Query(ctx, []float32{1, 0, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "0-0", hits[0].ID)
	assert.Equal(t, "admissions", hits[0].Text)
	assert.InDelta(t, 0.0, hits[0].Distance, 1e-5)
	assert.InDelta(t, 2.0, hits[1].Distance, 1e-4, "orthogonal unit vectors are 2 apart squared")
}

func TestQdrantMissingCollection(t *testing.T) {
	storage := setupTestStorage(t)
	ctx := context.Background()

	require.NoError(t, storage.DeleteCollection(ctx))
	require.NoError(t, storage.DeleteCollection(ctx))

	exists, err := storage.CollectionExists(ctx)
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = storage.Query(ctx, []float32{1, 0, 0, 0}, 1)
	assert.ErrorIs(t, err, ErrCollectionNotFound)
}

func TestQdrantDimensionMismatch(t *testing.T) {
	storage := setupTestStorage(t)

	err := storage.Upsert(context.Background(), []Record{{ID: "0-0", Vector: []float32{1}}})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}
