package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStorage_Lifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage("", 2)
	assert.Equal(t, DefaultCollectionName, s.CollectionName())

	exists, err := s.CollectionExists(ctx)
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = s.Query(ctx, []float32{0, 0}, 3)
	assert.ErrorIs(t, err, ErrCollectionNotFound)
	_, err = s.Count(ctx)
	assert.ErrorIs(t, err, ErrCollectionNotFound)

	require.NoError(t, s.DeleteCollection(ctx), "deleting a missing collection is not an error")
	require.NoError(t, s.EnsureCollection(ctx))
	require.NoError(t, s.EnsureCollection(ctx))

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestMemoryStorage_QueryOrdersByDistance(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage("uwp", 2)
	require.NoError(t, s.EnsureCollection(ctx))

	require.NoError(t, s.Upsert(ctx, []Record{
		{ID: "0-0", Vector: []float32{3, 0}, Text: "far", URL: "u0"},
		{ID: "1-0", Vector: []float32{0, 0}, Text: "exact", URL: "u1"},
		{ID: "2-0", Vector: []float32{1, 0}, Text: "near", URL: "u2"},
	}))

	hits, err := s.Query(ctx, []float32{0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "1-0", hits[0].ID)
	assert.InDelta(t, 0.0, hits[0].Distance, 1e-9)
	assert.Equal(t, "2-0", hits[1].ID)
	assert.InDelta(t, 1.0, hits[1].Distance, 1e-9)

	hits, err = s.Query(ctx, []float32{0, 0}, 10)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, "0-0", hits[2].ID)
	assert.InDelta(t, 9.0, hits[2].Distance, 1e-9, "distances are squared")
}

func TestMemoryStorage_SquaredDistanceOfUnitVectors(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage("uwp", 2)
	require.NoError(t, s.EnsureCollection(ctx))
	require.NoError(t, s.Upsert(ctx, []Record{
		{ID: "0-0", Vector: []float32{1, 0}},
		{ID: "1-0", Vector: []float32{0, 1}},
		{ID: "2-0", Vector: []float32{-1, 0}},
	}))

	hits, err := s.Query(ctx, []float32{1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.InDelta(t, 0.0, hits[0].Distance, 1e-9)
	assert.InDelta(t, 2.0, hits[1].Distance, 1e-9)
	assert.InDelta(t, 4.0, hits[2].Distance, 1e-9)
}

func TestMemoryStorage_UpsertReplacesByID(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage("uwp", 1)
	require.NoError(t, s.EnsureCollection(ctx))

	require.NoError(t, s.Upsert(ctx, []Record{{ID: "0-0", Vector: []float32{1}, Text: "old"}}))
	require.NoError(t, s.Upsert(ctx, []Record{{ID: "0-0", Vector: []float32{1}, Text: "new"}}))

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)

	hits, err := s.Query(ctx, []float32{1}, 1)
	require.NoError(t, err)
	assert.Equal(t, "new", hits[0].Text)
}

func TestMemoryStorage_DimensionMismatch(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage("uwp", 3)
	require.NoError(t, s.EnsureCollection(ctx))

	err := s.Upsert(ctx, []Record{{ID: "0-0", Vector: []float32{1, 2}}})
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	_, err = s.Query(ctx, []float32{1}, 1)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestMemoryStorage_DeleteDropsRecords(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage("uwp", 1)
	require.NoError(t, s.EnsureCollection(ctx))
	require.NoError(t, s.Upsert(ctx, []Record{{ID: "0-0", Vector: []float32{1}}}))

	require.NoError(t, s.DeleteCollection(ctx))
	require.NoError(t, s.EnsureCollection(ctx))

	assert.Empty(t, s.IDs())
}

func TestPointID_Deterministic(t *testing.T) {
	assert.Equal(t, PointID("3-1"), PointID("3-1"))
	assert.NotEqual(t, PointID("3-1"), PointID("31-"))
	assert.NotEqual(t, PointID("1-11"), PointID("11-1"))
}
