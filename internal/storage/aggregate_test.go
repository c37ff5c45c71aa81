package storage_test

import (
	"testing"
	"time"

	"github.com/DjordjeVuckovic/facetq/internal/facet"
	"github.com/DjordjeVuckovic/facetq/internal/query"
	"github.com/DjordjeVuckovic/facetq/internal/schema"
	"github.com/DjordjeVuckovic/facetq/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSameValue(t *testing.T) {
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		stored, want any
		same         bool
	}{
		{"red", "red", true},
		{"red", "blue", false},
		{int64(10), "10", true},
		{int64(10), 10.0, true},
		{"010", "10", false},
		{"10", 10, true},
		{day, "2024-01-01T00:00:00Z", true},
		{true, "true", true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.same, storage.SameValue(tt.stored, tt.want), "%v vs %v", tt.stored, tt.want)
	}
}

func TestInBucket(t *testing.T) {
	b := query.Bucket{Key: "4", Lower: 4.0, Upper: 5.0, IncludeLower: true}
	assert.True(t, storage.InBucket(b, int64(4)))
	assert.True(t, storage.InBucket(b, 4.5))
	assert.False(t, storage.InBucket(b, 5.0))
	assert.False(t, storage.InBucket(b, "four"))

	jan := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	open := query.Bucket{Key: "2024", Lower: jan, IncludeLower: true}
	assert.True(t, storage.InBucket(open, jan.Add(time.Hour)))
	assert.True(t, storage.InBucket(open, "2024-06-01T00:00:00Z"))
	assert.False(t, storage.InBucket(open, jan.Add(-time.Hour)))
}

func TestCountTerms(t *testing.T) {
	perDoc := [][]any{
		{"red", "red", "blue"},
		{"red"},
		{"green"},
		{},
	}
	assert.Equal(t, []storage.BucketCount{
		{Key: "red", Count: 2},
		{Key: "blue", Count: 1},
		{Key: "green", Count: 1},
	}, storage.CountTerms(perDoc, 0, 0))

	assert.Equal(t, []storage.BucketCount{{Key: "red", Count: 2}}, storage.CountTerms(perDoc, 1, 0))
	assert.Equal(t, []storage.BucketCount{{Key: "red", Count: 2}}, storage.CountTerms(perDoc, 10, 2))
}

func TestComputeStats(t *testing.T) {
	rating := schema.MustField("rating", schema.Int, schema.Facetable())
	s := facet.Must(facet.NewStats("r", rating, facet.AllNumeric(), []float64{50}))

	got := storage.ComputeStats(s, [][]any{{int64(1)}, {int64(2), int64(3)}, nil})

	assert.Equal(t, 1.0, got["min"])
	assert.Equal(t, 3.0, got["max"])
	assert.Equal(t, 6.0, got["sum"])
	assert.Equal(t, int64(3), got["count"])
	assert.Equal(t, int64(1), got["missing"])
	assert.Equal(t, 14.0, got["sumOfSquares"])
	assert.Equal(t, 2.0, got["mean"])
	assert.Equal(t, 1.0, got["stddev"])
	assert.Equal(t, int64(3), got["cardinality"])
	assert.Equal(t, map[string]float64{"50": 2}, got["percentiles"])
}

func TestComputeStatsDates(t *testing.T) {
	released := schema.MustField("released", schema.Date, schema.Facetable())
	s, err := facet.NewStats("d", released, facet.StatsFlags{Min: true, Max: true}, nil)
	require.NoError(t, err)

	a := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	b := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	got := storage.ComputeStats(s, [][]any{{b}, {a}})

	assert.Equal(t, "2024-01-01T00:00:00Z", got["min"])
	assert.Equal(t, "2024-03-01T00:00:00Z", got["max"])
}
