package qdrant_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/m-mizutani/gt"

	"safetyrag/internal/domain"
	"safetyrag/internal/logging"
	"safetyrag/internal/vectorstore/qdrant"
)

var _ domain.VectorIndex = (*qdrant.Index)(nil)

func TestNewIndexRequiresHost(t *testing.T) {
	_, err := qdrant.NewIndex(qdrant.Config{}, logging.Nop())
	gt.Bool(t, errors.Is(err, domain.ErrConfiguration)).True()
}

func TestSearchWithRealQdrant(t *testing.T) {
	host := os.Getenv("TEST_QDRANT_HOST")
	if host == "" {
		t.Skip("TEST_QDRANT_HOST not set")
	}

	ctx := context.Background()
	idx, err := qdrant.NewIndex(qdrant.Config{
		Host:       host,
		Collection: "safetyrag_test",
	}, logging.Nop())
	gt.NoError(t, err).Required()
	t.Cleanup(func() { gt.NoError(t, idx.Close()) })

	gt.NoError(t, idx.Init(ctx, 2)).Required()
	gt.NoError(t, idx.Add(ctx, [][]float64{{5, 5}, {1, 0}, {0, 3}})).Required()

	hits, err := idx.Search(ctx, []float64{0, 0}, 2)
	gt.NoError(t, err).Required()
	gt.Array(t, hits).Length(2).Required()
	gt.Value(t, hits[0].Position).Equal(1)
	gt.Value(t, hits[1].Position).Equal(2)

	_, err = idx.Search(ctx, []float64{0, 0, 0}, 1)
	gt.Bool(t, errors.Is(err, domain.ErrIndex)).True()
}
