package sqlitevec_test

import (
	"context"
	"errors"
	"testing"

	"github.com/m-mizutani/gt"

	"safetyrag/internal/domain"
	"safetyrag/internal/logging"
	"safetyrag/internal/vectorstore/sqlitevec"
)

var _ domain.VectorIndex = (*sqlitevec.Index)(nil)

func newIndex(t *testing.T) *sqlitevec.Index {
	t.Helper()
	idx, err := sqlitevec.NewIndex(sqlitevec.Config{}, logging.Nop())
	gt.NoError(t, err).Required()
	t.Cleanup(func() { gt.NoError(t, idx.Close()) })
	return idx
}

func TestSearchOrdersByDistance(t *testing.T) {
	ctx := context.Background()
	idx := newIndex(t)
	gt.NoError(t, idx.Init(ctx, 2)).Required()
	gt.NoError(t, idx.Add(ctx, [][]float64{{5, 5}, {1, 0}, {0, 3}})).Required()
	gt.Value(t, idx.Len()).Equal(3)

	hits, err := idx.Search(ctx, []float64{0, 0}, 5)
	gt.NoError(t, err).Required()
	gt.Array(t, hits).Length(3).Required()
	gt.Value(t, hits[0].Position).Equal(1)
	gt.Value(t, hits[1].Position).Equal(2)
	gt.Value(t, hits[2].Position).Equal(0)
	gt.Bool(t, hits[1].Distance > 8.99 && hits[1].Distance < 9.01).True()
}

func TestSearchTiesKeepInsertionOrder(t *testing.T) {
	ctx := context.Background()
	idx := newIndex(t)
	gt.NoError(t, idx.Init(ctx, 2)).Required()
	gt.NoError(t, idx.Add(ctx, [][]float64{{1, 0}, {0, 1}, {-1, 0}, {0, -1}})).Required()

	hits, err := idx.Search(ctx, []float64{0, 0}, 4)
	gt.NoError(t, err).Required()
	gt.Array(t, hits).Length(4).Required()
	for i, h := range hits {
		gt.Value(t, h.Position).Equal(i)
		gt.Value(t, h.Distance).Equal(1.0)
	}
}

func TestDimensionMismatch(t *testing.T) {
	ctx := context.Background()
	idx := newIndex(t)
	gt.NoError(t, idx.Init(ctx, 3)).Required()

	err := idx.Add(ctx, [][]float64{{1, 2}})
	gt.Bool(t, errors.Is(err, domain.ErrIndex)).True()

	_, err = idx.Search(ctx, []float64{1}, 1)
	gt.Bool(t, errors.Is(err, domain.ErrIndex)).True()
}

func TestInitResetsTable(t *testing.T) {
	ctx := context.Background()
	idx := newIndex(t)
	gt.NoError(t, idx.Init(ctx, 2)).Required()
	gt.NoError(t, idx.Add(ctx, [][]float64{{1, 1}})).Required()
	gt.NoError(t, idx.Init(ctx, 2)).Required()
	gt.Value(t, idx.Len()).Equal(0)
}
