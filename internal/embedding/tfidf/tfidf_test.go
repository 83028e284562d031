package tfidf_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/m-mizutani/gt"

	"safetyrag/internal/domain"
	"safetyrag/internal/embedding/tfidf"
)

func TestEmbedBeforePrepare(t *testing.T) {
	_, err := tfidf.NewEmbedder().EmbedOne(context.Background(), "센서")
	gt.Bool(t, errors.Is(err, domain.ErrEmbedding)).True()
}

func TestPrepareRejectsEmptyCorpus(t *testing.T) {
	err := tfidf.NewEmbedder().Prepare(nil)
	gt.Bool(t, errors.Is(err, domain.ErrEmbedding)).True()
}

func TestEmbedHangulCorpus(t *testing.T) {
	e := tfidf.NewEmbedder()
	corpus := []string{
		"작업유형: 전기작업\n사고명: 센서 교체시 감전사고",
		"작업유형: 밀폐공간작업\n사고명: 센서 교체시 밀폐공간 질식사고",
	}
	gt.NoError(t, e.Prepare(corpus)).Required()
	gt.Bool(t, e.Dimension() > 0).True()

	vecs, err := e.EmbedMany(context.Background(), corpus)
	gt.NoError(t, err).Required()
	gt.Array(t, vecs).Length(2).Required()

	for _, v := range vecs {
		gt.Array(t, v).Length(e.Dimension())
		norm := 0.0
		for _, x := range v {
			norm += x * x
		}
		gt.Bool(t, math.Abs(norm-1) < 1e-9).True()
	}

	again, err := e.EmbedOne(context.Background(), corpus[0])
	gt.NoError(t, err).Required()
	gt.Value(t, again).Equal(vecs[0])
}

func TestEmbedUnknownTokensIsZeroVector(t *testing.T) {
	e := tfidf.NewEmbedder()
	gt.NoError(t, e.Prepare([]string{"센서 교체"})).Required()

	v, err := e.EmbedOne(context.Background(), "unrelated words")
	gt.NoError(t, err).Required()
	for _, x := range v {
		gt.Value(t, x).Equal(0.0)
	}
}
