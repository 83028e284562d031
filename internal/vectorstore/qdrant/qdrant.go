package qdrant

import (
	"context"
	"log/slog"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/qdrant/go-client/qdrant"

	"safetyrag/internal/domain"
)

const (
	DefaultPort       = 6334
	DefaultCollection = "accident_cases"
)

// Index stores case vectors in a Qdrant collection with Euclid distance.
// The collection is dropped and recreated on Init, point ids are
// positions plus one.
type Index struct {
	client     *qdrant.Client
	collection string
	logger     *slog.Logger

	mu        sync.RWMutex
	dimension int
	count     int
}

type Config struct {
	Host       string
	Port       int
	APIKey     string
	UseTLS     bool
	Collection string
}

func NewIndex(cfg Config, logger *slog.Logger) (*Index, error) {
	if cfg.Host == "" {
		return nil, goerr.Wrap(domain.ErrConfiguration, "qdrant host is required")
	}
	port := cfg.Port
	if port == 0 {
		port = DefaultPort
	}
	collection := cfg.Collection
	if collection == "" {
		collection = DefaultCollection
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, goerr.Wrap(domain.ErrConfiguration, "failed to create qdrant client",
			goerr.V("host", cfg.Host), goerr.V("port", port), goerr.V("cause", err.Error()))
	}
	return &Index{client: client, collection: collection, logger: logger}, nil
}

func (s *Index) Name() string { return "qdrant" }

func (s *Index) Init(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return goerr.Wrap(domain.ErrIndex, "invalid dimension", goerr.V("dimension", dimension))
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return goerr.Wrap(domain.ErrIndex, "failed to check collection",
			goerr.V("collection", s.collection), goerr.V("cause", err.Error()))
	}
	if exists {
		if err := s.client.DeleteCollection(ctx, s.collection); err != nil {
			return goerr.Wrap(domain.ErrIndex, "failed to drop collection",
				goerr.V("collection", s.collection), goerr.V("cause", err.Error()))
		}
	}
	if err := s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dimension),
			Distance: qdrant.Distance_Euclid,
		}),
	}); err != nil {
		return goerr.Wrap(domain.ErrIndex, "failed to create collection",
			goerr.V("collection", s.collection), goerr.V("cause", err.Error()))
	}

	s.dimension = dimension
	s.count = 0
	s.logger.Info("qdrant collection created", "collection", s.collection, "dimension", dimension)
	return nil
}

func (s *Index) Add(ctx context.Context, vectors [][]float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dimension == 0 {
		return goerr.Wrap(domain.ErrIndex, "index not initialized")
	}
	if len(vectors) == 0 {
		return nil
	}

	points := make([]*qdrant.PointStruct, len(vectors))
	for i, v := range vectors {
		if len(v) != s.dimension {
			return goerr.Wrap(domain.ErrIndex, "vector dimension mismatch",
				goerr.V("position", s.count+i), goerr.V("expected", s.dimension), goerr.V("actual", len(v)))
		}
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDNum(uint64(s.count + i + 1)),
			Vectors: qdrant.NewVectors(toFloat32(v)...),
		}
	}

	if _, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Wait:           qdrant.PtrOf(true),
		Points:         points,
	}); err != nil {
		return goerr.Wrap(domain.ErrIndex, "failed to upsert points",
			goerr.V("collection", s.collection), goerr.V("count", len(points)), goerr.V("cause", err.Error()))
	}
	s.count += len(vectors)
	return nil
}

// Search runs an exact query. Qdrant reports Euclid distance, which is
// squared to match the other indexes. Ties are ordered by Qdrant.
func (s *Index) Search(ctx context.Context, query []float64, k int) ([]domain.Neighbor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(query) != s.dimension {
		return nil, goerr.Wrap(domain.ErrIndex, "query dimension mismatch",
			goerr.V("expected", s.dimension), goerr.V("actual", len(query)))
	}
	if k <= 0 || s.count == 0 {
		return []domain.Neighbor{}, nil
	}
	k = min(k, s.count)

	points, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(toFloat32(query)...),
		Limit:          qdrant.PtrOf(uint64(k)),
		Params:         &qdrant.SearchParams{Exact: qdrant.PtrOf(true)},
	})
	if err != nil {
		return nil, goerr.Wrap(domain.ErrIndex, "failed to query points",
			goerr.V("collection", s.collection), goerr.V("cause", err.Error()))
	}

	hits := make([]domain.Neighbor, 0, len(points))
	for _, p := range points {
		d := float64(p.GetScore())
		hits = append(hits, domain.Neighbor{
			Position: int(p.GetId().GetNum()) - 1,
			Distance: d * d,
		})
	}
	return hits, nil
}

func (s *Index) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.count
}

func (s *Index) Close() error {
	return s.client.Close()
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = float32(f)
	}
	return out
}
