package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"golang.org/x/sync/singleflight"

	"safetyrag/internal/corpus"
	"safetyrag/internal/domain"
	"safetyrag/internal/logging"
)

// DefaultK is the number of cases returned when the caller does not ask
// for a specific count.
const DefaultK = 2

// State is the lifecycle state of a SimilarityService.
type State int

const (
	StateUninitialized State = iota
	StateInitializing
	StateReady
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	default:
		return "uninitialized"
	}
}

// SimilarityService loads the corpus, embeds it into the index once and
// answers nearest-case queries against it.
type SimilarityService struct {
	loader     domain.CorpusLoader
	embedder   domain.Embedder
	index      domain.VectorIndex
	sourcePath string
	defaultK   int

	initGroup singleflight.Group

	mu    sync.RWMutex
	state State
	cases []domain.AccidentCase
}

type Option func(*SimilarityService)

// WithDefaultK sets the result count used when a query passes k <= 0.
func WithDefaultK(k int) Option {
	return func(s *SimilarityService) {
		if k > 0 {
			s.defaultK = k
		}
	}
}

func NewSimilarityService(loader domain.CorpusLoader, embedder domain.Embedder, index domain.VectorIndex, sourcePath string, opts ...Option) *SimilarityService {
	s := &SimilarityService{
		loader:     loader,
		embedder:   embedder,
		index:      index,
		sourcePath: sourcePath,
		defaultK:   DefaultK,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State reports the current lifecycle state.
func (s *SimilarityService) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Len returns the number of loaded cases, zero until Ready.
func (s *SimilarityService) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.cases)
}

// Initialize makes the service Ready. Concurrent callers share one
// load/embed/index sequence. A failed sequence returns the service to
// Uninitialized so the next call starts over. Canceling ctx stops the wait
// but not the sequence itself.
func (s *SimilarityService) Initialize(ctx context.Context) error {
	if s.State() == StateReady {
		return nil
	}

	ch := s.initGroup.DoChan("init", func() (any, error) {
		return nil, s.build(context.WithoutCancel(ctx))
	})
	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return goerr.Wrap(ctx.Err(), "canceled while waiting for initialization")
	}
}

func (s *SimilarityService) build(ctx context.Context) error {
	s.mu.Lock()
	if s.state == StateReady {
		s.mu.Unlock()
		return nil
	}
	s.state = StateInitializing
	s.mu.Unlock()

	logger := logging.From(ctx)
	start := time.Now()

	cases, err := s.loadAndIndex(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.state = StateUninitialized
		return err
	}
	s.cases = cases
	s.state = StateReady

	logger.Info("similarity service ready",
		"cases", len(cases),
		"embedder", s.embedder.Name(),
		"index", s.index.Name(),
		"duration", time.Since(start),
	)
	return nil
}

func (s *SimilarityService) loadAndIndex(ctx context.Context) ([]domain.AccidentCase, error) {
	logger := logging.From(ctx)

	cases, err := s.loader.Load(ctx, s.sourcePath)
	if err != nil {
		return nil, err
	}
	logger.Info("corpus loaded", "path", s.sourcePath, "cases", len(cases))
	if len(cases) == 0 {
		return cases, nil
	}

	texts := corpus.CaseTexts(cases)
	if err := s.embedder.Prepare(texts); err != nil {
		return nil, err
	}
	vectors, err := s.embedder.EmbedMany(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(cases) {
		return nil, goerr.Wrap(domain.ErrEmbedding, "embedding count mismatch",
			goerr.V("expected", len(cases)), goerr.V("actual", len(vectors)))
	}
	dimension := len(vectors[0])
	logger.Info("embeddings created", "count", len(vectors), "dimension", dimension)

	if err := s.index.Init(ctx, dimension); err != nil {
		return nil, err
	}
	if err := s.index.Add(ctx, vectors); err != nil {
		return nil, err
	}
	logger.Info("index built", "backend", s.index.Name(), "vectors", s.index.Len())
	return cases, nil
}

// FindSimilarCases returns up to k cases nearest to the query, nearest
// first. k <= 0 selects the default count. The result is empty only when
// the corpus is empty.
func (s *SimilarityService) FindSimilarCases(ctx context.Context, q domain.SimilarityQuery, k int) (domain.RankedResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if k <= 0 {
		k = s.defaultK
	}
	if err := s.Initialize(ctx); err != nil {
		return nil, err
	}

	s.mu.RLock()
	cases := s.cases
	s.mu.RUnlock()
	if len(cases) == 0 {
		return domain.RankedResult{}, nil
	}

	text := corpus.QueryText(q)
	vec, err := s.embedder.EmbedOne(ctx, text)
	if err != nil {
		return nil, err
	}
	hits, err := s.index.Search(ctx, vec, k)
	if err != nil {
		return nil, err
	}

	result := make(domain.RankedResult, 0, len(hits))
	for _, h := range hits {
		if h.Position < 0 || h.Position >= len(cases) {
			return nil, goerr.Wrap(domain.ErrIndex, "index returned unknown position",
				goerr.V("position", h.Position), goerr.V("cases", len(cases)))
		}
		result = append(result, domain.ScoredCase{Case: cases[h.Position], Distance: h.Distance})
	}

	if logger := logging.From(ctx); logger.Enabled(ctx, slog.LevelDebug) {
		titles := make([]string, len(result))
		for i, r := range result {
			titles[i] = r.Case.Title
		}
		logger.Debug("similar cases found", "query", text, "k", k, "titles", titles)
	}
	return result, nil
}

// GetCaseByID looks a case up in the loaded corpus. It never triggers
// initialization and reports false before the service is Ready.
func (s *SimilarityService) GetCaseByID(id int) (domain.AccidentCase, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	// ids are assigned 1..N in load order
	if id < 1 || id > len(s.cases) {
		return domain.AccidentCase{}, false
	}
	c := s.cases[id-1]
	if c.ID != id {
		return domain.AccidentCase{}, false
	}
	return c, true
}

// Close releases the index.
func (s *SimilarityService) Close() error {
	return s.index.Close()
}
