package domain

import "context"

// CorpusLoader parses a tabular source into accident case records.
type CorpusLoader interface {
	Load(ctx context.Context, path string) ([]AccidentCase, error)
}

// Embedder converts free text into a numeric vector representation.
// Implementations may require a preparation phase over the corpus.
type Embedder interface {
	Name() string
	Prepare(corpus []string) error
	EmbedMany(ctx context.Context, texts []string) ([][]float64, error)
	EmbedOne(ctx context.Context, text string) ([]float64, error)
}

// VectorIndex is an append-only nearest-neighbor structure over case vectors.
// Positions are assigned in insertion order starting at 0.
type VectorIndex interface {
	Name() string
	Init(ctx context.Context, dimension int) error
	Add(ctx context.Context, vectors [][]float64) error
	Search(ctx context.Context, query []float64, k int) ([]Neighbor, error)
	Len() int
	Close() error
}
