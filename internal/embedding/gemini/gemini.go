// Package gemini embeds text through a gollem LLM client backed by Vertex AI Gemini.
package gemini

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"github.com/m-mizutani/gollem/llm/gemini"

	"safetyrag/internal/domain"
)

// DefaultDimension matches the output size of Gemini text embedding models.
const DefaultDimension = 768

// Embedder implements domain.Embedder on top of gollem.LLMClient.
type Embedder struct {
	llmClient gollem.LLMClient
	dimension int
}

// Option is a functional option for Embedder configuration.
type Option func(*Embedder)

// WithDimension overrides the requested embedding dimension.
func WithDimension(dim int) Option {
	return func(e *Embedder) {
		if dim > 0 {
			e.dimension = dim
		}
	}
}

// New wraps an existing LLM client.
func New(llmClient gollem.LLMClient, opts ...Option) (*Embedder, error) {
	if llmClient == nil {
		return nil, goerr.Wrap(domain.ErrConfiguration, "LLM client is required")
	}
	e := &Embedder{llmClient: llmClient, dimension: DefaultDimension}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// NewFromProject creates a Gemini client for the given Google Cloud project.
func NewFromProject(ctx context.Context, projectID, location string, opts ...Option) (*Embedder, error) {
	if projectID == "" {
		return nil, goerr.Wrap(domain.ErrConfiguration, "gemini project is required")
	}
	client, err := gemini.New(ctx, projectID, location)
	if err != nil {
		return nil, goerr.Wrap(domain.ErrConfiguration, "failed to create Gemini client",
			goerr.V("project", projectID), goerr.V("location", location), goerr.V("cause", err.Error()))
	}
	return New(client, opts...)
}

// Name returns the identifier of this embedder implementation.
func (e *Embedder) Name() string { return "gemini" }

// Prepare is not required for remote embedding.
func (e *Embedder) Prepare(corpus []string) error { return nil }

// EmbedMany sends all texts in one GenerateEmbedding call.
func (e *Embedder) EmbedMany(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return [][]float64{}, nil
	}
	embeddings, err := e.llmClient.GenerateEmbedding(ctx, e.dimension, texts)
	if err != nil {
		return nil, goerr.Wrap(domain.ErrEmbedding, "failed to generate embedding",
			goerr.V("count", len(texts)), goerr.V("cause", err.Error()))
	}
	if len(embeddings) != len(texts) {
		return nil, goerr.Wrap(domain.ErrEmbedding, "unexpected number of embeddings",
			goerr.V("expected", len(texts)), goerr.V("actual", len(embeddings)))
	}
	return embeddings, nil
}

// EmbedOne embeds a single text.
func (e *Embedder) EmbedOne(ctx context.Context, text string) ([]float64, error) {
	vecs, err := e.EmbedMany(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}
