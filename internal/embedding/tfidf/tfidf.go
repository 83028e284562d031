// Package tfidf is an offline embedder that needs no credential. Vectors
// are L2-normalised TF-IDF weights over a vocabulary built from the corpus.
package tfidf

import (
	"context"
	"math"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/m-mizutani/goerr/v2"

	"safetyrag/internal/domain"
)

// Embedder implements a simple TF-IDF vectorizer.
// It builds a vocabulary from the corpus and computes IDF values.
type Embedder struct {
	mu           sync.RWMutex
	vocabulary   map[string]int
	idf          []float64
	dimension    int
	prepared     bool
	tokenPattern *regexp.Regexp
	stopwords    map[string]struct{}
}

// NewEmbedder creates an unprepared TF-IDF embedder.
func NewEmbedder() *Embedder {
	return &Embedder{
		vocabulary:   make(map[string]int),
		tokenPattern: regexp.MustCompile(`[\p{L}\p{N}]+(?:['’][\p{L}]+)*`),
		stopwords:    defaultStopwords(),
	}
}

// Name returns the identifier of this embedder implementation.
func (e *Embedder) Name() string { return "tfidf" }

// Prepare builds the vocabulary and IDF values from the provided corpus.
func (e *Embedder) Prepare(corpus []string) error {
	if len(corpus) == 0 {
		return goerr.Wrap(domain.ErrEmbedding, "empty corpus for TF-IDF prepare")
	}
	// Build vocabulary and document frequencies
	df := make(map[string]int)
	for _, text := range corpus {
		seen := make(map[string]struct{})
		for _, tok := range e.tokenize(text) {
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			df[tok]++
		}
	}
	// Create stable ordering for vocabulary
	terms := make([]string, 0, len(df))
	for term := range df {
		terms = append(terms, term)
	}
	sort.Strings(terms)
	if len(terms) == 0 {
		return goerr.Wrap(domain.ErrEmbedding, "no tokens found in corpus")
	}

	vocabulary := make(map[string]int, len(terms))
	idf := make([]float64, len(terms))
	n := float64(len(corpus))
	for i, term := range terms {
		vocabulary[term] = i
		// Smoothed IDF
		idf[i] = math.Log((1+n)/(1+float64(df[term]))) + 1.0
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.vocabulary = vocabulary
	e.idf = idf
	e.dimension = len(terms)
	e.prepared = true
	return nil
}

// Dimension returns the dimensionality of the produced embedding vectors.
func (e *Embedder) Dimension() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.dimension
}

// EmbedMany computes TF-IDF vectors for every text in order.
func (e *Embedder) EmbedMany(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, text := range texts {
		vec, err := e.EmbedOne(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

// EmbedOne computes the TF-IDF embedding for the given text.
func (e *Embedder) EmbedOne(_ context.Context, text string) ([]float64, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if !e.prepared {
		return nil, goerr.Wrap(domain.ErrEmbedding, "tfidf embedder not prepared")
	}
	vec := make([]float64, e.dimension)
	tf := make(map[int]int)
	total := 0
	for _, tok := range e.tokenize(text) {
		if idx, ok := e.vocabulary[tok]; ok {
			tf[idx]++
			total++
		}
	}
	if total == 0 {
		return vec, nil
	}
	for idx, count := range tf {
		vec[idx] = float64(count) / float64(total) * e.idf[idx]
	}
	// L2 normalize
	norm := 0.0
	for _, v := range vec {
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range vec {
			vec[i] /= norm
		}
	}
	return vec, nil
}

func (e *Embedder) tokenize(text string) []string {
	raw := e.tokenPattern.FindAllString(strings.ToLower(text), -1)
	out := raw[:0]
	for _, t := range raw {
		if _, isStop := e.stopwords[t]; isStop {
			continue
		}
		out = append(out, t)
	}
	return out
}

// defaultStopwords drops the field labels that prefix every line of the
// case and query texts along with common English function words.
func defaultStopwords() map[string]struct{} {
	words := []string{
		"작업유형", "기인물", "설비명", "재해유형", "사고명", "발생상황", "발생원인", "시사점", "작업명", "작업내용",
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by", "with", "as", "is", "are", "was", "were", "be", "been", "it", "this", "that", "from",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
