package openai_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/m-mizutani/gt"

	"safetyrag/internal/domain"
	"safetyrag/internal/embedding/openai"
)

type fakeBackend struct {
	calls  atomic.Int32
	status int
	// reverse returns data entries in reverse order to exercise index sorting.
	reverse bool
}

func (f *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.calls.Add(1)
	if r.Header.Get("Authorization") != "Bearer test-key" || r.URL.Path != "/embeddings" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	if f.status != 0 {
		w.WriteHeader(f.status)
		return
	}
	var req struct {
		Input []string `json:"input"`
		Model string   `json:"model"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	type item struct {
		Index     int       `json:"index"`
		Embedding []float64 `json:"embedding"`
	}
	items := make([]item, len(req.Input))
	for i, text := range req.Input {
		items[i] = item{Index: i, Embedding: []float64{float64(len(text)), 1}}
	}
	if f.reverse {
		for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
			items[i], items[j] = items[j], items[i]
		}
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"data": items})
}

func newClient(t *testing.T, backend *fakeBackend, batch, retries int) *openai.Client {
	t.Helper()
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)
	t.Setenv("TEST_EMBED_KEY", "test-key")
	c, err := openai.NewClient(openai.Config{
		BaseURL:    srv.URL,
		APIKeyEnv:  "TEST_EMBED_KEY",
		BatchSize:  batch,
		MaxRetries: retries,
	})
	gt.NoError(t, err).Required()
	return c
}

func TestNewClientRequiresCredential(t *testing.T) {
	t.Setenv("TEST_EMBED_MISSING", "")
	_, err := openai.NewClient(openai.Config{APIKeyEnv: "TEST_EMBED_MISSING"})
	gt.Bool(t, errors.Is(err, domain.ErrConfiguration)).True()
}

func TestEmbedManyBatchesAndKeepsOrder(t *testing.T) {
	backend := &fakeBackend{reverse: true}
	c := newClient(t, backend, 2, 0)

	vecs, err := c.EmbedMany(context.Background(), []string{"a", "bb", "ccc", "dddd", "eeeee"})
	gt.NoError(t, err).Required()
	gt.Array(t, vecs).Length(5).Required()
	for i, v := range vecs {
		gt.Value(t, v[0]).Equal(float64(i + 1))
	}
	gt.Value(t, backend.calls.Load()).Equal(int32(3))
}

func TestEmbedOne(t *testing.T) {
	c := newClient(t, &fakeBackend{}, 0, 0)
	v, err := c.EmbedOne(context.Background(), "작업")
	gt.NoError(t, err).Required()
	gt.Array(t, v).Length(2)
	gt.Value(t, c.Name()).Equal("openai")
}

func TestEmbedFailureIsEmbeddingError(t *testing.T) {
	backend := &fakeBackend{status: http.StatusTooManyRequests}
	c := newClient(t, backend, 0, 1)

	_, err := c.EmbedOne(context.Background(), "x")
	gt.Bool(t, errors.Is(err, domain.ErrEmbedding)).True()
	gt.Value(t, backend.calls.Load()).Equal(int32(2))
}

func TestEmbedClientErrorIsNotRetried(t *testing.T) {
	backend := &fakeBackend{status: http.StatusBadRequest}
	c := newClient(t, backend, 0, 3)

	_, err := c.EmbedMany(context.Background(), []string{"x"})
	gt.Bool(t, errors.Is(err, domain.ErrEmbedding)).True()
	gt.Value(t, backend.calls.Load()).Equal(int32(1))
}
