package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"safetyrag/internal/domain"
)

const (
	// DefaultBaseURL is the public OpenAI API root.
	DefaultBaseURL = "https://api.openai.com/v1"
	// DefaultModel is the embedding model used for both corpus and queries.
	DefaultModel = "text-embedding-3-small"
	// DefaultAPIKeyEnv names the environment variable holding the credential.
	DefaultAPIKeyEnv = "OPENAI_API_KEY"

	defaultBatchSize = 100
)

// Client is an OpenAI-compatible embeddings client implementing domain.Embedder.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	batchSize  int
	maxRetries int
	client     *http.Client
}

// Config configures the OpenAI-compatible embeddings client.
type Config struct {
	BaseURL    string
	APIKeyEnv  string
	Model      string
	Timeout    time.Duration
	BatchSize  int
	MaxRetries int
	// HTTPClient overrides the transport, mainly for tests.
	HTTPClient *http.Client
}

// NewClient creates a new embeddings client. A missing credential is a
// configuration error reported here rather than on first use.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKeyEnv == "" {
		cfg.APIKeyEnv = DefaultAPIKeyEnv
	}
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, goerr.Wrap(domain.ErrConfiguration, "missing embedding API key", goerr.V("env", cfg.APIKeyEnv))
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		t := cfg.Timeout
		if t == 0 {
			t = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: t}
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     key,
		model:      cfg.Model,
		batchSize:  cfg.BatchSize,
		maxRetries: cfg.MaxRetries,
		client:     httpClient,
	}, nil
}

// Name returns the identifier of this embedder implementation.
func (c *Client) Name() string { return "openai" }

// Prepare is not required for remote embedding.
func (c *Client) Prepare(corpus []string) error { return nil }

// EmbedOne returns an embedding vector for a single text.
func (c *Client) EmbedOne(ctx context.Context, text string) ([]float64, error) {
	vecs, err := c.request(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedMany embeds texts in batches and returns vectors in input order.
func (c *Client) EmbedMany(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, 0, len(texts))
	dimension := 0
	for start := 0; start < len(texts); start += c.batchSize {
		end := min(start+c.batchSize, len(texts))
		vecs, err := c.request(ctx, texts[start:end])
		if err != nil {
			return nil, goerr.Wrap(err, "failed to embed batch", goerr.V("offset", start))
		}
		for _, v := range vecs {
			if dimension == 0 {
				dimension = len(v)
			}
			if len(v) != dimension {
				return nil, goerr.Wrap(domain.ErrEmbedding, "inconsistent embedding dimension",
					goerr.V("expected", dimension), goerr.V("actual", len(v)))
			}
			out = append(out, v)
		}
	}
	return out, nil
}

type embeddingsRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type embeddingsResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

func (c *Client) request(ctx context.Context, texts []string) ([][]float64, error) {
	url := fmt.Sprintf("%s/embeddings", c.baseURL)
	data, err := json.Marshal(embeddingsRequest{Input: texts, Model: c.model})
	if err != nil {
		return nil, goerr.Wrap(domain.ErrEmbedding, "failed to marshal request", goerr.V("cause", err.Error()))
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, goerr.Wrap(domain.ErrEmbedding, "embedding request cancelled", goerr.V("cause", ctx.Err().Error()))
			case <-time.After(retryDelay(attempt - 1)):
			}
		}

		payload, retryable, err := c.post(ctx, url, data)
		if err != nil {
			lastErr = err
			if retryable {
				continue
			}
			return nil, err
		}
		return decodeEmbeddings(payload, len(texts))
	}
	return nil, lastErr
}

// post returns the response body, or an error flagged retryable for
// transport failures, 429 and 5xx.
func (c *Client) post(ctx context.Context, url string, data []byte) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, false, goerr.Wrap(domain.ErrEmbedding, "failed to create request", goerr.V("cause", err.Error()))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, ctx.Err() == nil, goerr.Wrap(domain.ErrEmbedding, "embedding request failed", goerr.V("cause", err.Error()))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, goerr.Wrap(domain.ErrEmbedding, "failed to read response", goerr.V("cause", err.Error()))
	}
	if resp.StatusCode >= 300 {
		retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return nil, retryable, goerr.Wrap(domain.ErrEmbedding, "embedding backend returned error status",
			goerr.V("status", resp.StatusCode),
			goerr.V("retry_after", retryAfter(resp)),
			goerr.V("body", truncate(string(body), 512)))
	}
	return body, false, nil
}

func decodeEmbeddings(payload []byte, want int) ([][]float64, error) {
	var out embeddingsResponse
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, goerr.Wrap(domain.ErrEmbedding, "failed to decode response", goerr.V("cause", err.Error()))
	}
	if len(out.Data) != want {
		return nil, goerr.Wrap(domain.ErrEmbedding, "unexpected number of embeddings",
			goerr.V("expected", want), goerr.V("actual", len(out.Data)))
	}
	sort.SliceStable(out.Data, func(i, j int) bool { return out.Data[i].Index < out.Data[j].Index })
	vecs := make([][]float64, len(out.Data))
	for i, d := range out.Data {
		if len(d.Embedding) == 0 {
			return nil, goerr.Wrap(domain.ErrEmbedding, "empty embedding", goerr.V("index", d.Index))
		}
		vecs[i] = d.Embedding
	}
	return vecs, nil
}

func retryAfter(resp *http.Response) time.Duration {
	ra := resp.Header.Get("Retry-After")
	if ra == "" {
		return 0
	}
	secs, err := strconv.Atoi(ra)
	if err != nil {
		return 0
	}
	return time.Duration(secs) * time.Second
}

func retryDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	base := 200 * time.Millisecond
	// exponential backoff capped at 5s
	d := base << attempt
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	return d
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
