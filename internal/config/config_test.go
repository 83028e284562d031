package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/gt"

	"safetyrag/internal/config"
	"safetyrag/internal/domain"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	gt.NoError(t, os.WriteFile(path, []byte(body), 0o644)).Required()
	return path
}

func TestDefault(t *testing.T) {
	cfg := config.Default()
	gt.Value(t, cfg.Corpus.Path).Equal("data/accident_cases.xlsx")
	gt.Value(t, cfg.Embedder.Type).Equal("openai")
	gt.Value(t, cfg.Embedder.OpenAI.Model).Equal("text-embedding-3-small")
	gt.Value(t, cfg.Embedder.OpenAI.APIKeyEnv).Equal("OPENAI_API_KEY")
	gt.Value(t, cfg.Embedder.OpenAI.BatchSize).Equal(100)
	gt.Value(t, cfg.Embedder.OpenAI.MaxRetries).Equal(0)
	gt.Value(t, cfg.Index.Type).Equal("memory")
	gt.Value(t, cfg.Search.DefaultK).Equal(2)
	gt.Value(t, cfg.Search.MaxK).Equal(20)
	gt.Value(t, cfg.Server.Addr).Equal(":8080")
	gt.NoError(t, cfg.Validate())
}

func TestLoadFillsDefaults(t *testing.T) {
	path := writeConfig(t, `
corpus:
  path: cases.csv
embedder:
  type: gemini
  gemini:
    project: my-project
index:
  type: qdrant
  qdrant:
    host: qdrant.internal
search:
  default_k: 3
log:
  format: json
`)
	cfg, err := config.Load(path)
	gt.NoError(t, err).Required()
	gt.Value(t, cfg.Corpus.Path).Equal("cases.csv")
	gt.Value(t, cfg.Embedder.Gemini.Project).Equal("my-project")
	gt.Value(t, cfg.Embedder.Gemini.Location).Equal("us-central1")
	gt.Value(t, cfg.Embedder.Gemini.Dimension).Equal(768)
	gt.Value(t, cfg.Index.Qdrant.Host).Equal("qdrant.internal")
	gt.Value(t, cfg.Index.Qdrant.Port).Equal(6334)
	gt.Value(t, cfg.Index.Qdrant.Collection).Equal("accident_cases")
	gt.Value(t, cfg.Search.DefaultK).Equal(3)
	gt.Value(t, cfg.Search.MaxK).Equal(20)
	gt.Value(t, cfg.Log.Format).Equal("json")
}

func TestLoadRejects(t *testing.T) {
	testCases := map[string]string{
		"unknown embedder":   "embedder:\n  type: word2vec\n",
		"unknown index":      "index:\n  type: faiss\n",
		"default above max":  "search:\n  default_k: 30\n  max_k: 10\n",
		"unknown log format": "log:\n  format: xml\n",
		"malformed yaml":     "corpus: [\n",
	}
	for name, body := range testCases {
		t.Run(name, func(t *testing.T) {
			_, err := config.Load(writeConfig(t, body))
			gt.Bool(t, errors.Is(err, domain.ErrConfiguration)).True()
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	gt.Bool(t, errors.Is(err, domain.ErrConfiguration)).True()
}

func TestLoadDefaultWithoutFile(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, path, err := config.LoadDefault("")
	gt.NoError(t, err).Required()
	gt.Value(t, path).Equal("")
	gt.Value(t, cfg.Index.Type).Equal("memory")
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := config.Default()
	cfg.Search.DefaultK = 5
	gt.NoError(t, config.Save(path, cfg)).Required()

	loaded, used, err := config.LoadDefault(path)
	gt.NoError(t, err).Required()
	gt.Value(t, used).Equal(path)
	gt.Value(t, loaded.Search.DefaultK).Equal(5)
}
