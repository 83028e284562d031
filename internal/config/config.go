package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"gopkg.in/yaml.v3"

	"safetyrag/internal/domain"
)

// CorpusConfig points at the tabular accident case source.
type CorpusConfig struct {
	Path  string `yaml:"path"`
	Sheet string `yaml:"sheet,omitempty"`
}

// OpenAIEmbedderConfig holds configuration for the OpenAI-compatible embedder.
type OpenAIEmbedderConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	BatchSize   int    `yaml:"batch_size"`
	MaxRetries  int    `yaml:"max_retries"`
}

// GeminiEmbedderConfig holds the Vertex AI project used for Gemini embeddings.
type GeminiEmbedderConfig struct {
	Project   string `yaml:"project"`
	Location  string `yaml:"location"`
	Dimension int    `yaml:"dimension"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type   string                `yaml:"type"`
	OpenAI *OpenAIEmbedderConfig `yaml:"openai,omitempty"`
	Gemini *GeminiEmbedderConfig `yaml:"gemini,omitempty"`
}

// IndexConfig selects and configures the vector index implementation.
type IndexConfig struct {
	Type      string           `yaml:"type"`
	SQLiteVec *SQLiteVecConfig `yaml:"sqlitevec,omitempty"`
	Qdrant    *QdrantConfig    `yaml:"qdrant,omitempty"`
}

// SQLiteVecConfig configures the sqlite-vec index.
type SQLiteVecConfig struct {
	DBPath string `yaml:"db_path"`
}

// QdrantConfig contains connection details for a Qdrant index.
type QdrantConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	APIKey     string `yaml:"api_key"`
	Collection string `yaml:"collection"`
	UseTLS     bool   `yaml:"use_tls"`
}

// SearchConfig bounds the number of cases a query returns.
type SearchConfig struct {
	DefaultK int `yaml:"default_k"`
	MaxK     int `yaml:"max_k"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Addr             string `yaml:"addr"`
	ReadTimeoutSecs  int    `yaml:"read_timeout_secs"`
	QueryTimeoutSecs int    `yaml:"query_timeout_secs"`
}

// ReadTimeout returns the read header timeout of the HTTP server.
func (c ServerConfig) ReadTimeout() time.Duration {
	return time.Duration(c.ReadTimeoutSecs) * time.Second
}

// QueryTimeout returns the per-request timeout for similarity queries.
func (c ServerConfig) QueryTimeout() time.Duration {
	return time.Duration(c.QueryTimeoutSecs) * time.Second
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Corpus   CorpusConfig   `yaml:"corpus"`
	Embedder EmbedderConfig `yaml:"embedder"`
	Index    IndexConfig    `yaml:"index"`
	Search   SearchConfig   `yaml:"search"`
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
}

// DefaultPath is looked up in the working directory when no path is given.
const DefaultPath = "config.yaml"

// Load reads a config from a specified path and fills in defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(domain.ErrConfiguration, "failed to read config",
			goerr.V("path", path), goerr.V("cause", err.Error()))
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, goerr.Wrap(domain.ErrConfiguration, "failed to parse config",
			goerr.V("path", path), goerr.V("cause", err.Error()))
	}
	applyConfigDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadDefault reads path when set, then ./config.yaml, and falls back to
// built-in defaults. It returns the path actually read, empty for defaults.
func LoadDefault(path string) (*AppConfig, string, error) {
	if path != "" {
		cfg, err := Load(path)
		return cfg, path, err
	}
	if _, err := os.Stat(DefaultPath); err == nil {
		cfg, err := Load(DefaultPath)
		return cfg, DefaultPath, err
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, "", goerr.Wrap(domain.ErrConfiguration, "failed to stat config",
			goerr.V("path", DefaultPath), goerr.V("cause", err.Error()))
	}
	return Default(), "", nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return goerr.Wrap(err, "failed to create config dir", goerr.V("path", path))
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return goerr.Wrap(err, "failed to marshal config")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return goerr.Wrap(err, "failed to write config", goerr.V("path", path))
	}
	return nil
}

// Default returns the built-in configuration.
func Default() *AppConfig {
	cfg := &AppConfig{}
	applyConfigDefaults(cfg)
	return cfg
}

// Validate rejects selections that have no implementation.
func (c *AppConfig) Validate() error {
	switch c.Embedder.Type {
	case "openai", "gemini", "tfidf":
	default:
		return goerr.Wrap(domain.ErrConfiguration, "unknown embedder", goerr.V("type", c.Embedder.Type))
	}
	switch c.Index.Type {
	case "memory", "sqlitevec", "qdrant":
	default:
		return goerr.Wrap(domain.ErrConfiguration, "unknown index", goerr.V("type", c.Index.Type))
	}
	if c.Search.DefaultK > c.Search.MaxK {
		return goerr.Wrap(domain.ErrConfiguration, "search.default_k exceeds search.max_k",
			goerr.V("default_k", c.Search.DefaultK), goerr.V("max_k", c.Search.MaxK))
	}
	switch c.Log.Format {
	case "text", "json", "pretty":
	default:
		return goerr.Wrap(domain.ErrConfiguration, "unknown log format", goerr.V("format", c.Log.Format))
	}
	return nil
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Corpus.Path == "" {
		cfg.Corpus.Path = "data/accident_cases.xlsx"
	}

	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = "openai"
	}
	if cfg.Embedder.Type == "openai" {
		if cfg.Embedder.OpenAI == nil {
			cfg.Embedder.OpenAI = &OpenAIEmbedderConfig{}
		}
		if cfg.Embedder.OpenAI.BaseURL == "" {
			cfg.Embedder.OpenAI.BaseURL = "https://api.openai.com/v1"
		}
		if cfg.Embedder.OpenAI.APIKeyEnv == "" {
			cfg.Embedder.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
		}
		if cfg.Embedder.OpenAI.Model == "" {
			cfg.Embedder.OpenAI.Model = "text-embedding-3-small"
		}
		if cfg.Embedder.OpenAI.TimeoutSecs == 0 {
			cfg.Embedder.OpenAI.TimeoutSecs = 30
		}
		if cfg.Embedder.OpenAI.BatchSize == 0 {
			cfg.Embedder.OpenAI.BatchSize = 100
		}
	}
	if cfg.Embedder.Type == "gemini" {
		if cfg.Embedder.Gemini == nil {
			cfg.Embedder.Gemini = &GeminiEmbedderConfig{}
		}
		if cfg.Embedder.Gemini.Location == "" {
			cfg.Embedder.Gemini.Location = "us-central1"
		}
		if cfg.Embedder.Gemini.Dimension == 0 {
			cfg.Embedder.Gemini.Dimension = 768
		}
	}

	if cfg.Index.Type == "" {
		cfg.Index.Type = "memory"
	}
	if cfg.Index.Type == "sqlitevec" && cfg.Index.SQLiteVec == nil {
		cfg.Index.SQLiteVec = &SQLiteVecConfig{DBPath: ":memory:"}
	}
	if cfg.Index.Type == "qdrant" {
		if cfg.Index.Qdrant == nil {
			cfg.Index.Qdrant = &QdrantConfig{}
		}
		if cfg.Index.Qdrant.Host == "" {
			cfg.Index.Qdrant.Host = "localhost"
		}
		if cfg.Index.Qdrant.Port == 0 {
			cfg.Index.Qdrant.Port = 6334
		}
		if cfg.Index.Qdrant.Collection == "" {
			cfg.Index.Qdrant.Collection = "accident_cases"
		}
	}

	if cfg.Search.DefaultK == 0 {
		cfg.Search.DefaultK = 2
	}
	if cfg.Search.MaxK == 0 {
		cfg.Search.MaxK = 20
	}

	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.ReadTimeoutSecs == 0 {
		cfg.Server.ReadTimeoutSecs = 10
	}
	if cfg.Server.QueryTimeoutSecs == 0 {
		cfg.Server.QueryTimeoutSecs = 30
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
