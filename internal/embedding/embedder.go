// Package embedding selects the configured domain.Embedder backend.
package embedding

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"safetyrag/internal/config"
	"safetyrag/internal/domain"
	"safetyrag/internal/embedding/gemini"
	"safetyrag/internal/embedding/openai"
	"safetyrag/internal/embedding/tfidf"
)

// New builds the embedder named by cfg.Type. Missing credentials return
// domain.ErrConfiguration.
func New(ctx context.Context, cfg config.EmbedderConfig) (domain.Embedder, error) {
	switch cfg.Type {
	case "openai", "":
		oc := cfg.OpenAI
		if oc == nil {
			oc = &config.OpenAIEmbedderConfig{}
		}
		client, err := openai.NewClient(openai.Config{
			BaseURL:    oc.BaseURL,
			APIKeyEnv:  oc.APIKeyEnv,
			Model:      oc.Model,
			Timeout:    time.Duration(oc.TimeoutSecs) * time.Second,
			BatchSize:  oc.BatchSize,
			MaxRetries: oc.MaxRetries,
		})
		if err != nil {
			return nil, err
		}
		return client, nil
	case "gemini":
		if cfg.Gemini == nil {
			return nil, goerr.Wrap(domain.ErrConfiguration, "gemini embedder config missing")
		}
		e, err := gemini.NewFromProject(ctx, cfg.Gemini.Project, cfg.Gemini.Location,
			gemini.WithDimension(cfg.Gemini.Dimension))
		if err != nil {
			return nil, err
		}
		return e, nil
	case "tfidf":
		return tfidf.NewEmbedder(), nil
	default:
		return nil, goerr.Wrap(domain.ErrConfiguration, "unknown embedder", goerr.V("type", cfg.Type))
	}
}
