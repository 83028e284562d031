package cli

import (
	"context"

	"github.com/m-mizutani/goerr/v2"

	"safetyrag/internal/config"
	"safetyrag/internal/corpus"
	"safetyrag/internal/embedding"
	"safetyrag/internal/logging"
	"safetyrag/internal/service"
	"safetyrag/internal/vectorstore"
)

// newServiceProvider wires the configured loader, embedder and index into a
// lazily built similarity service.
func newServiceProvider(ctx context.Context, cfg *config.AppConfig) *service.Provider {
	return service.NewProvider(func() (*service.SimilarityService, error) {
		emb, err := embedding.New(ctx, cfg.Embedder)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create embedder", goerr.V("type", cfg.Embedder.Type))
		}
		idx, err := vectorstore.New(cfg.Index, logging.From(ctx))
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create vector index", goerr.V("type", cfg.Index.Type))
		}

		var loaderOpts []corpus.Option
		if cfg.Corpus.Sheet != "" {
			loaderOpts = append(loaderOpts, corpus.WithSheet(cfg.Corpus.Sheet))
		}

		logging.From(ctx).Info("similarity service assembled",
			"corpus", cfg.Corpus.Path,
			"embedder", emb.Name(),
			"index", idx.Name(),
		)
		return service.NewSimilarityService(
			corpus.NewLoader(loaderOpts...),
			emb,
			idx,
			cfg.Corpus.Path,
			service.WithDefaultK(cfg.Search.DefaultK),
		), nil
	})
}
