// Package vectorstore selects the configured domain.VectorIndex backend.
package vectorstore

import (
	"log/slog"

	"github.com/m-mizutani/goerr/v2"

	"safetyrag/internal/config"
	"safetyrag/internal/domain"
	"safetyrag/internal/vectorstore/memory"
	"safetyrag/internal/vectorstore/qdrant"
	"safetyrag/internal/vectorstore/sqlitevec"
)

// New builds the index named by cfg.Type.
func New(cfg config.IndexConfig, logger *slog.Logger) (domain.VectorIndex, error) {
	switch cfg.Type {
	case "memory", "":
		return memory.NewIndex(), nil
	case "sqlitevec":
		var sc sqlitevec.Config
		if cfg.SQLiteVec != nil {
			sc.DBPath = cfg.SQLiteVec.DBPath
		}
		idx, err := sqlitevec.NewIndex(sc, logger)
		if err != nil {
			return nil, err
		}
		return idx, nil
	case "qdrant":
		if cfg.Qdrant == nil {
			return nil, goerr.Wrap(domain.ErrConfiguration, "qdrant config missing")
		}
		idx, err := qdrant.NewIndex(qdrant.Config{
			Host:       cfg.Qdrant.Host,
			Port:       cfg.Qdrant.Port,
			APIKey:     cfg.Qdrant.APIKey,
			UseTLS:     cfg.Qdrant.UseTLS,
			Collection: cfg.Qdrant.Collection,
		}, logger)
		if err != nil {
			return nil, err
		}
		return idx, nil
	default:
		return nil, goerr.Wrap(domain.ErrConfiguration, "unknown index", goerr.V("type", cfg.Type))
	}
}
