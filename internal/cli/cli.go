package cli

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"safetyrag/internal/config"
	"safetyrag/internal/logging"
)

// globals holds the root flags and the configuration they resolve to.
type globals struct {
	configPath string
	corpusPath string
	logFormat  string
	debug      bool

	cfg *config.AppConfig
}

func Run(ctx context.Context, args []string, version string) error {
	app := newApp(version)
	if err := app.Run(ctx, args); err != nil {
		logging.Default().Error("failed to run safetyrag", "error", err)
		return err
	}
	return nil
}

func newApp(version string) *cli.Command {
	g := &globals{}

	return &cli.Command{
		Name:    "safetyrag",
		Usage:   "Find past accident cases similar to a work permit",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to YAML config file (default ./config.yaml when present)",
				Sources:     cli.EnvVars("SAFETYRAG_CONFIG"),
				Destination: &g.configPath,
			},
			&cli.StringFlag{
				Name:        "corpus",
				Usage:       "Accident case source file (.xlsx or .csv), overrides corpus.path",
				Sources:     cli.EnvVars("SAFETYRAG_CORPUS"),
				Destination: &g.corpusPath,
			},
			&cli.StringFlag{
				Name:        "log-format",
				Usage:       "Log format: text, json or pretty",
				Sources:     cli.EnvVars("SAFETYRAG_LOG_FORMAT"),
				Destination: &g.logFormat,
			},
			&cli.BoolFlag{
				Name:        "debug",
				Usage:       "Enable debug logging",
				Sources:     cli.EnvVars("SAFETYRAG_DEBUG"),
				Destination: &g.debug,
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			if err := g.configure(c); err != nil {
				return ctx, err
			}
			return logging.With(ctx, logging.Default()), nil
		},
		Commands: []*cli.Command{
			cmdServe(g),
			cmdSearch(g),
			cmdInspect(g),
		},
	}
}

func (g *globals) configure(c *cli.Command) error {
	cfg, path, err := config.LoadDefault(g.configPath)
	if err != nil {
		return goerr.Wrap(err, "failed to load config")
	}
	if g.corpusPath != "" {
		cfg.Corpus.Path = g.corpusPath
	}
	if g.logFormat != "" {
		cfg.Log.Format = g.logFormat
	}
	if g.debug {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	g.cfg = cfg

	logging.SetDefault(newLogger(cfg.Log, c.Root().ErrWriter))
	logging.Default().Debug("config loaded", "path", path, "corpus", cfg.Corpus.Path,
		"embedder", cfg.Embedder.Type, "index", cfg.Index.Type)
	return nil
}

func newLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	opts := []logging.Option{
		logging.WithLevel(logging.ParseLevel(cfg.Level)),
		logging.WithWriter(w),
	}
	switch cfg.Format {
	case "json":
		opts = append(opts, logging.WithJSON(true))
	case "pretty":
		opts = append(opts, logging.WithPretty(true))
	}
	return logging.New(opts...)
}
