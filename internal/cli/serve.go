package cli

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	httpctrl "safetyrag/internal/controller/http"
	"safetyrag/internal/logging"
)

func cmdServe(g *globals) *cli.Command {
	var addr string
	var warmup bool

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start HTTP server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "addr",
				Usage:       "HTTP server address, overrides server.addr",
				Sources:     cli.EnvVars("SAFETYRAG_ADDR"),
				Destination: &addr,
			},
			&cli.BoolFlag{
				Name:        "warmup",
				Usage:       "Load and embed the corpus in the background at startup",
				Sources:     cli.EnvVars("SAFETYRAG_WARMUP"),
				Destination: &warmup,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg := g.cfg
			if addr == "" {
				addr = cfg.Server.Addr
			}
			logger := logging.From(ctx)

			// fails on missing credentials before listening
			svc, err := newServiceProvider(ctx, cfg).Get()
			if err != nil {
				return err
			}
			defer func() {
				if err := svc.Close(); err != nil {
					logger.Error("failed to close vector index", "error", err.Error())
				}
			}()

			if warmup {
				go func() {
					if err := svc.Initialize(ctx); err != nil {
						logger.Error("warm-up failed, will retry on first request", "error", err)
					}
				}()
			}

			handler := httpctrl.New(svc,
				httpctrl.WithQueryTimeout(cfg.Server.QueryTimeout()),
				httpctrl.WithSearchLimits(cfg.Search.DefaultK, cfg.Search.MaxK),
			)
			server := &http.Server{
				Addr:              addr,
				Handler:           handler,
				ReadHeaderTimeout: cfg.Server.ReadTimeout(),
				BaseContext:       func(_ net.Listener) context.Context { return ctx },
			}

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(sigCh)

			errCh := make(chan error, 1)
			go func() {
				logger.Info("Starting HTTP server", "addr", addr, "warmup", warmup)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- goerr.Wrap(err, "failed to start server", goerr.V("addr", addr))
				}
			}()

			select {
			case err := <-errCh:
				return err
			case sig := <-sigCh:
				logger.Info("Received shutdown signal", "signal", sig)

				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()

				if err := server.Shutdown(shutdownCtx); err != nil {
					return goerr.Wrap(err, "failed to shutdown server gracefully")
				}
				logger.Info("Server shutdown completed")
				return nil
			}
		},
	}
}
