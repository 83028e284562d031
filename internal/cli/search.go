package cli

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"safetyrag/internal/domain"
	"safetyrag/internal/logging"
	"safetyrag/internal/tui"
)

func cmdSearch(g *globals) *cli.Command {
	var workName string
	var equipment string

	return &cli.Command{
		Name:  "search",
		Usage: "Search similar accident cases interactively",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:     "work-type",
				Aliases:  []string{"t"},
				Usage:    "Work type of the permit, repeatable (e.g. 전기작업)",
				Required: true,
			},
			&cli.StringFlag{
				Name:        "work-name",
				Usage:       "Work name of the permit",
				Destination: &workName,
			},
			&cli.StringFlag{
				Name:        "equipment",
				Usage:       "Equipment name of the permit",
				Destination: &equipment,
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Number of cases to show (default search.default_k)",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			base := domain.SimilarityQuery{
				WorkTypes:     c.StringSlice("work-type"),
				WorkName:      workName,
				EquipmentName: equipment,
			}
			if err := base.Validate(); err != nil {
				return err
			}
			limit := min(int(c.Int("limit")), g.cfg.Search.MaxK)
			if limit <= 0 {
				limit = g.cfg.Search.DefaultK
			}

			// Log lines would tear the terminal UI.
			ctx = logging.With(ctx, logging.Nop())

			svc, err := newServiceProvider(ctx, g.cfg).Get()
			if err != nil {
				return err
			}
			defer svc.Close() //nolint:errcheck // process exits next

			m := tui.New(ctx, svc, base, limit)
			if _, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil {
				return goerr.Wrap(err, "terminal UI failed")
			}
			return nil
		},
	}
}
