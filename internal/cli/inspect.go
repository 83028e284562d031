package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"safetyrag/internal/corpus"
	"safetyrag/internal/domain"
)

func cmdInspect(g *globals) *cli.Command {
	return &cli.Command{
		Name:  "inspect",
		Usage: "Load the corpus without embedding and print a summary",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "head",
				Usage: "Number of records to print",
				Value: 3,
			},
			&cli.BoolFlag{
				Name:  "text",
				Usage: "Print the embedding text of each record instead of JSON",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			var opts []corpus.Option
			if g.cfg.Corpus.Sheet != "" {
				opts = append(opts, corpus.WithSheet(g.cfg.Corpus.Sheet))
			}
			cases, err := corpus.NewLoader(opts...).Load(ctx, g.cfg.Corpus.Path)
			if err != nil {
				return err
			}
			return printCases(c, cases, int(c.Int("head")), c.Bool("text"))
		},
	}
}

func printCases(c *cli.Command, cases []domain.AccidentCase, head int, asText bool) error {
	w := c.Root().Writer
	fmt.Fprintf(w, "%d cases\n", len(cases))

	severities := map[string]int{}
	for _, ac := range cases {
		severities[ac.Severity]++
	}
	for _, s := range []string{domain.SeveritySevere, domain.SeverityOccupational} {
		fmt.Fprintf(w, "%s: %d\n", s, severities[s])
	}

	head = min(max(head, 0), len(cases))
	for _, ac := range cases[:head] {
		if asText {
			fmt.Fprintf(w, "\n#%d\n%s\n", ac.ID, corpus.CaseText(ac))
			continue
		}
		data, err := json.MarshalIndent(ac, "", "  ")
		if err != nil {
			return goerr.Wrap(err, "failed to marshal case", goerr.V("id", ac.ID))
		}
		fmt.Fprintf(w, "%s\n", data)
	}
	return nil
}
