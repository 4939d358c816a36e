package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"filingsync/internal/periods"
	"filingsync/internal/registry"
)

type entityJSON struct {
	Name     string `json:"name"`
	RUT      string `json:"rut"`
	Display  string `json:"display_rut"`
	Location string `json:"location"`
	Periods  int    `json:"periods"`
	Latest   string `json:"latest,omitempty"`
	Error    string `json:"error,omitempty"`
}

func newEntitiesCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:     "entities",
		Aliases: []string{"ls"},
		Short:   "List registered entities and what is stored for each",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			entries, err := ctx.registry()
			if err != nil {
				return err
			}
			logger, err := ctx.logger(true)
			if err != nil {
				return fmt.Errorf("create logger: %w", err)
			}
			resolver := periods.NewResolverFromConfig(cfg, logger)

			items := make([]entityJSON, 0, len(entries))
			for _, entry := range entries {
				item := entityJSON{
					Name:     entry.Name,
					RUT:      entry.RUT,
					Display:  entry.Display(),
					Location: cfg.EntityDir(entry.RUT),
				}
				set, err := resolver.Discover(cmd.Context(), item.Location)
				switch {
				case err == nil:
					item.Periods = set.Len()
					if latest, ok := set.Latest(); ok {
						item.Latest = latest.String()
					}
				case errors.Is(err, periods.ErrLocationUnavailable):
					item.Error = err.Error()
				default:
					return err
				}
				items = append(items, item)
			}

			if jsonOut {
				return writeJSON(cmd, items)
			}

			out := cmd.OutOrStdout()
			if len(items) == 0 {
				fmt.Fprintf(out, "No entities in %s\n", cfg.Paths.RegistryFile)
				return nil
			}
			rows := make([][]string, 0, len(items))
			for i, item := range items {
				stored := strconv.Itoa(item.Periods)
				if item.Error != "" {
					stored = "unreadable"
				}
				rows = append(rows, []string{
					strconv.Itoa(i + 1),
					registry.DisplayName(item.Name),
					item.Display,
					stored,
					dashIfEmpty(item.Latest),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"#", "Name", "RUT", "Periods", "Latest"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignRight, alignRight, alignLeft},
			))
			fmt.Fprintf(out, "%s from %s\n", plural(len(items), "entity", "entities"), cfg.Paths.RegistryFile)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}
