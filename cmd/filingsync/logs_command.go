package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"filingsync/internal/logging"
	"filingsync/internal/logs"
	"filingsync/internal/registry"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var lines int
	var follow bool
	var runID string
	var entity string

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the filingsync log, optionally for one run or entity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path := filepath.Join(cfg.Paths.LogDir, logging.LogFileName)

			var entityMatch logs.Matcher
			if entity != "" {
				rut, err := registry.CanonicalRUT(entity)
				if err != nil {
					return fmt.Errorf("--entity: %w", err)
				}
				entityMatch = logs.EntityMatcher(rut)
			}
			match := logs.All(logs.RunMatcher(runID), entityMatch)

			found, offset, err := logs.Tail(path, lines, match)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, line := range found {
				fmt.Fprintln(out, line)
			}
			if !follow {
				if len(found) == 0 {
					fmt.Fprintf(cmd.ErrOrStderr(), "No matching log lines in %s\n", path)
				}
				return nil
			}

			err = logs.Follow(cmd.Context(), path, offset, 500*time.Millisecond, match, func(line string) {
				fmt.Fprintln(out, line)
			})
			if errors.Is(err, cmd.Context().Err()) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of trailing lines to show (0 for all)")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new lines until interrupted")
	cmd.Flags().StringVar(&runID, "run", "", "Only lines from the run with this id or id prefix")
	cmd.Flags().StringVar(&entity, "entity", "", "Only lines about the entity with this RUT")
	return cmd
}
