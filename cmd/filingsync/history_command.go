package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"filingsync/internal/registry"
	"filingsync/internal/runstore"
)

type runDetailJSON struct {
	Run      *runstore.Run            `json:"run"`
	Entities []*runstore.EntityResult `json:"entities"`
}

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	var limit int
	var prune int

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show recorded sync runs, or the entities of one run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := runstore.Open(cfg)
			if err != nil {
				return fmt.Errorf("open run history: %w", err)
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			if cmd.Flags().Changed("prune") {
				if prune < 0 {
					return fmt.Errorf("--prune must be >= 0, got %d", prune)
				}
				removed, err := store.Prune(cmd.Context(), prune)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Pruned %s, kept the latest %d\n", plural(int(removed), "run", "runs"), prune)
				return nil
			}

			if len(args) == 1 {
				run, err := store.FindRun(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if run == nil {
					return fmt.Errorf("run %s not found", args[0])
				}
				entities, err := store.RunEntities(cmd.Context(), run.ID)
				if err != nil {
					return err
				}
				if jsonOut {
					if entities == nil {
						entities = []*runstore.EntityResult{}
					}
					return writeJSON(cmd, runDetailJSON{Run: run, Entities: entities})
				}
				printRunDetail(cmd, run, entities)
				return nil
			}

			runs, err := store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if jsonOut {
				if runs == nil {
					runs = []*runstore.Run{}
				}
				return writeJSON(cmd, runs)
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}
			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				rows = append(rows, []string{
					run.ShortID(),
					formatTimestamp(run.StartedAt),
					runState(run),
					fmt.Sprintf("%d/%d", run.EntitiesDone, run.EntitiesTotal),
					strconv.Itoa(run.EntitiesFailed),
					strconv.Itoa(run.FilesDownloaded),
					formatElapsed(run.Duration()),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Run", "Started", "State", "Done", "Failed", "Files", "Elapsed"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight},
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to list (0 for all)")
	cmd.Flags().IntVar(&prune, "prune", 0, "Delete all but the latest N runs")
	return cmd
}

func runState(run *runstore.Run) string {
	var state string
	switch {
	case !run.Finished():
		state = "incomplete"
	case run.ErrorMessage != "":
		state = "interrupted"
	case run.EntitiesFailed > 0:
		state = "failures"
	default:
		state = "ok"
	}
	if run.DryRun {
		state += " (dry run)"
	}
	return state
}

func printRunDetail(cmd *cobra.Command, run *runstore.Run, entities []*runstore.EntityResult) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run:      %s\n", run.ID)
	fmt.Fprintf(out, "Started:  %s\n", formatTimestamp(run.StartedAt))
	if run.Finished() {
		fmt.Fprintf(out, "Finished: %s (%s)\n", formatTimestamp(*run.FinishedAt), formatElapsed(run.Duration()))
	}
	fmt.Fprintf(out, "State:    %s\n", runState(run))
	fmt.Fprintf(out, "Workers:  %d   Dry run: %s\n", run.Workers, yesNo(run.DryRun))
	if run.ErrorMessage != "" {
		fmt.Fprintf(out, "Error:    %s\n", run.ErrorMessage)
	}

	if len(entities) == 0 {
		fmt.Fprintln(out, "No entity results recorded")
		return
	}
	rows := make([][]string, 0, len(entities))
	for _, e := range entities {
		worker := "-"
		if e.Worker != nil {
			worker = strconv.Itoa(*e.Worker)
		}
		rows = append(rows, []string{
			e.Name,
			registry.FormatRUT(e.RUT),
			string(e.Status),
			worker,
			strconv.Itoa(e.FilesDownloaded),
			dashIfEmpty(strings.Join(e.MissingPeriods, " ")),
			dashIfEmpty(e.ErrorMessage),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Name", "RUT", "Status", "Worker", "Files", "Missing", "Error"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignLeft, alignRight, alignRight, alignLeft, alignLeft},
	))
}
