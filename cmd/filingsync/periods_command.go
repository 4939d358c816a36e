package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"filingsync/internal/config"
	"filingsync/internal/logging"
	"filingsync/internal/periods"
	"filingsync/internal/registry"
)

type periodsJSON struct {
	Location string   `json:"location"`
	RUT      string   `json:"rut,omitempty"`
	Name     string   `json:"name,omitempty"`
	Periods  []string `json:"periods"`
	Missing  []string `json:"missing,omitempty"`
}

func newPeriodsCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	var showMissing bool

	cmd := &cobra.Command{
		Use:   "periods <rut|dir>",
		Short: "List the complete filing periods stored for an entity",
		Long: `List the complete filing periods stored for an entity.

The argument is either an entity RUT (with or without dots and verifier
digit) resolved against the data directory, or a path to a directory to
inspect directly.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			target, err := resolvePeriodsTarget(ctx, cfg, args[0])
			if err != nil {
				return err
			}

			logger, err := ctx.logger(true)
			if err != nil {
				return fmt.Errorf("create logger: %w", err)
			}
			resolver := periods.NewResolverFromConfig(cfg, logger)
			set, err := resolver.Discover(cmd.Context(), target.Location)
			if err != nil {
				return err
			}

			result := periodsJSON{
				Location: target.Location,
				RUT:      target.RUT,
				Name:     target.Name,
				Periods:  set.Strings(),
			}
			if result.Periods == nil {
				result.Periods = []string{}
			}
			if showMissing {
				from := periods.Period{Year: cfg.Periods.EarliestYear, Month: 1}
				to := periods.LatestPublishedQuarter(time.Now(), cfg.PublicationLag())
				for _, p := range periods.Missing(periods.QuarterRange(from, to), set) {
					result.Missing = append(result.Missing, p.String())
				}
			}
			logging.WithContext(cmd.Context(), logger).Debug("periods listed",
				logging.Location(target.Location),
				logging.Int("present", set.Len()),
			)

			if jsonOut {
				return writeJSON(cmd, result)
			}
			printPeriods(cmd, result, set, showMissing)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&showMissing, "missing", false, "Also list expected quarters that are not present")
	return cmd
}

type periodsTarget struct {
	Location string
	RUT      string
	Name     string
}

// resolvePeriodsTarget treats arg as a directory when it exists on disk and
// as a RUT otherwise.
func resolvePeriodsTarget(ctx *commandContext, cfg *config.Config, arg string) (periodsTarget, error) {
	arg = strings.TrimSpace(arg)
	if info, err := os.Stat(arg); err == nil && info.IsDir() {
		abs, err := filepath.Abs(arg)
		if err != nil {
			return periodsTarget{}, fmt.Errorf("resolve %s: %w", arg, err)
		}
		return periodsTarget{Location: abs}, nil
	} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return periodsTarget{}, fmt.Errorf("stat %s: %w", arg, err)
	}

	rut, err := registry.CanonicalRUT(arg)
	if err != nil {
		return periodsTarget{}, fmt.Errorf("%q is neither a directory nor a valid RUT: %w", arg, err)
	}
	target := periodsTarget{Location: cfg.EntityDir(rut), RUT: rut}
	if entries, err := ctx.registry(); err == nil {
		if entry, ok := registry.Find(entries, rut); ok {
			target.Name = entry.Name
		}
	}
	return target, nil
}

func printPeriods(cmd *cobra.Command, result periodsJSON, set periods.Set, showMissing bool) {
	out := cmd.OutOrStdout()
	if result.Name != "" {
		fmt.Fprintf(out, "Entity:   %s (%s)\n", result.Name, registry.FormatRUT(result.RUT))
	} else if result.RUT != "" {
		fmt.Fprintf(out, "Entity:   %s (not in registry)\n", registry.FormatRUT(result.RUT))
	}
	fmt.Fprintf(out, "Location: %s\n", result.Location)

	if set.Len() == 0 {
		fmt.Fprintln(out, "No complete periods found")
	} else {
		rows := make([][]string, 0, set.Len())
		for _, p := range set.Periods() {
			quarter := "-"
			if p.IsQuarterEnd() {
				quarter = fmt.Sprintf("%dQ%d", p.Year, p.Quarter())
			}
			rows = append(rows, []string{p.String(), quarter})
		}
		fmt.Fprintln(out, renderTable([]string{"Period", "Quarter"}, rows, []columnAlignment{alignLeft, alignLeft}))
		latest, _ := set.Latest()
		fmt.Fprintf(out, "%s present, latest %s\n", plural(set.Len(), "period", "periods"), latest)
	}

	if showMissing {
		if len(result.Missing) == 0 {
			fmt.Fprintln(out, "No expected quarters are missing")
			return
		}
		fmt.Fprintf(out, "Missing (%d): %s\n", len(result.Missing), strings.Join(result.Missing, ", "))
	}
}
