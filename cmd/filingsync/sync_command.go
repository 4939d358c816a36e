package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"filingsync/internal/config"
	"filingsync/internal/fetch"
	"filingsync/internal/logging"
	"filingsync/internal/periods"
	"filingsync/internal/preflight"
	"filingsync/internal/registry"
	"filingsync/internal/runstore"
	"filingsync/internal/syncer"
	"filingsync/internal/tracker"
)

const liveRefreshInterval = 250 * time.Millisecond

var errSyncLocked = errors.New("another filingsync sync is already running")

type syncFlags struct {
	dryRun  bool
	workers int
	from    string
	to      string
	json    bool
}

type syncEntityJSON struct {
	Name    string   `json:"name"`
	RUT     string   `json:"rut"`
	Status  string   `json:"status"`
	Worker  int      `json:"worker,omitempty"`
	Files   int      `json:"files"`
	Missing []string `json:"missing_periods,omitempty"`
	Error   string   `json:"error,omitempty"`
}

type plannedFetchJSON struct {
	RUT    string `json:"rut"`
	Period string `json:"period"`
	Dest   string `json:"dest"`
}

type syncJSON struct {
	RunID      string             `json:"run_id"`
	DryRun     bool               `json:"dry_run"`
	From       string             `json:"from"`
	To         string             `json:"to"`
	StartedAt  time.Time          `json:"started_at"`
	FinishedAt time.Time          `json:"finished_at"`
	Counts     map[string]int     `json:"counts"`
	Files      int                `json:"files_downloaded"`
	Entities   []syncEntityJSON   `json:"entities"`
	Planned    []plannedFetchJSON `json:"planned,omitempty"`
}

func newSyncCommand(ctx *commandContext) *cobra.Command {
	var flags syncFlags

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Fetch missing quarterly filings for every registered entity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd, ctx, flags)
		},
	}

	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "Report missing periods without fetching them")
	cmd.Flags().IntVarP(&flags.workers, "workers", "w", 0, "Number of concurrent workers (default from config)")
	cmd.Flags().StringVar(&flags.from, "from", "", "First period to expect, e.g. 2020Q1 or 2020-03")
	cmd.Flags().StringVar(&flags.to, "to", "", "Last period to expect (default: latest published quarter)")
	cmd.Flags().BoolVar(&flags.json, "json", false, "Output as JSON")
	return cmd
}

func runSync(cmd *cobra.Command, ctx *commandContext, flags syncFlags) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}

	opts := syncer.Options{Workers: cfg.Sync.Workers}
	if cmd.Flags().Changed("workers") {
		if flags.workers < 1 {
			return fmt.Errorf("--workers must be at least 1, got %d", flags.workers)
		}
		opts.Workers = flags.workers
	}
	if opts.From, err = parsePeriodFlag("from", flags.from); err != nil {
		return err
	}
	if opts.To, err = parsePeriodFlag("to", flags.to); err != nil {
		return err
	}
	if !opts.From.IsZero() && !opts.To.IsZero() && opts.To.Before(opts.From) {
		return fmt.Errorf("--to %s is before --from %s", opts.To, opts.From)
	}

	if err := preflight.Err(preflight.RunAll(cfg, flags.dryRun)); err != nil {
		return fmt.Errorf("preflight failed: %w", err)
	}
	entries, err := ctx.registry()
	if err != nil {
		return err
	}

	lock := flock.New(cfg.LockPath())
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire sync lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("%w (lock %s)", errSyncLocked, cfg.LockPath())
	}
	defer lock.Unlock()

	out := cmd.OutOrStdout()
	live := !flags.json && shouldColorize(out)
	logger, err := ctx.logger(!live)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}

	fetcher, plan, err := buildFetcher(cfg, flags.dryRun, logger)
	if err != nil {
		return err
	}

	store, err := runstore.Open(cfg)
	if err != nil {
		return fmt.Errorf("open run history: %w", err)
	}
	defer store.Close()

	runCtx := cmd.Context()
	if runCtx == nil {
		runCtx = context.Background()
	}
	run, err := store.BeginRun(runCtx, runstore.RunOptions{
		DryRun:   flags.dryRun,
		Workers:  opts.Workers,
		Entities: len(entries),
	})
	if err != nil {
		return fmt.Errorf("begin run: %w", err)
	}
	opts.RunID = run.ID

	trk := tracker.New()
	resolver := periods.NewResolverFromConfig(cfg, logger)
	s := syncer.New(cfg, trk, resolver, fetcher, logger, syncer.WithRecorder(store))

	var stopLive func()
	if live {
		stopLive = startLiveStatus(runCtx, out, trk, liveRefreshInterval, true)
	}
	report, runErr := s.Run(runCtx, registry.Entities(entries), opts)
	if stopLive != nil {
		stopLive()
	}

	if err := store.FinishRun(context.WithoutCancel(runCtx), run.ID, runErr); err != nil {
		logger.Warn("failed to finish run record", logging.String(logging.FieldRunID, run.ID), logging.Error(err))
	}
	if report == nil {
		return runErr
	}

	if flags.json {
		if err := writeJSON(cmd, syncReportJSON(report, flags.dryRun, plan)); err != nil {
			return err
		}
	} else {
		if !live {
			fmt.Fprintln(out, renderStatusTable(trk.Snapshot(), false))
		}
		printSyncSummary(out, report, flags.dryRun, plan, live)
	}

	if runErr != nil {
		return runErr
	}
	if failed := report.Failed(); len(failed) > 0 {
		return fmt.Errorf("%d of %d entities failed: %w", len(failed), len(report.Outcomes), report.Err())
	}
	return nil
}

func buildFetcher(cfg *config.Config, dryRun bool, logger *slog.Logger) (fetch.Fetcher, *fetch.Plan, error) {
	if dryRun {
		plan := fetch.NewPlan()
		return plan, plan, nil
	}
	if cfg.Sync.FetchCommand == "" {
		return nil, nil, errors.New("sync.fetch_command is not configured; set it in the config file or use --dry-run")
	}
	exec, err := fetch.NewExec(cfg.Sync.FetchCommand, cfg.FetchTimeout(), fetch.WithLogger(logger))
	if err != nil {
		return nil, nil, fmt.Errorf("configure fetcher: %w", err)
	}
	return exec, nil, nil
}

func parsePeriodFlag(name, value string) (periods.Period, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return periods.Period{}, nil
	}
	p, err := periods.Parse(value)
	if err != nil {
		return periods.Period{}, fmt.Errorf("--%s: %w", name, err)
	}
	return p, nil
}

func syncReportJSON(report *syncer.Report, dryRun bool, plan *fetch.Plan) syncJSON {
	out := syncJSON{
		RunID:      report.RunID,
		DryRun:     dryRun,
		From:       report.Range[0].String(),
		To:         report.Range[1].String(),
		StartedAt:  report.StartedAt.UTC(),
		FinishedAt: report.Finished.UTC(),
		Counts:     make(map[string]int),
		Files:      report.Files(),
		Entities:   make([]syncEntityJSON, 0, len(report.Outcomes)),
	}
	for status, n := range report.Counts() {
		out.Counts[string(status)] = n
	}
	for _, o := range report.Outcomes {
		entity := syncEntityJSON{
			Name:   o.Entity.Name,
			RUT:    o.Entity.ID,
			Status: string(o.Status),
			Worker: o.Worker,
			Files:  o.Files,
		}
		for _, p := range o.Missing {
			entity.Missing = append(entity.Missing, p.String())
		}
		if o.Err != nil {
			entity.Error = o.Err.Error()
		}
		out.Entities = append(out.Entities, entity)
	}
	if plan != nil {
		for _, req := range plan.Requests() {
			out.Planned = append(out.Planned, plannedFetchJSON{RUT: req.RUT, Period: req.Period.String(), Dest: req.Dest})
		}
	}
	return out
}

func printSyncSummary(out io.Writer, report *syncer.Report, dryRun bool, plan *fetch.Plan, colorize bool) {
	counts := report.Counts()
	total := len(report.Outcomes)
	fmt.Fprintf(out, "Run %s covered %s to %s in %s\n",
		shortRunID(report.RunID), report.Range[0], report.Range[1],
		formatElapsed(report.Finished.Sub(report.StartedAt)))

	if dryRun && plan != nil {
		fmt.Fprintln(out, renderStatusLine("Planned", statusInfo, plural(len(plan.Requests()), "fetch", "fetches")+" (dry run)", colorize))
	} else {
		fmt.Fprintln(out, renderStatusLine("Downloaded", statusInfo, plural(report.Files(), "file", "files"), colorize))
	}
	fmt.Fprintln(out, renderStatusLine("Done", statusOK, fmt.Sprintf("%d/%d", counts[tracker.StatusDone], total), colorize))
	if n := counts[tracker.StatusQueued]; n > 0 {
		fmt.Fprintln(out, renderStatusLine("Skipped", statusWarn, fmt.Sprintf("%d not started", n), colorize))
	}
	for _, o := range report.Failed() {
		fmt.Fprintln(out, renderStatusLine("Failed", statusError, fmt.Sprintf("%s (%s): %v", o.Entity.Name, registry.FormatRUT(o.Entity.ID), o.Err), colorize))
	}
}

func shortRunID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
