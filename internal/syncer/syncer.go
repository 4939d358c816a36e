package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"filingsync/internal/config"
	"filingsync/internal/fetch"
	"filingsync/internal/logging"
	"filingsync/internal/periods"
	"filingsync/internal/runstore"
	"filingsync/internal/tracker"
)

// Discoverer reports the complete periods present at a location.
type Discoverer interface {
	Discover(ctx context.Context, location string) (periods.Set, error)
}

// Recorder persists entity outcomes; *runstore.Store satisfies it.
type Recorder interface {
	RecordEntity(ctx context.Context, result runstore.EntityResult) error
}

// Options bound a single run.
type Options struct {
	// Workers is the pool size; values below one use one worker.
	Workers int
	// From and To bound the quarter-end periods a run expects. A zero From
	// starts at January of the configured earliest year; a zero To ends at
	// the latest published quarter.
	From periods.Period
	To   periods.Period
	// RunID tags log lines and recorded results.
	RunID string
}

// Option configures a Syncer.
type Option func(*Syncer)

// WithRecorder persists each entity outcome as it completes.
func WithRecorder(recorder Recorder) Option {
	return func(s *Syncer) {
		s.recorder = recorder
	}
}

// WithClock overrides the clock used to pick the default period range.
func WithClock(now func() time.Time) Option {
	return func(s *Syncer) {
		if now != nil {
			s.now = now
		}
	}
}

// Syncer runs entities through discovery and fetching.
type Syncer struct {
	tracker      *tracker.Tracker
	resolver     Discoverer
	fetcher      fetch.Fetcher
	recorder     Recorder
	locate       func(rut string) string
	earliestYear int
	lag          time.Duration
	now          func() time.Time
	logger       *slog.Logger
}

// New builds a Syncer that stores entity data under cfg's data directory.
func New(cfg *config.Config, trk *tracker.Tracker, resolver Discoverer, fetcher fetch.Fetcher, logger *slog.Logger, opts ...Option) *Syncer {
	s := &Syncer{
		tracker:      trk,
		resolver:     resolver,
		fetcher:      fetcher,
		locate:       cfg.EntityDir,
		earliestYear: cfg.Periods.EarliestYear,
		lag:          cfg.PublicationLag(),
		now:          time.Now,
		logger:       logging.NewComponentLogger(logger, "syncer"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Range resolves the quarter-end periods a run with opts expects.
func (s *Syncer) Range(opts Options) (periods.Period, periods.Period) {
	from, to := opts.From, opts.To
	if from.IsZero() {
		from = periods.Period{Year: s.earliestYear, Month: 1}
	}
	if to.IsZero() {
		to = periods.LatestPublishedQuarter(s.now(), s.lag)
	}
	return from, to
}

type job struct {
	position int
	entity   tracker.Entity
}

// Run loads entities into the tracker and processes them with a worker pool.
// It returns once every picked-up entity reaches a terminal status. The error
// is non-nil only when the tracker rejects the entity list or ctx ends the
// run early; per-entity failures are reported in the Report.
func (s *Syncer) Run(ctx context.Context, entities []tracker.Entity, opts Options) (*Report, error) {
	if err := s.tracker.Load(entities); err != nil {
		return nil, fmt.Errorf("load tracker: %w", err)
	}

	from, to := s.Range(opts)
	candidates := periods.QuarterRange(from, to)
	report := &Report{
		RunID:     opts.RunID,
		StartedAt: s.now(),
		Range:     [2]periods.Period{from, to},
		Outcomes:  make([]Outcome, len(entities)),
	}
	for i, entity := range entities {
		report.Outcomes[i] = Outcome{Entity: entity, Status: tracker.StatusQueued}
	}

	if opts.RunID != "" {
		ctx = logging.WithRunID(ctx, opts.RunID)
	}
	logger := logging.WithContext(ctx, s.logger)

	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(entities) {
		workers = len(entities)
	}
	logger.Info("sync run starting",
		logging.Int("entities", len(entities)),
		logging.Int("workers", workers),
		logging.String("from", from.String()),
		logging.String("to", to.String()),
		logging.Int("expected_periods", len(candidates)),
	)

	jobs := make(chan job)
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 1; w <= workers; w++ {
		go func(worker int) {
			defer wg.Done()
			for j := range jobs {
				if ctx.Err() != nil {
					continue
				}
				report.Outcomes[j.position] = s.process(ctx, worker, j, candidates)
			}
		}(w)
	}

	var runErr error
dispatch:
	for i, entity := range entities {
		select {
		case <-ctx.Done():
			runErr = ctx.Err()
			break dispatch
		case jobs <- job{position: i, entity: entity}:
		}
	}
	close(jobs)
	wg.Wait()

	if runErr == nil {
		runErr = ctx.Err()
	}
	report.Finished = s.now()
	counts := report.Counts()
	logger.Info("sync run finished",
		logging.Int("done", counts[tracker.StatusDone]),
		logging.Int("failed", counts[tracker.StatusFailed]),
		logging.Int("queued", counts[tracker.StatusQueued]),
		logging.Int("files", report.Files()),
		logging.Duration("elapsed", report.Finished.Sub(report.StartedAt)),
	)
	return report, runErr
}

func (s *Syncer) process(ctx context.Context, worker int, j job, candidates []periods.Period) Outcome {
	entity := j.entity
	outcome := Outcome{Entity: entity, Status: tracker.StatusRunning, Worker: worker}

	ctx = logging.WithEntity(logging.WithWorker(ctx, worker), entity.ID)
	logger := logging.WithContext(ctx, s.logger)

	s.tracker.Update(entity.ID, tracker.SetStatus(tracker.StatusRunning).WithWorker(worker).WithFiles(0))
	s.record(ctx, logger, j.position, outcome)

	location := s.locate(entity.ID)
	existing, err := s.resolver.Discover(ctx, location)
	if err != nil {
		return s.fail(ctx, logger, j.position, outcome, fmt.Errorf("discover periods: %w", err))
	}

	outcome.Missing = periods.Missing(candidates, existing)
	logger.Debug("periods resolved",
		logging.Int("present", existing.Len()),
		logging.Int("missing", len(outcome.Missing)),
	)

	for _, period := range outcome.Missing {
		if err := ctx.Err(); err != nil {
			return s.fail(ctx, logger, j.position, outcome, err)
		}
		res, err := s.fetcher.Fetch(ctx, fetch.Request{
			RUT:    entity.ID,
			Name:   entity.Name,
			Period: period,
			Dest:   filepath.Join(location, period.String()),
		})
		if err != nil {
			return s.fail(ctx, logger, j.position, outcome, fmt.Errorf("fetch %s: %w", period, err))
		}
		outcome.Files += res.Files
		s.tracker.Update(entity.ID, tracker.Update{}.WithFiles(outcome.Files))
		logger.Debug("period fetched",
			logging.Period(period),
			logging.Int("files", res.Files),
		)
	}

	// A tracker cleared or reloaded mid-run no longer owns this entity.
	if rec, err := s.tracker.Get(entity.ID); err == nil && rec.Status == tracker.StatusRunning {
		s.tracker.Update(entity.ID, tracker.SetStatus(tracker.StatusDone))
	}
	outcome.Status = tracker.StatusDone
	logger.Info("entity synced",
		logging.Int("files", outcome.Files),
		logging.Int("fetched_periods", len(outcome.Missing)),
	)
	s.record(ctx, logger, j.position, outcome)
	return outcome
}

func (s *Syncer) fail(ctx context.Context, logger *slog.Logger, position int, outcome Outcome, err error) Outcome {
	outcome.Status = tracker.StatusFailed
	outcome.Err = err
	s.tracker.Update(outcome.Entity.ID, tracker.SetStatus(tracker.StatusFailed))

	attrs := []logging.Attr{logging.Error(err)}
	if errors.Is(err, periods.ErrLocationUnavailable) {
		attrs = append(attrs, logging.String("hint", "check permissions on the entity data directory"))
	}
	if errors.Is(err, context.Canceled) {
		logger.Warn("entity interrupted", logging.Args(attrs...)...)
	} else {
		logger.Error("entity failed", logging.Args(attrs...)...)
	}
	s.record(ctx, logger, position, outcome)
	return outcome
}

func (s *Syncer) record(ctx context.Context, logger *slog.Logger, position int, outcome Outcome) {
	if s.recorder == nil {
		return
	}
	worker := outcome.Worker
	result := runstore.EntityResult{
		RunID:           logging.RunIDFromContext(ctx),
		Position:        position,
		RUT:             outcome.Entity.ID,
		Name:            outcome.Entity.Name,
		Status:          outcome.Status,
		Worker:          &worker,
		FilesDownloaded: outcome.Files,
	}
	for _, p := range outcome.Missing {
		result.MissingPeriods = append(result.MissingPeriods, p.String())
	}
	if outcome.Err != nil {
		result.ErrorMessage = outcome.Err.Error()
	}
	if result.RunID == "" {
		return
	}
	// Outcomes are persisted even after ctx is cancelled.
	if err := s.recorder.RecordEntity(context.WithoutCancel(ctx), result); err != nil {
		logger.Warn("failed to record entity outcome", logging.Error(err))
	}
}
