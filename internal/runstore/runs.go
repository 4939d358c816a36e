package runstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"filingsync/internal/tracker"
)

// ErrAmbiguousRunID is returned by FindRun when a prefix matches several runs.
var ErrAmbiguousRunID = errors.New("ambiguous run id")

const runColumns = "id, started_at, finished_at, dry_run, workers, entities_total, entities_done, entities_failed, files_downloaded, error_message"

const entityColumns = "run_id, position, rut, name, status, worker, files_downloaded, periods_missing, error_message, recorded_at"

// BeginRun inserts a new run row and returns it with a fresh UUID.
func (s *Store) BeginRun(ctx context.Context, opts RunOptions) (*Run, error) {
	run := &Run{
		ID:            uuid.NewString(),
		StartedAt:     time.Now().UTC(),
		DryRun:        opts.DryRun,
		Workers:       opts.Workers,
		EntitiesTotal: opts.Entities,
	}
	_, err := s.execWithRetry(
		ctx,
		`INSERT INTO runs (id, started_at, dry_run, workers, entities_total) VALUES (?, ?, ?, ?, ?)`,
		run.ID,
		run.StartedAt.Format(timeLayout),
		boolToInt(run.DryRun),
		run.Workers,
		run.EntitiesTotal,
	)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return run, nil
}

// RecordEntity stores the outcome for one entity. Recording the same RUT twice
// within a run replaces the earlier row.
func (s *Store) RecordEntity(ctx context.Context, result EntityResult) error {
	if result.RunID == "" {
		return errors.New("record entity: run id is required")
	}
	if result.RUT == "" {
		return errors.New("record entity: rut is required")
	}
	recorded := result.RecordedAt
	if recorded.IsZero() {
		recorded = time.Now().UTC()
	}
	_, err := s.execWithRetry(
		ctx,
		`INSERT INTO run_entities (`+entityColumns+`)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(run_id, rut) DO UPDATE SET
             position = excluded.position,
             name = excluded.name,
             status = excluded.status,
             worker = excluded.worker,
             files_downloaded = excluded.files_downloaded,
             periods_missing = excluded.periods_missing,
             error_message = excluded.error_message,
             recorded_at = excluded.recorded_at`,
		result.RunID,
		result.Position,
		result.RUT,
		result.Name,
		string(result.Status),
		nullableInt(result.Worker),
		result.FilesDownloaded,
		nullableString(strings.Join(result.MissingPeriods, ",")),
		nullableString(result.ErrorMessage),
		recorded.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("record entity %s: %w", result.RUT, err)
	}
	return nil
}

// FinishRun stamps the run as finished and rolls up its entity counts. runErr
// is the error that ended the run early, if any.
func (s *Store) FinishRun(ctx context.Context, runID string, runErr error) error {
	var message string
	if runErr != nil {
		message = runErr.Error()
	}
	res, err := s.execWithRetry(
		ctx,
		`UPDATE runs SET
             finished_at = ?,
             entities_done = (SELECT COUNT(1) FROM run_entities WHERE run_id = runs.id AND status = ?),
             entities_failed = (SELECT COUNT(1) FROM run_entities WHERE run_id = runs.id AND status = ?),
             files_downloaded = (SELECT COALESCE(SUM(files_downloaded), 0) FROM run_entities WHERE run_id = runs.id),
             error_message = ?
         WHERE id = ?`,
		time.Now().UTC().Format(timeLayout),
		string(tracker.StatusDone),
		string(tracker.StatusFailed),
		nullableString(message),
		runID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finish run %s: %w", runID, sql.ErrNoRows)
	}
	return nil
}

// GetRun fetches a run by its full identifier. It returns nil when absent.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// FindRun resolves a full identifier or a unique prefix (as printed by the
// history table) to a run. It returns nil when nothing matches.
func (s *Store) FindRun(ctx context.Context, idOrPrefix string) (*Run, error) {
	idOrPrefix = strings.TrimSpace(idOrPrefix)
	if idOrPrefix == "" {
		return nil, nil
	}
	rows, err := s.db.QueryContext(
		ensureContext(ctx),
		`SELECT `+runColumns+` FROM runs WHERE id = ? OR substr(id, 1, ?) = ? ORDER BY started_at DESC, rowid DESC LIMIT 2`,
		idOrPrefix, len(idOrPrefix), idOrPrefix,
	)
	if err != nil {
		return nil, fmt.Errorf("find run: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	switch len(runs) {
	case 0:
		return nil, nil
	case 1:
		return runs[0], nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrAmbiguousRunID, idOrPrefix)
	}
}

// ListRuns returns the most recent runs first. A limit <= 0 returns all runs.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// RunEntities returns the per-entity results of a run in registry order.
func (s *Store) RunEntities(ctx context.Context, runID string) ([]*EntityResult, error) {
	rows, err := s.db.QueryContext(
		ensureContext(ctx),
		`SELECT `+entityColumns+` FROM run_entities WHERE run_id = ? ORDER BY position, rut`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("list run entities: %w", err)
	}
	defer rows.Close()

	var results []*EntityResult
	for rows.Next() {
		result, err := scanEntity(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, rows.Err()
}

// Prune deletes all but the newest keep runs and their entity rows.
func (s *Store) Prune(ctx context.Context, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	res, err := s.execWithRetry(
		ctx,
		`DELETE FROM runs WHERE id NOT IN (SELECT id FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?)`,
		keep,
	)
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	return res.RowsAffected()
}
