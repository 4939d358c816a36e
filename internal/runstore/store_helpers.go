package runstore

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"filingsync/internal/tracker"
)

type scanner interface{ Scan(dest ...any) error }

func scanRun(row scanner) (*Run, error) {
	var (
		run         Run
		startedRaw  string
		finishedRaw sql.NullString
		dryRun      int64
		errorMsg    sql.NullString
	)
	if err := row.Scan(
		&run.ID,
		&startedRaw,
		&finishedRaw,
		&dryRun,
		&run.Workers,
		&run.EntitiesTotal,
		&run.EntitiesDone,
		&run.EntitiesFailed,
		&run.FilesDownloaded,
		&errorMsg,
	); err != nil {
		return nil, err
	}
	run.DryRun = dryRun != 0
	run.ErrorMessage = errorMsg.String
	if started, err := parseTimeString(startedRaw); err == nil {
		run.StartedAt = started
	}
	if finishedRaw.Valid {
		if finished, err := parseTimeString(finishedRaw.String); err == nil {
			run.FinishedAt = &finished
		}
	}
	return &run, nil
}

func scanEntity(row scanner) (*EntityResult, error) {
	var (
		result      EntityResult
		status      string
		worker      sql.NullInt64
		missing     sql.NullString
		errorMsg    sql.NullString
		recordedRaw string
	)
	if err := row.Scan(
		&result.RunID,
		&result.Position,
		&result.RUT,
		&result.Name,
		&status,
		&worker,
		&result.FilesDownloaded,
		&missing,
		&errorMsg,
		&recordedRaw,
	); err != nil {
		return nil, err
	}
	result.Status = tracker.Status(status)
	if worker.Valid {
		w := int(worker.Int64)
		result.Worker = &w
	}
	if missing.Valid && missing.String != "" {
		result.MissingPeriods = strings.Split(missing.String, ",")
	}
	result.ErrorMessage = errorMsg.String
	if recorded, err := parseTimeString(recordedRaw); err == nil {
		result.RecordedAt = recorded
	}
	return &result, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableInt(value *int) any {
	if value == nil {
		return nil
	}
	return *value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

// timeLayout is RFC 3339 with a fixed-width fraction so stored timestamps sort
// lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}
