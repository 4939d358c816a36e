package runstore

import (
	"time"

	"filingsync/internal/tracker"
)

// Run is one sync invocation.
type Run struct {
	ID              string     `json:"id"`
	StartedAt       time.Time  `json:"started_at"`
	FinishedAt      *time.Time `json:"finished_at,omitempty"`
	DryRun          bool       `json:"dry_run"`
	Workers         int        `json:"workers"`
	EntitiesTotal   int        `json:"entities_total"`
	EntitiesDone    int        `json:"entities_done"`
	EntitiesFailed  int        `json:"entities_failed"`
	FilesDownloaded int        `json:"files_downloaded"`
	ErrorMessage    string     `json:"error,omitempty"`
}

// Finished reports whether FinishRun has been recorded for the run.
func (r *Run) Finished() bool {
	return r != nil && r.FinishedAt != nil
}

// Duration returns the wall time of a finished run, or zero.
func (r *Run) Duration() time.Duration {
	if !r.Finished() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// ShortID returns the first eight characters of the run identifier.
func (r *Run) ShortID() string {
	if r == nil {
		return ""
	}
	if len(r.ID) > 8 {
		return r.ID[:8]
	}
	return r.ID
}

// RunOptions describes a run at the moment it begins.
type RunOptions struct {
	DryRun   bool
	Workers  int
	Entities int
}

// EntityResult is the outcome recorded for one entity within a run.
type EntityResult struct {
	RunID           string         `json:"run_id"`
	Position        int            `json:"position"`
	RUT             string         `json:"rut"`
	Name            string         `json:"name"`
	Status          tracker.Status `json:"status"`
	Worker          *int           `json:"worker,omitempty"`
	FilesDownloaded int            `json:"files_downloaded"`
	MissingPeriods  []string       `json:"missing_periods,omitempty"`
	ErrorMessage    string         `json:"error,omitempty"`
	RecordedAt      time.Time      `json:"recorded_at"`
}
