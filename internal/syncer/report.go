package syncer

import (
	"errors"
	"fmt"
	"time"

	"filingsync/internal/periods"
	"filingsync/internal/tracker"
)

// Outcome is the result for one entity.
type Outcome struct {
	Entity  tracker.Entity
	Status  tracker.Status
	Worker  int
	Files   int
	Missing []periods.Period
	Err     error
}

// Report summarises a finished run in registry order.
type Report struct {
	RunID     string
	StartedAt time.Time
	Finished  time.Time
	Range     [2]periods.Period
	Outcomes  []Outcome
}

// Failed returns the outcomes that ended in failure.
func (r *Report) Failed() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if o.Status == tracker.StatusFailed {
			out = append(out, o)
		}
	}
	return out
}

// Files returns the total number of files fetched during the run.
func (r *Report) Files() int {
	total := 0
	for _, o := range r.Outcomes {
		total += o.Files
	}
	return total
}

// Counts returns the number of outcomes per status.
func (r *Report) Counts() map[tracker.Status]int {
	counts := make(map[tracker.Status]int)
	for _, status := range tracker.AllStatuses() {
		counts[status] = 0
	}
	for _, o := range r.Outcomes {
		counts[o.Status]++
	}
	return counts
}

// Err joins every entity failure, or returns nil when all succeeded.
func (r *Report) Err() error {
	var errs []error
	for _, o := range r.Failed() {
		errs = append(errs, fmt.Errorf("%s (%s): %w", o.Entity.Name, o.Entity.ID, o.Err))
	}
	return errors.Join(errs...)
}
