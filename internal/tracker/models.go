package tracker

import "strings"

// Status represents the lifecycle of one entity within a run.
type Status string

const (
	StatusQueued  Status = "queued"
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
)

var allStatuses = []Status{
	StatusQueued,
	StatusRunning,
	StatusDone,
	StatusFailed,
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	return append([]Status(nil), allStatuses...)
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	for _, status := range allStatuses {
		if status == normalized {
			return status, true
		}
	}
	return "", false
}

// IsTerminal reports whether no further transitions are expected.
func (s Status) IsTerminal() bool {
	return s == StatusDone || s == StatusFailed
}

// Entity is the registry descriptor a record is created from.
type Entity struct {
	Name string
	ID   string
}

// Record is the tracked state for a single entity.
type Record struct {
	Name            string
	ID              string
	Status          Status
	Worker          *int
	FilesDownloaded int
}

// HasWorker reports whether a worker has been assigned.
func (r Record) HasWorker() bool { return r.Worker != nil }

func (r Record) clone() Record {
	if r.Worker != nil {
		w := *r.Worker
		r.Worker = &w
	}
	return r
}

// Update is a partial record update. Nil fields keep their current value.
type Update struct {
	Status          *Status
	Worker          *int
	FilesDownloaded *int
}

// SetStatus returns an Update that only changes the status.
func SetStatus(status Status) Update {
	return Update{Status: &status}
}

// WithStatus returns a copy of u that also sets the status.
func (u Update) WithStatus(status Status) Update {
	u.Status = &status
	return u
}

// WithWorker returns a copy of u that also sets the worker.
func (u Update) WithWorker(worker int) Update {
	u.Worker = &worker
	return u
}

// WithFiles returns a copy of u that also sets the downloaded file count.
func (u Update) WithFiles(count int) Update {
	u.FilesDownloaded = &count
	return u
}
