package tracker

import (
	"strings"
	"sync"
)

// Tracker stores one Record per entity in load order with O(1) lookup by id.
// The zero value is ready to use.
type Tracker struct {
	mu      sync.RWMutex
	records []Record
	index   map[string]int
}

// New returns an empty tracker.
func New() *Tracker {
	return &Tracker{}
}

// Load replaces all records with one queued record per entity, in order.
// A repeated id fails with a *DuplicateKeyError and the previous state is kept.
func (t *Tracker) Load(entities []Entity) error {
	records := make([]Record, 0, len(entities))
	index := make(map[string]int, len(entities))
	for i, entity := range entities {
		if first, exists := index[entity.ID]; exists {
			return &DuplicateKeyError{ID: entity.ID, First: first, Second: i}
		}
		index[entity.ID] = i
		records = append(records, Record{
			Name:   strings.TrimSpace(entity.Name),
			ID:     entity.ID,
			Status: StatusQueued,
		})
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.records = records
	t.index = index
	return nil
}

// Clear drops every record.
func (t *Tracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.records = nil
	t.index = nil
}

// Update applies a partial update to the record for id and reports whether a
// record was found. Unknown ids are ignored.
func (t *Tracker) Update(id string, u Update) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	pos, ok := t.index[id]
	if !ok {
		return false
	}
	rec := &t.records[pos]
	if u.Status != nil {
		rec.Status = *u.Status
	}
	if u.Worker != nil {
		w := *u.Worker
		rec.Worker = &w
	}
	if u.FilesDownloaded != nil && *u.FilesDownloaded >= 0 {
		rec.FilesDownloaded = *u.FilesDownloaded
	}
	return true
}

// Get returns a copy of the record for id.
func (t *Tracker) Get(id string) (Record, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	pos, ok := t.index[id]
	if !ok {
		return Record{}, &NotFoundError{ID: id}
	}
	return t.records[pos].clone(), nil
}

// Snapshot returns a copy of every record in load order.
func (t *Tracker) Snapshot() []Record {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Record, len(t.records))
	for i, rec := range t.records {
		out[i] = rec.clone()
	}
	return out
}

// Len returns the number of tracked entities.
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.records)
}

// Counts returns the number of records per status. Every known status is
// present in the result, including those with a zero count.
func (t *Tracker) Counts() map[Status]int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	counts := make(map[Status]int, len(allStatuses))
	for _, status := range allStatuses {
		counts[status] = 0
	}
	for _, rec := range t.records {
		counts[rec.Status]++
	}
	return counts
}

// Finished reports whether every record has reached a terminal status.
func (t *Tracker) Finished() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, rec := range t.records {
		if !rec.Status.IsTerminal() {
			return false
		}
	}
	return true
}
