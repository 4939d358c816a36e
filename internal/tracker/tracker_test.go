package tracker_test

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"

	"filingsync/internal/tracker"
)

func TestLoadSnapshotPreservesOrderAndQueues(t *testing.T) {
	tr := tracker.New()
	entities := []tracker.Entity{
		{Name: "CAP SA", ID: "91297000"},
		{Name: "ENEL CHILE SA", ID: "76536353"},
		{Name: "FALABELLA SA", ID: "90749000"},
	}
	if err := tr.Load(entities); err != nil {
		t.Fatalf("Load: %v", err)
	}

	snap := tr.Snapshot()
	if len(snap) != len(entities) {
		t.Fatalf("expected %d records, got %d", len(entities), len(snap))
	}
	for i, rec := range snap {
		if rec.ID != entities[i].ID || rec.Name != entities[i].Name {
			t.Fatalf("record %d = %+v, want %+v", i, rec, entities[i])
		}
		if rec.Status != tracker.StatusQueued {
			t.Fatalf("record %d status = %s, want queued", i, rec.Status)
		}
		if rec.HasWorker() || rec.FilesDownloaded != 0 {
			t.Fatalf("record %d should start unassigned with zero files: %+v", i, rec)
		}
	}
}

func TestPartialUpdatesPreserveUntouchedFields(t *testing.T) {
	tr := tracker.New()
	if err := tr.Load([]tracker.Entity{{Name: "CAP SA", ID: "91297000"}}); err != nil {
		t.Fatalf("Load: %v", err)
	}

	want := tracker.Record{Name: "CAP SA", ID: "91297000", Status: tracker.StatusQueued}
	if got := tr.Snapshot(); !reflect.DeepEqual(got, []tracker.Record{want}) {
		t.Fatalf("initial snapshot = %+v", got)
	}

	if !tr.Update("91297000", tracker.SetStatus(tracker.StatusRunning).WithWorker(1)) {
		t.Fatal("expected update to apply")
	}
	rec, err := tr.Get("91297000")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.Status != tracker.StatusRunning || rec.Worker == nil || *rec.Worker != 1 || rec.FilesDownloaded != 0 {
		t.Fatalf("after running update: %+v", rec)
	}

	tr.Update("91297000", tracker.Update{}.WithFiles(4))
	rec, _ = tr.Get("91297000")
	if rec.FilesDownloaded != 4 {
		t.Fatalf("files = %d, want 4", rec.FilesDownloaded)
	}
	if rec.Status != tracker.StatusRunning || *rec.Worker != 1 {
		t.Fatalf("files update changed other fields: %+v", rec)
	}
}

func TestLoadDuplicateKeepsPreviousState(t *testing.T) {
	tr := tracker.New()
	if err := tr.Load([]tracker.Entity{{Name: "CAP SA", ID: "91297000"}}); err != nil {
		t.Fatalf("Load: %v", err)
	}
	tr.Update("91297000", tracker.SetStatus(tracker.StatusDone))
	before := tr.Snapshot()

	err := tr.Load([]tracker.Entity{
		{Name: "A", ID: "1"},
		{Name: "B", ID: "2"},
		{Name: "A again", ID: "1"},
	})
	if !errors.Is(err, tracker.ErrDuplicateKey) {
		t.Fatalf("expected ErrDuplicateKey, got %v", err)
	}
	var dup *tracker.DuplicateKeyError
	if !errors.As(err, &dup) {
		t.Fatalf("expected *DuplicateKeyError, got %T", err)
	}
	if dup.ID != "1" || dup.First != 0 || dup.Second != 2 {
		t.Fatalf("unexpected duplicate details: %+v", dup)
	}
	if after := tr.Snapshot(); !reflect.DeepEqual(before, after) {
		t.Fatalf("failed load mutated state: before %+v after %+v", before, after)
	}
}

func TestUpdateUnknownIDIsNoop(t *testing.T) {
	tr := tracker.New()
	if err := tr.Load([]tracker.Entity{{Name: "CAP SA", ID: "91297000"}}); err != nil {
		t.Fatalf("Load: %v", err)
	}
	before := tr.Snapshot()

	if tr.Update("99999999", tracker.SetStatus(tracker.StatusFailed).WithFiles(9)) {
		t.Fatal("expected update on unknown id to report false")
	}
	if after := tr.Snapshot(); !reflect.DeepEqual(before, after) {
		t.Fatalf("unknown update changed snapshot: %+v", after)
	}
}

func TestUpdateAfterClearIsDropped(t *testing.T) {
	tr := tracker.New()
	if err := tr.Load([]tracker.Entity{{Name: "CAP SA", ID: "91297000"}}); err != nil {
		t.Fatalf("Load: %v", err)
	}
	tr.Clear()
	tr.Update("91297000", tracker.SetStatus(tracker.StatusDone))
	if tr.Len() != 0 {
		t.Fatalf("expected empty tracker after clear, got %d", tr.Len())
	}
	if _, err := tr.Get("91297000"); !errors.Is(err, tracker.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after clear, got %v", err)
	}
}

func TestGetUnknownReturnsNotFound(t *testing.T) {
	var tr tracker.Tracker
	_, err := tr.Get("123")
	if !errors.Is(err, tracker.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	var nf *tracker.NotFoundError
	if !errors.As(err, &nf) || nf.ID != "123" {
		t.Fatalf("expected NotFoundError for 123, got %v", err)
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	tr := tracker.New()
	if err := tr.Load([]tracker.Entity{{Name: "CAP SA", ID: "91297000"}}); err != nil {
		t.Fatalf("Load: %v", err)
	}
	tr.Update("91297000", tracker.Update{}.WithWorker(2))

	snap := tr.Snapshot()
	snap[0].Status = tracker.StatusFailed
	*snap[0].Worker = 7

	rec, _ := tr.Get("91297000")
	if rec.Status != tracker.StatusQueued || *rec.Worker != 2 {
		t.Fatalf("mutating snapshot leaked into tracker: %+v", rec)
	}
}

func TestNegativeFileCountIgnored(t *testing.T) {
	tr := tracker.New()
	if err := tr.Load([]tracker.Entity{{Name: "CAP SA", ID: "91297000"}}); err != nil {
		t.Fatalf("Load: %v", err)
	}
	tr.Update("91297000", tracker.Update{}.WithFiles(3))
	tr.Update("91297000", tracker.Update{}.WithFiles(-1))
	rec, _ := tr.Get("91297000")
	if rec.FilesDownloaded != 3 {
		t.Fatalf("files = %d, want 3", rec.FilesDownloaded)
	}
}

func TestCountsAndFinished(t *testing.T) {
	tr := tracker.New()
	if err := tr.Load([]tracker.Entity{{ID: "1"}, {ID: "2"}, {ID: "3"}}); err != nil {
		t.Fatalf("Load: %v", err)
	}
	tr.Update("1", tracker.SetStatus(tracker.StatusDone))
	tr.Update("2", tracker.SetStatus(tracker.StatusFailed))

	counts := tr.Counts()
	if counts[tracker.StatusQueued] != 1 || counts[tracker.StatusDone] != 1 || counts[tracker.StatusFailed] != 1 || counts[tracker.StatusRunning] != 0 {
		t.Fatalf("unexpected counts %+v", counts)
	}
	if tr.Finished() {
		t.Fatal("expected unfinished while one entity is queued")
	}
	tr.Update("3", tracker.SetStatus(tracker.StatusDone))
	if !tr.Finished() {
		t.Fatal("expected finished once all records are terminal")
	}
}

func TestParseStatus(t *testing.T) {
	cases := map[string]tracker.Status{
		"queued":    tracker.StatusQueued,
		" Running ": tracker.StatusRunning,
		"DONE":      tracker.StatusDone,
		"failed":    tracker.StatusFailed,
	}
	for input, want := range cases {
		got, ok := tracker.ParseStatus(input)
		if !ok || got != want {
			t.Fatalf("ParseStatus(%q) = %q, %v", input, got, ok)
		}
	}
	if _, ok := tracker.ParseStatus("stalled"); ok {
		t.Fatal("expected unknown status to fail parsing")
	}
}

func TestConcurrentUpdatesPerEntity(t *testing.T) {
	tr := tracker.New()
	const entities = 16
	const steps = 200
	list := make([]tracker.Entity, entities)
	for i := range list {
		list[i] = tracker.Entity{Name: fmt.Sprintf("Entity %d", i), ID: fmt.Sprintf("%08d", i)}
	}
	if err := tr.Load(list); err != nil {
		t.Fatalf("Load: %v", err)
	}

	var wg sync.WaitGroup
	for i, entity := range list {
		wg.Add(1)
		go func(worker int, id string) {
			defer wg.Done()
			tr.Update(id, tracker.SetStatus(tracker.StatusRunning).WithWorker(worker))
			for n := 1; n <= steps; n++ {
				tr.Update(id, tracker.Update{}.WithFiles(n))
				_ = tr.Snapshot()
			}
			tr.Update(id, tracker.SetStatus(tracker.StatusDone))
		}(i, entity.ID)
	}
	wg.Wait()

	for i, rec := range tr.Snapshot() {
		if rec.Status != tracker.StatusDone || rec.FilesDownloaded != steps || *rec.Worker != i {
			t.Fatalf("record %d ended in unexpected state: %+v", i, rec)
		}
	}
}
