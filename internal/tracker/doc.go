// Package tracker keeps the per-entity status table for a sync run.
//
// A Tracker holds one Record per entity RUT, created in bulk by Load and
// mutated in place by partial Updates from sync workers. Presentation code
// polls Snapshot instead of receiving callbacks, so the tracker owns state and
// never touches I/O or rendering.
//
// Updates for unknown RUTs are dropped on purpose: a worker that raced past a
// Clear must not resurrect a record or fail. Load and Clear take the write side
// of the tracker lock, so they wait for in-flight Update and Get calls.
package tracker
