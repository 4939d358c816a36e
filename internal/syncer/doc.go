// Package syncer drives a sync run: it loads the tracker with the registry's
// entities, then a fixed pool of workers takes entities in order, discovers
// the periods already on disk, fetches the missing quarter-end periods, and
// reports status, worker and file counts back into the tracker after each
// step.
//
// Entity lifecycle within a run is queued → running → done or failed. An
// entity whose location cannot be read is failed rather than refetched from
// scratch. Entities never picked up before cancellation stay queued.
package syncer
