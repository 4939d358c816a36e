// Package runstore records sync run history in SQLite.
//
// Each sync run gets a UUID and a row in runs; every entity processed during
// the run gets a row in run_entities with its final status, file count, and
// any error text. The CLI reads this back for the history command.
//
// Schema changes bump schemaVersion in schema.go. Older databases are rejected
// with ErrSchemaMismatch; delete history.db to adopt the new schema.
package runstore
