// Package main implements the filingsync command-line interface.
//
// The CLI loads configuration and the entity registry, runs sync passes that
// fetch missing quarterly filings, and inspects what is already on disk and
// what earlier runs recorded in the history database. Output is rendered as
// tables for terminals or as JSON for scripting.
package main
