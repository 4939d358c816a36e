// Package fetch retrieves missing filing periods.
//
// Exec runs the configured external downloader once per (entity, period),
// substituting {rut}, {period}, {name} and {dest} into its argument template.
// While the command runs the destination holds a PENDING marker so period
// discovery never counts a half-written download. Plan is the dry-run
// counterpart that only records what would be fetched.
package fetch
