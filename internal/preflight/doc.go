// Package preflight provides readiness checks for the paths and external
// fetch command that filingsync depends on.
//
// These checks run in two contexts:
//   - The sync command calls RunAll before loading the tracker and refuses
//     to start when a required check fails.
//   - The CLI "config validate" command renders every result so problems can
//     be fixed before the first run.
package preflight
