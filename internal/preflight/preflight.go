package preflight

import (
	"errors"
	"fmt"

	"filingsync/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name    string
	Passed  bool
	Skipped bool
	Detail  string
}

// RunAll executes the checks that apply to cfg. With dryRun set the fetch
// command is not required.
func RunAll(cfg *config.Config, dryRun bool) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckRegistry(cfg.Paths.RegistryFile),
	}

	fetchCheck := CheckFetchCommand(cfg.Sync.FetchCommand)
	if dryRun && !fetchCheck.Passed {
		fetchCheck.Passed = true
		fetchCheck.Skipped = true
	}
	results = append(results, fetchCheck)
	return results
}

// Err joins the failed results into one error, or returns nil.
func Err(results []Result) error {
	var errs []error
	for _, r := range results {
		if !r.Passed {
			errs = append(errs, fmt.Errorf("%s: %s", r.Name, r.Detail))
		}
	}
	return errors.Join(errs...)
}
