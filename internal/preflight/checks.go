package preflight

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"strings"

	"golang.org/x/sys/unix"

	"filingsync/internal/registry"
)

// CheckDirectoryAccess verifies path is a directory the process can list,
// create entries in, and traverse.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckRegistry verifies the registry parses and lists at least one entity.
func CheckRegistry(path string) Result {
	const name = "Registry"
	entries, err := registry.Load(path)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	if len(entries) == 0 {
		return Result{Name: name, Detail: fmt.Sprintf("%s lists no entities", path)}
	}
	noun := "entities"
	if len(entries) == 1 {
		noun = "entity"
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%d %s in %s", len(entries), noun, path)}
}

// CheckFetchCommand verifies the program named by the fetch command template
// resolves on PATH (or as a path).
func CheckFetchCommand(template string) Result {
	const name = "Fetch command"
	fields := strings.Fields(template)
	if len(fields) == 0 {
		return Result{Name: name, Detail: "sync.fetch_command not configured"}
	}
	resolved, err := exec.LookPath(fields[0])
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("binary %q not found", fields[0])}
	}
	return Result{Name: name, Passed: true, Detail: resolved}
}
