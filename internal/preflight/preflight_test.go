package preflight

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"filingsync/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if !strings.Contains(result.Detail, "does not exist") {
		t.Fatalf("unexpected detail %q", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckRegistry(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "entities.toml")
	if err := os.WriteFile(good, []byte("[[entity]]\nname = \"CAP SA\"\nrut = \"91297000\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if result := CheckRegistry(good); !result.Passed || !strings.Contains(result.Detail, "1 entity") {
		t.Fatalf("expected pass, got %+v", result)
	}

	empty := filepath.Join(dir, "empty.toml")
	if err := os.WriteFile(empty, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if result := CheckRegistry(empty); result.Passed {
		t.Fatal("expected failure for empty registry")
	}
	if result := CheckRegistry(filepath.Join(dir, "missing.csv")); result.Passed {
		t.Fatal("expected failure for missing registry")
	}
}

func TestCheckFetchCommand(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "fetcher")
	if err := os.WriteFile(present, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}

	if result := CheckFetchCommand(present + " {rut} {dest}"); !result.Passed || result.Detail != present {
		t.Fatalf("expected pass, got %+v", result)
	}
	if result := CheckFetchCommand("clearly-not-present-binary {dest}"); result.Passed {
		t.Fatal("expected missing binary to fail")
	}
	if result := CheckFetchCommand("  "); result.Passed {
		t.Fatal("expected unconfigured command to fail")
	}
}

func TestRunAllSkipsFetchCommandForDryRun(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithRegistry("entities.toml", "[[entity]]\nname = \"CAP SA\"\nrut = \"91297000\"\n"))
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	results := RunAll(cfg, true)
	if err := Err(results); err != nil {
		t.Fatalf("dry run preflight failed: %v", err)
	}
	last := results[len(results)-1]
	if !last.Skipped {
		t.Fatalf("expected fetch command to be skipped, got %+v", last)
	}

	err := Err(RunAll(cfg, false))
	if err == nil || !strings.Contains(err.Error(), "Fetch command") {
		t.Fatalf("expected fetch command failure, got %v", err)
	}
}
