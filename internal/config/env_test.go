package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"filingsync/internal/config"
)

func unsetForTest(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	if err := os.Unsetenv(key); err != nil {
		t.Fatalf("unset %s: %v", key, err)
	}
}

func TestLoadEnvFilesFeedsConfig(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	unsetForTest(t, "FILINGSYNC_DATA_DIR")
	unsetForTest(t, "FILINGSYNC_REGISTRY")

	dir := t.TempDir()
	t.Chdir(dir)
	dataDir := filepath.Join(dir, "mirror")
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("FILINGSYNC_DATA_DIR="+dataDir+"\nFILINGSYNC_REGISTRY=base.toml\n"), 0o644); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".env.local"), []byte("FILINGSYNC_REGISTRY=local.csv\n"), 0o644); err != nil {
		t.Fatalf("write .env.local: %v", err)
	}

	if err := config.LoadEnvFiles(dir); err != nil {
		t.Fatalf("LoadEnvFiles: %v", err)
	}
	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Paths.DataDir != dataDir {
		t.Fatalf("data dir = %q, want %q", cfg.Paths.DataDir, dataDir)
	}
	if cfg.Paths.RegistryFile != filepath.Join(dir, "local.csv") {
		t.Fatalf("registry = %q, want .env.local override", cfg.Paths.RegistryFile)
	}
}

func TestLoadEnvFilesKeepsExistingEnvironment(t *testing.T) {
	t.Setenv("FILINGSYNC_DATA_DIR", "/srv/filings")
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("FILINGSYNC_DATA_DIR=/tmp/other\n"), 0o644); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	if err := config.LoadEnvFiles(dir); err != nil {
		t.Fatalf("LoadEnvFiles: %v", err)
	}
	if got := os.Getenv("FILINGSYNC_DATA_DIR"); got != "/srv/filings" {
		t.Fatalf("FILINGSYNC_DATA_DIR = %q, want existing value kept", got)
	}
}

func TestLoadEnvFilesMissingIsNoop(t *testing.T) {
	if err := config.LoadEnvFiles(t.TempDir()); err != nil {
		t.Fatalf("LoadEnvFiles on empty dir: %v", err)
	}
}
