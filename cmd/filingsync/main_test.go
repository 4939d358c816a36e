package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"filingsync/internal/config"
	"filingsync/internal/testsupport"
)

const testRegistry = `
[[entity]]
name = "CAP SA"
rut = "91.297.000-0"

[[entity]]
name = "EMPRESAS COPEC SA"
rut = "90749000-9"
`

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	t.Setenv("HOME", t.TempDir())
	for _, key := range []string{"FILINGSYNC_DATA_DIR", "FILINGSYNC_REGISTRY"} {
		t.Setenv(key, "")
		if err := os.Unsetenv(key); err != nil {
			t.Fatalf("unset %s: %v", key, err)
		}
	}
	t.Chdir(t.TempDir())

	opts = append([]testsupport.ConfigOption{testsupport.WithRegistry("entities.toml", testRegistry)}, opts...)
	cfg := testsupport.NewConfig(t, opts...)
	base := testsupport.BaseDir(cfg)
	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{cfg: cfg, configPath: configPath, baseDir: base}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

// makeFetchScript writes a downloader stand-in that stores one XBRL instance
// per call and fails for the RUTs listed in failRUTs.
func makeFetchScript(t *testing.T, dir string, failRUTs ...string) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("create stub bin dir: %v", err)
	}
	var script strings.Builder
	script.WriteString("#!/bin/sh\n")
	for _, rut := range failRUTs {
		script.WriteString("if [ \"$1\" = \"" + rut + "\" ]; then echo \"portal returned 503\" >&2; exit 3; fi\n")
	}
	script.WriteString("printf '<xbrl/>' > \"$3/$1_$2.xbrl\"\n")
	path := filepath.Join(dir, "fake-fetch")
	if err := os.WriteFile(path, []byte(script.String()), 0o755); err != nil {
		t.Fatalf("write fetch stub: %v", err)
	}
	return path
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

func decodeJSON(t *testing.T, data string, v any) {
	t.Helper()
	if err := json.Unmarshal([]byte(data), v); err != nil {
		t.Fatalf("decode json: %v\n%s", err, data)
	}
}

func TestRootWithoutArgsPrintsHelp(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, nil, env.configPath)
	if err != nil {
		t.Fatalf("root: %v", err)
	}
	requireContains(t, out, "sync")
	requireContains(t, out, "history")
}

func TestInvalidConfigFailsBeforeCommandRuns(t *testing.T) {
	env := setupCLITestEnv(t)
	if err := os.WriteFile(env.configPath, []byte("[sync]\nworkers = -1\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	_, _, err := runCLI(t, []string{"entities"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "sync.workers") {
		t.Fatalf("expected workers validation error, got %v", err)
	}
}
