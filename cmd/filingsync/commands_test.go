package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"filingsync/internal/testsupport"
)

func TestPeriodsByRUT(t *testing.T) {
	env := setupCLITestEnv(t)
	capDir := env.cfg.EntityDir(capRUT)
	testsupport.WriteFilingZip(t, filepath.Join(capDir, "2024-06", "filing.zip"))
	testsupport.WriteXBRL(t, filepath.Join(capDir, capRUT+"_2024Q3.xbrl"))
	testsupport.WriteEmpty(t, filepath.Join(capDir, "202412", "filing.zip"))

	out, _, err := runCLI(t, []string{"periods", "91.297.000-0", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("periods: %v", err)
	}
	var result periodsJSON
	decodeJSON(t, out, &result)
	if strings.Join(result.Periods, ",") != "202406,202409" {
		t.Fatalf("periods = %v", result.Periods)
	}
	if result.Name != "CAP SA" || result.RUT != capRUT || result.Location != capDir {
		t.Fatalf("unexpected target: %+v", result)
	}

	out, _, err = runCLI(t, []string{"periods", capRUT}, env.configPath)
	if err != nil {
		t.Fatalf("periods table: %v", err)
	}
	requireContains(t, out, "CAP SA (91.297.000-0)")
	requireContains(t, out, "2024Q3")
	requireContains(t, out, "2 periods present, latest 202409")
}

func TestPeriodsByDirectoryWithMissing(t *testing.T) {
	env := setupCLITestEnv(t)
	dir := filepath.Join(env.baseDir, "adhoc")
	testsupport.WriteFilingZip(t, filepath.Join(dir, "202406", "filing.zip"))

	out, _, err := runCLI(t, []string{"periods", dir, "--missing", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("periods dir: %v", err)
	}
	var result periodsJSON
	decodeJSON(t, out, &result)
	if result.RUT != "" || result.Location != dir {
		t.Fatalf("unexpected target: %+v", result)
	}
	if len(result.Periods) != 1 || result.Periods[0] != "202406" {
		t.Fatalf("periods = %v", result.Periods)
	}
	for _, p := range result.Missing {
		if p == "202406" {
			t.Fatal("present period listed as missing")
		}
	}
	if len(result.Missing) == 0 || result.Missing[0] != "201003" {
		t.Fatalf("missing should start at the earliest configured quarter, got %v", result.Missing)
	}
}

func TestPeriodsUnknownEntityIsEmpty(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"periods", "11.111.111-1"}, env.configPath)
	if err != nil {
		t.Fatalf("periods: %v", err)
	}
	requireContains(t, out, "not in registry")
	requireContains(t, out, "No complete periods found")
}

func TestPeriodsRejectsGarbage(t *testing.T) {
	env := setupCLITestEnv(t)
	_, _, err := runCLI(t, []string{"periods", "not-a-rut"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "neither a directory nor a valid RUT") {
		t.Fatalf("expected argument error, got %v", err)
	}
}

func TestEntitiesListsRegistry(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.WriteFilingZip(t, filepath.Join(env.cfg.EntityDir(copecRUT), "202412", "filing.zip"))

	out, _, err := runCLI(t, []string{"entities"}, env.configPath)
	if err != nil {
		t.Fatalf("entities: %v", err)
	}
	requireContains(t, out, "Empresas Copec Sa")
	requireContains(t, out, "90.749.000-9")
	requireContains(t, out, "202412")
	requireContains(t, out, "2 entities from")

	out, _, err = runCLI(t, []string{"entities", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("entities --json: %v", err)
	}
	var items []entityJSON
	decodeJSON(t, out, &items)
	if len(items) != 2 || items[0].RUT != capRUT || items[0].Periods != 0 || items[1].Periods != 1 || items[1].Latest != "202412" {
		t.Fatalf("unexpected entities: %+v", items)
	}
}

func TestEntitiesMissingRegistry(t *testing.T) {
	env := setupCLITestEnv(t)
	if err := os.Remove(env.cfg.Paths.RegistryFile); err != nil {
		t.Fatalf("remove registry: %v", err)
	}
	_, _, err := runCLI(t, []string{"entities"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "load entity registry") {
		t.Fatalf("expected registry error, got %v", err)
	}
}

func TestConfigInitShowAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	target := filepath.Join(t.TempDir(), "nested", "config.toml")
	out, _, err := runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("expected existing file error, got %v", err)
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target, "--overwrite"}, ""); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}

	out, _, err = runCLI(t, []string{"config", "show"}, env.configPath)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, "resolved from "+env.configPath)
	requireContains(t, out, "[paths]")
	requireContains(t, out, env.cfg.Paths.DataDir)

	out, _, err = runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "2 entities")
	requireContains(t, out, "[WARN]")
	requireContains(t, out, "Configuration valid")
}

func TestConfigValidateReportsBrokenRegistry(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithRegistry("entities.csv", "name,rut\nCAP SA,91297000\nCAP again,91.297.000-0\n"))

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err == nil {
		t.Fatal("expected validate to fail")
	}
	requireContains(t, out, "[ERROR]")
	requireContains(t, out, "entities.csv:3")
}

func TestEnvFileOverridesDataDir(t *testing.T) {
	env := setupCLITestEnv(t)
	dataDir := filepath.Join(env.baseDir, "from-dotenv")
	t.Cleanup(func() { os.Unsetenv("FILINGSYNC_DATA_DIR") })
	if err := os.WriteFile(".env", []byte("FILINGSYNC_DATA_DIR="+dataDir+"\n"), 0o644); err != nil {
		t.Fatalf("write .env: %v", err)
	}

	out, _, err := runCLI(t, []string{"config", "show"}, env.configPath)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, dataDir)
}
