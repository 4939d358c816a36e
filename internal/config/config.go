package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir      string `toml:"data_dir"`
	LogDir       string `toml:"log_dir"`
	RegistryFile string `toml:"registry_file"`
}

// Sync contains worker and fetcher settings for a sync run.
type Sync struct {
	Workers            int    `toml:"workers"`
	PublicationLagDays int    `toml:"publication_lag_days"`
	FetchCommand       string `toml:"fetch_command"`
	FetchTimeout       int    `toml:"fetch_timeout"`
}

// Periods contains artifact validation settings used during discovery.
type Periods struct {
	MinArtifactBytes   int64    `toml:"min_artifact_bytes"`
	ArtifactExtensions []string `toml:"artifact_extensions"`
	EarliestYear       int      `toml:"earliest_year"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for filingsync.
//
// Configuration sections:
//   - Paths: filing data root, logs, and the entity registry
//   - Sync: worker count, publication lag, external fetch command
//   - Periods: what counts as a complete filing artifact
//   - Logging: log format and level
type Config struct {
	Paths   Paths   `toml:"paths"`
	Sync    Sync    `toml:"sync"`
	Periods Periods `toml:"periods"`
	Logging Logging `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/filingsync/config.toml")
}

// projectConfigName is picked up from the working directory when no user
// config exists.
const projectConfigName = "filingsync.toml"

// Load resolves the configuration file, decodes it over the defaults, then
// applies environment overrides, normalization and validation. It returns
// the config, the resolved path and whether that file exists. A missing file
// is not an error.
func Load(path string) (*Config, string, bool, error) {
	resolved, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	cfg := Default()
	if exists {
		if err := decodeFile(resolved, &cfg); err != nil {
			return nil, "", false, err
		}
	}
	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolved, exists, nil
}

func decodeFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// resolveConfigPath honours an explicit path even when it does not exist.
// Otherwise it tries the user config, then the project file, and falls back
// to the user config location.
func resolveConfigPath(explicit string) (string, bool, error) {
	if explicit != "" {
		expanded, err := expandPath(explicit)
		if err != nil {
			return "", false, err
		}
		exists, err := isFile(expanded)
		if err != nil {
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, exists, nil
	}

	userPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs(projectConfigName)
	if err != nil {
		return "", false, err
	}
	for _, candidate := range []string{userPath, projectPath} {
		if ok, _ := isFile(candidate); ok {
			return candidate, true, nil
		}
	}
	return userPath, false, nil
}

func isFile(path string) (bool, error) {
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	case err != nil:
		return false, err
	default:
		return !info.IsDir(), nil
	}
}

// EnsureDirectories creates the data and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// EntityDir returns the storage location for one entity's filings.
func (c *Config) EntityDir(rut string) string {
	return filepath.Join(c.Paths.DataDir, rut)
}

// HistoryDBPath returns the run history database location.
func (c *Config) HistoryDBPath() string {
	return filepath.Join(c.Paths.LogDir, "history.db")
}

// LockPath returns the lock file guarding concurrent sync runs.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.LogDir, "filingsync.lock")
}

// PublicationLag returns the configured lag as a duration.
func (c *Config) PublicationLag() time.Duration {
	return time.Duration(c.Sync.PublicationLagDays) * 24 * time.Hour
}

// FetchTimeout returns the per-fetch timeout.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.Sync.FetchTimeout) * time.Second
}

// ExpandPath resolves a leading ~ and returns an absolute, cleaned path.
// The empty string is returned unchanged.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return "", nil
	}
	if pathValue == "~" || strings.HasPrefix(pathValue, "~/") || strings.HasPrefix(pathValue, `~\`) {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		pathValue = home + pathValue[1:]
	}
	absolute, err := filepath.Abs(pathValue)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// CreateSample writes the commented sample configuration to path,
// creating parent directories as needed.
func CreateSample(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
