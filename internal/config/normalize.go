package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeSync()
	c.normalizePeriods()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	if value, ok := os.LookupEnv("FILINGSYNC_DATA_DIR"); ok && strings.TrimSpace(value) != "" {
		c.Paths.DataDir = strings.TrimSpace(value)
	}
	if value, ok := os.LookupEnv("FILINGSYNC_REGISTRY"); ok && strings.TrimSpace(value) != "" {
		c.Paths.RegistryFile = strings.TrimSpace(value)
	}

	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.RegistryFile, err = expandPath(c.Paths.RegistryFile); err != nil {
		return fmt.Errorf("paths.registry_file: %w", err)
	}
	return nil
}

func (c *Config) normalizeSync() {
	c.Sync.FetchCommand = strings.TrimSpace(c.Sync.FetchCommand)
	if c.Sync.Workers == 0 {
		c.Sync.Workers = defaultWorkers
	}
	if c.Sync.FetchTimeout == 0 {
		c.Sync.FetchTimeout = defaultFetchTimeout
	}
}

func (c *Config) normalizePeriods() {
	if len(c.Periods.ArtifactExtensions) == 0 {
		c.Periods.ArtifactExtensions = append([]string(nil), defaultArtifactExtensions...)
		return
	}
	exts := make([]string, 0, len(c.Periods.ArtifactExtensions))
	seen := make(map[string]struct{}, len(c.Periods.ArtifactExtensions))
	for _, ext := range c.Periods.ArtifactExtensions {
		normalized := strings.ToLower(strings.TrimSpace(ext))
		if normalized == "" {
			continue
		}
		if !strings.HasPrefix(normalized, ".") {
			normalized = "." + normalized
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		exts = append(exts, normalized)
	}
	if len(exts) == 0 {
		exts = append(exts, defaultArtifactExtensions...)
	}
	c.Periods.ArtifactExtensions = exts
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
