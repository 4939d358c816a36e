package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateSync(); err != nil {
		return err
	}
	if err := c.validatePeriods(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return errors.New("paths.data_dir must be set")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validateSync() error {
	if err := ensurePositiveMap(map[string]int{
		"sync.workers":       c.Sync.Workers,
		"sync.fetch_timeout": c.Sync.FetchTimeout,
	}); err != nil {
		return err
	}
	if c.Sync.PublicationLagDays < 0 {
		return errors.New("sync.publication_lag_days must be >= 0")
	}
	if c.Sync.FetchCommand != "" && !strings.Contains(c.Sync.FetchCommand, "{dest}") {
		return errors.New("sync.fetch_command must reference the {dest} placeholder")
	}
	return nil
}

func (c *Config) validatePeriods() error {
	if c.Periods.MinArtifactBytes < 0 {
		return errors.New("periods.min_artifact_bytes must be >= 0")
	}
	if c.Periods.EarliestYear < 1990 || c.Periods.EarliestYear > 9999 {
		return fmt.Errorf("periods.earliest_year must be between 1990 and 9999, got %d", c.Periods.EarliestYear)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
