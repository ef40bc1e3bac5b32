package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateFeed(); err != nil {
		return err
	}
	if err := c.validateCatalog(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
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

func (c *Config) validateFeed() error {
	if err := validateBaseURL("feed.base_url", c.Feed.BaseURL); err != nil {
		return err
	}
	if c.Feed.PollInterval <= 0 {
		return errors.New("feed.poll_interval must be positive")
	}
	if c.Feed.PageTimeout <= 0 {
		return errors.New("feed.page_timeout must be positive")
	}
	if c.Feed.MaxBackfillPages <= 0 {
		return errors.New("feed.max_backfill_pages must be positive")
	}
	if c.Feed.FetchConcurrency <= 0 {
		return errors.New("feed.fetch_concurrency must be positive")
	}
	return nil
}

func (c *Config) validateCatalog() error {
	if err := validateBaseURL("catalog.base_url", c.Catalog.BaseURL); err != nil {
		return err
	}
	if c.Catalog.ShowsSyncInterval <= 0 {
		return errors.New("catalog.shows_sync_interval must be positive")
	}
	if c.Catalog.ScheduleSyncInterval <= 0 {
		return errors.New("catalog.schedule_sync_interval must be positive")
	}
	if c.Catalog.StartupGrace < 0 {
		return errors.New("catalog.startup_grace must not be negative")
	}
	if c.Catalog.RequestTimeout <= 0 {
		return errors.New("catalog.request_timeout must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(strings.TrimSpace(c.Logging.Format)) {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch strings.ToLower(strings.TrimSpace(c.Logging.Level)) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}

func validateBaseURL(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s must be set", field)
	}
	parsed, err := url.Parse(value)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("%s must be an absolute URL, got %q", field, value)
	}
	return nil
}
