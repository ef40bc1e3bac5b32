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
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
}

// HTTP contains settings shared by both external clients. The user agent is
// set so that upstream operators can contact us if the poller misbehaves.
type HTTP struct {
	UserAgent string `toml:"user_agent"`
}

// Feed contains configuration for the torrent tracker source.
type Feed struct {
	BaseURL          string `toml:"base_url"`
	PollInterval     int    `toml:"poll_interval"`
	PageTimeout      int    `toml:"page_timeout"`
	MaxBackfillPages int    `toml:"max_backfill_pages"`
	FetchConcurrency int    `toml:"fetch_concurrency"`
}

// Catalog contains configuration for the show metadata source.
type Catalog struct {
	BaseURL              string `toml:"base_url"`
	ShowsSyncInterval    int    `toml:"shows_sync_interval"`
	ScheduleSyncInterval int    `toml:"schedule_sync_interval"`
	StartupGrace         int    `toml:"startup_grace"`
	RequestTimeout       int    `toml:"request_timeout"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for tosho.
//
// Intervals and timeouts are whole seconds.
type Config struct {
	Paths   Paths   `toml:"paths"`
	HTTP    HTTP    `toml:"http"`
	Feed    Feed    `toml:"feed"`
	Catalog Catalog `toml:"catalog"`
	Logging Logging `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/tosho/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. The second return value
// is the resolved path, the third reports whether a file existed there.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("tosho.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

func (c *Config) normalize() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return err
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return err
	}
	c.Feed.BaseURL = strings.TrimRight(strings.TrimSpace(c.Feed.BaseURL), "/")
	c.Catalog.BaseURL = strings.TrimSpace(c.Catalog.BaseURL)
	c.HTTP.UserAgent = strings.TrimSpace(c.HTTP.UserAgent)
	return nil
}

// EnsureDirectories creates the directories required for operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the sqlite database location.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "tosho.db")
}

// PollInterval returns the steady-state feed poll cadence.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Feed.PollInterval) * time.Second
}

// PageTimeout returns the per-page fetch timeout.
func (c *Config) PageTimeout() time.Duration {
	return time.Duration(c.Feed.PageTimeout) * time.Second
}

// ShowsSyncInterval returns the catalog refresh cadence.
func (c *Config) ShowsSyncInterval() time.Duration {
	return time.Duration(c.Catalog.ShowsSyncInterval) * time.Second
}

// ScheduleSyncInterval returns the schedule refresh cadence.
func (c *Config) ScheduleSyncInterval() time.Duration {
	return time.Duration(c.Catalog.ScheduleSyncInterval) * time.Second
}

// StartupGrace returns the delay before the first catalog sync after boot.
func (c *Config) StartupGrace() time.Duration {
	return time.Duration(c.Catalog.StartupGrace) * time.Second
}

// CatalogRequestTimeout returns the per-request timeout for the catalog client.
func (c *Config) CatalogRequestTimeout() time.Duration {
	return time.Duration(c.Catalog.RequestTimeout) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
