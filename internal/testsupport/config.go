package testsupport

import (
	"path/filepath"
	"testing"

	"tosho/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithFeedBaseURL points the feed client at a test server.
func WithFeedBaseURL(url string) ConfigOption {
	return func(c *config.Config) {
		c.Feed.BaseURL = url
	}
}

// WithCatalogBaseURL points the catalog client at a test server.
func WithCatalogBaseURL(url string) ConfigOption {
	return func(c *config.Config) {
		c.Catalog.BaseURL = url
	}
}
