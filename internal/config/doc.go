// Package config loads, validates, and defaults the TOML configuration used
// by every tosho entry point.
package config
