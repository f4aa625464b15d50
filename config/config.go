// Package config loads sync profiles — one configured DAV server plus
// its credentials and sync policy — from a YAML file, the ambient
// configuration layer SPEC_FULL.md calls for alongside the core
// synchronizer.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config is the top-level shape of a davsync config file: one or more
// named profiles, each describing a single DAV account to sync.
type Config struct {
	Profiles []Profile `koanf:"profiles"`
	Logging  Logging   `koanf:"logging"`
}

// Profile is one configured server, sufficient on its own to drive a
// sync.Resource.
type Profile struct {
	Name            string `koanf:"name"`
	URL             string `koanf:"url"`
	Protocol        string `koanf:"protocol"` // "caldav", "carddav" or "webdav"
	Username        string `koanf:"username"`
	Password        string `koanf:"password"`
	IgnoreTLSErrors bool   `koanf:"ignore_tls_errors"`
	SyncInterval    string `koanf:"sync_interval"` // "15m", parsed with time.ParseDuration
	CacheDir        string `koanf:"cache_dir"`
}

// Logging holds the structured-logging knobs, mirroring the shape of
// every other ambient config block in the pack.
type Logging struct {
	Level  string `koanf:"level"`  // zerolog level name, e.g. "info"
	Format string `koanf:"format"` // "console" or "json"
}

// DefaultConfig returns a configuration with sensible defaults, used
// when no file exists at the requested path yet.
func DefaultConfig() *Config {
	return &Config{
		Logging: Logging{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads configuration from a YAML file at path. A missing file is
// not an error: Load returns the defaults, since a freshly installed
// davsync has nothing to load yet.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("config: failed to load %s: %w", path, err)
	}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks that every profile has enough information to open a
// connection.
func (c *Config) Validate() error {
	if len(c.Profiles) == 0 {
		return fmt.Errorf("config: at least one profile must be configured")
	}
	seen := make(map[string]bool, len(c.Profiles))
	for i, p := range c.Profiles {
		if p.Name == "" {
			return fmt.Errorf("config: profiles[%d].name is required", i)
		}
		if seen[p.Name] {
			return fmt.Errorf("config: duplicate profile name %q", p.Name)
		}
		seen[p.Name] = true
		if p.URL == "" {
			return fmt.Errorf("config: profiles[%d].url is required", i)
		}
		switch p.Protocol {
		case "caldav", "carddav", "webdav":
		default:
			return fmt.Errorf("config: profiles[%d].protocol must be caldav, carddav or webdav, got %q", i, p.Protocol)
		}
		if p.SyncInterval != "" {
			if _, err := time.ParseDuration(p.SyncInterval); err != nil {
				return fmt.Errorf("config: profiles[%d].sync_interval: %w", i, err)
			}
		}
	}
	return nil
}

// Find returns the profile named name, or false if none matches.
func (c *Config) Find(name string) (Profile, bool) {
	for _, p := range c.Profiles {
		if p.Name == name {
			return p, true
		}
	}
	return Profile{}, false
}

// Interval returns the parsed sync interval, defaulting to 15 minutes
// when unset.
func (p Profile) Interval() time.Duration {
	if p.SyncInterval == "" {
		return 15 * time.Minute
	}
	d, err := time.ParseDuration(p.SyncInterval)
	if err != nil {
		return 15 * time.Minute
	}
	return d
}
