// Package config loads peerguard settings from TOML files.
//
// Two files are read, later files overriding earlier ones key by key:
//
//	~/.config/peerguard/config.toml
//	<project>/.peerguard.toml
//
// Command-line flags override both.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/peerguard/pkg/cache"
	"github.com/matzehuels/peerguard/pkg/errors"
	"github.com/matzehuels/peerguard/pkg/pool"
	"github.com/matzehuels/peerguard/pkg/semver"
)

// File names.
const (
	UserFile    = "config.toml"
	ProjectFile = ".peerguard.toml"
)

// Defaults.
const (
	DefaultPolicy  = semver.PolicyMinor
	DefaultTimeout = 10 * time.Second
)

// Duration is a time.Duration that decodes from a TOML string like "15s".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Cache holds the [cache] table.
type Cache struct {
	Dir      string   `toml:"dir"`
	Backend  string   `toml:"backend"`
	TTL      Duration `toml:"ttl"`
	RedisURL string   `toml:"redis_url"`
}

// Config is the merged configuration.
type Config struct {
	Policy      string   `toml:"policy"`
	Concurrency int      `toml:"concurrency"`
	Timeout     Duration `toml:"timeout"`
	Offline     bool     `toml:"offline"`
	Cache       Cache    `toml:"cache"`

	// Sources lists the files that contributed, in load order.
	Sources []string `toml:"-"`
}

// WithDefaults returns a copy with zero values replaced by defaults.
func (c Config) WithDefaults() Config {
	if c.Policy == "" {
		c.Policy = string(DefaultPolicy)
	}
	if c.Concurrency <= 0 {
		c.Concurrency = pool.DefaultConcurrency
	}
	if c.Timeout.Duration <= 0 {
		c.Timeout.Duration = DefaultTimeout
	}
	if c.Cache.TTL.Duration <= 0 {
		c.Cache.TTL.Duration = cache.DefaultTTL
	}
	return c
}

// Validate checks the policy and cache backend names.
func (c Config) Validate() error {
	if c.Policy != "" {
		if _, err := semver.ParsePolicy(c.Policy); err != nil {
			return err
		}
	}
	switch cache.BackendKind(c.Cache.Backend) {
	case cache.BackendAuto, cache.BackendSQLite, cache.BackendJSON, cache.BackendRedis, cache.BackendNull:
	default:
		return errors.New(errors.ErrCodeInvalidInput, "unknown cache backend %q", c.Cache.Backend)
	}
	if c.Cache.Backend == string(cache.BackendRedis) && c.Cache.RedisURL == "" {
		return errors.New(errors.ErrCodeInvalidInput, "cache backend redis needs redis_url")
	}
	return nil
}

// UserDir returns $XDG_CONFIG_HOME/peerguard, or ~/.config/peerguard.
func UserDir(homeDir string) string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "peerguard")
	}
	return filepath.Join(homeDir, ".config", "peerguard")
}

// Load reads the user file under homeDir and the project file under
// projectDir. Missing files are skipped; either directory may be empty.
// The result has neither defaults applied nor been validated, so that
// command-line flags can still replace a bad value; call [Config.Validate]
// once everything is merged.
func Load(homeDir, projectDir string) (Config, error) {
	var cfg Config
	var paths []string
	if homeDir != "" {
		paths = append(paths, filepath.Join(UserDir(homeDir), UserFile))
	}
	if projectDir != "" {
		paths = append(paths, filepath.Join(projectDir, ProjectFile))
	}
	for _, p := range paths {
		ok, err := decodeFile(p, &cfg)
		if err != nil {
			return Config{}, err
		}
		if ok {
			cfg.Sources = append(cfg.Sources, p)
		}
	}
	return cfg, nil
}

// decodeFile decodes path on top of cfg, so keys absent from the file keep
// their previous values.
func decodeFile(path string, cfg *Config) (bool, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(errors.ErrCodeInvalidPath, err, "read %s", path)
	}
	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return false, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return false, errors.New(errors.ErrCodeInvalidInput, "%s: unknown key %q", path, undecoded[0].String())
	}
	return true, nil
}
