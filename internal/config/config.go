// Package config loads, merges and saves the dyntree configuration file.
//
// Precedence, lowest first: built-in defaults, $DYNTREE_HOME/config.yaml,
// an optional --config overlay merged per top-level section, DYNTREE_*
// environment variables, and finally CLI flags applied by the caller.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/SkLight/dyntree/internal/cache"
	"github.com/SkLight/dyntree/internal/dyntree"
	"github.com/SkLight/dyntree/internal/listing"
)

// Environment variables read by applyEnv. Cache variables are owned by the
// cache package; log variables by the logging package.
const (
	EnvHome         = "DYNTREE_HOME"
	EnvSourceURL    = "DYNTREE_SOURCE_URL"
	EnvCacheDepth   = "DYNTREE_CACHE_DEPTH"
	EnvWaitingMsg   = "DYNTREE_SHOW_WAITING_MESSAGE"
	EnvLanguage     = "DYNTREE_LANGUAGE"
	defaultHomeName = ".dyntree"
	configFileName  = "config.yaml"
)

// ErrInvalidConfig is wrapped by every Validate failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the full configuration file.
type Config struct {
	Source  SourceConfig    `yaml:"source"`
	Widget  dyntree.Options `yaml:"widget"`
	Cache   CacheConfig     `yaml:"cache"`
	Logging LoggingConfig   `yaml:"logging"`
	UI      UIConfig        `yaml:"ui"`

	configPath string
}

// SourceConfig locates the remote listing source.
type SourceConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

// CacheConfig controls the on-disk listing cache.
type CacheConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Directory  string `yaml:"directory,omitempty"`
	TTLSeconds int    `yaml:"ttl_seconds"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
}

// LoggingConfig is the logging section.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file,omitempty"`
}

// UIConfig holds presentation settings.
type UIConfig struct {
	// Language selects message translations; empty means the locale.
	Language string `yaml:"language,omitempty"`
}

// Default returns the built-in configuration without reading any file.
func Default() *Config {
	return &Config{
		Source: SourceConfig{Timeout: listing.DefaultTimeout},
		Cache: CacheConfig{
			Enabled:    true,
			TTLSeconds: cache.DefaultTTLSeconds,
			MaxSizeMB:  cache.DefaultMaxSizeMB,
		},
		Logging: LoggingConfig{Level: "info", Format: "console"},
	}
}

// New returns the configuration from $DYNTREE_HOME/config.yaml with
// environment overrides applied. A missing or unreadable file yields the
// defaults; the path is remembered for Save either way.
func New() *Config {
	cfg := fromHome()
	cfg.applyEnv()
	return cfg
}

func fromHome() *Config {
	cfg := Default()
	dir, err := GetConfigDir()
	if err != nil {
		return cfg
	}
	path := filepath.Join(dir, configFileName)
	if _, statErr := os.Stat(path); statErr == nil {
		if loaded, loadErr := Load(path); loadErr == nil {
			return loaded
		}
	}
	cfg.configPath = path
	return cfg
}

// Load reads path on top of the defaults. Environment overrides are not
// applied.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	cfg := Default()
	if err = yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	cfg.configPath = path
	return cfg, nil
}

// Save writes the configuration to its path, creating parent directories.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.New("config path not set")
	}
	data, err := c.Marshal()
	if err != nil {
		return err
	}
	if err = os.MkdirAll(filepath.Dir(c.configPath), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err = os.WriteFile(c.configPath, data, 0o600); err != nil {
		return fmt.Errorf("writing config %s: %w", c.configPath, err)
	}
	return nil
}

// Marshal renders the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshalling config: %w", err)
	}
	return data, nil
}

// ConfigPath returns the file the configuration is saved to.
func (c *Config) ConfigPath() string {
	return c.configPath
}

// SetConfigPath changes the file the configuration is saved to.
func (c *Config) SetConfigPath(path string) {
	c.configPath = path
}

// Validate checks values that would otherwise fail later at widget or cache
// construction.
func (c *Config) Validate() error {
	if err := c.Widget.Validate(); err != nil {
		return fmt.Errorf("%w: widget: %w", ErrInvalidConfig, err)
	}
	if c.Widget.PrefetchConcurrency < 0 {
		return fmt.Errorf("%w: widget.prefetch_concurrency must be >= 0", ErrInvalidConfig)
	}
	if c.Source.Timeout < 0 {
		return fmt.Errorf("%w: source.timeout must be >= 0", ErrInvalidConfig)
	}
	if c.Cache.Enabled {
		if c.Cache.TTLSeconds < cache.MinTTLSeconds || c.Cache.TTLSeconds > cache.MaxTTLSeconds {
			return fmt.Errorf("%w: cache.ttl_seconds: %w", ErrInvalidConfig, cache.ErrInvalidTTL)
		}
		if c.Cache.MaxSizeMB < 0 {
			return fmt.Errorf("%w: cache.max_size_mb must be >= 0", ErrInvalidConfig)
		}
	}
	return nil
}

// CacheDirectory returns the configured cache directory or the default
// $DYNTREE_HOME/cache.
func (c *Config) CacheDirectory() (string, error) {
	if c.Cache.Directory != "" {
		return c.Cache.Directory, nil
	}
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "cache"), nil
}

// applyEnv overlays DYNTREE_* variables. Unparseable values are ignored.
func (c *Config) applyEnv() {
	if v := os.Getenv(EnvSourceURL); v != "" {
		c.Source.URL = v
	}
	if v := os.Getenv(EnvCacheDepth); v != "" {
		if depth, err := strconv.Atoi(v); err == nil {
			c.Widget.CacheDepth = depth
		}
	}
	if v := os.Getenv(EnvWaitingMsg); v != "" {
		if show, err := strconv.ParseBool(v); err == nil {
			c.Widget.ShowWaitingMessage = show
		}
	}
	if v := os.Getenv(EnvLanguage); v != "" {
		c.UI.Language = v
	}

	c.Cache.Enabled = cache.EnabledFromEnv(c.Cache.Enabled)
	c.Cache.TTLSeconds = cache.TTLFromEnv(c.Cache.TTLSeconds)
	c.Cache.Directory = cache.DirFromEnv(c.Cache.Directory)
	c.Cache.MaxSizeMB = cache.MaxSizeFromEnv(c.Cache.MaxSizeMB)
}
