package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SkLight/dyntree/internal/cache"
	"github.com/SkLight/dyntree/internal/dyntree"
	"github.com/SkLight/dyntree/internal/listing"
)

// clearEnv isolates a test from DYNTREE_* variables set in the environment.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		EnvSourceURL, EnvCacheDepth, EnvWaitingMsg, EnvLanguage,
		cache.EnvEnabled, cache.EnvTTLSeconds, cache.EnvDir, cache.EnvMaxSizeMB,
	} {
		t.Setenv(k, "")
	}
	t.Setenv(EnvHome, t.TempDir())
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, listing.DefaultTimeout, cfg.Source.Timeout)
	assert.Equal(t, dyntree.Options{}, cfg.Widget)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, cache.DefaultTTLSeconds, cfg.Cache.TTLSeconds)
	assert.Equal(t, "info", cfg.Logging.Level)
	require.NoError(t, cfg.Validate())
}

func TestNew_NoFile(t *testing.T) {
	clearEnv(t)
	home := os.Getenv(EnvHome)

	cfg := New()
	assert.Equal(t, filepath.Join(home, "config.yaml"), cfg.ConfigPath())
	assert.Equal(t, Default().Widget, cfg.Widget)
}

func TestSaveAndLoad(t *testing.T) {
	clearEnv(t)

	cfg := New()
	cfg.Source.URL = "http://localhost:9000/"
	cfg.Source.Timeout = 3 * time.Second
	cfg.Widget = dyntree.Options{ShowWaitingMessage: true, CacheDepth: 2, PrefetchConcurrency: 8}
	cfg.UI.Language = "ru"
	require.NoError(t, cfg.Save())

	data, err := os.ReadFile(cfg.ConfigPath())
	require.NoError(t, err)
	assert.Contains(t, string(data), "cache_depth: 2")
	assert.Contains(t, string(data), "timeout: 3s")

	loaded, err := Load(cfg.ConfigPath())
	require.NoError(t, err)
	assert.Equal(t, cfg.Source, loaded.Source)
	assert.Equal(t, cfg.Widget, loaded.Widget)
	assert.Equal(t, "ru", loaded.UI.Language)

	again := New()
	assert.Equal(t, cfg.Widget, again.Widget, "New reads the saved file")
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("widget:\n  cache_depth: 1\n"), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.Widget.CacheDepth)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, listing.DefaultTimeout, cfg.Source.Timeout)
	assert.Equal(t, path, cfg.ConfigPath())
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("widget: [\n"), 0600))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestNew_CorruptFileFallsBack(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(os.Getenv(EnvHome), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("widget: [\n"), 0600))

	cfg := New()
	assert.Equal(t, path, cfg.ConfigPath())
	assert.Equal(t, Default().Logging, cfg.Logging)
}

func TestSave_NoPath(t *testing.T) {
	assert.Error(t, Default().Save())
}

func TestEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvSourceURL, "http://env.test/")
	t.Setenv(EnvCacheDepth, "3")
	t.Setenv(EnvWaitingMsg, "true")
	t.Setenv(EnvLanguage, "ru_RU.UTF-8")
	t.Setenv(cache.EnvEnabled, "false")
	t.Setenv(cache.EnvTTLSeconds, "2h")

	cfg := New()
	assert.Equal(t, "http://env.test/", cfg.Source.URL)
	assert.Equal(t, 3, cfg.Widget.CacheDepth)
	assert.True(t, cfg.Widget.ShowWaitingMessage)
	assert.Equal(t, "ru_RU.UTF-8", cfg.UI.Language)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, 7200, cfg.Cache.TTLSeconds)
}

func TestEnvOverrides_Unparseable(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvCacheDepth, "lots")
	t.Setenv(EnvWaitingMsg, "maybe")

	cfg := New()
	assert.Zero(t, cfg.Widget.CacheDepth)
	assert.False(t, cfg.Widget.ShowWaitingMessage)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative depth", func(c *Config) { c.Widget.CacheDepth = -1 }},
		{"depth too large", func(c *Config) { c.Widget.CacheDepth = dyntree.MaxCacheDepth + 1 }},
		{"negative concurrency", func(c *Config) { c.Widget.PrefetchConcurrency = -2 }},
		{"negative timeout", func(c *Config) { c.Source.Timeout = -time.Second }},
		{"ttl too short", func(c *Config) { c.Cache.TTLSeconds = 1 }},
		{"negative size", func(c *Config) { c.Cache.MaxSizeMB = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}

	t.Run("disabled cache skips cache checks", func(t *testing.T) {
		cfg := Default()
		cfg.Cache.Enabled = false
		cfg.Cache.TTLSeconds = 0
		assert.NoError(t, cfg.Validate())
	})
}

func TestCacheDirectory(t *testing.T) {
	clearEnv(t)
	cfg := Default()

	dir, err := cfg.CacheDirectory()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(os.Getenv(EnvHome), "cache"), dir)

	cfg.Cache.Directory = "/var/cache/dyntree"
	dir, err = cfg.CacheDirectory()
	require.NoError(t, err)
	assert.Equal(t, "/var/cache/dyntree", dir)
}
