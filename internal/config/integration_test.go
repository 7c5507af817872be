package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SkLight/dyntree/internal/logging"
)

func TestGlobalConfig(t *testing.T) {
	t.Setenv(EnvHome, t.TempDir())
	ResetGlobalConfigForTest()
	t.Cleanup(ResetGlobalConfigForTest)

	// Test GetGlobalConfig initializes if needed
	cfg := GetGlobalConfig()
	require.NotNil(t, cfg)
	assert.Equal(t, "info", cfg.Logging.Level)

	// Test that subsequent calls return the same instance
	assert.Same(t, cfg, GetGlobalConfig())

	// Test ResetGlobalConfigForTest resets the instance
	ResetGlobalConfigForTest()
	assert.NotSame(t, cfg, GetGlobalConfig())

	replacement := Default()
	SetGlobalConfig(replacement)
	assert.Same(t, replacement, GetGlobalConfig())
}

func TestConfigGetters(t *testing.T) {
	t.Setenv(EnvHome, t.TempDir())
	ResetGlobalConfigForTest()
	t.Cleanup(ResetGlobalConfigForTest)

	cfg := GetGlobalConfig()
	cfg.Source.URL = "http://example.test/"
	cfg.UI.Language = "ru"
	cfg.Logging.Level = "debug"
	cfg.Logging.File = "/tmp/test.log"

	assert.Equal(t, "http://example.test/", GetSourceURL())
	assert.Equal(t, "ru", GetLanguage())
	assert.Equal(t, "debug", GetLogLevel())
	assert.Equal(t, "/tmp/test.log", GetLogFile())
	assert.Equal(t, cfg.Logging, GetLoggingConfig())
}

func TestEnsureConfigDir(t *testing.T) {
	tmpHome := t.TempDir()

	// Mock home directory for both Unix and Windows
	t.Setenv(EnvHome, "")
	t.Setenv("HOME", tmpHome)
	t.Setenv("USERPROFILE", tmpHome)

	require.NoError(t, EnsureConfigDir())

	stat, err := os.Stat(filepath.Join(tmpHome, ".dyntree"))
	require.NoError(t, err)
	assert.True(t, stat.IsDir())
}

func TestEnsureLogDir(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv(EnvHome, tmpDir)
	ResetGlobalConfigForTest()
	t.Cleanup(ResetGlobalConfigForTest)

	require.NoError(t, EnsureLogDir(), "no log file configured is a no-op")

	logFile := filepath.Join(tmpDir, "logs", "nested", "dyntree.log")
	GetGlobalConfig().Logging.File = logFile
	require.NoError(t, EnsureLogDir())

	stat, err := os.Stat(filepath.Dir(logFile))
	require.NoError(t, err)
	assert.True(t, stat.IsDir())
}

func TestEnsureLogDirError(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv(EnvHome, tmpDir)
	ResetGlobalConfigForTest()
	t.Cleanup(ResetGlobalConfigForTest)

	// A regular file where a directory is expected.
	blocker := filepath.Join(tmpDir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0600))
	GetGlobalConfig().Logging.File = filepath.Join(blocker, "sub", "dyntree.log")

	err := EnsureLogDir()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create log directory")
}

func TestGetConfigDir(t *testing.T) {
	t.Setenv(EnvHome, "/custom/dyntree")
	dir, err := GetConfigDir()
	require.NoError(t, err)
	assert.Equal(t, "/custom/dyntree", dir)

	tmpHome := t.TempDir()
	t.Setenv(EnvHome, "")
	t.Setenv("HOME", tmpHome)
	t.Setenv("USERPROFILE", tmpHome)
	dir, err = GetConfigDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(tmpHome, ".dyntree"), dir)
}

func TestToLoggingConfig(t *testing.T) {
	tests := []struct {
		name       string
		in         LoggingConfig
		wantOutput string
	}{
		{"stderr", LoggingConfig{Level: "warn", Format: "json"}, logging.OutputStderr},
		{"file", LoggingConfig{Level: "debug", File: "/tmp/x.log"}, logging.OutputFile},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.in.ToLoggingConfig()
			assert.Equal(t, tt.wantOutput, got.Output)
			assert.Equal(t, tt.in.Level, got.Level)
			assert.Equal(t, tt.in.Format, got.Format)
			assert.Equal(t, tt.in.File, got.File)
		})
	}
}
