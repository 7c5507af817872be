package cli_test

import (
	"bytes"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SkLight/dyntree/internal/cli"
	"github.com/SkLight/dyntree/internal/config"
	"github.com/SkLight/dyntree/internal/fixture"
)

const fixtureYAML = `
nodes:
  - id: 1
    name: Europe
    code: EU
    children:
      - id: 11
        name: France
        children:
          - {id: 111, name: Paris}
      - {id: 12, name: Spain}
  - id: 2
    name: Antarctica
  - id: 3
    name: Atlantis
    fail:
      code: E_FICTION
      message: no such continent
`

// setupCLITest isolates the CLI from the real home directory and global
// config, and returns a fixture file path.
func setupCLITest(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv(config.EnvHome, home)
	t.Setenv("DYNTREE_LOG_LEVEL", "error")
	t.Setenv(config.EnvSourceURL, "")
	t.Cleanup(config.ResetGlobalConfigForTest)

	path := filepath.Join(t.TempDir(), "tree.yaml")
	require.NoError(t, os.WriteFile(path, []byte(fixtureYAML), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := cli.NewRootCmd("test")
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(append([]string{"--lang", "en"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestPrint_Fixture(t *testing.T) {
	path := setupCLITest(t)

	out, err := execute(t, "print", "--fixture", path, "--depth", "2", "--codes", "--title", "world")
	require.NoError(t, err)

	assert.Contains(t, out, "world")
	assert.Contains(t, out, "Europe")
	assert.Contains(t, out, "[EU]")
	assert.Contains(t, out, "France")
	assert.Contains(t, out, "Spain")
	assert.NotContains(t, out, "Paris", "third level stays folded")
	assert.Contains(t, out, "Atlantis: failed to load")
	assert.Contains(t, out, "no such continent")
	assert.Contains(t, out, "listings cached")
}

func TestPrint_TopLevelOnly(t *testing.T) {
	path := setupCLITest(t)

	out, err := execute(t, "print", "--fixture", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Europe")
	assert.NotContains(t, out, "France")
	assert.Contains(t, out, "1 listing cached")
}

func TestPrint_JSON(t *testing.T) {
	path := setupCLITest(t)

	out, err := execute(t, "print", "--fixture", path, "--depth", "3", "--output", "json")
	require.NoError(t, err)

	var doc struct {
		Nodes []struct {
			ID       int64  `json:"id"`
			Name     string `json:"name"`
			Children []struct {
				Name     string `json:"name"`
				Children []struct {
					Name string `json:"name"`
				} `json:"children"`
			} `json:"children"`
		} `json:"nodes"`
		Failures []struct {
			ID int64 `json:"id"`
		} `json:"failures"`
		Stats struct {
			Cached int `json:"cached"`
		} `json:"stats"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &doc))

	require.Len(t, doc.Nodes, 3)
	assert.Equal(t, "Europe", doc.Nodes[0].Name)
	require.Len(t, doc.Nodes[0].Children, 2)
	require.Len(t, doc.Nodes[0].Children[0].Children, 1)
	assert.Equal(t, "Paris", doc.Nodes[0].Children[0].Children[0].Name)
	require.Len(t, doc.Failures, 1)
	assert.Equal(t, int64(3), doc.Failures[0].ID)
	assert.Positive(t, doc.Stats.Cached)
}

func TestPrint_Errors(t *testing.T) {
	path := setupCLITest(t)

	_, err := execute(t, "print")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no listing source")

	_, err = execute(t, "print", "--fixture", path, "--depth", "0")
	require.Error(t, err)

	_, err = execute(t, "print", "--fixture", path, "--output", "xml")
	require.Error(t, err)

	_, err = execute(t, "print", "--fixture", path, "--cache-depth", "-1")
	require.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestPrint_HTTPSourceFillsDiskCache(t *testing.T) {
	path := setupCLITest(t)
	tree, err := fixture.Load(path)
	require.NoError(t, err)
	handler := fixture.NewHandler(tree, zerolog.Nop())
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	out, err := execute(t, "print", "--url", srv.URL, "--depth", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "France")
	first := handler.TotalRequests()
	assert.Positive(t, first)

	// A second run is answered from disk.
	out, err = execute(t, "print", "--url", srv.URL, "--depth", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "France")
	assert.Less(t, handler.TotalRequests()-first, first, "cached listings are not refetched")

	out, err = execute(t, "cache", "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Entries:")

	out, err = execute(t, "cache", "stats", "--output", "json")
	require.NoError(t, err)
	var st struct {
		Entries int `json:"entries"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &st))
	assert.Positive(t, st.Entries)

	out, err = execute(t, "cache", "prune")
	require.NoError(t, err)
	assert.Contains(t, out, "Pruned 0 cached listing(s)")

	_, err = execute(t, "cache", "clear")
	require.Error(t, err, "clearing without a terminal needs --yes")

	out, err = execute(t, "cache", "clear", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "Removed")

	out, err = execute(t, "cache", "stats", "--output", "json")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &st))
	assert.Zero(t, st.Entries)
}

func TestCache_Disabled(t *testing.T) {
	setupCLITest(t)

	out, err := execute(t, "--no-disk-cache", "cache", "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Disk cache is disabled")
}

func TestBrowse_FallsBackToPrintWithoutTerminal(t *testing.T) {
	path := setupCLITest(t)

	out, err := execute(t, "browse", "--fixture", path, "--plain")
	require.NoError(t, err)
	assert.Contains(t, out, "Europe")
	assert.Contains(t, out, "Antarctica")
}

func TestConfig_InitShowPathValidate(t *testing.T) {
	setupCLITest(t)
	home := os.Getenv(config.EnvHome)

	out, err := execute(t, "config", "path")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "config.yaml"), strings.TrimSpace(out))

	out, err = execute(t, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration initialized successfully")
	assert.FileExists(t, filepath.Join(home, "config.yaml"))

	_, err = execute(t, "config", "init")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, err = execute(t, "config", "init", "--force")
	require.NoError(t, err)

	out, err = execute(t, "--cache-depth", "2", "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "cache_depth: 2")

	out, err = execute(t, "config", "validate", "--verbose")
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration is valid")
	assert.Contains(t, out, "Cache depth: 0")
}

func TestConfig_ValidateRejectsBadFile(t *testing.T) {
	setupCLITest(t)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("widget:\n  cache_depth: 99\n"), 0o600))

	_, err := execute(t, "config", "validate", bad)
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestServe_RequiresTree(t *testing.T) {
	setupCLITest(t)

	_, err := execute(t, "serve")
	require.Error(t, err)

	_, err = execute(t, "serve", "--generate", "3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "depth,fanout")
}
