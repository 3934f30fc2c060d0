package cli

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/gridforge/internal/testutil"
)

func lookup(vars map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := vars[k]
		return v, ok
	}
}

func execute(t *testing.T, vars map[string]string, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	cmd := NewRootCommand(out, lookup(vars))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestHelp(t *testing.T) {
	out, err := execute(t, nil, "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "build")
	assert.Contains(t, out, "schema")
}

func TestUnknownFlag(t *testing.T) {
	_, err := execute(t, nil, "--this-is-not-a-valid-flag")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown flag")
}

func TestBuild_RequiresCollection(t *testing.T) {
	_, err := execute(t, nil, "build", "schema.hcl")
	assert.ErrorContains(t, err, `required flag(s) "collection" not set`)
}

func TestBuild_InvalidLogLevelIsUsageError(t *testing.T) {
	_, err := execute(t, nil, "--log-level", "loud", "build", "schema.hcl", "-c", "site")
	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, 2, exitErr.Code)
	assert.Contains(t, exitErr.Message, "LogLevel")
}

func TestBuild_EnvDefaults(t *testing.T) {
	_, err := execute(t, map[string]string{EnvWorkers: "0"}, "build", "schema.hcl", "-c", "site")
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Contains(t, exitErr.Message, "WorkerCount")
}

func TestBuild_WritesCollection(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(t.TempDir(), "dist")
	testutil.WriteFiles(t, dir, map[string]string{
		"build.hcl": `
file_group "src" {
  root  = "src"
  items = ["*.txt"]
}

collection "site" {
  item {
    content = file_group.src
  }
}
`,
		"src/a.txt": "a",
	})

	stdout, err := execute(t, nil, "build", filepath.Join(dir, "build.hcl"), "--collection", "site", "--out", out, "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, stdout, `Wrote 1 files of collection "site".`)
	assert.Equal(t, "a", testutil.ReadFile(t, out, "a.txt"))
}

func TestBuild_ExcludeFlagKeepsStateDirExcluded(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFiles(t, dir, map[string]string{
		"build.hcl": `
file_group "all" {
  items = ["**/*.txt"]
}

collection "site" {
  item {
    content = file_group.all
  }
}
`,
		"a.txt":                  "a",
		"node_modules/dep/x.txt": "x",
	})
	schema := filepath.Join(dir, "build.hcl")

	for i := 0; i < 2; i++ {
		stdout, err := execute(t, nil, "build", schema, "-c", "site", "--exclude", "node_modules", "--log-level", "error")
		require.NoError(t, err)
		assert.Contains(t, stdout, `Wrote 1 files of collection "site".`, "build %d", i+1)
	}
	assert.Equal(t, "a", testutil.ReadFile(t, dir, ".gridforge/collections/site/a.txt"))
}

func TestRun_NeedsSchemaOrRegistry(t *testing.T) {
	_, err := execute(t, nil, "run")
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 2, exitErr.Code)
}

func TestSchemaCommands(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFiles(t, dir, map[string]string{"build.hcl": ""})
	vars := map[string]string{EnvRegistry: filepath.Join(t.TempDir(), "registry.db"), EnvLogLevel: "error"}
	schema := filepath.Join(dir, "build.hcl")

	out, err := execute(t, vars, "schema", "add", schema)
	require.NoError(t, err)
	url := strings.TrimSpace(out)
	assert.True(t, strings.HasPrefix(url, "file://"))

	out, err = execute(t, vars, "schema", "list")
	require.NoError(t, err)
	assert.Equal(t, url+"\n", out)

	_, err = execute(t, vars, "schema", "remove", schema)
	require.NoError(t, err)

	out, err = execute(t, vars, "schema", "list")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestEnvList(t *testing.T) {
	e := env(lookup(map[string]string{EnvExclude: " node_modules, ,dist "}))
	assert.Equal(t, []string{"node_modules", "dist"}, e.list(EnvExclude))
	assert.Nil(t, e.list("MISSING"))
	assert.Equal(t, 3, e.int("MISSING", 3))
}
