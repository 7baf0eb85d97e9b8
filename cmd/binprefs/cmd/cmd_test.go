package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yandextaxitech/binaryprefs/pkg/config"
	"github.com/yandextaxitech/binaryprefs/pkg/snapshot"
)

// resetFlags restores every flag of the command tree to its default so
// that runs do not leak into each other
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.PersistentFlags().VisitAll(reset)
	c.Flags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// execute runs the CLI against a config file in dir and returns stdout
func execute(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetIn(strings.NewReader(""))
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetIn(nil)
	})

	full := append([]string{"--config", filepath.Join(dir, "binprefs.yaml")}, args...)
	err := run(context.Background(), full)
	return stdout.String(), err
}

// setupCLI writes a config file pointing at a fresh data directory
func setupCLI(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.DataDir = filepath.Join(dir, "data")
	cfg.Logging.Level = "error"
	require.NoError(t, config.SaveConfig(cfg, filepath.Join(dir, "binprefs.yaml")))
	return dir
}

func TestPutGet(t *testing.T) {
	dir := setupCLI(t)

	tests := []struct {
		name     string
		put      []string
		key      string
		expected string
	}{
		{"string", []string{"put", "theme", "dark"}, "theme", "dark\n"},
		{"int", []string{"put", "launches", "42", "--kind", "int"}, "launches", "42\n"},
		{"boolean", []string{"put", "enabled", "true", "-k", "boolean"}, "enabled", "true\n"},
		{"double", []string{"put", "ratio", "0.25", "--kind", "double"}, "ratio", "0.25\n"},
		{"string set", []string{"put", "tags", "red", "green", "--kind", "string-set"}, "tags", "green\nred\n"},
		{"byte array", []string{"put", "blob", "AAEC", "--kind", "byte-array"}, "blob", "AAEC\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, dir, tt.put...)
			require.NoError(t, err)

			out, err := execute(t, dir, "get", tt.key)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, out)
		})
	}
}

func TestGetJSON(t *testing.T) {
	dir := setupCLI(t)

	_, err := execute(t, dir, "put", "count", "7", "--kind", "long")
	require.NoError(t, err)

	out, err := execute(t, dir, "get", "count", "--json")
	require.NoError(t, err)

	var entry snapshot.Entry
	require.NoError(t, json.Unmarshal([]byte(out), &entry))
	assert.Equal(t, snapshot.Entry{Key: "count", Kind: "long", Value: "7"}, entry)
}

func TestPutErrors(t *testing.T) {
	dir := setupCLI(t)

	tests := []struct {
		name string
		args []string
	}{
		{"missing value", []string{"put", "k"}},
		{"too many values", []string{"put", "k", "a", "b", "--kind", "int"}},
		{"unknown kind", []string{"put", "k", "1", "--kind", "decimal"}},
		{"invalid number", []string{"put", "k", "x", "--kind", "int"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, dir, tt.args...)
			assert.Error(t, err)
		})
	}

	_, err := execute(t, dir, "get", "k")
	assert.Error(t, err)
}

func TestDeleteAndList(t *testing.T) {
	dir := setupCLI(t)

	for _, args := range [][]string{
		{"put", "user.name", "ada"},
		{"put", "user.id", "7", "--kind", "int"},
		{"put", "debug", "false", "--kind", "boolean"},
	} {
		_, err := execute(t, dir, args...)
		require.NoError(t, err)
	}

	out, err := execute(t, dir, "list", "--keys-only")
	require.NoError(t, err)
	assert.Equal(t, "debug\nuser.id\nuser.name\n", out)

	out, err = execute(t, dir, "list", "--prefix", "user.")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, []string{"user.id", "int", "7"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"user.name", "string", "ada"}, strings.Fields(lines[1]))

	_, err = execute(t, dir, "delete", "user.id", "debug")
	require.NoError(t, err)

	out, err = execute(t, dir, "list", "--keys-only")
	require.NoError(t, err)
	assert.Equal(t, "user.name\n", out)

	_, err = execute(t, dir, "delete")
	assert.Error(t, err)

	_, err = execute(t, dir, "delete", "--all")
	require.NoError(t, err)

	out, err = execute(t, dir, "list", "--keys-only")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestSeparateStores(t *testing.T) {
	dir := setupCLI(t)

	_, err := execute(t, dir, "--name", "one", "put", "k", "1")
	require.NoError(t, err)

	out, err := execute(t, dir, "--name", "two", "list", "--keys-only")
	require.NoError(t, err)
	assert.Empty(t, out)

	out, err = execute(t, dir, "--name", "one", "get", "k")
	require.NoError(t, err)
	assert.Equal(t, "1\n", out)
}

func TestExportImport(t *testing.T) {
	dir := setupCLI(t)

	_, err := execute(t, dir, "put", "theme", "dark")
	require.NoError(t, err)
	_, err = execute(t, dir, "put", "size", "12", "--kind", "short")
	require.NoError(t, err)

	for _, ext := range []string{"json", "yaml", "mp"} {
		t.Run(ext, func(t *testing.T) {
			path := filepath.Join(dir, "prefs."+ext)
			_, err := execute(t, dir, "export", "--output", path)
			require.NoError(t, err)
			require.FileExists(t, path)

			_, err = execute(t, dir, "--name", "copy-"+ext, "put", "stale", "x")
			require.NoError(t, err)

			_, err = execute(t, dir, "--name", "copy-"+ext, "import", path, "--replace")
			require.NoError(t, err)

			out, err := execute(t, dir, "--name", "copy-"+ext, "list", "--keys-only")
			require.NoError(t, err)
			assert.Equal(t, "size\ntheme\n", out)

			out, err = execute(t, dir, "--name", "copy-"+ext, "get", "size")
			require.NoError(t, err)
			assert.Equal(t, "12\n", out)
		})
	}
}

func TestExportStdout(t *testing.T) {
	dir := setupCLI(t)

	_, err := execute(t, dir, "put", "theme", "dark")
	require.NoError(t, err)

	out, err := execute(t, dir, "export", "--format", "yaml")
	require.NoError(t, err)

	snap, err := snapshot.Decode([]byte(out), snapshot.FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, "default", snap.Store)
	assert.Equal(t, []snapshot.Entry{{Key: "theme", Kind: "string", Value: "dark"}}, snap.Entries)
}

func TestPebbleBackend(t *testing.T) {
	dir := setupCLI(t)

	_, err := execute(t, dir, "--backend", "pebble", "put", "k", "v")
	require.NoError(t, err)

	out, err := execute(t, dir, "--backend", "pebble", "get", "k")
	require.NoError(t, err)
	assert.Equal(t, "v\n", out)

	_, err = execute(t, dir, "get", "k")
	assert.Error(t, err, "file backend must not see pebble values")
}

func TestInitCommand(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "binprefs.toml")
	dataDir := filepath.Join(dir, "data")

	t.Run("Successful initialization", func(t *testing.T) {
		resetFlags(rootCmd)
		var stdout bytes.Buffer
		rootCmd.SetOut(&stdout)
		defer rootCmd.SetOut(nil)

		err := run(context.Background(), []string{"init", "--config", configPath, "--data-dir", dataDir, "--print-keys"})
		require.NoError(t, err)

		assert.FileExists(t, configPath)
		assert.DirExists(t, dataDir)

		cfg, err := config.LoadConfig(configPath)
		require.NoError(t, err)
		assert.Len(t, cfg.Security.APIKey, 64)
		assert.Len(t, cfg.Security.ValueKey, 64)
		assert.Len(t, cfg.Security.KeyXorSecret, 32)
		assert.Contains(t, stdout.String(), cfg.Security.APIKey)
	})

	t.Run("Existing configuration is kept", func(t *testing.T) {
		before, err := os.ReadFile(configPath)
		require.NoError(t, err)

		resetFlags(rootCmd)
		err = run(context.Background(), []string{"init", "--config", configPath})
		require.NoError(t, err)

		after, err := os.ReadFile(configPath)
		require.NoError(t, err)
		assert.Equal(t, before, after)
	})

	t.Run("Encrypted store round trip", func(t *testing.T) {
		_, err := execute(t, dir, "--config", configPath, "put", "secret", "s3cr3t")
		require.NoError(t, err)

		out, err := execute(t, dir, "--config", configPath, "get", "secret")
		require.NoError(t, err)
		assert.Equal(t, "s3cr3t\n", out)

		entries, err := os.ReadDir(filepath.Join(dataDir, "default", "values"))
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.NotEqual(t, "secret", entries[0].Name())
	})
}

func TestMissingConfig(t *testing.T) {
	resetFlags(rootCmd)
	err := run(context.Background(), []string{"--config", filepath.Join(t.TempDir(), "missing.yaml"), "list"})
	assert.Error(t, err)
}
