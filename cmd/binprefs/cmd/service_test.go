package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yandextaxitech/binaryprefs/pkg/config"
)

// recordCommands replaces runCommand and returns the calls it receives
func recordCommands(t *testing.T) *[]string {
	t.Helper()
	var calls []string
	previous := runCommand
	runCommand = func(_ *cobra.Command, command string, args ...string) error {
		calls = append(calls, command+" "+strings.Join(args, " "))
		return nil
	}
	t.Cleanup(func() { runCommand = previous })
	return &calls
}

func runService(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	t.Cleanup(func() { rootCmd.SetOut(nil) })
	err := run(context.Background(), append([]string{"service"}, args...))
	return stdout.String(), err
}

func TestSystemdUnit(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Name = "app"
	cfg.DataDir = "/var/lib/binprefs"

	unit := systemdUnit(cfg, "/etc/binprefs/config.yaml", "testuser", "/usr/local/bin/binprefs")

	assert.Contains(t, unit, "User=testuser")
	assert.Contains(t, unit, "Group=testuser")
	assert.Contains(t, unit, "ExecStart=/usr/local/bin/binprefs serve --config /etc/binprefs/config.yaml --name app")
	assert.Contains(t, unit, "ReadWritePaths=/var/lib/binprefs")
	assert.Contains(t, unit, "ReadOnlyPaths=/etc/binprefs")
	assert.Contains(t, unit, "WantedBy=multi-user.target")
}

func TestServiceInstall(t *testing.T) {
	calls := recordCommands(t)
	dir := t.TempDir()
	unitDir := filepath.Join(dir, "units")
	require.NoError(t, os.Mkdir(unitDir, 0o755))
	configPath := filepath.Join(dir, "binprefs.yaml")
	dataDir := filepath.Join(dir, "data")

	_, err := runService(t, "install",
		"--config", configPath, "--data-dir", dataDir, "--name", "app",
		"--port", "9000", "--unit-dir", unitDir)
	require.NoError(t, err)

	unit, err := os.ReadFile(filepath.Join(unitDir, "binprefs-app.service"))
	require.NoError(t, err)
	assert.Contains(t, string(unit), "--name app")

	cfg, err := config.LoadConfig(configPath)
	require.NoError(t, err)
	assert.Equal(t, "app", cfg.Name)
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, dataDir, cfg.DataDir)
	assert.NotEmpty(t, cfg.Security.APIKey)

	assert.Equal(t, []string{
		"systemctl daemon-reload",
		"systemctl enable binprefs-app.service",
		"systemctl start binprefs-app.service",
	}, *calls)
}

func TestServiceControl(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected []string
	}{
		{"start", []string{"start", "--name", "app"}, []string{"systemctl start binprefs-app.service"}},
		{"stop default store", []string{"stop"}, []string{"systemctl stop binprefs-default.service"}},
		{"status", []string{"status", "--name", "app"}, []string{"systemctl status binprefs-app.service"}},
		{"logs", []string{"logs", "--name", "app", "-f", "--lines", "50"}, []string{"journalctl -u binprefs-app.service -f -n50"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := recordCommands(t)
			_, err := runService(t, tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, *calls)
		})
	}
}

func TestServiceUninstall(t *testing.T) {
	calls := recordCommands(t)
	unitDir := t.TempDir()
	unitPath := filepath.Join(unitDir, "binprefs-app.service")
	require.NoError(t, os.WriteFile(unitPath, []byte("[Unit]\n"), 0o644))

	_, err := runService(t, "uninstall", "--name", "app", "--unit-dir", unitDir)
	require.NoError(t, err)

	assert.NoFileExists(t, unitPath)
	assert.Equal(t, []string{
		"systemctl stop binprefs-app.service",
		"systemctl disable binprefs-app.service",
		"systemctl daemon-reload",
	}, *calls)
}
