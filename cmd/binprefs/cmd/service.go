/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/yandextaxitech/binaryprefs/pkg/config"
)

const defaultUnitDir = "/etc/systemd/system"

// runCommand runs a system command; tests replace it
var runCommand = func(cmd *cobra.Command, command string, args ...string) error {
	c := exec.Command(command, args...)
	c.Stdout = cmd.OutOrStdout()
	c.Stderr = cmd.ErrOrStderr()
	return c.Run()
}

// serviceCmd represents the service command
var serviceCmd = &cobra.Command{
	Use:   "service",
	Short: "Manage a binprefs server as a systemd service",
	Long: `Manage the REST API server of one store as a systemd service. Each
store gets its own unit named binprefs-<name>.service.`,
	Annotations: map[string]string{skipStore: "true"},
}

// installServiceCmd represents the service install command
var installServiceCmd = &cobra.Command{
	Use:   "install",
	Short: "Install the server of a store as a systemd service",
	Long: `Install the REST API server of a store as a systemd service.

This will:
- Create or use the existing configuration
- Generate the systemd unit file
- Enable and optionally start the service

Examples:
  binprefs service install --name app
  binprefs service install --name app --data-dir /var/lib/binprefs --user binprefs`,
	Annotations: map[string]string{skipStore: "true"},
	Args:        cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		dataDir, _ := cmd.Flags().GetString("data-dir")
		user, _ := cmd.Flags().GetString("user")
		unitDir, _ := cmd.Flags().GetString("unit-dir")
		startNow, _ := cmd.Flags().GetBool("start")

		// Use default config path if not specified
		if configPath == "" {
			configPath = config.GetDefaultConfigPath()
		}
		if unitDir == defaultUnitDir && os.Geteuid() != 0 {
			return fmt.Errorf("service install requires root privileges; run with: sudo binprefs service install")
		}

		var cfg *config.Config
		var err error
		if config.ConfigExists(configPath) {
			if cfg, err = config.LoadConfig(configPath); err != nil {
				return fmt.Errorf("error loading config: %w", err)
			}
		} else {
			if cfg, err = config.BootstrapConfig(configPath, dataDir); err != nil {
				return fmt.Errorf("error bootstrapping config: %w", err)
			}
			cmd.Printf("Created new configuration at %s\n", configPath)
		}

		if dataDir != "" {
			cfg.DataDir = dataDir
		}
		if name, _ := cmd.Flags().GetString("name"); name != "" {
			cfg.Name = name
		}
		if cmd.Flags().Changed("port") {
			cfg.Port, _ = cmd.Flags().GetInt("port")
		}
		if err := config.SaveConfig(cfg, configPath); err != nil {
			return fmt.Errorf("error saving config: %w", err)
		}

		binary, err := os.Executable()
		if err != nil {
			return fmt.Errorf("failed to locate binprefs binary: %w", err)
		}
		unitPath := filepath.Join(unitDir, unitName(cfg.Name))
		if err := os.WriteFile(unitPath, []byte(systemdUnit(cfg, configPath, user, binary)), 0o644); err != nil {
			return fmt.Errorf("error creating systemd unit: %w", err)
		}
		cmd.Printf("Wrote %s\n", unitPath)

		if err := runCommand(cmd, "systemctl", "daemon-reload"); err != nil {
			return fmt.Errorf("error reloading systemd: %w", err)
		}
		if err := runCommand(cmd, "systemctl", "enable", unitName(cfg.Name)); err != nil {
			return fmt.Errorf("error enabling service: %w", err)
		}
		if startNow {
			if err := runCommand(cmd, "systemctl", "start", unitName(cfg.Name)); err != nil {
				return fmt.Errorf("error starting service: %w", err)
			}
		}

		cmd.Printf("Service %s installed for store '%s' on port %d\n", unitName(cfg.Name), cfg.Name, cfg.Port)
		return nil
	},
}

// uninstallServiceCmd represents the service uninstall command
var uninstallServiceCmd = &cobra.Command{
	Use:         "uninstall",
	Short:       "Uninstall the systemd service of a store",
	Annotations: map[string]string{skipStore: "true"},
	Args:        cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		unitDir, _ := cmd.Flags().GetString("unit-dir")
		unit := unitName(storeName(cmd))

		// Ignore errors if already stopped
		_ = runCommand(cmd, "systemctl", "stop", unit)
		if err := runCommand(cmd, "systemctl", "disable", unit); err != nil {
			cmd.Printf("Warning: could not disable service: %v\n", err)
		}

		unitPath := filepath.Join(unitDir, unit)
		if err := os.Remove(unitPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("error removing unit file: %w", err)
		}
		if err := runCommand(cmd, "systemctl", "daemon-reload"); err != nil {
			return fmt.Errorf("error reloading systemd: %w", err)
		}

		cmd.Printf("Service %s uninstalled. Configuration and data files were not removed\n", unit)
		return nil
	},
}

// systemctlCmd builds a service subcommand that forwards to systemctl
func systemctlCmd(action, short string) *cobra.Command {
	return &cobra.Command{
		Use:         action,
		Short:       short,
		Annotations: map[string]string{skipStore: "true"},
		Args:        cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCommand(cmd, "systemctl", action, unitName(storeName(cmd)))
		},
	}
}

// logsServiceCmd represents the service logs command
var logsServiceCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show service logs",
	Long: `Show the service logs of a store using journalctl.

Examples:
  binprefs service logs --name app
  binprefs service logs --name app -f`,
	Annotations: map[string]string{skipStore: "true"},
	Args:        cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		follow, _ := cmd.Flags().GetBool("follow")
		lines, _ := cmd.Flags().GetInt("lines")

		journalArgs := []string{"-u", unitName(storeName(cmd))}
		if follow {
			journalArgs = append(journalArgs, "-f")
		}
		if lines > 0 {
			journalArgs = append(journalArgs, fmt.Sprintf("-n%d", lines))
		}
		return runCommand(cmd, "journalctl", journalArgs...)
	},
}

func init() {
	rootCmd.AddCommand(serviceCmd)

	serviceCmd.AddCommand(installServiceCmd)
	serviceCmd.AddCommand(uninstallServiceCmd)
	serviceCmd.AddCommand(systemctlCmd("start", "Start the service"))
	serviceCmd.AddCommand(systemctlCmd("stop", "Stop the service"))
	serviceCmd.AddCommand(systemctlCmd("restart", "Restart the service"))
	serviceCmd.AddCommand(systemctlCmd("status", "Show service status"))
	serviceCmd.AddCommand(logsServiceCmd)

	serviceCmd.PersistentFlags().String("unit-dir", defaultUnitDir, "Directory for systemd unit files")

	installServiceCmd.Flags().String("user", "binprefs", "User to run the service as")
	installServiceCmd.Flags().Int("port", 8080, "Port for the service")
	installServiceCmd.Flags().Bool("start", true, "Start the service after installation")

	logsServiceCmd.Flags().BoolP("follow", "f", false, "Follow log output")
	logsServiceCmd.Flags().IntP("lines", "l", 0, "Number of lines to show")
}

// storeName returns --name or the default store name
func storeName(cmd *cobra.Command) string {
	if name, _ := cmd.Flags().GetString("name"); name != "" {
		return name
	}
	return config.DefaultConfig().Name
}

func unitName(store string) string {
	return "binprefs-" + store + ".service"
}

// systemdUnit renders the unit file that serves cfg.Name
func systemdUnit(cfg *config.Config, configPath, user, binary string) string {
	return fmt.Sprintf(`[Unit]
Description=binprefs server for store %s
After=network-online.target
Wants=network-online.target

[Service]
User=%s
Group=%s
ExecStart=%s serve --config %s --name %s
Restart=on-failure
NoNewPrivileges=true
UMask=0077
ReadWritePaths=%s
ReadOnlyPaths=%s

[Install]
WantedBy=multi-user.target
`, cfg.Name, user, user, binary, configPath, cfg.Name, cfg.DataDir, filepath.Dir(configPath))
}
