/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/yandextaxitech/binaryprefs/pkg/config"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a configuration file with generated keys",
	Long: `Create a binprefs configuration file with a generated API key, value
encryption key and key name secret, and create the data directory.

Examples:
  binprefs init
  binprefs init --config ./binprefs.toml --data-dir ./data --print-keys`,
	Annotations: map[string]string{skipStore: "true"},
	Args:        cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		dataDir, _ := cmd.Flags().GetString("data-dir")
		force, _ := cmd.Flags().GetBool("force")
		printKeys, _ := cmd.Flags().GetBool("print-keys")

		// Use default config path if not specified
		if configPath == "" {
			configPath = config.GetDefaultConfigPath()
		}

		if config.ConfigExists(configPath) && !force {
			cmd.Printf("Configuration already exists at %s. Use --force to overwrite.\n", configPath)
			return nil
		}

		cfg, err := config.BootstrapConfig(configPath, dataDir)
		if err != nil {
			return fmt.Errorf("error bootstrapping config: %w", err)
		}
		if err := os.MkdirAll(cfg.DataDir, 0o750); err != nil {
			return fmt.Errorf("error creating data directory: %w", err)
		}

		cmd.Printf("Configuration created at %s\n", configPath)
		cmd.Printf("Data directory: %s\n", cfg.DataDir)

		if printKeys {
			cmd.Printf("\nGenerated Keys:\n")
			cmd.Printf("API Key: %s\n", cfg.Security.APIKey)
			cmd.Printf("Value Key: %s\n", cfg.Security.ValueKey)
			cmd.Printf("Key Name Secret: %s\n", cfg.Security.KeyXorSecret)
			cmd.Printf("\nStore these keys securely! They are also saved in %s\n", configPath)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().Bool("force", false, "Overwrite an existing configuration")
	initCmd.Flags().Bool("print-keys", false, "Print generated keys to console")
}
