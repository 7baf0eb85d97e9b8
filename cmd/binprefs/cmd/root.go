/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/yandextaxitech/binaryprefs/pkg/config"
	"github.com/yandextaxitech/binaryprefs/pkg/di"
	"github.com/yandextaxitech/binaryprefs/pkg/prefs"
)

type contextKey string

const (
	containerKey contextKey = "container"
	storeKey     contextKey = "store"
)

// skipStore marks commands that run without opening a store
const skipStore = "skip-store"

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "binprefs",
	Short: "binprefs - typed binary preference store",
	Long: `binprefs manages preference stores that keep one tagged binary value per
key, with optional key and value encryption and cross-process change
notification.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Annotations[skipStore] == "true" {
			return nil
		}

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		logger, err := di.NewLogger(cfg.Logging)
		if err != nil {
			return err
		}
		logger.SetOutput(cmd.ErrOrStderr())

		if err := os.MkdirAll(cfg.DataDir, 0o750); err != nil {
			return fmt.Errorf("failed to create data dir: %w", err)
		}
		container, err := di.NewContainer(cmd.Context(), cfg, logger)
		if err != nil {
			return fmt.Errorf("failed to set up store: %w", err)
		}
		p, err := container.Open(cfg.Name)
		if err != nil {
			_ = container.Close()
			return fmt.Errorf("failed to open store %q: %w", cfg.Name, err)
		}
		logger.WithFields(log.Fields{"store": cfg.Name, "data_dir": cfg.DataDir, "backend": cfg.Backend}).Debug("store opened")

		active = container

		// Store in command context
		ctx := context.WithValue(cmd.Context(), containerKey, container)
		cmd.SetContext(context.WithValue(ctx, storeKey, p))
		return nil
	},
}

// active is the container opened for the running command
var active *di.Container

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		os.Exit(1)
	}
}

// run executes the command line args and releases the store afterwards
func run(ctx context.Context, args []string) error {
	rootCmd.SetArgs(args)
	defer func() {
		if active != nil {
			if err := active.Close(); err != nil {
				rootCmd.PrintErrf("Error closing store: %v\n", err)
			}
			active = nil
		}
	}()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to config file (default: OS-specific location)")
	rootCmd.PersistentFlags().StringP("data-dir", "d", "", "Data directory for the stores")
	rootCmd.PersistentFlags().StringP("name", "n", "", "Name of the store to open")
	rootCmd.PersistentFlags().String("backend", "", "Storage backend: files or pebble")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error")
}

// loadConfig reads the config file if there is one and applies flag overrides
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")
	explicit := configPath != ""
	if !explicit {
		configPath = config.GetDefaultConfigPath()
	}

	cfg := config.DefaultConfig()
	if explicit || config.ConfigExists(configPath) {
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if v, _ := cmd.Flags().GetString("data-dir"); v != "" {
		cfg.DataDir = v
	}
	if v, _ := cmd.Flags().GetString("name"); v != "" {
		cfg.Name = v
	}
	if v, _ := cmd.Flags().GetString("backend"); v != "" {
		cfg.Backend = v
	}
	if v, _ := cmd.Flags().GetString("log-level"); v != "" {
		cfg.Logging.Level = v
	}
	return cfg, nil
}

// storeFrom returns the store opened by the root command
func storeFrom(cmd *cobra.Command) (*prefs.Preferences, error) {
	p, ok := cmd.Context().Value(storeKey).(*prefs.Preferences)
	if !ok {
		return nil, fmt.Errorf("store not found in context")
	}
	return p, nil
}

// containerFrom returns the container built by the root command
func containerFrom(cmd *cobra.Command) (*di.Container, error) {
	c, ok := cmd.Context().Value(containerKey).(*di.Container)
	if !ok {
		return nil, fmt.Errorf("container not found in context")
	}
	return c, nil
}
