/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/yandextaxitech/binaryprefs/pkg/api"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long: `Start the binprefs REST API server for the opened store.

Port, bind address and API key default to the configuration file. An empty
API key disables authentication.

Examples:
  binprefs serve
  binprefs serve --name app --port 9000 --api-key=mysecretkey`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		container, err := containerFrom(cmd)
		if err != nil {
			return err
		}
		p, err := storeFrom(cmd)
		if err != nil {
			return err
		}

		cfg := container.Config()
		config := api.ServerConfig{
			Port:   cfg.Port,
			Bind:   cfg.Bind,
			APIKey: cfg.Security.APIKey,
		}
		if cmd.Flags().Changed("port") {
			config.Port, _ = cmd.Flags().GetInt("port")
		}
		if cmd.Flags().Changed("bind") {
			config.Bind, _ = cmd.Flags().GetString("bind")
		}
		if cmd.Flags().Changed("api-key") {
			config.APIKey, _ = cmd.Flags().GetString("api-key")
		}

		server := api.NewServer(p, config, container.Metrics(), container.Logger())
		return server.ListenAndServe(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on")
	serveCmd.Flags().String("bind", "127.0.0.1", "Address to bind server to")
	serveCmd.Flags().String("api-key", "", "API key for client authentication")
}
