package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/yandextaxitech/binaryprefs/pkg/snapshot"
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the store to a snapshot document",
	Long: `Export every value of the store as a JSON, YAML or MessagePack
document. Without --output the document is written to stdout. The format
defaults to the extension of the output file.

Example:
  binprefs export --output prefs.yaml
  binprefs export --format msgpack > prefs.mp`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")
		format, err := formatFlag(cmd, output)
		if err != nil {
			return err
		}

		// Get store from context
		p, err := storeFrom(cmd)
		if err != nil {
			return err
		}

		snap, err := snapshot.Take(p)
		if err != nil {
			return fmt.Errorf("error taking snapshot: %w", err)
		}
		data, err := snapshot.Encode(snap, format)
		if err != nil {
			return err
		}

		if output == "" {
			_, err = cmd.OutOrStdout().Write(data)
			return err
		}
		if err := os.WriteFile(output, data, 0o600); err != nil {
			return fmt.Errorf("failed to write %s: %w", output, err)
		}
		cmd.Printf("Exported %d key(s) to %s\n", len(snap.Entries), output)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringP("output", "o", "", "File to write the snapshot to")
	exportCmd.Flags().StringP("format", "f", "", "Document format: json, yaml or msgpack")
}

// formatFlag picks the snapshot format from --format, else from path
func formatFlag(cmd *cobra.Command, path string) (snapshot.Format, error) {
	if f, _ := cmd.Flags().GetString("format"); f != "" {
		return snapshot.ParseFormat(f)
	}
	if path == "" || path == "-" {
		return snapshot.FormatJSON, nil
	}
	return snapshot.FormatForPath(path)
}
