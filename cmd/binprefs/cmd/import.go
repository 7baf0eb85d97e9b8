package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/yandextaxitech/binaryprefs/pkg/snapshot"
)

// importCmd represents the import command
var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import a snapshot document",
	Long: `Write every entry of a snapshot document into the store in one commit.
Use - to read from stdin. With --replace, keys missing from the document
are removed.

Example:
  binprefs import prefs.yaml
  binprefs import --replace --format msgpack - < prefs.mp`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		replace, _ := cmd.Flags().GetBool("replace")
		format, err := formatFlag(cmd, path)
		if err != nil {
			return err
		}

		var data []byte
		if path == "-" {
			data, err = io.ReadAll(cmd.InOrStdin())
		} else {
			data, err = os.ReadFile(path)
		}
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}

		snap, err := snapshot.Decode(data, format)
		if err != nil {
			return err
		}

		// Get store from context
		p, err := storeFrom(cmd)
		if err != nil {
			return err
		}
		if err := snapshot.Restore(cmd.Context(), p, snap, replace); err != nil {
			return fmt.Errorf("error importing snapshot: %w", err)
		}

		cmd.Printf("Imported %d key(s) into '%s'\n", len(snap.Entries), p.Name())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.Flags().StringP("format", "f", "", "Document format: json, yaml or msgpack")
	importCmd.Flags().Bool("replace", false, "Remove keys missing from the document")
}
