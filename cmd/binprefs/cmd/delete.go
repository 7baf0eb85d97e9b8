package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// deleteCmd represents the delete command
var deleteCmd = &cobra.Command{
	Use:   "delete <key> [key...]",
	Short: "Delete keys",
	Long: `Delete one or more keys from the store in a single commit.

Example:
  binprefs delete theme
  binprefs delete --all`,
	RunE: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")
		if !all && len(args) == 0 {
			return fmt.Errorf("requires at least one key or --all")
		}

		// Get store from context
		p, err := storeFrom(cmd)
		if err != nil {
			return err
		}

		editor := p.Edit()
		if all {
			editor.Clear()
		}
		for _, key := range args {
			editor.Remove(key)
		}
		if err := editor.Commit(cmd.Context()); err != nil {
			return fmt.Errorf("error deleting keys: %w", err)
		}

		if all {
			cmd.Printf("Successfully cleared store '%s'\n", p.Name())
			return nil
		}
		cmd.Printf("Successfully deleted %d key(s)\n", len(args))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)
	deleteCmd.Flags().Bool("all", false, "Remove every key of the store")
}
