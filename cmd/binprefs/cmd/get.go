package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/yandextaxitech/binaryprefs/pkg/snapshot"
)

// getCmd represents the get command
var getCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get the value of a key",
	Long: `Get the value of a key from the store in text form.

Byte arrays and records are printed as base64, string sets one element
per line.

Example:
  binprefs get theme
  binprefs get theme --json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := args[0]
		asJSON, _ := cmd.Flags().GetBool("json")

		// Get store from context
		p, err := storeFrom(cmd)
		if err != nil {
			return err
		}

		blob, _, ok, err := p.GetRaw(key)
		if err != nil {
			return fmt.Errorf("error getting value: %w", err)
		}
		if !ok {
			return fmt.Errorf("key %q not found", key)
		}
		entry, err := snapshot.NewEntry(key, blob)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if asJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(entry)
		}
		if entry.Values != nil {
			fmt.Fprintln(out, strings.Join(entry.Values, "\n"))
			return nil
		}
		fmt.Fprintln(out, entry.Value)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(getCmd)
	getCmd.Flags().Bool("json", false, "Print the entry with its kind as JSON")
}
