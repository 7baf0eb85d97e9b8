package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/yandextaxitech/binaryprefs/pkg/snapshot"
)

// putCmd represents the put command
var putCmd = &cobra.Command{
	Use:   "put <key> <value> [value...]",
	Short: "Put a typed value",
	Long: `Put a typed value into the store.

The kind selects the wire type: boolean, byte, short, char, int, long,
float, double, string, byte-array (base64) or string-set (one argument per
element).

Example:
  binprefs put theme dark
  binprefs put launches 42 --kind int
  binprefs put tags red green --kind string-set`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := args[0]
		kind, _ := cmd.Flags().GetString("kind")

		entry := snapshot.Entry{Key: key, Kind: kind}
		if kind == "string-set" {
			entry.Values = args[1:]
		} else {
			if len(args) != 2 {
				return fmt.Errorf("kind %s takes exactly one value", kind)
			}
			entry.Value = args[1]
		}

		blob, err := entry.Blob()
		if err != nil {
			return err
		}

		// Get store from context
		p, err := storeFrom(cmd)
		if err != nil {
			return err
		}
		if err := p.Edit().PutRaw(key, blob).Commit(cmd.Context()); err != nil {
			return fmt.Errorf("error putting value: %w", err)
		}

		cmd.Printf("Successfully put %s key '%s'\n", kind, key)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(putCmd)
	putCmd.Flags().StringP("kind", "k", "string", "Kind of the value")
}
