package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/yandextaxitech/binaryprefs/pkg/snapshot"
)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List keys with their kinds and values",
	Long: `List every key of the store in sorted order with its kind and value.

Example:
  binprefs list
  binprefs list --prefix user.
  binprefs list --keys-only`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		prefix, _ := cmd.Flags().GetString("prefix")
		keysOnly, _ := cmd.Flags().GetBool("keys-only")

		// Get store from context
		p, err := storeFrom(cmd)
		if err != nil {
			return err
		}

		snap, err := snapshot.Take(p)
		if err != nil {
			return fmt.Errorf("error listing keys: %w", err)
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		for _, e := range snap.Entries {
			if !strings.HasPrefix(e.Key, prefix) {
				continue
			}
			if keysOnly {
				fmt.Fprintln(w, e.Key)
				continue
			}
			value := e.Value
			if e.Values != nil {
				value = "[" + strings.Join(e.Values, ", ") + "]"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", e.Key, e.Kind, value)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().String("prefix", "", "Only list keys with this prefix")
	listCmd.Flags().Bool("keys-only", false, "Print key names only")
}
