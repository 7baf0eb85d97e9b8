package cmd

import (
	"encoding/json"

	"github.com/spf13/cobra"
	"github.com/yandextaxitech/binaryprefs/pkg/events"
)

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print changes to the store as they happen",
	Long: `Print one JSON line per changed key until interrupted. Changes made by
other processes are only seen when broadcast.redis_addr is configured.

Example:
  binprefs watch --name app`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := storeFrom(cmd)
		if err != nil {
			return err
		}

		changes := make(chan events.Event, 64)
		unsubscribe := p.Subscribe(func(ev events.Event) {
			select {
			case changes <- ev:
			default:
			}
		})
		defer unsubscribe()

		enc := json.NewEncoder(cmd.OutOrStdout())
		for {
			select {
			case <-cmd.Context().Done():
				return nil
			case ev := <-changes:
				if err := enc.Encode(struct {
					events.Event
					Remote bool `json:"remote"`
				}{ev, ev.Remote}); err != nil {
					return err
				}
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
