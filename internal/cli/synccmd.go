package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// syncCmd is a top-level shorthand for "kiosks sync".
var syncCmd = &cobra.Command{
	Use:   "sync <kiosk-id>",
	Short: "Order a kiosk to sync now",
	Long: `Order a kiosk to sync now. The backend pushes a sync command over
the kiosk's channel; a disconnected kiosk never receives it and will
sync on its normal interval instead.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := adminClient(cmd)
		if err != nil {
			return err
		}
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		if err := client.RequestSync(cmd.Context(), id); err != nil {
			return err
		}
		fmt.Printf("Sync requested for kiosk %d\n", id)
		return nil
	},
}
