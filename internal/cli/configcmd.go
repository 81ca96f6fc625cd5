package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kioskfleet/kiosk-fleet-go/internal/fleetapi"
)

var (
	pushAPIURL       string
	pushDownloadPath string
	pushAutoSync     bool
	pushInterval     int
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and push per-kiosk configuration",
}

var configGetCmd = &cobra.Command{
	Use:   "get <kioskid>",
	Short: "Show the server-held config for a kiosk",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := adminClient(cmd)
		if err != nil {
			return err
		}
		cfg, err := client.GetKioskConfig(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		fmt.Printf("apiUrl:        %s\n", cfg.APIURL)
		fmt.Printf("downloadPath:  %s\n", cfg.DownloadPath)
		fmt.Printf("autoSync:      %t\n", cfg.AutoSyncEnabled)
		fmt.Printf("syncInterval:  %dh\n", cfg.SyncIntervalHours)
		if cfg.LastSyncAt != nil {
			fmt.Printf("lastSync:      %s\n", cfg.LastSyncAt.Local().Format("2006-01-02 15:04:05"))
		}
		if cfg.ConfigModifiedByAdmin {
			fmt.Println("pending:       an admin change has not been adopted by the kiosk yet")
		}
		return nil
	},
}

var configPushCmd = &cobra.Command{
	Use:   "push <id>",
	Short: "Push new configuration to a kiosk",
	Long: `Push new configuration to a kiosk. The kiosk adopts it on its next
sync pass and acknowledges by clearing the pending flag.`,
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

		cfg := &fleetapi.KioskRemoteConfig{
			APIURL:                pushAPIURL,
			DownloadPath:          pushDownloadPath,
			AutoSyncEnabled:       pushAutoSync,
			SyncIntervalHours:     pushInterval,
			ConfigModifiedByAdmin: true,
		}
		if err := client.PushKioskConfig(cmd.Context(), id, cfg); err != nil {
			return err
		}
		fmt.Printf("Config pushed to kiosk %d; it applies on the next sync\n", id)
		return nil
	},
}

func init() {
	configPushCmd.Flags().StringVar(&pushAPIURL, "api-url", "", "backend URL the kiosk should use")
	configPushCmd.Flags().StringVar(&pushDownloadPath, "download-path", "", "media folder on the kiosk")
	configPushCmd.Flags().BoolVar(&pushAutoSync, "auto-sync", true, "enable interval syncing")
	configPushCmd.Flags().IntVar(&pushInterval, "interval", 12, "sync interval in hours (1-24)")

	configCmd.AddCommand(configGetCmd, configPushCmd)
}
