package cli

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kioskfleet/kiosk-fleet-go/internal/core/assignments"
	"github.com/kioskfleet/kiosk-fleet-go/internal/fleetapi"
)

var videosCmd = &cobra.Command{
	Use:   "videos",
	Short: "Manage a kiosk's video assignments",
}

var videosListCmd = &cobra.Command{
	Use:   "list <kiosk-id>",
	Short: "List a kiosk's assigned videos with download status",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := adminClient(cmd)
		if err != nil {
			return err
		}
		kioskID, err := parseID(args[0])
		if err != nil {
			return err
		}

		list, err := assignments.NewService(client, cliLogger()).List(cmd.Context(), kioskID)
		if err != nil {
			return err
		}
		printAssignments(list)
		return nil
	},
}

var videosAssignCmd = &cobra.Command{
	Use:   "assign <kiosk-id> <video-id>...",
	Short: "Assign videos to a kiosk (already assigned ones are skipped)",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := adminClient(cmd)
		if err != nil {
			return err
		}
		kioskID, err := parseID(args[0])
		if err != nil {
			return err
		}
		videoIDs := make([]int64, 0, len(args)-1)
		for _, raw := range args[1:] {
			id, err := parseID(raw)
			if err != nil {
				return err
			}
			videoIDs = append(videoIDs, id)
		}

		list, err := assignments.NewService(client, cliLogger()).AssignVideos(cmd.Context(), kioskID, videoIDs)
		if err != nil {
			return err
		}
		printAssignments(list)
		return nil
	},
}

var videosRemoveCmd = &cobra.Command{
	Use:   "remove <kiosk-id> <video-id>",
	Short: "Remove a manually assigned video from a kiosk",
	Long: `Remove a manually assigned video from a kiosk.
Menu-inherited assignments cannot be removed here; edit the menu instead.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := adminClient(cmd)
		if err != nil {
			return err
		}
		kioskID, err := parseID(args[0])
		if err != nil {
			return err
		}
		videoID, err := parseID(args[1])
		if err != nil {
			return err
		}

		if err := assignments.NewService(client, cliLogger()).RemoveAssignment(cmd.Context(), kioskID, videoID); err != nil {
			return err
		}
		fmt.Printf("Video %d removed from kiosk %d\n", videoID, kioskID)
		return nil
	},
}

var videosSetStatusCmd = &cobra.Command{
	Use:   "set-status <kiosk-id> <video-id> <status>",
	Short: "Overwrite a video's download status",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := adminClient(cmd)
		if err != nil {
			return err
		}
		kioskID, err := parseID(args[0])
		if err != nil {
			return err
		}
		videoID, err := parseID(args[1])
		if err != nil {
			return err
		}
		status := fleetapi.DownloadStatus(strings.ToUpper(args[2]))
		switch status {
		case fleetapi.DownloadPending, fleetapi.DownloadDownloading, fleetapi.DownloadCompleted, fleetapi.DownloadFailed:
		default:
			return fmt.Errorf("unknown status %q", args[2])
		}

		if err := assignments.NewService(client, cliLogger()).ReportStatus(cmd.Context(), kioskID, videoID, status); err != nil {
			return err
		}
		fmt.Printf("Video %d on kiosk %d set to %s\n", videoID, kioskID, status)
		return nil
	},
}

func init() {
	videosCmd.AddCommand(videosListCmd, videosAssignCmd, videosRemoveCmd, videosSetStatusCmd)
}

func printAssignments(list []fleetapi.VideoAssignment) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "VIDEO\tTITLE\tSTATUS\tSOURCE\tSIZE\tUPLOADER")
	for _, a := range list {
		source := string(a.SourceType)
		if a.FromMenu() && a.MenuID != nil {
			source = fmt.Sprintf("MENU(%s)", *a.MenuID)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%s\n",
			a.VideoID, a.Title, a.DownloadStatus, source, a.FileSize, a.Uploader)
	}
	w.Flush()
}
