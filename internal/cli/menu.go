package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kioskfleet/kiosk-fleet-go/internal/core/assignments"
)

var menuCmd = &cobra.Command{
	Use:   "menu",
	Short: "Attach or detach a kiosk's menu",
}

var menuSetCmd = &cobra.Command{
	Use:   "set <kiosk-id> <menu-id>",
	Short: "Attach a menu; its videos become MENU-sourced assignments",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := adminClient(cmd)
		if err != nil {
			return err
		}
		kioskID, err := parseID(args[0])
		if err != nil {
			return err
		}

		list, err := assignments.NewService(client, cliLogger()).SetMenu(cmd.Context(), kioskID, args[1])
		if err != nil {
			return err
		}
		fmt.Printf("Menu %s attached to kiosk %d\n", args[1], kioskID)
		printAssignments(list)
		return nil
	},
}

var menuDetachCmd = &cobra.Command{
	Use:   "detach <kiosk-id>",
	Short: "Detach the kiosk's menu",
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

		list, err := assignments.NewService(client, cliLogger()).SetMenu(cmd.Context(), kioskID, "")
		if err != nil {
			return err
		}
		fmt.Printf("Menu detached from kiosk %d\n", kioskID)
		printAssignments(list)
		return nil
	},
}

func init() {
	menuCmd.AddCommand(menuSetCmd, menuDetachCmd)
}
