package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kioskfleet/kiosk-fleet-go/internal/core/kioskstate"
	"github.com/kioskfleet/kiosk-fleet-go/internal/fleetapi"
)

var (
	listDeleted    bool
	createPosID    string
	createMaker    string
	createSerial   string
	createActivate string
)

var kiosksCmd = &cobra.Command{
	Use:   "kiosks",
	Short: "Inspect and manage kiosks",
}

var kiosksListCmd = &cobra.Command{
	Use:   "list",
	Short: "List kiosks",
	RunE: func(cmd *cobra.Command, _ []string) error {
		client, err := adminClient(cmd)
		if err != nil {
			return err
		}
		kiosks, err := client.ListKiosks(cmd.Context(), listDeleted)
		if err != nil {
			return err
		}
		printKiosks(kiosks)
		return nil
	},
}

var kiosksGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show one kiosk",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := adminClient(cmd)
		if err != nil {
			return err
		}
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		kiosk, err := client.GetKiosk(cmd.Context(), id)
		if err != nil {
			return err
		}
		printKiosks([]fleetapi.Kiosk{*kiosk})
		return nil
	},
}

var kiosksCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Provision a new kiosk under a store",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if createPosID == "" {
			return fmt.Errorf("--posid is required")
		}
		client, err := adminClient(cmd)
		if err != nil {
			return err
		}

		no, err := client.NextKioskNumber(cmd.Context(), createPosID)
		if err != nil {
			return fmt.Errorf("failed to reserve a kiosk number: %w", err)
		}

		now := time.Now()
		w := &fleetapi.KioskWrite{
			PosID:        createPosID,
			KioskNo:      no,
			Maker:        createMaker,
			Serial:       createSerial,
			State:        string(kioskstate.Preparing),
			RegisteredAt: &now,
		}
		if createActivate != "" {
			at, err := time.Parse("2006-01-02", createActivate)
			if err != nil {
				return fmt.Errorf("invalid --activate date (want YYYY-MM-DD): %w", err)
			}
			w.ActivationDate = &at
		}

		kiosk, err := client.CreateKiosk(cmd.Context(), w)
		if err != nil {
			return err
		}
		fmt.Printf("Created kiosk %s (#%d)\n", kiosk.KioskID, kiosk.ID)
		return nil
	},
}

var kiosksSetStateCmd = &cobra.Command{
	Use:   "set-state <id> <state>",
	Short: "Force a kiosk into a state",
	Long: "Force a kiosk into one of: " + stateNames() + `.
The date-driven reconciler will not undo MAINTENANCE or DELETED.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := adminClient(cmd)
		if err != nil {
			return err
		}
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		state, err := kioskstate.Parse(args[1])
		if err != nil {
			return fmt.Errorf("unknown state %q (want one of %s)", args[1], stateNames())
		}
		if err := client.UpdateKioskState(cmd.Context(), id, string(state)); err != nil {
			return err
		}
		fmt.Printf("Kiosk %d is now %s\n", id, state)
		return nil
	},
}

var kiosksDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Soft-delete a kiosk",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := adminClient(cmd)
		if err != nil {
			return err
		}
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		if err := client.SoftDeleteKiosk(cmd.Context(), id); err != nil {
			return err
		}
		fmt.Printf("Kiosk %d deleted\n", id)
		return nil
	},
}

var kiosksRestoreCmd = &cobra.Command{
	Use:   "restore <id>",
	Short: "Restore a soft-deleted kiosk",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := adminClient(cmd)
		if err != nil {
			return err
		}
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		if err := client.RestoreKiosk(cmd.Context(), id); err != nil {
			return err
		}
		fmt.Printf("Kiosk %d restored\n", id)
		return nil
	},
}

var kiosksSyncCmd = &cobra.Command{
	Use:   "sync <id>",
	Short: "Order a kiosk to sync now",
	Args:  cobra.ExactArgs(1),
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

var kiosksReconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Apply date-driven state transitions across the fleet",
	RunE: func(cmd *cobra.Command, _ []string) error {
		client, err := adminClient(cmd)
		if err != nil {
			return err
		}
		loc, err := time.LoadLocation(timezone)
		if err != nil {
			return fmt.Errorf("invalid timezone %q: %w", timezone, err)
		}

		rec := kioskstate.NewReconciler(client, loc, cliLogger())
		transitions, kiosks, err := rec.Reconcile(cmd.Context())
		if err != nil {
			return err
		}

		for _, tr := range transitions {
			fmt.Printf("%s: %s -> %s\n", tr.Kiosk.KioskID, tr.From, tr.To)
		}
		fmt.Printf("%d transition(s) applied across %d kiosk(s)\n", len(transitions), len(kiosks))
		return nil
	},
}

func init() {
	kiosksListCmd.Flags().BoolVar(&listDeleted, "deleted", false, "include soft-deleted kiosks")
	kiosksCreateCmd.Flags().StringVar(&createPosID, "posid", "", "store (POS) identifier")
	kiosksCreateCmd.Flags().StringVar(&createMaker, "maker", "", "hardware maker")
	kiosksCreateCmd.Flags().StringVar(&createSerial, "serial", "", "hardware serial number")
	kiosksCreateCmd.Flags().StringVar(&createActivate, "activate", "", "activation date (YYYY-MM-DD)")

	kiosksCmd.AddCommand(kiosksListCmd, kiosksGetCmd, kiosksCreateCmd, kiosksSetStateCmd,
		kiosksDeleteCmd, kiosksRestoreCmd, kiosksSyncCmd, kiosksReconcileCmd)
}

func printKiosks(kiosks []fleetapi.Kiosk) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tKIOSK\tPOS\tNO\tSTATE\tCONN\tVIDEOS\tLAST SYNC")
	for _, k := range kiosks {
		lastSync := "-"
		if k.LastSync != nil {
			lastSync = k.LastSync.Local().Format("2006-01-02 15:04")
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\t%s\t%d/%d\t%s\n",
			k.ID, k.KioskID, k.PosID, k.KioskNo, k.State, k.ConnectionStatus,
			k.DownloadedVideoCount, k.TotalVideoCount, lastSync)
	}
	w.Flush()
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}

func stateNames() string {
	names := make([]string, 0, len(kioskstate.All))
	for _, s := range kioskstate.All {
		names = append(names, string(s))
	}
	return strings.Join(names, ", ")
}
