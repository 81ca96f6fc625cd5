// Package cli implements the fleetctl admin command tree.
package cli

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/kioskfleet/kiosk-fleet-go/internal/fleetapi"
	"github.com/kioskfleet/kiosk-fleet-go/pkg/logger"
)

var (
	apiURL   string
	verbose  bool
	timezone string
)

var rootCmd = &cobra.Command{
	Use:   "fleetctl",
	Short: "Administer the kiosk fleet backend",
	Long: `fleetctl talks to the kiosk fleet backend as an administrator:
listing and provisioning kiosks, assigning videos, attaching menus,
pushing configuration and triggering syncs.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the command tree.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", "", "backend API base URL (overrides the stored session)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&timezone, "timezone", "Asia/Seoul", "IANA zone for date-based state decisions")

	rootCmd.AddCommand(loginCmd, logoutCmd, kiosksCmd, videosCmd, menuCmd, configCmd, syncCmd)
}

func cliLogger() *logrus.Logger {
	level := "warn"
	if verbose {
		level = "debug"
	}
	return logger.New(level)
}

// adminClient builds an authenticated client from the stored session.
// The session file is rewritten afterwards so a token refresh performed
// during the command survives to the next invocation.
func adminClient(cmd *cobra.Command) (*fleetapi.Client, error) {
	sess, err := loadSession()
	if err != nil {
		return nil, err
	}
	if sess == nil || sess.AccessToken == "" {
		return nil, fmt.Errorf("not logged in: run fleetctl login first")
	}

	base := apiURL
	if base == "" {
		base = sess.APIURL
	}
	if base == "" {
		return nil, fmt.Errorf("no API URL: pass --api or log in again")
	}

	admin := fleetapi.NewAdminSession(sess.AccessToken, sess.RefreshToken, sess.Email, sess.Name)
	client := fleetapi.NewAdminClient(base, admin, cliLogger())

	cmd.PersistentPostRunE = func(*cobra.Command, []string) error {
		access, refresh := admin.Tokens()
		if access == "" {
			return clearSession()
		}
		sess.AccessToken = access
		sess.RefreshToken = refresh
		return saveSession(sess)
	}
	return client, nil
}
