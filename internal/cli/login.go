package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kioskfleet/kiosk-fleet-go/internal/fleetapi"
)

var (
	loginEmail    string
	loginPassword string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authenticate against the backend and store the session",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if apiURL == "" {
			return fmt.Errorf("--api is required for login")
		}

		email := loginEmail
		if email == "" {
			var err error
			if email, err = prompt("Email: "); err != nil {
				return err
			}
		}
		password := loginPassword
		if password == "" {
			var err error
			if password, err = prompt("Password: "); err != nil {
				return err
			}
		}

		client := fleetapi.NewAdminClient(apiURL, fleetapi.NewAdminSession("", "", email, ""), cliLogger())
		result, err := client.Login(cmd.Context(), email, password)
		if err != nil {
			return fmt.Errorf("login failed: %w", err)
		}

		if err := saveSession(&session{
			APIURL:       apiURL,
			Email:        result.Email,
			Name:         result.DisplayName,
			AccessToken:  result.AccessToken,
			RefreshToken: result.RefreshToken,
		}); err != nil {
			return err
		}

		fmt.Printf("Logged in as %s\n", result.Email)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored session",
	RunE: func(*cobra.Command, []string) error {
		if err := clearSession(); err != nil {
			return err
		}
		fmt.Println("Logged out")
		return nil
	},
}

func init() {
	loginCmd.Flags().StringVar(&loginEmail, "email", "", "admin account email")
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "admin account password (prompted when omitted)")
}

func prompt(label string) (string, error) {
	fmt.Print(label)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}
