package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mood2food/storefront-client/pkg/client"
	"github.com/mood2food/storefront-client/pkg/credentials"
)

var (
	email         string
	password      string
	displayName   string
	confirmDelete bool
)

var LoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to the storefront",
	Long: `Sign in and keep the session in the credential store.

The password is read from standard input when --password is not given.`,
	Args: cobra.NoArgs,
	RunE: withApp(runLogin),
}

var SignupCmd = &cobra.Command{
	Use:   "signup",
	Short: "Create an account and sign in",
	Args:  cobra.NoArgs,
	RunE:  withApp(runSignup),
}

var LogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and forget the stored session",
	Args:  cobra.NoArgs,
	RunE:  withApp(runLogout),
}

var WhoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user",
	Args:  cobra.NoArgs,
	RunE:  withApp(runWhoami),
}

var DeleteAccountCmd = &cobra.Command{
	Use:   "delete-account",
	Short: "Delete the signed-in account",
	Long: `Delete the signed-in account on the backend and forget the stored session.

Examples:
  # Delete with confirmation
  storefront delete-account

  # Delete without confirmation
  storefront delete-account --confirm`,
	Args: cobra.NoArgs,
	RunE: withApp(runDeleteAccount),
}

func init() {
	for _, c := range []*cobra.Command{LoginCmd, SignupCmd} {
		c.Flags().StringVarP(&email, "email", "e", "", "Account email (required)")
		c.Flags().StringVarP(&password, "password", "p", "", "Account password")
		if err := c.MarkFlagRequired("email"); err != nil {
			panic(err)
		}
	}
	SignupCmd.Flags().StringVarP(&displayName, "name", "n", "", "Display name")

	DeleteAccountCmd.Flags().BoolVar(&confirmDelete, "confirm", false, "Skip confirmation prompt")
}

// readPassword returns the --password value or the first line of in
func readPassword(cmd *cobra.Command) (string, error) {
	if password != "" {
		return password, nil
	}
	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	scanner := bufio.NewScanner(cmd.InOrStdin())
	if scanner.Scan() {
		return strings.TrimSpace(scanner.Text()), nil
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("error reading input: %w", err)
	}
	return "", io.ErrUnexpectedEOF
}

func runLogin(cmd *cobra.Command, a *app, args []string) error {
	pw, err := readPassword(cmd)
	if err != nil {
		return err
	}
	user, err := a.client.Login(cmd.Context(), email, pw)
	if err != nil {
		return err
	}
	return a.print(user)
}

func runSignup(cmd *cobra.Command, a *app, args []string) error {
	pw, err := readPassword(cmd)
	if err != nil {
		return err
	}
	user, err := a.client.Signup(cmd.Context(), client.SignupRequest{Email: email, Password: pw, Name: displayName})
	if err != nil {
		return err
	}
	return a.print(user)
}

func runLogout(cmd *cobra.Command, a *app, args []string) error {
	if err := a.client.Logout(cmd.Context()); err != nil {
		return err
	}
	fmt.Fprintln(a.errOut, "Signed out")
	return nil
}

func runWhoami(cmd *cobra.Command, a *app, args []string) error {
	user, err := a.client.CurrentUser()
	if errors.Is(err, credentials.ErrNoCredentials) {
		return errors.New("not signed in")
	}
	if err != nil {
		return err
	}
	return a.print(user)
}

func runDeleteAccount(cmd *cobra.Command, a *app, args []string) error {
	if !confirmDelete {
		fmt.Fprint(a.errOut, "Are you sure you want to delete your account? [y/N]: ")
		scanner := bufio.NewScanner(cmd.InOrStdin())
		if scanner.Scan() {
			response := strings.ToLower(strings.TrimSpace(scanner.Text()))
			if response != "y" && response != "yes" {
				fmt.Fprintln(a.errOut, "Deletion cancelled")
				return nil
			}
		} else {
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("error reading input: %w", err)
			}
			fmt.Fprintln(a.errOut, "Deletion cancelled")
			return nil
		}
	}

	if err := a.client.DeleteAccount(cmd.Context()); err != nil {
		return err
	}
	fmt.Fprintln(a.errOut, "Account deleted")
	return nil
}
