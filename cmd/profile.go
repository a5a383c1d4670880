package cmd

import (
	"github.com/spf13/cobra"

	"github.com/mood2food/storefront-client/pkg/client"
)

var profileName string

var ProfileCmd = &cobra.Command{
	Use:   "profile",
	Short: "View or edit the signed-in user's profile",
}

var profileShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Fetch the profile from the backend",
	Args:  cobra.NoArgs,
	RunE:  withApp(runProfileShow),
}

var profileUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Change the display name",
	Long: `Change the display name. The email address cannot be changed.

Examples:
  storefront profile update --name "Dee Dee"`,
	Args: cobra.NoArgs,
	RunE: withApp(runProfileUpdate),
}

func init() {
	profileUpdateCmd.Flags().StringVarP(&profileName, "name", "n", "", "New display name (required)")
	if err := profileUpdateCmd.MarkFlagRequired("name"); err != nil {
		panic(err)
	}

	ProfileCmd.AddCommand(profileShowCmd)
	ProfileCmd.AddCommand(profileUpdateCmd)
}

func runProfileShow(cmd *cobra.Command, a *app, args []string) error {
	user, err := a.client.GetProfile(cmd.Context())
	if err != nil {
		return err
	}
	return a.print(user)
}

func runProfileUpdate(cmd *cobra.Command, a *app, args []string) error {
	user, err := a.client.UpdateProfile(cmd.Context(), client.ProfileUpdate{Name: profileName})
	if err != nil {
		return err
	}
	return a.print(user)
}
