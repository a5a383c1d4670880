package cmd

import (
	"github.com/spf13/cobra"
)

var MealsCmd = &cobra.Command{
	Use:   "meals",
	Short: "List meals with surplus left",
	Args:  cobra.NoArgs,
	RunE:  withApp(runMeals),
}

func runMeals(cmd *cobra.Command, a *app, args []string) error {
	meals, err := a.client.ListMeals(cmd.Context())
	if err != nil {
		return err
	}
	return a.print(meals)
}
