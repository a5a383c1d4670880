package cmd

import (
	"log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	configFile string
	verbose    bool
)

// AddGlobalFlags registers the flags shared by every command on root and
// binds them to viper
func AddGlobalFlags(root *cobra.Command) {
	flags := root.PersistentFlags()
	flags.StringVarP(&configFile, "config", "c", "", "Configuration file path")
	flags.String("api-url", "", "Storefront backend URL")
	flags.StringP("output", "o", "", "Output format (json, yaml, toml)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	flags.String("metrics-addr", "", "Serve session metrics on this address while the command runs")

	// Bind flags to viper
	if err := viper.BindPFlag("api_url", flags.Lookup("api-url")); err != nil {
		log.Printf("Failed to bind api-url flag: %v", err)
	}
	if err := viper.BindPFlag("output", flags.Lookup("output")); err != nil {
		log.Printf("Failed to bind output flag: %v", err)
	}
	if err := viper.BindPFlag("metrics.addr", flags.Lookup("metrics-addr")); err != nil {
		log.Printf("Failed to bind metrics-addr flag: %v", err)
	}
}

// Commands returns every top level command
func Commands() []*cobra.Command {
	return []*cobra.Command{
		LoginCmd,
		SignupCmd,
		LogoutCmd,
		WhoamiCmd,
		ProfileCmd,
		DeleteAccountCmd,
		MealsCmd,
		CartCmd,
		OrdersCmd,
		RequestCmd,
		ServeFakeCmd,
	}
}
