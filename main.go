package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mood2food/storefront-client/cmd"
)

var rootCmd = &cobra.Command{
	Use:           "storefront",
	Short:         "Storefront client",
	Long:          "Command line client for the surplus meal storefront. Keeps you signed in by renewing expired sessions.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	cmd.AddGlobalFlags(rootCmd)
	rootCmd.AddCommand(cmd.Commands()...)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Println(err)
		stop()
		os.Exit(1)
	}
}
