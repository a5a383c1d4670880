package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mood2food/storefront-client/internal/fakebackend"
	"github.com/mood2food/storefront-client/pkg/logger"
)

var (
	fakeAddr   string
	fakeTTL    time.Duration
	fakeRotate bool
	fakeUsers  []string
)

var ServeFakeCmd = &cobra.Command{
	Use:   "serve-fake",
	Short: "Run an in-memory storefront backend for local testing",
	Long: `Run an in-memory storefront backend with a seeded meal catalog.

Examples:
  # Short-lived access tokens to exercise renewal
  storefront serve-fake --access-ttl 30s --user diner@example.com:secret

  # Single-use refresh tokens
  storefront serve-fake --rotate-refresh`,
	Args: cobra.NoArgs,
	RunE: runServeFake,
}

func init() {
	defaults := fakebackend.DefaultOptions()
	ServeFakeCmd.Flags().StringVarP(&fakeAddr, "addr", "a", ":8000", "Address to listen on")
	ServeFakeCmd.Flags().DurationVar(&fakeTTL, "access-ttl", defaults.AccessTokenTTL, "Lifetime of access tokens")
	ServeFakeCmd.Flags().BoolVar(&fakeRotate, "rotate-refresh", false, "Make refresh tokens single use")
	ServeFakeCmd.Flags().StringArrayVarP(&fakeUsers, "user", "u", nil, "Seed an account as EMAIL:PASSWORD (repeatable)")
}

func parseUser(raw string) (string, string, error) {
	email, password, ok := strings.Cut(raw, ":")
	if !ok || email == "" || password == "" {
		return "", "", fmt.Errorf("invalid --user %q, expected EMAIL:PASSWORD", raw)
	}
	return email, password, nil
}

func runServeFake(cmd *cobra.Command, args []string) error {
	level := "info"
	if verbose {
		level = "debug"
	}
	log, err := logger.New(logger.Config{Level: level, Format: logger.FormatConsole, Output: cmd.ErrOrStderr()})
	if err != nil {
		return err
	}

	options := fakebackend.DefaultOptions()
	options.AccessTokenTTL = fakeTTL
	options.RotateRefreshTokens = fakeRotate

	server, err := fakebackend.New(options, log)
	if err != nil {
		return err
	}
	for _, raw := range fakeUsers {
		email, password, err := parseUser(raw)
		if err != nil {
			return err
		}
		server.AddUser(email, password, "")
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(fakeAddr)
	}()

	// Wait for the interrupt signal carried by the command context
	select {
	case err := <-errCh:
		return err
	case <-cmd.Context().Done():
	}

	log.Info().Msg("shutdown signal received, shutting down gracefully")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(ctx)
}
