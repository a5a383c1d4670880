package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mood2food/storefront-client/pkg/client"
	"github.com/mood2food/storefront-client/pkg/config"
	"github.com/mood2food/storefront-client/pkg/credentials"
	"github.com/mood2food/storefront-client/pkg/logger"
	"github.com/mood2food/storefront-client/pkg/output"
	"github.com/mood2food/storefront-client/pkg/session"
	"github.com/mood2food/storefront-client/pkg/utils"
)

// expiredMessage tells the user how to start a new session
const expiredMessage = "session expired, run `storefront login`"

// app is what a command needs to talk to the backend
type app struct {
	config    *config.Config
	log       zerolog.Logger
	store     credentials.Store
	client    *client.Client
	formatter *output.Formatter
	out       io.Writer
	errOut    io.Writer

	// metrics serves session counters when metrics.addr is set
	metrics     *http.Server
	metricsAddr string
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load(viper.GetViper(), configFile)
	if err != nil {
		return nil, err
	}

	level := cfg.Log.Level
	if verbose {
		level = "debug"
	}
	log, err := logger.New(logger.Config{
		Level:  level,
		Format: logger.Format(cfg.Log.Format),
		Output: cmd.ErrOrStderr(),
	})
	if err != nil {
		return nil, err
	}

	store, err := credentials.NewStore(&cfg.Store, log)
	if err != nil {
		return nil, fmt.Errorf("failed to open credential store: %w", err)
	}

	a, err := assemble(cfg, store, log, cmd.OutOrStdout(), cmd.ErrOrStderr())
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return a, nil
}

// assemble wires a client around store
func assemble(cfg *config.Config, store credentials.Store, log zerolog.Logger, out, errOut io.Writer) (*app, error) {
	format, err := output.ParseFormat(cfg.Output)
	if err != nil {
		return nil, err
	}

	sessionOpts := []session.Option{
		session.WithOnSessionExpired(func(error) {
			fmt.Fprintln(errOut, expiredMessage)
		}),
	}
	var registry *prometheus.Registry
	if cfg.Metrics.Addr != "" {
		registry = prometheus.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector())
		sessionOpts = append(sessionOpts, session.WithRegisterer(registry))
	}

	httpClient := utils.NewHTTPClient(utils.HTTPClientConfig{Timeout: cfg.HTTP.Timeout})
	c, err := client.NewClient(cfg.APIURL, store,
		client.WithHTTPClient(httpClient),
		client.WithLogger(log),
		client.WithSessionOptions(sessionOpts...),
	)
	if err != nil {
		return nil, err
	}

	a := &app{
		config:    cfg,
		log:       log,
		store:     store,
		client:    c,
		formatter: output.NewFormatter(format),
		out:       out,
		errOut:    errOut,
	}
	if registry != nil {
		if err := a.serveMetrics(cfg.Metrics.Addr, registry); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// serveMetrics exposes registry on addr until the app is closed
func (a *app) serveMetrics(addr string, registry *prometheus.Registry) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen for metrics on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", session.Handler(registry))
	a.metrics = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	a.metricsAddr = listener.Addr().String()

	go func() {
		if err := a.metrics.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error().Err(err).Msg("metrics server stopped")
		}
	}()
	a.log.Info().Str("addr", a.metricsAddr).Msg("serving session metrics")
	return nil
}

func (a *app) Close() error {
	if a.metrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.metrics.Shutdown(ctx); err != nil {
			a.log.Warn().Err(err).Msg("failed to stop metrics server")
		}
	}
	return a.store.Close()
}

func (a *app) print(v interface{}) error {
	return a.formatter.Format(v, a.out)
}

// withApp adapts a run function to cobra, opening and closing the app around it
func withApp(run func(cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer func() {
			if err := a.Close(); err != nil {
				a.log.Warn().Err(err).Msg("failed to close credential store")
			}
		}()
		return run(cmd, a, args)
	}
}
