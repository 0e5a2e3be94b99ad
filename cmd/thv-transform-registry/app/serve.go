package app

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	registryapp "github.com/stacklok/toolhive-transform-registry/internal/app"
	"github.com/stacklok/toolhive-transform-registry/internal/telemetry"
)

const (
	defaultGracefulTimeout = 30 * time.Second // Kubernetes-friendly shutdown time
	telemetryFlushTimeout  = 5 * time.Second
)

func newServeCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the transform registry server",
		Long: `Start the transform registry server.

The server aggregates the transform configuration of every configured engine and local
path on start and then once per refresh interval, and serves the result on
/transform/config and under /v0.

The configuration file (--config) specifies:
- The registry name
- The transform engines and local configuration paths
- Fetch, refresh, status and telemetry settings

See the examples/ directory for sample configurations.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), v)
		},
	}

	cmd.Flags().String("address", ":8080", "Address to listen on")
	bindFlag(v, "address", cmd.Flags().Lookup("address"))

	return cmd
}

func runServe(ctx context.Context, v *viper.Viper) error {
	cfg, err := loadConfig(v)
	if err != nil {
		return err
	}

	tel, err := telemetry.New(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), telemetryFlushTimeout)
		defer cancel()
		if err := tel.Shutdown(flushCtx); err != nil {
			slog.Error("Failed to shut down telemetry", "error", err)
		}
	}()

	opts := []registryapp.RegistryAppOptions{
		registryapp.WithConfig(cfg),
		registryapp.WithAddress(v.GetString("address")),
		registryapp.WithMeterProvider(tel.MeterProvider()),
		registryapp.WithTracerProvider(tel.TracerProvider()),
	}
	if handler := tel.MetricsHandler(); handler != nil {
		opts = append(opts, registryapp.WithMetricsHandler(handler))
	}

	registryApp, err := registryapp.NewRegistryApp(ctx, opts...)
	if err != nil {
		return fmt.Errorf("failed to build application: %w", err)
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- registryApp.Start()
	}()

	select {
	case err := <-errCh:
		_ = registryApp.Stop(defaultGracefulTimeout)
		return err
	case <-signalCtx.Done():
	}

	if err := registryApp.Stop(defaultGracefulTimeout); err != nil {
		return err
	}
	return <-errCh
}
