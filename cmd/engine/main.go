// Command engine is the CLI entrypoint (spec.md §6 expansion, component K),
// grounded on the teacher's cli/mcp_proxy.go for flag layout and context/
// signal wiring.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	otelprometheus "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/flowforge/engine/engine/cronvalidate"
	"github.com/flowforge/engine/engine/facade"
	"github.com/flowforge/engine/engine/loader"
	"github.com/flowforge/engine/engine/persistence"
	"github.com/flowforge/engine/pkg/config"
	"github.com/flowforge/engine/pkg/logger"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "engine",
		Short: "Run and inspect the workflow orchestration engine",
	}
	root.AddCommand(runCmd(), validateCmd())
	return root
}

func runCmd() *cobra.Command {
	var settingsPath string
	var logJSON bool
	var debug bool
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Boot the engine and watch the workflows folder until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			level := logger.InfoLevel
			if debug {
				level = logger.DebugLevel
			}
			logger.SetDefault(logger.NewLogger(&logger.Config{
				Level:      level,
				Output:     os.Stdout,
				JSON:       logJSON,
				TimeFormat: "15:04:05",
			}))

			settings, err := config.Load(settingsPath)
			if err != nil {
				return fmt.Errorf("load settings: %w", err)
			}

			metricsServer, err := startMetricsServer(metricsAddr)
			if err != nil {
				return fmt.Errorf("start metrics server: %w", err)
			}

			var store persistence.Store
			if settings.ConnectionString != "" {
				pg, err := persistence.Open(cmd.Context(), settings.ConnectionString)
				if err != nil {
					return fmt.Errorf("open persistence store: %w", err)
				}
				if err := pg.Init(cmd.Context()); err != nil {
					return fmt.Errorf("init persistence schema: %w", err)
				}
				store = pg
			}

			e := facade.New(facade.Config{
				WorkflowsFolder: settings.WorkflowsFolder,
				LoaderOptions: loader.Options{
					TempFolder: settings.TempFolder,
					SchemaPath: settings.XSD,
				},
				Store: store,
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := e.Run(ctx); err != nil {
				return fmt.Errorf("run engine: %w", err)
			}
			logger.Info("engine started, watching workflows folder", "dir", settings.WorkflowsFolder)
			logger.Info("metrics endpoint listening", "addr", metricsAddr)

			<-ctx.Done()
			logger.Info("shutdown signal received, stopping engine")
			stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := metricsServer.Shutdown(stopCtx); err != nil {
				logger.Warn("metrics server shutdown failed", "error", err)
			}
			return e.Stop(stopCtx, true, false)
		},
	}
	cmd.Flags().StringVar(&settingsPath, "settings", "settings.yml", "path to the settings document")
	cmd.Flags().BoolVar(&logJSON, "log-json", false, "output logs in JSON format")
	cmd.Flags().BoolVar(&debug, "debug", false, "enable debug logging")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", ":9090", "address the Prometheus /metrics endpoint listens on")
	return cmd
}

// startMetricsServer builds the OpenTelemetry Prometheus exporter and
// installs it as the global meter provider, so every counter and gauge
// engine/metrics registers through otel.GetMeterProvider() is actually
// collected, then serves it over HTTP at /metrics (grounded on the
// teacher's engine/infra/monitoring.Service: a dedicated prometheus.Registry
// feeding an otel/exporters/prometheus exporter behind promhttp.Handler).
func startMetricsServer(addr string) (*http.Server, error) {
	registry := prom.NewRegistry()
	exporter, err := otelprometheus.New(otelprometheus.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()
	return server, nil
}

func validateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <workflow.xml>",
		Short: "Load and validate a single workflow definition without booting the engine",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := loader.Load(cmd.Context(), args[0], loader.Options{})
			if err != nil {
				return err
			}
			fmt.Printf("workflow %d %q: launchType=%s enabled=%t\n", w.ID(), w.Name(), w.LaunchType(), w.Enabled())
			if w.LaunchType() == "cron" && !cronvalidate.IsCronExpressionValid(w.CronExpression()) {
				return fmt.Errorf("cron expression %q never fires", w.CronExpression())
			}
			return nil
		},
	}
	return cmd
}
