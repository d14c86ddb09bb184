package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/brightgate-labs/mcpgateway/internal/adapter/inbound/gateway"
	"github.com/brightgate-labs/mcpgateway/internal/adapter/outbound/builtin"
	"github.com/brightgate-labs/mcpgateway/internal/config"
	"github.com/brightgate-labs/mcpgateway/internal/observability"
	"github.com/brightgate-labs/mcpgateway/internal/service/registry"
	"github.com/brightgate-labs/mcpgateway/internal/service/supervisor"
)

var providerSearchDir string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the gateway",
	Long: `Start the MCP gateway: connect every enabled upstream provider, merge
their catalogs, and serve JSON-RPC over stdin/stdout to a single downstream
client.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&providerSearchDir, "providers-dir", "", "directory to discover provider manifests from (optional)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.GlobalSettings.Logging.Level),
	}))

	ctx, stop := signal.NotifyContext(context.Background(), gracefulSignals()...)
	defer stop()

	tracing, err := observability.NewStdoutTracing(ctx, io.Discard)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := tracing.Shutdown(shutdownCtx); err != nil {
			logger.Warn("tracing shutdown error", "error", err)
		}
	}()

	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)

	reg := registry.New(logger)
	if err := builtin.Register(reg, logger); err != nil {
		return fmt.Errorf("register builtin providers: %w", err)
	}
	if providerSearchDir != "" {
		reg.Discover(providerSearchDir)
	}

	sup := supervisor.New(reg, logger).WithMetrics(metrics)
	if err := sup.Start(ctx, cfg); err != nil {
		return fmt.Errorf("start supervisor: %w", err)
	}

	handlers := gateway.Handlers{
		ToolRouter:     sup.ToolRouter,
		ResourceRouter: sup.ResourceRouter,
		Snapshot:       sup.Snapshot,
		RefreshCatalog: sup.RefreshCatalog,
		KnownToolNames: sup.KnownToolNames,
		OwningProvider: sup.OwningProviders,
	}
	server := gateway.New(handlers, logger,
		gateway.WithMetrics(metrics),
		gateway.WithTracer(tracing.Tracer),
	)
	proxy := gateway.NewStdioProxy(server)

	logger.Info("mcpgateway serving", "enabled_providers", cfg.EnabledProviders)

	serveErr := proxy.Start(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.GlobalSettings.Timeouts.ShutdownGraceSeconds)*time.Second)
	defer cancel()
	if err := sup.Stop(shutdownCtx); err != nil {
		logger.Warn("supervisor stop error", "error", err)
	}

	if serveErr != nil && serveErr != context.Canceled {
		return serveErr
	}
	return nil
}

// parseLogLevel converts a string log level to slog.Level. Returns
// slog.LevelInfo for unrecognized values.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
