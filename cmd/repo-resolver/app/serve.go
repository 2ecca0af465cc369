package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sdkforge/repo-resolver/internal/api"
	"github.com/sdkforge/repo-resolver/internal/config"
	"github.com/sdkforge/repo-resolver/internal/logger"
	resolversync "github.com/sdkforge/repo-resolver/internal/sync"
	"github.com/sdkforge/repo-resolver/internal/telemetry"
	"github.com/sdkforge/repo-resolver/internal/versions"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the resolver API server",
	Long: `Start the resolver API server. The server resolves every configured
source on startup, resyncs them periodically, and serves the resolved
packages over a REST API.`,
	RunE: runServe,
}

const (
	defaultGracefulTimeout = 30 * time.Second
	serverRequestTimeout   = 10 * time.Second
	serverReadTimeout      = 10 * time.Second
	serverWriteTimeout     = 15 * time.Second // must exceed serverRequestTimeout so the middleware can respond
	serverIdleTimeout      = 60 * time.Second
)

func init() {
	serveCmd.Flags().String("address", ":8080", "Address to listen on")
	serveCmd.Flags().String("config", "", "Path to configuration file (YAML format, required)")

	err := viper.BindPFlag("address", serveCmd.Flags().Lookup("address"))
	if err != nil {
		logger.Fatalf("Failed to bind address flag: %v", err)
	}
	err = viper.BindPFlag("serve.config", serveCmd.Flags().Lookup("config"))
	if err != nil {
		logger.Fatalf("Failed to bind config flag: %v", err)
	}

	if err := serveCmd.MarkFlagRequired("config"); err != nil {
		logger.Fatalf("Failed to mark config flag as required: %v", err)
	}
}

func runServe(_ *cobra.Command, _ []string) error {
	address := viper.GetString("address")

	logger.Infof("Starting resolver API server on %s", address)

	configPath := viper.GetString("serve.config")
	cfg, err := config.LoadConfig(config.WithConfigPath(configPath))
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger.Infof("Loaded configuration from %s (%d sources, resync every %s)",
		configPath, len(cfg.Sources), cfg.GetSyncInterval())

	registry := prometheus.NewRegistry()
	meterProvider, err := telemetry.NewMeterProvider(
		telemetry.WithMeterServiceName("repo-resolver"),
		telemetry.WithMeterServiceVersion(versions.GetVersionInfo().Version),
		telemetry.WithRegisterer(registry),
	)
	if err != nil {
		return fmt.Errorf("failed to create meter provider: %w", err)
	}

	metrics, err := telemetry.NewLoadMetrics(meterProvider)
	if err != nil {
		return fmt.Errorf("failed to create load metrics: %w", err)
	}

	svc, err := buildResolver(cfg, metrics)
	if err != nil {
		return fmt.Errorf("failed to create resolver: %w", err)
	}

	// Background resync: one immediate round, then on every interval tick.
	scheduler := resolversync.NewScheduler(svc, cfg.GetSyncInterval(), logger.Named("sync"))
	syncCtx, syncCancel := context.WithCancel(context.Background())
	defer syncCancel()
	go func() {
		if err := scheduler.Run(syncCtx); err != nil {
			logger.Errorf("Resync scheduler failed: %v", err)
		}
	}()

	router := api.NewServer(svc,
		api.WithMiddlewares(
			middleware.RequestID,
			middleware.RealIP,
			middleware.Recoverer,
			middleware.Timeout(serverRequestTimeout),
			api.LoggingMiddleware,
		),
	)
	router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	server := &http.Server{
		Addr:         address,
		Handler:      router,
		ReadTimeout:  serverReadTimeout,
		WriteTimeout: serverWriteTimeout,
		IdleTimeout:  serverIdleTimeout,
	}

	go func() {
		logger.Infof("Server listening on %s", address)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Infof("Shutting down server...")

	syncCancel()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultGracefulTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
		return err
	}

	logger.Infof("Server shutdown complete")
	return nil
}
