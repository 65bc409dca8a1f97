package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	authsystem "github.com/MrEthical07/authsystem"
	"github.com/MrEthical07/authsystem/httpapi"
	"github.com/MrEthical07/authsystem/internal/logging"
	promexport "github.com/MrEthical07/authsystem/metrics/export/prometheus"
	"github.com/MrEthical07/authsystem/notifier"
)

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the HTTP API. Configuration is read from the --config YAML file,
then AUTHSYSTEM_* environment variables, then flags.`,
		RunE: runServe,
	}
	bindConfigFlags(cmd.Flags())
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := loadConfig(cmd.Flags(), path)
	if err != nil {
		return err
	}

	logger := logging.Setup(logging.Options{
		Service: "authsystem",
		Version: version,
		Format:  cfg.Log.Format,
		Level:   cfg.Log.Level,
	}, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("open user store", "error", err)
		return err
	}
	defer closeStore()

	builder := authsystem.New().
		WithConfig(cfg.engineConfig()).
		WithUserStore(store).
		WithNotifier(notifier.NewLinkLogger(cfg.Notify.FrontendURL, logger)).
		WithLogger(logger)
	if cfg.Audit.Enabled {
		builder = builder.WithAuditSink(authsystem.NewSlogSink(logger))
	}
	engine, err := builder.Build()
	if err != nil {
		logger.Error("build engine", "error", err)
		return oops.Code("ENGINE_INIT_FAILED").Wrap(err)
	}
	defer engine.Close()

	opts := httpapi.Options{
		Logger:         logger,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
	}
	if cfg.Metrics.Enabled {
		metricsHandler, err := promexport.Handler(promexport.NewCollector(engine))
		if err != nil {
			return oops.Code("METRICS_INIT_FAILED").Wrap(err)
		}
		opts.Metrics = metricsHandler
	}

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           httpapi.New(engine, opts),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", cfg.HTTP.Addr, "store", cfg.Store.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("http server failed", "error", err)
			return oops.Code("HTTP_SERVE_FAILED").Wrap(err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down", "timeout", cfg.HTTP.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", "error", err)
		return oops.Code("HTTP_SHUTDOWN_FAILED").Wrap(err)
	}
	return nil
}
