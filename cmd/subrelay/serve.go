package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/creamcroissant/subrelay/internal/api"
	"github.com/creamcroissant/subrelay/internal/bootstrap"
	"github.com/creamcroissant/subrelay/internal/support/logging"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the subscription relay HTTP server",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger := logging.New(logging.Options{
		Level:     cfg.Log.SlogLevel(),
		Format:    cfg.Log.Format,
		AddSource: cfg.Log.AddSource,
	})

	infra, err := bootstrap.BuildInfrastructure(cfg, logger)
	if err != nil {
		return err
	}

	router := api.NewRouter(logger, api.Services{Subscription: infra.Subscription}, api.RouterConfig{
		SecretKey: cfg.Subscription.SecretKey,
		Metrics:   cfg.Metrics,
		Registry:  infra.Registry,
	})
	server := bootstrap.NewHTTPServer(cfg.HTTP, bootstrap.FetchBudget(cfg.Subscription), router)

	go func() {
		logger.Info("http server starting",
			"addr", cfg.HTTP.Addr,
			"env", cfg.Log.Environment,
			"version", Version,
			"metrics", cfg.Metrics.Enabled,
			"retry", cfg.Subscription.Retry.Enabled,
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	logger.Info("shutting down http server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
		return err
	}
	logger.Info("server exited cleanly")
	return nil
}
