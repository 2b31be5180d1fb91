package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mateusmacedo/togobus-bff/internal/config"
	zapAdapter "github.com/mateusmacedo/togobus-bff/pkg/infrastructure/zaplogger/adapter"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(path)
		if err != nil {
			return err
		}
		return serve(cmd.Context(), cfg)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve(parent context.Context, cfg config.Config) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	appLogger, err := zapAdapter.NewZapAppLogger(zapAdapter.Options{App: cfg.Log.App, Level: cfg.Log.Level})
	if err != nil {
		return err
	}

	app, err := buildApp(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Error(ctx, "failed to build application", map[string]interface{}{"error": err.Error()})
		return err
	}
	defer app.Close(context.Background())

	server := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: app.Handler,
	}

	serveErr := make(chan error, 1)
	go func() {
		appLogger.Info(ctx, "server starting", map[string]interface{}{"addr": cfg.Server.Addr})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			appLogger.Error(ctx, "server failed", map[string]interface{}{"error": err.Error()})
			return err
		}
	case <-ctx.Done():
	}
	appLogger.Info(context.Background(), "shutting down server", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.Error(context.Background(), "server shutdown failed", map[string]interface{}{"error": err.Error()})
		return err
	}

	appLogger.Info(context.Background(), "server stopped", nil)
	return nil
}
