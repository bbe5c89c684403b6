package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/ssgtools/tpconsole/internal/config"
	_ "github.com/ssgtools/tpconsole/internal/kinds" // Register all record kinds
	"github.com/ssgtools/tpconsole/internal/logging"
	"github.com/ssgtools/tpconsole/internal/pipeline"
	"github.com/ssgtools/tpconsole/internal/ssg"
	"github.com/ssgtools/tpconsole/internal/store"
	"github.com/ssgtools/tpconsole/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the upload console web server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"kinds", pipeline.Count(),
		"submit_max_concurrent", cfg.Upload.SubmitMaxConcurrent,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	ctx := context.Background()

	history, err := store.New(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer history.Close()

	if err := history.EnsureSchema(ctx); err != nil {
		return err
	}

	if u, err := url.Parse(cfg.Database.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	}

	client := ssg.NewClient(cfg.SSG)
	service := pipeline.NewService(client, cfg.Upload.SubmitMaxConcurrent, cfg.Upload.SubmitMaxWait)
	server := web.NewServer(cfg, service, history)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(); err != nil {
		slog.Info("server stopped", "error", err)
	}
	return nil
}
