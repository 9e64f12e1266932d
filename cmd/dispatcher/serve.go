package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"notification-dispatcher/internal/common/config"
	"notification-dispatcher/internal/common/logger"
	"notification-dispatcher/internal/server"

	"github.com/spf13/cobra"
)

var serveConfigFile string

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook HTTP server",
		RunE:  runServe,
	}
	cmd.Flags().StringVarP(&serveConfigFile, "config", "c", "", "Config file (defaults to configs/config.yaml)")
	return cmd
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(serveConfigFile)
	if err != nil {
		return err
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	log.Info("Starting notification dispatcher...", map[string]interface{}{
		"version":     version,
		"environment": cfg.App.Environment,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, log, 15)
	if err != nil {
		return err
	}
	defer a.Close()

	srv := server.New(server.Options{
		Processor:       a.handler,
		WebhookPath:     cfg.Server.WebhookPath,
		WebhookSecret:   cfg.Server.WebhookSecret,
		SignatureHeader: cfg.Server.SignatureHeader,
		Checks:          a.checks,
		Logger:          log,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(cfg.Server.Address)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutdown signal received, draining requests...", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", map[string]interface{}{"error": err.Error()})
		return err
	}
	log.Info("Dispatcher stopped", nil)
	return nil
}
