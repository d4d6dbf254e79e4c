package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"legalqa/internal/config"
	"legalqa/internal/constants"
	"legalqa/internal/logger"
	"legalqa/pkg/logging"
)

var (
	configFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   constants.ServiceName,
		Short: "Answer worker for legal questions",
		Long:  "Answer worker consumes questions from RabbitMQ, retrieves regulation fragments from Elasticsearch and replies with a generated answer",
		RunE:  serveCmd().RunE,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to config file (defaults to CONFIG_FILE, then environment only)")

	rootCmd.AddCommand(serveCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the answer worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			earlyLog := logging.NewEarlyLog(constants.ServiceName)

			if configFile == "" {
				configFile = os.Getenv("CONFIG_FILE")
			}
			if configFile == "" {
				earlyLog.Info("No config file given, using environment and defaults")
			}

			cfg, err := config.Load(configFile)
			if err != nil {
				earlyLog.Error("Failed to load config: %v", err)
				return err
			}

			log, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
			if err != nil {
				earlyLog.Error("Failed to init logger: %v", err)
				return err
			}
			defer log.Sync()

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			log.InfowCtx(ctx, "Starting answer worker",
				"workers", cfg.RPC.Workers,
				"queue", cfg.Broker.RabbitMQ.Queue,
			)

			app := NewApp(cfg, log)
			if err := app.Initialize(ctx); err != nil {
				log.ErrorwCtx(ctx, "Failed to initialize application", "error", err)
				if shutdownErr := app.Shutdown(context.Background()); shutdownErr != nil {
					log.ErrorwCtx(ctx, "Shutdown failed", "error", shutdownErr)
				}
				return err
			}

			runErr := app.Run(ctx)
			if shutdownErr := app.Shutdown(context.Background()); shutdownErr != nil {
				log.ErrorwCtx(ctx, "Shutdown failed", "error", shutdownErr)
			}
			if runErr != nil && !errors.Is(runErr, context.Canceled) {
				log.ErrorwCtx(ctx, "Worker stopped with error", "error", runErr)
				return runErr
			}
			log.InfowCtx(ctx, "Shutdown complete")
			return nil
		},
	}
}
