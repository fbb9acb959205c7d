package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"herald/internal/config"
	"herald/internal/constants"
	"herald/internal/logger"
	"herald/pkg/logging"
	"herald/pkg/models"
)

var (
	configFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   constants.ServiceName,
		Short: "Publisher dispatch service",
		Long:  "Dispatch service fans module results out to the webhook, Kafka and FHIR publishers that subscribe to them",
		RunE:  serveCmd().RunE,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to config file (required)")

	rootCmd.AddCommand(serveCmd(), enqueueCmd(), pingCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup loads config and builds the logger shared by every command.
func setup() (*config.Config, logger.Logger, error) {
	earlyLog := logging.NewEarlyLog()

	if configFile == "" {
		configFile = os.Getenv("CONFIG_FILE")
		if configFile == "" {
			earlyLog.Error("Config file is required. Use --config flag or CONFIG_FILE environment variable")
			return nil, nil, fmt.Errorf("config file is required")
		}
	}

	cfg, err := config.Load(configFile)
	if err != nil {
		earlyLog.Error("Failed to load config: %v", err)
		return nil, nil, err
	}

	log, err := logger.NewWithFormat(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		earlyLog.Error("Failed to init logger: %v", err)
		return nil, nil, err
	}
	return cfg, log, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the dispatch service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			defer log.Sync()

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			log.InfowCtx(ctx, "Starting Dispatch Service", "mode", cfg.Dispatch.Mode)

			app := NewApp(cfg, log)
			if err := app.Initialize(ctx, true); err != nil {
				log.Fatalf("Failed to initialize application: %v", err)
			}
			defer func() {
				if err := app.Shutdown(context.Background()); err != nil {
					log.Errorw("Shutdown failed", "error", err)
				}
			}()

			log.InfowCtx(ctx, "Service running")
			if err := app.Run(ctx); err != nil && err != context.Canceled {
				log.ErrorwCtx(ctx, "Service stopped with error", "error", err)
				return err
			}
			log.InfowCtx(ctx, "Service shutdown complete")
			return nil
		},
	}
}

func enqueueCmd() *cobra.Command {
	var (
		moduleID       string
		deploymentID   string
		deviceName     string
		moduleConfigID string
		primitives     []string
	)

	cmd := &cobra.Command{
		Use:   "enqueue",
		Short: "Submit a module result batch for dispatch",
		Long:  "Submit a module result batch as if the write path had called back. Primitives are given as Name:id:userId.",
		RunE: func(cmd *cobra.Command, args []string) error {
			refs, err := parsePrimitiveRefs(primitives)
			if err != nil {
				return err
			}

			cfg, log, err := setup()
			if err != nil {
				return err
			}
			defer log.Sync()

			ctx := cmd.Context()
			app := NewApp(cfg, log)
			if err := app.Initialize(ctx, false); err != nil {
				return fmt.Errorf("failed to initialize application: %w", err)
			}
			defer app.Shutdown(context.Background())

			if err := app.callback.OnModuleResultBatch(ctx, refs, moduleID, deviceName, moduleConfigID, deploymentID); err != nil {
				return err
			}
			log.InfowCtx(ctx, "Module results submitted", "count", len(refs), "mode", cfg.Dispatch.Mode)
			return nil
		},
	}

	cmd.Flags().StringVar(&moduleID, "module-id", "", "Module id of the results")
	cmd.Flags().StringVar(&deploymentID, "deployment-id", "", "Deployment the results belong to")
	cmd.Flags().StringVar(&deviceName, "device-name", "", "Submitting device name")
	cmd.Flags().StringVar(&moduleConfigID, "module-config-id", "", "Module config id")
	cmd.Flags().StringSliceVar(&primitives, "primitive", nil, "Primitive reference as Name:id:userId (repeatable)")
	_ = cmd.MarkFlagRequired("module-id")
	_ = cmd.MarkFlagRequired("deployment-id")
	_ = cmd.MarkFlagRequired("primitive")

	return cmd
}

func pingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping <publisher-id>",
		Short: "Send a ping payload to one publisher",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			defer log.Sync()

			ctx := cmd.Context()
			app := NewApp(cfg, log)
			if err := app.Initialize(ctx, false); err != nil {
				return fmt.Errorf("failed to initialize application: %w", err)
			}
			defer app.Shutdown(context.Background())

			return app.coordinator.Ping(ctx, args[0])
		},
	}
}

func parsePrimitiveRefs(values []string) ([]models.PrimitiveRef, error) {
	refs := make([]models.PrimitiveRef, 0, len(values))
	for _, v := range values {
		parts := strings.Split(v, ":")
		if len(parts) != 3 || parts[0] == "" || parts[1] == "" {
			return nil, fmt.Errorf("invalid primitive %q, expected Name:id:userId", v)
		}
		refs = append(refs, models.PrimitiveRef{Name: parts[0], ID: parts[1], UserID: parts[2]})
	}
	return refs, nil
}
