package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"remoteiot-pipeline/internal/config"
	"remoteiot-pipeline/internal/orchestrator"
	"remoteiot-pipeline/pkg/logger"
	"remoteiot-pipeline/pkg/telegram"
)

const name = "orchestrator"

var (
	configPath      string
	credentialsPath string
	cronExpr        string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Runs the pipeline once",
	RunE:  runOnce,
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Runs the pipeline on a cron schedule",
	RunE:  runSchedule,
}

func runOnce(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	o, appLogger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = appLogger.Sync() }()

	run, err := o.Run(ctx)
	if err != nil {
		return err
	}
	if !run.Completed {
		return fmt.Errorf("pipeline halted at %s", run.HaltedAt)
	}
	return nil
}

func runSchedule(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	o, appLogger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = appLogger.Sync() }()

	return o.Schedule(ctx, cronExpr)
}

func setup() (*orchestrator.Orchestrator, *logger.Logger, error) {
	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if cronExpr == "" {
		cronExpr = cfg.Orchestrator.Cron
	}

	// Initialize logger
	logFile, err := logger.FilePath(cfg.Logger.Dir, name, time.Now())
	if err != nil {
		log.Printf("Log file disabled: %v", err)
	}
	var outputs []string
	if logFile != "" {
		outputs = append(outputs, logFile)
	}
	appLogger, err := logger.New(cfg.Logger.Level, cfg.Logger.Encoding, outputs...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	appLogger = appLogger.Named(name)
	appLogger.Info("Starting orchestrator", logger.Field("name", cfg.App.Name))

	stages, err := orchestrator.Stages(cfg.Orchestrator, configPath, credentialsPath)
	if err != nil {
		appLogger.Error("Failed to resolve stages", logger.ErrorField(err))
		return nil, nil, err
	}

	var opts []orchestrator.Option
	if cfg.Telegram.Enabled() {
		notifier, err := telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
		if err != nil {
			appLogger.Warn("Telegram notifications disabled", logger.ErrorField(err))
		} else {
			opts = append(opts, orchestrator.WithNotifier(notifier))
		}
	}

	return orchestrator.New(stages, orchestrator.NewProcessExecutor(), cfg.Orchestrator.StageDelay, appLogger, opts...), appLogger, nil
}

func main() {
	rootCmd := &cobra.Command{
		Use:           name,
		Short:         "Runs the RemoteIoT pipeline stages in order",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.json", "Path to the configuration file")
	rootCmd.PersistentFlags().StringVar(&credentialsPath, "credentials", "credentials.conf", "Path to the key=value credentials file")
	scheduleCmd.Flags().StringVar(&cronExpr, "cron", "", "Cron expression, defaults to orchestrator.cron from the configuration")

	rootCmd.AddCommand(runCmd, scheduleCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing orchestrator CLI: %s\n", err)
		os.Exit(1)
	}
}
