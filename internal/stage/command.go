package stage

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"remoteiot-pipeline/internal/config"
	"remoteiot-pipeline/pkg/common"
	"remoteiot-pipeline/pkg/credentials"
	"remoteiot-pipeline/pkg/logger"
)

// Factory builds a stage body from the loaded configuration.
type Factory func(cfg *config.Config, log *logger.Logger) Stage

// NewCommand returns the cobra root for a stage binary with a "run" subcommand.
func NewCommand(name, short string, factory Factory) *cobra.Command {
	var (
		configPath      string
		credentialsPath string
	)

	rootCmd := &cobra.Command{
		Use:           name,
		Short:         short,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.json", "Path to the configuration file")
	rootCmd.PersistentFlags().StringVar(&credentialsPath, "credentials", "credentials.conf", "Path to the key=value credentials file")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Runs the stage once",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStage(cmd, name, configPath, credentialsPath, factory)
		},
	}
	rootCmd.AddCommand(runCmd)
	return rootCmd
}

func runStage(cmd *cobra.Command, name, configPath, credentialsPath string, factory Factory) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
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
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = appLogger.Sync() }()

	runID := os.Getenv(common.EnvRunID)
	if runID == "" {
		runID = uuid.NewString()
	}
	appLogger = appLogger.With(logger.StringField("run_id", runID))
	appLogger.Info("Logging initialized", logger.StringField("log_file", logFile))

	creds, err := credentials.Load(credentialsPath)
	if err != nil {
		appLogger.Error("Failed to load credentials", logger.ErrorField(err))
		return err
	}
	appLogger.Info("Credentials loaded")

	runner := NewRunner(ChromeLauncher(cfg.Browser), cfg.Portal, creds, appLogger)
	report := runner.Run(ctx, factory(cfg, appLogger))
	report.RunID = runID

	if err := WriteReport(cmd.OutOrStdout(), report); err != nil {
		appLogger.Error("Failed to write completion report", logger.ErrorField(err))
		return err
	}
	if report.State != StateCompleted {
		return fmt.Errorf("%w: %s", ErrAborted, report.Detail)
	}
	return nil
}

// Main executes a stage command and exits non-zero on failure.
func Main(rootCmd *cobra.Command) {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing %s: %s\n", rootCmd.Name(), err)
		os.Exit(1)
	}
}
